package gradient_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terrain-microservice/internal/terrain"
	"github.com/terrain-microservice/internal/terrain/gradient"
	"github.com/terrain-microservice/internal/terrain/raster"
)

// oneMeter is one metre expressed in degrees at the equator.
const oneMeter = 1 / raster.MetersPerDegree

// meterGrid builds an equator-centred grid with 1 m cells.
func meterGrid(t *testing.T, w, h int, z func(c, r int) float64) *raster.Grid {
	t.Helper()
	data := make([]float64, w*h)
	for r := 0; r < h; r++ {
		for c := 0; c < w; c++ {
			data[r*w+c] = z(c, r)
		}
	}
	gt := raster.GeoTransform{0, oneMeter, 0, float64(h) / 2 * oneMeter, 0, -oneMeter}
	g, err := raster.New(w, h, data, gt, raster.CRSWGS84, raster.DefaultNoData)
	require.NoError(t, err)
	return g
}

func opts() gradient.Options {
	return gradient.OptionsFromConfig(terrain.DefaultConfig())
}

func TestCompute_FlatTwoByTwo(t *testing.T) {
	g := meterGrid(t, 2, 2, func(c, r int) float64 { return 42 })

	s, err := gradient.Compute(context.Background(), g, opts())
	require.NoError(t, err)

	for _, v := range s.Slope.Values() {
		assert.InDelta(t, 0, v, 1e-9)
	}
	for _, v := range s.Aspect.Values() {
		assert.Equal(t, gradient.AspectFlat, v)
	}
}

func TestCompute_EastFacingRamp(t *testing.T) {
	g := meterGrid(t, 10, 10, func(c, r int) float64 { return 100 - float64(c) })

	s, err := gradient.Compute(context.Background(), g, opts())
	require.NoError(t, err)

	for r := 0; r < 10; r++ {
		for c := 0; c < 10; c++ {
			assert.InDelta(t, 90, s.Aspect.At(c, r), 0.01, "aspect at %d,%d", c, r)
			assert.InDelta(t, 100, s.Slope.At(c, r), 0.01, "slope at %d,%d", c, r)
		}
	}
}

func TestCompute_CardinalDirections(t *testing.T) {
	tests := []struct {
		name   string
		z      func(c, r int) float64
		aspect float64
	}{
		{"north facing", func(c, r int) float64 { return float64(r) }, 0},
		{"south facing", func(c, r int) float64 { return -float64(r) }, 180},
		{"west facing", func(c, r int) float64 { return float64(c) }, 270},
		{"north-east facing", func(c, r int) float64 { return float64(r) - float64(c) }, 45},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := meterGrid(t, 5, 5, tt.z)

			s, err := gradient.Compute(context.Background(), g, opts())
			require.NoError(t, err)

			assert.InDelta(t, tt.aspect, s.Aspect.At(2, 2), 0.01)
		})
	}
}

func TestCompute_EdgesCopyInterior(t *testing.T) {
	// quadratic surface so interior gradients differ per column
	g := meterGrid(t, 6, 4, func(c, r int) float64 { return float64(c*c) + 3*float64(r) })

	s, err := gradient.Compute(context.Background(), g, opts())
	require.NoError(t, err)

	for r := 0; r < 4; r++ {
		assert.Equal(t, s.Slope.At(1, r), s.Slope.At(0, r))
		assert.Equal(t, s.Slope.At(4, r), s.Slope.At(5, r))
	}
	for c := 0; c < 6; c++ {
		assert.Equal(t, s.Slope.At(c, 1), s.Slope.At(c, 0))
		assert.Equal(t, s.Aspect.At(c, 2), s.Aspect.At(c, 3))
	}
}

func TestCompute_InvariantsHold(t *testing.T) {
	g := meterGrid(t, 12, 9, func(c, r int) float64 {
		return 50 + 10*math.Sin(float64(c)/2) + 4*math.Cos(float64(r)/3)
	})

	s, err := gradient.Compute(context.Background(), g, opts())
	require.NoError(t, err)

	for _, v := range s.Slope.Values() {
		assert.GreaterOrEqual(t, v, 0.0)
	}
	for _, v := range s.Aspect.Values() {
		if v == gradient.AspectFlat {
			continue
		}
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 360.0)
	}
}

func TestCompute_NoDataPropagates(t *testing.T) {
	g := meterGrid(t, 5, 5, func(c, r int) float64 {
		if c == 2 && r == 2 {
			return raster.DefaultNoData
		}
		return float64(c)
	})

	s, err := gradient.Compute(context.Background(), g, opts())
	require.NoError(t, err)

	assert.True(t, s.Slope.IsNoData(s.Slope.At(2, 2)))
	assert.True(t, s.Slope.IsNoData(s.Slope.At(1, 2)))
	assert.True(t, s.Aspect.IsNoData(s.Aspect.At(2, 1)))
	assert.False(t, s.Slope.IsNoData(s.Slope.At(0, 0)))
}

func TestCompute_Errors(t *testing.T) {
	_, err := gradient.Compute(context.Background(), meterGrid(t, 1, 5, func(c, r int) float64 { return 0 }), opts())
	assert.ErrorIs(t, err, terrain.ErrComputation)

	empty := meterGrid(t, 3, 3, func(c, r int) float64 { return raster.DefaultNoData })
	_, err = gradient.Compute(context.Background(), empty, opts())
	assert.ErrorIs(t, err, terrain.ErrComputation)
}

func TestCompute_Deterministic(t *testing.T) {
	g := meterGrid(t, 40, 33, func(c, r int) float64 { return float64(c*r%7) + float64(r) })

	single := opts()
	single.Workers = 1
	many := opts()
	many.Workers = 8

	a, err := gradient.Compute(context.Background(), g, single)
	require.NoError(t, err)
	b, err := gradient.Compute(context.Background(), g, many)
	require.NoError(t, err)

	assert.Equal(t, a.Slope.Values(), b.Slope.Values())
	assert.Equal(t, a.Aspect.Values(), b.Aspect.Values())
}

func TestSmooth_ConstantGridUnchanged(t *testing.T) {
	g := meterGrid(t, 7, 6, func(c, r int) float64 { return 12.5 })

	out, err := gradient.Smooth(context.Background(), g, 5, 0)
	require.NoError(t, err)

	for _, v := range out.Values() {
		assert.InDelta(t, 12.5, v, 1e-9)
	}
}

func TestSmooth_ReducesSpike(t *testing.T) {
	g := meterGrid(t, 9, 9, func(c, r int) float64 {
		if c == 4 && r == 4 {
			return 100
		}
		return 0
	})

	out, err := gradient.Smooth(context.Background(), g, 3, 0)
	require.NoError(t, err)

	assert.Less(t, out.At(4, 4), 100.0)
	assert.Greater(t, out.At(3, 4), 0.0)
	var sum float64
	for _, v := range out.Values() {
		sum += v
	}
	assert.InDelta(t, 100, sum, 1e-6)
}

func TestSmooth_RejectsEvenKernel(t *testing.T) {
	g := meterGrid(t, 3, 3, func(c, r int) float64 { return 1 })

	_, err := gradient.Smooth(context.Background(), g, 4, 0)
	assert.ErrorIs(t, err, terrain.ErrInput)
}

func TestBearing(t *testing.T) {
	assert.InDelta(t, 90, gradient.Bearing(-1, 0), 1e-9)
	assert.InDelta(t, 0, gradient.Bearing(0, 1), 1e-9)
	assert.InDelta(t, 180, gradient.Bearing(0, -1), 1e-9)
	assert.InDelta(t, 270, gradient.Bearing(1, 0), 1e-9)
}
