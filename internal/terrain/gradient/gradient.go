// Package gradient derives slope and aspect grids from an elevation grid
// using central differences in metric units.
package gradient

import (
	"context"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/terrain-microservice/internal/terrain"
	"github.com/terrain-microservice/internal/terrain/raster"
)

// AspectFlat marks cells whose slope is below the flat threshold.
const AspectFlat = -1.0

// Options controls a gradient run.
type Options struct {
	FlatThreshold float64
	Smooth        bool
	KernelSize    int
	// Workers bounds the number of row bands processed concurrently; 0 means GOMAXPROCS.
	Workers int
}

// OptionsFromConfig picks the gradient settings out of an engine configuration.
func OptionsFromConfig(cfg terrain.Config) Options {
	return Options{
		FlatThreshold: cfg.FlatSlopeThreshold,
		Smooth:        cfg.SmoothingEnabled,
		KernelSize:    cfg.SmoothingKernelSize,
	}
}

// Surface holds the derived grids. Both share the elevation grid's
// georeferencing and use raster.DefaultNoData where elevation is missing.
type Surface struct {
	Slope  *raster.Grid // percent grade
	Aspect *raster.Grid // compass degrees in [0, 360) or AspectFlat
}

// Compute derives slope and aspect. Edge rows and columns take the gradient
// of the nearest interior row/column; an axis only two cells long uses the
// forward difference for both cells.
func Compute(ctx context.Context, dem *raster.Grid, opts Options) (*Surface, error) {
	w, h := dem.Width(), dem.Height()
	if w < 2 || h < 2 {
		return nil, terrain.ComputationError("grid %dx%d too small for gradient computation", w, h)
	}
	if len(dem.ValidValues()) == 0 {
		return nil, terrain.ComputationError("elevation grid has no valid cells")
	}

	if opts.Smooth {
		smoothed, err := Smooth(ctx, dem, opts.KernelSize, opts.Workers)
		if err != nil {
			return nil, err
		}
		dem = smoothed
	}

	cellX, cellY := dem.CellSizeMeters()
	if cellX == 0 || cellY == 0 {
		return nil, terrain.ComputationError("grid cell size collapses to zero metres")
	}

	z := dem.Values()
	slope := make([]float64, len(z))
	aspect := make([]float64, len(z))
	nd := raster.DefaultNoData

	err := forRows(ctx, h, opts.Workers, func(r0, r1 int) {
		for r := r0; r < r1; r++ {
			rr := interior(r, h)
			for c := 0; c < w; c++ {
				i := r*w + c
				dx, dy, ok := derivatives(dem, z, interior(c, w), rr, cellX, cellY)
				if !ok || dem.IsNoData(z[i]) {
					slope[i], aspect[i] = nd, nd
					continue
				}
				slope[i] = 100 * math.Sqrt(dx*dx+dy*dy)
				if slope[i] < opts.FlatThreshold {
					aspect[i] = AspectFlat
				} else {
					aspect[i] = Bearing(dx, dy)
				}
			}
		}
	})
	if err != nil {
		return nil, err
	}

	slopeGrid, err := dem.Derive(slope, nd)
	if err != nil {
		return nil, err
	}
	aspectGrid, err := dem.Derive(aspect, nd)
	if err != nil {
		return nil, err
	}
	return &Surface{Slope: slopeGrid, Aspect: aspectGrid}, nil
}

// Bearing converts a gradient to the compass direction the surface faces.
// dy is measured along increasing row index (southward).
func Bearing(dx, dy float64) float64 {
	deg := 90 - math.Atan2(dy, -dx)*180/math.Pi
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	if deg >= 360 {
		deg = 0
	}
	return deg
}

// interior clamps i to the interior range of an axis of length n.
func interior(i, n int) int {
	if n <= 2 {
		return i
	}
	if i < 1 {
		return 1
	}
	if i > n-2 {
		return n - 2
	}
	return i
}

func derivatives(g *raster.Grid, z []float64, c, r int, cellX, cellY float64) (dx, dy float64, ok bool) {
	w, h := g.Width(), g.Height()

	var left, right, step float64
	if w == 2 {
		left, right, step = z[r*w], z[r*w+1], cellX
	} else {
		left, right, step = z[r*w+c-1], z[r*w+c+1], 2*cellX
	}
	if g.IsNoData(left) || g.IsNoData(right) {
		return 0, 0, false
	}
	dx = (right - left) / step

	var up, down float64
	if h == 2 {
		up, down, step = z[c], z[w+c], cellY
	} else {
		up, down, step = z[(r-1)*w+c], z[(r+1)*w+c], 2*cellY
	}
	if g.IsNoData(up) || g.IsNoData(down) {
		return 0, 0, false
	}
	dy = (down - up) / step
	return dx, dy, true
}

// forRows splits [0, rows) into contiguous bands and runs fn on each band
// concurrently. Bands write disjoint output rows.
func forRows(ctx context.Context, rows, workers int, fn func(r0, r1 int)) error {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > rows {
		workers = rows
	}
	band := (rows + workers - 1) / workers

	eg, ctx := errgroup.WithContext(ctx)
	for r0 := 0; r0 < rows; r0 += band {
		r0, r1 := r0, min(r0+band, rows)
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn(r0, r1)
			return nil
		})
	}
	return eg.Wait()
}
