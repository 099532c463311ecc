// Package profile samples an elevation grid along a polyline and derives
// grade metrics from the resulting distance-ordered sequence.
package profile

import (
	"context"
	"errors"
	"math"

	"github.com/paulmach/orb"

	"github.com/terrain-microservice/internal/pkg/geo"
	"github.com/terrain-microservice/internal/terrain"
	"github.com/terrain-microservice/internal/terrain/raster"
)

// Point is one sample along the line.
type Point struct {
	Distance  float64 `json:"distance"`
	Elevation float64 `json:"elevation"`
	Grade     float64 `json:"grade"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
}

// Dropped records a sample that could not be resolved.
type Dropped struct {
	Distance float64 `json:"distance"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Reason   string  `json:"reason"`
	Message  string  `json:"message"`
}

// ValidateLine checks that the polyline has at least two valid coordinates.
func ValidateLine(line orb.LineString) error {
	if len(line) < 2 {
		return terrain.InputError("polyline needs at least two points, got %d", len(line))
	}
	for i, p := range line {
		if !geo.ValidateCoordinates(p.Lat(), p.Lon()) || math.IsNaN(p.Lat()) || math.IsNaN(p.Lon()) {
			return terrain.InputError("polyline point %d has invalid coordinates %v", i, p)
		}
	}
	return nil
}

// LineLength sums the haversine lengths of the segments in metres.
func LineLength(line orb.LineString) float64 {
	var total float64
	for i := 1; i < len(line); i++ {
		total += segmentLength(line[i-1], line[i])
	}
	return total
}

func segmentLength(a, b orb.Point) float64 {
	return geo.Haversine(a.Lat(), a.Lon(), b.Lat(), b.Lon())
}

// PointAt walks the cumulative segment lengths and interpolates longitude and
// latitude linearly inside the containing segment. Distances past the end
// return the last vertex.
func PointAt(line orb.LineString, distance float64) orb.Point {
	var cumulative float64
	for i := 1; i < len(line); i++ {
		a, b := line[i-1], line[i]
		seg := segmentLength(a, b)
		if cumulative+seg >= distance {
			frac := 0.0
			if seg > 0 {
				frac = (distance - cumulative) / seg
			}
			return orb.Point{
				a.Lon() + (b.Lon()-a.Lon())*frac,
				a.Lat() + (b.Lat()-a.Lat())*frac,
			}
		}
		cumulative += seg
	}
	return line[len(line)-1]
}

// SampleDistances returns 0, interval, 2*interval, ... and ends exactly at total.
func SampleDistances(total, interval float64) []float64 {
	n := int(SampleCount(total, interval))
	out := make([]float64, n)
	for i := 0; i < n-1; i++ {
		out[i] = float64(i) * interval
	}
	out[n-1] = total
	return out
}

// SampleCount is the number of samples SampleDistances would produce.
func SampleCount(total, interval float64) float64 {
	// tolerance keeps float noise in total from adding a near-duplicate sample
	return math.Max(math.Ceil(total/interval-1e-9)+1, 2)
}

// Sample resolves the elevation at every sample distance. Samples that fall
// outside the grid or only hit no-data are reported in dropped, never fatal.
// More than maxSamples samples is an input error; maxSamples <= 0 disables
// the check.
func Sample(ctx context.Context, dem *raster.Grid, line orb.LineString, interval float64, maxSamples int) (points []Point, dropped []Dropped, err error) {
	if err := ValidateLine(line); err != nil {
		return nil, nil, err
	}
	if interval <= 0 || math.IsNaN(interval) {
		return nil, nil, terrain.InputError("sample interval must be positive, got %v", interval)
	}
	total := LineLength(line)
	if total == 0 {
		return nil, nil, terrain.ComputationError("polyline has zero length")
	}

	if n := SampleCount(total, interval); maxSamples > 0 && n > float64(maxSamples) {
		return nil, nil, terrain.InputError("sample interval %v m on a %.0f m line yields %.0f samples, limit is %d",
			interval, total, n, maxSamples)
	}

	distances := SampleDistances(total, interval)
	points = make([]Point, 0, len(distances))
	for _, d := range distances {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		p := PointAt(line, d)
		z, err := dem.Sample(p.Lon(), p.Lat())
		if err != nil {
			if errors.Is(err, terrain.ErrOutOfBounds) || errors.Is(err, terrain.ErrNoData) {
				dropped = append(dropped, Dropped{
					Distance: d,
					Lat:      p.Lat(),
					Lng:      p.Lon(),
					Reason:   terrain.Kind(err),
					Message:  err.Error(),
				})
				continue
			}
			return nil, nil, err
		}
		points = append(points, Point{Distance: d, Elevation: z, Lat: p.Lat(), Lng: p.Lon()})
	}
	return points, dropped, nil
}
