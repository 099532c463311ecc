// Package dem interpolates a regular elevation grid from elevation-tagged
// contour lines and validates the result against the input contours.
package dem

import (
	"math"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/terrain-microservice/internal/terrain"
	"github.com/terrain-microservice/internal/terrain/raster"
)

// Contour is a polyline with a single elevation.
type Contour struct {
	ID        string
	Elevation float64
	Line      orb.LineString
}

// GridSpec is the target extent and pixel dimensions of a generated grid.
type GridSpec struct {
	Bounds raster.Bounds
	Width  int
	Height int
}

// NewGridSpec derives pixel dimensions from a resolution in metres. The
// east-west extent is scaled by the cosine of the centre latitude.
func NewGridSpec(b raster.Bounds, resolution float64, maxCells int) (GridSpec, error) {
	if err := b.Validate(); err != nil {
		return GridSpec{}, err
	}
	if resolution <= 0 || math.IsNaN(resolution) {
		return GridSpec{}, terrain.InputError("resolution must be positive, got %v", resolution)
	}
	heightM := (b.MaxLat - b.MinLat) * raster.MetersPerDegree
	widthM := (b.MaxLng - b.MinLng) * raster.MetersPerDegreeLng(b.CenterLat())

	spec := GridSpec{
		Bounds: b,
		Width:  int(widthM / resolution),
		Height: int(heightM / resolution),
	}
	if spec.Width < 2 || spec.Height < 2 {
		return GridSpec{}, terrain.InputError("resolution %vm yields a %dx%d grid, need at least 2x2",
			resolution, spec.Width, spec.Height)
	}
	if maxCells > 0 && spec.Width*spec.Height > maxCells {
		return GridSpec{}, terrain.InputError("grid %dx%d exceeds the %d cell limit", spec.Width, spec.Height, maxCells)
	}
	return spec, nil
}

// Transform returns the north-up geotransform of the spec.
func (s GridSpec) Transform() raster.GeoTransform {
	return raster.NewGeoTransform(s.Bounds, s.Width, s.Height)
}

// Stats holds elevation extrema and mean over valid cells.
type Stats struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
}

// ComputeStats summarises the valid cells of g.
func ComputeStats(g *raster.Grid) (Stats, error) {
	valid := g.ValidValues()
	if len(valid) == 0 {
		return Stats{}, terrain.ComputationError("elevation grid has no valid cells")
	}
	return Stats{
		Min: floats.Min(valid),
		Max: floats.Max(valid),
		Avg: stat.Mean(valid, nil),
	}, nil
}

func validateContours(contours []Contour) error {
	if len(contours) == 0 {
		return terrain.InputError("contour set is empty")
	}
	for _, c := range contours {
		if len(c.Line) == 0 {
			return terrain.InputError("contour %q has no vertices", c.ID)
		}
		if math.IsNaN(c.Elevation) || math.IsInf(c.Elevation, 0) {
			return terrain.InputError("contour %q has invalid elevation", c.ID)
		}
	}
	return nil
}

// frame maps geographic coordinates to local metres measured from the grid's
// north-west corner, x east and y south, so that cell (c, r) has its centre
// at ((c+0.5)*cellX, (r+0.5)*cellY).
type frame struct {
	gt    raster.GeoTransform
	cellX float64
	cellY float64
}

func newFrame(spec GridSpec) frame {
	gt := spec.Transform()
	return frame{
		gt:    gt,
		cellX: math.Abs(gt.PixelWidth()) * raster.MetersPerDegreeLng(spec.Bounds.CenterLat()),
		cellY: math.Abs(gt.PixelHeight()) * raster.MetersPerDegree,
	}
}

func (f frame) project(p orb.Point) (x, y float64) {
	col, row := f.gt.GeoToPixel(p.Lon(), p.Lat())
	return col * f.cellX, row * f.cellY
}

func (f frame) cellCenter(c, r int) (x, y float64) {
	return (float64(c) + 0.5) * f.cellX, (float64(r) + 0.5) * f.cellY
}

type sample struct {
	x, y, z float64
}

// samples projects every contour vertex, dropping exact positional duplicates
// (the first elevation wins).
func samples(contours []Contour, f frame) []sample {
	seen := make(map[[2]float64]struct{})
	var out []sample
	for _, c := range contours {
		for _, p := range c.Line {
			x, y := f.project(p)
			key := [2]float64{x, y}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, sample{x, y, c.Elevation})
		}
	}
	return out
}
