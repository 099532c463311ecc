// Package raster models georeferenced elevation grids: the pixel/geographic
// coordinate mapping, metric cell sizes, sub-cell sampling and the storage
// codecs used to move grids in and out of the service.
package raster

import (
	"math"

	"github.com/terrain-microservice/internal/terrain"
)

const (
	// DefaultNoData marks invalid cells unless a grid declares its own sentinel.
	DefaultNoData = -9999.0

	// CRSWGS84 is the reference system of every grid the service produces.
	CRSWGS84 = "EPSG:4326"
)

// Grid is an immutable row-major 2D array of float samples with its
// georeferencing. Row 0 is the northern edge.
type Grid struct {
	width     int
	height    int
	data      []float64
	transform GeoTransform
	crs       string
	noData    float64
}

// New validates the dimensions and copies data into a new grid.
func New(width, height int, data []float64, gt GeoTransform, crs string, noData float64) (*Grid, error) {
	owned := make([]float64, len(data))
	copy(owned, data)
	return wrap(width, height, owned, gt, crs, noData)
}

// NewFilled returns a grid where every cell holds value.
func NewFilled(width, height int, value float64, gt GeoTransform, crs string, noData float64) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, terrain.InputError("grid dimensions must be positive, got %dx%d", width, height)
	}
	data := make([]float64, width*height)
	for i := range data {
		data[i] = value
	}
	return wrap(width, height, data, gt, crs, noData)
}

func wrap(width, height int, data []float64, gt GeoTransform, crs string, noData float64) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, terrain.InputError("grid dimensions must be positive, got %dx%d", width, height)
	}
	if len(data) != width*height {
		return nil, terrain.InputError("grid data has %d samples, want %dx%d=%d", len(data), width, height, width*height)
	}
	if err := gt.validate(); err != nil {
		return nil, err
	}
	if crs == "" {
		crs = CRSWGS84
	}
	return &Grid{
		width:     width,
		height:    height,
		data:      data,
		transform: gt,
		crs:       crs,
		noData:    noData,
	}, nil
}

// Derive returns a grid with the same georeferencing and new samples.
// The caller hands ownership of data to the grid and must not modify it afterwards.
func (g *Grid) Derive(data []float64, noData float64) (*Grid, error) {
	return wrap(g.width, g.height, data, g.transform, g.crs, noData)
}

func (g *Grid) Width() int              { return g.width }
func (g *Grid) Height() int             { return g.height }
func (g *Grid) Len() int                { return len(g.data) }
func (g *Grid) CRS() string             { return g.crs }
func (g *Grid) NoData() float64         { return g.noData }
func (g *Grid) Transform() GeoTransform { return g.transform }

// At returns the sample at (col, row). It panics when out of range.
func (g *Grid) At(col, row int) float64 {
	return g.data[row*g.width+col]
}

// Values returns a copy of the samples in row-major order.
func (g *Grid) Values() []float64 {
	out := make([]float64, len(g.data))
	copy(out, g.data)
	return out
}

// IsNoData reports whether v is the grid's no-data sentinel (NaN always is).
func (g *Grid) IsNoData(v float64) bool {
	return math.IsNaN(v) || v == g.noData
}

// ValidValues returns every sample that is not no-data.
func (g *Grid) ValidValues() []float64 {
	out := make([]float64, 0, len(g.data))
	for _, v := range g.data {
		if !g.IsNoData(v) {
			out = append(out, v)
		}
	}
	return out
}

// Bounds returns the geographic extent covered by the grid.
func (g *Grid) Bounds() Bounds {
	lng0, lat0 := g.transform.PixelToGeo(0, 0)
	lng1, lat1 := g.transform.PixelToGeo(float64(g.width), float64(g.height))
	return Bounds{
		MinLng: math.Min(lng0, lng1),
		MinLat: math.Min(lat0, lat1),
		MaxLng: math.Max(lng0, lng1),
		MaxLat: math.Max(lat0, lat1),
	}
}

// CenterLat is the latitude of the grid's vertical centre.
func (g *Grid) CenterLat() float64 {
	return g.transform.OriginY() + float64(g.height)*g.transform.PixelHeight()/2
}

// CellSizeMeters converts the angular cell size to metres using the latitude
// of the grid's vertical centre for the east-west scale.
func (g *Grid) CellSizeMeters() (dx, dy float64) {
	dx = math.Abs(g.transform.PixelWidth()) * MetersPerDegreeLng(g.CenterLat())
	dy = math.Abs(g.transform.PixelHeight()) * MetersPerDegree
	return dx, dy
}
