package raster

import (
	"fmt"
	"math"

	"github.com/terrain-microservice/internal/terrain"
)

// BilinearMargin is the upper-edge tolerance needed by a 2x2 neighbourhood.
const BilinearMargin = 1.0

// Locate converts a geographic point to fractional pixel coordinates. The
// point must satisfy 0 <= col < width-margin and 0 <= row < height-margin,
// otherwise ErrOutOfBounds is returned.
func (g *Grid) Locate(lng, lat, margin float64) (col, row float64, err error) {
	col, row = g.transform.GeoToPixel(lng, lat)
	if math.IsNaN(col) || math.IsNaN(row) ||
		col < 0 || row < 0 ||
		col >= float64(g.width)-margin || row >= float64(g.height)-margin {
		return col, row, terrain.BoundsError("point (%.7f, %.7f) maps to pixel (%.2f, %.2f) outside %dx%d grid",
			lng, lat, col, row, g.width, g.height)
	}
	return col, row, nil
}

// Cell returns the integer cell containing the point.
func (g *Grid) Cell(lng, lat float64) (col, row int, ok bool) {
	fc, fr := g.transform.GeoToPixel(lng, lat)
	col, row = int(math.Floor(fc)), int(math.Floor(fr))
	if col < 0 || row < 0 || col >= g.width || row >= g.height {
		return col, row, false
	}
	return col, row, true
}

// Bilinear interpolates over the 2x2 block whose top-left cell is
// (floor(col), floor(row)). When any of the four samples is no-data the
// nearest cell is used instead.
func (g *Grid) Bilinear(col, row float64) (float64, error) {
	x0 := int(math.Floor(col))
	y0 := int(math.Floor(row))
	x1, y1 := x0+1, y0+1
	if x0 < 0 || y0 < 0 || x1 >= g.width || y1 >= g.height {
		return 0, terrain.BoundsError("pixel (%.2f, %.2f) has no 2x2 neighbourhood in %dx%d grid",
			col, row, g.width, g.height)
	}

	z00 := g.At(x0, y0)
	z10 := g.At(x1, y0)
	z01 := g.At(x0, y1)
	z11 := g.At(x1, y1)
	if g.IsNoData(z00) || g.IsNoData(z10) || g.IsNoData(z01) || g.IsNoData(z11) {
		return g.Nearest(col, row)
	}

	dx := col - float64(x0)
	dy := row - float64(y0)
	z0 := z00*(1-dx) + z10*dx
	z1 := z01*(1-dx) + z11*dx
	return z0*(1-dy) + z1*dy, nil
}

// Nearest returns the sample of the cell nearest to the fractional position.
func (g *Grid) Nearest(col, row float64) (float64, error) {
	c := int(math.Round(col))
	r := int(math.Round(row))
	if c < 0 || r < 0 || c >= g.width || r >= g.height {
		return 0, terrain.BoundsError("pixel (%d, %d) outside %dx%d grid", c, r, g.width, g.height)
	}
	v := g.At(c, r)
	if g.IsNoData(v) {
		return 0, fmt.Errorf("%w: cell (%d, %d)", terrain.ErrNoData, c, r)
	}
	return v, nil
}

// Sample locates a geographic point and interpolates its elevation.
func (g *Grid) Sample(lng, lat float64) (float64, error) {
	col, row, err := g.Locate(lng, lat, BilinearMargin)
	if err != nil {
		return 0, err
	}
	return g.Bilinear(col, row)
}
