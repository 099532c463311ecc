package raster

import (
	"math"

	"github.com/terrain-microservice/internal/terrain"
)

// MetersPerDegree is the north-south length of one degree of latitude.
const MetersPerDegree = 111320.0

// GeoTransform is the affine pixel-to-geographic mapping in GDAL order:
// origin x, pixel width, row rotation, origin y, column rotation, pixel height.
// Pixel height is negative for north-up grids. Rotation terms must be zero.
type GeoTransform [6]float64

// NewGeoTransform builds a north-up transform covering b with the given pixel dimensions.
func NewGeoTransform(b Bounds, width, height int) GeoTransform {
	return GeoTransform{
		b.MinLng,
		(b.MaxLng - b.MinLng) / float64(width),
		0,
		b.MaxLat,
		0,
		-(b.MaxLat - b.MinLat) / float64(height),
	}
}

func (gt GeoTransform) OriginX() float64     { return gt[0] }
func (gt GeoTransform) OriginY() float64     { return gt[3] }
func (gt GeoTransform) PixelWidth() float64  { return gt[1] }
func (gt GeoTransform) PixelHeight() float64 { return gt[5] }

// PixelToGeo maps fractional pixel coordinates to longitude/latitude.
// Integer coordinates address the top-left corner of a cell.
func (gt GeoTransform) PixelToGeo(col, row float64) (lng, lat float64) {
	return gt[0] + col*gt[1], gt[3] + row*gt[5]
}

// GeoToPixel maps longitude/latitude to fractional pixel coordinates.
func (gt GeoTransform) GeoToPixel(lng, lat float64) (col, row float64) {
	return (lng - gt[0]) / gt[1], (lat - gt[3]) / gt[5]
}

func (gt GeoTransform) validate() error {
	if gt[1] == 0 || gt[5] == 0 || math.IsNaN(gt[1]) || math.IsNaN(gt[5]) {
		return terrain.InputError("geotransform has zero pixel size")
	}
	if gt[2] != 0 || gt[4] != 0 {
		return terrain.InputError("rotated geotransforms are not supported")
	}
	return nil
}

// Bounds is a geographic bounding box in degrees.
type Bounds struct {
	MinLng float64 `json:"min_lng" validate:"min=-180,max=180"`
	MinLat float64 `json:"min_lat" validate:"min=-90,max=90"`
	MaxLng float64 `json:"max_lng" validate:"min=-180,max=180"`
	MaxLat float64 `json:"max_lat" validate:"min=-90,max=90"`
}

// Validate rejects empty or inverted boxes.
func (b Bounds) Validate() error {
	if b.MinLng >= b.MaxLng || b.MinLat >= b.MaxLat {
		return terrain.InputError("bounds are empty or inverted: %+v", b)
	}
	if b.MinLat < -90 || b.MaxLat > 90 || b.MinLng < -180 || b.MaxLng > 180 {
		return terrain.InputError("bounds outside valid coordinate range: %+v", b)
	}
	return nil
}

// CenterLat returns the latitude of the vertical centre of the box.
func (b Bounds) CenterLat() float64 {
	return (b.MinLat + b.MaxLat) / 2
}

// Contains reports whether the point lies inside the box (edges inclusive).
func (b Bounds) Contains(lng, lat float64) bool {
	return lng >= b.MinLng && lng <= b.MaxLng && lat >= b.MinLat && lat <= b.MaxLat
}

// MetersPerDegreeLng returns the east-west length of one degree of longitude at lat.
func MetersPerDegreeLng(lat float64) float64 {
	return MetersPerDegree * math.Abs(math.Cos(lat*math.Pi/180))
}
