package mapbox

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
)

const (
	tileSize = 256
	// MaxZoom - максимальный зум тайлсета mapbox.terrain-rgb
	MaxZoom = 15
	// MaxMercatorLat - граница проекции Web Mercator
	MaxMercatorLat = 85.05112878
)

func worldSize(zoom int) float64 {
	return tileSize * math.Exp2(float64(zoom))
}

// lngToPixel возвращает глобальную X-координату пикселя Web Mercator
func lngToPixel(lng float64, zoom int) float64 {
	return (lng + 180) / 360 * worldSize(zoom)
}

// latToPixel возвращает глобальную Y-координату пикселя (растет к югу)
func latToPixel(lat float64, zoom int) float64 {
	s := math.Sin(lat * math.Pi / 180)
	return (0.5 - math.Log((1+s)/(1-s))/(4*math.Pi)) * worldSize(zoom)
}

// DecodeElevation переводит цвет Terrain-RGB в метры
func DecodeElevation(r, g, b uint8) float64 {
	return -10000 + float64(int(r)*65536+int(g)*256+int(b))*0.1
}

// EncodeElevation - обратное преобразование с шагом 0.1 м (тесты, отладка)
func EncodeElevation(elevation float64) (r, g, b uint8) {
	v := int(math.Round((elevation + 10000) * 10))
	v = max(0, min(v, 1<<24-1))
	return uint8(v >> 16), uint8(v >> 8 & 0xff), uint8(v & 0xff)
}

// decodeTile читает PNG тайла в массив высот tileSize x tileSize (по строкам)
func decodeTile(r io.Reader) ([]float64, error) {
	img, err := png.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode tile png: %w", err)
	}
	b := img.Bounds()
	if b.Dx() != tileSize || b.Dy() != tileSize {
		return nil, fmt.Errorf("unexpected tile size %dx%d", b.Dx(), b.Dy())
	}

	out := make([]float64, tileSize*tileSize)
	switch m := img.(type) {
	case *image.NRGBA:
		for y := 0; y < tileSize; y++ {
			row := m.Pix[y*m.Stride:]
			for x := 0; x < tileSize; x++ {
				p := row[x*4:]
				out[y*tileSize+x] = DecodeElevation(p[0], p[1], p[2])
			}
		}
	case *image.RGBA:
		for y := 0; y < tileSize; y++ {
			row := m.Pix[y*m.Stride:]
			for x := 0; x < tileSize; x++ {
				p := row[x*4:]
				out[y*tileSize+x] = DecodeElevation(p[0], p[1], p[2])
			}
		}
	default:
		for y := 0; y < tileSize; y++ {
			for x := 0; x < tileSize; x++ {
				cr, cg, cb, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
				out[y*tileSize+x] = DecodeElevation(uint8(cr>>8), uint8(cg>>8), uint8(cb>>8))
			}
		}
	}
	return out, nil
}

// mosaic - склейка тайлов tx0..tx1 x ty0..ty1 в один массив высот
type mosaic struct {
	tx0, ty0 int
	cols     int
	rows     int
	data     []float64
}

func newMosaic(tx0, ty0, tx1, ty1 int) *mosaic {
	cols := (tx1 - tx0 + 1) * tileSize
	rows := (ty1 - ty0 + 1) * tileSize
	return &mosaic{tx0: tx0, ty0: ty0, cols: cols, rows: rows, data: make([]float64, cols*rows)}
}

// put копирует тайл (tx, ty) на его место; разные тайлы пишут в непересекающиеся области
func (m *mosaic) put(tx, ty int, tile []float64) {
	ox := (tx - m.tx0) * tileSize
	oy := (ty - m.ty0) * tileSize
	for y := 0; y < tileSize; y++ {
		copy(m.data[(oy+y)*m.cols+ox:(oy+y)*m.cols+ox+tileSize], tile[y*tileSize:(y+1)*tileSize])
	}
}

// at - билинейная интерполяция по центрам пикселей, координаты глобальные
func (m *mosaic) at(px, py float64) float64 {
	x := px - float64(m.tx0*tileSize) - 0.5
	y := py - float64(m.ty0*tileSize) - 0.5
	x = math.Max(0, math.Min(x, float64(m.cols-1)))
	y = math.Max(0, math.Min(y, float64(m.rows-1)))

	x0, y0 := int(x), int(y)
	x1, y1 := min(x0+1, m.cols-1), min(y0+1, m.rows-1)
	fx, fy := x-float64(x0), y-float64(y0)

	v00 := m.data[y0*m.cols+x0]
	v10 := m.data[y0*m.cols+x1]
	v01 := m.data[y1*m.cols+x0]
	v11 := m.data[y1*m.cols+x1]
	return v00*(1-fx)*(1-fy) + v10*fx*(1-fy) + v01*(1-fx)*fy + v11*fx*fy
}
