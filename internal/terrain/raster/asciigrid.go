package raster

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/terrain-microservice/internal/terrain"
)

// WriteASCII writes g as an ESRI ASCII grid. Non-square cells use the dx/dy
// header extension understood by GDAL.
func WriteASCII(w io.Writer, g *Grid) error {
	bw := bufio.NewWriter(w)
	b := g.Bounds()
	pw := math.Abs(g.transform.PixelWidth())
	ph := math.Abs(g.transform.PixelHeight())

	fmt.Fprintf(bw, "ncols %d\n", g.width)
	fmt.Fprintf(bw, "nrows %d\n", g.height)
	fmt.Fprintf(bw, "xllcorner %s\n", formatFloat(b.MinLng))
	fmt.Fprintf(bw, "yllcorner %s\n", formatFloat(b.MinLat))
	if pw == ph {
		fmt.Fprintf(bw, "cellsize %s\n", formatFloat(pw))
	} else {
		fmt.Fprintf(bw, "dx %s\n", formatFloat(pw))
		fmt.Fprintf(bw, "dy %s\n", formatFloat(ph))
	}
	fmt.Fprintf(bw, "NODATA_value %s\n", formatFloat(g.noData))

	for row := 0; row < g.height; row++ {
		for col := 0; col < g.width; col++ {
			if col > 0 {
				bw.WriteByte(' ')
			}
			v := g.At(col, row)
			if math.IsNaN(v) {
				v = g.noData
			}
			bw.WriteString(formatFloat(v))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// ReadASCII parses an ESRI ASCII grid. Rows are read north to south.
func ReadASCII(r io.Reader, maxCells int) (*Grid, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	sc.Split(bufio.ScanWords)

	header := map[string]float64{}
	var first string
	for sc.Scan() {
		tok := sc.Text()
		key := strings.ToLower(tok)
		if _, err := strconv.ParseFloat(tok, 64); err == nil {
			first = tok
			break
		}
		if !sc.Scan() {
			return nil, terrain.InputError("ascii grid: missing value for %q", tok)
		}
		v, err := strconv.ParseFloat(sc.Text(), 64)
		if err != nil {
			return nil, terrain.InputError("ascii grid: bad value for %q: %v", tok, err)
		}
		header[key] = v
	}
	if err := sc.Err(); err != nil {
		return nil, terrain.InputError("ascii grid: %v", err)
	}

	width, height, err := gridDims(header, maxCells)
	if err != nil {
		return nil, err
	}

	dx, dy := header["dx"], header["dy"]
	if cs, ok := header["cellsize"]; ok {
		dx, dy = cs, cs
	}
	if dx <= 0 || dy <= 0 {
		return nil, terrain.InputError("ascii grid: cell size missing or invalid")
	}

	var xll, yll float64
	switch {
	case hasKey(header, "xllcorner") && hasKey(header, "yllcorner"):
		xll, yll = header["xllcorner"], header["yllcorner"]
	case hasKey(header, "xllcenter") && hasKey(header, "yllcenter"):
		xll, yll = header["xllcenter"]-dx/2, header["yllcenter"]-dy/2
	default:
		return nil, terrain.InputError("ascii grid: lower-left origin missing")
	}

	noData := DefaultNoData
	if v, ok := header["nodata_value"]; ok {
		noData = v
	}

	data := make([]float64, 0, width*height)
	if first != "" {
		v, _ := strconv.ParseFloat(first, 64)
		data = append(data, v)
	}
	for len(data) < width*height && sc.Scan() {
		v, err := strconv.ParseFloat(sc.Text(), 64)
		if err != nil {
			return nil, terrain.InputError("ascii grid: bad sample %q", sc.Text())
		}
		data = append(data, v)
	}
	if len(data) != width*height {
		return nil, terrain.InputError("ascii grid: got %d samples, want %d", len(data), width*height)
	}

	gt := GeoTransform{xll, dx, 0, yll + float64(height)*dy, 0, -dy}
	return wrap(width, height, data, gt, CRSWGS84, noData)
}

// maxASCIICells bounds grids read without an explicit cell limit.
const maxASCIICells = 1 << 30

// gridDims validates ncols/nrows as positive integers whose product fits
// the cell limit. Each dimension is checked before multiplying.
func gridDims(header map[string]float64, maxCells int) (width, height int, err error) {
	limit := maxCells
	if limit <= 0 {
		limit = maxASCIICells
	}
	cols, rows := header["ncols"], header["nrows"]
	for _, v := range []float64{cols, rows} {
		if v != math.Trunc(v) || v < 1 || v > float64(limit) {
			return 0, 0, terrain.InputError("ascii grid: ncols/nrows missing or invalid")
		}
	}
	width, height = int(cols), int(rows)
	if width > limit/height {
		return 0, 0, terrain.InputError("ascii grid: %dx%d exceeds %d cells", width, height, limit)
	}
	return width, height, nil
}

func hasKey(m map[string]float64, k string) bool {
	_, ok := m[k]
	return ok
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
