// Package vectorize converts categorical raster masks into polygons, one per
// 4-connected region of equal non-zero value.
package vectorize

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/terrain-microservice/internal/terrain/raster"
)

// Region is one connected area of a mask.
type Region struct {
	Value   int
	Cells   int
	Polygon orb.Polygon
}

type vertex struct{ x, y int }

type edge struct {
	from, to vertex
	used     bool
}

var neighbours4 = [4][2]int{{0, -1}, {1, 0}, {0, 1}, {-1, 0}}

// Polygonize labels 4-connected components of non-zero cells and traces their
// boundaries. Zero and no-data cells are background. Outer rings are
// counter-clockwise and holes clockwise in longitude/latitude space. Regions
// are ordered by their first cell in row-major order.
func Polygonize(mask *raster.Grid) []Region {
	w, h := mask.Width(), mask.Height()
	values := make([]int, w*h)
	for r := 0; r < h; r++ {
		for c := 0; c < w; c++ {
			v := mask.At(c, r)
			if mask.IsNoData(v) {
				continue
			}
			values[r*w+c] = int(math.Round(v))
		}
	}

	labels := make([]int, w*h)
	var regions []Region
	queue := make([]int, 0, 64)
	next := 0
	for start, v := range values {
		if v == 0 || labels[start] != 0 {
			continue
		}
		next++
		labels[start] = next
		queue = append(queue[:0], start)
		cells := []int{}
		for len(queue) > 0 {
			i := queue[0]
			queue = queue[1:]
			cells = append(cells, i)
			c, r := i%w, i/w
			for _, d := range neighbours4 {
				nc, nr := c+d[0], r+d[1]
				if nc < 0 || nr < 0 || nc >= w || nr >= h {
					continue
				}
				j := nr*w + nc
				if labels[j] == 0 && values[j] == v {
					labels[j] = next
					queue = append(queue, j)
				}
			}
		}
		regions = append(regions, Region{
			Value:   v,
			Cells:   len(cells),
			Polygon: trace(cells, labels, next, w, h, mask.Transform()),
		})
	}
	return regions
}

// trace builds the rings of one component. Vertex (x, y) is the top-left
// corner of cell (x, y). Edges run with the component on their right in
// pixel space (y down), which is on their left once y points north.
func trace(cells, labels []int, label, w, h int, gt raster.GeoTransform) orb.Polygon {
	inside := func(c, r int) bool {
		return c >= 0 && r >= 0 && c < w && r < h && labels[r*w+c] == label
	}

	var edges []*edge
	out := make(map[vertex][]*edge)
	add := func(a, b vertex) {
		e := &edge{from: a, to: b}
		edges = append(edges, e)
		out[a] = append(out[a], e)
	}
	for _, i := range cells {
		c, r := i%w, i/w
		if !inside(c, r-1) {
			add(vertex{c, r}, vertex{c + 1, r})
		}
		if !inside(c+1, r) {
			add(vertex{c + 1, r}, vertex{c + 1, r + 1})
		}
		if !inside(c, r+1) {
			add(vertex{c + 1, r + 1}, vertex{c, r + 1})
		}
		if !inside(c-1, r) {
			add(vertex{c, r + 1}, vertex{c, r})
		}
	}

	var outer orb.Ring
	var holes []orb.Ring
	for _, e := range edges {
		if e.used {
			continue
		}
		ring := follow(e, out)
		geoRing := toGeo(ring, gt)
		if signedArea(ring) > 0 {
			outer = geoRing
		} else {
			holes = append(holes, geoRing)
		}
	}
	return append(orb.Polygon{outer}, holes...)
}

// follow walks unused edges from start until it returns to start's origin.
// Where two edges leave a vertex (diagonal contact) it takes the right-hand
// turn, keeping diagonally touching cells in separate rings.
func follow(start *edge, out map[vertex][]*edge) []vertex {
	ring := []vertex{start.from}
	cur := start
	cur.used = true
	for cur.to != start.from {
		ring = append(ring, cur.to)
		cur = pick(cur, out[cur.to])
		cur.used = true
	}
	ring = append(ring, start.from)
	return simplify(ring)
}

func pick(cur *edge, candidates []*edge) *edge {
	dx, dy := cur.to.x-cur.from.x, cur.to.y-cur.from.y
	// right of heading (dx, dy) with y pointing down
	rx, ry := -dy, dx
	var fallback *edge
	for _, e := range candidates {
		if e.used {
			continue
		}
		if e.to.x-e.from.x == rx && e.to.y-e.from.y == ry {
			return e
		}
		if fallback == nil {
			fallback = e
		}
	}
	return fallback
}

// simplify drops vertices in the middle of straight runs of a closed ring.
func simplify(ring []vertex) []vertex {
	pts := ring[:len(ring)-1]
	n := len(pts)
	var out []vertex
	for i := 0; i < n; i++ {
		prev, p, next := pts[(i+n-1)%n], pts[i], pts[(i+1)%n]
		if (p.x-prev.x)*(next.y-p.y)-(p.y-prev.y)*(next.x-p.x) == 0 {
			continue
		}
		out = append(out, p)
	}
	return append(out, out[0])
}

// signedArea is positive for rings that are clockwise on screen (y down).
func signedArea(ring []vertex) int {
	var s int
	for i := 0; i+1 < len(ring); i++ {
		s += ring[i].x*ring[i+1].y - ring[i+1].x*ring[i].y
	}
	return s
}

func toGeo(ring []vertex, gt raster.GeoTransform) orb.Ring {
	out := make(orb.Ring, len(ring))
	for i, v := range ring {
		lng, lat := gt.PixelToGeo(float64(v.x), float64(v.y))
		out[i] = orb.Point{lng, lat}
	}
	return out
}
