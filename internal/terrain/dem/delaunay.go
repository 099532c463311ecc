package dem

import (
	"math"

	"github.com/fogleman/delaunay"
)

// triangulate builds a Delaunay triangulation of pts and returns vertex
// index triples into pts. Fewer than three points or an all-collinear set
// yield no triangles.
func triangulate(pts []sample) [][3]int {
	if len(pts) < 3 {
		return nil
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	verts := make([]delaunay.Point, len(pts))
	for i, p := range pts {
		verts[i] = delaunay.Point{X: p.x, Y: p.y}
		minX, maxX = math.Min(minX, p.x), math.Max(maxX, p.x)
		minY, maxY = math.Min(minY, p.y), math.Max(maxY, p.y)
	}
	delta := math.Max(maxX-minX, maxY-minY)
	if delta == 0 {
		return nil
	}

	tri, err := delaunay.Triangulate(verts)
	if err != nil || tri == nil {
		return nil
	}

	out := make([][3]int, 0, len(tri.Triangles)/3)
	for i := 0; i+2 < len(tri.Triangles); i += 3 {
		a, b, c := tri.Triangles[i], tri.Triangles[i+1], tri.Triangles[i+2]
		// slivers from near-collinear input
		if math.Abs(area2(pts[a], pts[b], pts[c])) < 1e-12*delta*delta {
			continue
		}
		out = append(out, [3]int{a, b, c})
	}
	return out
}

// area2 is twice the signed area of triangle abc.
func area2(a, b, c sample) float64 {
	return (b.x-a.x)*(c.y-a.y) - (c.x-a.x)*(b.y-a.y)
}
