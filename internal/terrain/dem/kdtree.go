package dem

import (
	"gonum.org/v1/gonum/spatial/kdtree"
)

// point is a 2D position carrying a payload value, stored in a k-d tree.
type point struct {
	x, y float64
	v    float64
}

var _ kdtree.Comparable = point{}

func (p point) coord(d kdtree.Dim) float64 {
	if d == 0 {
		return p.x
	}
	return p.y
}

// Compare returns the signed distance of p from the plane through c perpendicular to d.
func (p point) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return p.coord(d) - c.(point).coord(d)
}

func (p point) Dims() int { return 2 }

// Distance is the squared Euclidean distance.
func (p point) Distance(c kdtree.Comparable) float64 {
	q := c.(point)
	dx, dy := p.x-q.x, p.y-q.y
	return dx*dx + dy*dy
}

type points []point

var _ kdtree.Interface = points(nil)

func (p points) Index(i int) kdtree.Comparable         { return p[i] }
func (p points) Len() int                              { return len(p) }
func (p points) Pivot(d kdtree.Dim) int                { return plane{points: p, dim: d}.Pivot() }
func (p points) Slice(start, end int) kdtree.Interface { return p[start:end] }

// plane sorts points along one dimension for median selection.
type plane struct {
	points
	dim kdtree.Dim
}

func (p plane) Less(i, j int) bool {
	return p.points[i].coord(p.dim) < p.points[j].coord(p.dim)
}
func (p plane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	return plane{points: p.points[start:end], dim: p.dim}
}
func (p plane) Swap(i, j int) { p.points[i], p.points[j] = p.points[j], p.points[i] }

func newTree(pts []point) *kdtree.Tree {
	return kdtree.New(points(pts), false)
}

// nearestN returns up to n points nearest to q with their squared distances.
func nearestN(t *kdtree.Tree, q point, n int) []kdtree.ComparableDist {
	keeper := kdtree.NewNKeeper(n)
	t.NearestSet(keeper, q)
	out := make([]kdtree.ComparableDist, 0, len(keeper.Heap))
	for _, cd := range keeper.Heap {
		// unfilled slots keep the keeper's nil sentinel
		if cd.Comparable == nil {
			continue
		}
		out = append(out, cd)
	}
	return out
}

// withinRadius returns every point within r of q.
func withinRadius(t *kdtree.Tree, q point, r float64) []kdtree.ComparableDist {
	keeper := kdtree.NewDistKeeper(r * r)
	t.NearestSet(keeper, q)
	out := make([]kdtree.ComparableDist, 0, len(keeper.Heap))
	for _, cd := range keeper.Heap {
		if cd.Comparable == nil {
			continue
		}
		out = append(out, cd)
	}
	return out
}
