package dem

import (
	"context"
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/terrain-microservice/internal/terrain"
)

// idwAt computes the weighted mean of the neighbours of q. Weights are
// 1/(d²+s²)^(power/2); a zero effective distance returns the sample itself.
func idwAt(t *kdtree.Tree, q point, p IDWParams) (float64, bool) {
	var near []kdtree.ComparableDist
	switch {
	case p.MaxPoints > 0:
		near = nearestN(t, q, p.MaxPoints)
		if p.Radius > 0 {
			r2 := p.Radius * p.Radius
			kept := near[:0]
			for _, cd := range near {
				if cd.Dist <= r2 {
					kept = append(kept, cd)
				}
			}
			near = kept
		}
	case p.Radius > 0:
		near = withinRadius(t, q, p.Radius)
	default:
		near = nearestN(t, q, t.Count)
	}
	if len(near) == 0 || len(near) < p.MinPoints {
		return 0, false
	}

	s2 := p.Smoothing * p.Smoothing
	var num, den float64
	for _, cd := range near {
		v := cd.Comparable.(point).v
		d2 := cd.Dist + s2
		if d2 == 0 {
			return v, true
		}
		w := 1 / math.Pow(d2, p.Power/2)
		num += w * v
		den += w
	}
	return num / den, true
}

// fillNearest replaces NaN cells with the value of the closest non-NaN cell
// measured in pixel units. Lookups only read the original valid cells.
func fillNearest(ctx context.Context, data []float64, w, h int) (int, error) {
	var valid []point
	var missing []int
	for i, v := range data {
		if math.IsNaN(v) {
			missing = append(missing, i)
			continue
		}
		valid = append(valid, point{x: float64(i % w), y: float64(i / w), v: v})
	}
	if len(valid) == 0 {
		return 0, terrain.ComputationError("interpolation produced no valid cells")
	}
	if len(missing) == 0 {
		return 0, nil
	}

	tree := newTree(valid)
	for n, i := range missing {
		if n%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		c, _ := tree.Nearest(point{x: float64(i % w), y: float64(i / w)})
		data[i] = c.(point).v
	}
	return len(missing), nil
}
