package dem

import (
	"context"
	"math"

	"github.com/terrain-microservice/internal/terrain"
	"github.com/terrain-microservice/internal/terrain/raster"
)

// IDWParams configures inverse distance weighting. Radius is in metres; zero
// means unlimited. MaxPoints of zero uses every point in range.
type IDWParams struct {
	Power     float64
	Smoothing float64
	Radius    float64
	MaxPoints int
	MinPoints int
}

var (
	idwDefault     = IDWParams{Power: 2.0, Smoothing: 0, Radius: 100, MaxPoints: 12, MinPoints: 0}
	idwHighQuality = IDWParams{Power: 1.5, Smoothing: 1.0, Radius: 200, MaxPoints: 20, MinPoints: 4}
)

// ParamsFor returns the IDW settings of a method. ok is false for MethodLinear.
func ParamsFor(m terrain.InterpolationMethod) (IDWParams, bool) {
	switch m {
	case terrain.MethodIDW:
		return idwDefault, true
	case terrain.MethodHighQuality:
		return idwHighQuality, true
	}
	return IDWParams{}, false
}

// Interpolated is an interpolated grid plus the number of cells that needed
// nearest-valid filling.
type Interpolated struct {
	Grid        *raster.Grid
	FilledCells int
}

// Interpolate builds the grid described by spec from the contour vertices.
// Cells the method leaves empty take the value of the nearest filled cell.
func Interpolate(ctx context.Context, contours []Contour, spec GridSpec, method terrain.InterpolationMethod) (*Interpolated, error) {
	if err := validateContours(contours); err != nil {
		return nil, err
	}
	method, err := terrain.ParseInterpolationMethod(string(method))
	if err != nil {
		return nil, err
	}

	f := newFrame(spec)
	pts := samples(contours, f)
	data := make([]float64, spec.Width*spec.Height)
	for i := range data {
		data[i] = math.NaN()
	}

	if params, ok := ParamsFor(method); ok {
		err = rasterizeIDW(ctx, data, spec, f, pts, params)
	} else {
		err = rasterizeLinear(ctx, data, spec, f, pts)
	}
	if err != nil {
		return nil, err
	}

	filled, err := fillNearest(ctx, data, spec.Width, spec.Height)
	if err != nil {
		return nil, err
	}
	for i, v := range data {
		if math.IsNaN(v) {
			data[i] = raster.DefaultNoData
		}
	}

	g, err := raster.New(spec.Width, spec.Height, data, spec.Transform(), raster.CRSWGS84, raster.DefaultNoData)
	if err != nil {
		return nil, err
	}
	return &Interpolated{Grid: g, FilledCells: filled}, nil
}

// rasterizeLinear evaluates the planar interpolant of each Delaunay triangle at
// the cell centres it covers.
func rasterizeLinear(ctx context.Context, data []float64, spec GridSpec, f frame, pts []sample) error {
	tris := triangulate(pts)
	if len(tris) == 0 {
		return terrain.ComputationError("contour vertices are collinear or too few for triangulation")
	}

	const eps = 1e-9
	for _, t := range tris {
		if err := ctx.Err(); err != nil {
			return err
		}
		a, b, c := pts[t[0]], pts[t[1]], pts[t[2]]
		det := area2(a, b, c)

		c0 := max(0, int(math.Ceil(math.Min(a.x, math.Min(b.x, c.x))/f.cellX-0.5)))
		c1 := min(spec.Width-1, int(math.Floor(math.Max(a.x, math.Max(b.x, c.x))/f.cellX-0.5)))
		r0 := max(0, int(math.Ceil(math.Min(a.y, math.Min(b.y, c.y))/f.cellY-0.5)))
		r1 := min(spec.Height-1, int(math.Floor(math.Max(a.y, math.Max(b.y, c.y))/f.cellY-0.5)))

		for r := r0; r <= r1; r++ {
			for col := c0; col <= c1; col++ {
				x, y := f.cellCenter(col, r)
				p := sample{x: x, y: y}
				l1 := area2(p, b, c) / det
				l2 := area2(a, p, c) / det
				l3 := 1 - l1 - l2
				if l1 < -eps || l2 < -eps || l3 < -eps {
					continue
				}
				data[r*spec.Width+col] = l1*a.z + l2*b.z + l3*c.z
			}
		}
	}
	return nil
}

func rasterizeIDW(ctx context.Context, data []float64, spec GridSpec, f frame, pts []sample, p IDWParams) error {
	kp := make([]point, len(pts))
	for i, s := range pts {
		kp[i] = point{x: s.x, y: s.y, v: s.z}
	}
	tree := newTree(kp)

	for r := 0; r < spec.Height; r++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for c := 0; c < spec.Width; c++ {
			x, y := f.cellCenter(c, r)
			if v, ok := idwAt(tree, point{x: x, y: y}, p); ok {
				data[r*spec.Width+c] = v
			}
		}
	}
	return nil
}
