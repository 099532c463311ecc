package dem

import (
	"context"
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/terrain-microservice/internal/terrain"
	"github.com/terrain-microservice/internal/terrain/raster"
)

// samplesPerContour bounds how many vertices of one contour are checked.
const samplesPerContour = 20

// Validation reports how well a grid reproduces its input contours.
type Validation struct {
	RMSE         float64 `json:"rmse"`
	MaxDeviation float64 `json:"max_deviation"`
	MatchPercent float64 `json:"contour_match_percentage"`
	SampleCount  int     `json:"sample_count"`
}

// Validate samples every Nth vertex of each contour, N = max(1, len/20), at
// the containing cell and compares against the contour elevation. Vertices
// outside the grid or on no-data cells are skipped.
func Validate(g *raster.Grid, contours []Contour, tolerance float64) (Validation, error) {
	var deviations []float64
	for _, c := range contours {
		step := max(1, len(c.Line)/samplesPerContour)
		for i := 0; i < len(c.Line); i += step {
			p := c.Line[i]
			col, row, ok := g.Cell(p.Lon(), p.Lat())
			if !ok {
				continue
			}
			v := g.At(col, row)
			if g.IsNoData(v) {
				continue
			}
			deviations = append(deviations, math.Abs(v-c.Elevation))
		}
	}
	if len(deviations) == 0 {
		return Validation{}, terrain.ComputationError("no valid elevation samples for validation")
	}

	squares := make([]float64, len(deviations))
	within := 0
	for i, d := range deviations {
		squares[i] = d * d
		if d <= tolerance {
			within++
		}
	}
	return Validation{
		RMSE:         math.Sqrt(stat.Mean(squares, nil)),
		MaxDeviation: floats.Max(deviations),
		MatchPercent: float64(within) / float64(len(deviations)) * 100,
		SampleCount:  len(deviations),
	}, nil
}

// CheckQuality fails with *terrain.QualityGateError when RMSE exceeds threshold.
func CheckQuality(v Validation, threshold float64) error {
	if v.RMSE > threshold {
		return &terrain.QualityGateError{RMSE: v.RMSE, Threshold: threshold}
	}
	return nil
}

// Result is a generated, validated grid.
type Result struct {
	Grid        *raster.Grid
	Validation  Validation
	Stats       Stats
	FilledCells int
}

// Stage names reported to a progress callback.
const (
	StageInterpolated = "interpolated"
	StageValidated    = "validated"
)

// Generate interpolates, validates and gates a grid. On a quality gate failure
// the result is returned together with the error so callers can report the
// metrics.
func Generate(ctx context.Context, contours []Contour, spec GridSpec, cfg terrain.Config, progress func(stage string)) (*Result, error) {
	if progress == nil {
		progress = func(string) {}
	}

	interp, err := Interpolate(ctx, contours, spec, cfg.Interpolation)
	if err != nil {
		return nil, err
	}
	progress(StageInterpolated)

	v, err := Validate(interp.Grid, contours, cfg.ValidationTolerance)
	if err != nil {
		return nil, err
	}
	progress(StageValidated)

	st, err := ComputeStats(interp.Grid)
	if err != nil {
		return nil, err
	}

	res := &Result{Grid: interp.Grid, Validation: v, Stats: st, FilledCells: interp.FilledCells}
	if err := CheckQuality(v, cfg.RMSEThreshold); err != nil {
		return res, err
	}
	return res, nil
}

// IsQualityFailure reports whether err came from the RMSE gate.
func IsQualityFailure(err error) bool {
	return errors.Is(err, terrain.ErrQualityGate)
}
