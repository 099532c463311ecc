package classify

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/terrain-microservice/internal/terrain"
	"github.com/terrain-microservice/internal/terrain/raster"
)

// SlopeStats summarises a slope grid. Percentages are relative to the full
// grid footprint, no-data cells included.
type SlopeStats struct {
	Mean               float64 `json:"mean_slope"`
	Median             float64 `json:"median_slope"`
	Max                float64 `json:"max_slope"`
	FlatPercent        float64 `json:"flat_percent"`
	ModeratePercent    float64 `json:"moderate_percent"`
	SteepPercent       float64 `json:"steep_percent"`
	VerySteepPercent   float64 `json:"very_steep_percent"`
	UnbuildablePercent float64 `json:"unbuildable_percent"`
	ValidCells         int     `json:"valid_cells"`
	TotalCells         int     `json:"total_cells"`
}

// ComputeSlopeStats classifies and summarises slope. An all-no-data grid is a
// computation error.
func ComputeSlopeStats(slope *raster.Grid, cfg terrain.Config) (SlopeStats, error) {
	if err := cfg.Steepness.Validate(); err != nil {
		return SlopeStats{}, err
	}
	valid := slope.ValidValues()
	if len(valid) == 0 {
		return SlopeStats{}, terrain.ComputationError("slope grid has no valid cells")
	}

	var counts [5]int
	unbuildable := 0
	for _, v := range valid {
		counts[ClassifySteepness(v, cfg.Steepness)]++
		if v > cfg.MaxBuildableSlope {
			unbuildable++
		}
	}

	total := slope.Len()
	return SlopeStats{
		Mean:               stat.Mean(valid, nil),
		Median:             median(valid),
		Max:                floats.Max(valid),
		FlatPercent:        percent(counts[SteepnessFlat], total),
		ModeratePercent:    percent(counts[SteepnessModerate], total),
		SteepPercent:       percent(counts[SteepnessSteep], total),
		VerySteepPercent:   percent(counts[SteepnessVerySteep], total),
		UnbuildablePercent: percent(unbuildable, total),
		ValidCells:         len(valid),
		TotalCells:         total,
	}, nil
}

// AspectStats summarises an aspect grid.
type AspectStats struct {
	FlatPercent        float64               `json:"flat_percent"`
	NoDataPercent      float64               `json:"no_data_percent"`
	Directions         map[Direction]float64 `json:"direction_percent"`
	NorthFacingPercent float64               `json:"north_facing_percent"`
	SouthFacingPercent float64               `json:"south_facing_percent"`
	Dominant           Direction             `json:"dominant_direction"`
	// CircularMean is nil when no cell has a defined aspect.
	CircularMean *float64 `json:"circular_mean_aspect"`
	ValidCells   int      `json:"valid_cells"`
	TotalCells   int      `json:"total_cells"`
}

// ComputeAspectStats counts octants and computes the circular mean over cells
// with a defined aspect.
func ComputeAspectStats(aspect *raster.Grid) AspectStats {
	var counts [9]int
	noData := 0
	angles := make([]float64, 0, aspect.Len())
	for _, v := range aspect.Values() {
		if aspect.IsNoData(v) {
			noData++
			continue
		}
		d := ClassifyDirection(v)
		counts[d]++
		if d != DirFlat {
			angles = append(angles, v)
		}
	}

	total := aspect.Len()
	st := AspectStats{
		FlatPercent:   percent(counts[DirFlat], total),
		NoDataPercent: percent(noData, total),
		Directions:    make(map[Direction]float64, len(Octants)),
		Dominant:      DominantDirection(counts),
		ValidCells:    len(angles),
		TotalCells:    total,
	}
	for _, d := range Octants {
		st.Directions[d] = percent(counts[d], total)
		if d.NorthFacing() {
			st.NorthFacingPercent += st.Directions[d]
		}
		if d.SouthFacing() {
			st.SouthFacingPercent += st.Directions[d]
		}
	}
	if m, ok := CircularMean(angles); ok {
		st.CircularMean = &m
	}
	return st
}

// DominantDirection returns the octant with the most cells, preferring the
// earliest in Octants on ties. Flat is returned when every octant is empty.
func DominantDirection(counts [9]int) Direction {
	best, bestCount := DirFlat, 0
	for _, d := range Octants {
		if counts[d] > bestCount {
			best, bestCount = d, counts[d]
		}
	}
	return best
}

// CircularMean averages compass angles in degrees through their unit vectors.
// ok is false for an empty input.
func CircularMean(degrees []float64) (mean float64, ok bool) {
	if len(degrees) == 0 {
		return 0, false
	}
	rad := make([]float64, len(degrees))
	for i, d := range degrees {
		rad[i] = d * math.Pi / 180
	}
	mean = stat.CircularMean(rad, nil) * 180 / math.Pi
	mean = math.Mod(mean+360, 360)
	// -1e-15 wraps to just under 360
	if 360-mean < 1e-9 {
		mean = 0
	}
	return mean, true
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func percent(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}
