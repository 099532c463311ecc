package profile

import (
	"context"
	"math"

	"github.com/paulmach/orb"

	"github.com/terrain-microservice/internal/terrain"
	"github.com/terrain-microservice/internal/terrain/raster"
)

// Segment is a stretch between consecutive samples whose grade exceeds the threshold.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Grade float64 `json:"grade"`
}

// Stats aggregates a graded profile.
type Stats struct {
	TotalDistance          float64   `json:"total_distance"`
	ElevationGain          float64   `json:"elevation_gain"`
	ElevationLoss          float64   `json:"elevation_loss"`
	NetElevationChange     float64   `json:"net_elevation_change"`
	StartElevation         float64   `json:"start_elevation"`
	EndElevation           float64   `json:"end_elevation"`
	MinElevation           float64   `json:"min_elevation"`
	MaxElevation           float64   `json:"max_elevation"`
	MaxGradeUphill         float64   `json:"max_grade_uphill"`
	MaxGradeDownhill       float64   `json:"max_grade_downhill"`
	ExcessiveGradeDistance float64   `json:"excessive_grade_distance"`
	ExcessiveGradePercent  float64   `json:"excessive_grade_percent"`
	ExcessiveSegments      []Segment `json:"excessive_segments"`
}

// Profile is the full result of a profile run.
type Profile struct {
	Points  []Point   `json:"points"`
	Dropped []Dropped `json:"dropped,omitempty"`
	Stats   Stats     `json:"statistics"`
}

// ComputeGrades sets each point's grade relative to its predecessor. The
// first point always has grade 0.
func ComputeGrades(points []Point) {
	for i := range points {
		if i == 0 {
			points[i].Grade = 0
			continue
		}
		run := points[i].Distance - points[i-1].Distance
		if run <= 0 {
			points[i].Grade = 0
			continue
		}
		points[i].Grade = 100 * (points[i].Elevation - points[i-1].Elevation) / run
	}
}

// ComputeStats aggregates graded points. maxGrade is compared against |grade|.
func ComputeStats(points []Point, maxGrade float64) (Stats, error) {
	if len(points) < 2 {
		return Stats{}, terrain.ComputationError("insufficient samples: %d resolved, need at least 2", len(points))
	}

	first, last := points[0], points[len(points)-1]
	st := Stats{
		// dropped trailing samples do not extend the profile
		TotalDistance:      last.Distance,
		NetElevationChange: last.Elevation - first.Elevation,
		StartElevation:     first.Elevation,
		EndElevation:       last.Elevation,
		MinElevation:       first.Elevation,
		MaxElevation:       first.Elevation,
		ExcessiveSegments:  []Segment{},
	}

	var minGrade float64
	for i := 1; i < len(points); i++ {
		prev, cur := points[i-1], points[i]
		dz := cur.Elevation - prev.Elevation
		if dz > 0 {
			st.ElevationGain += dz
		} else {
			st.ElevationLoss -= dz
		}
		st.MinElevation = math.Min(st.MinElevation, cur.Elevation)
		st.MaxElevation = math.Max(st.MaxElevation, cur.Elevation)
		st.MaxGradeUphill = math.Max(st.MaxGradeUphill, cur.Grade)
		minGrade = math.Min(minGrade, cur.Grade)

		if math.Abs(cur.Grade) > maxGrade {
			st.ExcessiveGradeDistance += cur.Distance - prev.Distance
			st.ExcessiveSegments = append(st.ExcessiveSegments, Segment{
				Start: prev.Distance,
				End:   cur.Distance,
				Grade: math.Round(cur.Grade*10) / 10,
			})
		}
	}
	st.MaxGradeDownhill = math.Abs(minGrade)
	if st.TotalDistance > 0 {
		st.ExcessiveGradePercent = st.ExcessiveGradeDistance / st.TotalDistance * 100
	}
	return st, nil
}

// Analyze samples, grades and aggregates a profile using cfg.SampleInterval,
// cfg.MaxProfileSamples and cfg.MaxGradeThreshold.
func Analyze(ctx context.Context, dem *raster.Grid, line orb.LineString, cfg terrain.Config) (*Profile, error) {
	points, dropped, err := Sample(ctx, dem, line, cfg.SampleInterval, cfg.MaxProfileSamples)
	if err != nil {
		return nil, err
	}
	ComputeGrades(points)
	st, err := ComputeStats(points, cfg.MaxGradeThreshold)
	if err != nil {
		return nil, err
	}
	return &Profile{Points: points, Dropped: dropped, Stats: st}, nil
}
