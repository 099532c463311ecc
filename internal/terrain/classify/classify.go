// Package classify maps slope and aspect grids to categorical classes and
// summarises them as percentages, scalar statistics and circular means.
package classify

import (
	"math"

	"github.com/terrain-microservice/internal/terrain"
	"github.com/terrain-microservice/internal/terrain/raster"
)

// Direction is the compass octant an aspect value falls into.
type Direction uint8

const (
	DirFlat Direction = iota
	DirN
	DirNE
	DirE
	DirSE
	DirS
	DirSW
	DirW
	DirNW
)

// DirNoData marks cells of a direction grid whose aspect is no-data.
const DirNoData Direction = 255

// Octants lists the eight compass directions in tie-break order.
var Octants = [8]Direction{DirN, DirNE, DirE, DirSE, DirS, DirSW, DirW, DirNW}

var directionNames = [...]string{"flat", "N", "NE", "E", "SE", "S", "SW", "W", "NW"}

func (d Direction) String() string {
	if d == DirNoData {
		return "nodata"
	}
	if int(d) < len(directionNames) {
		return directionNames[d]
	}
	return "unknown"
}

// MarshalText renders the direction name for JSON keys and values.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText parses a direction name produced by MarshalText.
func (d *Direction) UnmarshalText(b []byte) error {
	if string(b) == DirNoData.String() {
		*d = DirNoData
		return nil
	}
	for i, name := range directionNames {
		if name == string(b) {
			*d = Direction(i)
			return nil
		}
	}
	return terrain.InputError("unknown direction %q", string(b))
}

// NorthFacing reports N, NE and NW.
func (d Direction) NorthFacing() bool {
	return d == DirN || d == DirNE || d == DirNW
}

// SouthFacing reports S, SE and SW.
func (d Direction) SouthFacing() bool {
	return d == DirS || d == DirSE || d == DirSW
}

// ClassifyDirection bins an aspect in degrees into an octant. Negative and NaN
// aspects (flat sentinel, no-data) are Flat.
func ClassifyDirection(aspect float64) Direction {
	if math.IsNaN(aspect) || aspect < 0 {
		return DirFlat
	}
	a := math.Mod(aspect, 360)
	if a >= 337.5 || a < 22.5 {
		return DirN
	}
	// NE starts at 22.5, each following octant is 45 degrees wide
	return Direction(int((a-22.5)/45) + int(DirNE))
}

// Steepness is the slope class. Zero marks no-data.
type Steepness uint8

const (
	SteepnessNoData Steepness = iota
	SteepnessFlat
	SteepnessModerate
	SteepnessSteep
	SteepnessVerySteep
)

var steepnessNames = [...]string{"no_data", "flat", "moderate", "steep", "very_steep"}

func (s Steepness) String() string {
	if int(s) < len(steepnessNames) {
		return steepnessNames[s]
	}
	return "unknown"
}

// ClassifySteepness places slope in [0, flat), [flat, moderate), [moderate, steep) or [steep, inf).
func ClassifySteepness(slope float64, th terrain.SteepnessThresholds) Steepness {
	switch {
	case math.IsNaN(slope):
		return SteepnessNoData
	case slope < th.Flat:
		return SteepnessFlat
	case slope < th.Moderate:
		return SteepnessModerate
	case slope < th.Steep:
		return SteepnessSteep
	default:
		return SteepnessVerySteep
	}
}

// DirectionGrid classifies every aspect cell. No-data aspect cells become
// DirNoData, the grid's no-data value, so Flat cells stay valid data.
func DirectionGrid(aspect *raster.Grid) (*raster.Grid, error) {
	src := aspect.Values()
	out := make([]float64, len(src))
	for i, v := range src {
		if aspect.IsNoData(v) {
			out[i] = float64(DirNoData)
			continue
		}
		out[i] = float64(ClassifyDirection(v))
	}
	return aspect.Derive(out, float64(DirNoData))
}

// SteepnessGrid classifies every slope cell. No-data cells keep class 0.
func SteepnessGrid(slope *raster.Grid, th terrain.SteepnessThresholds) (*raster.Grid, error) {
	if err := th.Validate(); err != nil {
		return nil, err
	}
	src := slope.Values()
	out := make([]float64, len(src))
	for i, v := range src {
		if slope.IsNoData(v) {
			continue
		}
		out[i] = float64(ClassifySteepness(v, th))
	}
	return slope.Derive(out, float64(SteepnessNoData))
}

// UnbuildableMask marks cells whose slope exceeds maxSlope with 1.
func UnbuildableMask(slope *raster.Grid, maxSlope float64) (*raster.Grid, error) {
	src := slope.Values()
	out := make([]float64, len(src))
	for i, v := range src {
		if !slope.IsNoData(v) && v > maxSlope {
			out[i] = 1
		}
	}
	return slope.Derive(out, 0)
}

// FacingMasks returns 0/1 masks of north-facing (N, NE, NW) and south-facing
// (S, SE, SW) cells.
func FacingMasks(aspect *raster.Grid) (north, south *raster.Grid, err error) {
	src := aspect.Values()
	n := make([]float64, len(src))
	s := make([]float64, len(src))
	for i, v := range src {
		if aspect.IsNoData(v) {
			continue
		}
		d := ClassifyDirection(v)
		if d.NorthFacing() {
			n[i] = 1
		}
		if d.SouthFacing() {
			s[i] = 1
		}
	}
	if north, err = aspect.Derive(n, 0); err != nil {
		return nil, nil, err
	}
	if south, err = aspect.Derive(s, 0); err != nil {
		return nil, nil, err
	}
	return north, south, nil
}
