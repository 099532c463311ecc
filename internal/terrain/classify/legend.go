package classify

// LegendEntry maps a category value to a display label and RGBA colour.
type LegendEntry struct {
	Value int      `json:"value"`
	Label string   `json:"label"`
	RGBA  [4]uint8 `json:"rgba"`
}

// SteepnessLegend is the colour table for SteepnessGrid output.
func SteepnessLegend() []LegendEntry {
	return []LegendEntry{
		{int(SteepnessNoData), SteepnessNoData.String(), [4]uint8{0, 0, 0, 0}},
		{int(SteepnessFlat), SteepnessFlat.String(), [4]uint8{34, 139, 34, 255}},
		{int(SteepnessModerate), SteepnessModerate.String(), [4]uint8{255, 255, 0, 255}},
		{int(SteepnessSteep), SteepnessSteep.String(), [4]uint8{255, 165, 0, 255}},
		{int(SteepnessVerySteep), SteepnessVerySteep.String(), [4]uint8{255, 0, 0, 255}},
	}
}

// DirectionLegend is the colour table for DirectionGrid output.
func DirectionLegend() []LegendEntry {
	colors := [9][4]uint8{
		{128, 128, 128, 255},
		{255, 0, 0, 255},
		{255, 128, 0, 255},
		{255, 255, 0, 255},
		{128, 255, 0, 255},
		{0, 255, 0, 255},
		{0, 255, 255, 255},
		{0, 0, 255, 255},
		{128, 0, 255, 255},
	}
	out := make([]LegendEntry, 0, len(colors)+1)
	for i, c := range colors {
		d := Direction(i)
		out = append(out, LegendEntry{Value: i, Label: d.String(), RGBA: c})
	}
	return append(out, LegendEntry{int(DirNoData), DirNoData.String(), [4]uint8{0, 0, 0, 0}})
}
