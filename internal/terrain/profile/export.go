package profile

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"math"
	"strconv"
)

var csvHeader = []string{"distance_m", "elevation_m", "grade_percent", "latitude", "longitude"}

// WriteCSV writes the samples as a tabular export. Distances, elevations and
// grades are rounded to centimetres/hundredths, coordinates to six decimals.
func WriteCSV(w io.Writer, points []Point) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, p := range points {
		rec := []string{
			formatRounded(p.Distance, 2),
			formatRounded(p.Elevation, 2),
			formatRounded(p.Grade, 2),
			formatRounded(p.Lat, 6),
			formatRounded(p.Lng, 6),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes points and statistics as one JSON document.
func WriteJSON(w io.Writer, p *Profile) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}

func formatRounded(v float64, places int) string {
	scale := math.Pow(10, float64(places))
	return strconv.FormatFloat(math.Round(v*scale)/scale, 'f', -1, 64)
}
