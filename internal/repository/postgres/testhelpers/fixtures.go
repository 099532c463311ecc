package testhelpers

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// InsertContour вставляет изолинию проекта и возвращает ее id
func InsertContour(ctx context.Context, db *sql.DB, projectID string, elevation float64, line orb.LineString) (int64, error) {
	raw, err := geojson.NewGeometry(line).MarshalJSON()
	if err != nil {
		return 0, fmt.Errorf("marshal contour: %w", err)
	}

	var id int64
	err = db.QueryRowContext(ctx, `
		INSERT INTO contours (project_id, elevation, geom)
		VALUES ($1, $2, ST_SetSRID(ST_GeomFromGeoJSON($3), 4326))
		RETURNING id`,
		projectID, elevation, string(raw)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert contour: %w", err)
	}
	return id, nil
}

// ContourFixture - изолиния для вставки в тестовую базу
type ContourFixture struct {
	Elevation float64
	Line      orb.LineString
}

// RampContours - изолинии наклонной плоскости: высота растет на step метров
// каждые spacing градусов долготы, линии идут с юга на север
func RampContours(minLng, minLat, maxLat, spacing, step float64, count int) []ContourFixture {
	out := make([]ContourFixture, 0, count)
	for i := 0; i < count; i++ {
		lng := minLng + float64(i)*spacing
		out = append(out, ContourFixture{
			Elevation: float64(i) * step,
			Line:      orb.LineString{{lng, minLat}, {lng, (minLat + maxLat) / 2}, {lng, maxLat}},
		})
	}
	return out
}
