package postgres

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/terrain-microservice/internal/domain/repository"
	"github.com/terrain-microservice/internal/pkg/errors"
	"github.com/terrain-microservice/internal/terrain/dem"
)

type contourRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewContourRepository(db *DB) repository.ContourRepository {
	return &contourRepository{
		db:     db.DB,
		logger: db.logger,
	}
}

type contourRow struct {
	ID        int64   `db:"id"`
	Elevation float64 `db:"elevation"`
	GeoJSON   string  `db:"geojson"`
}

func (r *contourRepository) GetByProject(ctx context.Context, projectID string) ([]dem.Contour, error) {
	query := `
		SELECT id, elevation, ST_AsGeoJSON(ST_Transform(geom, 4326)) AS geojson
		FROM contours
		WHERE project_id = $1
		ORDER BY elevation, id
	`

	var rows []contourRow
	if err := r.db.SelectContext(ctx, &rows, query, projectID); err != nil {
		r.logger.Error("Failed to get contours", zap.String("project_id", projectID), zap.Error(err))
		return nil, errors.ErrDatabaseError
	}
	return r.decode(rows)
}

func (r *contourRepository) GetByIDs(ctx context.Context, ids []int64) ([]dem.Contour, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, elevation, ST_AsGeoJSON(ST_Transform(geom, 4326)) AS geojson
		FROM contours
		WHERE id = ANY($1)
		ORDER BY elevation, id
	`

	var rows []contourRow
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		r.logger.Error("Failed to get contours by ids", zap.Int("count", len(ids)), zap.Error(err))
		return nil, errors.ErrDatabaseError
	}
	return r.decode(rows)
}

func (r *contourRepository) decode(rows []contourRow) ([]dem.Contour, error) {
	contours := make([]dem.Contour, 0, len(rows))
	for _, row := range rows {
		lines, err := decodeContourGeometry(row.GeoJSON)
		if err != nil {
			r.logger.Warn("Skipping contour with unsupported geometry",
				zap.Int64("contour_id", row.ID),
				zap.Error(err))
			continue
		}
		for i, line := range lines {
			id := strconv.FormatInt(row.ID, 10)
			if len(lines) > 1 {
				id = fmt.Sprintf("%s-%d", id, i)
			}
			contours = append(contours, dem.Contour{ID: id, Elevation: row.Elevation, Line: line})
		}
	}
	return contours, nil
}

// decodeContourGeometry разворачивает LineString / MultiLineString в список линий
func decodeContourGeometry(raw string) ([]orb.LineString, error) {
	g, err := geojson.UnmarshalGeometry([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}

	switch geom := g.Geometry().(type) {
	case orb.LineString:
		return []orb.LineString{geom}, nil
	case orb.MultiLineString:
		return []orb.LineString(geom), nil
	case orb.Ring:
		return []orb.LineString{orb.LineString(geom)}, nil
	default:
		return nil, fmt.Errorf("unsupported geometry type %s", g.Geometry().GeoJSONType())
	}
}
