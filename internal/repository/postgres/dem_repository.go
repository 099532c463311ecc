package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/terrain-microservice/internal/domain"
	"github.com/terrain-microservice/internal/domain/repository"
	"github.com/terrain-microservice/internal/pkg/errors"
)

type demRepository struct {
	db     *DB
	logger *zap.Logger
}

func NewDEMRepository(db *DB) repository.DEMRepository {
	return &demRepository{
		db:     db,
		logger: db.logger,
	}
}

const demColumns = `
	id, project_id, source, min_lng, min_lat, max_lng, max_lat, width, height,
	resolution, interpolation_method, min_elevation, max_elevation, avg_elevation,
	rmse, max_deviation, match_percent, filled_cells, created_at`

func (r *demRepository) Create(ctx context.Context, dem *domain.DEM, blob []byte) error {
	err := r.db.inTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO dems (`+demColumns+`, footprint)
			VALUES (:id, :project_id, :source, :min_lng, :min_lat, :max_lng, :max_lat, :width, :height,
				:resolution, :interpolation_method, :min_elevation, :max_elevation, :avg_elevation,
				:rmse, :max_deviation, :match_percent, :filled_cells, :created_at,
				ST_MakeEnvelope(:min_lng, :min_lat, :max_lng, :max_lat, 4326))
		`, dem)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO dem_rasters (dem_id, data, byte_size) VALUES ($1, $2, $3)`,
			dem.ID, blob, len(blob))
		return err
	})
	if err != nil {
		r.logger.Error("Failed to create DEM",
			zap.String("dem_id", dem.ID.String()),
			zap.Int("blob_bytes", len(blob)),
			zap.Error(err))
		return errors.ErrDatabaseError
	}

	r.logger.Debug("DEM stored",
		zap.String("dem_id", dem.ID.String()),
		zap.Int("width", dem.Width),
		zap.Int("height", dem.Height))
	return nil
}

func (r *demRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.DEM, error) {
	var dem domain.DEM
	err := r.db.GetContext(ctx, &dem, `SELECT `+demColumns+` FROM dems WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get DEM", zap.String("dem_id", id.String()), zap.Error(err))
		return nil, errors.ErrDatabaseError
	}
	return &dem, nil
}

func (r *demRepository) GetRaster(ctx context.Context, id uuid.UUID) ([]byte, error) {
	var blob []byte
	err := r.db.QueryRowContext(ctx, `SELECT data FROM dem_rasters WHERE dem_id = $1`, id).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get DEM raster", zap.String("dem_id", id.String()), zap.Error(err))
		return nil, errors.ErrDatabaseError
	}
	return blob, nil
}

func (r *demRepository) ListByProject(ctx context.Context, projectID string) ([]*domain.DEM, error) {
	var dems []*domain.DEM
	err := r.db.SelectContext(ctx, &dems,
		`SELECT `+demColumns+` FROM dems WHERE project_id = $1 ORDER BY created_at DESC`, projectID)
	if err != nil {
		r.logger.Error("Failed to list DEMs", zap.String("project_id", projectID), zap.Error(err))
		return nil, errors.ErrDatabaseError
	}
	return dems, nil
}
