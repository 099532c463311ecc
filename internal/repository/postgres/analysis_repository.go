package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/terrain-microservice/internal/domain"
	"github.com/terrain-microservice/internal/domain/repository"
	"github.com/terrain-microservice/internal/pkg/errors"
)

type analysisRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewAnalysisRepository(db *DB) repository.AnalysisRepository {
	return &analysisRepository{
		db:     db.DB,
		logger: db.logger,
	}
}

type analysisRow struct {
	ID        uuid.UUID           `db:"id"`
	DEMID     uuid.UUID           `db:"dem_id"`
	Kind      domain.AnalysisKind `db:"kind"`
	Config    []byte              `db:"config"`
	Stats     []byte              `db:"stats"`
	Areas     []byte              `db:"areas"`
	CreatedAt time.Time           `db:"created_at"`
}

func (r analysisRow) toDomain() *domain.Analysis {
	a := &domain.Analysis{
		ID:        r.ID,
		DEMID:     r.DEMID,
		Kind:      r.Kind,
		Config:    json.RawMessage(r.Config),
		Stats:     json.RawMessage(r.Stats),
		CreatedAt: r.CreatedAt,
	}
	if len(r.Areas) > 0 {
		a.Areas = json.RawMessage(r.Areas)
	}
	return a
}

const analysisSelect = `
	SELECT id, dem_id, kind, config::text AS config, stats::text AS stats,
		COALESCE(areas::text, '') AS areas, created_at
	FROM terrain_analyses`

func (r *analysisRepository) Create(ctx context.Context, a *domain.Analysis) error {
	query := `
		INSERT INTO terrain_analyses (id, dem_id, kind, config, stats, areas, created_at)
		VALUES ($1, $2, $3, $4::jsonb, $5::jsonb, NULLIF($6, '')::jsonb, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.DEMID, a.Kind, string(a.Config), string(a.Stats), string(a.Areas), a.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create analysis",
			zap.String("analysis_id", a.ID.String()),
			zap.String("kind", string(a.Kind)),
			zap.Error(err))
		return errors.ErrDatabaseError
	}
	return nil
}

func (r *analysisRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Analysis, error) {
	var row analysisRow
	err := r.db.GetContext(ctx, &row, analysisSelect+` WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get analysis", zap.String("analysis_id", id.String()), zap.Error(err))
		return nil, errors.ErrDatabaseError
	}
	return row.toDomain(), nil
}

func (r *analysisRepository) ListByDEM(ctx context.Context, demID uuid.UUID, kind domain.AnalysisKind) ([]*domain.Analysis, error) {
	var rows []analysisRow
	err := r.db.SelectContext(ctx, &rows, analysisSelect+` WHERE dem_id = $1 AND kind = $2 ORDER BY created_at DESC`, demID, kind)
	if err != nil {
		r.logger.Error("Failed to list analyses", zap.String("dem_id", demID.String()), zap.Error(err))
		return nil, errors.ErrDatabaseError
	}

	result := make([]*domain.Analysis, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}

type profileRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewProfileRepository(db *DB) repository.ProfileRepository {
	return &profileRepository{
		db:     db.DB,
		logger: db.logger,
	}
}

type profileRow struct {
	ID        uuid.UUID `db:"id"`
	DEMID     uuid.UUID `db:"dem_id"`
	Line      []byte    `db:"line"`
	Points    []byte    `db:"points"`
	Stats     []byte    `db:"stats"`
	CreatedAt time.Time `db:"created_at"`
}

func (r *profileRepository) Create(ctx context.Context, p *domain.Profile) error {
	query := `
		INSERT INTO terrain_profiles (id, dem_id, line, geom, points, stats, created_at)
		VALUES ($1, $2, $3::text::jsonb, ST_SetSRID(ST_GeomFromGeoJSON($3::text), 4326), $4::jsonb, $5::jsonb, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.DEMID, string(p.Line), string(p.Points), string(p.Stats), p.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create profile", zap.String("profile_id", p.ID.String()), zap.Error(err))
		return errors.ErrDatabaseError
	}
	return nil
}

func (r *profileRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	query := `
		SELECT id, dem_id, line::text AS line, points::text AS points, stats::text AS stats, created_at
		FROM terrain_profiles
		WHERE id = $1
	`

	var row profileRow
	err := r.db.GetContext(ctx, &row, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get profile", zap.String("profile_id", id.String()), zap.Error(err))
		return nil, errors.ErrDatabaseError
	}

	return &domain.Profile{
		ID:        row.ID,
		DEMID:     row.DEMID,
		Line:      json.RawMessage(row.Line),
		Points:    json.RawMessage(row.Points),
		Stats:     json.RawMessage(row.Stats),
		CreatedAt: row.CreatedAt,
	}, nil
}
