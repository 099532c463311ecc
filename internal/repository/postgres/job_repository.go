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

type jobRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewJobRepository(db *DB) repository.JobRepository {
	return &jobRepository{
		db:     db.DB,
		logger: db.logger,
	}
}

// jobRow - строка analysis_jobs; request читается как text
type jobRow struct {
	ID               uuid.UUID        `db:"id"`
	Type             domain.JobType   `db:"job_type"`
	Status           domain.JobStatus `db:"status"`
	Progress         int              `db:"progress"`
	Request          []byte           `db:"request"`
	ResultID         *uuid.UUID       `db:"result_id"`
	ErrorMessage     *string          `db:"error_message"`
	CreatedAt        time.Time        `db:"created_at"`
	StartedAt        *time.Time       `db:"started_at"`
	CompletedAt      *time.Time       `db:"completed_at"`
	ProcessingTimeMS *int64           `db:"processing_time_ms"`
}

func (r jobRow) toDomain() *domain.Job {
	return &domain.Job{
		ID:               r.ID,
		Type:             r.Type,
		Status:           r.Status,
		Progress:         r.Progress,
		Request:          json.RawMessage(r.Request),
		ResultID:         r.ResultID,
		ErrorMessage:     r.ErrorMessage,
		CreatedAt:        r.CreatedAt,
		StartedAt:        r.StartedAt,
		CompletedAt:      r.CompletedAt,
		ProcessingTimeMS: r.ProcessingTimeMS,
	}
}

func (r *jobRepository) Create(ctx context.Context, job *domain.Job) error {
	query := `
		INSERT INTO analysis_jobs (id, job_type, status, progress, request, created_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		job.ID, job.Type, job.Status, job.Progress, string(job.Request), job.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create job", zap.String("job_id", job.ID.String()), zap.Error(err))
		return errors.ErrDatabaseError
	}
	return nil
}

func (r *jobRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	query := `
		SELECT id, job_type, status, progress, request::text AS request, result_id,
			error_message, created_at, started_at, completed_at, processing_time_ms
		FROM analysis_jobs
		WHERE id = $1
	`

	var row jobRow
	err := r.db.GetContext(ctx, &row, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get job", zap.String("job_id", id.String()), zap.Error(err))
		return nil, errors.ErrDatabaseError
	}
	return row.toDomain(), nil
}

func (r *jobRepository) Update(ctx context.Context, job *domain.Job) error {
	query := `
		UPDATE analysis_jobs
		SET status = $2, progress = $3, result_id = $4, error_message = $5,
			started_at = $6, completed_at = $7, processing_time_ms = $8
		WHERE id = $1
	`

	res, err := r.db.ExecContext(ctx, query,
		job.ID, job.Status, job.Progress, job.ResultID, job.ErrorMessage,
		job.StartedAt, job.CompletedAt, job.ProcessingTimeMS)
	if err != nil {
		r.logger.Error("Failed to update job", zap.String("job_id", job.ID.String()), zap.Error(err))
		return errors.ErrDatabaseError
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.ErrJobNotFound
	}
	return nil
}

func (r *jobRepository) UpdateProgress(ctx context.Context, id uuid.UUID, progress int) error {
	query := `UPDATE analysis_jobs SET progress = $2 WHERE id = $1 AND status = 'processing'`

	if _, err := r.db.ExecContext(ctx, query, id, progress); err != nil {
		r.logger.Error("Failed to update job progress",
			zap.String("job_id", id.String()),
			zap.Int("progress", progress),
			zap.Error(err))
		return errors.ErrDatabaseError
	}
	return nil
}

func (r *jobRepository) FailStale(ctx context.Context, olderThan time.Time, message string) (int64, error) {
	query := `
		UPDATE analysis_jobs
		SET status = 'failed',
			error_message = $2,
			completed_at = NOW(),
			processing_time_ms = (EXTRACT(EPOCH FROM (NOW() - started_at)) * 1000)::bigint
		WHERE status = 'processing' AND started_at < $1
	`

	res, err := r.db.ExecContext(ctx, query, olderThan, message)
	if err != nil {
		r.logger.Error("Failed to fail stale jobs", zap.Error(err))
		return 0, errors.ErrDatabaseError
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.ErrDatabaseError
	}
	return n, nil
}
