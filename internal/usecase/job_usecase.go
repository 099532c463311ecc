package usecase

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/terrain-microservice/internal/domain"
	"github.com/terrain-microservice/internal/domain/repository"
	"github.com/terrain-microservice/internal/pkg/errors"
	"github.com/terrain-microservice/internal/pkg/validator"
	"github.com/terrain-microservice/internal/terrain"
	"github.com/terrain-microservice/internal/usecase/dto"
)

// StaleJobMessage - причина, записываемая в зависшие задачи
const StaleJobMessage = "timeout: job exceeded the processing time limit"

// JobUseCase ставит задачи анализа в очередь и выполняет их в воркере
type JobUseCase struct {
	jobRepo      repository.JobRepository
	streamRepo   repository.StreamRepository
	demUC        *DEMUseCase
	analysisUC   *AnalysisUseCase
	profileUC    *ProfileUseCase
	staleTimeout time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

func NewJobUseCase(
	jobRepo repository.JobRepository,
	streamRepo repository.StreamRepository,
	demUC *DEMUseCase,
	analysisUC *AnalysisUseCase,
	profileUC *ProfileUseCase,
	staleTimeout time.Duration,
	logger *zap.Logger,
) *JobUseCase {
	return &JobUseCase{
		jobRepo:      jobRepo,
		streamRepo:   streamRepo,
		demUC:        demUC,
		analysisUC:   analysisUC,
		profileUC:    profileUC,
		staleTimeout: staleTimeout,
		logger:       logger,
		now:          time.Now,
	}
}

// Submit проверяет запрос, создает задачу и публикует ее в стрим типа задачи
func (uc *JobUseCase) Submit(ctx context.Context, jobType string, request json.RawMessage) (*domain.Job, error) {
	t, err := domain.ParseJobType(jobType)
	if err != nil {
		return nil, errors.ErrInvalidJobType.WithMessage(err.Error())
	}
	if _, err := decodeRequest(t, request); err != nil {
		return nil, err
	}

	job := domain.NewJob(t, request, uc.now().UTC())
	if err := uc.jobRepo.Create(ctx, job); err != nil {
		return nil, err
	}

	event := domain.TerrainJobEvent{JobID: job.ID, Type: t, Request: request}
	if err := uc.streamRepo.PublishToStream(ctx, t.Stream(), event); err != nil {
		job.Fail("internal: failed to enqueue job", uc.now().UTC())
		if uerr := uc.jobRepo.Update(ctx, job); uerr != nil {
			uc.logger.Error("Failed to mark unqueued job as failed", zap.String("job_id", job.ID.String()), zap.Error(uerr))
		}
		return nil, errors.ErrInternalServer.WithMessage("failed to enqueue job")
	}

	uc.logger.Info("Job submitted",
		zap.String("job_id", job.ID.String()),
		zap.String("type", string(t)))

	return job, nil
}

// Get возвращает задачу по id
func (uc *JobUseCase) Get(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	job, err := uc.jobRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, errors.ErrJobNotFound
	}
	return job, nil
}

// Execute выполняет задачу из события стрима. Ошибка анализа не возвращается,
// а записывается в задачу; error означает проблему с самой задачей (нет в БД, БД недоступна).
// Для уже завершенной задачи возвращает (nil, nil).
func (uc *JobUseCase) Execute(ctx context.Context, event domain.TerrainJobEvent) (*domain.TerrainJobDoneEvent, error) {
	if err := event.Validate(); err != nil {
		return nil, errors.ErrInvalidRequest.WithMessage(err.Error())
	}
	job, err := uc.Get(ctx, event.JobID)
	if err != nil {
		return nil, err
	}
	if job.Status.Terminal() {
		uc.logger.Info("Job already finished, skipping",
			zap.String("job_id", job.ID.String()),
			zap.String("status", string(job.Status)))
		return nil, nil
	}

	job.Start(uc.now().UTC())
	if err := uc.jobRepo.Update(ctx, job); err != nil {
		return nil, err
	}

	resultID, runErr := uc.run(ctx, job.ID, event)

	// итог записывается и при отмене контекста воркера
	saveCtx := context.WithoutCancel(ctx)
	if runErr != nil {
		msg := FailureMessage(runErr)
		job.Fail(msg, uc.now().UTC())
		uc.logger.Warn("Job failed",
			zap.String("job_id", job.ID.String()),
			zap.String("type", string(job.Type)),
			zap.String("error", msg))
	} else {
		job.Complete(resultID, uc.now().UTC())
		uc.logger.Info("Job completed",
			zap.String("job_id", job.ID.String()),
			zap.String("type", string(job.Type)),
			zap.String("result_id", resultID.String()),
			zap.Int64p("processing_time_ms", job.ProcessingTimeMS))
	}
	if err := uc.jobRepo.Update(saveCtx, job); err != nil {
		return nil, err
	}

	done := &domain.TerrainJobDoneEvent{
		JobID:    job.ID,
		Type:     job.Type,
		Status:   job.Status,
		ResultID: job.ResultID,
	}
	if job.ErrorMessage != nil {
		done.Error = *job.ErrorMessage
	}
	return done, nil
}

func (uc *JobUseCase) run(ctx context.Context, jobID uuid.UUID, event domain.TerrainJobEvent) (uuid.UUID, error) {
	req, err := decodeRequest(event.Type, event.Request)
	if err != nil {
		return uuid.Nil, err
	}

	progress := func(percent int) {
		if err := uc.jobRepo.UpdateProgress(ctx, jobID, percent); err != nil {
			uc.logger.Warn("Failed to update job progress",
				zap.String("job_id", jobID.String()),
				zap.Int("progress", percent),
				zap.Error(err))
		}
	}

	switch r := req.(type) {
	case *dto.GenerateDEMRequest:
		resp, err := uc.demUC.Generate(ctx, *r, progress)
		if err != nil {
			return uuid.Nil, err
		}
		return resp.DEM.ID, nil
	case *dto.SlopeRequest:
		resp, err := uc.analysisUC.Slope(ctx, *r)
		if err != nil {
			return uuid.Nil, err
		}
		return resp.AnalysisID, nil
	case *dto.AspectRequest:
		resp, err := uc.analysisUC.Aspect(ctx, *r)
		if err != nil {
			return uuid.Nil, err
		}
		return resp.AnalysisID, nil
	case *dto.ProfileRequest:
		r.Store = true
		resp, err := uc.profileUC.Analyze(ctx, *r)
		if err != nil {
			return uuid.Nil, err
		}
		return *resp.ProfileID, nil
	}
	return uuid.Nil, terrain.InputError("unsupported job type %q", event.Type)
}

// SweepStale переводит в failed задачи, которые слишком долго в processing
func (uc *JobUseCase) SweepStale(ctx context.Context) (int64, error) {
	n, err := uc.jobRepo.FailStale(ctx, uc.now().UTC().Add(-uc.staleTimeout), StaleJobMessage)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		uc.logger.Warn("Stale jobs marked as failed", zap.Int64("count", n))
	}
	return n, nil
}

// FailureMessage формирует текст ошибки задачи в виде "<вид>: <сообщение>"
func FailureMessage(err error) string {
	kind := terrain.Kind(err)
	if kind == "internal" {
		if appErr := errors.FromTerrain(err); appErr != errors.ErrInternalServer {
			return strings.ToLower(appErr.Code) + ": " + appErr.Message
		}
	}
	return kind + ": " + err.Error()
}

func decodeRequest(t domain.JobType, raw json.RawMessage) (any, error) {
	var req any
	switch t {
	case domain.JobTypeDEM:
		req = &dto.GenerateDEMRequest{}
	case domain.JobTypeSlope:
		req = &dto.SlopeRequest{}
	case domain.JobTypeAspect:
		req = &dto.AspectRequest{}
	case domain.JobTypeProfile:
		req = &dto.ProfileRequest{}
	default:
		return nil, errors.ErrInvalidJobType
	}
	if err := json.Unmarshal(raw, req); err != nil {
		return nil, terrain.InputError("decode %s request: %v", t, err)
	}
	if err := validator.Validate(req); err != nil {
		return nil, err
	}
	return req, nil
}
