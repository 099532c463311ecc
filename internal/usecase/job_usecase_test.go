package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/terrain-microservice/internal/domain"
	apperrors "github.com/terrain-microservice/internal/pkg/errors"
	"github.com/terrain-microservice/internal/terrain"
	"github.com/terrain-microservice/internal/terrain/dem"
	"github.com/terrain-microservice/internal/usecase"
)

type jobMocks struct {
	jobs     *MockJobRepository
	streams  *MockStreamRepository
	contours *MockContourRepository
	dems     *MockDEMRepository
	analyses *MockAnalysisRepository
	profiles *MockProfileRepository
	cache    *MockCacheRepository
}

func newJobUseCase() (*usecase.JobUseCase, jobMocks) {
	m := jobMocks{
		jobs:     &MockJobRepository{},
		streams:  &MockStreamRepository{},
		contours: &MockContourRepository{},
		dems:     &MockDEMRepository{},
		analyses: &MockAnalysisRepository{},
		profiles: &MockProfileRepository{},
		cache:    &MockCacheRepository{},
	}
	logger := zap.NewNop()
	cfg := terrain.DefaultConfig()
	demUC := usecase.NewDEMUseCase(m.contours, m.dems, &MockElevationSource{}, m.cache, cfg, logger)
	analysisUC := usecase.NewAnalysisUseCase(m.dems, m.analyses, m.cache, cfg, time.Hour, logger)
	profileUC := usecase.NewProfileUseCase(m.dems, m.profiles, cfg, logger)
	uc := usecase.NewJobUseCase(m.jobs, m.streams, demUC, analysisUC, profileUC, 30*time.Minute, logger)
	return uc, m
}

func TestJobUseCase_Submit(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes to the stream of the job type", func(t *testing.T) {
		uc, m := newJobUseCase()
		request := json.RawMessage(`{"dem_id":"` + uuid.NewString() + `"}`)
		var created *domain.Job
		m.jobs.On("Create", ctx, mock.Anything).
			Run(func(args mock.Arguments) { created = args.Get(1).(*domain.Job) }).
			Return(nil)
		m.streams.On("PublishToStream", ctx, domain.StreamTerrainSlope, mock.AnythingOfType("domain.TerrainJobEvent")).Return(nil)

		job, err := uc.Submit(ctx, "slope", request)

		require.NoError(t, err)
		assert.Same(t, created, job)
		assert.Equal(t, domain.JobStatusPending, job.Status)
		assert.Equal(t, domain.JobTypeSlope, job.Type)
		event := m.streams.Calls[0].Arguments.Get(2).(domain.TerrainJobEvent)
		assert.Equal(t, job.ID, event.JobID)
		assert.JSONEq(t, string(request), string(event.Request))
	})

	t.Run("unknown type", func(t *testing.T) {
		uc, m := newJobUseCase()

		_, err := uc.Submit(ctx, "hillshade", json.RawMessage(`{}`))

		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "INVALID_JOB_TYPE", appErr.Code)
		m.jobs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("invalid request is rejected before queueing", func(t *testing.T) {
		uc, m := newJobUseCase()

		_, err := uc.Submit(ctx, "profile", json.RawMessage(`{"dem_id":"x","coordinates":[]}`))

		require.Error(t, err)
		assert.Equal(t, "INVALID_REQUEST", apperrors.FromTerrain(err).Code)

		_, err = uc.Submit(ctx, "dem", json.RawMessage(`not json`))
		assert.ErrorIs(t, err, terrain.ErrInput)
		m.jobs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("publish failure marks the job failed", func(t *testing.T) {
		uc, m := newJobUseCase()
		m.jobs.On("Create", ctx, mock.Anything).Return(nil)
		m.streams.On("PublishToStream", ctx, domain.StreamTerrainAspect, mock.Anything).Return(errors.New("redis down"))
		var updated *domain.Job
		m.jobs.On("Update", ctx, mock.Anything).
			Run(func(args mock.Arguments) { updated = args.Get(1).(*domain.Job) }).
			Return(nil)

		_, err := uc.Submit(ctx, "aspect", json.RawMessage(`{"dem_id":"`+uuid.NewString()+`"}`))

		require.Error(t, err)
		require.NotNil(t, updated)
		assert.Equal(t, domain.JobStatusFailed, updated.Status)
	})
}

func TestJobUseCase_Execute(t *testing.T) {
	ctx := context.Background()

	pendingJob := func(t domain.JobType, request string) *domain.Job {
		return domain.NewJob(t, json.RawMessage(request), time.Now())
	}

	t.Run("slope job completes with the analysis id", func(t *testing.T) {
		uc, m := newJobUseCase()
		demID := expectStoredDEM(t, m.dems, eastRamp(t))
		request := `{"dem_id":"` + demID.String() + `"}`
		job := pendingJob(domain.JobTypeSlope, request)
		m.jobs.On("GetByID", ctx, job.ID).Return(job, nil)
		var statuses []domain.JobStatus
		m.jobs.On("Update", mock.Anything, job).
			Run(func(args mock.Arguments) { statuses = append(statuses, args.Get(1).(*domain.Job).Status) }).
			Return(nil)
		m.cache.On("Get", mock.Anything, mock.Anything).Return(nil, nil)
		m.cache.On("Set", mock.Anything, mock.Anything, mock.Anything, time.Hour).Return(nil)
		var analysis *domain.Analysis
		m.analyses.On("Create", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { analysis = args.Get(1).(*domain.Analysis) }).
			Return(nil)

		done, err := uc.Execute(ctx, domain.TerrainJobEvent{JobID: job.ID, Type: domain.JobTypeSlope, Request: json.RawMessage(request)})

		require.NoError(t, err)
		require.NotNil(t, done)
		assert.Equal(t, []domain.JobStatus{domain.JobStatusProcessing, domain.JobStatusCompleted}, statuses)
		assert.Equal(t, domain.JobStatusCompleted, done.Status)
		require.NotNil(t, done.ResultID)
		assert.Equal(t, analysis.ID, *done.ResultID)
		assert.Equal(t, 100, job.Progress)
		assert.NotNil(t, job.ProcessingTimeMS)
		assert.Empty(t, done.Error)
	})

	t.Run("dem job reports progress", func(t *testing.T) {
		uc, m := newJobUseCase()
		request := `{"project_id":"p1","bounds":{"min_lng":10,"min_lat":46,"max_lng":10.01,"max_lat":46.01},"resolution":50}`
		job := pendingJob(domain.JobTypeDEM, request)
		contours := make([]dem.Contour, 0)
		for i, c := range rampContours() {
			contours = append(contours, dem.Contour{ID: string(rune('a' + i)), Elevation: c.Elevation, Line: c.Line()})
		}
		m.jobs.On("GetByID", ctx, job.ID).Return(job, nil)
		m.jobs.On("Update", mock.Anything, job).Return(nil)
		var progress []int
		m.jobs.On("UpdateProgress", ctx, job.ID, mock.Anything).
			Run(func(args mock.Arguments) { progress = append(progress, args.Int(2)) }).
			Return(nil)
		m.contours.On("GetByProject", ctx, "p1").Return(contours, nil)
		var stored *domain.DEM
		m.dems.On("Create", ctx, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { stored = args.Get(1).(*domain.DEM) }).
			Return(nil)

		done, err := uc.Execute(ctx, domain.TerrainJobEvent{JobID: job.ID, Type: domain.JobTypeDEM, Request: json.RawMessage(request)})

		require.NoError(t, err)
		assert.Equal(t, []int{0, 20, 70, 85, 95}, progress)
		assert.Equal(t, domain.JobStatusCompleted, done.Status)
		assert.Equal(t, stored.ID, *done.ResultID)
	})

	t.Run("engine failure is recorded with its kind", func(t *testing.T) {
		uc, m := newJobUseCase()
		request := `{"project_id":"empty","bounds":{"min_lng":10,"min_lat":46,"max_lng":10.01,"max_lat":46.01},"resolution":50}`
		job := pendingJob(domain.JobTypeDEM, request)
		m.jobs.On("GetByID", ctx, job.ID).Return(job, nil)
		m.jobs.On("Update", mock.Anything, job).Return(nil)
		m.jobs.On("UpdateProgress", ctx, job.ID, mock.Anything).Return(nil)
		m.contours.On("GetByProject", ctx, "empty").Return([]dem.Contour{}, nil)

		done, err := uc.Execute(ctx, domain.TerrainJobEvent{JobID: job.ID, Type: domain.JobTypeDEM, Request: json.RawMessage(request)})

		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusFailed, done.Status)
		assert.Nil(t, done.ResultID)
		assert.Equal(t, "input: input error: no contour data found", done.Error)
		assert.Equal(t, done.Error, *job.ErrorMessage)
	})

	t.Run("missing dem is recorded with the app error code", func(t *testing.T) {
		uc, m := newJobUseCase()
		demID := uuid.New()
		request := `{"dem_id":"` + demID.String() + `","coordinates":[[2,41],[2.001,41]]}`
		job := pendingJob(domain.JobTypeProfile, request)
		m.jobs.On("GetByID", ctx, job.ID).Return(job, nil)
		m.jobs.On("Update", mock.Anything, job).Return(nil)
		m.dems.On("GetByID", ctx, demID).Return(nil, nil)

		done, err := uc.Execute(ctx, domain.TerrainJobEvent{JobID: job.ID, Type: domain.JobTypeProfile, Request: json.RawMessage(request)})

		require.NoError(t, err)
		assert.Equal(t, "dem_not_found: DEM not found", done.Error)
	})

	t.Run("finished job is skipped", func(t *testing.T) {
		uc, m := newJobUseCase()
		job := pendingJob(domain.JobTypeSlope, `{}`)
		job.Complete(uuid.New(), time.Now())
		m.jobs.On("GetByID", ctx, job.ID).Return(job, nil)

		done, err := uc.Execute(ctx, domain.TerrainJobEvent{JobID: job.ID, Type: domain.JobTypeSlope, Request: json.RawMessage(`{}`)})

		require.NoError(t, err)
		assert.Nil(t, done)
		m.jobs.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("unknown job", func(t *testing.T) {
		uc, m := newJobUseCase()
		id := uuid.New()
		m.jobs.On("GetByID", ctx, id).Return(nil, nil)

		_, err := uc.Execute(ctx, domain.TerrainJobEvent{JobID: id, Type: domain.JobTypeSlope, Request: json.RawMessage(`{}`)})

		assert.ErrorIs(t, err, apperrors.ErrJobNotFound)
	})

	t.Run("invalid event", func(t *testing.T) {
		uc, _ := newJobUseCase()

		_, err := uc.Execute(ctx, domain.TerrainJobEvent{Type: domain.JobTypeSlope})

		assert.Error(t, err)
	})
}

func TestJobUseCase_SweepStale(t *testing.T) {
	ctx := context.Background()
	uc, m := newJobUseCase()
	before := time.Now().UTC().Add(-30 * time.Minute)
	m.jobs.On("FailStale", ctx, mock.MatchedBy(func(cutoff time.Time) bool {
		return !cutoff.Before(before) && cutoff.Before(time.Now().UTC().Add(-29*time.Minute))
	}), usecase.StaleJobMessage).Return(int64(2), nil)

	n, err := uc.SweepStale(ctx)

	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	m.jobs.AssertExpectations(t)
}

func TestFailureMessage(t *testing.T) {
	assert.Equal(t, "quality_gate: quality gate failed: RMSE 3.00m exceeds threshold 2.00m",
		usecase.FailureMessage(&terrain.QualityGateError{RMSE: 3, Threshold: 2}))
	assert.Equal(t, "database_error: Database operation failed", usecase.FailureMessage(apperrors.ErrDatabaseError))
	assert.Equal(t, "internal: boom", usecase.FailureMessage(errors.New("boom")))
}
