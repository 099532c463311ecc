package http_test

import (
	"context"
	"encoding/json"
	"io"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/terrain-microservice/internal/domain"
	"github.com/terrain-microservice/internal/usecase"
	"github.com/terrain-microservice/internal/usecase/dto"
)

type MockDEMService struct {
	mock.Mock
}

func (m *MockDEMService) Generate(ctx context.Context, req dto.GenerateDEMRequest, progress usecase.ProgressFunc) (*dto.DEMResponse, error) {
	args := m.Called(ctx, req, progress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.DEMResponse), args.Error(1)
}

func (m *MockDEMService) ImportASCII(ctx context.Context, projectID string, r io.Reader) (*dto.DEMResponse, error) {
	args := m.Called(ctx, projectID, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.DEMResponse), args.Error(1)
}

func (m *MockDEMService) ImportTerrainRGB(ctx context.Context, req dto.TerrainRGBRequest) (*dto.DEMResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.DEMResponse), args.Error(1)
}

func (m *MockDEMService) Get(ctx context.Context, id uuid.UUID) (*domain.DEM, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DEM), args.Error(1)
}

func (m *MockDEMService) ListByProject(ctx context.Context, projectID string) ([]*domain.DEM, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.DEM), args.Error(1)
}

func (m *MockDEMService) ExportASCII(ctx context.Context, id uuid.UUID, w io.Writer) error {
	args := m.Called(ctx, id, w)
	return args.Error(0)
}

func (m *MockDEMService) PurgeCache(ctx context.Context, id uuid.UUID) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

type MockAnalysisService struct {
	mock.Mock
}

func (m *MockAnalysisService) Slope(ctx context.Context, req dto.SlopeRequest) (*dto.SlopeResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.SlopeResponse), args.Error(1)
}

func (m *MockAnalysisService) Aspect(ctx context.Context, req dto.AspectRequest) (*dto.AspectResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.AspectResponse), args.Error(1)
}

func (m *MockAnalysisService) History(ctx context.Context, demID uuid.UUID, kind domain.AnalysisKind) ([]*domain.Analysis, error) {
	args := m.Called(ctx, demID, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Analysis), args.Error(1)
}

type MockProfileService struct {
	mock.Mock
}

func (m *MockProfileService) Analyze(ctx context.Context, req dto.ProfileRequest) (*dto.ProfileResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ProfileResponse), args.Error(1)
}

func (m *MockProfileService) ExportCSV(ctx context.Context, id uuid.UUID, w io.Writer) error {
	args := m.Called(ctx, id, w)
	return args.Error(0)
}

func (m *MockProfileService) ExportJSON(ctx context.Context, id uuid.UUID, w io.Writer) error {
	args := m.Called(ctx, id, w)
	return args.Error(0)
}

type MockJobService struct {
	mock.Mock
}

func (m *MockJobService) Submit(ctx context.Context, jobType string, request json.RawMessage) (*domain.Job, error) {
	args := m.Called(ctx, jobType, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Job), args.Error(1)
}

func (m *MockJobService) Get(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Job), args.Error(1)
}

type MockHealthChecker struct {
	mock.Mock
}

func (m *MockHealthChecker) Health(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
