package usecase

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/terrain-microservice/internal/domain"
	"github.com/terrain-microservice/internal/domain/repository"
	"github.com/terrain-microservice/internal/pkg/errors"
	"github.com/terrain-microservice/internal/pkg/validator"
	"github.com/terrain-microservice/internal/repository/cache"
	"github.com/terrain-microservice/internal/terrain"
	"github.com/terrain-microservice/internal/terrain/dem"
	"github.com/terrain-microservice/internal/terrain/raster"
	"github.com/terrain-microservice/internal/usecase/dto"
)

// Этапы построения DEM в процентах выполнения задачи
const (
	ProgressStarted      = 0
	ProgressContours     = 20
	ProgressInterpolated = 70
	ProgressValidated    = 85
	ProgressStored       = 95
	ProgressDone         = 100
)

// ProgressFunc получает процент выполнения длительной операции
type ProgressFunc func(percent int)

// DEMUseCase строит, импортирует и отдает сетки высот
type DEMUseCase struct {
	contourRepo repository.ContourRepository
	demRepo     repository.DEMRepository
	elevation   repository.ElevationSource
	cacheRepo   repository.CacheRepository
	analysis    terrain.Config
	logger      *zap.Logger
	now         func() time.Time
}

func NewDEMUseCase(
	contourRepo repository.ContourRepository,
	demRepo repository.DEMRepository,
	elevation repository.ElevationSource,
	cacheRepo repository.CacheRepository,
	analysis terrain.Config,
	logger *zap.Logger,
) *DEMUseCase {
	return &DEMUseCase{
		contourRepo: contourRepo,
		demRepo:     demRepo,
		elevation:   elevation,
		cacheRepo:   cacheRepo,
		analysis:    analysis,
		logger:      logger,
		now:         time.Now,
	}
}

// Generate строит DEM по изолиниям, проверяет качество и сохраняет результат.
// progress может быть nil.
func (uc *DEMUseCase) Generate(ctx context.Context, req dto.GenerateDEMRequest, progress ProgressFunc) (*dto.DEMResponse, error) {
	if progress == nil {
		progress = func(int) {}
	}
	if err := validator.Validate(&req); err != nil {
		return nil, err
	}
	cfg, err := req.Options.Apply(uc.analysis)
	if err != nil {
		return nil, err
	}
	spec, err := dem.NewGridSpec(req.Bounds, req.Resolution, cfg.MaxGridCells)
	if err != nil {
		return nil, err
	}

	progress(ProgressStarted)
	contours, err := uc.loadContours(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(contours) == 0 {
		return nil, terrain.InputError("no contour data found")
	}
	progress(ProgressContours)

	uc.logger.Debug("Generating DEM",
		zap.Int("contours", len(contours)),
		zap.Int("width", spec.Width),
		zap.Int("height", spec.Height),
		zap.String("method", string(cfg.Interpolation)))

	result, err := dem.Generate(ctx, contours, spec, cfg, func(stage string) {
		switch stage {
		case dem.StageInterpolated:
			progress(ProgressInterpolated)
		case dem.StageValidated:
			progress(ProgressValidated)
		}
	})
	if err != nil {
		if result != nil {
			uc.logger.Warn("DEM rejected by quality gate",
				zap.Float64("rmse", result.Validation.RMSE),
				zap.Float64("max_deviation", result.Validation.MaxDeviation),
				zap.Float64("threshold", cfg.RMSEThreshold))
		}
		return nil, err
	}

	record := uc.newRecord(domain.DEMSourceContours, req.ProjectID, result.Grid, result.Stats)
	resolution := req.Resolution
	method := string(cfg.Interpolation)
	record.Resolution = &resolution
	record.Interpolation = &method
	record.RMSE = &result.Validation.RMSE
	record.MaxDeviation = &result.Validation.MaxDeviation
	record.MatchPercent = &result.Validation.MatchPercent
	record.FilledCells = result.FilledCells

	if err := uc.store(ctx, record, result.Grid); err != nil {
		return nil, err
	}
	progress(ProgressStored)

	uc.logger.Info("DEM generated",
		zap.String("dem_id", record.ID.String()),
		zap.Float64("rmse", result.Validation.RMSE),
		zap.Int("filled_cells", result.FilledCells))

	return &dto.DEMResponse{DEM: record, Validation: &result.Validation}, nil
}

func (uc *DEMUseCase) loadContours(ctx context.Context, req dto.GenerateDEMRequest) ([]dem.Contour, error) {
	switch {
	case len(req.Contours) > 0:
		contours := make([]dem.Contour, len(req.Contours))
		for i, c := range req.Contours {
			contours[i] = dem.Contour{ID: strconv.Itoa(i), Elevation: c.Elevation, Line: c.Line()}
		}
		return contours, nil
	case len(req.ContourIDs) > 0:
		return uc.contourRepo.GetByIDs(ctx, req.ContourIDs)
	default:
		return uc.contourRepo.GetByProject(ctx, req.ProjectID)
	}
}

// ImportASCII сохраняет DEM из ESRI ASCII grid
func (uc *DEMUseCase) ImportASCII(ctx context.Context, projectID string, r io.Reader) (*dto.DEMResponse, error) {
	grid, err := raster.ReadASCII(r, uc.analysis.MaxGridCells)
	if err != nil {
		return nil, err
	}
	return uc.importGrid(ctx, domain.DEMSourceASCII, projectID, grid)
}

// ImportTerrainRGB собирает DEM из тайлов Terrain-RGB
func (uc *DEMUseCase) ImportTerrainRGB(ctx context.Context, req dto.TerrainRGBRequest) (*dto.DEMResponse, error) {
	if err := validator.Validate(&req); err != nil {
		return nil, err
	}
	grid, err := uc.elevation.FetchGrid(ctx, req.Bounds, req.Zoom)
	if err != nil {
		return nil, err
	}
	return uc.importGrid(ctx, domain.DEMSourceTerrainRGB, req.ProjectID, grid)
}

func (uc *DEMUseCase) importGrid(ctx context.Context, source domain.DEMSource, projectID string, grid *raster.Grid) (*dto.DEMResponse, error) {
	stats, err := dem.ComputeStats(grid)
	if err != nil {
		return nil, err
	}
	record := uc.newRecord(source, projectID, grid, stats)
	if err := uc.store(ctx, record, grid); err != nil {
		return nil, err
	}

	uc.logger.Info("DEM imported",
		zap.String("dem_id", record.ID.String()),
		zap.String("source", string(source)),
		zap.Int("width", record.Width),
		zap.Int("height", record.Height))

	return &dto.DEMResponse{DEM: record}, nil
}

func (uc *DEMUseCase) newRecord(source domain.DEMSource, projectID string, grid *raster.Grid, stats dem.Stats) *domain.DEM {
	record := &domain.DEM{
		ID:           uuid.New(),
		Source:       source,
		Width:        grid.Width(),
		Height:       grid.Height(),
		MinElevation: stats.Min,
		MaxElevation: stats.Max,
		AvgElevation: stats.Avg,
		CreatedAt:    uc.now().UTC(),
	}
	if projectID != "" {
		record.ProjectID = &projectID
	}
	record.SetBounds(grid.Bounds())
	return record
}

func (uc *DEMUseCase) store(ctx context.Context, record *domain.DEM, grid *raster.Grid) error {
	blob, err := raster.Marshal(grid)
	if err != nil {
		uc.logger.Error("Failed to encode DEM grid", zap.Error(err))
		return errors.ErrInternalServer
	}
	return uc.demRepo.Create(ctx, record, blob)
}

// Get возвращает метаданные DEM
func (uc *DEMUseCase) Get(ctx context.Context, id uuid.UUID) (*domain.DEM, error) {
	record, err := uc.demRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, errors.ErrDEMNotFound
	}
	return record, nil
}

// ListByProject возвращает DEM проекта
func (uc *DEMUseCase) ListByProject(ctx context.Context, projectID string) ([]*domain.DEM, error) {
	return uc.demRepo.ListByProject(ctx, projectID)
}

// ExportASCII пишет сетку DEM в формате ESRI ASCII grid
func (uc *DEMUseCase) ExportASCII(ctx context.Context, id uuid.UUID, w io.Writer) error {
	_, grid, err := loadGrid(ctx, uc.demRepo, id, uc.analysis.MaxGridCells)
	if err != nil {
		return err
	}
	return raster.WriteASCII(w, grid)
}

// PurgeCache удаляет кешированные результаты анализа по DEM
func (uc *DEMUseCase) PurgeCache(ctx context.Context, id uuid.UUID) (int64, error) {
	if _, err := uc.Get(ctx, id); err != nil {
		return 0, err
	}
	n, err := uc.cacheRepo.DeleteByPrefix(ctx, cache.DEMPrefix(id))
	if err != nil {
		return 0, err
	}
	uc.logger.Info("DEM cache purged", zap.String("dem_id", id.String()), zap.Int64("keys", n))
	return n, nil
}

// loadGrid читает метаданные и сетку DEM
func loadGrid(ctx context.Context, demRepo repository.DEMRepository, id uuid.UUID, maxCells int) (*domain.DEM, *raster.Grid, error) {
	record, err := demRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if record == nil {
		return nil, nil, errors.ErrDEMNotFound
	}
	blob, err := demRepo.GetRaster(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if blob == nil {
		return nil, nil, errors.ErrDEMNotFound.WithMessage("DEM grid data is missing")
	}
	grid, err := raster.Unmarshal(blob, maxCells)
	if err != nil {
		return nil, nil, err
	}
	return record, grid, nil
}

func parseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, errors.ErrInvalidRequest.WithMessage("invalid id: " + s)
	}
	return id, nil
}
