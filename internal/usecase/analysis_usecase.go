package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/terrain-microservice/internal/domain"
	"github.com/terrain-microservice/internal/domain/repository"
	"github.com/terrain-microservice/internal/pkg/validator"
	"github.com/terrain-microservice/internal/repository/cache"
	"github.com/terrain-microservice/internal/terrain"
	"github.com/terrain-microservice/internal/terrain/classify"
	"github.com/terrain-microservice/internal/terrain/gradient"
	"github.com/terrain-microservice/internal/terrain/vectorize"
	"github.com/terrain-microservice/internal/usecase/dto"
)

// AnalysisUseCase - анализ уклонов и экспозиции склонов по сохраненной DEM.
// Результаты сохраняются в БД и кешируются в Redis по DEM и параметрам.
type AnalysisUseCase struct {
	demRepo      repository.DEMRepository
	analysisRepo repository.AnalysisRepository
	cacheRepo    repository.CacheRepository
	analysis     terrain.Config
	cacheTTL     time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

func NewAnalysisUseCase(
	demRepo repository.DEMRepository,
	analysisRepo repository.AnalysisRepository,
	cacheRepo repository.CacheRepository,
	analysis terrain.Config,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *AnalysisUseCase {
	return &AnalysisUseCase{
		demRepo:      demRepo,
		analysisRepo: analysisRepo,
		cacheRepo:    cacheRepo,
		analysis:     analysis,
		cacheTTL:     cacheTTL,
		logger:       logger,
		now:          time.Now,
	}
}

// cacheParams - все, что влияет на ответ; сериализуется в ключ кеша
type cacheParams struct {
	Config       terrain.Config `json:"config"`
	IncludeAreas bool           `json:"areas"`
	IncludeGrid  bool           `json:"grid"`
}

// Slope считает уклоны, статистику по классам крутизны и (по запросу)
// полигоны непригодных для застройки участков
func (uc *AnalysisUseCase) Slope(ctx context.Context, req dto.SlopeRequest) (*dto.SlopeResponse, error) {
	if err := validator.Validate(&req); err != nil {
		return nil, err
	}
	demID, err := parseID(req.DEMID)
	if err != nil {
		return nil, err
	}
	cfg, err := req.Options.Apply(uc.analysis)
	if err != nil {
		return nil, err
	}

	key, err := cache.ResultKey(demID, string(domain.AnalysisSlope), cacheParams{cfg, req.IncludeAreas, req.IncludeGrid})
	if err != nil {
		return nil, err
	}
	var cached dto.SlopeResponse
	if uc.fromCache(ctx, key, &cached) {
		cached.Cached = true
		return &cached, nil
	}

	surface, err := uc.surface(ctx, demID, cfg)
	if err != nil {
		return nil, err
	}
	stats, err := classify.ComputeSlopeStats(surface.Slope, cfg)
	if err != nil {
		return nil, err
	}

	resp := &dto.SlopeResponse{
		AnalysisID: uuid.New(),
		DEMID:      demID,
		Config:     cfg,
		Stats:      stats,
		Legend:     classify.SteepnessLegend(),
	}
	if req.IncludeAreas {
		mask, err := classify.UnbuildableMask(surface.Slope, cfg.MaxBuildableSlope)
		if err != nil {
			return nil, err
		}
		resp.Areas = vectorize.ToFeatureCollection(vectorize.Polygonize(mask), map[string]any{
			"category":          "unbuildable",
			"maxBuildableSlope": cfg.MaxBuildableSlope,
		})
	}
	if req.IncludeGrid {
		classes, err := classify.SteepnessGrid(surface.Slope, cfg.Steepness)
		if err != nil {
			return nil, err
		}
		resp.Grid = dto.NewGridPayload(classes)
	}

	if err := uc.save(ctx, resp.AnalysisID, demID, domain.AnalysisSlope, cfg, stats, resp.Areas); err != nil {
		return nil, err
	}
	uc.toCache(ctx, key, resp)

	uc.logger.Info("Slope analysis completed",
		zap.String("dem_id", demID.String()),
		zap.Float64("mean_slope", stats.Mean),
		zap.Float64("unbuildable_percent", stats.UnbuildablePercent))

	return resp, nil
}

// Aspect считает экспозицию, статистику по румбам и (по запросу)
// полигоны северных и южных склонов
func (uc *AnalysisUseCase) Aspect(ctx context.Context, req dto.AspectRequest) (*dto.AspectResponse, error) {
	if err := validator.Validate(&req); err != nil {
		return nil, err
	}
	demID, err := parseID(req.DEMID)
	if err != nil {
		return nil, err
	}
	cfg, err := req.Options.Apply(uc.analysis)
	if err != nil {
		return nil, err
	}

	key, err := cache.ResultKey(demID, string(domain.AnalysisAspect), cacheParams{cfg, req.IncludeAreas, req.IncludeGrid})
	if err != nil {
		return nil, err
	}
	var cached dto.AspectResponse
	if uc.fromCache(ctx, key, &cached) {
		cached.Cached = true
		return &cached, nil
	}

	surface, err := uc.surface(ctx, demID, cfg)
	if err != nil {
		return nil, err
	}
	stats := classify.ComputeAspectStats(surface.Aspect)

	resp := &dto.AspectResponse{
		AnalysisID: uuid.New(),
		DEMID:      demID,
		Config:     cfg,
		Stats:      stats,
		Legend:     classify.DirectionLegend(),
	}
	if req.IncludeAreas {
		north, south, err := classify.FacingMasks(surface.Aspect)
		if err != nil {
			return nil, err
		}
		areas := vectorize.ToFeatureCollection(vectorize.Polygonize(north), map[string]any{"category": "north-facing"})
		for _, f := range vectorize.ToFeatureCollection(vectorize.Polygonize(south), map[string]any{"category": "south-facing"}).Features {
			areas.Append(f)
		}
		resp.Areas = areas
	}
	if req.IncludeGrid {
		directions, err := classify.DirectionGrid(surface.Aspect)
		if err != nil {
			return nil, err
		}
		resp.Grid = dto.NewGridPayload(directions)
	}

	if err := uc.save(ctx, resp.AnalysisID, demID, domain.AnalysisAspect, cfg, stats, resp.Areas); err != nil {
		return nil, err
	}
	uc.toCache(ctx, key, resp)

	uc.logger.Info("Aspect analysis completed",
		zap.String("dem_id", demID.String()),
		zap.Stringer("dominant_direction", stats.Dominant),
		zap.Float64("flat_percent", stats.FlatPercent))

	return resp, nil
}

// History возвращает сохраненные анализы DEM указанного вида
func (uc *AnalysisUseCase) History(ctx context.Context, demID uuid.UUID, kind domain.AnalysisKind) ([]*domain.Analysis, error) {
	return uc.analysisRepo.ListByDEM(ctx, demID, kind)
}

func (uc *AnalysisUseCase) surface(ctx context.Context, demID uuid.UUID, cfg terrain.Config) (*gradient.Surface, error) {
	_, grid, err := loadGrid(ctx, uc.demRepo, demID, cfg.MaxGridCells)
	if err != nil {
		return nil, err
	}
	return gradient.Compute(ctx, grid, gradient.OptionsFromConfig(cfg))
}

func (uc *AnalysisUseCase) save(
	ctx context.Context,
	id, demID uuid.UUID,
	kind domain.AnalysisKind,
	cfg terrain.Config,
	stats any,
	areas *geojson.FeatureCollection,
) error {
	record := &domain.Analysis{
		ID:        id,
		DEMID:     demID,
		Kind:      kind,
		CreatedAt: uc.now().UTC(),
	}
	var err error
	if record.Config, err = json.Marshal(cfg); err != nil {
		return err
	}
	if record.Stats, err = json.Marshal(stats); err != nil {
		return err
	}
	if areas != nil {
		if record.Areas, err = json.Marshal(areas); err != nil {
			return err
		}
	}
	return uc.analysisRepo.Create(ctx, record)
}

// fromCache читает ответ из кеша; ошибки кеша не прерывают анализ
func (uc *AnalysisUseCase) fromCache(ctx context.Context, key string, dst any) bool {
	raw, err := uc.cacheRepo.Get(ctx, key)
	if err != nil {
		uc.logger.Warn("Failed to read analysis cache", zap.String("key", key), zap.Error(err))
		return false
	}
	if raw == nil {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		uc.logger.Warn("Corrupted analysis cache entry", zap.String("key", key), zap.Error(err))
		return false
	}
	uc.logger.Debug("Analysis cache hit", zap.String("key", key))
	return true
}

func (uc *AnalysisUseCase) toCache(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		uc.logger.Warn("Failed to encode analysis for cache", zap.Error(err))
		return
	}
	if err := uc.cacheRepo.Set(ctx, key, raw, uc.cacheTTL); err != nil {
		uc.logger.Warn("Failed to write analysis cache", zap.String("key", key), zap.Error(err))
	}
}
