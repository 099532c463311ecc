package dto

import (
	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"

	"github.com/terrain-microservice/internal/domain"
	"github.com/terrain-microservice/internal/terrain"
	"github.com/terrain-microservice/internal/terrain/classify"
	"github.com/terrain-microservice/internal/terrain/dem"
	"github.com/terrain-microservice/internal/terrain/profile"
	"github.com/terrain-microservice/internal/terrain/raster"
)

// DEMResponse - сохраненная сетка высот и метрики проверки качества
type DEMResponse struct {
	DEM        *domain.DEM     `json:"dem"`
	Validation *dem.Validation `json:"validation,omitempty"`
}

// GridPayload - классифицированная сетка для отрисовки на клиенте (строки с севера на юг)
type GridPayload struct {
	Width  int           `json:"width"`
	Height int           `json:"height"`
	Bounds raster.Bounds `json:"bounds"`
	NoData float64       `json:"no_data"`
	Values []float64     `json:"values"`
}

// NewGridPayload копирует значения сетки в ответ
func NewGridPayload(g *raster.Grid) *GridPayload {
	return &GridPayload{
		Width:  g.Width(),
		Height: g.Height(),
		Bounds: g.Bounds(),
		NoData: g.NoData(),
		Values: g.Values(),
	}
}

// SlopeResponse - результат анализа уклонов
type SlopeResponse struct {
	AnalysisID uuid.UUID                  `json:"analysis_id"`
	DEMID      uuid.UUID                  `json:"dem_id"`
	Config     terrain.Config             `json:"config"`
	Stats      classify.SlopeStats        `json:"statistics"`
	Legend     []classify.LegendEntry     `json:"legend"`
	Areas      *geojson.FeatureCollection `json:"unbuildable_areas,omitempty"`
	Grid       *GridPayload               `json:"grid,omitempty"`
	Cached     bool                       `json:"cached"`
}

// AspectResponse - результат анализа экспозиции склонов
type AspectResponse struct {
	AnalysisID uuid.UUID                  `json:"analysis_id"`
	DEMID      uuid.UUID                  `json:"dem_id"`
	Config     terrain.Config             `json:"config"`
	Stats      classify.AspectStats       `json:"statistics"`
	Legend     []classify.LegendEntry     `json:"legend"`
	Areas      *geojson.FeatureCollection `json:"facing_areas,omitempty"`
	Grid       *GridPayload               `json:"grid,omitempty"`
	Cached     bool                       `json:"cached"`
}

// ProfileResponse - профиль высот; ProfileID задан, если профиль сохранен
type ProfileResponse struct {
	ProfileID *uuid.UUID        `json:"profile_id,omitempty"`
	DEMID     uuid.UUID         `json:"dem_id"`
	Points    []profile.Point   `json:"points"`
	Dropped   []profile.Dropped `json:"dropped,omitempty"`
	Stats     profile.Stats     `json:"statistics"`
}

// JobResponse - состояние задачи анализа
type JobResponse struct {
	Job *domain.Job `json:"job"`
}

// HealthResponse - состояние зависимостей сервиса
type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}
