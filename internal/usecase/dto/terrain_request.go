package dto

import (
	"github.com/paulmach/orb"

	"github.com/terrain-microservice/internal/terrain"
	"github.com/terrain-microservice/internal/terrain/raster"
)

// AnalysisOverrides - переопределение параметров анализа в запросе.
// Незаданные поля берутся из конфигурации сервиса.
type AnalysisOverrides struct {
	FlatSlopeThreshold  *float64 `json:"flat_slope_threshold,omitempty" validate:"omitempty,min=0"`
	FlatThreshold       *float64 `json:"flat_threshold,omitempty" validate:"omitempty,min=0"`
	ModerateThreshold   *float64 `json:"moderate_threshold,omitempty" validate:"omitempty,min=0"`
	SteepThreshold      *float64 `json:"steep_threshold,omitempty" validate:"omitempty,min=0"`
	MaxBuildableSlope   *float64 `json:"max_buildable_slope,omitempty" validate:"omitempty,min=0"`
	SmoothingEnabled    *bool    `json:"smoothing_enabled,omitempty"`
	SmoothingKernelSize *int     `json:"smoothing_kernel_size,omitempty" validate:"omitempty,odd,max=31"`
	SampleInterval      *float64 `json:"sample_interval,omitempty" validate:"omitempty,gt=0"`
	MaxGradeThreshold   *float64 `json:"max_grade_threshold,omitempty" validate:"omitempty,min=0"`
	InterpolationMethod *string  `json:"interpolation_method,omitempty" validate:"omitempty,oneof=linear idw high_quality tin invdist kriging"`
	ValidationTolerance *float64 `json:"validation_tolerance,omitempty" validate:"omitempty,gt=0"`
	RMSEThreshold       *float64 `json:"rmse_threshold,omitempty" validate:"omitempty,gt=0"`
}

// Apply накладывает переопределения на базовую конфигурацию и проверяет результат
func (o *AnalysisOverrides) Apply(base terrain.Config) (terrain.Config, error) {
	cfg := base
	if o == nil {
		return cfg, cfg.Validate()
	}
	setFloat(&cfg.FlatSlopeThreshold, o.FlatSlopeThreshold)
	setFloat(&cfg.Steepness.Flat, o.FlatThreshold)
	setFloat(&cfg.Steepness.Moderate, o.ModerateThreshold)
	setFloat(&cfg.Steepness.Steep, o.SteepThreshold)
	setFloat(&cfg.MaxBuildableSlope, o.MaxBuildableSlope)
	setFloat(&cfg.SampleInterval, o.SampleInterval)
	setFloat(&cfg.MaxGradeThreshold, o.MaxGradeThreshold)
	setFloat(&cfg.ValidationTolerance, o.ValidationTolerance)
	setFloat(&cfg.RMSEThreshold, o.RMSEThreshold)
	if o.SmoothingEnabled != nil {
		cfg.SmoothingEnabled = *o.SmoothingEnabled
	}
	if o.SmoothingKernelSize != nil {
		cfg.SmoothingKernelSize = *o.SmoothingKernelSize
	}
	if o.InterpolationMethod != nil {
		m, err := terrain.ParseInterpolationMethod(*o.InterpolationMethod)
		if err != nil {
			return cfg, err
		}
		cfg.Interpolation = m
	}
	return cfg, cfg.Validate()
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

// ContourInput - изолиния, переданная прямо в запросе
type ContourInput struct {
	Elevation   float64      `json:"elevation"`
	Coordinates [][2]float64 `json:"coordinates" validate:"required,min=2,dive,lnglat"`
}

// GenerateDEMRequest - запрос на построение DEM по изолиниям.
// Изолинии берутся из запроса, по списку id или все изолинии проекта.
type GenerateDEMRequest struct {
	ProjectID  string             `json:"project_id" validate:"required_without_all=Contours ContourIDs,max=128"`
	ContourIDs []int64            `json:"contour_ids,omitempty" validate:"omitempty,max=100000"`
	Contours   []ContourInput     `json:"contours,omitempty" validate:"omitempty,dive"`
	Bounds     raster.Bounds      `json:"bounds"`
	Resolution float64            `json:"resolution" validate:"required,gt=0,max=1000"`
	Options    *AnalysisOverrides `json:"options,omitempty"`
}

// TerrainRGBRequest - запрос на импорт DEM из тайлов Mapbox Terrain-RGB
type TerrainRGBRequest struct {
	ProjectID string        `json:"project_id,omitempty" validate:"max=128"`
	Bounds    raster.Bounds `json:"bounds"`
	Zoom      int           `json:"zoom" validate:"min=0,max=15"`
}

// SlopeRequest - запрос на анализ уклонов
type SlopeRequest struct {
	DEMID        string             `json:"dem_id" validate:"required,uuid"`
	IncludeAreas bool               `json:"include_areas"`
	IncludeGrid  bool               `json:"include_grid"`
	Options      *AnalysisOverrides `json:"options,omitempty"`
}

// AspectRequest - запрос на анализ экспозиции склонов
type AspectRequest struct {
	DEMID        string             `json:"dem_id" validate:"required,uuid"`
	IncludeAreas bool               `json:"include_areas"`
	IncludeGrid  bool               `json:"include_grid"`
	Options      *AnalysisOverrides `json:"options,omitempty"`
}

// ProfileRequest - запрос на профиль высот вдоль линии [lng, lat]
type ProfileRequest struct {
	DEMID       string             `json:"dem_id" validate:"required,uuid"`
	Coordinates [][2]float64       `json:"coordinates" validate:"required,min=2,max=10000,dive,lnglat"`
	Store       bool               `json:"store"`
	Options     *AnalysisOverrides `json:"options,omitempty"`
}

// Line возвращает координаты как orb.LineString
func (r *ProfileRequest) Line() orb.LineString {
	return toLine(r.Coordinates)
}

// Line возвращает координаты изолинии как orb.LineString
func (c ContourInput) Line() orb.LineString {
	return toLine(c.Coordinates)
}

func toLine(coords [][2]float64) orb.LineString {
	line := make(orb.LineString, len(coords))
	for i, c := range coords {
		line[i] = orb.Point{c[0], c[1]}
	}
	return line
}
