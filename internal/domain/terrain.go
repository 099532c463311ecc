package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/terrain-microservice/internal/terrain/raster"
)

// DEMSource - происхождение сетки высот
type DEMSource string

const (
	DEMSourceContours   DEMSource = "contours"
	DEMSourceASCII      DEMSource = "ascii_grid"
	DEMSourceTerrainRGB DEMSource = "terrain_rgb"
)

// DEM - метаданные сохраненной сетки высот. Сами значения хранятся
// отдельным блобом (raster.Marshal).
type DEM struct {
	ID            uuid.UUID `json:"id" db:"id"`
	ProjectID     *string   `json:"project_id,omitempty" db:"project_id"`
	Source        DEMSource `json:"source" db:"source"`
	MinLng        float64   `json:"min_lng" db:"min_lng"`
	MinLat        float64   `json:"min_lat" db:"min_lat"`
	MaxLng        float64   `json:"max_lng" db:"max_lng"`
	MaxLat        float64   `json:"max_lat" db:"max_lat"`
	Width         int       `json:"width" db:"width"`
	Height        int       `json:"height" db:"height"`
	Resolution    *float64  `json:"resolution,omitempty" db:"resolution"`
	Interpolation *string   `json:"interpolation_method,omitempty" db:"interpolation_method"`
	MinElevation  float64   `json:"min_elevation" db:"min_elevation"`
	MaxElevation  float64   `json:"max_elevation" db:"max_elevation"`
	AvgElevation  float64   `json:"avg_elevation" db:"avg_elevation"`
	RMSE          *float64  `json:"rmse,omitempty" db:"rmse"`
	MaxDeviation  *float64  `json:"max_deviation,omitempty" db:"max_deviation"`
	MatchPercent  *float64  `json:"match_percent,omitempty" db:"match_percent"`
	FilledCells   int       `json:"filled_cells" db:"filled_cells"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// Bounds возвращает охват DEM
func (d *DEM) Bounds() raster.Bounds {
	return raster.Bounds{MinLng: d.MinLng, MinLat: d.MinLat, MaxLng: d.MaxLng, MaxLat: d.MaxLat}
}

// SetBounds копирует охват в плоские поля записи
func (d *DEM) SetBounds(b raster.Bounds) {
	d.MinLng, d.MinLat, d.MaxLng, d.MaxLat = b.MinLng, b.MinLat, b.MaxLng, b.MaxLat
}

// AnalysisKind - вид анализа поверхности
type AnalysisKind string

const (
	AnalysisSlope  AnalysisKind = "slope"
	AnalysisAspect AnalysisKind = "aspect"
)

// Analysis - сохраненный результат анализа уклонов или экспозиции.
// Stats и Areas хранятся как JSONB.
type Analysis struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	DEMID     uuid.UUID       `json:"dem_id" db:"dem_id"`
	Kind      AnalysisKind    `json:"kind" db:"kind"`
	Config    json.RawMessage `json:"config" db:"config"`
	Stats     json.RawMessage `json:"stats" db:"stats"`
	Areas     json.RawMessage `json:"areas,omitempty" db:"areas"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// Profile - сохраненный профиль высот вдоль линии
type Profile struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	DEMID     uuid.UUID       `json:"dem_id" db:"dem_id"`
	Line      json.RawMessage `json:"line" db:"line"`
	Points    json.RawMessage `json:"points" db:"points"`
	Stats     json.RawMessage `json:"stats" db:"stats"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}
