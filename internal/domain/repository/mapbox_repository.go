package repository

import (
	"context"

	"github.com/terrain-microservice/internal/terrain/raster"
)

// ElevationSource определяет внешний источник высот (Mapbox Terrain-RGB)
type ElevationSource interface {
	// FetchGrid строит сетку высот north-up для охвата на заданном зуме тайлов
	FetchGrid(ctx context.Context, bounds raster.Bounds, zoom int) (*raster.Grid, error)
}
