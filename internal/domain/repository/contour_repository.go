package repository

import (
	"context"

	"github.com/terrain-microservice/internal/terrain/dem"
)

// ContourRepository читает изолинии из PostGIS
type ContourRepository interface {
	// GetByProject возвращает все изолинии проекта
	GetByProject(ctx context.Context, projectID string) ([]dem.Contour, error)

	// GetByIDs возвращает изолинии по списку идентификаторов
	GetByIDs(ctx context.Context, ids []int64) ([]dem.Contour, error)
}
