package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/terrain-microservice/internal/domain"
)

// DEMRepository хранит метаданные DEM и сжатую сетку высот
type DEMRepository interface {
	// Create сохраняет запись и блоб сетки в одной транзакции
	Create(ctx context.Context, dem *domain.DEM, raster []byte) error

	// GetByID возвращает метаданные; отсутствие - (nil, nil)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.DEM, error)

	// GetRaster возвращает блоб сетки; отсутствие - (nil, nil)
	GetRaster(ctx context.Context, id uuid.UUID) ([]byte, error)

	// ListByProject возвращает DEM проекта, новые первыми
	ListByProject(ctx context.Context, projectID string) ([]*domain.DEM, error)
}
