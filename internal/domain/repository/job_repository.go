package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/terrain-microservice/internal/domain"
)

// JobRepository определяет методы для работы с задачами анализа
type JobRepository interface {
	// Create сохраняет новую задачу
	Create(ctx context.Context, job *domain.Job) error

	// GetByID возвращает задачу; отсутствие - (nil, nil)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error)

	// Update сохраняет статус, прогресс, результат и временные метки
	Update(ctx context.Context, job *domain.Job) error

	// UpdateProgress обновляет только процент выполнения
	UpdateProgress(ctx context.Context, id uuid.UUID, progress int) error

	// FailStale переводит в failed задачи в processing, начатые раньше olderThan
	FailStale(ctx context.Context, olderThan time.Time, message string) (int64, error)
}
