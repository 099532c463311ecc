package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/terrain-microservice/internal/domain"
)

// AnalysisRepository хранит результаты анализа уклонов и экспозиции
type AnalysisRepository interface {
	Create(ctx context.Context, a *domain.Analysis) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Analysis, error)
	ListByDEM(ctx context.Context, demID uuid.UUID, kind domain.AnalysisKind) ([]*domain.Analysis, error)
}

// ProfileRepository хранит профили высот
type ProfileRepository interface {
	Create(ctx context.Context, p *domain.Profile) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error)
}
