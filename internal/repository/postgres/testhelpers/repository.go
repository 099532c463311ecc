package testhelpers

import (
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/terrain-microservice/internal/domain/repository"
	"github.com/terrain-microservice/internal/repository/postgres"
)

// NewDBForTest creates a postgres.DB with test database and logger
func NewDBForTest(db *sqlx.DB, logger *zap.Logger) *postgres.DB {
	return postgres.NewDBForTest(db, logger)
}

func NewJobRepositoryForTest(db *sqlx.DB, logger *zap.Logger) repository.JobRepository {
	return postgres.NewJobRepository(NewDBForTest(db, logger))
}

func NewDEMRepositoryForTest(db *sqlx.DB, logger *zap.Logger) repository.DEMRepository {
	return postgres.NewDEMRepository(NewDBForTest(db, logger))
}

func NewAnalysisRepositoryForTest(db *sqlx.DB, logger *zap.Logger) repository.AnalysisRepository {
	return postgres.NewAnalysisRepository(NewDBForTest(db, logger))
}

func NewProfileRepositoryForTest(db *sqlx.DB, logger *zap.Logger) repository.ProfileRepository {
	return postgres.NewProfileRepository(NewDBForTest(db, logger))
}

func NewContourRepositoryForTest(db *sqlx.DB, logger *zap.Logger) repository.ContourRepository {
	return postgres.NewContourRepository(NewDBForTest(db, logger))
}
