package usecase

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/terrain-microservice/internal/domain"
	"github.com/terrain-microservice/internal/domain/repository"
	"github.com/terrain-microservice/internal/pkg/errors"
	"github.com/terrain-microservice/internal/pkg/validator"
	"github.com/terrain-microservice/internal/terrain"
	"github.com/terrain-microservice/internal/terrain/profile"
	"github.com/terrain-microservice/internal/usecase/dto"
)

// ProfileUseCase строит профили высот вдоль линий по сохраненной DEM
type ProfileUseCase struct {
	demRepo     repository.DEMRepository
	profileRepo repository.ProfileRepository
	analysis    terrain.Config
	logger      *zap.Logger
	now         func() time.Time
}

func NewProfileUseCase(
	demRepo repository.DEMRepository,
	profileRepo repository.ProfileRepository,
	analysis terrain.Config,
	logger *zap.Logger,
) *ProfileUseCase {
	return &ProfileUseCase{
		demRepo:     demRepo,
		profileRepo: profileRepo,
		analysis:    analysis,
		logger:      logger,
		now:         time.Now,
	}
}

// Analyze семплирует линию с шагом SampleInterval, считает уклоны и сводку.
// При req.Store профиль сохраняется и в ответе возвращается его id.
func (uc *ProfileUseCase) Analyze(ctx context.Context, req dto.ProfileRequest) (*dto.ProfileResponse, error) {
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
	line := req.Line()
	if err := profile.ValidateLine(line); err != nil {
		return nil, err
	}

	_, grid, err := loadGrid(ctx, uc.demRepo, demID, cfg.MaxGridCells)
	if err != nil {
		return nil, err
	}
	p, err := profile.Analyze(ctx, grid, line, cfg)
	if err != nil {
		return nil, err
	}
	if len(p.Dropped) > 0 {
		uc.logger.Warn("Profile samples dropped",
			zap.String("dem_id", demID.String()),
			zap.Int("dropped", len(p.Dropped)),
			zap.String("first_reason", p.Dropped[0].Reason))
	}

	resp := &dto.ProfileResponse{
		DEMID:   demID,
		Points:  p.Points,
		Dropped: p.Dropped,
		Stats:   p.Stats,
	}
	if req.Store {
		id, err := uc.save(ctx, demID, req, p)
		if err != nil {
			return nil, err
		}
		resp.ProfileID = &id
	}

	uc.logger.Info("Profile computed",
		zap.String("dem_id", demID.String()),
		zap.Int("points", len(p.Points)),
		zap.Float64("total_distance", p.Stats.TotalDistance),
		zap.Float64("excessive_grade_percent", p.Stats.ExcessiveGradePercent))

	return resp, nil
}

func (uc *ProfileUseCase) save(ctx context.Context, demID uuid.UUID, req dto.ProfileRequest, p *profile.Profile) (uuid.UUID, error) {
	record := &domain.Profile{
		ID:        uuid.New(),
		DEMID:     demID,
		CreatedAt: uc.now().UTC(),
	}
	var err error
	if record.Line, err = json.Marshal(geojson.NewGeometry(req.Line())); err != nil {
		return uuid.Nil, err
	}
	if record.Points, err = json.Marshal(p.Points); err != nil {
		return uuid.Nil, err
	}
	if record.Stats, err = json.Marshal(p.Stats); err != nil {
		return uuid.Nil, err
	}
	if err := uc.profileRepo.Create(ctx, record); err != nil {
		return uuid.Nil, err
	}
	return record.ID, nil
}

// Get возвращает сохраненный профиль
func (uc *ProfileUseCase) Get(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	record, err := uc.profileRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, errors.ErrProfileNotFound
	}
	return record, nil
}

// ExportCSV пишет точки сохраненного профиля в CSV
func (uc *ProfileUseCase) ExportCSV(ctx context.Context, id uuid.UUID, w io.Writer) error {
	record, err := uc.Get(ctx, id)
	if err != nil {
		return err
	}
	var points []profile.Point
	if err := json.Unmarshal(record.Points, &points); err != nil {
		uc.logger.Error("Corrupted profile points", zap.String("profile_id", id.String()), zap.Error(err))
		return errors.ErrInternalServer
	}
	return profile.WriteCSV(w, points)
}

// ExportJSON пишет точки и статистику сохраненного профиля одним JSON документом
func (uc *ProfileUseCase) ExportJSON(ctx context.Context, id uuid.UUID, w io.Writer) error {
	record, err := uc.Get(ctx, id)
	if err != nil {
		return err
	}
	var p profile.Profile
	if err := json.Unmarshal(record.Points, &p.Points); err != nil {
		uc.logger.Error("Corrupted profile points", zap.String("profile_id", id.String()), zap.Error(err))
		return errors.ErrInternalServer
	}
	if err := json.Unmarshal(record.Stats, &p.Stats); err != nil {
		uc.logger.Error("Corrupted profile stats", zap.String("profile_id", id.String()), zap.Error(err))
		return errors.ErrInternalServer
	}
	return profile.WriteJSON(w, &p)
}
