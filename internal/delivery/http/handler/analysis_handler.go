package handler

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/terrain-microservice/internal/domain"
	apperrors "github.com/terrain-microservice/internal/pkg/errors"
	"github.com/terrain-microservice/internal/pkg/utils"
	"github.com/terrain-microservice/internal/usecase/dto"
)

// AnalysisService - анализ уклонов и экспозиции поверхности
type AnalysisService interface {
	Slope(ctx context.Context, req dto.SlopeRequest) (*dto.SlopeResponse, error)
	Aspect(ctx context.Context, req dto.AspectRequest) (*dto.AspectResponse, error)
	History(ctx context.Context, demID uuid.UUID, kind domain.AnalysisKind) ([]*domain.Analysis, error)
}

// ProfileService - профили высот вдоль линии
type ProfileService interface {
	Analyze(ctx context.Context, req dto.ProfileRequest) (*dto.ProfileResponse, error)
	ExportCSV(ctx context.Context, id uuid.UUID, w io.Writer) error
	ExportJSON(ctx context.Context, id uuid.UUID, w io.Writer) error
}

// AnalysisHandler - обработчик запросов анализа рельефа
type AnalysisHandler struct {
	analysis AnalysisService
	profiles ProfileService
	logger   *zap.Logger
}

// NewAnalysisHandler - создание нового AnalysisHandler
func NewAnalysisHandler(analysis AnalysisService, profiles ProfileService, logger *zap.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		analysis: analysis,
		profiles: profiles,
		logger:   logger,
	}
}

// Slope godoc
// @Summary Анализ уклонов
// @Description Считает уклон по DEM, статистику по классам крутизны и, по запросу, полигоны непригодных для застройки участков и классифицированную сетку
// @Tags Analysis
// @Accept json
// @Produce json
// @Param request body dto.SlopeRequest true "DEM и параметры анализа"
// @Success 200 {object} utils.SuccessResponse{data=dto.SlopeResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Router /api/v1/analysis/slope [post]
func (h *AnalysisHandler) Slope(c *fiber.Ctx) error {
	var req dto.SlopeRequest
	if err := parseBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}

	start := time.Now()
	result, err := h.analysis.Slope(c.Context(), req)
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, result, &utils.Meta{
		TimeMSec: elapsedMS(start),
		Cached:   result.Cached,
	})
}

// Aspect godoc
// @Summary Анализ экспозиции склонов
// @Description Распределение склонов по 8 направлениям, доля северных и южных склонов, круговое среднее азимута
// @Tags Analysis
// @Accept json
// @Produce json
// @Param request body dto.AspectRequest true "DEM и параметры анализа"
// @Success 200 {object} utils.SuccessResponse{data=dto.AspectResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/analysis/aspect [post]
func (h *AnalysisHandler) Aspect(c *fiber.Ctx) error {
	var req dto.AspectRequest
	if err := parseBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}

	start := time.Now()
	result, err := h.analysis.Aspect(c.Context(), req)
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, result, &utils.Meta{
		TimeMSec: elapsedMS(start),
		Cached:   result.Cached,
	})
}

// History godoc
// @Summary История анализов DEM
// @Tags Analysis
// @Produce json
// @Param id path string true "ID DEM"
// @Param kind query string false "Вид анализа (slope, aspect)" default(slope)
// @Success 200 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Router /api/v1/dems/{id}/analyses [get]
func (h *AnalysisHandler) History(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return utils.SendError(c, err)
	}

	kind := domain.AnalysisKind(c.Query("kind", string(domain.AnalysisSlope)))
	if kind != domain.AnalysisSlope && kind != domain.AnalysisAspect {
		return utils.SendError(c, apperrors.ErrInvalidRequest.WithMessage("kind must be slope or aspect"))
	}

	analyses, err := h.analysis.History(c.Context(), id, kind)
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, fiber.Map{
		"analyses": analyses,
	}, &utils.Meta{
		Total: len(analyses),
	})
}

// Profile godoc
// @Summary Профиль высот вдоль линии
// @Description Сэмплирует DEM вдоль линии с заданным шагом и считает уклоны, набор и сброс высоты. При store=true профиль сохраняется для экспорта в CSV.
// @Tags Analysis
// @Accept json
// @Produce json
// @Param request body dto.ProfileRequest true "DEM и линия [lng, lat]"
// @Success 200 {object} utils.SuccessResponse{data=dto.ProfileResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Router /api/v1/analysis/profile [post]
func (h *AnalysisHandler) Profile(c *fiber.Ctx) error {
	var req dto.ProfileRequest
	if err := parseBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}

	result, err := h.profiles.Analyze(c.Context(), req)
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, result, &utils.Meta{
		Total: len(result.Points),
	})
}

// ProfileCSV godoc
// @Summary Экспорт сохраненного профиля в CSV
// @Tags Analysis
// @Produce text/csv
// @Param id path string true "ID профиля"
// @Success 200 {string} string "CSV"
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/profiles/{id}/csv [get]
func (h *AnalysisHandler) ProfileCSV(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return utils.SendError(c, err)
	}

	var buf bytes.Buffer
	if err := h.profiles.ExportCSV(c.Context(), id, &buf); err != nil {
		return utils.SendError(c, err)
	}

	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="profile-`+id.String()+`.csv"`)
	return c.Send(buf.Bytes())
}

// ProfileJSON godoc
// @Summary Экспорт сохраненного профиля в JSON
// @Tags Analysis
// @Produce json
// @Param id path string true "ID профиля"
// @Success 200 {object} profile.Profile
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/profiles/{id}/json [get]
func (h *AnalysisHandler) ProfileJSON(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return utils.SendError(c, err)
	}

	var buf bytes.Buffer
	if err := h.profiles.ExportJSON(c.Context(), id, &buf); err != nil {
		return utils.SendError(c, err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="profile-`+id.String()+`.json"`)
	return c.Send(buf.Bytes())
}

func elapsedMS(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
