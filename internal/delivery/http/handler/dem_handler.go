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
	"github.com/terrain-microservice/internal/usecase"
	"github.com/terrain-microservice/internal/usecase/dto"
)

// DEMService - операции над цифровыми моделями рельефа
type DEMService interface {
	Generate(ctx context.Context, req dto.GenerateDEMRequest, progress usecase.ProgressFunc) (*dto.DEMResponse, error)
	ImportASCII(ctx context.Context, projectID string, r io.Reader) (*dto.DEMResponse, error)
	ImportTerrainRGB(ctx context.Context, req dto.TerrainRGBRequest) (*dto.DEMResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.DEM, error)
	ListByProject(ctx context.Context, projectID string) ([]*domain.DEM, error)
	ExportASCII(ctx context.Context, id uuid.UUID, w io.Writer) error
	PurgeCache(ctx context.Context, id uuid.UUID) (int64, error)
}

// DEMHandler - обработчик запросов к DEM
type DEMHandler struct {
	dems   DEMService
	logger *zap.Logger
}

// NewDEMHandler - создание нового DEMHandler
func NewDEMHandler(dems DEMService, logger *zap.Logger) *DEMHandler {
	return &DEMHandler{
		dems:   dems,
		logger: logger,
	}
}

// Generate godoc
// @Summary Построение DEM по изолиниям
// @Description Синхронно интерполирует изолинии в регулярную сетку высот, проверяет качество (RMSE) и сохраняет результат. Изолинии передаются в запросе, по ID или берутся из проекта.
// @Tags DEM
// @Accept json
// @Produce json
// @Param request body dto.GenerateDEMRequest true "Охват, разрешение и источник изолиний"
// @Success 200 {object} utils.SuccessResponse{data=dto.DEMResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /api/v1/dems/generate [post]
func (h *DEMHandler) Generate(c *fiber.Ctx) error {
	var req dto.GenerateDEMRequest
	if err := parseBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}

	start := time.Now()
	result, err := h.dems.Generate(c.Context(), req, nil)
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, result, &utils.Meta{
		TimeMSec: elapsedMS(start),
	})
}

// ImportASCII godoc
// @Summary Импорт DEM в формате ESRI ASCII Grid
// @Tags DEM
// @Accept plain
// @Produce json
// @Param project_id query string false "Проект, к которому относится сетка"
// @Param grid body string true "Содержимое .asc файла"
// @Success 200 {object} utils.SuccessResponse{data=dto.DEMResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /api/v1/dems/import [post]
func (h *DEMHandler) ImportASCII(c *fiber.Ctx) error {
	body := c.Body()
	if len(body) == 0 {
		return utils.SendError(c, apperrors.ErrInvalidRequest.WithMessage("empty grid body"))
	}

	result, err := h.dems.ImportASCII(c.Context(), c.Query("project_id"), bytes.NewReader(body))
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, result, nil)
}

// ImportTerrainRGB godoc
// @Summary Импорт DEM из тайлов Mapbox Terrain-RGB
// @Description Загружает тайлы высот для охвата, собирает из них сетку и сохраняет как DEM
// @Tags DEM
// @Accept json
// @Produce json
// @Param request body dto.TerrainRGBRequest true "Охват и зум тайлов"
// @Success 200 {object} utils.SuccessResponse{data=dto.DEMResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 503 {object} utils.ErrorResponse
// @Router /api/v1/dems/terrain-rgb [post]
func (h *DEMHandler) ImportTerrainRGB(c *fiber.Ctx) error {
	var req dto.TerrainRGBRequest
	if err := parseBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}

	result, err := h.dems.ImportTerrainRGB(c.Context(), req)
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, result, nil)
}

// Get godoc
// @Summary Метаданные DEM
// @Tags DEM
// @Produce json
// @Param id path string true "ID DEM"
// @Success 200 {object} utils.SuccessResponse{data=domain.DEM}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/dems/{id} [get]
func (h *DEMHandler) Get(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return utils.SendError(c, err)
	}

	record, err := h.dems.Get(c.Context(), id)
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, record, nil)
}

// ListByProject godoc
// @Summary Список DEM проекта
// @Tags DEM
// @Produce json
// @Param project_id path string true "ID проекта"
// @Success 200 {object} utils.SuccessResponse{data=[]domain.DEM}
// @Failure 500 {object} utils.ErrorResponse
// @Router /api/v1/projects/{project_id}/dems [get]
func (h *DEMHandler) ListByProject(c *fiber.Ctx) error {
	records, err := h.dems.ListByProject(c.Context(), c.Params("project_id"))
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, fiber.Map{
		"dems": records,
	}, &utils.Meta{
		Total: len(records),
	})
}

// ExportASCII godoc
// @Summary Экспорт DEM в ESRI ASCII Grid
// @Tags DEM
// @Produce plain
// @Param id path string true "ID DEM"
// @Success 200 {string} string "Содержимое .asc файла"
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/dems/{id}/grid.asc [get]
func (h *DEMHandler) ExportASCII(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return utils.SendError(c, err)
	}

	var buf bytes.Buffer
	if err := h.dems.ExportASCII(c.Context(), id, &buf); err != nil {
		return utils.SendError(c, err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+id.String()+`.asc"`)
	return c.Send(buf.Bytes())
}

// PurgeCache godoc
// @Summary Сброс кэша результатов анализа для DEM
// @Tags DEM
// @Produce json
// @Param id path string true "ID DEM"
// @Success 200 {object} utils.SuccessResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/dems/{id}/cache [delete]
func (h *DEMHandler) PurgeCache(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return utils.SendError(c, err)
	}

	deleted, err := h.dems.PurgeCache(c.Context(), id)
	if err != nil {
		return utils.SendError(c, err)
	}

	h.logger.Info("DEM cache purged", zap.String("dem_id", id.String()), zap.Int64("deleted", deleted))
	return utils.SendSuccess(c, fiber.Map{
		"deleted": deleted,
	}, nil)
}
