package handler

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/terrain-microservice/internal/domain"
	apperrors "github.com/terrain-microservice/internal/pkg/errors"
	"github.com/terrain-microservice/internal/pkg/utils"
	"github.com/terrain-microservice/internal/usecase/dto"
)

// JobService - постановка и просмотр фоновых задач
type JobService interface {
	Submit(ctx context.Context, jobType string, request json.RawMessage) (*domain.Job, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Job, error)
}

// JobHandler - обработчик фоновых задач анализа
type JobHandler struct {
	jobs   JobService
	logger *zap.Logger
}

// NewJobHandler - создание нового JobHandler
func NewJobHandler(jobs JobService, logger *zap.Logger) *JobHandler {
	return &JobHandler{
		jobs:   jobs,
		logger: logger,
	}
}

// Submit godoc
// @Summary Постановка задачи в очередь
// @Description Создает задачу и публикует ее в Redis Stream своего типа. Тело - тот же запрос, что и у синхронного эндпоинта.
// @Tags Jobs
// @Accept json
// @Produce json
// @Param type path string true "Тип задачи (dem, slope, aspect, profile)"
// @Param request body object true "Запрос анализа"
// @Success 202 {object} utils.SuccessResponse{data=dto.JobResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /api/v1/jobs/{type} [post]
func (h *JobHandler) Submit(c *fiber.Ctx) error {
	body := c.Body()
	if len(body) == 0 {
		return utils.SendError(c, apperrors.ErrInvalidRequest.WithMessage("empty request body"))
	}
	// fasthttp переиспользует буфер тела после ответа
	request := json.RawMessage(append([]byte(nil), body...))

	job, err := h.jobs.Submit(c.Context(), c.Params("type"), request)
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendAccepted(c, dto.JobResponse{Job: job})
}

// Get godoc
// @Summary Состояние задачи
// @Tags Jobs
// @Produce json
// @Param id path string true "ID задачи"
// @Success 200 {object} utils.SuccessResponse{data=dto.JobResponse}
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/jobs/{id} [get]
func (h *JobHandler) Get(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return utils.SendError(c, err)
	}

	job, err := h.jobs.Get(c.Context(), id)
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, dto.JobResponse{Job: job}, nil)
}
