package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	apperrors "github.com/terrain-microservice/internal/pkg/errors"
)

// paramUUID читает UUID из параметра пути
func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	raw := c.Params(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.ErrInvalidRequest.WithMessage("invalid " + name + ": " + raw)
	}
	return id, nil
}

// parseBody разбирает JSON тело запроса; ошибка разбора - INVALID_REQUEST
func parseBody(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return apperrors.ErrInvalidRequest.WithMessage("Invalid request body")
	}
	return nil
}
