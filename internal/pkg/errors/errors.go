package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	reqvalidator "github.com/terrain-microservice/internal/pkg/validator"
	"github.com/terrain-microservice/internal/terrain"
)

type AppError struct {
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	StatusCode int                    `json:"-"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Details:    make(map[string]interface{}),
	}
}

// WithDetails возвращает копию ошибки с деталями, общие переменные не изменяются
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// WithMessage возвращает копию ошибки с другим сообщением
func (e *AppError) WithMessage(message string) *AppError {
	cp := *e
	cp.Message = message
	return &cp
}

// FromTerrain переводит ошибку движка анализа рельефа в AppError.
// Уже готовый AppError возвращается как есть, ошибки валидации - 400,
// неизвестные ошибки - 500.
func FromTerrain(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	var ve validator.ValidationErrors
	var qe *terrain.QualityGateError
	switch {
	case stderrors.As(err, &ve):
		return ErrInvalidRequest.WithMessage(err.Error()).WithDetails(reqvalidator.Fields(err))
	case stderrors.As(err, &qe):
		return New(CodeQualityGateFailed, err.Error(), http.StatusUnprocessableEntity).
			WithDetails(map[string]interface{}{"rmse": qe.RMSE, "threshold": qe.Threshold})
	case stderrors.Is(err, terrain.ErrInput):
		return New(CodeInvalidInput, err.Error(), http.StatusBadRequest)
	case stderrors.Is(err, terrain.ErrOutOfBounds), stderrors.Is(err, terrain.ErrNoData):
		return New(CodeOutOfBounds, err.Error(), http.StatusUnprocessableEntity)
	case stderrors.Is(err, terrain.ErrComputation):
		return New(CodeComputationFailed, err.Error(), http.StatusUnprocessableEntity)
	}
	return ErrInternalServer
}
