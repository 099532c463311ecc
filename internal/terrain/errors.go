package terrain

import (
	"errors"
	"fmt"
)

// Failure kinds. Every fatal engine error wraps exactly one of these.
var (
	// ErrInput - missing or malformed input (empty contour set, short polyline, bad parameters)
	ErrInput = errors.New("input error")

	// ErrOutOfBounds - a geographic point maps outside the grid extent
	ErrOutOfBounds = errors.New("out of bounds")

	// ErrNoData - a sample resolved to no-data cells only
	ErrNoData = errors.New("no data")

	// ErrQualityGate - an interpolated grid failed validation
	ErrQualityGate = errors.New("quality gate failed")

	// ErrComputation - degenerate geometry or an all-no-data grid
	ErrComputation = errors.New("computation error")
)

// InputError wraps ErrInput with a formatted message.
func InputError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInput, fmt.Sprintf(format, args...))
}

// ComputationError wraps ErrComputation with a formatted message.
func ComputationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrComputation, fmt.Sprintf(format, args...))
}

// BoundsError wraps ErrOutOfBounds with a formatted message.
func BoundsError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrOutOfBounds, fmt.Sprintf(format, args...))
}

// QualityGateError is returned when validation RMSE exceeds the configured threshold.
type QualityGateError struct {
	RMSE      float64
	Threshold float64
}

func (e *QualityGateError) Error() string {
	return fmt.Sprintf("%s: RMSE %.2fm exceeds threshold %.2fm", ErrQualityGate, e.RMSE, e.Threshold)
}

// Is reports ErrQualityGate so callers can match with errors.Is.
func (e *QualityGateError) Is(target error) bool {
	return target == ErrQualityGate
}

// Kind returns the short failure kind of err, or "internal" when it is not an engine error.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrQualityGate):
		return "quality_gate"
	case errors.Is(err, ErrInput):
		return "input"
	case errors.Is(err, ErrOutOfBounds):
		return "bounds"
	case errors.Is(err, ErrNoData):
		return "no_data"
	case errors.Is(err, ErrComputation):
		return "computation"
	default:
		return "internal"
	}
}
