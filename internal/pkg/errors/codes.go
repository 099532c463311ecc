package errors

import "net/http"

const (
	CodeInvalidInput      = "INVALID_INPUT"
	CodeOutOfBounds       = "OUT_OF_BOUNDS"
	CodeQualityGateFailed = "QUALITY_GATE_FAILED"
	CodeComputationFailed = "COMPUTATION_FAILED"
)

var (
	ErrDEMNotFound = New(
		"DEM_NOT_FOUND",
		"DEM not found",
		http.StatusNotFound,
	)

	ErrJobNotFound = New(
		"JOB_NOT_FOUND",
		"Job not found",
		http.StatusNotFound,
	)

	ErrProfileNotFound = New(
		"PROFILE_NOT_FOUND",
		"Profile not found",
		http.StatusNotFound,
	)

	ErrInvalidJobType = New(
		"INVALID_JOB_TYPE",
		"Invalid job type",
		http.StatusBadRequest,
	)

	ErrInvalidCoordinates = New(
		"INVALID_COORDINATES",
		"Invalid coordinates provided",
		http.StatusBadRequest,
	)

	ErrDatabaseError = New(
		"DATABASE_ERROR",
		"Database operation failed",
		http.StatusInternalServerError,
	)

	ErrCacheError = New(
		"CACHE_ERROR",
		"Cache operation failed",
		http.StatusInternalServerError,
	)

	ErrElevationSourceUnavailable = New(
		"ELEVATION_SOURCE_UNAVAILABLE",
		"Elevation tile source is unavailable",
		http.StatusServiceUnavailable,
	)

	ErrInvalidRequest = New(
		"INVALID_REQUEST",
		"Invalid request parameters",
		http.StatusBadRequest,
	)

	ErrInternalServer = New(
		"INTERNAL_SERVER_ERROR",
		"Internal server error",
		http.StatusInternalServerError,
	)
)
