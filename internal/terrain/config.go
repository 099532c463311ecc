// Package terrain holds the configuration and failure taxonomy shared by the
// terrain surface analysis engine. The algorithms live in the sub-packages:
// raster, gradient, classify, profile, dem and vectorize. None of them keep
// state between calls; every entry point takes the grid(s) it works on and a
// Config value.
package terrain

// InterpolationMethod selects the contour-to-grid interpolator.
type InterpolationMethod string

const (
	// MethodLinear - linear interpolation over a Delaunay triangulation of contour vertices
	MethodLinear InterpolationMethod = "linear"
	// MethodIDW - inverse distance weighting
	MethodIDW InterpolationMethod = "idw"
	// MethodHighQuality - wide radius, high point count IDW
	MethodHighQuality InterpolationMethod = "high_quality"
)

// ParseInterpolationMethod accepts the canonical names plus the legacy
// aliases "tin" and "kriging".
func ParseInterpolationMethod(s string) (InterpolationMethod, error) {
	switch s {
	case "linear", "tin":
		return MethodLinear, nil
	case "idw", "invdist":
		return MethodIDW, nil
	case "high_quality", "kriging":
		return MethodHighQuality, nil
	}
	return "", InputError("unknown interpolation method %q", s)
}

// SteepnessThresholds are the ascending class boundaries in percent.
type SteepnessThresholds struct {
	Flat     float64 `json:"flat"`
	Moderate float64 `json:"moderate"`
	Steep    float64 `json:"steep"`
}

// Config is the per-invocation configuration of the engine. It is passed by
// value into every entry point.
type Config struct {
	FlatSlopeThreshold  float64             `json:"flat_slope_threshold"`
	Steepness           SteepnessThresholds `json:"steepness"`
	MaxBuildableSlope   float64             `json:"max_buildable_slope"`
	SmoothingEnabled    bool                `json:"smoothing_enabled"`
	SmoothingKernelSize int                 `json:"smoothing_kernel_size"`
	SampleInterval      float64             `json:"sample_interval"`
	MaxGradeThreshold   float64             `json:"max_grade_threshold"`
	Interpolation       InterpolationMethod `json:"interpolation_method"`
	ValidationTolerance float64             `json:"validation_tolerance"`
	RMSEThreshold       float64             `json:"rmse_threshold"`
	MaxGridCells        int                 `json:"max_grid_cells"`
	MaxProfileSamples   int                 `json:"max_profile_samples"`
}

// DefaultConfig returns the stock analysis parameters.
func DefaultConfig() Config {
	return Config{
		FlatSlopeThreshold: 2.0,
		Steepness: SteepnessThresholds{
			Flat:     5.0,
			Moderate: 15.0,
			Steep:    25.0,
		},
		MaxBuildableSlope:   15.0,
		SmoothingEnabled:    false,
		SmoothingKernelSize: 3,
		SampleInterval:      5.0,
		MaxGradeThreshold:   8.0,
		Interpolation:       MethodLinear,
		ValidationTolerance: 0.5,
		RMSEThreshold:       2.0,
		MaxGridCells:        16_000_000,
		MaxProfileSamples:   200_000,
	}
}

// Validate checks internal consistency.
func (c Config) Validate() error {
	if c.FlatSlopeThreshold < 0 {
		return InputError("flat slope threshold must be non-negative, got %v", c.FlatSlopeThreshold)
	}
	if err := c.Steepness.Validate(); err != nil {
		return err
	}
	if c.MaxBuildableSlope < 0 {
		return InputError("max buildable slope must be non-negative, got %v", c.MaxBuildableSlope)
	}
	if c.SmoothingEnabled && (c.SmoothingKernelSize < 1 || c.SmoothingKernelSize%2 == 0) {
		return InputError("smoothing kernel size must be a positive odd number, got %d", c.SmoothingKernelSize)
	}
	if c.SampleInterval <= 0 {
		return InputError("sample interval must be positive, got %v", c.SampleInterval)
	}
	if c.MaxGradeThreshold < 0 {
		return InputError("max grade threshold must be non-negative, got %v", c.MaxGradeThreshold)
	}
	if _, err := ParseInterpolationMethod(string(c.Interpolation)); err != nil {
		return err
	}
	if c.ValidationTolerance <= 0 {
		return InputError("validation tolerance must be positive, got %v", c.ValidationTolerance)
	}
	if c.RMSEThreshold <= 0 {
		return InputError("RMSE threshold must be positive, got %v", c.RMSEThreshold)
	}
	if c.MaxProfileSamples < 2 {
		return InputError("max profile samples must be at least 2, got %d", c.MaxProfileSamples)
	}
	return nil
}

// Validate checks that the boundaries are strictly ascending.
func (t SteepnessThresholds) Validate() error {
	if t.Flat < 0 || t.Flat >= t.Moderate || t.Moderate >= t.Steep {
		return InputError("steepness thresholds must be ascending, got flat=%v moderate=%v steep=%v",
			t.Flat, t.Moderate, t.Steep)
	}
	return nil
}
