package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/chiashi-lab/RamanCalibrator/algorithms/peaks"
	"github.com/chiashi-lab/RamanCalibrator/algorithms/regression"
	"github.com/chiashi-lab/RamanCalibrator/algorithms/spectral"
)

// FinderConfig configures peak detection and lineshape fitting
type FinderConfig struct {
	LineShape     spectral.LineShape `json:"line_shape"`     // "Voigt", "Lorentzian", "Gaussian"
	MinProminence float64            `json:"min_prominence"` // counts
	InitialWidth  float64            `json:"initial_width"`  // cm-1, seeds both Voigt widths

	// Levenberg-Marquardt settings
	MaxIterations int     `json:"max_iterations"`
	ObjectiveTol  float64 `json:"objective_tol"`
	Tau           float64 `json:"tau"`
	Eps1          float64 `json:"eps1"`
	Eps2          float64 `json:"eps2"`
}

// CalibrationConfig configures the axis calibrator
type CalibrationConfig struct {
	WindowHalfWidth float64      `json:"window_half_width"` // cm-1 around each catalogued peak
	Degree          int          `json:"degree"`            // default polynomial degree
	MinAssignments  int          `json:"min_assignments"`   // automatic assignment floor
	MaxCondition    float64      `json:"max_condition"`     // scaled design matrix limit
	AxisTolerance   float64      `json:"axis_tolerance"`    // relative, raw vs reference axis
	Finder          FinderConfig `json:"finder"`
}

// ProcessorConfig configures map cleaning
type ProcessorConfig struct {
	CosmicRayThreshold   float64 `json:"cosmic_ray_threshold"`   // map cubes
	BackgroundThreshold  float64 `json:"background_threshold"`   // background cubes
	BackgroundMinRepeats int     `json:"background_min_repeats"` // below this the background is a plain mean
}

// ExportConfig configures per-pixel export
type ExportConfig struct {
	Overwrite bool    `json:"overwrite"`
	MapClip   float64 `json:"map_clip"` // percent clipped off each end of a heat map colour scale
}

// SessionConfig aggregates everything a session needs
type SessionConfig struct {
	Calibration *CalibrationConfig `json:"calibration"`
	Processor   *ProcessorConfig   `json:"processor"`
	Export      *ExportConfig      `json:"export"`
	LogLevel    string             `json:"log_level"`
	// MapRanges are the wavenumber windows offered for intensity maps
	MapRanges [][2]float64 `json:"map_ranges"`
}

// DefaultFinderConfig returns the peak finder defaults
func DefaultFinderConfig() FinderConfig {
	opts := peaks.DefaultOptions()
	return FinderConfig{
		LineShape:     opts.LineShape,
		MinProminence: opts.MinProminence,
		InitialWidth:  opts.InitialWidth,
		MaxIterations: opts.MaxIterations,
		ObjectiveTol:  opts.ObjectiveTol,
		Tau:           opts.Tau,
		Eps1:          opts.Eps1,
		Eps2:          opts.Eps2,
	}
}

// Options converts the config into finder options
func (c FinderConfig) Options() peaks.Options {
	return peaks.Options{
		LineShape:     c.LineShape,
		MinProminence: c.MinProminence,
		InitialWidth:  c.InitialWidth,
		MaxIterations: c.MaxIterations,
		ObjectiveTol:  c.ObjectiveTol,
		Tau:           c.Tau,
		Eps1:          c.Eps1,
		Eps2:          c.Eps2,
	}
}

// DefaultCalibrationConfig returns sensible defaults for calibration
func DefaultCalibrationConfig() *CalibrationConfig {
	return &CalibrationConfig{
		WindowHalfWidth: 15,
		Degree:          1,
		MinAssignments:  2,
		MaxCondition:    regression.DefaultMaxCondition,
		AxisTolerance:   1e-9,
		Finder:          DefaultFinderConfig(),
	}
}

// DefaultProcessorConfig returns the cosmic-ray thresholds used for the 488 nm rig
func DefaultProcessorConfig() *ProcessorConfig {
	return &ProcessorConfig{
		CosmicRayThreshold:   0.01,
		BackgroundThreshold:  0.2,
		BackgroundMinRepeats: 3,
	}
}

// DefaultExportConfig never overwrites existing files
func DefaultExportConfig() *ExportConfig {
	return &ExportConfig{Overwrite: false, MapClip: 1}
}

// DefaultSessionConfig returns the full default configuration
func DefaultSessionConfig() *SessionConfig {
	return &SessionConfig{
		Calibration: DefaultCalibrationConfig(),
		Processor:   DefaultProcessorConfig(),
		Export:      DefaultExportConfig(),
		LogLevel:    "info",
		MapRanges: [][2]float64{
			{120, 250},
			{510, 530},
			{1350, 1380},
			{1570, 1610},
			{2550, 2750},
		},
	}
}

// Load reads a JSON config file on top of the defaults
func Load(path string) (*SessionConfig, error) {
	cfg := DefaultSessionConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.fillMissing()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// fillMissing restores sections a config file set to null
func (c *SessionConfig) fillMissing() {
	if c.Calibration == nil {
		c.Calibration = DefaultCalibrationConfig()
	}
	if c.Processor == nil {
		c.Processor = DefaultProcessorConfig()
	}
	if c.Export == nil {
		c.Export = DefaultExportConfig()
	}
}

// Validate rejects values the engine cannot work with
func (c *SessionConfig) Validate() error {
	var errs []error
	if c.Calibration != nil {
		cal := c.Calibration
		if cal.WindowHalfWidth <= 0 {
			errs = append(errs, fmt.Errorf("window_half_width must be positive, got %g", cal.WindowHalfWidth))
		}
		if cal.Degree < 1 {
			errs = append(errs, fmt.Errorf("degree must be at least 1, got %d", cal.Degree))
		}
		if cal.MinAssignments < 2 {
			errs = append(errs, fmt.Errorf("min_assignments must be at least 2, got %d", cal.MinAssignments))
		}
		if cal.AxisTolerance < 0 {
			errs = append(errs, fmt.Errorf("axis_tolerance must not be negative, got %g", cal.AxisTolerance))
		}
		if cal.Finder.MinProminence < 0 {
			errs = append(errs, fmt.Errorf("min_prominence must not be negative, got %g", cal.Finder.MinProminence))
		}
	}
	if c.Processor != nil && c.Processor.BackgroundMinRepeats < 1 {
		errs = append(errs, fmt.Errorf("background_min_repeats must be at least 1, got %d", c.Processor.BackgroundMinRepeats))
	}
	if c.Export != nil && (c.Export.MapClip < 0 || c.Export.MapClip >= 50) {
		errs = append(errs, fmt.Errorf("map_clip must be in [0, 50), got %g", c.Export.MapClip))
	}
	for i, r := range c.MapRanges {
		if !(r[0] < r[1]) {
			errs = append(errs, fmt.Errorf("map_ranges[%d] is empty: [%g, %g)", i, r[0], r[1]))
		}
	}
	return errors.Join(errs...)
}
