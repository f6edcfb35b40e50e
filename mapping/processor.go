package mapping

import (
	"fmt"
	"slices"

	"github.com/chiashi-lab/RamanCalibrator/algorithms/common"
	"github.com/chiashi-lab/RamanCalibrator/algorithms/spectral"
	"github.com/chiashi-lab/RamanCalibrator/calibration/config"
	"github.com/chiashi-lab/RamanCalibrator/logging"
	"gonum.org/v1/gonum/floats"
)

// Processor owns the 4D map cube of one raw file and the two base views
// derived from it. Displayed data is always rebuilt from those views.
type Processor struct {
	cfg    *config.ProcessorConfig
	logger logging.Logger

	loaded     bool
	source     common.Cube4D
	mean       common.Cube3D
	crr        common.Cube3D
	crrReport  spectral.CosmicRayReport
	background []float64
}

// NewProcessor creates an empty processor. A nil config selects the defaults.
func NewProcessor(cfg *config.ProcessorConfig) *Processor {
	if cfg == nil {
		cfg = config.DefaultProcessorConfig()
	}
	return &Processor{
		cfg: cfg,
		logger: logging.WithFields(logging.Fields{
			"component": "map_processor",
		}),
	}
}

// DeriveViews caches the mean and cosmic-ray-rejected views of a display
// order cube. The processor keeps its own copy of the cube.
func (p *Processor) DeriveViews(cube common.Cube4D) error {
	if p.loaded {
		return ErrResetRequired
	}
	if !cube.Valid() {
		return fmt.Errorf("%w: invalid cube %v", ErrShapeMismatch, cube.Shape())
	}

	p.source = cube.Clone()
	p.mean = spectral.MeanOverRepeats(p.source)
	p.crr, p.crrReport = spectral.CosmicRayRejectedMean(p.source, p.cfg.CosmicRayThreshold)
	p.loaded = true

	fields := logging.Fields{
		"shape":     cube.Shape(),
		"threshold": p.cfg.CosmicRayThreshold,
		"flagged":   p.crrReport.Flagged,
	}
	if p.crrReport.DegenerateSeries > 0 {
		fields["degenerate_series"] = p.crrReport.DegenerateSeries
		p.logger.Warn("cosmic-ray rejection hit fully flagged series, used plain mean", fields)
	} else {
		p.logger.Info("map views derived", fields)
	}
	return nil
}

// Loaded reports whether a cube is held
func (p *Processor) Loaded() bool {
	return p.loaded
}

// Source returns the cached 4D cube (shared, do not modify)
func (p *Processor) Source() (common.Cube4D, error) {
	if !p.loaded {
		return common.Cube4D{}, ErrNoRawData
	}
	return p.source, nil
}

// CosmicRayReport describes the rejection pass behind the crr view
func (p *Processor) CosmicRayReport() spectral.CosmicRayReport {
	return p.crrReport
}

// SetBackground stores a background spectrum. Its length must equal the
// cube's wavenumber count; on mismatch the stored background is unchanged.
func (p *Processor) SetBackground(bg []float64) error {
	if !p.loaded {
		return ErrNoRawData
	}
	if len(bg) != p.source.Length {
		return fmt.Errorf("%w: background has %d samples, map has %d", ErrShapeMismatch, len(bg), p.source.Length)
	}
	p.background = slices.Clone(bg)
	p.logger.Info("background set", logging.Fields{"samples": len(bg)})
	return nil
}

// Background returns the stored background, if any
func (p *Processor) Background() ([]float64, bool) {
	return slices.Clone(p.background), p.background != nil
}

// BackgroundFromCube reduces a background measurement to one spectrum:
// pixel (0, 0), cosmic-ray rejected when it has enough repeats, else the
// plain mean over repeats.
func (p *Processor) BackgroundFromCube(cube common.Cube4D) ([]float64, error) {
	if !cube.Valid() {
		return nil, fmt.Errorf("%w: invalid background cube %v", ErrShapeMismatch, cube.Shape())
	}
	pixel := common.Cube4D{Rows: 1, Cols: 1, Repeats: cube.Repeats, Length: cube.Length, Data: cube.Pixel(0, 0)}

	var reduced common.Cube3D
	if cube.Repeats >= p.cfg.BackgroundMinRepeats {
		var report spectral.CosmicRayReport
		reduced, report = spectral.CosmicRayRejectedMean(pixel, p.cfg.BackgroundThreshold)
		p.logger.Debug("background cosmic-ray rejection", logging.Fields{
			"repeats": cube.Repeats,
			"flagged": report.Flagged,
		})
	} else {
		reduced = spectral.MeanOverRepeats(pixel)
	}
	return slices.Clone(reduced.Spectrum(0, 0)), nil
}

// ActiveView builds the displayed cube from the cached base views. Calling
// it repeatedly with the same flags gives the same result.
func (p *Processor) ActiveView(useCRR, subtractBG bool) (common.Cube3D, error) {
	if !p.loaded {
		return common.Cube3D{}, ErrNoRawData
	}
	if subtractBG && p.background == nil {
		return common.Cube3D{}, ErrBackgroundNotLoaded
	}

	base := p.mean
	if useCRR {
		base = p.crr
	}
	view := base.Clone()
	if subtractBG {
		for r := 0; r < view.Rows; r++ {
			for c := 0; c < view.Cols; c++ {
				floats.Sub(view.Spectrum(r, c), p.background)
			}
		}
	}
	return view, nil
}

// Reset drops the cube, the views and the background
func (p *Processor) Reset() {
	p.loaded = false
	p.source = common.Cube4D{}
	p.mean = common.Cube3D{}
	p.crr = common.Cube3D{}
	p.crrReport = spectral.CosmicRayReport{}
	p.background = nil
}

// WindowedIntensity integrates every pixel over [lo, hi) after removing a
// straight baseline across the window
func WindowedIntensity(cube common.Cube3D, axis []float64, lo, hi float64) (common.Grid2D, error) {
	if !cube.Valid() || len(axis) != cube.Length {
		return common.Grid2D{}, fmt.Errorf("%w: axis has %d samples, cube has %d", ErrShapeMismatch, len(axis), cube.Length)
	}
	start, end := common.WindowBounds(axis, lo, hi)
	if end <= start {
		return common.Grid2D{}, fmt.Errorf("%w: [%g, %g)", ErrEmptyWindow, lo, hi)
	}

	grid := common.NewGrid2D(cube.Rows, cube.Cols)
	for r := 0; r < cube.Rows; r++ {
		for c := 0; c < cube.Cols; c++ {
			grid.Set(r, c, spectral.BaselineArea(cube.Spectrum(r, c)[start:end]))
		}
	}
	return grid, nil
}
