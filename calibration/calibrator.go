package calibration

import (
	"errors"
	"fmt"
	"slices"

	"github.com/chiashi-lab/RamanCalibrator/algorithms/common"
	"github.com/chiashi-lab/RamanCalibrator/algorithms/peaks"
	"github.com/chiashi-lab/RamanCalibrator/calibration/config"
	"github.com/chiashi-lab/RamanCalibrator/logging"
)

// State of the calibrator lifecycle
type State int

const (
	Empty State = iota
	ReferenceLoaded
	Assigned
	Calibrated
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case ReferenceLoaded:
		return "reference_loaded"
	case Assigned:
		return "assigned"
	case Calibrated:
		return "calibrated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Spectrum is an ascending wavenumber axis with one intensity per sample
type Spectrum struct {
	Axis      []float64
	Intensity []float64
}

// ReferenceSpectrum is a spectrum of a known standard
type ReferenceSpectrum struct {
	Spectrum
	Material Material
	Path     string
}

// AssignmentReport describes one automatic assignment run
type AssignmentReport struct {
	Material Material
	// Searched are the windows handed to the peak finder
	Searched []PeakWindow
	// Skipped are catalogued windows dropped for overlapping a previous one
	Skipped     []*WindowError
	Failures    []*WindowError
	Assignments []Assignment
}

// Calibrator owns one reference spectrum, its peak assignments and the
// fitted model for a single raw/reference pair
type Calibrator struct {
	cfg     *config.CalibrationConfig
	catalog Catalog
	finder  *peaks.Finder
	logger  logging.Logger

	state       State
	rawAxis     []float64
	ref         ReferenceSpectrum
	mode        Mode
	material    Material
	assignments []Assignment
	model       *Model
}

// NewCalibrator creates a calibrator. A nil config or catalog selects the
// defaults.
func NewCalibrator(cfg *config.CalibrationConfig, catalog Catalog) *Calibrator {
	if cfg == nil {
		cfg = config.DefaultCalibrationConfig()
	}
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Calibrator{
		cfg:     cfg,
		catalog: catalog,
		finder:  peaks.NewFinder(cfg.Finder.Options()),
		logger: logging.WithFields(logging.Fields{
			"component": "axis_calibrator",
		}),
	}
}

func (c *Calibrator) State() State {
	return c.state
}

func (c *Calibrator) Catalog() Catalog {
	return c.catalog
}

// SetRawAxis records the axis of the raw data. Only valid before a
// reference is loaded.
func (c *Calibrator) SetRawAxis(axis []float64) error {
	if c.state != Empty {
		return fmt.Errorf("%w: raw axis set in state %s, reset first", ErrInvalidState, c.state)
	}
	if len(axis) == 0 || !common.IsStrictlyIncreasing(axis) {
		return fmt.Errorf("%w: raw axis must be non-empty and strictly increasing", ErrAxisMismatch)
	}
	c.rawAxis = slices.Clone(axis)
	return nil
}

// RawAxis returns the uncorrected raw axis
func (c *Calibrator) RawAxis() []float64 {
	return slices.Clone(c.rawAxis)
}

// LoadReference stores the reference spectrum. Its axis must equal the raw
// axis. Any previous assignments and model are discarded.
func (c *Calibrator) LoadReference(ref ReferenceSpectrum) error {
	if c.rawAxis == nil {
		return fmt.Errorf("%w: load raw data before the reference", ErrInvalidState)
	}
	if len(ref.Axis) != len(ref.Intensity) {
		return fmt.Errorf("%w: reference has %d axis samples and %d intensities",
			ErrAxisMismatch, len(ref.Axis), len(ref.Intensity))
	}
	if !common.AxesEqual(c.rawAxis, ref.Axis, c.cfg.AxisTolerance) {
		c.logger.Warn("reference axis rejected", logging.Fields{
			"raw_samples": len(c.rawAxis),
			"ref_samples": len(ref.Axis),
		})
		return fmt.Errorf("%w: acquire the reference with the same measurement settings", ErrAxisMismatch)
	}
	if ref.Material != "" && !c.catalog.Has(ref.Material) {
		return fmt.Errorf("%w: %q", ErrUnknownMaterial, ref.Material)
	}

	c.ref = ReferenceSpectrum{
		Spectrum: Spectrum{
			Axis:      slices.Clone(ref.Axis),
			Intensity: slices.Clone(ref.Intensity),
		},
		Material: ref.Material,
		Path:     ref.Path,
	}
	c.material = ref.Material
	c.assignments = nil
	c.model = nil
	c.state = ReferenceLoaded

	c.logger.Info("reference loaded", logging.Fields{
		"material": string(ref.Material),
		"samples":  len(ref.Axis),
	})
	return nil
}

// Reference returns the stored reference spectrum
func (c *Calibrator) Reference() (ReferenceSpectrum, bool) {
	return c.ref, c.state != Empty
}

func (c *Calibrator) requireReference() error {
	if c.state == Empty {
		return fmt.Errorf("%w: no reference loaded", ErrInvalidState)
	}
	return nil
}

// AssignPeaksAuto searches one window around every catalogued position of
// the material that lies on the reference axis. Windows that fail are
// reported and skipped. An empty material selects the reference's own.
func (c *Calibrator) AssignPeaksAuto(material Material) (AssignmentReport, error) {
	if err := c.requireReference(); err != nil {
		return AssignmentReport{}, err
	}
	if material == "" {
		material = c.ref.Material
	}
	positions, err := c.catalog.Positions(material)
	if err != nil {
		return AssignmentReport{}, err
	}

	report := AssignmentReport{Material: material}
	axis := c.ref.Axis
	lo, hi := axis[0], axis[len(axis)-1]

	var set WindowSet
	var truths []float64
	for _, p := range positions {
		if p < lo || p > hi {
			continue
		}
		w, err := WindowAround(p, c.cfg.WindowHalfWidth)
		if err != nil {
			return AssignmentReport{}, err
		}
		if err := set.Add(w); err != nil {
			var we *WindowError
			if errors.As(err, &we) {
				report.Skipped = append(report.Skipped, we)
			}
			c.logger.Warn("catalogued window skipped", logging.Fields{
				"true":   p,
				"window": w.String(),
			})
			continue
		}
		report.Searched = append(report.Searched, w)
		truths = append(truths, p)
	}

	for i, w := range report.Searched {
		peak, err := c.finder.Find(axis, c.ref.Intensity, w.Lo, w.Hi)
		if err != nil {
			report.Failures = append(report.Failures, &WindowError{Window: w, Err: err})
			c.logger.Warn("peak search failed", logging.Fields{
				"window": w.String(),
				"error":  err.Error(),
			})
			continue
		}
		report.Assignments = append(report.Assignments, Assignment{
			Window: w,
			Fitted: peak.Center,
			True:   truths[i],
			Peak:   peak,
		})
	}

	if len(report.Assignments) < c.cfg.MinAssignments {
		return report, fmt.Errorf("%w: %d of %d windows produced a peak, need %d",
			ErrInsufficientPeaks, len(report.Assignments), len(report.Searched), c.cfg.MinAssignments)
	}

	c.assign(ModeAuto, material, report.Assignments)
	return report, nil
}

// AssignPeaksManual takes caller-drawn windows with one true value each.
// Each window is fitted without the candidate count check; a failed fit
// falls back to the window maximum.
func (c *Calibrator) AssignPeaksManual(windows []PeakWindow, trueValues []float64) ([]Assignment, error) {
	if err := c.requireReference(); err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		return nil, fmt.Errorf("%w: no windows given", ErrInsufficientPeaks)
	}
	if len(windows) != len(trueValues) {
		return nil, fmt.Errorf("%w: %d windows, %d true values", ErrCountMismatch, len(windows), len(trueValues))
	}

	var set WindowSet
	for _, w := range windows {
		if err := set.Add(w); err != nil {
			return nil, err
		}
	}

	axis, y := c.ref.Axis, c.ref.Intensity
	assignments := make([]Assignment, 0, len(windows))
	for i, w := range windows {
		a := Assignment{Window: w, True: trueValues[i]}
		peak, err := c.finder.Refine(axis, y, w.Lo, w.Hi)
		if err == nil {
			a.Fitted = peak.Center
			a.Peak = peak
		} else {
			a.Fallback = true
			start, end := common.WindowBounds(axis, w.Lo, w.Hi)
			if end > start {
				a.Fitted = axis[start+common.ArgMax(y[start:end])]
			} else {
				a.Fitted = w.Mid()
			}
			c.logger.Warn("manual window fit failed, using window maximum", logging.Fields{
				"window": w.String(),
				"center": a.Fitted,
				"error":  err.Error(),
			})
		}
		assignments = append(assignments, a)
	}

	c.assign(ModeManual, c.ref.Material, assignments)
	return slices.Clone(assignments), nil
}

func (c *Calibrator) assign(mode Mode, material Material, assignments []Assignment) {
	c.mode = mode
	c.material = material
	c.assignments = slices.Clone(assignments)
	c.model = nil
	c.state = Assigned

	c.logger.Info("peaks assigned", logging.Fields{
		"mode":        string(mode),
		"material":    string(material),
		"assignments": len(assignments),
	})
}

// Assignments returns the current peak assignments
func (c *Calibrator) Assignments() []Assignment {
	return slices.Clone(c.assignments)
}

// Fit builds a fresh model of the given degree from the current assignments.
// Refitting an already calibrated state starts from the raw-space
// assignments again, so corrections never compound.
func (c *Calibrator) Fit(degree int) (*Model, error) {
	if c.state != Assigned && c.state != Calibrated {
		return nil, fmt.Errorf("%w: fit in state %s", ErrInvalidState, c.state)
	}
	model, err := fitModel(c.assignments, degree, c.cfg.MaxCondition)
	// wavenumber lookups search the corrected axis, so it must stay ordered
	if err == nil && !common.IsStrictlyIncreasing(model.Apply(c.rawAxis)) {
		err = fmt.Errorf("%w: corrected axis is not strictly increasing", ErrRegressionFailed)
	}
	if err != nil {
		c.logger.Error(err, "calibration fit failed", logging.Fields{
			"degree":      degree,
			"assignments": len(c.assignments),
		})
		return nil, err
	}

	c.model = model
	c.state = Calibrated
	c.logger.Info("calibrated", logging.Fields{
		"degree":       degree,
		"coefficients": model.Coefficients(),
	})
	return model, nil
}

// Model returns the fitted model or nil
func (c *Calibrator) Model() *Model {
	return c.model
}

// Apply maps raw wavenumbers through the fitted model
func (c *Calibrator) Apply(raw []float64) ([]float64, error) {
	if c.state != Calibrated || c.model == nil {
		return nil, ErrNotCalibrated
	}
	return c.model.Apply(raw), nil
}

// CorrectedAxis is the raw axis mapped through the model
func (c *Calibrator) CorrectedAxis() ([]float64, error) {
	return c.Apply(c.rawAxis)
}

// CorrectedReference returns the reference spectrum on the calibrated axis
func (c *Calibrator) CorrectedReference() (Spectrum, error) {
	axis, err := c.Apply(c.ref.Axis)
	if err != nil {
		return Spectrum{}, err
	}
	return Spectrum{Axis: axis, Intensity: slices.Clone(c.ref.Intensity)}, nil
}

// Provenance describes the active calibration
func (c *Calibrator) Provenance() (Provenance, error) {
	if c.state != Calibrated || c.model == nil {
		return Provenance{}, ErrNotCalibrated
	}
	truth := make([]float64, len(c.assignments))
	for i, a := range c.assignments {
		truth[i] = a.True
	}
	return Provenance{
		Material:      c.material,
		Degree:        c.model.Degree(),
		LineShape:     c.finder.Options().LineShape,
		Mode:          c.mode,
		TruePositions: truth,
	}, nil
}

// Reset discards the raw axis, the reference, the assignments and the model
func (c *Calibrator) Reset() {
	c.state = Empty
	c.rawAxis = nil
	c.ref = ReferenceSpectrum{}
	c.mode = ""
	c.material = ""
	c.assignments = nil
	c.model = nil
	c.logger.Debug("calibrator reset")
}
