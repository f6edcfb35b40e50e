package session

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/chiashi-lab/RamanCalibrator/algorithms/common"
	"github.com/chiashi-lab/RamanCalibrator/calibration"
	"github.com/chiashi-lab/RamanCalibrator/calibration/config"
	"github.com/chiashi-lab/RamanCalibrator/export"
	"github.com/chiashi-lab/RamanCalibrator/logging"
	"github.com/chiashi-lab/RamanCalibrator/mapping"
	"github.com/chiashi-lab/RamanCalibrator/reader"
	"github.com/google/uuid"
)

var ErrUnknownMode = errors.New("unknown calibration mode")

// CalibrateRequest selects how peaks are assigned before fitting. Degree 0
// uses the configured default; an empty Mode means automatic.
type CalibrateRequest struct {
	Mode       calibration.Mode
	Degree     int
	Material   calibration.Material
	Windows    []calibration.PeakWindow
	TrueValues []float64
}

// CalibratedAxis is the outcome of a successful calibration
type CalibratedAxis struct {
	Axis        []float64
	Model       *calibration.Model
	Assignments []calibration.Assignment
	Provenance  calibration.Provenance
	// Report is set for automatic assignment
	Report *calibration.AssignmentReport
}

// Session ties one raw map, its reference, background and display state
// together. It is not safe for concurrent use.
type Session struct {
	id     string
	cfg    *config.SessionConfig
	logger logging.Logger

	calibrator *calibration.Calibrator
	processor  *mapping.Processor

	loaded     bool
	raw        reader.RawData
	info       mapping.MapInfo
	refPath    string
	bgPath     string
	useCRR     bool
	subtractBG bool
	view       common.Cube3D

	cursor   Cursor
	saveList []export.Pixel
}

// New creates an empty session. A nil config selects the defaults and a nil
// logger derives one from the global logger.
func New(cfg *config.SessionConfig, logger logging.Logger) *Session {
	if cfg == nil {
		cfg = config.DefaultSessionConfig()
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	id := uuid.NewString()
	return &Session{
		id:  id,
		cfg: cfg,
		logger: logger.WithFields(logging.Fields{
			"component": "session",
			"session":   id,
		}),
		calibrator: calibration.NewCalibrator(cfg.Calibration, nil),
		processor:  mapping.NewProcessor(cfg.Processor),
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Config() *config.SessionConfig {
	return s.cfg
}

// Calibrator exposes the calibrator for read-only inspection
func (s *Session) Calibrator() *calibration.Calibrator {
	return s.calibrator
}

// Info describes the loaded map in display order
func (s *Session) Info() (mapping.MapInfo, bool) {
	return s.info, s.loaded
}

// LoadRaw installs a raw measurement. The cube is brought into display
// order and both base views are derived. A loaded session must be reset
// first.
func (s *Session) LoadRaw(data reader.RawData) (mapping.MapInfo, error) {
	if s.loaded {
		return mapping.MapInfo{}, mapping.ErrResetRequired
	}
	if err := data.Geometry.Validate(); err != nil {
		return mapping.MapInfo{}, err
	}
	if len(data.Axis) != data.Cube.Length {
		return mapping.MapInfo{}, fmt.Errorf("%w: axis has %d samples, spectra have %d",
			mapping.ErrShapeMismatch, len(data.Axis), data.Cube.Length)
	}

	display, err := mapping.ToDisplay4D(data.Cube, data.Order)
	if err != nil {
		return mapping.MapInfo{}, err
	}
	if err := s.calibrator.SetRawAxis(data.Axis); err != nil {
		return mapping.MapInfo{}, err
	}
	if err := s.processor.DeriveViews(display); err != nil {
		s.calibrator.Reset()
		return mapping.MapInfo{}, err
	}

	s.raw = data
	s.raw.Axis = slices.Clone(data.Axis)
	s.info = mapping.MapInfo{
		Axis:        slices.Clone(data.Axis),
		Rows:        display.Rows,
		Cols:        display.Cols,
		Repeats:     display.Repeats,
		Length:      display.Length,
		Order:       data.Order,
		Geometry:    data.Geometry,
		Overlay:     data.Overlay,
		SinglePoint: data.SinglePoint,
	}
	s.loaded = true
	s.cursor = Cursor{}
	if err := s.refreshView(); err != nil {
		return mapping.MapInfo{}, err
	}

	s.logger.Info("raw data loaded", logging.Fields{
		"path":   data.Path,
		"family": string(data.Family),
		"rows":   s.info.Rows,
		"cols":   s.info.Cols,
		"order":  data.Order.String(),
	})
	return s.info, nil
}

// LoadReference loads a reference spectrum. An empty material is guessed
// from the file name.
func (s *Session) LoadReference(spec reader.Spectrum, material calibration.Material) error {
	if !s.loaded {
		return mapping.ErrNoRawData
	}
	if material == "" {
		if m, ok := s.calibrator.Catalog().MaterialFromFilename(spec.Path); ok {
			material = m
			s.logger.Debug("reference material taken from file name", logging.Fields{
				"material": string(m),
			})
		}
	}
	err := s.calibrator.LoadReference(calibration.ReferenceSpectrum{
		Spectrum: calibration.Spectrum{Axis: spec.Axis, Intensity: spec.Intensity},
		Material: material,
		Path:     spec.Path,
	})
	if err != nil {
		return err
	}
	s.refPath = spec.Path
	return nil
}

// LoadReferenceData loads a reference stored as a map file, using its
// first spectrum
func (s *Session) LoadReferenceData(data reader.RawData, material calibration.Material) error {
	return s.LoadReference(reader.Spectrum{
		Path:      data.Path,
		Axis:      data.Axis,
		Intensity: data.FirstSpectrum(),
	}, material)
}

// LoadBackground reduces a background measurement to one spectrum and
// stores it. Its axis must match the raw axis.
func (s *Session) LoadBackground(data reader.RawData) error {
	if !s.loaded {
		return mapping.ErrNoRawData
	}
	if len(data.Axis) != len(s.raw.Axis) {
		return fmt.Errorf("%w: background has %d samples, raw axis %d", mapping.ErrShapeMismatch, len(data.Axis), len(s.raw.Axis))
	}
	if !common.AxesEqual(s.raw.Axis, data.Axis, s.cfg.Calibration.AxisTolerance) {
		return fmt.Errorf("%w: background axis", calibration.ErrAxisMismatch)
	}
	bg, err := s.processor.BackgroundFromCube(data.Cube)
	if err != nil {
		return err
	}
	if err := s.processor.SetBackground(bg); err != nil {
		return err
	}
	s.bgPath = data.Path
	return s.refreshView()
}

// SetProcessing selects the displayed view. Enabling background
// subtraction without a background fails and leaves both flags unchanged.
func (s *Session) SetProcessing(useCRR, subtractBG bool) error {
	if !s.loaded {
		return mapping.ErrNoRawData
	}
	if _, ok := s.processor.Background(); subtractBG && !ok {
		return mapping.ErrBackgroundNotLoaded
	}
	s.useCRR, s.subtractBG = useCRR, subtractBG
	return s.refreshView()
}

// Processing reports the current view flags
func (s *Session) Processing() (useCRR, subtractBG bool) {
	return s.useCRR, s.subtractBG
}

func (s *Session) refreshView() error {
	view, err := s.processor.ActiveView(s.useCRR, s.subtractBG)
	if err != nil {
		return err
	}
	s.view = view
	return nil
}

// Calibrate assigns peaks and fits the model. Every call starts from the
// raw axis, so repeated calibrations never compound.
func (s *Session) Calibrate(req CalibrateRequest) (CalibratedAxis, error) {
	if !s.loaded {
		return CalibratedAxis{}, mapping.ErrNoRawData
	}
	degree := req.Degree
	if degree == 0 {
		degree = s.cfg.Calibration.Degree
	}

	var out CalibratedAxis
	switch req.Mode {
	case calibration.ModeAuto, "":
		report, err := s.calibrator.AssignPeaksAuto(req.Material)
		if err != nil {
			return CalibratedAxis{Report: &report}, err
		}
		out.Report = &report
	case calibration.ModeManual:
		if _, err := s.calibrator.AssignPeaksManual(req.Windows, req.TrueValues); err != nil {
			return CalibratedAxis{}, err
		}
	default:
		return CalibratedAxis{}, fmt.Errorf("%w: %q", ErrUnknownMode, req.Mode)
	}

	model, err := s.calibrator.Fit(degree)
	if err != nil {
		return out, err
	}
	axis, err := s.calibrator.CorrectedAxis()
	if err != nil {
		return out, err
	}
	prov, err := s.calibrator.Provenance()
	if err != nil {
		return out, err
	}

	out.Axis = axis
	out.Model = model
	out.Assignments = model.Assignments()
	out.Provenance = prov
	s.logger.Info("session calibrated", logging.Fields{
		"calibration": prov.String(),
	})
	return out, nil
}

// Calibrated reports whether a model is active
func (s *Session) Calibrated() bool {
	return s.calibrator.State() == calibration.Calibrated
}

// Axis is the corrected axis when calibrated, else the raw axis
func (s *Session) Axis() []float64 {
	if axis, err := s.calibrator.CorrectedAxis(); err == nil {
		return axis
	}
	return slices.Clone(s.raw.Axis)
}

// Spectrum returns the displayed spectrum of one pixel with its axis
func (s *Session) Spectrum(row, col int) ([]float64, []float64, error) {
	if !s.loaded {
		return nil, nil, mapping.ErrNoRawData
	}
	if !s.info.Contains(row, col) {
		return nil, nil, fmt.Errorf("%w: (%d, %d) in %dx%d map", mapping.ErrIndexOutOfRange, row, col, s.info.Rows, s.info.Cols)
	}
	return s.Axis(), slices.Clone(s.view.Spectrum(row, col)), nil
}

// MapIntensity integrates the displayed view over [lo, hi) on the current
// axis
func (s *Session) MapIntensity(lo, hi float64) (common.Grid2D, error) {
	if !s.loaded {
		return common.Grid2D{}, mapping.ErrNoRawData
	}
	return mapping.WindowedIntensity(s.view, s.Axis(), lo, hi)
}

// MapRanges lists the preset intensity windows
func (s *Session) MapRanges() [][2]float64 {
	return slices.Clone(s.cfg.MapRanges)
}

// Provenance describes the active calibration
func (s *Session) Provenance() (calibration.Provenance, error) {
	return s.calibrator.Provenance()
}

func absPath(p string) string {
	if p == "" {
		return ""
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// Metadata builds the header written with exported spectra. The reference
// path is only recorded when calibrated and the background path only while
// subtraction is on.
func (s *Session) Metadata() export.Header {
	h := export.Header{
		RawPath:          absPath(s.raw.Path),
		Extended:         s.raw.Family.ExtendedHeader(),
		CosmicRayRemoved: s.useCRR,
	}
	if prov, err := s.calibrator.Provenance(); err == nil {
		h.RefPath = absPath(s.refPath)
		h.Calibration = prov.String()
	}
	if s.subtractBG {
		h.BackgroundPath = absPath(s.bgPath)
	}
	return h
}

// Reset returns the session to its freshly created state
func (s *Session) Reset() {
	s.calibrator.Reset()
	s.processor.Reset()
	s.loaded = false
	s.raw = reader.RawData{}
	s.info = mapping.MapInfo{}
	s.refPath, s.bgPath = "", ""
	s.useCRR, s.subtractBG = false, false
	s.view = common.Cube3D{}
	s.cursor = Cursor{}
	s.saveList = nil
	s.logger.Debug("session reset")
}
