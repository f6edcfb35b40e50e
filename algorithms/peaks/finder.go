package peaks

import (
	"errors"
	"fmt"
	"math"

	"github.com/chiashi-lab/RamanCalibrator/algorithms/common"
	"github.com/chiashi-lab/RamanCalibrator/algorithms/spectral"
	"github.com/chiashi-lab/RamanCalibrator/logging"
	"github.com/maorshutman/lm"
)

var (
	// ErrPeakNotFound means a window held zero or several prominent maxima
	ErrPeakNotFound = errors.New("peak not found")
	// ErrFitDidNotConverge means the lineshape fit produced no usable center
	ErrFitDidNotConverge = errors.New("fit did not converge")
)

// Options tunes a Finder
type Options struct {
	LineShape     spectral.LineShape
	MinProminence float64
	InitialWidth  float64

	// Levenberg-Marquardt settings
	MaxIterations int
	ObjectiveTol  float64
	Tau           float64
	Eps1          float64
	Eps2          float64
}

// DefaultOptions are tuned for CCD counts from a typical Raman microscope
func DefaultOptions() Options {
	return Options{
		LineShape:     spectral.Voigt,
		MinProminence: 50,
		InitialWidth:  3,
		MaxIterations: 200,
		ObjectiveTol:  1e-16,
		Tau:           1e-3,
		Eps1:          1e-8,
		Eps2:          1e-8,
	}
}

// Peak is a refined peak position
type Peak struct {
	Center    float64
	Intensity float64
	Params    []float64
	LineShape spectral.LineShape
	// Seed is the sample the fit started from
	Seed     Candidate
	SeedX    float64
	Residual float64
}

// Finder locates one prominent peak inside a wavenumber window and refines
// its center with a lineshape fit
type Finder struct {
	opts   Options
	logger logging.Logger
}

// NewFinder creates a finder
func NewFinder(opts Options) *Finder {
	if opts.InitialWidth <= 0 {
		opts.InitialWidth = DefaultOptions().InitialWidth
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultOptions().MaxIterations
	}
	return &Finder{
		opts: opts,
		logger: logging.WithFields(logging.Fields{
			"component": "peak_finder",
			"lineshape": opts.LineShape.String(),
		}),
	}
}

// Options returns the finder settings
func (f *Finder) Options() Options {
	return f.opts
}

// Find crops (x, y) to [lo, hi), requires exactly one local maximum with
// enough prominence, and fits the configured lineshape seeded at it.
func (f *Finder) Find(x, y []float64, lo, hi float64) (Peak, error) {
	wx, wy, err := crop(x, y, lo, hi)
	if err != nil {
		return Peak{}, err
	}

	candidates := FindCandidates(wy, f.opts.MinProminence)
	if len(candidates) != 1 {
		f.logger.Debug("window rejected", logging.Fields{
			"lo":         lo,
			"hi":         hi,
			"candidates": len(candidates),
		})
		return Peak{}, fmt.Errorf("%w: %d candidates in [%g, %g)", ErrPeakNotFound, len(candidates), lo, hi)
	}

	return f.fit(wx, wy, candidates[0], lo, hi)
}

// Refine fits the lineshape seeded at the window maximum without checking
// how many maxima the window holds
func (f *Finder) Refine(x, y []float64, lo, hi float64) (Peak, error) {
	wx, wy, err := crop(x, y, lo, hi)
	if err != nil {
		return Peak{}, err
	}
	idx := common.ArgMax(wy)
	seed := Candidate{Index: idx, Height: wy[idx], Prominence: Prominence(wy, idx)}
	return f.fit(wx, wy, seed, lo, hi)
}

func crop(x, y []float64, lo, hi float64) ([]float64, []float64, error) {
	if len(x) != len(y) {
		return nil, nil, fmt.Errorf("axis has %d samples but intensity has %d", len(x), len(y))
	}
	start, end := common.WindowBounds(x, lo, hi)
	if end-start < 3 {
		return nil, nil, fmt.Errorf("%w: window [%g, %g) holds %d samples", ErrPeakNotFound, lo, hi, end-start)
	}
	return x[start:end], y[start:end], nil
}

func (f *Finder) fit(x, y []float64, seed Candidate, lo, hi float64) (peak Peak, err error) {
	// lm panics when the damped normal equations are singular
	defer func() {
		if r := recover(); r != nil {
			f.logger.Debug("fit aborted", logging.Fields{"lo": lo, "hi": hi, "reason": fmt.Sprint(r)})
			peak, err = Peak{}, fmt.Errorf("%w: %v", ErrFitDidNotConverge, r)
		}
	}()

	shape := f.opts.LineShape
	dim := shape.ParamCount()
	if len(x) < dim {
		return Peak{}, fmt.Errorf("%w: %d samples for %d parameters", ErrFitDidNotConverge, len(x), dim)
	}

	init := shape.InitialParams(x[seed.Index], y[seed.Index], f.opts.InitialWidth, common.Min(y))

	residual := func(dst, p []float64) {
		for i := range x {
			dst[i] = shape.Eval(x[i], p) - y[i]
		}
	}
	cost := func(p []float64) float64 {
		r := make([]float64, len(x))
		residual(r, p)
		return common.SumSquares(r)
	}

	jacobian := &lm.NumJac{Func: residual}
	problem := lm.LMProblem{
		Dim:        dim,
		Size:       len(x),
		Func:       residual,
		Jac:        jacobian.Jac,
		InitParams: append([]float64(nil), init...),
		Tau:        f.opts.Tau,
		Eps1:       f.opts.Eps1,
		Eps2:       f.opts.Eps2,
	}

	result, err := lm.LM(problem, &lm.Settings{Iterations: f.opts.MaxIterations, ObjectiveTol: f.opts.ObjectiveTol})
	if err != nil {
		return Peak{}, fmt.Errorf("%w: %v", ErrFitDidNotConverge, err)
	}
	if len(result.X) != dim || !common.AllFinite(result.X) {
		return Peak{}, fmt.Errorf("%w: non-finite parameters", ErrFitDidNotConverge)
	}

	params := append([]float64(nil), result.X...)
	center := shape.Center(params)
	final, start := cost(params), cost(init)
	if math.IsNaN(final) || final > start || (start > 0 && final >= start) {
		return Peak{}, fmt.Errorf("%w: residual did not drop from %g (final %g)", ErrFitDidNotConverge, start, final)
	}
	if params[1] <= 0 {
		return Peak{}, fmt.Errorf("%w: fitted intensity %g", ErrFitDidNotConverge, params[1])
	}
	if center < lo || center >= hi {
		return Peak{}, fmt.Errorf("%w: center %g left window [%g, %g)", ErrFitDidNotConverge, center, lo, hi)
	}

	f.logger.Debug("peak fitted", logging.Fields{
		"seed":   x[seed.Index],
		"center": center,
		"rss":    final,
	})

	return Peak{
		Center:    center,
		Intensity: params[1],
		Params:    params,
		LineShape: shape,
		Seed:      seed,
		SeedX:     x[seed.Index],
		Residual:  final,
	}, nil
}
