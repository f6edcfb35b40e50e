package common

import (
	"gonum.org/v1/gonum/interp"
)

// Interpolator evaluates sampled spectra linearly between axis samples.
// The axis must be strictly increasing; other axes evaluate to zero.
type Interpolator struct{}

// NewInterpolator creates a new interpolator
func NewInterpolator() *Interpolator {
	return &Interpolator{}
}

// constant covers single-sample spectra
type constant float64

func (c constant) Predict(float64) float64 { return float64(c) }

// predictor fits y over axis. Values outside the axis clamp to the first
// or last sample.
func (ip *Interpolator) predictor(axis, y []float64) (interp.Predictor, bool) {
	n := len(axis)
	if n == 0 || len(y) != n || !IsStrictlyIncreasing(axis) {
		return nil, false
	}
	if n == 1 {
		return constant(y[0]), true
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(axis, y); err != nil {
		return nil, false
	}
	return pl, true
}

// At evaluates y at wavenumber x
func (ip *Interpolator) At(axis, y []float64, x float64) float64 {
	p, ok := ip.predictor(axis, y)
	if !ok {
		return 0.0
	}
	return p.Predict(x)
}

// Resample evaluates y on every point of target
func (ip *Interpolator) Resample(axis, y, target []float64) []float64 {
	out := make([]float64, len(target))
	p, ok := ip.predictor(axis, y)
	if !ok {
		return out
	}
	for i, x := range target {
		out[i] = p.Predict(x)
	}
	return out
}
