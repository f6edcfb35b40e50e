package common

import (
	"fmt"
	"math"
	"strings"
)

// NormalizationType defines normalization method
type NormalizationType int

const (
	ZScore NormalizationType = iota
	MinMax
	Peak
)

var normalizationNames = map[NormalizationType]string{
	ZScore: "zscore",
	MinMax: "minmax",
	Peak:   "peak",
}

func (t NormalizationType) String() string {
	if name, ok := normalizationNames[t]; ok {
		return name
	}
	return fmt.Sprintf("NormalizationType(%d)", int(t))
}

// ParseNormalization accepts zscore, minmax or peak in any case
func ParseNormalization(name string) (NormalizationType, error) {
	for t, n := range normalizationNames {
		if strings.EqualFold(name, n) {
			return t, nil
		}
	}
	return MinMax, fmt.Errorf("unknown normalization %q: want zscore, minmax or peak", name)
}

// Normalizer rescales spectra for display
type Normalizer struct {
	method NormalizationType
}

// NewNormalizer creates a new normalizer
func NewNormalizer(method NormalizationType) *Normalizer {
	return &Normalizer{
		method: method,
	}
}

// Normalize returns a rescaled copy of signal
func (n *Normalizer) Normalize(signal []float64) []float64 {
	switch n.method {
	case MinMax:
		return n.minMaxNormalize(signal)
	case Peak:
		return n.peakNormalize(signal)
	default:
		return n.zScoreNormalize(signal)
	}
}

// zScoreNormalize normalizes to zero mean and unit variance
func (n *Normalizer) zScoreNormalize(signal []float64) []float64 {
	normalized := make([]float64, len(signal))
	if len(signal) == 0 {
		return normalized
	}

	mean := Mean(signal)
	std := PopStdDev(signal)
	if std < 1e-10 {
		// constant signal
		for i, val := range signal {
			normalized[i] = val - mean
		}
		return normalized
	}
	for i, val := range signal {
		normalized[i] = (val - mean) / std
	}
	return normalized
}

// minMaxNormalize normalizes to [0, 1] range
func (n *Normalizer) minMaxNormalize(signal []float64) []float64 {
	normalized := make([]float64, len(signal))
	if len(signal) == 0 {
		return normalized
	}

	min, max := signal[0], signal[0]
	for _, val := range signal {
		min = math.Min(min, val)
		max = math.Max(max, val)
	}
	if math.Abs(max-min) < 1e-10 {
		return normalized // all zeros
	}
	for i, val := range signal {
		normalized[i] = (val - min) / (max - min)
	}
	return normalized
}

// peakNormalize scales so the largest magnitude is 1
func (n *Normalizer) peakNormalize(signal []float64) []float64 {
	normalized := make([]float64, len(signal))
	peak := 0.0
	for _, val := range signal {
		peak = math.Max(peak, math.Abs(val))
	}
	if peak < 1e-10 {
		return normalized
	}
	for i, val := range signal {
		normalized[i] = val / peak
	}
	return normalized
}
