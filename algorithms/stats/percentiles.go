// Package stats summarises distributions of map intensities.
package stats

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var ErrEmpty = errors.New("no finite values")

// PercentileMethod selects how a percentile between two ranks is resolved
type PercentileMethod int

const (
	// Linear interpolation between closest ranks
	Linear PercentileMethod = iota

	// Lower value of the two closest ranks
	Lower

	// Higher value of the two closest ranks
	Higher

	// Midpoint of the two closest ranks
	Midpoint
)

// Summary describes the finite values of a sample
type Summary struct {
	Count  int     `json:"count"`
	NaN    int     `json:"nan"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
}

// IQR is the interquartile range
func (s Summary) IQR() float64 {
	return s.Q3 - s.Q1
}

func (s Summary) String() string {
	return fmt.Sprintf("n=%d min=%.4g q1=%.4g median=%.4g q3=%.4g max=%.4g mean=%.4g std=%.4g",
		s.Count, s.Min, s.Q1, s.Median, s.Q3, s.Max, s.Mean, s.StdDev)
}

// Percentiles computes rank statistics over samples that may hold NaN
type Percentiles struct {
	method PercentileMethod
}

// NewPercentiles uses linear interpolation
func NewPercentiles() *Percentiles {
	return &Percentiles{method: Linear}
}

func NewPercentilesWithMethod(method PercentileMethod) *Percentiles {
	return &Percentiles{method: method}
}

// finite returns a sorted copy of the non-NaN values and the NaN count
func finite(data []float64) ([]float64, int) {
	values := make([]float64, 0, len(data))
	for _, v := range data {
		if !math.IsNaN(v) {
			values = append(values, v)
		}
	}
	sort.Float64s(values)
	return values, len(data) - len(values)
}

// Percentile returns the p-th percentile, p in [0, 100]. NaN values are ignored.
func (p *Percentiles) Percentile(data []float64, percentile float64) (float64, error) {
	if percentile < 0 || percentile > 100 || math.IsNaN(percentile) {
		return 0, fmt.Errorf("percentile %v outside [0, 100]", percentile)
	}
	values, _ := finite(data)
	if len(values) == 0 {
		return 0, ErrEmpty
	}
	return p.sorted(values, percentile/100), nil
}

// Range returns the lo-th and hi-th percentiles in one pass
func (p *Percentiles) Range(data []float64, lo, hi float64) (float64, float64, error) {
	if lo < 0 || hi > 100 || lo > hi {
		return 0, 0, fmt.Errorf("percentile range [%v, %v] invalid", lo, hi)
	}
	values, _ := finite(data)
	if len(values) == 0 {
		return 0, 0, ErrEmpty
	}
	return p.sorted(values, lo/100), p.sorted(values, hi/100), nil
}

// sorted evaluates quantile q of an ascending slice
func (p *Percentiles) sorted(values []float64, q float64) float64 {
	n := len(values)
	if n == 1 {
		return values[0]
	}
	h := float64(n-1) * q
	lower := int(math.Floor(h))
	upper := int(math.Ceil(h))
	if upper >= n {
		upper = n - 1
	}

	switch p.method {
	case Lower:
		return values[lower]
	case Higher:
		return values[upper]
	case Midpoint:
		return (values[lower] + values[upper]) / 2
	default:
		if lower == upper {
			return values[lower]
		}
		return values[lower] + (h-float64(lower))*(values[upper]-values[lower])
	}
}

// Summarize computes count, extremes, moments and quartiles
func (p *Percentiles) Summarize(data []float64) (Summary, error) {
	values, nan := finite(data)
	if len(values) == 0 {
		return Summary{NaN: nan}, ErrEmpty
	}
	s := Summary{
		Count:  len(values),
		NaN:    nan,
		Min:    floats.Min(values),
		Max:    floats.Max(values),
		Mean:   stat.Mean(values, nil),
		Q1:     p.sorted(values, 0.25),
		Median: p.sorted(values, 0.5),
		Q3:     p.sorted(values, 0.75),
	}
	if len(values) > 1 {
		s.StdDev = stat.PopStdDev(values, nil)
	}
	return s, nil
}
