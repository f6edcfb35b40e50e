package common

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Basic statistical helpers shared by the spectral and mapping code, backed by gonum

// Mean calculates the arithmetic mean of a slice using gonum
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// PopStdDev calculates the population (ddof=0) standard deviation
func PopStdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0.0
	}
	return stat.PopStdDev(data, nil)
}

// Linspace returns n evenly spaced samples from start to stop inclusive
func Linspace(start, stop float64, n int) []float64 {
	switch {
	case n <= 0:
		return []float64{}
	case n == 1:
		return []float64{start}
	}
	return floats.Span(make([]float64, n), start, stop)
}

// ArgMax returns the index of the largest value, or -1 for empty input
func ArgMax(data []float64) int {
	if len(data) == 0 {
		return -1
	}
	return floats.MaxIdx(data)
}

// Min returns the smallest value; empty input yields NaN
func Min(data []float64) float64 {
	if len(data) == 0 {
		return math.NaN()
	}
	return floats.Min(data)
}

// IsStrictlyIncreasing reports whether every sample is larger than the previous one
func IsStrictlyIncreasing(data []float64) bool {
	for i := 1; i < len(data); i++ {
		if !(data[i] > data[i-1]) {
			return false
		}
	}
	return true
}

// WindowBounds returns [start, end) indices of the ascending axis samples
// that fall inside the half-open interval [lo, hi).
func WindowBounds(axis []float64, lo, hi float64) (start, end int) {
	start = sort.SearchFloat64s(axis, lo)
	end = sort.SearchFloat64s(axis, hi)
	if end < start {
		end = start
	}
	return start, end
}

// AxesEqual compares two axes sample for sample with a relative tolerance
func AxesEqual(a, b []float64, relTol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] == b[i] {
			continue
		}
		scale := math.Max(math.Abs(a[i]), math.Abs(b[i]))
		if math.Abs(a[i]-b[i]) > relTol*scale {
			return false
		}
	}
	return true
}

// AllFinite reports whether no value is NaN or infinite
func AllFinite(data []float64) bool {
	for _, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// SumSquares returns the sum of squared values
func SumSquares(data []float64) float64 {
	return floats.Dot(data, data)
}

// Clamp constrains a value to a range
func Clamp(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
