package common

import (
	"math"
	"strconv"
	"strings"
)

// ReprFloat formats v the way Python's repr does: shortest round-trip
// digits, positional notation for decimal exponents in [-4, 16) with a
// trailing ".0" on integral values, scientific notation otherwise.
func ReprFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case v == 0:
		if math.Signbit(v) {
			return "-0.0"
		}
		return "0.0"
	}

	sci := strconv.FormatFloat(v, 'e', -1, 64)
	exp, err := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if err != nil || exp < -4 || exp >= 16 {
		return sci
	}

	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// ReprFloats formats a slice like a Python list of floats
func ReprFloats(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = ReprFloat(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
