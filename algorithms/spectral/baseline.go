package spectral

import (
	"github.com/chiashi-lab/RamanCalibrator/algorithms/common"
	"gonum.org/v1/gonum/floats"
)

// SubtractBaseline removes the straight line joining the first and last
// sample. The input is left untouched.
func SubtractBaseline(y []float64) []float64 {
	if len(y) == 0 {
		return []float64{}
	}
	baseline := common.Linspace(y[0], y[len(y)-1], len(y))
	out := make([]float64, len(y))
	floats.SubTo(out, y, baseline)
	return out
}

// BaselineArea is the sum of a baseline-subtracted window. It is the
// per-pixel scalar behind the false-color intensity maps.
func BaselineArea(y []float64) float64 {
	if len(y) == 0 {
		return 0
	}
	return floats.Sum(SubtractBaseline(y))
}
