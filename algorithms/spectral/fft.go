package spectral

import (
	"github.com/mjibson/go-dsp/fft"
)

// FFT computes discrete Fourier transforms of real samples with go-dsp
type FFT struct{}

func NewFFT() *FFT {
	return &FFT{}
}

// Compute returns the forward transform of x. Any length is accepted.
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}
	return fft.FFTReal(x)
}

// Shift rotates x left by len(x)/2, moving the centre sample to index 0
func Shift(x []float64) []float64 {
	n := len(x)
	out := make([]float64, n)
	for i := range out {
		out[i] = x[(i+n/2)%n]
	}
	return out
}
