package spectral

import (
	"math"
	"math/cmplx"
)

// Faddeeva function w(z) = exp(-z^2) erfc(-iz) by Weideman's rational
// expansion (SIAM J. Numer. Anal. 31, 1994). With 32 terms the relative
// error stays well below 1e-10 on the upper half-plane, which is far more
// than peak fitting needs.
const weidemanTerms = 32

var (
	weidemanL      = math.Sqrt(weidemanTerms / math.Sqrt2)
	weidemanCoeffs = weidemanCoefficients(weidemanTerms, weidemanL)
)

// weidemanCoefficients returns a[1..n] (a[0] unused) of the expansion.
// The coefficients are the Fourier coefficients of
// exp(-t^2)(L^2+t^2) sampled at t = L tan(theta/2).
func weidemanCoefficients(n int, l float64) []float64 {
	m := 2 * n
	m2 := 2 * m

	// f[0] is the theta = -pi sample, where the function vanishes
	f := make([]float64, m2)
	for j := 1; j < m2; j++ {
		theta := float64(j-m) * math.Pi / float64(m)
		t := l * math.Tan(theta/2)
		f[j] = math.Exp(-t*t) * (l*l + t*t)
	}

	// theta = 0 moves to the front
	spectrum := NewFFT().Compute(Shift(f))
	a := make([]float64, n+1)
	for j := 1; j <= n; j++ {
		a[j] = real(spectrum[j]) / float64(m2)
	}
	return a
}

// Faddeeva evaluates w(z). The lower half-plane is reached by the
// reflection w(z) = 2 exp(-z^2) - w(-z).
func Faddeeva(z complex128) complex128 {
	if imag(z) < 0 {
		return 2*cmplx.Exp(-z*z) - Faddeeva(-z)
	}

	l := complex(weidemanL, 0)
	iz := complex(0, 1) * z
	denom := l - iz
	zz := (l + iz) / denom

	p := complex(weidemanCoeffs[weidemanTerms], 0)
	for j := weidemanTerms - 1; j >= 1; j-- {
		p = p*zz + complex(weidemanCoeffs[j], 0)
	}

	return 2*p/(denom*denom) + complex(1/math.Sqrt(math.Pi), 0)/denom
}
