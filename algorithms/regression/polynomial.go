package regression

import (
	"errors"
	"fmt"
	"math"

	"github.com/chiashi-lab/RamanCalibrator/algorithms/common"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrUnderdetermined means fewer observations than coefficients
	ErrUnderdetermined = errors.New("fewer observations than coefficients")
	// ErrSingular means the design matrix is rank deficient or too badly
	// conditioned to trust, e.g. duplicated abscissae
	ErrSingular = errors.New("singular design matrix")
)

// DefaultMaxCondition bounds the condition number of the scaled design matrix
const DefaultMaxCondition = 1e10

// Polynomial is a least-squares polynomial in the scaled variable
// u = (x - Shift) / Scale. Coeffs are ascending powers of u.
type Polynomial struct {
	Degree int
	Coeffs []float64
	Shift  float64
	Scale  float64
}

// FitPolynomial fits y ≈ Σ c_j u^j by ordinary least squares over the
// feature vector [1, u, u², …, u^degree]. Centering and scaling x keeps the
// Vandermonde matrix well conditioned for wavenumbers in the thousands.
func FitPolynomial(x, y []float64, degree int, maxCond float64) (Polynomial, error) {
	if degree < 0 {
		return Polynomial{}, fmt.Errorf("negative degree %d", degree)
	}
	if len(x) != len(y) {
		return Polynomial{}, fmt.Errorf("%d abscissae but %d ordinates", len(x), len(y))
	}
	if len(x) < degree+1 {
		return Polynomial{}, fmt.Errorf("%w: %d points for %d coefficients", ErrUnderdetermined, len(x), degree+1)
	}
	if !common.AllFinite(x) || !common.AllFinite(y) {
		return Polynomial{}, fmt.Errorf("%w: non-finite input", ErrSingular)
	}
	if maxCond <= 0 {
		maxCond = DefaultMaxCondition
	}

	shift := common.Mean(x)
	scale := 0.0
	for _, v := range x {
		scale = math.Max(scale, math.Abs(v-shift))
	}
	if scale == 0 {
		if degree > 0 {
			return Polynomial{}, fmt.Errorf("%w: all abscissae equal", ErrSingular)
		}
		scale = 1
	}

	n, k := len(x), degree+1
	design := mat.NewDense(n, k, nil)
	for i, v := range x {
		u := (v - shift) / scale
		p := 1.0
		for j := 0; j < k; j++ {
			design.Set(i, j, p)
			p *= u
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(design, mat.SVDNone); !ok {
		return Polynomial{}, fmt.Errorf("%w: SVD failed", ErrSingular)
	}
	if cond := svd.Cond(); math.IsInf(cond, 0) || math.IsNaN(cond) || cond > maxCond {
		return Polynomial{}, fmt.Errorf("%w: condition number %g", ErrSingular, cond)
	}

	var coef mat.VecDense
	if err := coef.SolveVec(design, mat.NewVecDense(n, append([]float64(nil), y...))); err != nil {
		return Polynomial{}, fmt.Errorf("%w: %v", ErrSingular, err)
	}

	coeffs := make([]float64, k)
	for j := range coeffs {
		coeffs[j] = coef.AtVec(j)
	}

	return Polynomial{Degree: degree, Coeffs: coeffs, Shift: shift, Scale: scale}, nil
}

// Eval evaluates the polynomial at x by Horner's rule
func (p Polynomial) Eval(x float64) float64 {
	if len(p.Coeffs) == 0 {
		return math.NaN()
	}
	u := (x - p.Shift) / p.Scale
	v := p.Coeffs[len(p.Coeffs)-1]
	for j := len(p.Coeffs) - 2; j >= 0; j-- {
		v = v*u + p.Coeffs[j]
	}
	return v
}

// EvalAll evaluates the polynomial at every x into a new slice
func (p Polynomial) EvalAll(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = p.Eval(x)
	}
	return out
}

// Residuals returns y - p(x) for each observation
func (p Polynomial) Residuals(x, y []float64) []float64 {
	out := p.EvalAll(x)
	floats.SubTo(out, y, out)
	return out
}

// RawCoefficients expands the polynomial into ascending powers of x
func (p Polynomial) RawCoefficients() []float64 {
	raw := make([]float64, len(p.Coeffs))
	// basis holds the coefficients of ((x - shift)/scale)^j in powers of x
	basis := []float64{1}
	for j, c := range p.Coeffs {
		for i, b := range basis {
			raw[i] += c * b
		}
		if j == len(p.Coeffs)-1 {
			break
		}
		next := make([]float64, len(basis)+1)
		for i, b := range basis {
			next[i+1] += b / p.Scale
			next[i] -= b * p.Shift / p.Scale
		}
		basis = next
	}
	return raw
}
