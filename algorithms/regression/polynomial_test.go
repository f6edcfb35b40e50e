package regression

import (
	"errors"
	"math"
	"testing"
)

func TestFitPolynomialInterpolatesExactly(t *testing.T) {
	// a smooth, slightly nonlinear axis distortion
	truth := func(x float64) float64 { return 3.5 + 0.998*x + 2e-6*x*x }
	centers := []float64{218.4, 472.1, 1001.9, 1603.2, 2250.7}

	for degree := 1; degree <= 4; degree++ {
		x := centers[:degree+1]
		y := make([]float64, len(x))
		for i, v := range x {
			y[i] = truth(v)
		}
		p, err := FitPolynomial(x, y, degree, 0)
		if err != nil {
			t.Fatalf("degree %d: %v", degree, err)
		}
		for i, v := range x {
			if got := p.Eval(v); math.Abs(got-y[i]) > 1e-8 {
				t.Fatalf("degree %d: p(%v) = %v, want %v", degree, v, got, y[i])
			}
		}
	}
}

func TestFitPolynomialLeastSquares(t *testing.T) {
	x := []float64{0, 1, 2, 3}
	y := []float64{1, 3, 5, 7}
	p, err := FitPolynomial(x, y, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	raw := p.RawCoefficients()
	if math.Abs(raw[0]-1) > 1e-12 || math.Abs(raw[1]-2) > 1e-12 {
		t.Fatalf("raw coefficients = %v, want [1 2]", raw)
	}
	for _, r := range p.Residuals(x, y) {
		if math.Abs(r) > 1e-12 {
			t.Fatalf("residual %v on exact line", r)
		}
	}
}

func TestFitPolynomialUnderdetermined(t *testing.T) {
	_, err := FitPolynomial([]float64{100, 200}, []float64{101, 199}, 3, 0)
	if !errors.Is(err, ErrUnderdetermined) {
		t.Fatalf("err = %v, want ErrUnderdetermined", err)
	}
}

func TestFitPolynomialDuplicateAbscissae(t *testing.T) {
	_, err := FitPolynomial([]float64{500, 500, 900}, []float64{501, 502, 899}, 2, 0)
	if !errors.Is(err, ErrSingular) {
		t.Fatalf("err = %v, want ErrSingular", err)
	}
	_, err = FitPolynomial([]float64{500, 500}, []float64{501, 502}, 1, 0)
	if !errors.Is(err, ErrSingular) {
		t.Fatalf("err = %v, want ErrSingular", err)
	}
}

func TestRawCoefficientsMatchEval(t *testing.T) {
	x := []float64{100, 400, 900, 1500, 2100}
	y := []float64{98, 401, 905, 1497, 2104}
	p, err := FitPolynomial(x, y, 3, 0)
	if err != nil {
		t.Fatal(err)
	}
	raw := p.RawCoefficients()
	for _, v := range []float64{150, 1234, 2000} {
		direct := 0.0
		for j := len(raw) - 1; j >= 0; j-- {
			direct = direct*v + raw[j]
		}
		if math.Abs(direct-p.Eval(v)) > 1e-6 {
			t.Fatalf("expanded %v vs scaled %v at %v", direct, p.Eval(v), v)
		}
	}
}

func TestEvalIsDeterministic(t *testing.T) {
	p, err := FitPolynomial([]float64{1, 2, 3}, []float64{2, 4, 7}, 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	in := []float64{0.5, 1.5, 2.5}
	a, b := p.EvalAll(in), p.EvalAll(in)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("EvalAll not deterministic at %d", i)
		}
	}
}
