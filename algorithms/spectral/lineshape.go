package spectral

import (
	"fmt"
	"math"
	"strings"
)

// widthFloor is the width below which a Voigt component is treated as absent
const widthFloor = 1e-12

// LineShape selects the peak model used for center refinement
type LineShape int

const (
	Voigt LineShape = iota
	Lorentzian
	Gaussian
)

func (ls LineShape) String() string {
	switch ls {
	case Voigt:
		return "Voigt"
	case Lorentzian:
		return "Lorentzian"
	case Gaussian:
		return "Gaussian"
	default:
		return "Unknown"
	}
}

// ParseLineShape accepts the names printed by String, case-insensitively
func ParseLineShape(name string) (LineShape, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "voigt", "":
		return Voigt, nil
	case "lorentzian", "lorentz":
		return Lorentzian, nil
	case "gaussian", "gauss":
		return Gaussian, nil
	default:
		return Voigt, fmt.Errorf("unknown line shape %q", name)
	}
}

// LineShapes lists the supported models in menu order
func LineShapes() []LineShape {
	return []LineShape{Voigt, Lorentzian, Gaussian}
}

// MarshalText lets configs carry the shape by name
func (ls LineShape) MarshalText() ([]byte, error) {
	return []byte(ls.String()), nil
}

// UnmarshalText parses a shape name
func (ls *LineShape) UnmarshalText(text []byte) error {
	parsed, err := ParseLineShape(string(text))
	if err != nil {
		return err
	}
	*ls = parsed
	return nil
}

// ParamCount is the length of the parameter vector Eval expects.
//
//	Voigt:      center, intensity, lorentzian width, gaussian width, baseline
//	Lorentzian: center, intensity, width, baseline
//	Gaussian:   center, intensity, width, baseline
func (ls LineShape) ParamCount() int {
	if ls == Voigt {
		return 5
	}
	return 4
}

// InitialParams builds a starting vector from the position and height of the
// window maximum, a width guess and the window minimum
func (ls LineShape) InitialParams(xMax, yMax, width, yMin float64) []float64 {
	if ls == Voigt {
		return []float64{xMax, yMax, width, width, yMin}
	}
	return []float64{xMax, yMax, width, yMin}
}

// Eval evaluates the model at x for a parameter vector laid out as in ParamCount
func (ls LineShape) Eval(x float64, p []float64) float64 {
	switch ls {
	case Lorentzian:
		return LorentzianAt(x, p[0], p[1], p[2], p[3])
	case Gaussian:
		return GaussianAt(x, p[0], p[1], p[2], p[3])
	default:
		return VoigtAt(x, p[0], p[1], p[2], p[3], p[4])
	}
}

// Center returns the center from a parameter vector
func (ls LineShape) Center(p []float64) float64 {
	return p[0]
}

// VoigtAt is the Voigt profile built from the real part of the Faddeeva
// function, scaled so the value at center is intensity above baseline.
func VoigtAt(x, center, intensity, lorentzianWidth, gaussianWidth, baseline float64) float64 {
	gamma := math.Abs(lorentzianWidth)
	sigma := math.Abs(gaussianWidth)

	switch {
	case sigma < widthFloor && gamma < widthFloor:
		if x == center {
			return intensity + baseline
		}
		return baseline
	case sigma < widthFloor:
		return LorentzianAt(x, center, intensity, gamma, baseline)
	case gamma < widthFloor:
		return GaussianAt(x, center, intensity, sigma, baseline)
	}

	scale := sigma * math.Sqrt2
	z := complex((x-center)/scale, gamma/scale)
	peak := real(Faddeeva(complex(0, gamma/scale)))

	return intensity*real(Faddeeva(z))/peak + baseline
}

// LorentzianAt is a Lorentzian with half width at half maximum width
func LorentzianAt(x, center, intensity, width, baseline float64) float64 {
	g := width * width
	if g == 0 {
		if x == center {
			return intensity + baseline
		}
		return baseline
	}
	d := x - center
	return intensity*g/(d*d+g) + baseline
}

// GaussianAt is a Gaussian with standard deviation width
func GaussianAt(x, center, intensity, width, baseline float64) float64 {
	if width == 0 {
		if x == center {
			return intensity + baseline
		}
		return baseline
	}
	d := (x - center) / width
	return intensity*math.Exp(-0.5*d*d) + baseline
}

// EvalAll evaluates the model over a slice of positions
func (ls LineShape) EvalAll(x []float64, p []float64) []float64 {
	out := make([]float64, len(x))
	for i, xi := range x {
		out[i] = ls.Eval(xi, p)
	}
	return out
}
