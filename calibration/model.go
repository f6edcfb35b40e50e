package calibration

import (
	"fmt"
	"slices"
	"strings"

	"github.com/chiashi-lab/RamanCalibrator/algorithms/common"
	"github.com/chiashi-lab/RamanCalibrator/algorithms/peaks"
	"github.com/chiashi-lab/RamanCalibrator/algorithms/regression"
	"github.com/chiashi-lab/RamanCalibrator/algorithms/spectral"
)

// Mode tells how assignments were produced
type Mode string

const (
	ModeAuto   Mode = "auto"
	ModeManual Mode = "manual"
)

// Assignment pairs a fitted peak center on the raw axis with its true position
type Assignment struct {
	Window PeakWindow
	Fitted float64
	True   float64
	// Peak is the lineshape fit; zero when Fallback is set
	Peak peaks.Peak
	// Fallback marks a manual window whose fit failed and whose center is
	// the window maximum instead
	Fallback bool
}

// Model maps raw wavenumbers to calibrated ones. It is immutable once fitted.
type Model struct {
	degree      int
	poly        regression.Polynomial
	assignments []Assignment
}

func fitModel(assignments []Assignment, degree int, maxCond float64) (*Model, error) {
	if degree < 1 {
		return nil, fmt.Errorf("%w: degree %d", ErrRegressionFailed, degree)
	}
	if len(assignments) < degree+1 {
		return nil, fmt.Errorf("%w: %w: degree %d needs %d assignments, have %d",
			ErrRegressionFailed, ErrInsufficientPeaks, degree, degree+1, len(assignments))
	}

	fitted := make([]float64, len(assignments))
	truth := make([]float64, len(assignments))
	for i, a := range assignments {
		fitted[i] = a.Fitted
		truth[i] = a.True
	}

	poly, err := regression.FitPolynomial(fitted, truth, degree, maxCond)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRegressionFailed, err)
	}
	return &Model{degree: degree, poly: poly, assignments: slices.Clone(assignments)}, nil
}

func (m *Model) Degree() int {
	return m.degree
}

// Coefficients are ascending powers of the raw wavenumber
func (m *Model) Coefficients() []float64 {
	return m.poly.RawCoefficients()
}

func (m *Model) Assignments() []Assignment {
	return slices.Clone(m.assignments)
}

// Apply maps every raw value through the fitted polynomial
func (m *Model) Apply(raw []float64) []float64 {
	return m.poly.EvalAll(raw)
}

// Residuals returns true minus predicted for each assignment
func (m *Model) Residuals() []float64 {
	fitted := make([]float64, len(m.assignments))
	truth := make([]float64, len(m.assignments))
	for i, a := range m.assignments {
		fitted[i] = a.Fitted
		truth[i] = a.True
	}
	return m.poly.Residuals(fitted, truth)
}

// Provenance is the calibration record embedded in exported files
type Provenance struct {
	Material      Material           `json:"material"`
	Degree        int                `json:"degree"`
	LineShape     spectral.LineShape `json:"line_shape"`
	Mode          Mode               `json:"mode"`
	TruePositions []float64          `json:"true_positions"`
}

// String renders a one-line record, e.g.
// ['sulfur', 1, 'Voigt', 'auto', [153.8, 219.1, 473.2]]
func (p Provenance) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "['%s', %d, '%s', '%s', ", p.Material, p.Degree, p.LineShape, p.Mode)
	b.WriteString(common.ReprFloats(p.TruePositions))
	b.WriteString("]")
	return b.String()
}
