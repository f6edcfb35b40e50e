package calibration

import (
	"errors"
	"fmt"

	"github.com/chiashi-lab/RamanCalibrator/algorithms/peaks"
)

var (
	ErrAxisMismatch      = errors.New("reference axis does not match raw axis")
	ErrInsufficientPeaks = errors.New("insufficient peak assignments")
	ErrRegressionFailed  = errors.New("regression failed")
	ErrOverlappingWindow = errors.New("overlapping peak window")
	ErrInvalidWindow     = errors.New("invalid peak window")
	ErrCountMismatch     = errors.New("window and true value counts differ")
	ErrInvalidState      = errors.New("invalid calibrator state")
	ErrNotCalibrated     = errors.New("not calibrated")
	ErrUnknownMaterial   = errors.New("unknown reference material")

	// Per-window failures surfaced by the peak finder
	ErrPeakNotFound      = peaks.ErrPeakNotFound
	ErrFitDidNotConverge = peaks.ErrFitDidNotConverge
)

// WindowError ties a failure to the window that produced it
type WindowError struct {
	Window PeakWindow
	Err    error
}

func (e *WindowError) Error() string {
	return fmt.Sprintf("window %s: %v", e.Window, e.Err)
}

func (e *WindowError) Unwrap() error {
	return e.Err
}
