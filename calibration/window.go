package calibration

import (
	"fmt"
	"math"
	"slices"
)

// PeakWindow is the half-open search interval [Lo, Hi) in cm-1
type PeakWindow struct {
	Lo float64 `json:"lo"`
	Hi float64 `json:"hi"`
}

// NewPeakWindow builds a window from two edges in either order
func NewPeakWindow(a, b float64) (PeakWindow, error) {
	if math.IsNaN(a) || math.IsNaN(b) || math.IsInf(a, 0) || math.IsInf(b, 0) {
		return PeakWindow{}, fmt.Errorf("%w: non-finite edge", ErrInvalidWindow)
	}
	lo, hi := math.Min(a, b), math.Max(a, b)
	if lo == hi {
		return PeakWindow{}, fmt.Errorf("%w: zero width at %g", ErrInvalidWindow, lo)
	}
	return PeakWindow{Lo: lo, Hi: hi}, nil
}

// WindowAround is the automatic window centered on a catalogued position
func WindowAround(center, halfWidth float64) (PeakWindow, error) {
	return NewPeakWindow(center-halfWidth, center+halfWidth)
}

func (w PeakWindow) Contains(x float64) bool {
	return x >= w.Lo && x < w.Hi
}

func (w PeakWindow) Mid() float64 {
	return (w.Lo + w.Hi) / 2
}

// Overlaps reports a non-empty intersection; touching edges do not overlap
func (w PeakWindow) Overlaps(o PeakWindow) bool {
	return w.Lo < o.Hi && o.Lo < w.Hi
}

func (w PeakWindow) String() string {
	return fmt.Sprintf("[%g, %g)", w.Lo, w.Hi)
}

// WindowSet holds the pairwise disjoint windows of one calibration run
type WindowSet struct {
	windows []PeakWindow
}

// Add appends a window unless it intersects one already present
func (s *WindowSet) Add(w PeakWindow) error {
	if !(w.Lo < w.Hi) {
		return &WindowError{Window: w, Err: ErrInvalidWindow}
	}
	for _, other := range s.windows {
		if w.Overlaps(other) {
			return &WindowError{Window: w, Err: fmt.Errorf("%w with %s", ErrOverlappingWindow, other)}
		}
	}
	s.windows = append(s.windows, w)
	return nil
}

// Undo removes the most recently added window
func (s *WindowSet) Undo() (PeakWindow, bool) {
	if len(s.windows) == 0 {
		return PeakWindow{}, false
	}
	last := s.windows[len(s.windows)-1]
	s.windows = s.windows[:len(s.windows)-1]
	return last, true
}

func (s *WindowSet) Clear() {
	s.windows = nil
}

func (s *WindowSet) Len() int {
	return len(s.windows)
}

// Windows returns the windows in insertion order
func (s *WindowSet) Windows() []PeakWindow {
	return slices.Clone(s.windows)
}

// NearestTrue suggests the catalogued position closest to the window middle
func NearestTrue(w PeakWindow, positions []float64) (float64, bool) {
	if len(positions) == 0 {
		return 0, false
	}
	mid := w.Mid()
	best := positions[0]
	for _, p := range positions[1:] {
		if math.Abs(p-mid) < math.Abs(best-mid) {
			best = p
		}
	}
	return best, true
}
