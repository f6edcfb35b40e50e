package mapping

import (
	"fmt"
	"math"
)

// Geometry places a map on the stage in physical units (µm).
// Origin is the corner of pixel (0, 0); Pitch may be negative when the
// instrument counts rows downwards.
type Geometry struct {
	Origin [2]float64 `json:"origin"`
	Pitch  [2]float64 `json:"pitch"`
	Span   [2]float64 `json:"span"`
}

// SinglePointGeometry is the unit geometry given to point measurements
func SinglePointGeometry() Geometry {
	return Geometry{Origin: [2]float64{0, 0}, Pitch: [2]float64{1, 1}, Span: [2]float64{1, 1}}
}

// Validate rejects zero or non-finite pitches
func (g Geometry) Validate() error {
	values := []float64{g.Origin[0], g.Origin[1], g.Pitch[0], g.Pitch[1], g.Span[0], g.Span[1]}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite value %v", ErrInvalidGeometry, g)
		}
	}
	if g.Pitch[0] == 0 || g.Pitch[1] == 0 {
		return fmt.Errorf("%w: zero pitch %v", ErrInvalidGeometry, g.Pitch)
	}
	return nil
}

// CoordToIndex returns the pixel enclosing (x, y). It floors rather than
// rounds, so any point inside a pixel maps to that pixel.
func (g Geometry) CoordToIndex(x, y float64) (row, col int) {
	col = int(math.Floor((x - g.Origin[0]) / g.Pitch[0]))
	row = int(math.Floor((y - g.Origin[1]) / g.Pitch[1]))
	return row, col
}

// IndexToCoord returns the center of pixel (row, col)
func (g Geometry) IndexToCoord(row, col int) (x, y float64) {
	x = g.Origin[0] + g.Pitch[0]*(float64(col)+0.5)
	y = g.Origin[1] + g.Pitch[1]*(float64(row)+0.5)
	return x, y
}

// IsInside tests the half-open box spanned by Origin and Origin+Span.
// The edges are sorted first, so negative spans work the same.
func (g Geometry) IsInside(x, y float64) bool {
	xmin, xmax := sorted(g.Origin[0], g.Origin[0]+g.Span[0])
	ymin, ymax := sorted(g.Origin[1], g.Origin[1]+g.Span[1])
	return x >= xmin && x < xmax && y >= ymin && y < ymax
}

func sorted(a, b float64) (float64, float64) {
	if a > b {
		return b, a
	}
	return a, b
}

// Overlay positions an optical image under the map
type Overlay struct {
	Path   string     `json:"path,omitempty"`
	Origin [2]float64 `json:"origin"`
	Size   [2]float64 `json:"size"`
}

// FlippedOverlay is the placeholder overlay for instruments without a
// camera image: it covers the map with the y axis pointing down
func FlippedOverlay(g Geometry) Overlay {
	return Overlay{
		Origin: [2]float64{g.Origin[0], g.Origin[1] + g.Span[1]},
		Size:   [2]float64{g.Span[0], -g.Span[1]},
	}
}

// SinglePointOverlay frames the unit pixel of a point measurement
func SinglePointOverlay() Overlay {
	return Overlay{Origin: [2]float64{-0.1, -0.1}, Size: [2]float64{1.2, 1.2}}
}

// MapInfo describes a loaded map in display order
type MapInfo struct {
	Axis        []float64    `json:"axis"`
	Rows        int          `json:"rows"`
	Cols        int          `json:"cols"`
	Repeats     int          `json:"repeats"`
	Length      int          `json:"length"`
	Order       StorageOrder `json:"order"`
	Geometry    Geometry     `json:"geometry"`
	Overlay     *Overlay     `json:"overlay,omitempty"`
	SinglePoint bool         `json:"single_point"`
}

// Contains reports whether (row, col) addresses a pixel of the map
func (m MapInfo) Contains(row, col int) bool {
	return row >= 0 && row < m.Rows && col >= 0 && col < m.Cols
}
