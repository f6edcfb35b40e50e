package export

import (
	"fmt"
	"image/color"

	"github.com/chiashi-lab/RamanCalibrator/algorithms/common"
	"github.com/chiashi-lab/RamanCalibrator/algorithms/stats"
	"github.com/chiashi-lab/RamanCalibrator/logging"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Marker is one peak assignment drawn on the calibration figure
type Marker struct {
	Fitted   float64
	True     float64
	Fallback bool
}

// CalibrationFigure is the reference spectrum before and after correction
type CalibrationFigure struct {
	Title     string
	Raw       []float64
	Corrected []float64
	Intensity []float64
	Markers   []Marker
}

// PlotConfig sets the output size. MapClip is the percentage of pixels
// saturated at each end of a heat map colour scale.
type PlotConfig struct {
	Width         vg.Length
	Height        vg.Length
	MapClip       float64
	Normalization common.NormalizationType
}

func DefaultPlotConfig() PlotConfig {
	return PlotConfig{Width: 8 * vg.Inch, Height: 5 * vg.Inch, MapClip: 1, Normalization: common.MinMax}
}

var (
	rawColor       = color.RGBA{R: 120, G: 120, B: 120, A: 255}
	correctedColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	markerColor    = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// the corrected trace sits this many trace heights above the raw one
const traceOffset = 1.1

func xys(x, y []float64, offset float64) plotter.XYs {
	pts := make(plotter.XYs, len(x))
	for i := range x {
		pts[i].X = x[i]
		pts[i].Y = y[i] + offset
	}
	return pts
}

// BuildCalibrationPlot draws the normalized reference on the raw axis with
// the fitted peak centers, and above it the same data on the corrected axis
// with the true positions
func BuildCalibrationPlot(fig CalibrationFigure, norm common.NormalizationType) (*plot.Plot, error) {
	n := len(fig.Intensity)
	if n == 0 || len(fig.Raw) != n || (fig.Corrected != nil && len(fig.Corrected) != n) {
		return nil, fmt.Errorf("%w: raw %d, corrected %d, intensity %d",
			ErrLengthMismatch, len(fig.Raw), len(fig.Corrected), n)
	}

	p := plot.New()
	p.Title.Text = fig.Title
	p.X.Label.Text = "Raman shift (cm-1)"
	p.Y.Label.Text = fmt.Sprintf("Intensity (%s)", norm)
	p.Add(plotter.NewGrid())

	y := common.NewNormalizer(norm).Normalize(fig.Intensity)
	interp := common.NewInterpolator()
	offset := traceOffset
	if span := floats.Max(y) - floats.Min(y); span > 0 {
		offset *= span
	}

	rawLine, err := plotter.NewLine(xys(fig.Raw, y, 0))
	if err != nil {
		return nil, err
	}
	rawLine.LineStyle.Color = rawColor
	rawLine.LineStyle.Width = vg.Points(1)
	p.Add(rawLine)
	p.Legend.Add("raw axis", rawLine)

	if len(fig.Markers) > 0 {
		fitted := make(plotter.XYs, len(fig.Markers))
		for i, m := range fig.Markers {
			fitted[i].X = m.Fitted
			fitted[i].Y = interp.At(fig.Raw, y, m.Fitted)
		}
		sc, err := plotter.NewScatter(fitted)
		if err != nil {
			return nil, err
		}
		sc.GlyphStyle.Color = markerColor
		sc.GlyphStyle.Radius = vg.Points(3)
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		// window maxima taken after a failed fit are drawn grey
		sc.GlyphStyleFunc = func(i int) draw.GlyphStyle {
			st := sc.GlyphStyle
			if fig.Markers[i].Fallback {
				st.Color = rawColor
			}
			return st
		}
		p.Add(sc)
		p.Legend.Add("fitted center", sc)
	}

	if fig.Corrected == nil {
		return p, nil
	}

	corrLine, err := plotter.NewLine(xys(fig.Corrected, y, offset))
	if err != nil {
		return nil, err
	}
	corrLine.LineStyle.Color = correctedColor
	corrLine.LineStyle.Width = vg.Points(1)
	p.Add(corrLine)
	p.Legend.Add("corrected axis", corrLine)

	if len(fig.Markers) > 0 {
		truth := make(plotter.XYs, len(fig.Markers))
		for i, m := range fig.Markers {
			truth[i].X = m.True
			truth[i].Y = interp.At(fig.Corrected, y, m.True) + offset
		}
		sc, err := plotter.NewScatter(truth)
		if err != nil {
			return nil, err
		}
		sc.GlyphStyle.Color = markerColor
		sc.GlyphStyle.Radius = vg.Points(4)
		sc.GlyphStyle.Shape = draw.CrossGlyph{}
		p.Add(sc)
		p.Legend.Add("true position", sc)
	}
	return p, nil
}

// SaveCalibrationPlot renders the figure; the format follows the extension
func SaveCalibrationPlot(path string, cfg PlotConfig, fig CalibrationFigure) error {
	p, err := BuildCalibrationPlot(fig, cfg.Normalization)
	if err != nil {
		return err
	}
	if err := p.Save(cfg.Width, cfg.Height, path); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}
	logging.Info("calibration plot saved", logging.Fields{
		"component": "plot_export",
		"path":      path,
		"markers":   len(fig.Markers),
	})
	return nil
}

// intensityGrid adapts a Grid2D to plotter.GridXYZ. Column c is drawn at
// x = c and row r at y = r, so row 0 sits at the bottom.
type intensityGrid struct {
	grid     common.Grid2D
	min, max float64
}

func newIntensityGrid(g common.Grid2D, clip float64) intensityGrid {
	min, max, err := stats.NewPercentiles().Range(g.Data, clip, 100-clip)
	if err != nil {
		min, max = 0, 1
	}
	// flat maps still need a non-empty colour range
	if max == min {
		max = min + 1
	}
	return intensityGrid{grid: g, min: min, max: max}
}

func (g intensityGrid) Dims() (c, r int)   { return g.grid.Cols, g.grid.Rows }
func (g intensityGrid) Z(c, r int) float64 { return g.grid.At(r, c) }
func (g intensityGrid) X(c int) float64    { return float64(c) }
func (g intensityGrid) Y(r int) float64    { return float64(r) }
func (g intensityGrid) Min() float64       { return g.min }
func (g intensityGrid) Max() float64       { return g.max }

// BuildMapPlot draws an intensity grid as a heat map. Values outside the
// clip..100-clip percentile range saturate.
func BuildMapPlot(title string, grid common.Grid2D, clip float64) (*plot.Plot, error) {
	if grid.Empty() || len(grid.Data) != grid.Rows*grid.Cols {
		return nil, fmt.Errorf("%w: grid %dx%d with %d cells", ErrLengthMismatch, grid.Rows, grid.Cols, len(grid.Data))
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "column"
	p.Y.Label.Text = "row"

	if clip < 0 || clip >= 50 {
		return nil, fmt.Errorf("colour clip %v outside [0, 50)", clip)
	}
	ig := newIntensityGrid(grid, clip)
	logging.Debug("map colour range", logging.Fields{"min": ig.min, "max": ig.max, "clip": clip})

	hm := plotter.NewHeatMap(ig, palette.Heat(64, 1))
	p.Add(hm)
	return p, nil
}

// SaveMapPlot renders an intensity grid to path
func SaveMapPlot(path string, cfg PlotConfig, title string, grid common.Grid2D) error {
	p, err := BuildMapPlot(title, grid, cfg.MapClip)
	if err != nil {
		return err
	}
	if err := p.Save(cfg.Width, cfg.Height, path); err != nil {
		return fmt.Errorf("failed to save map plot: %w", err)
	}
	return nil
}
