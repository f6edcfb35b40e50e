package session

import (
	"fmt"
	"strconv"

	"github.com/chiashi-lab/RamanCalibrator/calibration"
	"github.com/chiashi-lab/RamanCalibrator/export"
	"github.com/chiashi-lab/RamanCalibrator/mapping"
)

func (s *Session) pixelSource(row, col int) ([]float64, error) {
	_, y, err := s.Spectrum(row, col)
	return y, err
}

// ExportText writes every queued pixel as a text file into dir. The
// configured overwrite flag applies unless overwrite is forced.
func (s *Session) ExportText(dir string, overwrite bool) (export.TextResult, error) {
	if !s.loaded {
		return export.TextResult{}, mapping.ErrNoRawData
	}
	cfg := export.TextConfig{
		Dir:       dir,
		Overwrite: overwrite || s.cfg.Export.Overwrite,
	}
	return export.WriteSpectra(cfg, s.raw.Path, s.info.Rows, s.info.Cols,
		s.saveList, s.Metadata(), s.Axis(), s.pixelSource)
}

// MapWindow names an intensity map to include in a workbook
type MapWindow struct {
	Lo, Hi float64
}

func (w MapWindow) sheetName() string {
	return fmt.Sprintf("Map %s-%s",
		strconv.FormatFloat(w.Lo, 'f', -1, 64),
		strconv.FormatFloat(w.Hi, 'f', -1, 64))
}

// ExportWorkbook writes the queued spectra, one intensity map per window
// and the export metadata to an xlsx file
func (s *Session) ExportWorkbook(path string, windows ...MapWindow) error {
	if !s.loaded {
		return mapping.ErrNoRawData
	}
	wb := export.NewWorkbook()
	defer wb.Close()

	if err := wb.AddSpectra("Spectra", s.Axis(), s.saveList, s.pixelSource); err != nil {
		return err
	}
	for _, w := range windows {
		grid, err := s.MapIntensity(w.Lo, w.Hi)
		if err != nil {
			return err
		}
		if err := wb.AddMap(w.sheetName(), grid); err != nil {
			return err
		}
	}

	useCRR, subtractBG := s.Processing()
	extra := map[string]string{
		"session":     s.id,
		"family":      string(s.raw.Family),
		"order":       s.raw.Order.String(),
		"rows":        strconv.Itoa(s.info.Rows),
		"cols":        strconv.Itoa(s.info.Cols),
		"crr":         strconv.FormatBool(useCRR),
		"subtract_bg": strconv.FormatBool(subtractBG),
	}
	keys := []string{"session", "family", "order", "rows", "cols", "crr", "subtract_bg"}
	if err := wb.AddMetadata("Metadata", s.Metadata(), extra, keys); err != nil {
		return err
	}
	return wb.SaveAs(path)
}

// CalibrationFigure gathers the reference spectrum, both axes and the
// assignments for plotting
func (s *Session) CalibrationFigure() (export.CalibrationFigure, error) {
	ref, ok := s.calibrator.Reference()
	if !ok {
		return export.CalibrationFigure{}, fmt.Errorf("%w: no reference loaded", calibration.ErrInvalidState)
	}
	fig := export.CalibrationFigure{
		Title:     string(ref.Material),
		Raw:       ref.Axis,
		Intensity: ref.Intensity,
	}
	if corrected, err := s.calibrator.CorrectedReference(); err == nil {
		fig.Corrected = corrected.Axis
		if prov, err := s.calibrator.Provenance(); err == nil {
			fig.Title = prov.String()
		}
	}
	for _, a := range s.calibrator.Assignments() {
		fig.Markers = append(fig.Markers, export.Marker{
			Fitted:   a.Fitted,
			True:     a.True,
			Fallback: a.Fallback,
		})
	}
	return fig, nil
}
