package export

import (
	"errors"
	"fmt"

	"github.com/chiashi-lab/RamanCalibrator/algorithms/common"
	"github.com/chiashi-lab/RamanCalibrator/logging"
	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

var ErrDuplicateSheet = errors.New("sheet already exists")

// Workbook collects spectra, intensity maps and metadata into one xlsx file
type Workbook struct {
	file   *excelize.File
	sheets []string
	logger logging.Logger
}

// NewWorkbook creates an empty workbook
func NewWorkbook() *Workbook {
	return &Workbook{
		file: excelize.NewFile(),
		logger: logging.WithFields(logging.Fields{
			"component": "workbook_export",
		}),
	}
}

// Sheets lists the sheet names added so far, in order
func (wb *Workbook) Sheets() []string {
	return append([]string(nil), wb.sheets...)
}

func (wb *Workbook) newSheet(name string) error {
	for _, s := range wb.sheets {
		if s == name {
			return fmt.Errorf("%w: %q", ErrDuplicateSheet, name)
		}
	}
	// the first sheet reuses the one excelize creates
	if len(wb.sheets) == 0 {
		if err := wb.file.SetSheetName(defaultSheet, name); err != nil {
			return err
		}
	} else if _, err := wb.file.NewSheet(name); err != nil {
		return err
	}
	wb.sheets = append(wb.sheets, name)
	return nil
}

// PixelLabel names a pixel column, e.g. "x3_y12"
func PixelLabel(p Pixel) string {
	return fmt.Sprintf("x%d_y%d", p.Col, p.Row)
}

// AddSpectra writes a sheet with the axis in column A and one column per
// pixel, headed by its label
func (wb *Workbook) AddSpectra(sheet string, axis []float64, pixels []Pixel, source SpectrumSource) error {
	if len(pixels) == 0 {
		return ErrNothingToSave
	}
	columns := make([][]float64, len(pixels))
	for i, px := range pixels {
		spectrum, err := source(px.Row, px.Col)
		if err != nil {
			return fmt.Errorf("pixel (%d, %d): %w", px.Row, px.Col, err)
		}
		if len(spectrum) != len(axis) {
			return fmt.Errorf("%w: pixel (%d, %d) has %d samples, axis has %d",
				ErrLengthMismatch, px.Row, px.Col, len(spectrum), len(axis))
		}
		columns[i] = spectrum
	}

	if err := wb.newSheet(sheet); err != nil {
		return err
	}

	header := make([]interface{}, 0, len(pixels)+1)
	header = append(header, "wavenumber")
	for _, px := range pixels {
		header = append(header, PixelLabel(px))
	}
	if err := wb.file.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	for k, x := range axis {
		row := make([]interface{}, 0, len(pixels)+1)
		row = append(row, x)
		for _, col := range columns {
			row = append(row, col[k])
		}
		cell, err := excelize.CoordinatesToCellName(1, k+2)
		if err != nil {
			return err
		}
		if err := wb.file.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	wb.logger.Debug("spectra sheet written", logging.Fields{
		"sheet":   sheet,
		"pixels":  len(pixels),
		"samples": len(axis),
	})
	return nil
}

// AddMap writes an intensity grid. Row 1 holds the column indices and
// column A the row indices; the first grid row is written first.
func (wb *Workbook) AddMap(sheet string, grid common.Grid2D) error {
	if grid.Empty() || len(grid.Data) != grid.Rows*grid.Cols {
		return fmt.Errorf("%w: grid %dx%d with %d cells", ErrLengthMismatch, grid.Rows, grid.Cols, len(grid.Data))
	}
	if err := wb.newSheet(sheet); err != nil {
		return err
	}

	header := make([]interface{}, 0, grid.Cols+1)
	header = append(header, "row\\col")
	for c := 0; c < grid.Cols; c++ {
		header = append(header, c)
	}
	if err := wb.file.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for r := 0; r < grid.Rows; r++ {
		row := make([]interface{}, 0, grid.Cols+1)
		row = append(row, r)
		for c := 0; c < grid.Cols; c++ {
			row = append(row, grid.At(r, c))
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := wb.file.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

// AddMetadata writes the export header as key/value rows
func (wb *Workbook) AddMetadata(sheet string, h Header, extra map[string]string, keys []string) error {
	if err := wb.newSheet(sheet); err != nil {
		return err
	}
	rows := [][2]string{
		{"abs_path_raw", h.RawPath},
		{"abs_path_ref", h.RefPath},
	}
	if h.Extended {
		rows = append(rows,
			[2]string{"abs_path_bg", h.BackgroundPath},
			[2]string{"cosmic_ray_removed", yesNo(h.CosmicRayRemoved)},
		)
	}
	calibration := h.Calibration
	if calibration == "" {
		calibration = Uncalibrated
	}
	rows = append(rows, [2]string{"calibration", calibration})
	for _, k := range keys {
		if v, ok := extra[k]; ok {
			rows = append(rows, [2]string{k, v})
		}
	}

	for i, kv := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := []interface{}{kv[0], kv[1]}
		if err := wb.file.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}
	return wb.file.SetColWidth(sheet, "A", "A", 22)
}

// SaveAs writes the workbook to path
func (wb *Workbook) SaveAs(path string) error {
	if len(wb.sheets) == 0 {
		return ErrNothingToSave
	}
	wb.file.SetActiveSheet(0)
	if err := wb.file.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	wb.logger.Info("workbook saved", logging.Fields{
		"path":   path,
		"sheets": wb.sheets,
	})
	return nil
}

func (wb *Workbook) Close() error {
	return wb.file.Close()
}
