package reader

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/chiashi-lab/RamanCalibrator/algorithms/common"
	"github.com/xuri/excelize/v2"
)

// Spectrum is a two-column spectrum file
type Spectrum struct {
	Path      string
	Axis      []float64
	Intensity []float64
}

func checkSize(path string, cfg *ReaderConfig) error {
	st, err := os.Stat(path)
	if err != nil {
		return err
	}
	if cfg.MaxFileSize > 0 && st.Size() > cfg.MaxFileSize {
		return fmt.Errorf("%w: %s is %d bytes, limit %d", ErrFileTooLarge, path, st.Size(), cfg.MaxFileSize)
	}
	return nil
}

// ReadSpectrumFile reads a two-column spectrum: "x,y" or whitespace
// separated text, or the first sheet of an .xlsx workbook. Comment lines
// and a leading non-numeric header are skipped.
func ReadSpectrumFile(path string, cfg *ReaderConfig) (Spectrum, error) {
	if cfg == nil {
		cfg = DefaultReaderConfig()
	}
	if err := checkSize(path, cfg); err != nil {
		return Spectrum{}, err
	}

	var rows [][]string
	var err error
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		rows, err = workbookRows(path)
	} else {
		rows, err = textRows(path, cfg.CommentPrefix)
	}
	if err != nil {
		return Spectrum{}, err
	}

	spec, err := parseColumns(rows)
	if err != nil {
		return Spectrum{}, fmt.Errorf("%s: %w", path, err)
	}
	spec.Path = path
	return spec, nil
}

func splitFields(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ';' || unicode.IsSpace(r)
	})
}

func textRows(path, comment string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows [][]string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || (comment != "" && strings.HasPrefix(line, comment)) {
			continue
		}
		rows = append(rows, splitFields(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return rows, nil
}

func workbookRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrMalformed)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	// drop cells left empty by the spreadsheet
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		var cells []string
		for _, c := range row {
			if c = strings.TrimSpace(c); c != "" {
				cells = append(cells, c)
			}
		}
		if len(cells) > 0 {
			out = append(out, cells)
		}
	}
	return out, nil
}

func parseColumns(rows [][]string) (Spectrum, error) {
	var spec Spectrum
	for i, fields := range rows {
		x, errX := parseField(fields, 0)
		y, errY := parseField(fields, 1)
		if errX != nil || errY != nil {
			if len(spec.Axis) == 0 {
				continue // header
			}
			return Spectrum{}, fmt.Errorf("%w: row %d: %q", ErrMalformed, i+1, strings.Join(fields, ","))
		}
		spec.Axis = append(spec.Axis, x)
		spec.Intensity = append(spec.Intensity, y)
	}
	if len(spec.Axis) == 0 {
		return Spectrum{}, fmt.Errorf("%w: no numeric rows", ErrMalformed)
	}
	if !common.IsStrictlyIncreasing(spec.Axis) {
		return Spectrum{}, ErrAxisNotIncreasing
	}
	return spec, nil
}

func parseField(fields []string, i int) (float64, error) {
	if i >= len(fields) {
		return 0, ErrMalformed
	}
	return strconv.ParseFloat(fields[i], 64)
}
