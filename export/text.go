package export

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chiashi-lab/RamanCalibrator/algorithms/common"
	"github.com/chiashi-lab/RamanCalibrator/logging"
)

var (
	ErrLengthMismatch = errors.New("axis and spectrum lengths differ")
	ErrNothingToSave  = errors.New("save list is empty")
)

// Header is the comment block written above every exported spectrum
type Header struct {
	RawPath string `json:"abs_path_raw"`
	// RefPath is empty unless the data was calibrated
	RefPath string `json:"abs_path_ref"`
	// BackgroundPath is empty unless background subtraction is active
	BackgroundPath   string `json:"abs_path_bg"`
	CosmicRayRemoved bool   `json:"cosmic_ray_removed"`
	// Extended adds the background and cosmic-ray lines (488 rig files)
	Extended    bool   `json:"extended"`
	Calibration string `json:"calibration"`
}

// Calibration text written when no model is active
const Uncalibrated = "None"

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// WriteTo writes the header lines and the blank separator line
func (h Header) WriteTo(w io.Writer) (int64, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# abs_path_raw: %s\n", h.RawPath)
	fmt.Fprintf(&sb, "# abs_path_ref: %s\n", h.RefPath)
	if h.Extended {
		fmt.Fprintf(&sb, "# abs_path_bg: %s\n", h.BackgroundPath)
		fmt.Fprintf(&sb, "# cosmic_ray_removed: %s\n", yesNo(h.CosmicRayRemoved))
	}
	calibration := h.Calibration
	if calibration == "" {
		calibration = Uncalibrated
	}
	fmt.Fprintf(&sb, "# calibration: %s\n\n", calibration)

	n, err := io.WriteString(w, sb.String())
	return int64(n), err
}

// WriteSpectrum writes the header followed by one "x,y" line per sample
func WriteSpectrum(w io.Writer, h Header, axis, intensity []float64) error {
	if len(axis) != len(intensity) {
		return fmt.Errorf("%w: %d axis samples, %d intensities", ErrLengthMismatch, len(axis), len(intensity))
	}
	bw := bufio.NewWriter(w)
	if _, err := h.WriteTo(bw); err != nil {
		return err
	}
	for i, x := range axis {
		bw.WriteString(common.ReprFloat(x))
		bw.WriteByte(',')
		bw.WriteString(common.ReprFloat(intensity[i]))
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// FileName builds "{stem}_{col}_{row}.txt" for one pixel of the raw file,
// each index zero-padded to the digit count of its map dimension
func FileName(rawPath string, row, col, rows, cols int) string {
	base := filepath.Base(rawPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	ix := pad(col, len(strconv.Itoa(cols)))
	iy := pad(row, len(strconv.Itoa(rows)))
	return fmt.Sprintf("%s_%s_%s.txt", stem, ix, iy)
}

func pad(v, width int) string {
	return fmt.Sprintf("%0*d", width, v)
}

// Pixel addresses one map position
type Pixel struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// SpectrumSource returns the spectrum to write for one pixel
type SpectrumSource func(row, col int) ([]float64, error)

// TextConfig controls batch text export
type TextConfig struct {
	Dir       string `json:"dir"`
	Overwrite bool   `json:"overwrite"`
}

// TextResult lists the files handled by WriteSpectra
type TextResult struct {
	Written []string `json:"written"`
	Skipped []string `json:"skipped"`
}

// WriteSpectra writes one text file per pixel into cfg.Dir. Existing files
// are left alone unless cfg.Overwrite is set.
func WriteSpectra(cfg TextConfig, rawPath string, rows, cols int, pixels []Pixel,
	h Header, axis []float64, source SpectrumSource) (TextResult, error) {

	var result TextResult
	if len(pixels) == 0 {
		return result, ErrNothingToSave
	}
	logger := logging.WithFields(logging.Fields{
		"component": "text_export",
		"dir":       cfg.Dir,
	})

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return result, fmt.Errorf("failed to create output directory: %w", err)
	}

	for _, px := range pixels {
		path := filepath.Join(cfg.Dir, FileName(rawPath, px.Row, px.Col, rows, cols))
		if !cfg.Overwrite {
			if _, err := os.Stat(path); err == nil {
				result.Skipped = append(result.Skipped, path)
				logger.Warn("file exists, skipped", logging.Fields{"path": path})
				continue
			} else if !errors.Is(err, fs.ErrNotExist) {
				return result, fmt.Errorf("failed to stat %s: %w", path, err)
			}
		}

		spectrum, err := source(px.Row, px.Col)
		if err != nil {
			return result, fmt.Errorf("pixel (%d, %d): %w", px.Row, px.Col, err)
		}
		if err := writeFile(path, h, axis, spectrum); err != nil {
			return result, err
		}
		result.Written = append(result.Written, path)
	}

	logger.Info("spectra exported", logging.Fields{
		"written": len(result.Written),
		"skipped": len(result.Skipped),
	})
	return result, nil
}

func writeFile(path string, h Header, axis, spectrum []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteSpectrum(f, h, axis, spectrum); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
