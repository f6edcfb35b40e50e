package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chiashi-lab/RamanCalibrator/calibration"
	"github.com/chiashi-lab/RamanCalibrator/export"
	"github.com/chiashi-lab/RamanCalibrator/reader"
	"github.com/chiashi-lab/RamanCalibrator/session"
)

// inputs are the file flags shared by the data commands
type inputs struct {
	raw      string
	ref      string
	bg       string
	family   string
	material string
	degree   int
	crr      bool
	windows  []string
}

func isMapFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// readData loads a map document, or wraps a two-column spectrum as a point
// measurement
func readData(path string, family reader.Family, cfg *reader.ReaderConfig) (reader.RawData, error) {
	if isMapFile(path) {
		return reader.ReadMapFile(path, cfg)
	}
	spec, err := reader.ReadSpectrumFile(path, cfg)
	if err != nil {
		return reader.RawData{}, err
	}
	return reader.NewPointData(path, family, spec.Axis, spec.Intensity)
}

// parseWindow parses "lo:hi=true"
func parseWindow(s string) (calibration.PeakWindow, float64, error) {
	bounds, truth, ok := strings.Cut(s, "=")
	if !ok {
		return calibration.PeakWindow{}, 0, fmt.Errorf("window %q: want lo:hi=true", s)
	}
	loStr, hiStr, ok := strings.Cut(bounds, ":")
	if !ok {
		return calibration.PeakWindow{}, 0, fmt.Errorf("window %q: want lo:hi=true", s)
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(loStr), 64)
	if err != nil {
		return calibration.PeakWindow{}, 0, fmt.Errorf("window %q: %w", s, err)
	}
	hi, err := strconv.ParseFloat(strings.TrimSpace(hiStr), 64)
	if err != nil {
		return calibration.PeakWindow{}, 0, fmt.Errorf("window %q: %w", s, err)
	}
	t, err := strconv.ParseFloat(strings.TrimSpace(truth), 64)
	if err != nil {
		return calibration.PeakWindow{}, 0, fmt.Errorf("window %q: %w", s, err)
	}
	w, err := calibration.NewPeakWindow(lo, hi)
	if err != nil {
		return calibration.PeakWindow{}, 0, err
	}
	return w, t, nil
}

// parsePixel parses "row,col"
func parsePixel(s string) (export.Pixel, error) {
	rowStr, colStr, ok := strings.Cut(s, ",")
	if !ok {
		return export.Pixel{}, fmt.Errorf("pixel %q: want row,col", s)
	}
	row, err := strconv.Atoi(strings.TrimSpace(rowStr))
	if err != nil {
		return export.Pixel{}, fmt.Errorf("pixel %q: %w", s, err)
	}
	col, err := strconv.Atoi(strings.TrimSpace(colStr))
	if err != nil {
		return export.Pixel{}, fmt.Errorf("pixel %q: %w", s, err)
	}
	return export.Pixel{Row: row, Col: col}, nil
}

// openSession loads raw data, the optional background and the optional
// reference, and calibrates when a reference is given
func openSession(in inputs) (*session.Session, *session.CalibratedAxis, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	family, err := reader.ParseFamily(in.family)
	if err != nil {
		return nil, nil, err
	}
	rcfg := reader.DefaultReaderConfig()

	s := session.New(cfg, nil)
	raw, err := readData(in.raw, family, rcfg)
	if err != nil {
		return nil, nil, fmt.Errorf("raw data: %w", err)
	}
	if _, err := s.LoadRaw(raw); err != nil {
		return nil, nil, err
	}

	if in.bg != "" {
		bg, err := readData(in.bg, family, rcfg)
		if err != nil {
			return nil, nil, fmt.Errorf("background: %w", err)
		}
		if err := s.LoadBackground(bg); err != nil {
			return nil, nil, err
		}
	}
	if err := s.SetProcessing(in.crr, in.bg != ""); err != nil {
		return nil, nil, err
	}

	if in.ref == "" {
		return s, nil, nil
	}
	var material calibration.Material
	if in.material != "" {
		if material, err = s.Calibrator().Catalog().ParseMaterial(in.material); err != nil {
			return nil, nil, err
		}
	}
	if isMapFile(in.ref) {
		data, err := reader.ReadMapFile(in.ref, rcfg)
		if err != nil {
			return nil, nil, fmt.Errorf("reference: %w", err)
		}
		err = s.LoadReferenceData(data, material)
		if err != nil {
			return nil, nil, err
		}
	} else {
		spec, err := reader.ReadSpectrumFile(in.ref, rcfg)
		if err != nil {
			return nil, nil, fmt.Errorf("reference: %w", err)
		}
		if err := s.LoadReference(spec, material); err != nil {
			return nil, nil, err
		}
	}

	req := session.CalibrateRequest{Degree: in.degree, Material: material}
	if len(in.windows) > 0 {
		req.Mode = calibration.ModeManual
		for _, ws := range in.windows {
			w, t, err := parseWindow(ws)
			if err != nil {
				return nil, nil, err
			}
			req.Windows = append(req.Windows, w)
			req.TrueValues = append(req.TrueValues, t)
		}
	}
	out, err := s.Calibrate(req)
	if err != nil {
		if out.Report != nil {
			printFailures(out.Report)
		}
		return nil, nil, fmt.Errorf("calibration: %w", err)
	}
	return s, &out, nil
}
