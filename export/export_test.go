package export

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chiashi-lab/RamanCalibrator/algorithms/common"
	"github.com/xuri/excelize/v2"
)

func TestHeaderRenishaw(t *testing.T) {
	h := Header{
		RawPath:     "/data/map.wdf",
		RefPath:     "/data/sulfur.wdf",
		Calibration: "['sulfur', 1, 'Voigt', 'auto', [153.8, 219.1, 473.2]]",
	}
	var buf bytes.Buffer
	if err := WriteSpectrum(&buf, h, []float64{100, 100.5}, []float64{12, 3.25}); err != nil {
		t.Fatal(err)
	}
	want := "# abs_path_raw: /data/map.wdf\n" +
		"# abs_path_ref: /data/sulfur.wdf\n" +
		"# calibration: ['sulfur', 1, 'Voigt', 'auto', [153.8, 219.1, 473.2]]\n" +
		"\n" +
		"100.0,12.0\n" +
		"100.5,3.25\n"
	if buf.String() != want {
		t.Errorf("got\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestHeaderExtended(t *testing.T) {
	h := Header{
		RawPath:          "/data/map.hdf5",
		Extended:         true,
		CosmicRayRemoved: true,
	}
	var buf bytes.Buffer
	if _, err := h.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	want := "# abs_path_raw: /data/map.hdf5\n" +
		"# abs_path_ref: \n" +
		"# abs_path_bg: \n" +
		"# cosmic_ray_removed: Yes\n" +
		"# calibration: None\n\n"
	if buf.String() != want {
		t.Errorf("got\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestWriteSpectrumLengthMismatch(t *testing.T) {
	err := WriteSpectrum(&bytes.Buffer{}, Header{}, []float64{1, 2}, []float64{1})
	if !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("err = %v", err)
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		raw                  string
		row, col, rows, cols int
		want                 string
	}{
		{"/data/map.wdf", 3, 7, 20, 150, "map_007_03.txt"},
		{"map.wdf", 0, 0, 1, 1, "map_0_0.txt"},
		{"/x/scan.v2.hdf5", 9, 10, 10, 11, "scan.v2_10_09.txt"},
		{"noext", 99, 5, 100, 9, "noext_5_099.txt"},
	}
	for _, tt := range tests {
		if got := FileName(tt.raw, tt.row, tt.col, tt.rows, tt.cols); got != tt.want {
			t.Errorf("FileName(%q, %d, %d, %d, %d) = %q, want %q",
				tt.raw, tt.row, tt.col, tt.rows, tt.cols, got, tt.want)
		}
	}
}

func testSource(row, col int) ([]float64, error) {
	return []float64{float64(row), float64(col), 1}, nil
}

func TestWriteSpectraSkipsExisting(t *testing.T) {
	dir := t.TempDir()
	axis := []float64{100, 200, 300}
	pixels := []Pixel{{Row: 0, Col: 1}, {Row: 1, Col: 0}}
	existing := filepath.Join(dir, "map_1_0.txt")
	if err := os.WriteFile(existing, []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := WriteSpectra(TextConfig{Dir: dir}, "/d/map.wdf", 2, 2, pixels, Header{RawPath: "/d/map.wdf"}, axis, testSource)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Written) != 1 || len(res.Skipped) != 1 || res.Skipped[0] != existing {
		t.Fatalf("result = %+v", res)
	}
	if b, _ := os.ReadFile(existing); string(b) != "keep" {
		t.Fatal("existing file overwritten")
	}
	b, err := os.ReadFile(filepath.Join(dir, "map_0_1.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(string(b), "\n100.0,1.0\n200.0,0.0\n300.0,1.0\n") {
		t.Errorf("body = %q", b)
	}

	res, err = WriteSpectra(TextConfig{Dir: dir, Overwrite: true}, "/d/map.wdf", 2, 2, pixels, Header{}, axis, testSource)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Written) != 2 || len(res.Skipped) != 0 {
		t.Fatalf("overwrite result = %+v", res)
	}

	if _, err := WriteSpectra(TextConfig{Dir: dir}, "map", 1, 1, nil, Header{}, axis, testSource); !errors.Is(err, ErrNothingToSave) {
		t.Fatalf("empty list err = %v", err)
	}
}

func TestWorkbookSheets(t *testing.T) {
	wb := NewWorkbook()
	defer wb.Close()

	axis := []float64{100, 200, 300}
	pixels := []Pixel{{Row: 2, Col: 1}, {Row: 0, Col: 3}}
	if err := wb.AddSpectra("Spectra", axis, pixels, testSource); err != nil {
		t.Fatal(err)
	}
	grid := common.NewGrid2D(2, 3)
	grid.Set(1, 2, 42.5)
	if err := wb.AddMap("Map", grid); err != nil {
		t.Fatal(err)
	}
	if err := wb.AddMetadata("Metadata", Header{RawPath: "/d/map.wdf"},
		map[string]string{"session": "abc"}, []string{"session", "missing"}); err != nil {
		t.Fatal(err)
	}
	if err := wb.AddMap("Map", grid); !errors.Is(err, ErrDuplicateSheet) {
		t.Fatalf("duplicate sheet err = %v", err)
	}

	path := filepath.Join(t.TempDir(), "out.xlsx")
	if err := wb.SaveAs(path); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 3 || sheets[0] != "Spectra" || sheets[1] != "Map" || sheets[2] != "Metadata" {
		t.Fatalf("sheets = %v", sheets)
	}
	cells := map[string]string{
		"A1": "wavenumber",
		"B1": "x1_y2",
		"C1": "x3_y0",
		"A3": "200",
		"B2": "2",
		"C4": "1",
	}
	for cell, want := range cells {
		if got, _ := f.GetCellValue("Spectra", cell); got != want {
			t.Errorf("Spectra!%s = %q, want %q", cell, got, want)
		}
	}
	if got, _ := f.GetCellValue("Map", "D3"); got != "42.5" {
		t.Errorf("Map!D3 = %q", got)
	}
	rows, err := f.GetRows("Metadata")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 || rows[2][1] != "None" || rows[3][0] != "session" {
		t.Errorf("metadata rows = %v", rows)
	}
}

func TestWorkbookRejectsShortSpectrum(t *testing.T) {
	wb := NewWorkbook()
	defer wb.Close()
	short := func(row, col int) ([]float64, error) { return []float64{1}, nil }
	if err := wb.AddSpectra("Spectra", []float64{1, 2}, []Pixel{{}}, short); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("err = %v", err)
	}
	if len(wb.Sheets()) != 0 {
		t.Fatal("sheet created for rejected data")
	}
	if err := wb.SaveAs(filepath.Join(t.TempDir(), "x.xlsx")); !errors.Is(err, ErrNothingToSave) {
		t.Fatalf("empty save err = %v", err)
	}
}

func TestCalibrationPlot(t *testing.T) {
	raw := common.Linspace(100, 200, 101)
	corrected := make([]float64, len(raw))
	y := make([]float64, len(raw))
	for i, x := range raw {
		corrected[i] = x + 2
		y[i] = 1 / (1 + (x-150)*(x-150))
	}
	fig := CalibrationFigure{
		Title:     "sulfur",
		Raw:       raw,
		Corrected: corrected,
		Intensity: y,
		Markers:   []Marker{{Fitted: 150, True: 152}},
	}
	p, err := BuildCalibrationPlot(fig, common.MinMax)
	if err != nil {
		t.Fatal(err)
	}
	if p.Title.Text != "sulfur" {
		t.Errorf("title = %q", p.Title.Text)
	}
	if math.Abs(p.Y.Max-2.1) > 1e-9 || p.Y.Min != 0 {
		t.Errorf("minmax y range = [%v, %v]", p.Y.Min, p.Y.Max)
	}
	for _, norm := range []common.NormalizationType{common.ZScore, common.Peak} {
		p, err := BuildCalibrationPlot(fig, norm)
		if err != nil {
			t.Fatalf("%v: %v", norm, err)
		}
		if want := "Intensity (" + norm.String() + ")"; p.Y.Label.Text != want {
			t.Errorf("y label = %q, want %q", p.Y.Label.Text, want)
		}
	}

	path := filepath.Join(t.TempDir(), "cal.png")
	if err := SaveCalibrationPlot(path, DefaultPlotConfig(), fig); err != nil {
		t.Fatal(err)
	}
	if st, err := os.Stat(path); err != nil || st.Size() == 0 {
		t.Fatalf("plot not written: %v", err)
	}

	fig.Corrected = raw[:10]
	if _, err := BuildCalibrationPlot(fig, common.MinMax); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("err = %v", err)
	}
}

func TestMapPlotFlatGrid(t *testing.T) {
	grid := common.NewGrid2D(3, 4)
	ig := newIntensityGrid(grid, 1)
	if ig.Min() != 0 || ig.Max() != 1 {
		t.Fatalf("flat range = [%v, %v]", ig.Min(), ig.Max())
	}
	if c, r := ig.Dims(); c != 4 || r != 3 {
		t.Fatalf("Dims = %d, %d", c, r)
	}
	path := filepath.Join(t.TempDir(), "map.png")
	if err := SaveMapPlot(path, DefaultPlotConfig(), "flat", grid); err != nil {
		t.Fatal(err)
	}
	if _, err := BuildMapPlot("empty", common.Grid2D{}, 0); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("err = %v", err)
	}
	if _, err := BuildMapPlot("clip", grid, 50); err == nil {
		t.Fatal("clip 50 accepted")
	}
}

func TestMapPlotClipsOutliers(t *testing.T) {
	grid := common.NewGrid2D(10, 10)
	for i := range grid.Data {
		grid.Data[i] = float64(i)
	}
	grid.Data[99] = 1e6
	grid.Data[0] = math.NaN()

	full := newIntensityGrid(grid, 0)
	if full.Min() != 1 || full.Max() != 1e6 {
		t.Fatalf("full range = [%v, %v]", full.Min(), full.Max())
	}
	clipped := newIntensityGrid(grid, 1)
	if clipped.Max() >= 1e5 || clipped.Min() < 1 {
		t.Fatalf("clipped range = [%v, %v]", clipped.Min(), clipped.Max())
	}
}
