package session

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chiashi-lab/RamanCalibrator/algorithms/common"
	"github.com/chiashi-lab/RamanCalibrator/algorithms/spectral"
	"github.com/chiashi-lab/RamanCalibrator/calibration"
	"github.com/chiashi-lab/RamanCalibrator/export"
	"github.com/chiashi-lab/RamanCalibrator/logging"
	"github.com/chiashi-lab/RamanCalibrator/mapping"
	"github.com/chiashi-lab/RamanCalibrator/reader"
	"github.com/xuri/excelize/v2"
)

// polystyrene lines inside 400-1200 cm-1
var polystyrene = []float64{620.9, 1001.4, 1031.8, 1155.3}

// the raw axis reads 3 cm-1 low
const offset = 3.0

func rawAxis() []float64 {
	return common.Linspace(400, 1200, 1601)
}

func referenceSpectrum(path string) reader.Spectrum {
	axis := rawAxis()
	y := make([]float64, len(axis))
	for i, x := range axis {
		y[i] = 100
		for _, p := range polystyrene {
			y[i] += spectral.LorentzianAt(x, p-offset, 2000, 4, 0)
		}
	}
	return reader.Spectrum{Path: path, Axis: axis, Intensity: y}
}

// testMap builds a rows x cols single-exposure map where every sample of
// pixel (r, c) in acquisition order equals 10*r + c
func testMap(t *testing.T, family reader.Family, axis []float64, rows, cols int, order mapping.StorageOrder) reader.RawData {
	t.Helper()
	cube := common.NewCube3D(rows, cols, len(axis))
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			s := cube.Spectrum(r, c)
			for k := range s {
				s[k] = float64(10*r + c)
			}
		}
	}
	geometry := mapping.Geometry{
		Origin: [2]float64{100, 200},
		Pitch:  [2]float64{2, 2},
		Span:   [2]float64{float64(2 * cols), float64(2 * rows)},
	}
	data, err := reader.NewMapData("/data/map.wdf", family, axis, cube, order, geometry)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func newSession(t *testing.T) *Session {
	t.Helper()
	return New(nil, &logging.NoOpLogger{})
}

func loadedSession(t *testing.T, rows, cols int) *Session {
	t.Helper()
	s := newSession(t)
	if _, err := s.LoadRaw(testMap(t, reader.Renishaw, rawAxis(), rows, cols, mapping.RowMajor)); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestLoadRawRequiresReset(t *testing.T) {
	s := loadedSession(t, 2, 3)
	data := testMap(t, reader.Renishaw, rawAxis(), 2, 3, mapping.RowMajor)
	if _, err := s.LoadRaw(data); !errors.Is(err, mapping.ErrResetRequired) {
		t.Fatalf("err = %v", err)
	}
	s.Reset()
	info, err := s.LoadRaw(data)
	if err != nil {
		t.Fatal(err)
	}
	if info.Rows != 2 || info.Cols != 3 || info.Length != 1601 {
		t.Fatalf("info = %+v", info)
	}
	if s.ID() == "" || s.ID() == New(nil, nil).ID() {
		t.Fatal("session ids should be unique")
	}
}

func TestLoadRawColumnMajorDisplayOrder(t *testing.T) {
	s := newSession(t)
	axis := []float64{1, 2, 3}
	data := testMap(t, reader.Renishaw, axis, 2, 3, mapping.ColumnMajor)
	if _, err := s.LoadRaw(data); err != nil {
		t.Fatal(err)
	}
	// acquisition cell i lands on display (i % 2, i / 2)
	want := [2][3]float64{{0, 2, 11}, {1, 10, 12}}
	for r := 0; r < 2; r++ {
		for c := 0; c < 3; c++ {
			_, y, err := s.Spectrum(r, c)
			if err != nil {
				t.Fatal(err)
			}
			if y[0] != want[r][c] {
				t.Errorf("display (%d, %d) = %v, want %v", r, c, y[0], want[r][c])
			}
		}
	}
	if _, _, err := s.Spectrum(2, 0); !errors.Is(err, mapping.ErrIndexOutOfRange) {
		t.Fatalf("err = %v", err)
	}
}

func TestCalibrateAutoAndRecalibrate(t *testing.T) {
	s := loadedSession(t, 2, 2)
	if err := s.LoadReference(referenceSpectrum("/refs/polystyrene_20250101.txt"), ""); err != nil {
		t.Fatal(err)
	}

	out, err := s.Calibrate(CalibrateRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if out.Report == nil || len(out.Report.Searched) != 4 || len(out.Assignments) != 4 {
		t.Fatalf("report = %+v", out.Report)
	}
	raw := rawAxis()
	for _, i := range []int{0, 800, 1600} {
		if math.Abs(out.Axis[i]-(raw[i]+offset)) > 0.1 {
			t.Errorf("corrected[%d] = %v, want about %v", i, out.Axis[i], raw[i]+offset)
		}
	}
	wantProv := "['polystyrene', 1, 'Voigt', 'auto', [620.9, 1001.4, 1031.8, 1155.3]]"
	if out.Provenance.String() != wantProv {
		t.Errorf("provenance = %s", out.Provenance)
	}

	again, err := s.Calibrate(CalibrateRequest{Degree: 2})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(again.Axis[800]-(raw[800]+offset)) > 0.1 {
		t.Errorf("recalibration compounded: %v", again.Axis[800])
	}
	axis, _, err := s.Spectrum(0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if axis[800] != again.Axis[800] {
		t.Errorf("spectrum axis not corrected")
	}
}

func TestCalibrateManual(t *testing.T) {
	s := loadedSession(t, 1, 1)
	if err := s.LoadReference(referenceSpectrum("ref.txt"), calibration.Material("polystyrene")); err != nil {
		t.Fatal(err)
	}
	windows := []calibration.PeakWindow{{Lo: 610, Hi: 630}, {Lo: 1140, Hi: 1165}}
	out, err := s.Calibrate(CalibrateRequest{
		Mode:       calibration.ModeManual,
		Windows:    windows,
		TrueValues: []float64{620.9, 1155.3},
	})
	if err != nil {
		t.Fatal(err)
	}
	if out.Report != nil || out.Provenance.Mode != calibration.ModeManual {
		t.Fatalf("out = %+v", out)
	}
	if math.Abs(out.Axis[0]-403) > 0.1 {
		t.Errorf("corrected[0] = %v", out.Axis[0])
	}

	_, err = s.Calibrate(CalibrateRequest{Mode: "guess"})
	if !errors.Is(err, ErrUnknownMode) {
		t.Fatalf("err = %v", err)
	}
}

func TestCalibrateWithoutData(t *testing.T) {
	s := newSession(t)
	if _, err := s.Calibrate(CalibrateRequest{}); !errors.Is(err, mapping.ErrNoRawData) {
		t.Fatalf("err = %v", err)
	}
	if err := s.LoadReference(referenceSpectrum("ref.txt"), ""); !errors.Is(err, mapping.ErrNoRawData) {
		t.Fatalf("err = %v", err)
	}
	if _, err := s.CalibrationFigure(); !errors.Is(err, calibration.ErrInvalidState) {
		t.Fatalf("err = %v", err)
	}
}

func TestReferenceAxisMismatch(t *testing.T) {
	s := loadedSession(t, 1, 1)
	ref := referenceSpectrum("polystyrene.txt")
	ref.Axis = common.Linspace(401, 1201, 1601)
	if err := s.LoadReference(ref, ""); !errors.Is(err, calibration.ErrAxisMismatch) {
		t.Fatalf("err = %v", err)
	}
}

func TestProcessingFlags(t *testing.T) {
	s := newSession(t)
	axis := []float64{1, 2, 3}
	if _, err := s.LoadRaw(testMap(t, reader.Raman488, axis, 2, 2, mapping.RowMajor)); err != nil {
		t.Fatal(err)
	}

	if err := s.SetProcessing(true, true); !errors.Is(err, mapping.ErrBackgroundNotLoaded) {
		t.Fatalf("err = %v", err)
	}
	if crr, bg := s.Processing(); crr || bg {
		t.Fatal("flags changed by failed toggle")
	}

	bad, _ := reader.NewPointData("bg.txt", reader.Raman488, []float64{1, 2, 4}, []float64{1, 1, 1})
	if err := s.LoadBackground(bad); !errors.Is(err, calibration.ErrAxisMismatch) {
		t.Fatalf("err = %v", err)
	}
	short, _ := reader.NewPointData("bg.txt", reader.Raman488, []float64{1, 2}, []float64{1, 1})
	if err := s.LoadBackground(short); !errors.Is(err, mapping.ErrShapeMismatch) {
		t.Fatalf("short background err = %v", err)
	}
	if err := s.SetProcessing(false, true); !errors.Is(err, mapping.ErrBackgroundNotLoaded) {
		t.Fatalf("rejected background was kept: %v", err)
	}

	bg, err := reader.NewPointData("/data/bg.txt", reader.Raman488, axis, []float64{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.LoadBackground(bg); err != nil {
		t.Fatal(err)
	}
	if err := s.SetProcessing(false, true); err != nil {
		t.Fatal(err)
	}
	_, y, _ := s.Spectrum(1, 1)
	if y[0] != 10 || y[1] != 9 || y[2] != 8 {
		t.Errorf("subtracted spectrum = %v", y)
	}
	// toggling twice gives the same view
	if err := s.SetProcessing(false, true); err != nil {
		t.Fatal(err)
	}
	_, again, _ := s.Spectrum(1, 1)
	if again[0] != 10 {
		t.Errorf("repeated toggle = %v", again)
	}

	h := s.Metadata()
	if !h.Extended || h.BackgroundPath != "/data/bg.txt" || h.CosmicRayRemoved || h.RefPath != "" {
		t.Errorf("metadata = %+v", h)
	}
	if err := s.SetProcessing(true, false); err != nil {
		t.Fatal(err)
	}
	if h := s.Metadata(); h.BackgroundPath != "" || !h.CosmicRayRemoved {
		t.Errorf("metadata = %+v", h)
	}
}

func TestCursorNavigation(t *testing.T) {
	s := loadedSession(t, 3, 4)
	if c := s.Step(Down); c != (Cursor{}) {
		t.Fatalf("down from origin = %+v", c)
	}
	s.Step(Up)
	s.Step(Up)
	if c := s.Step(Up); c.Row != 2 {
		t.Fatalf("up clamps at last row, got %+v", c)
	}
	for i := 0; i < 5; i++ {
		s.Step(Right)
	}
	if c := s.Cursor(); c.Col != 3 {
		t.Fatalf("right clamps at last col, got %+v", c)
	}
	if c := s.Step(Left); c.Col != 2 {
		t.Fatalf("left = %+v", c)
	}

	if err := s.Select(3, 0); !errors.Is(err, mapping.ErrIndexOutOfRange) {
		t.Fatalf("err = %v", err)
	}
	if c := s.Cursor(); c != (Cursor{Row: 2, Col: 2}) {
		t.Fatalf("rejected select moved cursor to %+v", c)
	}

	// origin (100, 200), pitch 2: x=105 is col 2, y=201.9 is row 0
	if c, ok := s.SelectCoord(105, 201.9); !ok || c != (Cursor{Row: 0, Col: 2}) {
		t.Fatalf("SelectCoord = %+v, %v", c, ok)
	}
	if _, ok := s.SelectCoord(99, 201); ok {
		t.Fatal("click outside the map selected a pixel")
	}
}

func TestSaveList(t *testing.T) {
	s := loadedSession(t, 2, 3)
	for _, px := range [][2]int{{1, 2}, {0, 0}, {1, 2}} {
		if err := s.AddToSaveList(px[0], px[1]); err != nil {
			t.Fatal(err)
		}
	}
	if list := s.SaveList(); len(list) != 2 || list[0] != (export.Pixel{Row: 1, Col: 2}) {
		t.Fatalf("list = %v", list)
	}
	if err := s.AddToSaveList(5, 5); !errors.Is(err, mapping.ErrIndexOutOfRange) {
		t.Fatalf("err = %v", err)
	}
	if !s.RemoveFromSaveList(1, 2) || s.RemoveFromSaveList(1, 2) {
		t.Fatal("RemoveFromSaveList")
	}

	if err := s.AddAllToSaveList(); err != nil {
		t.Fatal(err)
	}
	want := []export.Pixel{
		{Row: 0, Col: 0}, {Row: 1, Col: 0}, {Row: 0, Col: 1},
		{Row: 1, Col: 1}, {Row: 0, Col: 2}, {Row: 1, Col: 2},
	}
	list := s.SaveList()
	if len(list) != len(want) {
		t.Fatalf("list = %v", list)
	}
	for i := range want {
		if list[i] != want[i] {
			t.Fatalf("list[%d] = %v, want %v", i, list[i], want[i])
		}
	}
	s.ClearSaveList()
	if len(s.SaveList()) != 0 {
		t.Fatal("ClearSaveList")
	}
}

func TestMapIntensity(t *testing.T) {
	s := loadedSession(t, 2, 3)
	grid, err := s.MapIntensity(500, 520)
	if err != nil {
		t.Fatal(err)
	}
	// flat spectra integrate to zero after the straight baseline
	for _, v := range grid.Data {
		if math.Abs(v) > 1e-9 {
			t.Fatalf("grid = %v", grid.Data)
		}
	}
	if _, err := s.MapIntensity(10, 20); !errors.Is(err, mapping.ErrEmptyWindow) {
		t.Fatalf("err = %v", err)
	}
	if len(s.MapRanges()) != 5 {
		t.Fatalf("ranges = %v", s.MapRanges())
	}
}

func TestExportText(t *testing.T) {
	s := loadedSession(t, 2, 3)
	if err := s.LoadReference(referenceSpectrum("/refs/polystyrene.txt"), ""); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Calibrate(CalibrateRequest{}); err != nil {
		t.Fatal(err)
	}
	if err := s.AddToSaveList(1, 2); err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	res, err := s.ExportText(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Written) != 1 || filepath.Base(res.Written[0]) != "map_2_1.txt" {
		t.Fatalf("result = %+v", res)
	}
	b, err := os.ReadFile(res.Written[0])
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(string(b), "\n")
	if lines[0] != "# abs_path_raw: /data/map.wdf" || lines[1] != "# abs_path_ref: /refs/polystyrene.txt" ||
		!strings.HasPrefix(lines[2], "# calibration: ['polystyrene', 1, 'Voigt', 'auto'") || lines[3] != "" {
		t.Fatalf("header = %q", lines[:4])
	}
	if !strings.HasSuffix(lines[4], ",12.0") {
		t.Errorf("first sample = %q", lines[4])
	}

	res, err = s.ExportText(dir, false)
	if err != nil || len(res.Skipped) != 1 {
		t.Fatalf("second export = %+v, %v", res, err)
	}
}

func TestExportWorkbookAndFigure(t *testing.T) {
	s := loadedSession(t, 2, 2)
	if err := s.LoadReference(referenceSpectrum("/refs/polystyrene.txt"), ""); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Calibrate(CalibrateRequest{}); err != nil {
		t.Fatal(err)
	}
	if err := s.AddAllToSaveList(); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "out.xlsx")
	if err := s.ExportWorkbook(path, MapWindow{Lo: 600, Hi: 650}); err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) != 3 || sheets[1] != "Map 600-650" {
		t.Fatalf("sheets = %v", sheets)
	}
	if got, _ := f.GetCellValue("Spectra", "E1"); got != "x1_y1" {
		t.Errorf("Spectra!E1 = %q", got)
	}

	fig, err := s.CalibrationFigure()
	if err != nil {
		t.Fatal(err)
	}
	if len(fig.Markers) != 4 || len(fig.Corrected) != len(fig.Raw) || !strings.HasPrefix(fig.Title, "['polystyrene'") {
		t.Fatalf("figure markers %d title %q", len(fig.Markers), fig.Title)
	}
}
