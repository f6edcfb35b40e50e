package calibration

import (
	"errors"
	"slices"
	"testing"
)

func TestNewPeakWindow(t *testing.T) {
	w, err := NewPeakWindow(530, 510)
	if err != nil {
		t.Fatal(err)
	}
	if w.Lo != 510 || w.Hi != 530 {
		t.Fatalf("window = %s", w)
	}
	if !w.Contains(510) || w.Contains(530) {
		t.Fatalf("%s is not half-open", w)
	}
	if _, err := NewPeakWindow(520, 520); !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("zero width accepted: %v", err)
	}
}

func TestWindowSetRejectsEveryOverlap(t *testing.T) {
	tests := []struct {
		name    string
		a, b    PeakWindow
		overlap bool
	}{
		{"disjoint", PeakWindow{100, 110}, PeakWindow{120, 130}, false},
		{"touching", PeakWindow{100, 110}, PeakWindow{110, 120}, false},
		{"touching reversed", PeakWindow{110, 120}, PeakWindow{100, 110}, false},
		{"partial", PeakWindow{100, 110}, PeakWindow{105, 115}, true},
		{"contained", PeakWindow{100, 110}, PeakWindow{102, 104}, true},
		{"containing", PeakWindow{102, 104}, PeakWindow{100, 110}, true},
		{"identical", PeakWindow{100, 110}, PeakWindow{100, 110}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s WindowSet
			if err := s.Add(tt.a); err != nil {
				t.Fatal(err)
			}
			err := s.Add(tt.b)
			if tt.overlap != errors.Is(err, ErrOverlappingWindow) {
				t.Fatalf("Add(%s) after %s: err = %v", tt.b, tt.a, err)
			}
			want := 2
			if tt.overlap {
				want = 1
			}
			if s.Len() != want {
				t.Fatalf("set holds %d windows, want %d", s.Len(), want)
			}
		})
	}
}

func TestWindowSetUndoAndClear(t *testing.T) {
	var s WindowSet
	for _, w := range []PeakWindow{{100, 110}, {200, 210}, {300, 310}} {
		if err := s.Add(w); err != nil {
			t.Fatal(err)
		}
	}
	last, ok := s.Undo()
	if !ok || last.Lo != 300 {
		t.Fatalf("Undo = %s, %v", last, ok)
	}
	// the undone range is free again
	if err := s.Add(PeakWindow{305, 315}); err != nil {
		t.Fatal(err)
	}
	s.Clear()
	if s.Len() != 0 {
		t.Fatalf("Clear left %d windows", s.Len())
	}
	if _, ok := s.Undo(); ok {
		t.Fatalf("Undo on empty set")
	}
}

func TestNearestTrue(t *testing.T) {
	positions := []float64{1001.4, 1031.8, 1155.3}
	got, ok := NearestTrue(PeakWindow{1020, 1050}, positions)
	if !ok || got != 1031.8 {
		t.Fatalf("NearestTrue = %v, %v", got, ok)
	}
	if _, ok := NearestTrue(PeakWindow{0, 1}, nil); ok {
		t.Fatalf("NearestTrue on empty catalogue")
	}
}

func TestMaterials(t *testing.T) {
	got := Materials()
	if !slices.IsSorted(got) || len(got) != 6 {
		t.Fatalf("Materials = %v", got)
	}

	tests := []struct {
		file string
		want Material
		ok   bool
	}{
		{"/data/2024/ref_Polystyrene_10s.spe", Polystyrene, true},
		{"sulfur.txt", Sulfur, true},
		{"map_488nm.hdf5", "", false},
	}
	for _, tt := range tests {
		m, ok := MaterialFromFilename(tt.file)
		if m != tt.want || ok != tt.ok {
			t.Errorf("MaterialFromFilename(%q) = %q, %v", tt.file, m, ok)
		}
	}

	if _, err := DefaultCatalog().ParseMaterial("Naphthalene"); err != nil {
		t.Fatal(err)
	}
	if _, err := DefaultCatalog().ParseMaterial("quartz"); !errors.Is(err, ErrUnknownMaterial) {
		t.Fatalf("quartz: %v", err)
	}
}

func TestDefaultCatalogIsACopy(t *testing.T) {
	c := DefaultCatalog()
	c[Silicon][0] = 0
	if p, _ := DefaultCatalog().Positions(Silicon); p[0] != 520.7 {
		t.Fatalf("catalogue mutated through a copy")
	}
}
