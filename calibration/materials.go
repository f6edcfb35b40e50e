package calibration

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// Material names a calibration standard
type Material string

const (
	Sulfur       Material = "sulfur"
	Naphthalene  Material = "naphthalene"
	Acetonitrile Material = "acetonitrile"
	Polystyrene  Material = "polystyrene"
	Cyclohexane  Material = "cyclohexane"
	Silicon      Material = "silicon"
)

// Catalog maps each material to its certified Raman shifts in cm-1
type Catalog map[Material][]float64

var defaultCatalog = Catalog{
	Sulfur:       {85.1, 153.8, 219.1, 473.2},
	Naphthalene:  {513.8, 763.8, 1021.6, 1147.2, 1382.2, 1464.5, 1576.6, 3056.4},
	Acetonitrile: {918.0, 1376.0, 2249.5, 2942.5},
	Polystyrene:  {620.9, 1001.4, 1031.8, 1155.3, 1450.5, 1583.1, 1602.3, 2852.4, 2904.5, 3054.3},
	Cyclohexane:  {801.3, 1028.3, 1157.6, 1266.4, 1444.4, 2664.4, 2852.9, 2923.8, 2938.3},
	Silicon:      {520.7},
}

// DefaultCatalog returns a copy of the built-in reference table
func DefaultCatalog() Catalog {
	out := make(Catalog, len(defaultCatalog))
	for m, positions := range defaultCatalog {
		out[m] = slices.Clone(positions)
	}
	return out
}

// Materials lists the built-in materials in alphabetical order
func Materials() []Material {
	return defaultCatalog.Materials()
}

// Materials lists the catalogued materials in alphabetical order
func (c Catalog) Materials() []Material {
	out := make([]Material, 0, len(c))
	for m := range c {
		out = append(out, m)
	}
	slices.Sort(out)
	return out
}

// Positions returns the sorted true peak positions of a material
func (c Catalog) Positions(m Material) ([]float64, error) {
	positions, ok := c[m]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMaterial, m)
	}
	out := slices.Clone(positions)
	slices.Sort(out)
	return out, nil
}

// Has reports whether the material is catalogued
func (c Catalog) Has(m Material) bool {
	_, ok := c[m]
	return ok
}

// ParseMaterial resolves a material name, ignoring case
func (c Catalog) ParseMaterial(name string) (Material, error) {
	m := Material(strings.ToLower(strings.TrimSpace(name)))
	if !c.Has(m) {
		return "", fmt.Errorf("%w: %q", ErrUnknownMaterial, name)
	}
	return m, nil
}

// MaterialFromFilename recovers the material from a reference file name
// such as "20240131_sulfur_10s.txt". The longest matching name wins.
func (c Catalog) MaterialFromFilename(path string) (Material, bool) {
	base := strings.ToLower(filepath.Base(path))
	var found Material
	for _, m := range c.Materials() {
		if strings.Contains(base, string(m)) && len(m) > len(found) {
			found = m
		}
	}
	return found, found != ""
}

// MaterialFromFilename looks the file name up in the built-in catalogue
func MaterialFromFilename(path string) (Material, bool) {
	return defaultCatalog.MaterialFromFilename(path)
}
