package reader

import (
	"errors"
	"fmt"
	"slices"

	"github.com/chiashi-lab/RamanCalibrator/algorithms/common"
	"github.com/chiashi-lab/RamanCalibrator/logging"
	"github.com/chiashi-lab/RamanCalibrator/mapping"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrFileTooLarge      = errors.New("file exceeds size limit")
	ErrMalformed         = errors.New("malformed data")
	ErrAxisNotIncreasing = errors.New("wavenumber axis is not strictly increasing")
)

// Family identifies the instrument that produced a file
type Family string

const (
	// Renishaw is the commercial microscope; its maps are column-major
	Renishaw Family = "renishaw"
	// Raman488 is the 488 nm mapping rig; its maps are stored transposed
	// and carry repeated exposures
	Raman488 Family = "raman488"
)

// ParseFamily accepts the family names used in map documents
func ParseFamily(name string) (Family, error) {
	switch Family(name) {
	case Renishaw, Raman488:
		return Family(name), nil
	case "":
		return Renishaw, nil
	default:
		return "", fmt.Errorf("%w: instrument family %q", ErrUnsupportedFormat, name)
	}
}

// DefaultOrder is the storage order the family writes maps in
func (f Family) DefaultOrder() mapping.StorageOrder {
	if f == Raman488 {
		return mapping.Transposed
	}
	return mapping.ColumnMajor
}

// ExtendedHeader reports whether exported files carry the background and
// cosmic-ray lines
func (f Family) ExtendedHeader() bool {
	return f == Raman488
}

// RawData is one measurement file in acquisition order
type RawData struct {
	Path        string
	Family      Family
	Axis        []float64
	Cube        common.Cube4D
	Order       mapping.StorageOrder
	Geometry    mapping.Geometry
	Overlay     *mapping.Overlay
	SinglePoint bool
}

// NewPointData wraps a single spectrum as a 1x1 map
func NewPointData(path string, family Family, axis, spectrum []float64) (RawData, error) {
	if err := checkAxis(axis, len(spectrum)); err != nil {
		return RawData{}, err
	}
	overlay := mapping.SinglePointOverlay()
	cube := common.NewCube4D(1, 1, 1, len(axis))
	copy(cube.Data, spectrum)
	return RawData{
		Path:        path,
		Family:      family,
		Axis:        slices.Clone(axis),
		Cube:        cube,
		Order:       mapping.RowMajor,
		Geometry:    mapping.SinglePointGeometry(),
		Overlay:     &overlay,
		SinglePoint: true,
	}, nil
}

// NewMapData wraps a single-exposure map
func NewMapData(path string, family Family, axis []float64, cube common.Cube3D,
	order mapping.StorageOrder, geometry mapping.Geometry) (RawData, error) {
	if !cube.Valid() {
		return RawData{}, fmt.Errorf("%w: invalid 3D cube", ErrMalformed)
	}
	return NewMapData4D(path, family, axis, cube.Clone().AsCube4D(), order, geometry)
}

// NewMapData4D wraps a map with repeated exposures per pixel
func NewMapData4D(path string, family Family, axis []float64, cube common.Cube4D,
	order mapping.StorageOrder, geometry mapping.Geometry) (RawData, error) {
	if !cube.Valid() {
		return RawData{}, fmt.Errorf("%w: invalid 4D cube %v", ErrMalformed, cube.Shape())
	}
	if err := checkAxis(axis, cube.Length); err != nil {
		return RawData{}, err
	}
	if err := geometry.Validate(); err != nil {
		return RawData{}, err
	}
	data := RawData{
		Path:     path,
		Family:   family,
		Axis:     slices.Clone(axis),
		Cube:     cube,
		Order:    order,
		Geometry: geometry,
	}
	if family == Raman488 {
		overlay := mapping.FlippedOverlay(geometry)
		data.Overlay = &overlay
	}
	return data, nil
}

func checkAxis(axis []float64, length int) error {
	if len(axis) == 0 || len(axis) != length {
		return fmt.Errorf("%w: axis has %d samples, spectra have %d", ErrMalformed, len(axis), length)
	}
	if !common.IsStrictlyIncreasing(axis) {
		return ErrAxisNotIncreasing
	}
	return nil
}

// FirstSpectrum returns the exposure-averaged spectrum of the first stored
// pixel. Reference files that hold a map are reduced this way.
func (d RawData) FirstSpectrum() []float64 {
	if d.Cube.Rows*d.Cube.Cols > 1 {
		logging.Warn("reference file contains multiple spectra, only the first one is used", logging.Fields{
			"component": "reader",
			"path":      d.Path,
			"shape":     d.Cube.Shape(),
		})
	}
	out := make([]float64, d.Cube.Length)
	for k := 0; k < d.Cube.Repeats; k++ {
		s := d.Cube.Series(0, 0, k)
		for i, v := range s {
			out[i] += v
		}
	}
	for i := range out {
		out[i] /= float64(d.Cube.Repeats)
	}
	return out
}

// InstrumentReader is implemented by decoders of vendor file formats
type InstrumentReader interface {
	Axis() ([]float64, error)
	Cube() (common.Cube4D, error)
	Geometry() (mapping.Geometry, error)
	Order() mapping.StorageOrder
	Close() error
}

// FromInstrument drains r into RawData and closes it. A 1x1 single
// exposure cube is treated as a point measurement.
func FromInstrument(path string, family Family, r InstrumentReader) (data RawData, err error) {
	defer func() {
		if cerr := r.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	axis, err := r.Axis()
	if err != nil {
		return RawData{}, fmt.Errorf("failed to read axis: %w", err)
	}
	cube, err := r.Cube()
	if err != nil {
		return RawData{}, fmt.Errorf("failed to read spectra: %w", err)
	}
	if cube.Valid() && cube.Rows == 1 && cube.Cols == 1 && cube.Repeats == 1 {
		return NewPointData(path, family, axis, cube.Data)
	}
	geometry, err := r.Geometry()
	if err != nil {
		return RawData{}, fmt.Errorf("failed to read geometry: %w", err)
	}
	return NewMapData4D(path, family, axis, cube, r.Order(), geometry)
}

// ReaderConfig limits what the file readers accept
type ReaderConfig struct {
	MaxFileSize   int64  `json:"max_file_size"`
	CommentPrefix string `json:"comment_prefix"`
}

// DefaultReaderConfig returns a default reader configuration
func DefaultReaderConfig() *ReaderConfig {
	return &ReaderConfig{
		MaxFileSize:   512 << 20,
		CommentPrefix: "#",
	}
}
