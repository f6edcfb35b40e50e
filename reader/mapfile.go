package reader

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/chiashi-lab/RamanCalibrator/algorithms/common"
	"github.com/chiashi-lab/RamanCalibrator/mapping"
)

// MapDocument is the JSON interchange form of a measurement. Exactly one of
// Spectrum, Cube and Cube4D is set; they hold the data in acquisition
// order.
type MapDocument struct {
	Family   string            `json:"family"`
	Order    string            `json:"order,omitempty"`
	Axis     []float64         `json:"axis"`
	Geometry *mapping.Geometry `json:"geometry,omitempty"`
	Overlay  *mapping.Overlay  `json:"overlay,omitempty"`
	Spectrum []float64         `json:"spectrum,omitempty"`
	Cube     [][][]float64     `json:"cube,omitempty"`
	Cube4D   [][][][]float64   `json:"cube4d,omitempty"`
}

// documentReader serves a decoded MapDocument through InstrumentReader
type documentReader struct {
	doc    MapDocument
	family Family
}

func (r *documentReader) Axis() ([]float64, error) {
	return r.doc.Axis, nil
}

func (r *documentReader) Cube() (common.Cube4D, error) {
	switch {
	case r.doc.Cube4D != nil:
		return common.Cube4DFromNested(r.doc.Cube4D)
	case r.doc.Cube != nil:
		c, err := common.Cube3DFromNested(r.doc.Cube)
		if err != nil {
			return common.Cube4D{}, err
		}
		return c.AsCube4D(), nil
	case r.doc.Spectrum != nil:
		c := common.NewCube4D(1, 1, 1, len(r.doc.Spectrum))
		copy(c.Data, r.doc.Spectrum)
		return c, nil
	default:
		return common.Cube4D{}, fmt.Errorf("%w: document has no spectra", ErrMalformed)
	}
}

// Geometry defaults to a unit pitch grid when the document has none
func (r *documentReader) Geometry() (mapping.Geometry, error) {
	if r.doc.Geometry != nil {
		return *r.doc.Geometry, nil
	}
	cube, err := r.Cube()
	if err != nil {
		return mapping.Geometry{}, err
	}
	rows, cols := cube.Rows, cube.Cols
	if r.Order() == mapping.Transposed {
		rows, cols = cols, rows
	}
	return mapping.Geometry{
		Pitch: [2]float64{1, 1},
		Span:  [2]float64{float64(cols), float64(rows)},
	}, nil
}

func (r *documentReader) Order() mapping.StorageOrder {
	if r.doc.Order == "" {
		return r.family.DefaultOrder()
	}
	order, err := mapping.ParseStorageOrder(r.doc.Order)
	if err != nil {
		return r.family.DefaultOrder()
	}
	return order
}

func (r *documentReader) Close() error {
	return nil
}

// ReadMapFile decodes a JSON map document into RawData
func ReadMapFile(path string, cfg *ReaderConfig) (RawData, error) {
	if cfg == nil {
		cfg = DefaultReaderConfig()
	}
	if err := checkSize(path, cfg); err != nil {
		return RawData{}, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return RawData{}, err
	}
	return DecodeMapDocument(path, b)
}

// DecodeMapDocument parses the JSON form read by ReadMapFile
func DecodeMapDocument(path string, b []byte) (RawData, error) {
	var doc MapDocument
	if err := json.Unmarshal(b, &doc); err != nil {
		return RawData{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	family, err := ParseFamily(doc.Family)
	if err != nil {
		return RawData{}, err
	}
	if doc.Order != "" {
		if _, err := mapping.ParseStorageOrder(doc.Order); err != nil {
			return RawData{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}

	data, err := FromInstrument(path, family, &documentReader{doc: doc, family: family})
	if err != nil {
		return RawData{}, err
	}
	if doc.Overlay != nil && !data.SinglePoint {
		overlay := *doc.Overlay
		data.Overlay = &overlay
	}
	return data, nil
}
