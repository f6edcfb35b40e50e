package mapping

import (
	"fmt"
	"strings"

	"github.com/chiashi-lab/RamanCalibrator/algorithms/common"
)

// StorageOrder is the pixel order an instrument writes its maps in
type StorageOrder int

const (
	// RowMajor is already display order
	RowMajor StorageOrder = iota
	// ColumnMajor stores the grid linearized column by column under a
	// row-major shape, as MATLAB-backed acquisition software does
	ColumnMajor
	// Transposed stores (col, row) instead of (row, col)
	Transposed
)

func (o StorageOrder) String() string {
	switch o {
	case RowMajor:
		return "row_major"
	case ColumnMajor:
		return "column_major"
	case Transposed:
		return "transposed"
	default:
		return fmt.Sprintf("order(%d)", int(o))
	}
}

// ParseStorageOrder accepts the names printed by String
func ParseStorageOrder(name string) (StorageOrder, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "row_major", "row", "":
		return RowMajor, nil
	case "column_major", "column", "col":
		return ColumnMajor, nil
	case "transposed", "transpose":
		return Transposed, nil
	default:
		return RowMajor, fmt.Errorf("unknown storage order %q", name)
	}
}

func (o StorageOrder) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *StorageOrder) UnmarshalText(text []byte) error {
	parsed, err := ParseStorageOrder(string(text))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// remap moves whole pixel blocks between acquisition and display order.
// It returns the new grid shape and a fresh backing slice.
func remap(rows, cols, pixel int, data []float64, order StorageOrder, inverse bool) (int, int, []float64) {
	out := make([]float64, len(data))
	move := func(dst, src int) {
		copy(out[dst*pixel:(dst+1)*pixel], data[src*pixel:(src+1)*pixel])
	}

	switch order {
	case ColumnMajor:
		for i1 := 0; i1 < rows; i1++ {
			for j1 := 0; j1 < cols; j1++ {
				index := i1*cols + j1
				i2, j2 := index%rows, index/rows
				if inverse {
					move(index, i2*cols+j2)
				} else {
					move(i2*cols+j2, index)
				}
			}
		}
		return rows, cols, out
	case Transposed:
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				move(j*rows+i, i*cols+j)
			}
		}
		return cols, rows, out
	default:
		copy(out, data)
		return rows, cols, out
	}
}

// ToDisplay reorders an acquisition-order cube into display order
func ToDisplay(cube common.Cube3D, order StorageOrder) (common.Cube3D, error) {
	if !cube.Valid() {
		return common.Cube3D{}, fmt.Errorf("%w: invalid 3D cube", ErrShapeMismatch)
	}
	rows, cols, data := remap(cube.Rows, cube.Cols, cube.Length, cube.Data, order, false)
	return common.Cube3D{Rows: rows, Cols: cols, Length: cube.Length, Data: data}, nil
}

// FromDisplay undoes ToDisplay
func FromDisplay(cube common.Cube3D, order StorageOrder) (common.Cube3D, error) {
	if !cube.Valid() {
		return common.Cube3D{}, fmt.Errorf("%w: invalid 3D cube", ErrShapeMismatch)
	}
	rows, cols, data := remap(cube.Rows, cube.Cols, cube.Length, cube.Data, order, true)
	return common.Cube3D{Rows: rows, Cols: cols, Length: cube.Length, Data: data}, nil
}

// ToDisplay4D reorders a 4D cube, keeping each pixel's repeats together
func ToDisplay4D(cube common.Cube4D, order StorageOrder) (common.Cube4D, error) {
	if !cube.Valid() {
		return common.Cube4D{}, fmt.Errorf("%w: invalid 4D cube", ErrShapeMismatch)
	}
	rows, cols, data := remap(cube.Rows, cube.Cols, cube.PixelSize(), cube.Data, order, false)
	return common.Cube4D{Rows: rows, Cols: cols, Repeats: cube.Repeats, Length: cube.Length, Data: data}, nil
}

// FromDisplay4D undoes ToDisplay4D
func FromDisplay4D(cube common.Cube4D, order StorageOrder) (common.Cube4D, error) {
	if !cube.Valid() {
		return common.Cube4D{}, fmt.Errorf("%w: invalid 4D cube", ErrShapeMismatch)
	}
	rows, cols, data := remap(cube.Rows, cube.Cols, cube.PixelSize(), cube.Data, order, true)
	return common.Cube4D{Rows: rows, Cols: cols, Repeats: cube.Repeats, Length: cube.Length, Data: data}, nil
}
