package common

import (
	"fmt"
)

// Cube4D holds a (row, col, repeat, wavenumber) block in one row-major slice.
// Each pixel occupies Repeats*Length consecutive samples.
type Cube4D struct {
	Rows    int
	Cols    int
	Repeats int
	Length  int
	Data    []float64
}

// NewCube4D allocates a zeroed cube
func NewCube4D(rows, cols, repeats, length int) Cube4D {
	return Cube4D{
		Rows:    rows,
		Cols:    cols,
		Repeats: repeats,
		Length:  length,
		Data:    make([]float64, rows*cols*repeats*length),
	}
}

// Cube4DFromNested copies a nested [row][col][repeat][wavenumber] array.
// Ragged input is rejected.
func Cube4DFromNested(nested [][][][]float64) (Cube4D, error) {
	if len(nested) == 0 || len(nested[0]) == 0 || len(nested[0][0]) == 0 {
		return Cube4D{}, fmt.Errorf("empty 4D cube")
	}
	rows, cols := len(nested), len(nested[0])
	repeats, length := len(nested[0][0]), len(nested[0][0][0])
	cube := NewCube4D(rows, cols, repeats, length)
	for r := range nested {
		if len(nested[r]) != cols {
			return Cube4D{}, fmt.Errorf("ragged cube: row %d has %d columns, want %d", r, len(nested[r]), cols)
		}
		for c := range nested[r] {
			if len(nested[r][c]) != repeats {
				return Cube4D{}, fmt.Errorf("ragged cube: pixel (%d,%d) has %d repeats, want %d", r, c, len(nested[r][c]), repeats)
			}
			for k := range nested[r][c] {
				if len(nested[r][c][k]) != length {
					return Cube4D{}, fmt.Errorf("ragged cube: pixel (%d,%d) repeat %d has %d samples, want %d", r, c, k, len(nested[r][c][k]), length)
				}
				copy(cube.Series(r, c, k), nested[r][c][k])
			}
		}
	}
	return cube, nil
}

// Valid reports whether the declared shape matches the backing slice
func (c Cube4D) Valid() bool {
	return c.Rows > 0 && c.Cols > 0 && c.Repeats > 0 && c.Length > 0 &&
		len(c.Data) == c.Rows*c.Cols*c.Repeats*c.Length
}

// Shape returns (rows, cols, repeats, length)
func (c Cube4D) Shape() [4]int {
	return [4]int{c.Rows, c.Cols, c.Repeats, c.Length}
}

// PixelSize is the number of samples stored per pixel
func (c Cube4D) PixelSize() int {
	return c.Repeats * c.Length
}

// Pixel returns the repeats*length block of one pixel, sharing storage
func (c Cube4D) Pixel(row, col int) []float64 {
	off := (row*c.Cols + col) * c.PixelSize()
	return c.Data[off : off+c.PixelSize()]
}

// Series returns one exposure of one pixel, sharing storage
func (c Cube4D) Series(row, col, repeat int) []float64 {
	off := ((row*c.Cols+col)*c.Repeats + repeat) * c.Length
	return c.Data[off : off+c.Length]
}

// At returns a single sample
func (c Cube4D) At(row, col, repeat, k int) float64 {
	return c.Data[((row*c.Cols+col)*c.Repeats+repeat)*c.Length+k]
}

// Clone returns a deep copy
func (c Cube4D) Clone() Cube4D {
	out := c
	out.Data = append([]float64(nil), c.Data...)
	return out
}

// Cube3D holds a (row, col, wavenumber) block in one row-major slice
type Cube3D struct {
	Rows   int
	Cols   int
	Length int
	Data   []float64
}

// NewCube3D allocates a zeroed cube
func NewCube3D(rows, cols, length int) Cube3D {
	return Cube3D{
		Rows:   rows,
		Cols:   cols,
		Length: length,
		Data:   make([]float64, rows*cols*length),
	}
}

// Cube3DFromNested copies a nested [row][col][wavenumber] array
func Cube3DFromNested(nested [][][]float64) (Cube3D, error) {
	if len(nested) == 0 || len(nested[0]) == 0 || len(nested[0][0]) == 0 {
		return Cube3D{}, fmt.Errorf("empty 3D cube")
	}
	rows, cols, length := len(nested), len(nested[0]), len(nested[0][0])
	cube := NewCube3D(rows, cols, length)
	for r := range nested {
		if len(nested[r]) != cols {
			return Cube3D{}, fmt.Errorf("ragged cube: row %d has %d columns, want %d", r, len(nested[r]), cols)
		}
		for c := range nested[r] {
			if len(nested[r][c]) != length {
				return Cube3D{}, fmt.Errorf("ragged cube: pixel (%d,%d) has %d samples, want %d", r, c, len(nested[r][c]), length)
			}
			copy(cube.Spectrum(r, c), nested[r][c])
		}
	}
	return cube, nil
}

// Valid reports whether the declared shape matches the backing slice
func (c Cube3D) Valid() bool {
	return c.Rows > 0 && c.Cols > 0 && c.Length > 0 && len(c.Data) == c.Rows*c.Cols*c.Length
}

// Spectrum returns the spectrum of one pixel, sharing storage
func (c Cube3D) Spectrum(row, col int) []float64 {
	off := (row*c.Cols + col) * c.Length
	return c.Data[off : off+c.Length]
}

// Clone returns a deep copy
func (c Cube3D) Clone() Cube3D {
	out := c
	out.Data = append([]float64(nil), c.Data...)
	return out
}

// AsCube4D views the cube as a single-exposure 4D cube (shares storage)
func (c Cube3D) AsCube4D() Cube4D {
	return Cube4D{Rows: c.Rows, Cols: c.Cols, Repeats: 1, Length: c.Length, Data: c.Data}
}

// Grid2D is a (row, col) scalar image, row-major
type Grid2D struct {
	Rows int
	Cols int
	Data []float64
}

// NewGrid2D allocates a zeroed grid
func NewGrid2D(rows, cols int) Grid2D {
	return Grid2D{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}
}

// At returns the value at (row, col)
func (g Grid2D) At(row, col int) float64 {
	return g.Data[row*g.Cols+col]
}

// Set stores v at (row, col)
func (g Grid2D) Set(row, col int, v float64) {
	g.Data[row*g.Cols+col] = v
}

// Empty reports whether the grid has no cells
func (g Grid2D) Empty() bool {
	return len(g.Data) == 0
}
