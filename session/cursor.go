package session

import (
	"fmt"
	"slices"

	"github.com/chiashi-lab/RamanCalibrator/algorithms/common"
	"github.com/chiashi-lab/RamanCalibrator/export"
	"github.com/chiashi-lab/RamanCalibrator/logging"
	"github.com/chiashi-lab/RamanCalibrator/mapping"
)

// Cursor is the selected pixel
type Cursor struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Direction moves the cursor by one pixel
type Direction int

const (
	// Up moves to the next row; row 0 is drawn at the bottom of the map
	Up Direction = iota
	Down
	Left
	Right
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// Cursor returns the selected pixel
func (s *Session) Cursor() Cursor {
	return s.cursor
}

// Select moves the cursor to (row, col). Out-of-range indices are rejected
// and leave the cursor where it was.
func (s *Session) Select(row, col int) error {
	if !s.loaded {
		return mapping.ErrNoRawData
	}
	if !s.info.Contains(row, col) {
		return fmt.Errorf("%w: (%d, %d)", mapping.ErrIndexOutOfRange, row, col)
	}
	s.cursor = Cursor{Row: row, Col: col}
	return nil
}

// SelectCoord selects the pixel under a stage coordinate. Points outside
// the map are ignored and reported as false.
func (s *Session) SelectCoord(x, y float64) (Cursor, bool) {
	if !s.loaded || !s.info.Geometry.IsInside(x, y) {
		return s.cursor, false
	}
	row, col := s.info.Geometry.CoordToIndex(x, y)
	if err := s.Select(row, col); err != nil {
		return s.cursor, false
	}
	return s.cursor, true
}

// Step moves the cursor one pixel, clamped to the map
func (s *Session) Step(d Direction) Cursor {
	if !s.loaded {
		return s.cursor
	}
	row, col := s.cursor.Row, s.cursor.Col
	switch d {
	case Up:
		row++
	case Down:
		row--
	case Left:
		col--
	case Right:
		col++
	}
	s.cursor = Cursor{
		Row: common.Clamp(row, 0, s.info.Rows-1),
		Col: common.Clamp(col, 0, s.info.Cols-1),
	}
	return s.cursor
}

// AddToSaveList queues a pixel for export. Pixels already queued are kept
// once, in their original position.
func (s *Session) AddToSaveList(row, col int) error {
	if !s.loaded {
		return mapping.ErrNoRawData
	}
	if !s.info.Contains(row, col) {
		return fmt.Errorf("%w: (%d, %d)", mapping.ErrIndexOutOfRange, row, col)
	}
	px := export.Pixel{Row: row, Col: col}
	if !slices.Contains(s.saveList, px) {
		s.saveList = append(s.saveList, px)
	}
	return nil
}

// AddAllToSaveList replaces the list with every pixel, column by column
func (s *Session) AddAllToSaveList() error {
	if !s.loaded {
		return mapping.ErrNoRawData
	}
	list := make([]export.Pixel, 0, s.info.Rows*s.info.Cols)
	for col := 0; col < s.info.Cols; col++ {
		for row := 0; row < s.info.Rows; row++ {
			list = append(list, export.Pixel{Row: row, Col: col})
		}
	}
	s.saveList = list
	s.logger.Debug("all pixels queued", logging.Fields{"count": len(list)})
	return nil
}

// RemoveFromSaveList drops a pixel and reports whether it was queued
func (s *Session) RemoveFromSaveList(row, col int) bool {
	i := slices.Index(s.saveList, export.Pixel{Row: row, Col: col})
	if i < 0 {
		return false
	}
	s.saveList = slices.Delete(s.saveList, i, i+1)
	return true
}

func (s *Session) ClearSaveList() {
	s.saveList = nil
}

// SaveList returns the queued pixels in order
func (s *Session) SaveList() []export.Pixel {
	return slices.Clone(s.saveList)
}
