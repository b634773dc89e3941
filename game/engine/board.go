package engine

import "math"

// Board holds the grid dimensions and the pixel size of a cell
type Board struct {
	Rows       int
	Cols       int
	CellWidth  int
	CellHeight int
}

// NewBoard creates a board, falling back to 1px cells for non-positive sizes
func NewBoard(rows, cols, cellWidth, cellHeight int) Board {
	if cellWidth <= 0 {
		cellWidth = 1
	}
	if cellHeight <= 0 {
		cellHeight = 1
	}
	return Board{Rows: rows, Cols: cols, CellWidth: cellWidth, CellHeight: cellHeight}
}

// InBounds reports whether the cell lies on the board
func (b Board) InBounds(c Cell) bool {
	return c.Row >= 0 && c.Row < b.Rows && c.Col >= 0 && c.Col < b.Cols
}

// CellToWorld returns the top-left world position of a cell
func (b Board) CellToWorld(c Cell) Position {
	return Position{
		X: float64(c.Col * b.CellWidth),
		Y: float64(c.Row * b.CellHeight),
	}
}

// WorldToCell floors a world position onto the grid
func (b Board) WorldToCell(p Position) Cell {
	return Cell{
		Row: int(math.Floor(p.Y / float64(b.CellHeight))),
		Col: int(math.Floor(p.X / float64(b.CellWidth))),
	}
}

// AlgebraicToCell parses notation and checks it lies on this board
func (b Board) AlgebraicToCell(notation string) (Cell, error) {
	c, err := AlgebraicToCell(notation)
	if err != nil {
		return Cell{}, err
	}
	if !b.InBounds(c) {
		return Cell{}, errOutOfBounds(c)
	}
	return c, nil
}

// CellToAlgebraic formats a cell that lies on this board
func (b Board) CellToAlgebraic(c Cell) (string, error) {
	if !b.InBounds(c) {
		return "", errOutOfBounds(c)
	}
	return CellToAlgebraic(c)
}
