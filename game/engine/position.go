package engine

// PositionIndex is the per-tick cell -> piece occupancy map
type PositionIndex struct {
	board Board
	cells map[Cell]*Piece
}

// NewPositionIndex creates an empty index
func NewPositionIndex(board Board) *PositionIndex {
	return &PositionIndex{board: board, cells: make(map[Cell]*Piece)}
}

// Rebuild clears the index and re-occupies it from pieces, which must be in
// creation order. It returns the pieces that lost a cell conflict.
func (ix *PositionIndex) Rebuild(pieces []*Piece) []*Piece {
	clear(ix.cells)

	var eliminated []*Piece
	for _, p := range pieces {
		cell := p.Cell()
		resident, taken := ix.cells[cell]
		if !taken {
			ix.cells[cell] = p
			continue
		}
		if newcomerWins(p, resident) {
			ix.cells[cell] = p
			eliminated = append(eliminated, resident)
		} else {
			eliminated = append(eliminated, p)
		}
	}
	return eliminated
}

// newcomerWins resolves two pieces floored onto the same cell. Resting or
// command-less residents always lose; otherwise an active newcomer wins only
// if it started moving strictly earlier.
func newcomerWins(newcomer, resident *Piece) bool {
	if resident.displaceable() {
		return true
	}
	return newcomer.isActive() && resident.anchor() > newcomer.anchor()
}

// PieceAt returns the piece holding a cell
func (ix *PositionIndex) PieceAt(c Cell) (*Piece, bool) {
	p, ok := ix.cells[c]
	return p, ok
}

// SideAt implements Occupancy
func (ix *PositionIndex) SideAt(c Cell) (Side, bool) {
	p, ok := ix.cells[c]
	if !ok {
		return "", false
	}
	return p.Side(), true
}

// Len returns the number of occupied cells
func (ix *PositionIndex) Len() int { return len(ix.cells) }
