package engine

import (
	"fmt"
	"log"
)

// Dispatcher is the single legality gate between queued commands and pieces
type Dispatcher struct {
	board Board
	quiet bool
}

// NewDispatcher creates a dispatcher for board
func NewDispatcher(board Board) *Dispatcher {
	return &Dispatcher{board: board}
}

// Accept validates cmd against idx and forwards it to the origin piece. The
// returned piece is the one that received the command. A rejection leaves every
// piece untouched.
func (d *Dispatcher) Accept(cmd Command, now int64, idx *PositionIndex) (*Piece, error) {
	piece, err := d.validate(cmd, idx)
	if err != nil {
		if !d.quiet {
			log.Printf("Rejected %s command for %s: %v", cmd.Type, cmd.PieceID, err)
		}
		return nil, err
	}
	piece.OnCommand(cmd, now)
	return piece, nil
}

func (d *Dispatcher) validate(cmd Command, idx *PositionIndex) (*Piece, error) {
	src, dst := cmd.Origin(), cmd.Destination()
	if !d.board.InBounds(src) {
		return nil, errOutOfBounds(src)
	}
	if !d.board.InBounds(dst) {
		return nil, errOutOfBounds(dst)
	}

	piece, ok := idx.PieceAt(src)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOriginEmpty, src)
	}

	switch cmd.Type {
	case CommandJump:
		if src != dst {
			return nil, fmt.Errorf("%w: jump must land on its origin %s", ErrIllegalDestination, src)
		}
		return piece, nil
	case CommandMove:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCommand, cmd.Type)
	}

	if !ContainsCell(piece.LegalDestinations(idx), dst) {
		return nil, fmt.Errorf("%w: %s -> %s for %s", ErrIllegalDestination, src, dst, piece.ID())
	}
	if side, ok := idx.SideAt(dst); ok && side == piece.Side() {
		return nil, fmt.Errorf("%w: %s", ErrFriendlyDestination, dst)
	}
	if !isPathClear(src, dst, idx) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrPathBlocked, src, dst)
	}
	return piece, nil
}

// isPathClear walks the cells strictly between src and dst. Only horizontal,
// vertical and exact diagonal lines are checked; any other offset leaps.
func isPathClear(src, dst Cell, occ Occupancy) bool {
	dr, dc := dst.Row-src.Row, dst.Col-src.Col
	if dr != 0 && dc != 0 && abs(dr) != abs(dc) {
		return true
	}
	steps := max(abs(dr), abs(dc))
	stepR, stepC := sign(dr), sign(dc)
	for i := 1; i < steps; i++ {
		c := Cell{Row: src.Row + i*stepR, Col: src.Col + i*stepC}
		if _, ok := occ.SideAt(c); ok {
			return false
		}
	}
	return true
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	}
	return 0
}
