package engine

import (
	"fmt"
	"strings"
	"sync"
)

// IDAllocator hands out creation-ordered sequence numbers
type IDAllocator struct {
	mu   sync.Mutex
	next uint64
}

// NewIDAllocator starts counting at zero
func NewIDAllocator() *IDAllocator {
	return &IDAllocator{}
}

// Next returns a fresh sequence number
func (a *IDAllocator) Next() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := a.next
	a.next++
	return n
}

// PieceFactory builds pieces with their state arenas
type PieceFactory struct {
	board   Board
	timing  Timing
	rules   map[string]*MoveRules
	graph   *StateGraph
	ids     *IDAllocator
	counter map[string]int
}

// NewPieceFactory creates a factory over the loaded rule tables
func NewPieceFactory(board Board, timing Timing, rules map[string]*MoveRules, ids *IDAllocator) *PieceFactory {
	if ids == nil {
		ids = NewIDAllocator()
	}
	return &PieceFactory{
		board:   board,
		timing:  timing,
		rules:   rules,
		graph:   DefaultStateGraph(),
		ids:     ids,
		counter: make(map[string]int),
	}
}

// CreatePiece places a new piece of pieceType at cell
func (f *PieceFactory) CreatePiece(pieceType string, cell Cell) (*Piece, error) {
	rules, ok := f.rules[pieceType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPieceType, pieceType)
	}
	if !f.board.InBounds(cell) {
		return nil, errOutOfBounds(cell)
	}

	f.counter[pieceType]++
	states := newStateArena(f.graph, rules, cell, f.board, f.timing)
	return &Piece{
		id:        fmt.Sprintf("%s_%d", pieceType, f.counter[pieceType]),
		pieceType: pieceType,
		side:      SideOf(pieceType),
		seq:       f.ids.Next(),
		states:    states,
		state:     states[f.graph.Initial()],
	}, nil
}

// PlacePieces creates every piece named in a layout of comma separated codes.
// Pieces come back in creation order: row by row, left to right.
func (f *PieceFactory) PlacePieces(layout []string) ([]*Piece, error) {
	var pieces []*Piece
	for row, line := range layout {
		for col, code := range strings.Split(line, ",") {
			code = strings.TrimSpace(code)
			if code == "" {
				continue
			}
			p, err := f.CreatePiece(code, Cell{Row: row, Col: col})
			if err != nil {
				return nil, fmt.Errorf("layout row %d col %d: %w", row+1, col+1, err)
			}
			pieces = append(pieces, p)
		}
	}
	return pieces, nil
}

// LayoutCodes returns the distinct piece codes a layout uses
func LayoutCodes(layout []string) []string {
	seen := make(map[string]bool)
	var codes []string
	for _, line := range layout {
		for _, code := range strings.Split(line, ",") {
			code = strings.TrimSpace(code)
			if code == "" || seen[code] {
				continue
			}
			seen[code] = true
			codes = append(codes, code)
		}
	}
	return codes
}
