package engine

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
)

// Occupancy answers which side, if any, holds a cell
type Occupancy interface {
	SideAt(c Cell) (Side, bool)
}

// MoveRules is the immutable rule table for one piece type
type MoveRules struct {
	pieceType string
	side      Side
	pawnLike  bool
	offsets   []Offset
	rows      int
	cols      int
}

// NewMoveRules builds a rule table for a piece type on a rows x cols board
func NewMoveRules(pieceType string, offsets []Offset, rows, cols int) *MoveRules {
	rules := make([]Offset, len(offsets))
	copy(rules, offsets)
	return &MoveRules{
		pieceType: pieceType,
		side:      SideOf(pieceType),
		pawnLike:  strings.HasPrefix(pieceType, "P"),
		offsets:   rules,
		rows:      rows,
		cols:      cols,
	}
}

// ParseMoveRules reads newline-delimited "dr,dc" pairs. Blank lines are skipped;
// anything else that is not two integers fails the whole table.
func ParseMoveRules(pieceType string, r io.Reader, rows, cols int) (*MoveRules, error) {
	var offsets []Offset
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("move rules %s: invalid format on line %d: %q", pieceType, lineNo, line)
		}
		dr, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, fmt.Errorf("move rules %s: line %d: %w", pieceType, lineNo, err)
		}
		dc, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("move rules %s: line %d: %w", pieceType, lineNo, err)
		}
		offsets = append(offsets, Offset{DR: dr, DC: dc})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("move rules %s: %w", pieceType, err)
	}
	return NewMoveRules(pieceType, offsets, rows, cols), nil
}

// LoadMoveRules loads <dir>/<pieceType>/moves.txt from fsys
func LoadMoveRules(fsys fs.FS, dir, pieceType string, rows, cols int) (*MoveRules, error) {
	p := path.Join(dir, pieceType, "moves.txt")
	f, err := fsys.Open(p)
	if err != nil {
		return nil, fmt.Errorf("error loading rules from %s: %w", p, err)
	}
	defer f.Close()
	return ParseMoveRules(pieceType, f, rows, cols)
}

// PieceType returns the type identifier the table was built for
func (m *MoveRules) PieceType() string { return m.pieceType }

// PawnLike reports whether the pawn forward/capture logic applies
func (m *MoveRules) PawnLike() bool { return m.pawnLike }

// Offsets returns a copy of the rule list
func (m *MoveRules) Offsets() []Offset {
	out := make([]Offset, len(m.offsets))
	copy(out, m.offsets)
	return out
}

func (m *MoveRules) inBounds(c Cell) bool {
	return c.Row >= 0 && c.Row < m.rows && c.Col >= 0 && c.Col < m.cols
}

// forward is the row step of a pawn: black moves down the board, white up
func (m *MoveRules) forward() int {
	if m.side == Black {
		return 1
	}
	return -1
}

// LegalDestinations lists reachable cells from origin. Only pawn-like tables
// look at occupancy; blocking for sliders is the dispatcher's job.
func (m *MoveRules) LegalDestinations(origin Cell, hasMoved bool, occ Occupancy) []Cell {
	if !m.pawnLike {
		var out []Cell
		for _, o := range m.offsets {
			if dst := origin.Add(o); m.inBounds(dst) {
				out = append(out, dst)
			}
		}
		return out
	}
	return m.pawnDestinations(origin, hasMoved, occ)
}

func (m *MoveRules) pawnDestinations(origin Cell, hasMoved bool, occ Occupancy) []Cell {
	var forwardMoves []Offset
	for _, o := range m.offsets {
		if o.DC == 0 {
			forwardMoves = append(forwardMoves, o)
		}
	}
	sort.SliceStable(forwardMoves, func(i, j int) bool {
		return abs(forwardMoves[i].DR) < abs(forwardMoves[j].DR)
	})

	var out []Cell
	for _, o := range forwardMoves {
		if abs(o.DR) == 2 && hasMoved {
			continue
		}
		dst := origin.Add(o)
		if !m.inBounds(dst) {
			continue
		}
		if occupied(occ, dst) {
			break
		}
		out = append(out, dst)
	}

	if occ == nil {
		return out
	}

	dir := m.forward()
	// diagonal captures, then the straight-ahead capture
	for _, dc := range []int{-1, 1, 0} {
		dst := Cell{Row: origin.Row + dir, Col: origin.Col + dc}
		if !m.inBounds(dst) {
			continue
		}
		if side, ok := occ.SideAt(dst); ok && side != m.side {
			out = append(out, dst)
		}
	}
	return out
}

func occupied(occ Occupancy, c Cell) bool {
	if occ == nil {
		return false
	}
	_, ok := occ.SideAt(c)
	return ok
}

// SideOf extracts the side marker embedded as the second character of a type id
func SideOf(pieceType string) Side {
	if len(pieceType) < 2 {
		return ""
	}
	return Side(pieceType[1:2])
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// ContainsCell reports whether cells includes c
func ContainsCell(cells []Cell, c Cell) bool {
	for _, x := range cells {
		if x == c {
			return true
		}
	}
	return false
}
