package engine

import (
	"fmt"
	"strings"
)

// CommandType tags what a Command asks a piece to do
type CommandType string

const (
	CommandMove      CommandType = "move"
	CommandJump      CommandType = "jump"
	CommandIdle      CommandType = "idle"
	CommandShortRest CommandType = "short_rest"
	CommandLongRest  CommandType = "long_rest"
)

// IsResting reports whether the type is idle or one of the cooldowns
func (t CommandType) IsResting() bool {
	switch t {
	case CommandIdle, CommandShortRest, CommandLongRest:
		return true
	}
	return false
}

// Side identifies the player owning a piece
type Side string

const (
	White Side = "W"
	Black Side = "B"
)

// Opponent returns the other side
func (s Side) Opponent() Side {
	if s == White {
		return Black
	}
	return White
}

// String returns a human readable side name
func (s Side) String() string {
	switch s {
	case White:
		return "White"
	case Black:
		return "Black"
	}
	return string(s)
}

const (
	// Algebraic notation covers an 8x8 board
	NotationSize = 8

	// Pixels per meter used to turn configured speeds into world units
	pixelsPerMeter = 100.0

	MinTickIntervalMs     = 1
	DefaultTickIntervalMs = 16
	WebSocketBufferSize   = 256
)

// Default timings, in milliseconds
const (
	DefaultSpeedMetersPerSec = 1.0
	DefaultMoveDelayMs       = 300
	DefaultJumpMs            = 1000
	DefaultShortRestMs       = 500
	DefaultLongRestMs        = 1500
)

// Cell is a (row, col) board coordinate. Row 0 is rank 8.
type Cell struct {
	Row int
	Col int
}

// Add returns the cell shifted by the offset
func (c Cell) Add(o Offset) Cell {
	return Cell{Row: c.Row + o.DR, Col: c.Col + o.DC}
}

// String returns the algebraic notation, or the raw pair when the cell is off the notation grid
func (c Cell) String() string {
	s, err := CellToAlgebraic(c)
	if err != nil {
		return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
	}
	return s
}

// MarshalText encodes the cell as algebraic notation
func (c Cell) MarshalText() ([]byte, error) {
	s, err := CellToAlgebraic(c)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

// UnmarshalText decodes algebraic notation
func (c *Cell) UnmarshalText(text []byte) error {
	cell, err := AlgebraicToCell(string(text))
	if err != nil {
		return err
	}
	*c = cell
	return nil
}

// AlgebraicToCell converts notation such as "a1" to a cell; "a1" is (7,0)
func AlgebraicToCell(notation string) (Cell, error) {
	if len(notation) != 2 {
		return Cell{}, fmt.Errorf("invalid algebraic notation %q: expected 2 characters", notation)
	}

	col := strings.ToLower(notation)[0]
	if col < 'a' || col >= 'a'+NotationSize {
		return Cell{}, fmt.Errorf("invalid column in algebraic notation %q", notation)
	}

	rank := notation[1]
	if rank < '1' || rank >= '1'+NotationSize {
		return Cell{}, fmt.Errorf("invalid row in algebraic notation %q", notation)
	}

	return Cell{
		Row: NotationSize - int(rank-'0'),
		Col: int(col - 'a'),
	}, nil
}

// CellToAlgebraic converts a cell back to notation
func CellToAlgebraic(c Cell) (string, error) {
	if c.Row < 0 || c.Row >= NotationSize || c.Col < 0 || c.Col >= NotationSize {
		return "", fmt.Errorf("cell (%d,%d) out of notation bounds", c.Row, c.Col)
	}
	return fmt.Sprintf("%c%d", 'a'+c.Col, NotationSize-c.Row), nil
}

// Offset is a relative move rule
type Offset struct {
	DR int `json:"dr" yaml:"dr"`
	DC int `json:"dc" yaml:"dc"`
}

// Position is a continuous world coordinate in pixels
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Command is an immutable intent for a single piece. Both params are always
// present; for non-move types they anchor the piece's resting cell.
type Command struct {
	Timestamp int64       `json:"timestamp"`
	PieceID   string      `json:"piece_id"`
	Type      CommandType `json:"type"`
	Params    [2]Cell     `json:"params"`
}

// Origin is the first cell parameter
func (c Command) Origin() Cell { return c.Params[0] }

// Destination is the second cell parameter
func (c Command) Destination() Cell { return c.Params[1] }

// NewCommand builds a command from algebraic origin and destination
func NewCommand(now int64, pieceID string, typ CommandType, from, to string) (Command, error) {
	src, err := AlgebraicToCell(from)
	if err != nil {
		return Command{}, err
	}
	dst, err := AlgebraicToCell(to)
	if err != nil {
		return Command{}, err
	}
	return Command{Timestamp: now, PieceID: pieceID, Type: typ, Params: [2]Cell{src, dst}}, nil
}
