package engine

import (
	"fmt"
	"strings"
)

// PhysicsConfig holds the timing knobs of a game
type PhysicsConfig struct {
	SpeedMetersPerSec float64 `json:"speed_m_per_sec" yaml:"speed_m_per_sec"`
	MoveDelayMs       int64   `json:"move_delay_ms" yaml:"move_delay_ms"`
	JumpMs            int64   `json:"jump_ms" yaml:"jump_ms"`
	ShortRestMs       int64   `json:"short_rest_ms" yaml:"short_rest_ms"`
	LongRestMs        int64   `json:"long_rest_ms" yaml:"long_rest_ms"`
}

// GameConfig describes a board, its starting layout and the rule tables of the
// piece types it uses
type GameConfig struct {
	Name           string              `json:"name" yaml:"name"`
	Description    string              `json:"description" yaml:"description"`
	Rows           int                 `json:"rows" yaml:"rows"`
	Cols           int                 `json:"cols" yaml:"cols"`
	CellWidthPx    int                 `json:"cell_width_px" yaml:"cell_width_px"`
	CellHeightPx   int                 `json:"cell_height_px" yaml:"cell_height_px"`
	TickIntervalMs int                 `json:"tick_interval_ms" yaml:"tick_interval_ms"`
	Physics        PhysicsConfig       `json:"physics" yaml:"physics"`
	Layout         []string            `json:"layout" yaml:"layout"`
	Moves          map[string][]Offset `json:"moves,omitempty" yaml:"moves,omitempty"`
}

const (
	MinBoardSize       = 1
	MaxBoardSize       = NotationSize
	DefaultCellSizePx  = 80
	validPieceLetters  = "KQRBNP"
	validSideLetters   = "WB"
	pieceCodeLength    = 2
	pieceCodeSeparator = ","
)

// ApplyDefaults fills zero-valued sizes and timings with the stock values
func (c *GameConfig) ApplyDefaults() {
	if c.CellWidthPx == 0 {
		c.CellWidthPx = DefaultCellSizePx
	}
	if c.CellHeightPx == 0 {
		c.CellHeightPx = DefaultCellSizePx
	}
	if c.TickIntervalMs == 0 {
		c.TickIntervalMs = DefaultTickIntervalMs
	}
	if c.Physics.SpeedMetersPerSec == 0 {
		c.Physics.SpeedMetersPerSec = DefaultSpeedMetersPerSec
	}
	if c.Physics.MoveDelayMs == 0 {
		c.Physics.MoveDelayMs = DefaultMoveDelayMs
	}
	if c.Physics.JumpMs == 0 {
		c.Physics.JumpMs = DefaultJumpMs
	}
	if c.Physics.ShortRestMs == 0 {
		c.Physics.ShortRestMs = DefaultShortRestMs
	}
	if c.Physics.LongRestMs == 0 {
		c.Physics.LongRestMs = DefaultLongRestMs
	}
}

// Board returns the board geometry the config describes
func (c *GameConfig) Board() Board {
	return NewBoard(c.Rows, c.Cols, c.CellWidthPx, c.CellHeightPx)
}

// Timing converts the physics section into engine units
func (c *GameConfig) Timing() Timing {
	return Timing{
		SpeedPxPerSec: c.Physics.SpeedMetersPerSec * pixelsPerMeter,
		MoveDelayMs:   c.Physics.MoveDelayMs,
		JumpMs:        c.Physics.JumpMs,
		ShortRestMs:   c.Physics.ShortRestMs,
		LongRestMs:    c.Physics.LongRestMs,
	}
}

// ValidatePieceCode checks a two letter code such as "QW"
func ValidatePieceCode(code string) error {
	if len(code) != pieceCodeLength {
		return fmt.Errorf("piece code %q must be %d characters", code, pieceCodeLength)
	}
	if !strings.ContainsRune(validPieceLetters, rune(code[0])) {
		return fmt.Errorf("piece code %q: unknown piece letter %q", code, code[0])
	}
	if !strings.ContainsRune(validSideLetters, rune(code[1])) {
		return fmt.Errorf("piece code %q: unknown side letter %q", code, code[1])
	}
	return nil
}

// ValidateGameConfig validates a game configuration for correctness and playability
func ValidateGameConfig(config *GameConfig) error {
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}

	if config.Rows < MinBoardSize || config.Rows > MaxBoardSize {
		return fmt.Errorf("config validation: rows must be between %d and %d, got %d", MinBoardSize, MaxBoardSize, config.Rows)
	}
	if config.Cols < MinBoardSize || config.Cols > MaxBoardSize {
		return fmt.Errorf("config validation: cols must be between %d and %d, got %d", MinBoardSize, MaxBoardSize, config.Cols)
	}
	if config.CellWidthPx <= 0 || config.CellHeightPx <= 0 {
		return fmt.Errorf("config validation: cell size must be positive, got %dx%d", config.CellWidthPx, config.CellHeightPx)
	}
	if config.TickIntervalMs < MinTickIntervalMs {
		return fmt.Errorf("config validation: tick_interval_ms must be at least %d, got %d", MinTickIntervalMs, config.TickIntervalMs)
	}

	p := config.Physics
	if p.SpeedMetersPerSec <= 0 {
		return fmt.Errorf("config validation: physics.speed_m_per_sec must be positive, got %g", p.SpeedMetersPerSec)
	}
	if p.MoveDelayMs < 0 || p.JumpMs < 0 || p.ShortRestMs < 0 || p.LongRestMs < 0 {
		return fmt.Errorf("config validation: physics durations must not be negative")
	}

	if len(config.Layout) != config.Rows {
		return fmt.Errorf("config validation: layout must have %d rows to match rows, got %d",
			config.Rows, len(config.Layout))
	}

	kings := make(map[byte]int)
	for i, row := range config.Layout {
		fields := strings.Split(row, pieceCodeSeparator)
		if len(fields) != config.Cols {
			return fmt.Errorf("config validation: row %d must have %d fields to match cols, got %d",
				i+1, config.Cols, len(fields))
		}
		for j, field := range fields {
			code := strings.TrimSpace(field)
			if code == "" {
				continue
			}
			if err := ValidatePieceCode(code); err != nil {
				return fmt.Errorf("config validation: row %d, col %d: %w", i+1, j+1, err)
			}
			if _, ok := config.Moves[code]; !ok {
				return fmt.Errorf("config validation: no move rules for piece %s at row %d, col %d", code, i+1, j+1)
			}
			if code[0] == 'K' {
				kings[code[1]]++
			}
		}
	}

	for _, side := range []Side{White, Black} {
		if kings[side[0]] == 0 {
			return fmt.Errorf("config validation: layout must contain a %s king", side)
		}
	}

	return nil
}
