package service

import (
	"time"

	"github.com/wricardo/kungfu-chess/game/engine"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string             `json:"id"`
	ConfigName     string             `json:"config_name"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	GameState      *engine.Snapshot   `json:"game_state"`
	GameConfig     *engine.GameConfig `json:"game_config"`
}

// CommandRequest is an external request to move or jump a piece. Type defaults
// to "move"; a jump without a destination lands on its origin.
type CommandRequest struct {
	Type string `json:"type"`
	From string `json:"from"`
	To   string `json:"to,omitempty"`
}

// CommandResult reports a queued command. Legality is decided on the next tick;
// the outcome arrives as a piece_moved or command_rejected event.
type CommandResult struct {
	Queued  bool           `json:"queued"`
	Command engine.Command `json:"command"`
	PieceID string         `json:"piece_id,omitempty"`
	Tick    uint64         `json:"tick"`
	Message string         `json:"message"`
}

// LegalMovesResult lists where the piece on a cell may currently move
type LegalMovesResult struct {
	From    string   `json:"from"`
	PieceID string   `json:"piece_id"`
	Moves   []string `json:"moves"`
}

// ConfigInfo provides information about a game configuration
type ConfigInfo struct {
	Filename    string `json:"filename"`
	ConfigID    string `json:"config_id"` // The identifier to use for session creation
	Name        string `json:"name"`      // Display name
	Description string `json:"description"`
	Rows        int    `json:"rows"`
	Cols        int    `json:"cols"`
	PieceCount  int    `json:"piece_count"`
}
