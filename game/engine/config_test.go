package engine

import (
	"strings"
	"testing"
)

func createValidConfig(t *testing.T) *GameConfig {
	return createTestConfig(t, map[string]string{"e1": "KW", "e8": "KB", "a2": "PW", "h7": "PB"})
}

func TestValidateGameConfig(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*GameConfig)
		wantErr string
	}{
		{"valid", func(*GameConfig) {}, ""},
		{"missing name", func(c *GameConfig) { c.Name = "" }, "name is required"},
		{"too many rows", func(c *GameConfig) { c.Rows = 9 }, "rows must be between"},
		{"zero cols", func(c *GameConfig) { c.Cols = 0 }, "cols must be between"},
		{"bad cell size", func(c *GameConfig) { c.CellWidthPx = -1 }, "cell size must be positive"},
		{"bad tick", func(c *GameConfig) { c.TickIntervalMs = 0 }, "tick_interval_ms"},
		{"zero speed", func(c *GameConfig) { c.Physics.SpeedMetersPerSec = 0 }, "speed_m_per_sec"},
		{"negative rest", func(c *GameConfig) { c.Physics.LongRestMs = -5 }, "must not be negative"},
		{"short layout", func(c *GameConfig) { c.Layout = c.Layout[:7] }, "layout must have 8 rows"},
		{"narrow row", func(c *GameConfig) { c.Layout[3] = ",,," }, "row 4 must have 8 fields"},
		{"bad code", func(c *GameConfig) { c.Layout[3] = "XW,,,,,,," }, "unknown piece letter"},
		{"bad side", func(c *GameConfig) { c.Layout[3] = "QR,,,,,,," }, "unknown side letter"},
		{"long code", func(c *GameConfig) { c.Layout[3] = "QWW,,,,,,," }, "must be 2 characters"},
		{"no rules", func(c *GameConfig) { c.Layout[3] = "QW,,,,,,," }, "no move rules for piece QW"},
		{"missing king", func(c *GameConfig) { c.Layout[0] = ",,,,,,," }, "Black king"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := createValidConfig(t)
			tt.modify(cfg)
			err := ValidateGameConfig(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected valid config, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &GameConfig{Name: "defaults", Rows: 8, Cols: 8}
	cfg.ApplyDefaults()

	if cfg.CellWidthPx != DefaultCellSizePx || cfg.CellHeightPx != DefaultCellSizePx {
		t.Errorf("Expected %dpx cells, got %dx%d", DefaultCellSizePx, cfg.CellWidthPx, cfg.CellHeightPx)
	}
	if cfg.TickIntervalMs != DefaultTickIntervalMs {
		t.Errorf("Expected tick %d, got %d", DefaultTickIntervalMs, cfg.TickIntervalMs)
	}

	timing := cfg.Timing()
	if timing != DefaultTiming() {
		t.Errorf("Expected default timing, got %+v", timing)
	}

	board := cfg.Board()
	if board.Rows != 8 || board.CellWidth != DefaultCellSizePx {
		t.Errorf("Unexpected board %+v", board)
	}
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := &GameConfig{TickIntervalMs: 5, Physics: PhysicsConfig{SpeedMetersPerSec: 2, JumpMs: 250}}
	cfg.ApplyDefaults()

	if cfg.TickIntervalMs != 5 || cfg.Physics.JumpMs != 250 {
		t.Errorf("Explicit values were overwritten: %+v", cfg)
	}
	if cfg.Timing().SpeedPxPerSec != 200 {
		t.Errorf("Expected 200px/s, got %v", cfg.Timing().SpeedPxPerSec)
	}
}
