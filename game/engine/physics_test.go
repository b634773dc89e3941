package engine

import "testing"

var testBoard = NewBoard(8, 8, 80, 80)

func moveCommand(t *testing.T, now int64, id, from, to string) Command {
	t.Helper()
	cmd, err := NewCommand(now, id, CommandMove, from, to)
	if err != nil {
		t.Fatalf("NewCommand failed: %v", err)
	}
	return cmd
}

func TestPhysicsIdleNeverCompletes(t *testing.T) {
	p := NewPhysics(PhysicsIdle, Cell{Row: 3, Col: 3}, testBoard, DefaultTiming())
	for _, now := range []int64{0, 1000, 1 << 40} {
		if _, done := p.Update(now); done {
			t.Fatalf("Idle completed at %d", now)
		}
	}
	if p.Finished() {
		t.Error("Idle should never be finished")
	}
	if !p.CanBeCaptured() || !p.CanCapture() {
		t.Error("Idle can capture and be captured")
	}
}

func TestPhysicsMove(t *testing.T) {
	p := NewPhysics(PhysicsMove, Cell{Row: 6, Col: 4}, testBoard, DefaultTiming())
	cmd := moveCommand(t, 0, "PW_5", "e2", "e4")
	p.Reset(cmd)

	// 160px at 100px/s plus the 300ms delay
	if p.Duration() != 1900 {
		t.Fatalf("Expected duration 1900, got %d", p.Duration())
	}
	if _, anchored := p.AnchorTime(); anchored {
		t.Fatal("Anchor should be unset before the first update")
	}

	if _, done := p.Update(100); done {
		t.Fatal("Move completed on its first update")
	}
	if start, _ := p.AnchorTime(); start != 100 {
		t.Errorf("Expected anchor 100, got %d", start)
	}

	p.Update(900)
	if pos := p.Position(); pos.X != 320 || pos.Y != 400 {
		t.Errorf("Expected halfway position (320,400), got %v", pos)
	}
	if p.Cell() != (Cell{Row: 5, Col: 4}) {
		t.Errorf("Expected e3 halfway, got %v", p.Cell())
	}

	// motion over, delay still running
	if _, done := p.Update(1800); done {
		t.Error("Move completed during its post-move delay")
	}
	if p.Cell() != (Cell{Row: 4, Col: 4}) {
		t.Errorf("Expected to hold e4 during delay, got %v", p.Cell())
	}

	got, done := p.Update(2000)
	if !done {
		t.Fatal("Move should complete after its full duration")
	}
	if got != cmd {
		t.Errorf("Move should echo its command, got %+v", got)
	}
	if !p.Finished() {
		t.Error("Move should be finished")
	}
}

func TestPhysicsMoveZeroDistanceFloorsDuration(t *testing.T) {
	timing := DefaultTiming()
	timing.MoveDelayMs = 0
	p := NewPhysics(PhysicsMove, Cell{Row: 4, Col: 4}, testBoard, timing)
	p.Reset(moveCommand(t, 0, "QW_1", "e4", "e4"))

	if p.Duration() != 1 {
		t.Errorf("Expected 1ms floor, got %d", p.Duration())
	}
	p.Update(0)
	if _, done := p.Update(1); !done {
		t.Error("Expected completion after 1ms")
	}
}

func TestPhysicsTimedKinds(t *testing.T) {
	tests := []struct {
		kind       PhysicsKind
		duration   int64
		capturable bool
		canCapture bool
	}{
		{PhysicsJump, DefaultJumpMs, false, false},
		{PhysicsShortRest, DefaultShortRestMs, true, false},
		{PhysicsLongRest, DefaultLongRestMs, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			p := NewPhysics(tt.kind, Cell{Row: 0, Col: 0}, testBoard, DefaultTiming())
			cmd := Command{Timestamp: 5, PieceID: "NB_1", Type: CommandType(tt.kind.String()),
				Params: [2]Cell{{Row: 2, Col: 2}, {Row: 2, Col: 2}}}
			p.Reset(cmd)

			if p.Cell() != (Cell{Row: 2, Col: 2}) {
				t.Errorf("Expected to rest on the command origin, got %v", p.Cell())
			}
			if p.Duration() != tt.duration {
				t.Errorf("Expected duration %d, got %d", tt.duration, p.Duration())
			}

			p.Update(1000)
			if _, done := p.Update(1000 + tt.duration - 1); done {
				t.Error("Completed early")
			}
			got, done := p.Update(1000 + tt.duration)
			if !done {
				t.Fatal("Expected completion")
			}
			if !p.Finished() {
				t.Error("Expected finished flag")
			}

			if tt.kind == PhysicsLongRest {
				if got.Type != CommandIdle || got.Origin() != (Cell{Row: 2, Col: 2}) || got.PieceID != "NB_1" {
					t.Errorf("Long rest should hand back an idle command, got %+v", got)
				}
			} else if got != cmd {
				t.Errorf("Expected echoed command, got %+v", got)
			}

			if p.CanBeCaptured() != tt.capturable || p.CanCapture() != tt.canCapture {
				t.Errorf("Unexpected capabilities: capturable=%v canCapture=%v", p.CanBeCaptured(), p.CanCapture())
			}
		})
	}
}

func TestPhysicsResetClearsAnchor(t *testing.T) {
	p := NewPhysics(PhysicsJump, Cell{Row: 1, Col: 1}, testBoard, DefaultTiming())
	cmd := Command{Type: CommandJump, Params: [2]Cell{{Row: 1, Col: 1}, {Row: 1, Col: 1}}}
	p.Reset(cmd)
	p.Update(0)
	p.Update(DefaultJumpMs)
	if !p.Finished() {
		t.Fatal("Expected jump to finish")
	}

	p.Reset(cmd)
	if p.Finished() {
		t.Error("Reset should clear finished")
	}
	if _, anchored := p.AnchorTime(); anchored {
		t.Error("Reset should clear the anchor")
	}
	if p.Elapsed(5000) != 0 {
		t.Error("Elapsed should be zero before anchoring")
	}
}
