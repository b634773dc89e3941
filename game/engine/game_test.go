package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// recordingSink keeps every published event
type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Publish(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) ofType(t EventType) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, ev := range s.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// layoutFrom builds an 8x8 layout from algebraic placements
func layoutFrom(t *testing.T, placements map[string]string) []string {
	t.Helper()
	grid := make([][]string, 8)
	for i := range grid {
		grid[i] = make([]string, 8)
	}
	for at, code := range placements {
		c, err := AlgebraicToCell(at)
		if err != nil {
			t.Fatalf("bad placement %q: %v", at, err)
		}
		grid[c.Row][c.Col] = code
	}
	rows := make([]string, 8)
	for i, row := range grid {
		rows[i] = strings.Join(row, ",")
	}
	return rows
}

func createTestConfig(t *testing.T, placements map[string]string) *GameConfig {
	t.Helper()
	king := []Offset{{DR: 1}, {DR: -1}, {DC: 1}, {DC: -1}}
	cfg := &GameConfig{
		Name:        "engine-test",
		Description: "Configuration for engine tests",
		Rows:        8,
		Cols:        8,
		Layout:      layoutFrom(t, placements),
		Moves: map[string][]Offset{
			"KW": king,
			"KB": king,
			"RW": straightOffsets(),
			"RB": straightOffsets(),
			"PW": {{DR: -1}, {DR: -2}},
			"PB": {{DR: 1}, {DR: 2}},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func newTestGame(t *testing.T, placements map[string]string) (*Game, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	g, err := NewGame(createTestConfig(t, placements), WithSink(sink), WithClock(&ManualClock{}), WithQuietRejections())
	if err != nil {
		t.Fatalf("NewGame failed: %v", err)
	}
	return g, sink
}

func enqueueMove(t *testing.T, g *Game, id, from, to string, now int64) {
	t.Helper()
	if err := g.Enqueue(moveCommand(t, now, id, from, to)); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
}

// runUntil ticks every 10ms from start up to and including end
func runUntil(g *Game, start, end int64) {
	for now := start; now <= end; now += 10 {
		g.Tick(now)
	}
}

func TestNewGameSnapshot(t *testing.T) {
	g, _ := newTestGame(t, map[string]string{"e1": "KW", "e8": "KB", "e2": "PW"})

	snap := g.Snapshot()
	if snap == nil || len(snap.Pieces) != 3 {
		t.Fatalf("Expected 3 pieces in the initial snapshot, got %+v", snap)
	}
	if snap.Started || snap.GameOver {
		t.Error("Game should not be started or over before the first tick")
	}
	view, ok := snap.PieceAt(Cell{Row: 6, Col: 4})
	if !ok || view.ID != "PW_1" || view.State != StateIdle || view.HasMoved {
		t.Errorf("Unexpected pawn view %+v", view)
	}
	if snap.Count(White) != 2 || snap.Count(Black) != 1 {
		t.Errorf("Unexpected side counts %d/%d", snap.Count(White), snap.Count(Black))
	}
}

func TestNewGameRejectsInvalidConfig(t *testing.T) {
	cfg := createTestConfig(t, map[string]string{"e1": "KW"})
	if _, err := NewGame(cfg); err == nil {
		t.Error("Expected error for a layout missing the black king")
	}
}

func TestGameMoveLifecycle(t *testing.T) {
	g, sink := newTestGame(t, map[string]string{"e1": "KW", "e8": "KB", "e2": "PW"})

	g.Tick(0)
	if len(sink.ofType(EventGameStart)) != 1 {
		t.Fatal("Expected game_start on the first tick")
	}

	enqueueMove(t, g, "PW_1", "e2", "e4", 5)
	res := g.Tick(10)
	if res.Accepted != 1 || res.Rejected != 0 {
		t.Fatalf("Expected the move accepted, got %+v", res)
	}
	moved := sink.ofType(EventPieceMoved)
	if len(moved) != 1 || moved[0].PieceID != "PW_1" || moved[0].To.String() != "e4" {
		t.Fatalf("Expected one piece_moved to e4, got %+v", moved)
	}

	view, _ := g.Snapshot().PieceByID("PW_1")
	if view.State != StateMove || !view.HasMoved || view.Command != CommandMove {
		t.Errorf("Expected pawn moving, got %+v", view)
	}

	// physics anchors on the tick after acceptance (20); 1900ms later it rests
	runUntil(g, 20, 1920)
	view, _ = g.Snapshot().PieceByID("PW_1")
	if view.State != StateLongRest || view.Cell.String() != "e4" {
		t.Fatalf("Expected long rest on e4, got %+v", view)
	}

	runUntil(g, 1930, 3430)
	view, _ = g.Snapshot().PieceByID("PW_1")
	if view.State != StateIdle || !view.HasMoved {
		t.Errorf("Expected idle after long rest, got %+v", view)
	}

	if len(g.Snapshot().Pieces) != 3 {
		t.Error("No piece should have been captured")
	}
}

func TestGameRejectsIllegalCommands(t *testing.T) {
	g, sink := newTestGame(t, map[string]string{"e1": "KW", "e8": "KB", "a1": "RW", "a2": "PW"})
	g.Tick(0)

	enqueueMove(t, g, "RW_1", "a1", "a5", 1)
	enqueueMove(t, g, "RW_1", "c3", "c4", 1)
	res := g.Tick(10)

	if res.Rejected != 2 || res.Accepted != 0 {
		t.Fatalf("Expected 2 rejections, got %+v", res)
	}
	rejected := sink.ofType(EventCommandRejected)
	if len(rejected) != 2 || !strings.Contains(rejected[0].Reason, ErrPathBlocked.Error()) {
		t.Errorf("Unexpected rejection events %+v", rejected)
	}

	view, _ := g.Snapshot().PieceByID("RW_1")
	if view.State != StateIdle || view.HasMoved {
		t.Errorf("Rejected command must not change the rook, got %+v", view)
	}
	if len(sink.ofType(EventPieceMoved)) != 0 {
		t.Error("No piece_moved expected for rejected commands")
	}
}

func TestGameFIFOOrder(t *testing.T) {
	g, sink := newTestGame(t, map[string]string{"e1": "KW", "e8": "KB", "a2": "PW"})
	g.Tick(0)

	// once the single step is accepted the pawn has moved and loses its double step
	enqueueMove(t, g, "PW_1", "a2", "a3", 1)
	enqueueMove(t, g, "PW_1", "a2", "a4", 2)
	res := g.Tick(10)
	if res.Accepted != 1 || res.Rejected != 1 {
		t.Fatalf("Expected one accept and one reject, got %+v", res)
	}
	rejected := sink.ofType(EventCommandRejected)
	if len(rejected) != 1 || rejected[0].To.String() != "a4" {
		t.Errorf("Expected the double step rejected, got %+v", rejected)
	}
}

func TestGameCaptureByCollision(t *testing.T) {
	g, sink := newTestGame(t, map[string]string{"e1": "KW", "e8": "KB", "a1": "RW", "a8": "RB"})
	g.Tick(0)

	enqueueMove(t, g, "RW_1", "a1", "a8", 1)
	g.Tick(10)

	// 560px at 100px/s; by 6000ms the rook has floored onto a8
	runUntil(g, 20, 6000)

	captured := sink.ofType(EventPieceCaptured)
	if len(captured) != 1 || captured[0].PieceID != "RB_1" || captured[0].By != "RW_1" {
		t.Fatalf("Expected RB_1 captured by RW_1, got %+v", captured)
	}
	if _, ok := g.Snapshot().PieceByID("RB_1"); ok {
		t.Error("Captured piece must be removed permanently")
	}
	if len(g.Snapshot().Pieces) != 3 {
		t.Errorf("Expected 3 pieces left, got %d", len(g.Snapshot().Pieces))
	}
	if g.GameOver() {
		t.Error("Both kings survive; game should go on")
	}
}

func TestGameEndsWhenKingFalls(t *testing.T) {
	g, sink := newTestGame(t, map[string]string{"e1": "KW", "e8": "KB", "a8": "RW"})
	g.Tick(0)

	enqueueMove(t, g, "RW_1", "a8", "e8", 1)
	g.Tick(10)
	runUntil(g, 20, 5000)

	if !g.GameOver() || g.Winner() != White {
		t.Fatalf("Expected white win, got over=%v winner=%q", g.GameOver(), g.Winner())
	}
	ends := sink.ofType(EventGameEnd)
	if len(ends) != 1 || ends[0].Winner != White {
		t.Fatalf("Expected a single game_end for white, got %+v", ends)
	}

	if err := g.Enqueue(moveCommand(t, 5000, "KW_1", "e1", "e2")); !errors.Is(err, ErrGameOver) {
		t.Errorf("Expected ErrGameOver, got %v", err)
	}
	g.Tick(5010)
	if len(sink.ofType(EventGameEnd)) != 1 {
		t.Error("game_end must be published once")
	}
}

func TestGameLegalMoves(t *testing.T) {
	g, _ := newTestGame(t, map[string]string{"e1": "KW", "e8": "KB", "e2": "PW", "a1": "RW", "a3": "PW"})

	moves, err := g.LegalMoves(Cell{Row: 6, Col: 4})
	if err != nil {
		t.Fatalf("LegalMoves failed: %v", err)
	}
	if len(moves) != 2 || moves[0].String() != "e4" || moves[1].String() != "e3" {
		t.Errorf("Expected [e4 e3], got %v", moves)
	}

	// the rook is walled in on the file by its own pawn
	moves, err = g.LegalMoves(Cell{Row: 7, Col: 0})
	if err != nil {
		t.Fatalf("LegalMoves failed: %v", err)
	}
	for _, m := range moves {
		if m.Col == 0 && m.Row < 6 {
			t.Errorf("Rook should not pass its own pawn, got %v", m)
		}
		if m.String() == "e1" {
			t.Error("Rook should not land on its own king")
		}
	}
	if !ContainsCell(moves, Cell{Row: 6, Col: 0}) || !ContainsCell(moves, Cell{Row: 7, Col: 3}) {
		t.Errorf("Expected a2 and d1 among %v", moves)
	}

	if _, err := g.LegalMoves(Cell{Row: 4, Col: 4}); !errors.Is(err, ErrOriginEmpty) {
		t.Errorf("Expected ErrOriginEmpty, got %v", err)
	}
}

func TestGameTickHook(t *testing.T) {
	var ticks []uint64
	cfg := createTestConfig(t, map[string]string{"e1": "KW", "e8": "KB"})
	g, err := NewGame(cfg, WithTickHook(func(res TickResult) { ticks = append(ticks, res.Tick) }))
	if err != nil {
		t.Fatalf("NewGame failed: %v", err)
	}
	g.Tick(0)
	g.Tick(16)
	if len(ticks) != 2 || ticks[1] != 2 {
		t.Errorf("Expected hook per tick, got %v", ticks)
	}
}

func TestGameRunStopsOnCancel(t *testing.T) {
	cfg := createTestConfig(t, map[string]string{"e1": "KW", "e8": "KB"})
	g, err := NewGame(cfg)
	if err != nil {
		t.Fatalf("NewGame failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- g.Run(ctx, time.Millisecond) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	if g.Snapshot().Tick == 0 {
		t.Error("Expected at least one tick")
	}
}
