package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Engine is what outer layers need from a running game
type Engine interface {
	Tick(now int64) TickResult
	Run(ctx context.Context, interval time.Duration) error
	Enqueue(cmd Command) error
	Snapshot() *Snapshot
	LegalMoves(from Cell) ([]Cell, error)
	Now() int64
	Config() *GameConfig
}

// TickResult summarises what one tick did
type TickResult struct {
	Tick     uint64
	Now      int64
	Captured []string
	Accepted int
	Rejected int
	GameOver bool
	Winner   Side
	Snapshot *Snapshot
}

// Game owns the pieces and runs the authoritative tick loop
type Game struct {
	config     *GameConfig
	board      Board
	rules      map[string]*MoveRules
	pieces     []*Piece
	index      *PositionIndex
	dispatcher *Dispatcher
	queue      *CommandQueue
	clock      Clock
	ids        *IDAllocator
	sink       EventSink
	onTick     func(TickResult)

	// mu serialises ticks; readers use the published snapshot instead
	mu       sync.Mutex
	tick     uint64
	started  bool
	over     atomic.Bool
	winner   Side
	snapshot atomic.Pointer[Snapshot]
}

// Option customises a Game
type Option func(*Game)

// WithSink routes every event to sink
func WithSink(sink EventSink) Option {
	return func(g *Game) { g.sink = sink }
}

// WithClock replaces the monotonic clock
func WithClock(clock Clock) Option {
	return func(g *Game) { g.clock = clock }
}

// WithTickHook calls fn after every tick, still on the tick goroutine
func WithTickHook(fn func(TickResult)) Option {
	return func(g *Game) { g.onTick = fn }
}

// WithIDAllocator shares a sequence allocator across games
func WithIDAllocator(ids *IDAllocator) Option {
	return func(g *Game) { g.ids = ids }
}

// WithQuietRejections stops the dispatcher from logging rejected commands
func WithQuietRejections() Option {
	return func(g *Game) { g.dispatcher.quiet = true }
}

type discardSink struct{}

func (discardSink) Publish(Event) {}

// NewGame validates config, builds the rule tables and places the layout
func NewGame(config *GameConfig, opts ...Option) (*Game, error) {
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}

	board := config.Board()
	rules := make(map[string]*MoveRules, len(config.Moves))
	for code, offsets := range config.Moves {
		rules[code] = NewMoveRules(code, offsets, board.Rows, board.Cols)
	}

	g := &Game{
		config:     config,
		board:      board,
		rules:      rules,
		index:      NewPositionIndex(board),
		dispatcher: NewDispatcher(board),
		queue:      NewCommandQueue(),
		sink:       discardSink{},
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.clock == nil {
		g.clock = NewClock()
	}
	if g.sink == nil {
		g.sink = discardSink{}
	}

	factory := NewPieceFactory(board, config.Timing(), rules, g.ids)
	pieces, err := factory.PlacePieces(config.Layout)
	if err != nil {
		return nil, fmt.Errorf("placing pieces: %w", err)
	}
	g.pieces = pieces
	g.index.Rebuild(g.pieces)
	g.publishSnapshot(0)
	return g, nil
}

// Config returns the configuration the game was built from
func (g *Game) Config() *GameConfig { return g.config }

// Board returns the board geometry
func (g *Game) Board() Board { return g.board }

// Now reads the game clock
func (g *Game) Now() int64 { return g.clock.Now() }

// Snapshot returns the state published by the last tick
func (g *Game) Snapshot() *Snapshot { return g.snapshot.Load() }

// GameOver reports whether at most one king is left
func (g *Game) GameOver() bool { return g.over.Load() }

// Winner returns the side of the surviving king, empty for a draw or a
// running game
func (g *Game) Winner() Side {
	if s := g.Snapshot(); s != nil {
		return s.Winner
	}
	return ""
}

// Enqueue queues cmd for the next tick
func (g *Game) Enqueue(cmd Command) error {
	if g.GameOver() {
		return ErrGameOver
	}
	g.queue.Push(cmd)
	return nil
}

// Tick runs one ordered pass: advance pieces, reconcile cells, drain commands
func (g *Game) Tick(now int64) TickResult {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.tick++
	res := TickResult{Tick: g.tick, Now: now}

	if !g.started {
		g.started = true
		g.sink.Publish(Event{Type: EventGameStart, Timestamp: now})
	}

	if g.over.Load() {
		for _, cmd := range g.queue.Drain() {
			g.reject(cmd, now, ErrGameOver)
			res.Rejected++
		}
		res.GameOver, res.Winner = true, g.winner
		res.Snapshot = g.publishSnapshot(now)
		g.afterTick(res)
		return res
	}

	for _, p := range g.pieces {
		if follow, ok := p.Update(now); ok {
			p.OnCommand(follow, now)
		}
	}

	res.Captured = g.reconcile(now)

	if g.checkGameEnd(now) {
		for _, cmd := range g.queue.Drain() {
			g.reject(cmd, now, ErrGameOver)
			res.Rejected++
		}
	} else {
		for _, cmd := range g.queue.Drain() {
			if g.dispatch(cmd, now) {
				res.Accepted++
			} else {
				res.Rejected++
			}
		}
	}

	res.GameOver, res.Winner = g.over.Load(), g.winner
	res.Snapshot = g.publishSnapshot(now)
	g.afterTick(res)
	return res
}

// reconcile rebuilds the index and drops the pieces that lost a cell
func (g *Game) reconcile(now int64) []string {
	eliminated := g.index.Rebuild(g.pieces)
	if len(eliminated) == 0 {
		return nil
	}

	gone := make(map[*Piece]bool, len(eliminated))
	captured := make([]string, 0, len(eliminated))
	for _, p := range eliminated {
		gone[p] = true
		captured = append(captured, p.ID())

		cell := p.Cell()
		ev := Event{
			Type:      EventPieceCaptured,
			Timestamp: now,
			PieceID:   p.ID(),
			PieceType: p.Type(),
			Side:      p.Side(),
			From:      &cell,
		}
		if winner, ok := g.index.PieceAt(cell); ok {
			ev.By = winner.ID()
		}
		g.sink.Publish(ev)
	}

	survivors := g.pieces[:0]
	for _, p := range g.pieces {
		if !gone[p] {
			survivors = append(survivors, p)
		}
	}
	clear(g.pieces[len(survivors):])
	g.pieces = survivors
	return captured
}

// checkGameEnd flags the game over once at most one king survives
func (g *Game) checkGameEnd(now int64) bool {
	var kings []*Piece
	for _, p := range g.pieces {
		if p.IsKing() {
			kings = append(kings, p)
		}
	}
	if len(kings) > 1 {
		return false
	}

	if len(kings) == 1 {
		g.winner = kings[0].Side()
	}
	g.over.Store(true)
	g.sink.Publish(Event{Type: EventGameEnd, Timestamp: now, Winner: g.winner})
	if g.winner == "" {
		log.Printf("Game %s ended in a draw", g.config.Name)
	} else {
		log.Printf("Game %s won by %s", g.config.Name, g.winner)
	}
	return true
}

func (g *Game) dispatch(cmd Command, now int64) bool {
	var before *PieceState
	if p, ok := g.index.PieceAt(cmd.Origin()); ok {
		before = p.State()
	}

	piece, err := g.dispatcher.Accept(cmd, now, g.index)
	if err != nil {
		g.reject(cmd, now, err)
		return false
	}

	if piece.State() != before {
		from, to := cmd.Origin(), cmd.Destination()
		g.sink.Publish(Event{
			Type:      EventPieceMoved,
			Timestamp: now,
			PieceID:   piece.ID(),
			PieceType: piece.Type(),
			Side:      piece.Side(),
			Command:   cmd.Type,
			From:      &from,
			To:        &to,
		})
	}
	return true
}

func (g *Game) reject(cmd Command, now int64, err error) {
	from, to := cmd.Origin(), cmd.Destination()
	g.sink.Publish(Event{
		Type:      EventCommandRejected,
		Timestamp: now,
		PieceID:   cmd.PieceID,
		Command:   cmd.Type,
		From:      &from,
		To:        &to,
		Reason:    err.Error(),
	})
}

func (g *Game) publishSnapshot(now int64) *Snapshot {
	s := newSnapshot(g.tick, now, g.board, g.pieces)
	s.Pending = g.queue.Len()
	s.Started = g.started
	s.GameOver = g.over.Load()
	s.Winner = g.winner
	g.snapshot.Store(s)
	return s
}

func (g *Game) afterTick(res TickResult) {
	if g.onTick != nil {
		g.onTick(res)
	}
}

// Run ticks on interval until ctx is done or the game ends
func (g *Game) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Duration(g.config.TickIntervalMs) * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if res := g.Tick(g.clock.Now()); res.GameOver {
				return nil
			}
		}
	}
}

// LegalMoves previews the destinations a move from "from" would be accepted
// for, computed from the last published snapshot
func (g *Game) LegalMoves(from Cell) ([]Cell, error) {
	if !g.board.InBounds(from) {
		return nil, errOutOfBounds(from)
	}
	snap := g.Snapshot()
	view, ok := snap.PieceAt(from)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOriginEmpty, from)
	}
	rules, ok := g.rules[view.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPieceType, view.Type)
	}

	var out []Cell
	for _, dst := range rules.LegalDestinations(from, view.HasMoved, snap) {
		if side, ok := snap.SideAt(dst); ok && side == view.Side {
			continue
		}
		if !isPathClear(from, dst, snap) {
			continue
		}
		out = append(out, dst)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return out[i].Col < out[j].Col
	})
	return out, nil
}

// IsRejection reports whether err is one of the dispatcher rejections
func IsRejection(err error) bool {
	return errors.Is(err, ErrOriginEmpty) ||
		errors.Is(err, ErrIllegalDestination) ||
		errors.Is(err, ErrFriendlyDestination) ||
		errors.Is(err, ErrPathBlocked) ||
		errors.Is(err, ErrUnsupportedCommand) ||
		errors.Is(err, ErrOutOfBounds)
}
