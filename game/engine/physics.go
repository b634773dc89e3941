package engine

import (
	"fmt"
	"math"
)

// PhysicsKind enumerates the fixed set of physics variants
type PhysicsKind int

const (
	PhysicsIdle PhysicsKind = iota
	PhysicsMove
	PhysicsJump
	PhysicsShortRest
	PhysicsLongRest
)

// String returns the state name a kind is registered under
func (k PhysicsKind) String() string {
	switch k {
	case PhysicsIdle:
		return string(StateIdle)
	case PhysicsMove:
		return string(StateMove)
	case PhysicsJump:
		return string(StateJump)
	case PhysicsShortRest:
		return string(StateShortRest)
	case PhysicsLongRest:
		return string(StateLongRest)
	}
	return fmt.Sprintf("physics(%d)", int(k))
}

// Timing holds the durations shared by every physics instance of a game
type Timing struct {
	SpeedPxPerSec float64
	MoveDelayMs   int64
	JumpMs        int64
	ShortRestMs   int64
	LongRestMs    int64
}

// DefaultTiming returns the stock durations
func DefaultTiming() Timing {
	return Timing{
		SpeedPxPerSec: DefaultSpeedMetersPerSec * pixelsPerMeter,
		MoveDelayMs:   DefaultMoveDelayMs,
		JumpMs:        DefaultJumpMs,
		ShortRestMs:   DefaultShortRestMs,
		LongRestMs:    DefaultLongRestMs,
	}
}

// Physics is the timed motion or rest of a piece. Exactly one kind is active
// per state; behaviour switches on kind.
type Physics struct {
	kind   PhysicsKind
	board  Board
	timing Timing

	cmd    Command
	hasCmd bool

	startCell Cell
	endCell   Cell
	startPos  Position
	endPos    Position
	pos       Position

	// anchor is set on the first Update after Reset
	startTime int64
	anchored  bool

	motionMs int64
	totalMs  int64
	finished bool
}

// NewPhysics creates a physics variant resting at cell
func NewPhysics(kind PhysicsKind, cell Cell, board Board, timing Timing) *Physics {
	pos := board.CellToWorld(cell)
	return &Physics{
		kind:      kind,
		board:     board,
		timing:    timing,
		startCell: cell,
		endCell:   cell,
		startPos:  pos,
		endPos:    pos,
		pos:       pos,
		motionMs:  1,
		totalMs:   1,
	}
}

// Kind returns the variant tag
func (p *Physics) Kind() PhysicsKind { return p.kind }

// Reset loads a new command and clears the anchor
func (p *Physics) Reset(cmd Command) {
	p.cmd = cmd
	p.hasCmd = true
	p.finished = false
	p.anchored = false
	p.startTime = 0

	switch p.kind {
	case PhysicsMove:
		p.startCell = cmd.Origin()
		p.endCell = cmd.Destination()
		p.startPos = p.board.CellToWorld(p.startCell)
		p.endPos = p.board.CellToWorld(p.endCell)
		p.pos = p.startPos

		dist := math.Hypot(p.endPos.X-p.startPos.X, p.endPos.Y-p.startPos.Y)
		p.motionMs = 1
		if p.timing.SpeedPxPerSec > 0 {
			p.motionMs = atLeastOne(int64(dist / p.timing.SpeedPxPerSec * 1000))
		}
		p.totalMs = p.motionMs + p.timing.MoveDelayMs
	default:
		// jumps and rests hold the origin cell
		p.startCell = cmd.Origin()
		p.endCell = p.startCell
		p.startPos = p.board.CellToWorld(p.startCell)
		p.endPos = p.startPos
		p.pos = p.startPos
		switch p.kind {
		case PhysicsJump:
			p.totalMs = atLeastOne(p.timing.JumpMs)
		case PhysicsShortRest:
			p.totalMs = atLeastOne(p.timing.ShortRestMs)
		case PhysicsLongRest:
			p.totalMs = atLeastOne(p.timing.LongRestMs)
		}
	}
}

// Update advances the variant to now and returns a completion command when
// its duration has elapsed.
func (p *Physics) Update(now int64) (Command, bool) {
	if p.kind == PhysicsIdle {
		return Command{}, false
	}
	if p.finished {
		return p.completion(now), true
	}
	if !p.anchored {
		p.startTime = now
		p.anchored = true
	}

	elapsed := now - p.startTime

	if p.kind == PhysicsMove {
		switch {
		case elapsed < p.motionMs:
			t := float64(elapsed) / float64(p.motionMs)
			p.pos = Position{
				X: p.startPos.X + t*(p.endPos.X-p.startPos.X),
				Y: p.startPos.Y + t*(p.endPos.Y-p.startPos.Y),
			}
			return Command{}, false
		case elapsed < p.totalMs:
			p.pos = p.endPos
			return Command{}, false
		}
		p.pos = p.endPos
	} else if elapsed < p.totalMs {
		return Command{}, false
	}

	p.finished = true
	return p.completion(now), true
}

// completion is the command handed back to the state machine when done
func (p *Physics) completion(now int64) Command {
	if p.kind == PhysicsLongRest {
		return Command{
			Timestamp: now,
			PieceID:   p.cmd.PieceID,
			Type:      CommandIdle,
			Params:    [2]Cell{p.startCell, p.startCell},
		}
	}
	return p.cmd
}

// CanBeCaptured reports whether the piece is exposed in this variant
func (p *Physics) CanBeCaptured() bool {
	return p.kind != PhysicsJump
}

// CanCapture reports whether the piece may take another in this variant
func (p *Physics) CanCapture() bool {
	return p.kind == PhysicsIdle || p.kind == PhysicsMove
}

// Position returns the current world position
func (p *Physics) Position() Position { return p.pos }

// Cell returns the cell the current position floors to
func (p *Physics) Cell() Cell { return p.board.WorldToCell(p.pos) }

// Finished reports whether a timed variant has run its full duration
func (p *Physics) Finished() bool { return p.finished }

// AnchorTime returns the tick time the countdown started at, if it has
func (p *Physics) AnchorTime() (int64, bool) { return p.startTime, p.anchored }

// Elapsed returns milliseconds since the anchor, zero before it is set
func (p *Physics) Elapsed(now int64) int64 {
	if !p.anchored || now < p.startTime {
		return 0
	}
	return now - p.startTime
}

// Duration returns the total duration of the current command
func (p *Physics) Duration() int64 {
	if p.kind == PhysicsIdle {
		return 0
	}
	return p.totalMs
}

// Command returns the command the variant was last reset with
func (p *Physics) Command() (Command, bool) { return p.cmd, p.hasCmd }

func atLeastOne(ms int64) int64 {
	if ms < 1 {
		return 1
	}
	return ms
}
