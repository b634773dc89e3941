package engine

// Piece is one unit on the board: identity, active state and move history flag
type Piece struct {
	id        string
	pieceType string
	side      Side
	seq       uint64

	states   stateArena
	state    *PieceState
	hasMoved bool
}

// ID returns the type-derived identifier, e.g. "PW_3"
func (p *Piece) ID() string { return p.id }

// Type returns the piece type code, e.g. "PW"
func (p *Piece) Type() string { return p.pieceType }

// Side returns the owning side
func (p *Piece) Side() Side { return p.side }

// Seq returns the process-unique creation sequence number
func (p *Piece) Seq() uint64 { return p.seq }

// HasMoved reports whether a move command was ever delivered
func (p *Piece) HasMoved() bool { return p.hasMoved }

// State returns the active state
func (p *Piece) State() *PieceState { return p.state }

// IsKing reports whether losing this piece can end the game
func (p *Piece) IsKing() bool {
	return len(p.pieceType) > 0 && (p.pieceType[0] == 'K' || p.pieceType[0] == 'k')
}

// Position returns the continuous world position
func (p *Piece) Position() Position { return p.state.physics.Position() }

// Cell returns the cell the piece currently occupies
func (p *Piece) Cell() Cell { return p.state.physics.Cell() }

// Command returns the active state's current command, nil before the first one
func (p *Piece) Command() *Command { return p.state.current }

// LegalDestinations evaluates the piece's rule table from its current cell
func (p *Piece) LegalDestinations(occ Occupancy) []Cell {
	return p.state.rules.LegalDestinations(p.Cell(), p.hasMoved, occ)
}

// OnCommand hands cmd to the active state. It reports whether the state changed.
func (p *Piece) OnCommand(cmd Command, now int64) bool {
	prev := p.state
	p.state = p.state.ProcessCommand(cmd, now, p.states)
	if cmd.Type == CommandMove {
		p.hasMoved = true
	}
	return p.state != prev
}

// Update advances the active state. When the resulting state's physics has run
// out, it returns the follow-up command the caller must feed to OnCommand.
func (p *Piece) Update(now int64) (Command, bool) {
	p.state = p.state.Update(now, p.states)
	if !p.state.physics.Finished() {
		return Command{}, false
	}
	event, ok := p.state.graph.FirstEvent(p.state.name)
	if !ok {
		return Command{}, false
	}
	cell := p.Cell()
	return Command{
		Timestamp: now,
		PieceID:   p.id,
		Type:      event,
		Params:    [2]Cell{cell, cell},
	}, true
}

// isActive reports whether the piece is carrying out a non-resting command
func (p *Piece) isActive() bool {
	cmd := p.Command()
	return cmd != nil && !cmd.Type.IsResting()
}

// displaceable reports whether a newcomer always wins against this resident
func (p *Piece) displaceable() bool {
	cmd := p.Command()
	return cmd == nil || cmd.Type.IsResting()
}

// anchor returns the physics anchor; an unanchored timer counts as the latest start
func (p *Piece) anchor() int64 {
	t, ok := p.state.physics.AnchorTime()
	if !ok {
		return maxInt64
	}
	return t
}

const maxInt64 = int64(^uint64(0) >> 1)
