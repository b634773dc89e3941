package engine

// PieceView is the read-only picture of one piece at the end of a tick
type PieceView struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	Side       Side        `json:"side"`
	Cell       Cell        `json:"cell"`
	Position   Position    `json:"position"`
	State      StateName   `json:"state"`
	Command    CommandType `json:"command,omitempty"`
	HasMoved   bool        `json:"has_moved"`
	Capturable bool        `json:"capturable"`
	ElapsedMs  int64       `json:"elapsed_ms"`
	DurationMs int64       `json:"duration_ms"`
}

// Snapshot is an immutable copy of the game published after every tick
type Snapshot struct {
	Tick     uint64      `json:"tick"`
	Time     int64       `json:"time_ms"`
	Rows     int         `json:"rows"`
	Cols     int         `json:"cols"`
	Pieces   []PieceView `json:"pieces"`
	Pending  int         `json:"pending_commands"`
	Started  bool        `json:"started"`
	GameOver bool        `json:"game_over"`
	Winner   Side        `json:"winner,omitempty"`

	cells map[Cell]int
}

func newSnapshot(tick uint64, now int64, board Board, pieces []*Piece) *Snapshot {
	s := &Snapshot{
		Tick:   tick,
		Time:   now,
		Rows:   board.Rows,
		Cols:   board.Cols,
		Pieces: make([]PieceView, 0, len(pieces)),
		cells:  make(map[Cell]int, len(pieces)),
	}
	for _, p := range pieces {
		phys := p.State().Physics()
		view := PieceView{
			ID:         p.ID(),
			Type:       p.Type(),
			Side:       p.Side(),
			Cell:       p.Cell(),
			Position:   p.Position(),
			State:      p.State().Name(),
			HasMoved:   p.HasMoved(),
			Capturable: phys.CanBeCaptured(),
			ElapsedMs:  phys.Elapsed(now),
			DurationMs: phys.Duration(),
		}
		if cmd := p.Command(); cmd != nil {
			view.Command = cmd.Type
		}
		s.cells[view.Cell] = len(s.Pieces)
		s.Pieces = append(s.Pieces, view)
	}
	return s
}

// PieceAt returns the view of the piece holding c
func (s *Snapshot) PieceAt(c Cell) (PieceView, bool) {
	if s.cells == nil {
		// Decoded from JSON
		for _, p := range s.Pieces {
			if p.Cell == c {
				return p, true
			}
		}
		return PieceView{}, false
	}
	i, ok := s.cells[c]
	if !ok {
		return PieceView{}, false
	}
	return s.Pieces[i], true
}

// PieceByID finds a piece by id
func (s *Snapshot) PieceByID(id string) (PieceView, bool) {
	for _, p := range s.Pieces {
		if p.ID == id {
			return p, true
		}
	}
	return PieceView{}, false
}

// SideAt implements Occupancy
func (s *Snapshot) SideAt(c Cell) (Side, bool) {
	p, ok := s.PieceAt(c)
	if !ok {
		return "", false
	}
	return p.Side, true
}

// Count returns the number of surviving pieces per side
func (s *Snapshot) Count(side Side) int {
	n := 0
	for _, p := range s.Pieces {
		if p.Side == side {
			n++
		}
	}
	return n
}
