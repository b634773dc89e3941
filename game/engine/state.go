package engine

// StateName identifies a node in the per-type transition graph
type StateName string

const (
	StateIdle      StateName = "idle"
	StateMove      StateName = "move"
	StateJump      StateName = "jump"
	StateShortRest StateName = "short_rest"
	StateLongRest  StateName = "long_rest"
)

// transition is one registered event -> target edge
type transition struct {
	event  CommandType
	target StateName
}

// StateGraph is the read-only transition table shared by all pieces of a type.
// Edges keep their registration order.
type StateGraph struct {
	initial StateName
	kinds   map[StateName]PhysicsKind
	edges   map[StateName][]transition
}

// DefaultStateGraph returns the standard idle/move/jump/rest wiring
func DefaultStateGraph() *StateGraph {
	g := &StateGraph{
		initial: StateIdle,
		kinds: map[StateName]PhysicsKind{
			StateIdle:      PhysicsIdle,
			StateMove:      PhysicsMove,
			StateJump:      PhysicsJump,
			StateShortRest: PhysicsShortRest,
			StateLongRest:  PhysicsLongRest,
		},
		edges: make(map[StateName][]transition),
	}
	g.add(StateIdle, CommandMove, StateMove)
	g.add(StateIdle, CommandJump, StateJump)
	g.add(StateMove, CommandLongRest, StateLongRest)
	g.add(StateJump, CommandShortRest, StateShortRest)
	g.add(StateLongRest, CommandIdle, StateIdle)
	g.add(StateShortRest, CommandIdle, StateIdle)
	return g
}

func (g *StateGraph) add(from StateName, event CommandType, to StateName) {
	g.edges[from] = append(g.edges[from], transition{event: event, target: to})
}

// Initial returns the entry state
func (g *StateGraph) Initial() StateName { return g.initial }

// Target looks up the state reached from "from" on event
func (g *StateGraph) Target(from StateName, event CommandType) (StateName, bool) {
	for _, t := range g.edges[from] {
		if t.event == event {
			return t.target, true
		}
	}
	return "", false
}

// FirstEvent returns the event of the first transition registered on a state
func (g *StateGraph) FirstEvent(from StateName) (CommandType, bool) {
	edges := g.edges[from]
	if len(edges) == 0 {
		return "", false
	}
	return edges[0].event, true
}

// Events lists the events a state reacts to, in registration order
func (g *StateGraph) Events(from StateName) []CommandType {
	out := make([]CommandType, 0, len(g.edges[from]))
	for _, t := range g.edges[from] {
		out = append(out, t.event)
	}
	return out
}

// PieceState couples one physics instance with the shared rules and graph
type PieceState struct {
	name    StateName
	rules   *MoveRules
	graph   *StateGraph
	physics *Physics
	current *Command
}

// Name returns the state name
func (s *PieceState) Name() StateName { return s.name }

// Physics returns the owned physics variant
func (s *PieceState) Physics() *Physics { return s.physics }

// Rules returns the shared move rule table
func (s *PieceState) Rules() *MoveRules { return s.rules }

// Command returns the last command this state was reset with
func (s *PieceState) Command() *Command { return s.current }

func (s *PieceState) reset(cmd Command) {
	c := cmd
	s.current = &c
	s.physics.Reset(cmd)
}

// stateArena holds the states of one piece, indexed by name
type stateArena map[StateName]*PieceState

func newStateArena(graph *StateGraph, rules *MoveRules, cell Cell, board Board, timing Timing) stateArena {
	arena := make(stateArena, len(graph.kinds))
	for name, kind := range graph.kinds {
		arena[name] = &PieceState{
			name:    name,
			rules:   rules,
			graph:   graph,
			physics: NewPhysics(kind, cell, board, timing),
		}
	}
	return arena
}

// ProcessCommand returns the state cmd leads to. Unregistered events leave the
// state unchanged.
func (s *PieceState) ProcessCommand(cmd Command, now int64, arena stateArena) *PieceState {
	target, ok := s.graph.Target(s.name, cmd.Type)
	if !ok {
		return s
	}
	next, ok := arena[target]
	if !ok {
		return s
	}
	next.reset(cmd)
	return next
}

// Update advances physics and follows any completion command
func (s *PieceState) Update(now int64, arena stateArena) *PieceState {
	if cmd, done := s.physics.Update(now); done {
		return s.ProcessCommand(cmd, now, arena)
	}
	return s
}
