// Package engine provides the core game logic for Kung Fu Chess.
//
// Kung Fu Chess is chess without turns: every piece may be commanded at any
// time, moves take real time to complete, and pieces cool down afterwards.
// The engine package implements:
//   - Board geometry and algebraic notation ("a1" is row 7, col 0)
//   - Per piece type move rule tables loaded from "dr,dc" sources
//   - Timed physics variants (idle, move, jump, short and long rest)
//   - The per-piece state machine and its automatic cooldown chaining
//   - Tick-level reconciliation of cell occupancy, which is how captures happen
//   - The command dispatcher, the only legality gate
//   - Event notifications and immutable per-tick snapshots
//
// Core Types:
//
// Game owns the pieces and runs the authoritative tick loop. Commands enter
// through Enqueue, the only concurrent entry point, and are drained at the end
// of every tick against the freshly rebuilt PositionIndex. Readers never touch
// live pieces; they use the Snapshot published after each tick.
//
// Usage:
//
//	game, err := engine.NewGame(cfg, engine.WithSink(broker))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	go game.Run(ctx, 16*time.Millisecond)
//
//	cmd, _ := engine.NewCommand(game.Now(), "PW_5", engine.CommandMove, "e2", "e4")
//	game.Enqueue(cmd)
//	state := game.Snapshot()
//
// Game Rules:
//
// A piece that floors onto an occupied cell either displaces the resident or is
// eliminated itself. Resting residents always lose; between two movers the one
// that started earlier wins. The game ends once at most one king is left.
package engine
