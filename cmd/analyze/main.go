// Command analyze validates the game configurations in a config directory and
// prints quick, human-readable opening statistics for each: piece counts,
// opening mobility per side, and how long typical moves take with the
// configured physics.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/kungfu-chess/game/config"
	"github.com/wricardo/kungfu-chess/game/engine"
)

// Report summarises one configuration
type Report struct {
	ConfigID string
	Name     string
	Rows     int
	Cols     int

	Pieces       map[engine.Side]int
	Kings        map[engine.Side]int
	OpeningMoves map[engine.Side]int
	MobilePieces map[engine.Side]int

	StepMs      int64 // one cell, including the post-move delay
	LongestMs   int64 // corner to corner
	JumpMs      int64
	LongRestMs  int64
	ShortRestMs int64

	Warnings []string
}

var errInvalidConfigs = errors.New("some configurations are invalid")

func main() {
	cmd := &cli.Command{
		Name:      "analyze",
		Usage:     "validate game configurations and print opening statistics",
		ArgsUsage: "[config_id...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "directory containing game configurations",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return run(os.Stdout, cmd.String("config-dir"), cmd.Args().Slice())
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run analyzes the named configs, or every config file in dir
func run(w io.Writer, dir string, names []string) error {
	manager, err := config.NewManager(dir)
	if err != nil {
		return err
	}

	if len(names) == 0 {
		names, err = configFiles(dir)
		if err != nil {
			return err
		}
	}

	invalid := 0
	for _, name := range names {
		fmt.Fprintf(w, "\n=== Analyzing %s ===\n", name)
		cfg, err := manager.LoadConfig(name)
		if err != nil {
			fmt.Fprintf(w, "❌ %v\n", err)
			invalid++
			continue
		}
		report, err := analyze(strings.TrimSuffix(name, filepath.Ext(name)), cfg)
		if err != nil {
			fmt.Fprintf(w, "❌ %v\n", err)
			invalid++
			continue
		}
		printReport(w, report)
	}

	if invalid > 0 {
		return fmt.Errorf("%w: %d of %d", errInvalidConfigs, invalid, len(names))
	}
	return nil
}

// configFiles lists config file names in dir, sorted
func configFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch filepath.Ext(entry.Name()) {
		case ".json", ".yaml", ".yml":
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// analyze builds the game at tick zero and inspects it
func analyze(id string, cfg *engine.GameConfig) (*Report, error) {
	game, err := engine.NewGame(cfg)
	if err != nil {
		return nil, fmt.Errorf("cannot build game: %w", err)
	}

	r := &Report{
		ConfigID:     id,
		Name:         cfg.Name,
		Rows:         cfg.Rows,
		Cols:         cfg.Cols,
		Pieces:       make(map[engine.Side]int),
		Kings:        make(map[engine.Side]int),
		OpeningMoves: make(map[engine.Side]int),
		MobilePieces: make(map[engine.Side]int),
	}

	for _, p := range game.Snapshot().Pieces {
		r.Pieces[p.Side]++
		if strings.HasPrefix(p.Type, "K") {
			r.Kings[p.Side]++
		}
		moves, err := game.LegalMoves(p.Cell)
		if err != nil {
			return nil, fmt.Errorf("legal moves for %s: %w", p.ID, err)
		}
		r.OpeningMoves[p.Side] += len(moves)
		if len(moves) > 0 {
			r.MobilePieces[p.Side]++
		}
	}

	board := game.Board()
	timing := cfg.Timing()
	origin := engine.Cell{Row: cfg.Rows - 1, Col: 0}
	r.StepMs = moveDuration(board, timing, origin, engine.Cell{Row: cfg.Rows - 2, Col: 0})
	r.LongestMs = moveDuration(board, timing, origin, engine.Cell{Row: 0, Col: cfg.Cols - 1})
	r.JumpMs = cfg.Physics.JumpMs
	r.ShortRestMs = cfg.Physics.ShortRestMs
	r.LongRestMs = cfg.Physics.LongRestMs

	for _, side := range []engine.Side{engine.White, engine.Black} {
		if kings := r.Kings[side]; kings > 1 {
			r.Warnings = append(r.Warnings, fmt.Sprintf("%s has %d kings, the game only ends when at most one king is left", side, kings))
		}
		if r.Pieces[side] > 0 && r.OpeningMoves[side] == 0 {
			r.Warnings = append(r.Warnings, fmt.Sprintf("%s has no legal opening move", side))
		}
	}

	return r, nil
}

// moveDuration is the time from accepting a move to the piece turning idle
// again, minus the long rest
func moveDuration(board engine.Board, timing engine.Timing, from, to engine.Cell) int64 {
	if !board.InBounds(from) || !board.InBounds(to) {
		return 0
	}
	phys := engine.NewPhysics(engine.PhysicsMove, from, board, timing)
	phys.Reset(engine.Command{Type: engine.CommandMove, Params: [2]engine.Cell{from, to}})
	return phys.Duration()
}

func printReport(w io.Writer, r *Report) {
	fmt.Fprintf(w, "Name: %s (config_id: %s)\n", r.Name, r.ConfigID)
	fmt.Fprintf(w, "Board: %d x %d\n", r.Rows, r.Cols)
	for _, side := range []engine.Side{engine.White, engine.Black} {
		fmt.Fprintf(w, "%s: %d pieces, %d kings, %d opening moves across %d mobile pieces\n",
			side, r.Pieces[side], r.Kings[side], r.OpeningMoves[side], r.MobilePieces[side])
	}
	if r.StepMs > 0 {
		fmt.Fprintf(w, "One-cell move: %dms\n", r.StepMs)
	}
	fmt.Fprintf(w, "Corner to corner: %dms\n", r.LongestMs)
	fmt.Fprintf(w, "Jump: %dms, short rest: %dms, long rest: %dms\n", r.JumpMs, r.ShortRestMs, r.LongRestMs)

	if len(r.Warnings) == 0 {
		fmt.Fprintf(w, "✅ Layout looks playable\n")
		return
	}
	for _, warning := range r.Warnings {
		fmt.Fprintf(w, "⚠️  WARNING: %s\n", warning)
	}
}
