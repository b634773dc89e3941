// Command validate checks the move rule sources under <config dir>/pieces.
// It checks:
//   - Directory names are valid piece codes (type letter + side letter)
//   - Every moves.txt parses as "dr,dc" lines and is not empty
//   - No zero or duplicate offsets, and no offset longer than the board
//   - Pawn tables step toward the opponent
//   - Coverage: every code used by a config layout has rules, inline or on disk
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wricardo/kungfu-chess/game/config"
	"github.com/wricardo/kungfu-chess/game/engine"
	"gopkg.in/yaml.v3"
)

// ValidationResult captures the outcome of validating a single rule file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// validateRules loads and checks pieces/<code>/moves.txt under dir
func validateRules(dir, code string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Join(config.PiecesDir, code, "moves.txt"),
		Valid:  true,
		Errors: []string{},
	}

	if err := engine.ValidatePieceCode(code); err != nil {
		result.fail("Invalid piece code: %v", err)
		return result
	}

	rules, err := engine.LoadMoveRules(os.DirFS(dir), config.PiecesDir, code, engine.NotationSize, engine.NotationSize)
	if err != nil {
		result.fail("%v", err)
		return result
	}

	offsets := rules.Offsets()
	if len(offsets) == 0 {
		result.fail("No offsets defined")
		return result
	}

	seen := make(map[engine.Offset]bool)
	for _, o := range offsets {
		switch {
		case o.DR == 0 && o.DC == 0:
			result.fail("Zero offset 0,0")
		case abs(o.DR) >= engine.NotationSize || abs(o.DC) >= engine.NotationSize:
			result.fail("Offset %d,%d leaves any %dx%d board", o.DR, o.DC, engine.NotationSize, engine.NotationSize)
		case seen[o]:
			result.fail("Duplicate offset %d,%d", o.DR, o.DC)
		}
		seen[o] = true
	}

	if rules.PawnLike() {
		forward := -1
		if engine.SideOf(code) == engine.Black {
			forward = 1
		}
		steps := 0
		for _, o := range offsets {
			if o.DC != 0 {
				continue
			}
			if o.DR*forward <= 0 {
				result.fail("Pawn offset %d,%d does not move toward the opponent", o.DR, o.DC)
				continue
			}
			steps++
		}
		if steps == 0 {
			result.fail("Pawn has no forward step")
		}
	}

	if result.Valid {
		result.Errors = append(result.Errors, fmt.Sprintf("✓ %d offsets", len(offsets)))
	}
	return result
}

// layoutFile is the part of a game config the coverage check reads
type layoutFile struct {
	Layout []string                   `json:"layout" yaml:"layout"`
	Moves  map[string][]engine.Offset `json:"moves" yaml:"moves"`
}

// validateCoverage reports layout codes that have neither inline moves nor a
// rule file in available
func validateCoverage(configPath string, available map[string]bool) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(configPath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	var cfg layoutFile
	if filepath.Ext(configPath) == ".json" {
		err = json.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		result.fail("Failed to parse: %v", err)
		return result
	}

	codes := engine.LayoutCodes(cfg.Layout)
	var missing []string
	for _, code := range codes {
		if _, inline := cfg.Moves[code]; inline || available[code] {
			continue
		}
		missing = append(missing, code)
	}

	if len(missing) > 0 {
		result.fail("Coverage failure: no rules for %s", strings.Join(missing, ", "))
	} else {
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Coverage: all %d piece codes have rules", len(codes)))
	}
	return result
}

// pieceCodes lists the subdirectories of <dir>/pieces, sorted
func pieceCodes(dir string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(dir, config.PiecesDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var codes []string
	for _, entry := range entries {
		if entry.IsDir() {
			codes = append(codes, entry.Name())
		}
	}
	sort.Strings(codes)
	return codes, nil
}

func configPaths(dir string) []string {
	var paths []string
	for _, pattern := range []string{"*.json", "*.yaml", "*.yml"} {
		matches, _ := filepath.Glob(filepath.Join(dir, pattern))
		paths = append(paths, matches...)
	}
	sort.Strings(paths)
	return paths
}

// validateDir runs every check under dir and returns the results in print order
func validateDir(dir string) ([]ValidationResult, error) {
	codes, err := pieceCodes(dir)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", config.PiecesDir, err)
	}

	var results []ValidationResult
	available := make(map[string]bool)
	for _, code := range codes {
		result := validateRules(dir, code)
		if result.Valid {
			available[code] = true
		}
		results = append(results, result)
	}
	for _, path := range configPaths(dir) {
		results = append(results, validateCoverage(path, available))
	}
	return results, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// main validates the rule files in the directory given as the first argument
// (default "configs"), printing a concise report and exiting with non-zero
// status if anything is invalid.
func main() {
	configDir := "configs"
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}

	results, err := validateDir(configDir)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	allValid := true
	for _, result := range results {
		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Println("  ❌ " + err)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All rule files are valid!")
	} else {
		fmt.Println("❌ Some rule files have errors")
		os.Exit(1)
	}
}
