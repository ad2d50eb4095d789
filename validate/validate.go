// Command validate provides a small CLI that validates card set JSON files in
// the ../cards directory. It checks:
//   - JSON structure and the set name
//   - At least two cards, each with a name and a unique slug
//   - No negative attribute values
//   - No two cards with identical stats, since every hand between them draws
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/cricket-trumps/game/config"
	"github.com/wricardo/cricket-trumps/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

// validateCardSet loads and validates a single card set file.
func validateCardSet(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to read file: %v", err))
		return result
	}

	set, err := config.ParseCardSet(data)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Invalid JSON: %v", err))
		return result
	}

	if err := config.ValidateCardSet(set); err != nil {
		result.Valid = false
		msg := strings.TrimPrefix(err.Error(), config.ErrInvalidSet.Error()+": ")
		for _, line := range strings.Split(msg, "\n") {
			result.Errors = append(result.Errors, line)
		}
	}

	for i := 0; i < len(set.Cards); i++ {
		for j := i + 1; j < len(set.Cards); j++ {
			if sameStats(set.Cards[i], set.Cards[j]) {
				result.Valid = false
				result.Errors = append(result.Errors, fmt.Sprintf("Cards %q and %q have identical stats", set.Cards[i].Name, set.Cards[j].Name))
			}
		}
	}

	if !result.Valid {
		return result
	}

	result.Errors = append(result.Errors, fmt.Sprintf("✓ Set %q: %d cards, %d per deck", set.Name, len(set.Cards), len(set.Cards)/2))
	if set.Description == "" {
		result.Errors = append(result.Errors, "✓ No description (optional)")
	}
	return result
}

func sameStats(a, b engine.Card) bool {
	for _, attr := range engine.Attributes {
		va, _ := a.Value(attr)
		vb, _ := b.Value(attr)
		if va != vb {
			return false
		}
	}
	return true
}

// report validates every *.json file in dir and writes a summary to w. It
// returns false when any set is invalid or the directory has no sets.
func report(w io.Writer, dir string) bool {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil || len(files) == 0 {
		fmt.Fprintf(w, "No card sets found in %s\n", dir)
		return false
	}

	invalid := 0
	for _, file := range files {
		result := validateCardSet(file)
		fmt.Fprintf(w, "\n-- %s: ", result.File)
		if !result.Valid {
			invalid++
			fmt.Fprintln(w, "❌ INVALID")
			for _, msg := range result.Errors {
				fmt.Fprintf(w, "   ❌ %s\n", msg)
			}
			continue
		}
		fmt.Fprintln(w, "✅ VALID")
		for _, info := range result.Errors {
			fmt.Fprintf(w, "   %s\n", info)
		}
	}

	fmt.Fprintf(w, "\n%d of %d card sets valid\n", len(files)-invalid, len(files))
	return invalid == 0
}

// main validates ../cards, or the directory given as the first argument,
// and exits non-zero if any set is invalid.
func main() {
	dir := "../cards"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}
	if !report(os.Stdout, dir) {
		os.Exit(1)
	}
}
