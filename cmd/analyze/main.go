// Command analyze prints quick, human-readable heuristics about card set
// files in the project's cards directory. It summarizes the value range of
// every attribute, how often two cards tie on it, the strongest cards per
// attribute, and flags cards that can never lose or never win a hand.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/wricardo/cricket-trumps/game/config"
	"github.com/wricardo/cricket-trumps/game/engine"
)

// tieWarnRate is the tie rate above which an attribute is reported as
// producing too many draws.
const tieWarnRate = 0.10

func main() {
	dir := "cards"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil || len(files) == 0 {
		fmt.Printf("No card sets found in %s\n", dir)
		os.Exit(1)
	}
	sort.Strings(files)

	for _, file := range files {
		fmt.Printf("\n=== Analyzing %s ===\n", filepath.Base(file))
		analyzeSet(os.Stdout, file)
	}
}

func analyzeSet(w io.Writer, path string) {
	set, err := config.LoadCardFile(path)
	if err != nil {
		fmt.Fprintf(w, "Error loading set: %v\n", err)
		return
	}

	fmt.Fprintf(w, "Name: %s\n", set.Name)
	fmt.Fprintf(w, "Cards: %d (%d per deck)\n", len(set.Cards), len(set.Cards)/2)
	if len(set.Cards)%2 == 1 {
		fmt.Fprintf(w, "Note: odd card count, one card sits out each game\n")
	}

	for _, attr := range engine.Attributes {
		lo, hi, _ := engine.AttributeRange(set.Cards, attr)
		rate := engine.TieRate(set.Cards, attr)
		fmt.Fprintf(w, "\n%s: %s .. %s, tie rate %.1f%%\n", attr, formatValue(attr, lo), formatValue(attr, hi), rate*100)
		if rate > tieWarnRate {
			fmt.Fprintf(w, "⚠️  WARNING: %s ties often, expect many drawn hands\n", attr)
		}
		for i, c := range engine.TopCards(set.Cards, attr, 3) {
			v, _ := c.Value(attr)
			fmt.Fprintf(w, "   %d. %s (%s)\n", i+1, c.Name, formatValue(attr, v))
		}
	}

	others := len(set.Cards) - 1
	var dominant, hopeless []string
	for _, c := range set.Cards {
		attr, wins := engine.BestAttribute(c, set.Cards)
		switch {
		case wins == others:
			dominant = append(dominant, fmt.Sprintf("%s (%s)", c.Name, attr))
		case wins == 0:
			hopeless = append(hopeless, c.Name)
		}
	}

	fmt.Fprintln(w)
	if len(dominant) > 0 {
		fmt.Fprintf(w, "⚠️  WARNING: %d cards beat every other card on one attribute:\n", len(dominant))
		for _, d := range dominant {
			fmt.Fprintf(w, "   %s\n", d)
		}
	} else {
		fmt.Fprintf(w, "✅ No card beats the whole set on a single attribute\n")
	}

	if len(hopeless) > 0 {
		fmt.Fprintf(w, "⚠️  CRITICAL: %d cards cannot win a hand on any attribute:\n", len(hopeless))
		for _, name := range hopeless {
			fmt.Fprintf(w, "   %s\n", name)
		}
	} else {
		fmt.Fprintf(w, "✅ Every card can win on at least one attribute\n")
	}
}

func formatValue(attr engine.Attribute, v float64) string {
	if attr == engine.StrikeRate {
		return fmt.Sprintf("%.2f", v)
	}
	return fmt.Sprintf("%.0f", v)
}
