package engine

import (
	"errors"
	"testing"
)

func powerCard(id int64, power int) Card {
	return Card{ID: id, Name: "card", Power: power}
}

func newTestMatch(t *testing.T, deckA, deckB []Card, starter string) *Match {
	t.Helper()
	m := NewMatch("game-1", "alice")
	if err := m.Join("bob", NewDeck(deckA...), NewDeck(deckB...), starter); err != nil {
		t.Fatalf("Failed to join match: %v", err)
	}
	return m
}

func powers(d Deck) []int {
	out := make([]int, 0, d.Len())
	for _, c := range d.Cards() {
		out = append(out, c.Power)
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFourCardScenario(t *testing.T) {
	m := newTestMatch(t,
		[]Card{powerCard(1, 10), powerCard(2, 30)},
		[]Card{powerCard(3, 20), powerCard(4, 40)},
		"alice")

	result, err := m.PlayTurn("alice", Power, 0)
	if err != nil {
		t.Fatalf("PlayTurn failed: %v", err)
	}

	if result.Winner != "bob" || result.Loser != "alice" {
		t.Errorf("Expected bob to beat alice, got winner=%q loser=%q", result.Winner, result.Loser)
	}
	if got := powers(m.DeckA()); !equalInts(got, []int{30}) {
		t.Errorf("Expected deck A [30], got %v", got)
	}
	// Winner's own card goes to the bottom first, then the captured card.
	if got := powers(m.DeckB()); !equalInts(got, []int{40, 20, 10}) {
		t.Errorf("Expected deck B [40 20 10], got %v", got)
	}
	if m.TurnOwner() != "bob" {
		t.Errorf("Expected bob to own the turn, got %q", m.TurnOwner())
	}
	if result.NextTurn != "bob" {
		t.Errorf("Expected next turn bob, got %q", result.NextTurn)
	}
	if result.GameOver {
		t.Error("Expected game to continue")
	}
}

func TestJoinValidation(t *testing.T) {
	deck := NewDeck(powerCard(1, 1))

	t.Run("self match", func(t *testing.T) {
		m := NewMatch("g", "alice")
		if err := m.Join("alice", deck, deck, "alice"); !errors.Is(err, ErrSelfMatch) {
			t.Errorf("Expected ErrSelfMatch, got %v", err)
		}
	})

	t.Run("already matched", func(t *testing.T) {
		m := NewMatch("g", "alice")
		if err := m.Join("bob", deck, deck, "alice"); err != nil {
			t.Fatalf("First join failed: %v", err)
		}
		if err := m.Join("carol", deck, deck, "alice"); !errors.Is(err, ErrAlreadyMatched) {
			t.Errorf("Expected ErrAlreadyMatched, got %v", err)
		}
	})

	t.Run("empty deck", func(t *testing.T) {
		m := NewMatch("g", "alice")
		if err := m.Join("bob", deck, Deck{}, "alice"); !errors.Is(err, ErrEmptyDeck) {
			t.Errorf("Expected ErrEmptyDeck, got %v", err)
		}
	})

	t.Run("starter must be seated", func(t *testing.T) {
		m := NewMatch("g", "alice")
		if err := m.Join("bob", deck, deck, "carol"); !errors.Is(err, ErrNotParticipant) {
			t.Errorf("Expected ErrNotParticipant, got %v", err)
		}
	})
}

func TestPlayTurnRejections(t *testing.T) {
	t.Run("pending match", func(t *testing.T) {
		m := NewMatch("g", "alice")
		if _, err := m.PlayTurn("alice", Power, 0); !errors.Is(err, ErrNotMatched) {
			t.Errorf("Expected ErrNotMatched, got %v", err)
		}
	})

	t.Run("not your turn leaves state untouched", func(t *testing.T) {
		m := newTestMatch(t, []Card{powerCard(1, 5)}, []Card{powerCard(2, 6)}, "alice")
		if _, err := m.PlayTurn("bob", Power, 0); !errors.Is(err, ErrNotYourTurn) {
			t.Errorf("Expected ErrNotYourTurn, got %v", err)
		}
		if m.TurnNumber() != 0 || m.TurnOwner() != "alice" {
			t.Errorf("Expected untouched state, got turn=%d owner=%q", m.TurnNumber(), m.TurnOwner())
		}
	})

	t.Run("unknown attribute", func(t *testing.T) {
		m := newTestMatch(t, []Card{powerCard(1, 5)}, []Card{powerCard(2, 6)}, "alice")
		if _, err := m.PlayTurn("alice", Attribute("batting_average"), 0); !errors.Is(err, ErrUnknownAttribute) {
			t.Errorf("Expected ErrUnknownAttribute, got %v", err)
		}
		if m.TurnNumber() != 0 {
			t.Errorf("Expected no turn to be played, got %d", m.TurnNumber())
		}
	})

	t.Run("outsider", func(t *testing.T) {
		m := newTestMatch(t, []Card{powerCard(1, 5)}, []Card{powerCard(2, 6)}, "alice")
		if _, err := m.PlayTurn("mallory", Power, 0); !errors.Is(err, ErrNotParticipant) {
			t.Errorf("Expected ErrNotParticipant, got %v", err)
		}
	})
}

func TestTieRotatesTurnWithoutTransfer(t *testing.T) {
	m := newTestMatch(t,
		[]Card{powerCard(1, 50), powerCard(2, 1)},
		[]Card{powerCard(3, 50), powerCard(4, 2)},
		"alice")

	result, err := m.PlayTurn("alice", Power, 0)
	if err != nil {
		t.Fatalf("PlayTurn failed: %v", err)
	}

	if !result.Draw || result.Winner != "" {
		t.Errorf("Expected a draw with no winner, got draw=%v winner=%q", result.Draw, result.Winner)
	}
	if got := powers(m.DeckA()); !equalInts(got, []int{1, 50}) {
		t.Errorf("Expected deck A [1 50], got %v", got)
	}
	if got := powers(m.DeckB()); !equalInts(got, []int{2, 50}) {
		t.Errorf("Expected deck B [2 50], got %v", got)
	}
	if m.TurnOwner() != "bob" {
		t.Errorf("Expected turn to pass to bob, got %q", m.TurnOwner())
	}
}

func TestWinnerKeepsTurn(t *testing.T) {
	m := newTestMatch(t,
		[]Card{powerCard(1, 90), powerCard(2, 1)},
		[]Card{powerCard(3, 10), powerCard(4, 2)},
		"alice")

	if _, err := m.PlayTurn("alice", Power, 0); err != nil {
		t.Fatalf("PlayTurn failed: %v", err)
	}
	if m.TurnOwner() != "alice" {
		t.Errorf("Expected alice to keep the turn, got %q", m.TurnOwner())
	}
	if got := powers(m.DeckA()); !equalInts(got, []int{1, 90, 10}) {
		t.Errorf("Expected deck A [1 90 10], got %v", got)
	}
}

func TestIdempotentRetry(t *testing.T) {
	m := newTestMatch(t,
		[]Card{powerCard(1, 90), powerCard(2, 1)},
		[]Card{powerCard(3, 10), powerCard(4, 2)},
		"alice")

	first, err := m.PlayTurn("alice", Power, 1)
	if err != nil {
		t.Fatalf("PlayTurn failed: %v", err)
	}
	before := powers(m.DeckA())

	t.Run("same player same attribute replays", func(t *testing.T) {
		again, err := m.PlayTurn("alice", Power, 1)
		if err != nil {
			t.Fatalf("Retry failed: %v", err)
		}
		if again.Turn != first.Turn || again.Winner != first.Winner {
			t.Errorf("Expected memoized result, got %+v", again)
		}
		if got := powers(m.DeckA()); !equalInts(got, before) {
			t.Errorf("Retry mutated deck A: %v -> %v", before, got)
		}
		if m.TurnNumber() != 1 {
			t.Errorf("Expected turn number 1, got %d", m.TurnNumber())
		}
	})

	t.Run("different attribute is stale", func(t *testing.T) {
		if _, err := m.PlayTurn("alice", Wickets, 1); !errors.Is(err, ErrStaleTurn) {
			t.Errorf("Expected ErrStaleTurn, got %v", err)
		}
	})

	t.Run("opponent replay is not their turn", func(t *testing.T) {
		if _, err := m.PlayTurn("bob", Power, 1); !errors.Is(err, ErrNotYourTurn) {
			t.Errorf("Expected ErrNotYourTurn, got %v", err)
		}
	})

	t.Run("skipping ahead is stale", func(t *testing.T) {
		if _, err := m.PlayTurn("alice", Power, 5); !errors.Is(err, ErrStaleTurn) {
			t.Errorf("Expected ErrStaleTurn, got %v", err)
		}
	})

	t.Run("next turn plays", func(t *testing.T) {
		r, err := m.PlayTurn("alice", Power, 2)
		if err != nil {
			t.Fatalf("PlayTurn failed: %v", err)
		}
		if r.Turn != 2 {
			t.Errorf("Expected turn 2, got %d", r.Turn)
		}
	})
}

func TestTerminalStickiness(t *testing.T) {
	m := newTestMatch(t, []Card{powerCard(1, 9)}, []Card{powerCard(2, 3)}, "alice")

	result, err := m.PlayTurn("alice", Power, 0)
	if err != nil {
		t.Fatalf("PlayTurn failed: %v", err)
	}
	if !result.GameOver {
		t.Fatal("Expected game over")
	}
	if result.OverallWinner != "alice" || result.OverallLoser != "bob" {
		t.Errorf("Expected alice over bob, got %q over %q", result.OverallWinner, result.OverallLoser)
	}
	if result.NextTurn != "" || m.TurnOwner() != "" {
		t.Errorf("Expected no turn owner after game over, got %q", m.TurnOwner())
	}
	if m.Active() {
		t.Error("Expected match to be inactive")
	}
	if m.Winner() != "alice" {
		t.Errorf("Expected winner alice, got %q", m.Winner())
	}

	for _, player := range []string{"alice", "bob"} {
		if _, err := m.PlayTurn(player, Power, 0); !errors.Is(err, ErrEmptyDeck) {
			t.Errorf("Expected ErrEmptyDeck for %s, got %v", player, err)
		}
	}

	// The final turn can still be replayed.
	if again, err := m.PlayTurn("alice", Power, 1); err != nil || !again.GameOver {
		t.Errorf("Expected replay of final turn, got %+v, %v", again, err)
	}
}

func TestCardMultisetInvariant(t *testing.T) {
	catalog := make([]Card, 0, 12)
	for i := 1; i <= 12; i++ {
		catalog = append(catalog, Card{ID: int64(i), Power: i % 5, Wickets: i * 3, RunsScored: 100 - i})
	}

	p := NewPartitioner(42)
	deckA, deckB, err := p.Partition(catalog)
	if err != nil {
		t.Fatalf("Partition failed: %v", err)
	}
	m := NewMatch("g", "alice")
	if err := m.Join("bob", deckA, deckB, "alice"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	attrs := []Attribute{Power, Wickets, RunsScored}
	for turn := 0; turn < 500 && m.Active(); turn++ {
		if _, err := m.PlayTurn(m.TurnOwner(), attrs[turn%len(attrs)], 0); err != nil {
			t.Fatalf("Turn %d failed: %v", turn, err)
		}

		seen := make(map[int64]int)
		for _, d := range []Deck{m.DeckA(), m.DeckB()} {
			for _, id := range d.IDs() {
				seen[id]++
			}
		}
		if len(seen) != len(catalog) || CountCards(m.DeckA(), m.DeckB()) != len(catalog) {
			t.Fatalf("Turn %d: card multiset changed, saw %d distinct cards", turn, len(seen))
		}
		if m.Active() && m.TurnOwner() == "" {
			t.Fatalf("Turn %d: active match without turn owner", turn)
		}
		if !m.Active() && m.DeckA().Len() != 0 && m.DeckB().Len() != 0 {
			t.Fatalf("Turn %d: inactive match with two non-empty decks", turn)
		}
	}
}

func TestLastResult(t *testing.T) {
	m := newTestMatch(t, []Card{powerCard(1, 9), powerCard(2, 1)}, []Card{powerCard(3, 3)}, "alice")
	if _, ok := m.LastResult(); ok {
		t.Error("Expected no last result before the first turn")
	}
	if _, err := m.PlayTurn("alice", Power, 0); err != nil {
		t.Fatalf("PlayTurn failed: %v", err)
	}
	last, ok := m.LastResult()
	if !ok || last.Turn != 1 {
		t.Errorf("Expected last result for turn 1, got %+v", last)
	}
	if opp, ok := m.Opponent("bob"); !ok || opp != "alice" {
		t.Errorf("Expected alice as bob's opponent, got %q", opp)
	}
}
