package engine

import (
	"errors"
	"testing"
)

func TestTurnViewPerspective(t *testing.T) {
	m := newTestMatch(t,
		[]Card{powerCard(1, 10), powerCard(2, 30)},
		[]Card{powerCard(3, 20), powerCard(4, 40)},
		"alice")

	if _, err := m.TurnView("alice"); !errors.Is(err, ErrNoTurnPlayed) {
		t.Errorf("Expected ErrNoTurnPlayed, got %v", err)
	}

	if _, err := m.PlayTurn("alice", Power, 0); err != nil {
		t.Fatalf("PlayTurn failed: %v", err)
	}

	alice, err := m.TurnView("alice")
	if err != nil {
		t.Fatalf("TurnView failed: %v", err)
	}
	if alice.Outcome != OutcomeLost || alice.YourCard.ID != 1 || alice.OpponentCard.ID != 3 {
		t.Errorf("Unexpected alice view: %+v", alice)
	}
	if alice.YourCards != 1 || alice.OpponentCards != 3 || alice.YourTurn {
		t.Errorf("Unexpected alice counts: %+v", alice)
	}

	bob, err := m.TurnView("bob")
	if err != nil {
		t.Fatalf("TurnView failed: %v", err)
	}
	if bob.Outcome != OutcomeWon || bob.YourCard.ID != 3 || bob.YourValue != 20 || !bob.YourTurn {
		t.Errorf("Unexpected bob view: %+v", bob)
	}

	if _, err := m.TurnView("mallory"); !errors.Is(err, ErrNotParticipant) {
		t.Errorf("Expected ErrNotParticipant, got %v", err)
	}
}

func TestStateViewHidesOpponentDeck(t *testing.T) {
	m := newTestMatch(t,
		[]Card{powerCard(1, 10), powerCard(2, 30)},
		[]Card{powerCard(3, 20), powerCard(4, 40)},
		"bob")

	state, err := m.StateView("alice")
	if err != nil {
		t.Fatalf("StateView failed: %v", err)
	}
	if state.TopCard == nil || state.TopCard.ID != 1 {
		t.Errorf("Expected alice to see her own top card, got %+v", state.TopCard)
	}
	if state.YourTurn || state.TurnOwner != "bob" || state.Opponent != "bob" {
		t.Errorf("Unexpected state: %+v", state)
	}
	if state.YourCards != 2 || state.OpponentCards != 2 || state.TurnNumber != 0 {
		t.Errorf("Unexpected counts: %+v", state)
	}

	bob, _ := m.StateView("bob")
	if !bob.YourTurn || bob.TopCard.ID != 3 {
		t.Errorf("Unexpected bob state: %+v", bob)
	}
}

func TestDrawView(t *testing.T) {
	r := TurnResult{Turn: 3, Draw: true, Player: "alice", NextTurn: "bob"}
	v := ViewTurn("g", r, "alice", "alice", 5, 5)
	if v.Outcome != OutcomeDraw || v.YourTurn {
		t.Errorf("Unexpected draw view: %+v", v)
	}
}
