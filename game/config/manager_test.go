package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/wricardo/cricket-trumps/game/engine"
)

func createValidSet() *CardSet {
	return &CardSet{
		Name:        "Test Set",
		Description: "Test cards",
		Cards: []engine.Card{
			{Name: "Sachin Tendulkar", Power: 98, StrikeRate: 86.2, Wickets: 46, MatchesPlayed: 463, RunsScored: 18426, HighestScore: 200},
			{Name: "Shane Warne", Power: 95, StrikeRate: 63.2, Wickets: 708, MatchesPlayed: 145, RunsScored: 3154, HighestScore: 99},
			{Name: "Brian Lara", Power: 96, StrikeRate: 79.5, Wickets: 4, MatchesPlayed: 299, RunsScored: 10405, HighestScore: 169},
		},
	}
}

func writeSetFile(t *testing.T, dir, name string, set *CardSet) {
	t.Helper()
	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal set: %v", err)
	}

	filename := name
	if filepath.Ext(filename) == "" {
		filename = name + ".json"
	}
	if err := os.WriteFile(filepath.Join(dir, filename), data, 0644); err != nil {
		t.Fatalf("Failed to write set file: %v", err)
	}
}

func TestNewManager(t *testing.T) {
	t.Run("valid directory", func(t *testing.T) {
		manager, err := NewManager(t.TempDir())
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if manager == nil {
			t.Error("Expected manager to be non-nil")
		}
	})

	t.Run("non-existent directory", func(t *testing.T) {
		_, err := NewManager("/non/existent/path")
		if err == nil {
			t.Error("Expected error for non-existent directory")
		}
	})
}

func TestManager_LoadSet(t *testing.T) {
	dir := t.TempDir()
	writeSetFile(t, dir, "legends", createValidSet())

	broken := createValidSet()
	broken.Cards[1].Wickets = -3
	writeSetFile(t, dir, "broken", broken)

	if err := os.WriteFile(filepath.Join(dir, "garbled.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	t.Run("load existing set", func(t *testing.T) {
		set, err := manager.LoadSet("legends")
		if err != nil {
			t.Fatalf("Failed to load set: %v", err)
		}
		if len(set.Cards) != 3 {
			t.Errorf("Expected 3 cards, got %d", len(set.Cards))
		}
		if set.Cards[0].Slug != "sachin-tendulkar" {
			t.Errorf("Expected derived slug sachin-tendulkar, got %q", set.Cards[0].Slug)
		}
	})

	t.Run("load with json suffix", func(t *testing.T) {
		if _, err := manager.LoadSet("legends.json"); err != nil {
			t.Errorf("Failed to load set with suffix: %v", err)
		}
	})

	t.Run("cached set is reused", func(t *testing.T) {
		a, _ := manager.LoadSet("legends")
		b, _ := manager.LoadSet("legends")
		if a != b {
			t.Error("Expected the cached set to be returned")
		}
	})

	t.Run("missing set", func(t *testing.T) {
		_, err := manager.LoadSet("nope")
		if !errors.Is(err, ErrSetNotFound) {
			t.Errorf("Expected ErrSetNotFound, got %v", err)
		}
	})

	t.Run("invalid values", func(t *testing.T) {
		_, err := manager.LoadSet("broken")
		if !errors.Is(err, ErrInvalidSet) {
			t.Errorf("Expected ErrInvalidSet, got %v", err)
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := manager.LoadSet("garbled")
		if err == nil || errors.Is(err, ErrSetNotFound) {
			t.Errorf("Expected a parse error, got %v", err)
		}
	})
}

func TestManager_ReloadSet(t *testing.T) {
	dir := t.TempDir()
	set := createValidSet()
	writeSetFile(t, dir, "legends", set)

	manager, _ := NewManager(dir)
	if _, err := manager.LoadSet("legends"); err != nil {
		t.Fatal(err)
	}

	set.Cards = append(set.Cards, engine.Card{Name: "Jacques Kallis", Power: 94, Wickets: 292})
	writeSetFile(t, dir, "legends", set)

	reloaded, err := manager.ReloadSet("legends")
	if err != nil {
		t.Fatalf("Failed to reload: %v", err)
	}
	if len(reloaded.Cards) != 4 {
		t.Errorf("Expected 4 cards after reload, got %d", len(reloaded.Cards))
	}
}

func TestManager_ListSets(t *testing.T) {
	dir := t.TempDir()
	writeSetFile(t, dir, "legends", createValidSet())

	other := createValidSet()
	other.Name = "Other"
	writeSetFile(t, dir, "other", other)

	broken := createValidSet()
	broken.Name = ""
	writeSetFile(t, dir, "broken", broken)

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.json"), 0755); err != nil {
		t.Fatal(err)
	}

	manager, _ := NewManager(dir)
	sets, err := manager.ListSets()
	if err != nil {
		t.Fatalf("Failed to list sets: %v", err)
	}
	if len(sets) != 2 {
		t.Fatalf("Expected 2 valid sets, got %d", len(sets))
	}
	for _, info := range sets {
		if info.Cards != 3 {
			t.Errorf("Set %s: expected 3 cards, got %d", info.SetID, info.Cards)
		}
		if info.Filename != info.SetID+".json" {
			t.Errorf("Filename %s does not match id %s", info.Filename, info.SetID)
		}
	}
}

func TestValidateCardSet(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CardSet)
		wantErr string
	}{
		{name: "valid", mutate: func(*CardSet) {}},
		{name: "missing name", mutate: func(s *CardSet) { s.Name = " " }, wantErr: "set name is required"},
		{name: "too few cards", mutate: func(s *CardSet) { s.Cards = s.Cards[:1] }, wantErr: "at least 2 cards"},
		{name: "blank card name", mutate: func(s *CardSet) { s.Cards[0].Name = "" }, wantErr: "name is required"},
		{name: "duplicate slug", mutate: func(s *CardSet) { s.Cards[2].Slug = s.Cards[0].Slug }, wantErr: "already used by card 1"},
		{name: "negative strike rate", mutate: func(s *CardSet) { s.Cards[1].StrikeRate = -1 }, wantErr: "strike_rate cannot be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := createValidSet()
			for i := range set.Cards {
				set.Cards[i].Slug = strings.ToLower(strings.ReplaceAll(set.Cards[i].Name, " ", "-"))
			}
			tt.mutate(set)

			err := ValidateCardSet(set)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidSet) {
				t.Fatalf("Expected ErrInvalidSet, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestParseCardSet_KeepsExplicitSlug(t *testing.T) {
	data := []byte(`{"name":"x","cards":[{"name":"M S Dhoni","slug":"mahi"},{"name":"Kapil Dev"}]}`)
	set, err := ParseCardSet(data)
	if err != nil {
		t.Fatal(err)
	}
	if set.Cards[0].Slug != "mahi" {
		t.Errorf("Expected explicit slug to be kept, got %q", set.Cards[0].Slug)
	}
	if set.Cards[1].Slug != "kapil-dev" {
		t.Errorf("Expected derived slug kapil-dev, got %q", set.Cards[1].Slug)
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	dir := t.TempDir()
	writeSetFile(t, dir, "legends", createValidSet())
	manager, _ := NewManager(dir)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := manager.LoadSet("legends"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Concurrent load failed: %v", err)
	}
}
