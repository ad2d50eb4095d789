package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gosimple/slug"

	"github.com/wricardo/cricket-trumps/game/engine"
)

var (
	ErrSetNotFound   = errors.New("card set not found")
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrInvalidSet    = errors.New("invalid card set")
)

// CardSet is a seed file of cards.
type CardSet struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Cards       []engine.Card `json:"cards"`
}

// SetInfo describes a card set available on disk.
type SetInfo struct {
	Filename    string `json:"filename"`
	SetID       string `json:"set_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Cards       int    `json:"cards"`
}

// ParseCardSet decodes a seed file and fills in missing slugs from card
// names. It does not validate the result.
func ParseCardSet(data []byte) (*CardSet, error) {
	var set CardSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to parse card set: %w", err)
	}
	for i := range set.Cards {
		if set.Cards[i].Slug == "" {
			set.Cards[i].Slug = slug.Make(set.Cards[i].Name)
		}
	}
	return &set, nil
}

// ValidateCardSet checks names, slug uniqueness and attribute ranges.
func ValidateCardSet(set *CardSet) error {
	var errs []error

	if strings.TrimSpace(set.Name) == "" {
		errs = append(errs, errors.New("set name is required"))
	}
	if len(set.Cards) < 2 {
		errs = append(errs, fmt.Errorf("a set needs at least 2 cards, got %d", len(set.Cards)))
	}

	seen := make(map[string]int)
	for i, c := range set.Cards {
		label := fmt.Sprintf("card %d", i+1)
		if strings.TrimSpace(c.Name) == "" {
			errs = append(errs, fmt.Errorf("%s: name is required", label))
		} else {
			label = fmt.Sprintf("card %d (%s)", i+1, c.Name)
		}
		if c.Slug == "" {
			errs = append(errs, fmt.Errorf("%s: slug is empty", label))
		} else if prev, dup := seen[c.Slug]; dup {
			errs = append(errs, fmt.Errorf("%s: slug %q already used by card %d", label, c.Slug, prev))
		} else {
			seen[c.Slug] = i + 1
		}
		for _, attr := range engine.Attributes {
			if v, _ := c.Value(attr); v < 0 {
				errs = append(errs, fmt.Errorf("%s: %s cannot be negative", label, attr))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidSet, errors.Join(errs...))
	}
	return nil
}

// LoadCardFile reads, parses and validates one seed file.
func LoadCardFile(path string) (*CardSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read card file: %w", err)
	}
	set, err := ParseCardSet(data)
	if err != nil {
		return nil, err
	}
	if err := ValidateCardSet(set); err != nil {
		return nil, err
	}
	return set, nil
}

// Manager handles card set loading and caching from a directory
type Manager struct {
	dir  string
	sets map[string]*CardSet
	mu   sync.RWMutex
}

// NewManager creates a new card set manager
func NewManager(dir string) (*Manager, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, fmt.Errorf("cards directory does not exist: %s", dir)
	}
	return &Manager{
		dir:  dir,
		sets: make(map[string]*CardSet),
	}, nil
}

// LoadSet loads a card set by name, with or without the .json suffix.
func (m *Manager) LoadSet(name string) (*CardSet, error) {
	name = strings.TrimSuffix(name, ".json")

	m.mu.RLock()
	if set, exists := m.sets[name]; exists {
		m.mu.RUnlock()
		return set, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if set, exists := m.sets[name]; exists {
		return set, nil
	}

	set, err := LoadCardFile(filepath.Join(m.dir, name+".json"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSetNotFound, name)
		}
		return nil, err
	}

	m.sets[name] = set
	return set, nil
}

// ReloadSet drops a cached set and reads it again.
func (m *Manager) ReloadSet(name string) (*CardSet, error) {
	name = strings.TrimSuffix(name, ".json")
	m.mu.Lock()
	delete(m.sets, name)
	m.mu.Unlock()
	return m.LoadSet(name)
}

// ListSets returns information about every valid set in the directory.
func (m *Manager) ListSets() ([]*SetInfo, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read cards directory: %w", err)
	}

	var sets []*SetInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")

		set, err := m.LoadSet(id)
		if err != nil {
			// Skip invalid sets
			continue
		}
		sets = append(sets, &SetInfo{
			Filename:    entry.Name(),
			SetID:       id,
			Name:        set.Name,
			Description: set.Description,
			Cards:       len(set.Cards),
		})
	}
	return sets, nil
}
