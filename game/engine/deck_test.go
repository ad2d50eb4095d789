package engine

import (
	"errors"
	"testing"
)

func testCatalog(n int) []Card {
	cards := make([]Card, n)
	for i := range cards {
		cards[i] = Card{ID: int64(i + 1), Name: "player", Power: i}
	}
	return cards
}

func TestPartitionCoverage(t *testing.T) {
	sizes := []int{1, 2, 3, 7, 20, 31}

	for _, n := range sizes {
		catalog := testCatalog(n)
		p := NewPartitioner(uint64(n))

		deckA, deckB, err := p.Partition(catalog)
		if err != nil {
			t.Fatalf("n=%d: Partition failed: %v", n, err)
		}

		if deckA.Len() != n/2 || deckB.Len() != n-n/2 {
			t.Errorf("n=%d: expected sizes %d/%d, got %d/%d", n, n/2, n-n/2, deckA.Len(), deckB.Len())
		}

		seen := make(map[int64]bool)
		for _, id := range append(deckA.IDs(), deckB.IDs()...) {
			if seen[id] {
				t.Errorf("n=%d: card %d dealt twice", n, id)
			}
			seen[id] = true
		}
		if len(seen) != n {
			t.Errorf("n=%d: expected %d distinct cards, got %d", n, n, len(seen))
		}
	}
}

func TestPartitionDoesNotMutateCatalog(t *testing.T) {
	catalog := testCatalog(10)
	p := NewPartitioner(7)
	if _, _, err := p.Partition(catalog); err != nil {
		t.Fatalf("Partition failed: %v", err)
	}
	for i, c := range catalog {
		if c.ID != int64(i+1) {
			t.Fatalf("Catalog reordered at %d: got id %d", i, c.ID)
		}
	}
}

func TestPartitionEmptyCatalog(t *testing.T) {
	p := NewPartitioner(1)
	if _, _, err := p.Partition(nil); !errors.Is(err, ErrEmptyCatalog) {
		t.Errorf("Expected ErrEmptyCatalog, got %v", err)
	}
}

func TestPartitionFairness(t *testing.T) {
	const (
		n      = 10
		rounds = 4000
	)
	catalog := testCatalog(n)
	p := NewPartitioner(2024)

	inA := make(map[int64]int)
	for i := 0; i < rounds; i++ {
		deckA, _, err := p.Partition(catalog)
		if err != nil {
			t.Fatalf("Partition failed: %v", err)
		}
		for _, id := range deckA.IDs() {
			inA[id]++
		}
	}

	// Each card should land in deck A about half the time.
	for _, c := range catalog {
		share := float64(inA[c.ID]) / rounds
		if share < 0.44 || share > 0.56 {
			t.Errorf("Card %d landed in deck A %.2f of the time", c.ID, share)
		}
	}
}

func TestPartitionSeedIsDeterministic(t *testing.T) {
	catalog := testCatalog(16)
	a1, _, _ := NewPartitioner(99).Partition(catalog)
	a2, _, _ := NewPartitioner(99).Partition(catalog)

	ids1, ids2 := a1.IDs(), a2.IDs()
	for i := range ids1 {
		if ids1[i] != ids2[i] {
			t.Fatalf("Expected identical deals for the same seed, differ at %d", i)
		}
	}
}

func TestDeckOperations(t *testing.T) {
	d := NewDeck(powerCard(1, 1), powerCard(2, 2), powerCard(3, 3))

	top, ok := d.Top()
	if !ok || top.ID != 1 {
		t.Fatalf("Expected top card 1, got %+v", top)
	}

	d.rotate()
	if got := d.IDs(); got[0] != 2 || got[2] != 1 {
		t.Errorf("Expected [2 3 1] after rotate, got %v", got)
	}

	c := d.pop()
	d.push(c)
	if got := d.IDs(); got[0] != 3 || got[2] != 2 {
		t.Errorf("Expected [3 1 2] after pop/push, got %v", got)
	}

	cards := d.Cards()
	cards[0].Power = 999
	if top, _ := d.Top(); top.Power == 999 {
		t.Error("Cards() must return a copy")
	}

	var empty Deck
	if _, ok := empty.Top(); ok {
		t.Error("Expected no top card on an empty deck")
	}
}
