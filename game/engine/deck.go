package engine

import (
	"math/rand/v2"
	"sync"
)

// Deck is an ordered pile of cards; index 0 is the top card.
type Deck struct {
	cards []Card
}

// NewDeck builds a deck from cards, top card first. The slice is copied.
func NewDeck(cards ...Card) Deck {
	out := make([]Card, len(cards))
	copy(out, cards)
	return Deck{cards: out}
}

// Len returns the number of cards in the deck.
func (d Deck) Len() int {
	return len(d.cards)
}

// Top returns the card that will be played next.
func (d Deck) Top() (Card, bool) {
	if len(d.cards) == 0 {
		return Card{}, false
	}
	return d.cards[0], true
}

// Cards returns a copy of the deck contents, top card first.
func (d Deck) Cards() []Card {
	out := make([]Card, len(d.cards))
	copy(out, d.cards)
	return out
}

// IDs returns the card ids in deck order.
func (d Deck) IDs() []int64 {
	ids := make([]int64, len(d.cards))
	for i, c := range d.cards {
		ids[i] = c.ID
	}
	return ids
}

func (d *Deck) pop() Card {
	c := d.cards[0]
	d.cards = d.cards[1:]
	return c
}

func (d *Deck) push(cards ...Card) {
	d.cards = append(d.cards, cards...)
}

// rotate moves the top card to the bottom.
func (d *Deck) rotate() {
	if len(d.cards) > 1 {
		d.push(d.pop())
	}
}

// Partitioner deals a catalog into two shuffled decks. It is safe for
// concurrent use.
type Partitioner struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewPartitioner returns a partitioner seeded with seed. A zero seed picks a
// random one.
func NewPartitioner(seed uint64) *Partitioner {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Partitioner{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Partition shuffles a copy of catalog and splits it at the midpoint: the
// first half becomes deck A, the rest deck B. The catalog is not modified.
func (p *Partitioner) Partition(catalog []Card) (Deck, Deck, error) {
	if len(catalog) == 0 {
		return Deck{}, Deck{}, ErrEmptyCatalog
	}

	shuffled := make([]Card, len(catalog))
	copy(shuffled, catalog)

	p.mu.Lock()
	p.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	p.mu.Unlock()

	mid := len(shuffled) / 2
	return NewDeck(shuffled[:mid]...), NewDeck(shuffled[mid:]...), nil
}

// Intn returns a random int in [0, n) from the partitioner's source.
func (p *Partitioner) Intn(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.IntN(n)
}
