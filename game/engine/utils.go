package engine

import "sort"

// AttributeRange returns the minimum and maximum value of attr over cards.
func AttributeRange(cards []Card, attr Attribute) (float64, float64, bool) {
	if len(cards) == 0 {
		return 0, 0, false
	}
	lo, _ := cards[0].Value(attr)
	hi := lo
	for _, c := range cards[1:] {
		v, _ := c.Value(attr)
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi, true
}

// TieRate returns the fraction of distinct card pairs that compare equal on attr.
func TieRate(cards []Card, attr Attribute) float64 {
	pairs, ties := 0, 0
	for i := 0; i < len(cards); i++ {
		vi, _ := cards[i].Value(attr)
		for j := i + 1; j < len(cards); j++ {
			vj, _ := cards[j].Value(attr)
			pairs++
			if vi == vj {
				ties++
			}
		}
	}
	if pairs == 0 {
		return 0
	}
	return float64(ties) / float64(pairs)
}

// TopCards returns up to n cards with the highest attr value, best first.
// Equal values keep catalog order.
func TopCards(cards []Card, attr Attribute, n int) []Card {
	sorted := make([]Card, len(cards))
	copy(sorted, cards)
	sort.SliceStable(sorted, func(i, j int) bool {
		vi, _ := sorted[i].Value(attr)
		vj, _ := sorted[j].Value(attr)
		return vi > vj
	})
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// BestAttribute returns the attribute on which c beats the most other cards
// in the catalog, along with that win count.
func BestAttribute(c Card, catalog []Card) (Attribute, int) {
	best, bestWins := Attributes[0], -1
	for _, attr := range Attributes {
		v, _ := c.Value(attr)
		wins := 0
		for _, other := range catalog {
			if other.ID == c.ID && other.Slug == c.Slug {
				continue
			}
			ov, _ := other.Value(attr)
			if v > ov {
				wins++
			}
		}
		if wins > bestWins {
			best, bestWins = attr, wins
		}
	}
	return best, bestWins
}

// CountCards returns the number of cards across decks.
func CountCards(decks ...Deck) int {
	n := 0
	for _, d := range decks {
		n += d.Len()
	}
	return n
}
