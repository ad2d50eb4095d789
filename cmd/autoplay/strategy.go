package main

import (
	"math/rand/v2"

	"github.com/wricardo/cricket-trumps/game/engine"
)

// Strategy picks the attribute to call for the top card.
type Strategy interface {
	Choose(top engine.Card) engine.Attribute
}

// RankStrategy calls the attribute on which the card beats the largest share
// of the catalog. Only the own card is visible, so catalog rank is the best
// available estimate of winning.
type RankStrategy struct {
	catalog []engine.Card
}

func NewRankStrategy(catalog []engine.Card) *RankStrategy {
	return &RankStrategy{catalog: catalog}
}

func (s *RankStrategy) Choose(top engine.Card) engine.Attribute {
	best, bestRank := engine.Attributes[0], -1.0
	for _, attr := range engine.Attributes {
		if r := s.Rank(top, attr); r > bestRank {
			best, bestRank = attr, r
		}
	}
	return best
}

// Rank returns the fraction of catalog cards that c beats on attr.
func (s *RankStrategy) Rank(c engine.Card, attr engine.Attribute) float64 {
	if len(s.catalog) == 0 {
		return 0
	}
	v, _ := c.Value(attr)
	beaten := 0
	for _, other := range s.catalog {
		if ov, _ := other.Value(attr); v > ov {
			beaten++
		}
	}
	return float64(beaten) / float64(len(s.catalog))
}

// RandomStrategy calls a uniformly random attribute.
type RandomStrategy struct {
	rng *rand.Rand
}

func NewRandomStrategy(seed uint64) *RandomStrategy {
	return &RandomStrategy{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *RandomStrategy) Choose(engine.Card) engine.Attribute {
	return engine.Attributes[s.rng.IntN(len(engine.Attributes))]
}
