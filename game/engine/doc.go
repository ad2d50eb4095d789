// Package engine provides the core rules of the cricket trumps card game.
//
// The engine package implements:
//   - Cards and the closed set of comparable attributes
//   - Deck partitioning into two shuffled halves
//   - Turn resolution, card transfer and turn rotation
//   - Game-over detection and per-player views of a match
//
// Core Types:
//
// Match is the state machine for a single game. A Partitioner deals a card
// catalog into the two starting decks. TurnResult records one resolved turn,
// and TurnView/StateView project a match onto one player's perspective so
// the opponent's deck is never exposed.
//
// Usage:
//
//	p := engine.NewPartitioner(0)
//	deckA, deckB, err := p.Partition(catalog)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	m := engine.NewMatch(gameID, "alice@example.com")
//	if err := m.Join("bob@example.com", deckA, deckB, "alice@example.com"); err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := m.PlayTurn("alice@example.com", engine.Power, 0)
//
// Game Rules:
//
// The turn owner picks an attribute and both top cards are compared. The
// strictly greater value wins both cards, which go to the bottom of the
// winner's deck (the winner's own card first) and the winner plays again.
// Equal values are a draw: each card goes to the bottom of its owner's deck
// and the turn passes to the other player. A player whose deck runs out
// loses the match.
package engine
