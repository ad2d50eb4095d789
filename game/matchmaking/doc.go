// Package matchmaking pairs players through a single waiting slot.
//
// The queue moves between EMPTY and WAITING(game, player). A second, different
// player claims the slot and leaves it EMPTY; the caller then deals the decks.
// If dealing fails the claimed slot can be restored. A slot that waits longer
// than the configured timeout is dropped by Expire or by the next Join.
package matchmaking
