// Package session provides the registry of game sessions.
//
// The session package implements:
//   - Thread-safe storage and retrieval of live sessions by game ID
//   - A player index so a player is seated in at most one live game
//   - Finished-game retention so final results stay readable after eviction
//   - Idle session cleanup
//
// Core Types:
//
// Manager is the registry. It stores *service.Session values and is the
// single source of truth for whether a game is live: Get only sees live
// sessions, Evict moves a session to the finished set, and Finished reads
// from it until PruneFinished drops it.
//
// Concurrency:
//
// All registry state sits behind one RWMutex. The registry never takes a
// session's own lock, so callers may evict or bind while holding it.
//
// Usage:
//
//	registry := session.NewManager()
//
//	sess := service.NewSession(gameID, "alice@example.com", time.Now())
//	if err := registry.Create(sess); err != nil {
//		log.Fatal(err)
//	}
//
//	live, err := registry.Get(gameID)
//
// Game IDs are case-insensitive.
package session
