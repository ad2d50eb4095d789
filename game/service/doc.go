// Package service provides the business logic layer for the cricket trumps
// match server.
//
// The service package implements:
//   - Matchmaking through a single waiting slot
//   - Match formation: catalog load, deck partitioning and starter choice
//   - Turn processing with per-game serialization and idempotent retries
//   - Game-over handling: eviction, result recording and card statistics
//   - Abandonment, idle expiry and finished-game retention
//
// Core Interfaces:
//
// GameService is the main service interface used by the HTTP, WebSocket and
// MCP transports. SessionManager is the session registry it relies on.
// CardCatalog, ResultSink and HistoryStore are the storage collaborators,
// grouped as Store; CardStatsRecorder is optional. Notifier receives
// per-player events for push transports.
//
// Architecture:
//
// Each Session wraps an engine.Match behind its own mutex, so turns in one
// game never block another. The registry and the queue have their own locks
// and never call back into a session, which keeps lock order one way:
// session, then registry or queue.
//
// Usage:
//
//	registry := session.NewManager()
//	queue := matchmaking.NewQueue(2 * time.Minute)
//	svc := service.NewGameService(registry, queue, store, service.Options{Logger: logger})
//
//	status, err := svc.RequestMatch(ctx, "alice@example.com")
//
// Persistence:
//
// A failure to record a result never rolls back the game. The turn completes
// in memory and the acknowledgement carries persisted=false.
package service
