// Package websocket provides WebSocket push notifications for cricket trumps
// games.
//
// The websocket package implements:
//   - Per game and per player subscriptions
//   - Delivery of service events (matched, turn_result, game_over, abandoned)
//   - Connection lifecycle management with ping/pong keepalive
//
// Architecture:
//
// A central Hub owns all connections. Each connection runs a read pump and a
// write pump goroutine. The Hub implements service.Notifier, so the game
// service hands it events addressed to one player of one game and the hub
// forwards them only to that player's connections. A turn result therefore
// carries the requester's own perspective and never reveals the opponent's
// next card.
//
// Message Protocol:
//
// Outgoing messages are JSON:
//
//	{"game_id": "…", "player": "ana@x.io", "event": "turn_result", "data": {…}}
//
// Incoming messages are ignored.
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	go hub.Run(ctx)
//
//	svc := service.NewGameService(sessions, queue, store, service.Options{Notifier: hub})
//	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("game"), r.URL.Query().Get("player"))
//	})
//
// Concurrency:
//
// Notify never blocks: events go through a buffered queue and are dropped
// with a warning when it is full. The service calls Notify while holding a
// session lock.
package websocket
