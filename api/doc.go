// Package api provides HTTP REST API handlers for the cricket trumps match
// server.
//
// The api package implements:
//   - Matchmaking endpoints (request, poll, leave, current match)
//   - Turn play and per-player turn results and game state
//   - Card catalog and match history listings
//   - WebSocket upgrade for push notifications
//
// Endpoints:
//
// Matchmaking:
//   - POST /api/match {player} - Request a match (200 matched, 202 waiting)
//   - GET /api/match/{id} - Poll a game
//   - POST /api/leave {player} - Leave the queue or forfeit the live game
//   - GET /api/players/{player}/match - The player's live game, if any
//
// Games:
//   - GET /api/games - Live games (sort=created|accessed, order, limit)
//   - POST /api/games/{id}/turns {player, attribute, turn?} - Play a turn
//   - GET /api/games/{id}/result?player= - Last turn from the player's side
//   - GET /api/games/{id}/state?player= - Current state from the player's side
//
// Catalog and history:
//   - GET /api/cards - Card catalog
//   - GET /api/players/{player}/history?limit= - Finished games, newest first
//
// Other:
//   - GET /ws?game=&player= - WebSocket events for one participant
//   - GET /healthz - Liveness
//
// The optional "turn" field of a play request is the turn number the client
// believes it is playing. Resending the same request after a lost response
// returns the stored result instead of playing again.
//
// Error Handling:
//
// Errors are returned as JSON with an HTTP status and a machine code:
//
//	{
//	  "error": "not your turn",
//	  "code": "not_your_turn"
//	}
//
// Codes: bad_request, not_your_turn, unknown_attribute, empty_deck,
// session_not_found, self_match_rejected, already_matched (with game_id),
// stale_turn, not_participant, no_turn_played, no_active_game,
// storage_unavailable, internal.
package api
