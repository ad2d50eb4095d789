// Package mcp provides a Model Context Protocol server for cricket trumps.
//
// The mcp package implements:
//   - MCP tools for AI agents that proxy to the REST API
//   - Text formatting of match status, turns, state and history
//   - Stdio and HTTP transport modes (wired in main)
//
// MCP Tools:
//   - request_match, poll_match, current_match, leave_game
//   - game_state, play_turn, turn_result
//   - list_cards, list_games, match_history
//   - game_instructions
//
// Every game tool takes the caller's player id, so one agent can play both
// sides of a game or several games at once.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//
//	// Stdio mode
//	server.ServeStdio(client.GetMCPServer())
//
//	// HTTP mode
//	resp := client.GetMCPServer().HandleMessage(ctx, rawJSON)
package mcp
