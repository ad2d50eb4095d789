package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/cricket-trumps/game/engine"
	"github.com/wricardo/cricket-trumps/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Cricket Trumps",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Cricket Trumps - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Win every card. Two players split a shuffled deck of cricketer cards. On your
turn you pick one attribute of your top card; the higher value takes both cards.

AVAILABLE TOOLS:
- request_match: Join the queue (pairs you with the waiting player, if any)
- poll_match: Check whether a waiting game found an opponent
- current_match: Find your live game
- game_state: Your top card, deck sizes and whose turn it is
- play_turn: Pick an attribute of your top card - requires intent explanation
- turn_result: The last turn from your side
- leave_game: Leave the queue or forfeit your live game
- list_cards: The card catalog
- list_games: Live games
- match_history: Your finished games
- game_instructions: Full rules

Players are identified by email address.`),
	)

	// Register all tools
	c.registerTools()
}

func playerProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Your player id (email address)",
	}
}

func gameProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Game ID returned by request_match",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Matchmaking
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "request_match",
		Description: "Join matchmaking. Returns a matched game or a waiting game id to poll",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"player": playerProperty()},
			Required:   []string{"player"},
		},
	}, c.handleRequestMatch)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "poll_match",
		Description: "Check the status of a game (waiting, matched, finished, abandoned, expired)",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"game_id": gameProperty()},
			Required:   []string{"game_id"},
		},
	}, c.handlePollMatch)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "current_match",
		Description: "Find the live game a player is in",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"player": playerProperty()},
			Required:   []string{"player"},
		},
	}, c.handleCurrentMatch)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "leave_game",
		Description: "Leave the waiting queue, or forfeit your live game to your opponent",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"player": playerProperty()},
			Required:   []string{"player"},
		},
	}, c.handleLeaveGame)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get your view of a game: top card, deck sizes, whose turn",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"game_id": gameProperty(),
				"player":  playerProperty(),
			},
			Required: []string{"game_id", "player"},
		},
	}, c.handleGameState)

	attributes := make([]string, 0, len(engine.Attributes))
	for _, a := range engine.Attributes {
		attributes = append(attributes, string(a))
	}
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "play_turn",
		Description: "Play your top card on one attribute. Only the turn owner may play",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"game_id": gameProperty(),
				"player":  playerProperty(),
				"attribute": map[string]interface{}{
					"type":        "string",
					"enum":        attributes,
					"description": "Attribute to compare",
				},
				"turn": map[string]interface{}{
					"type":        "integer",
					"description": "Turn number you are playing (turn_number + 1). Resending the same turn after a lost response returns the stored result (optional)",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of why you picked this attribute (serves as a rubber duck to help explain your reasoning)",
				},
			},
			Required: []string{"game_id", "player", "attribute"},
		},
	}, c.handlePlayTurn)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "turn_result",
		Description: "Get the last resolved turn from your side",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"game_id": gameProperty(),
				"player":  playerProperty(),
			},
			Required: []string{"game_id", "player"},
		},
	}, c.handleTurnResult)

	// Listings
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_cards",
		Description: "List the card catalog",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListCards)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_games",
		Description: "List live games",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListGames)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "match_history",
		Description: "List a player's finished games, newest first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"player": playerProperty(),
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum games to return (default 20, max 100)",
				},
			},
			Required: []string{"player"},
		},
	}, c.handleMatchHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the complete rules of Cricket Trumps",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// apiError is the REST API error body.
type apiError struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	GameID string `json:"game_id"`
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp apiError
		json.NewDecoder(resp.Body).Decode(&errResp)
		switch {
		case errResp.Code != "" && errResp.GameID != "":
			return fmt.Errorf("%s: %s (game %s)", errResp.Code, errResp.Error, errResp.GameID)
		case errResp.Code != "":
			return fmt.Errorf("%s: %s", errResp.Code, errResp.Error)
		case errResp.Error != "":
			return fmt.Errorf("%s", errResp.Error)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func gamePath(gameID, suffix string) string {
	return "/api/games/" + url.PathEscape(gameID) + suffix
}

// Tool handlers

func (c *Client) handleRequestMatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	player := request.GetString("player", "")

	var status service.MatchStatus
	if err := c.apiCall(ctx, "POST", "/api/match", map[string]string{"player": player}, &status); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatMatchStatus(&status)), nil
}

func (c *Client) handlePollMatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	gameID := request.GetString("game_id", "")

	var status service.MatchStatus
	if err := c.apiCall(ctx, "GET", "/api/match/"+url.PathEscape(gameID), nil, &status); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatMatchStatus(&status)), nil
}

func (c *Client) handleCurrentMatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	player := request.GetString("player", "")

	var status service.MatchStatus
	if err := c.apiCall(ctx, "GET", "/api/players/"+url.PathEscape(player)+"/match", nil, &status); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatMatchStatus(&status)), nil
}

func (c *Client) handleLeaveGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	player := request.GetString("player", "")

	var result service.AbandonResult
	if err := c.apiCall(ctx, "POST", "/api/leave", map[string]string{"player": player}, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatAbandon(&result)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	gameID := request.GetString("game_id", "")
	player := request.GetString("player", "")

	var state engine.StateView
	if err := c.apiCall(ctx, "GET", gamePath(gameID, "/state?player="+url.QueryEscape(player)), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatState(&state)), nil
}

func (c *Client) handlePlayTurn(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	gameID := request.GetString("game_id", "")
	body := map[string]interface{}{
		"player":    request.GetString("player", ""),
		"attribute": request.GetString("attribute", ""),
	}
	if turn := request.GetInt("turn", 0); turn > 0 {
		body["turn"] = turn
	}
	// Intent parameter serves as rubber duck debugging - we don't need to process it further

	var ack service.TurnAck
	if err := c.apiCall(ctx, "POST", gamePath(gameID, "/turns"), body, &ack); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatTurnAck(&ack)), nil
}

func (c *Client) handleTurnResult(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	gameID := request.GetString("game_id", "")
	player := request.GetString("player", "")

	var view engine.TurnView
	if err := c.apiCall(ctx, "GET", gamePath(gameID, "/result?player="+url.QueryEscape(player)), nil, &view); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatTurnView(&view)), nil
}

func (c *Client) handleListCards(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var resp struct {
		Cards []engine.Card `json:"cards"`
	}
	if err := c.apiCall(ctx, "GET", "/api/cards", nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatCards(resp.Cards)), nil
}

func (c *Client) handleListGames(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var resp struct {
		Games []*service.SessionInfo `json:"games"`
	}
	if err := c.apiCall(ctx, "GET", "/api/games", nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatGames(resp.Games)), nil
}

func (c *Client) handleMatchHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	player := request.GetString("player", "")
	path := "/api/players/" + url.PathEscape(player) + "/history"
	if limit := request.GetInt("limit", 0); limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}

	var resp struct {
		Player  string                 `json:"player"`
		Wins    int                    `json:"wins"`
		Losses  int                    `json:"losses"`
		History []service.HistoryEntry `json:"history"`
	}
	if err := c.apiCall(ctx, "GET", path, nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatHistory(resp.Player, resp.Wins, resp.Losses, resp.History)), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `Cricket Trumps - Complete Instructions

GAME OBJECTIVE:
Collect every card. The game ends when one player holds all the cards.

SETUP:
• Call request_match with your email. If nobody is waiting you get a game id
  in state "waiting"; call poll_match until it says "matched".
• The shuffled catalog is split in half. Each player only sees their own top card.

TURNS:
• The player named in turn_owner picks one attribute of their top card.
• Both top cards are compared on that attribute. Higher value wins.
• The winner puts their own card, then the opponent's card, at the bottom of
  their deck and plays again.
• A tie is a draw: each card goes to the bottom of its owner's deck and the
  turn passes to the other player.

ATTRIBUTES:
• power          - overall rating
• strike_rate    - batting strike rate
• wickets        - career wickets
• matches_played - career matches
• runs_scored    - career runs
• highest_score  - best individual innings

RETRIES:
• game_state shows turn_number. Pass turn = turn_number + 1 to play_turn.
  If the response is lost, send exactly the same request again: you get the
  stored result and no second turn is played.

LEAVING:
• leave_game while waiting just removes you from the queue.
• leave_game during a live game forfeits it; your opponent is recorded as winner.

STRATEGY TIPS:
• Compare your top card against typical catalog ranges (list_cards).
• Bowlers usually dominate wickets, batters runs_scored and highest_score.
• Explain your choice with the intent parameter of play_turn.`

	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func formatMatchStatus(status *service.MatchStatus) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Game %s: %s\n", status.GameID, status.State)
	if status.Opponent != "" {
		fmt.Fprintf(&b, "Opponent: %s\n", status.Opponent)
	}
	if status.TurnOwner != "" {
		fmt.Fprintf(&b, "Turn: %s\n", status.TurnOwner)
	}
	if status.Winner != "" {
		fmt.Fprintf(&b, "Winner: %s", status.Winner)
		if status.Forfeit {
			b.WriteString(" (forfeit)")
		}
		b.WriteString("\n")
	}
	if status.Message != "" {
		b.WriteString(status.Message)
		b.WriteString("\n")
	}
	return b.String()
}

func formatAbandon(result *service.AbandonResult) string {
	var b strings.Builder
	b.WriteString(result.Message)
	if result.GameID != "" {
		fmt.Fprintf(&b, "\nGame: %s", result.GameID)
	}
	if result.Forfeit {
		fmt.Fprintf(&b, "\nForfeited to %s (recorded: %v)", result.Winner, result.Recorded)
	}
	return b.String()
}

func formatCard(c engine.Card) string {
	return fmt.Sprintf("%s [power %d, strike_rate %.1f, wickets %d, matches_played %d, runs_scored %d, highest_score %d]",
		c.Name, c.Power, c.StrikeRate, c.Wickets, c.MatchesPlayed, c.RunsScored, c.HighestScore)
}

func formatState(state *engine.StateView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Game %s (turn %d)\n", state.GameID, state.TurnNumber)
	if !state.Matched {
		b.WriteString("Waiting for an opponent.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "You: %s (%d cards) vs %s (%d cards)\n", state.Player, state.YourCards, state.Opponent, state.OpponentCards)
	if !state.Active {
		fmt.Fprintf(&b, "Game over. Winner: %s\n", state.Winner)
		return b.String()
	}
	if state.TopCard != nil {
		fmt.Fprintf(&b, "Your top card: %s\n", formatCard(*state.TopCard))
	}
	if state.YourTurn {
		fmt.Fprintf(&b, "Your turn. Play with turn=%d.\n", state.TurnNumber+1)
	} else {
		fmt.Fprintf(&b, "Waiting for %s to play.\n", state.TurnOwner)
	}
	return b.String()
}

func formatTurnView(view *engine.TurnView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Turn %d: %s chose %s -> you %s\n", view.Turn, view.PlayedBy, view.Attribute, strings.ToUpper(string(view.Outcome)))
	fmt.Fprintf(&b, "Your card: %s (%g)\n", view.YourCard.Name, view.YourValue)
	fmt.Fprintf(&b, "Opponent card: %s (%g)\n", view.OpponentCard.Name, view.OpponentValue)
	fmt.Fprintf(&b, "Cards: you %d, opponent %d\n", view.YourCards, view.OpponentCards)
	switch {
	case view.GameOver && view.YouWon:
		b.WriteString("GAME OVER - you won!\n")
	case view.GameOver:
		fmt.Fprintf(&b, "GAME OVER - %s won.\n", view.OverallWinner)
	case view.YourTurn:
		b.WriteString("Your turn next.\n")
	default:
		fmt.Fprintf(&b, "Next turn: %s\n", view.NextTurn)
	}
	return b.String()
}

func formatTurnAck(ack *service.TurnAck) string {
	text := formatTurnView(&ack.TurnView)
	if ack.Replayed {
		text += "(stored result of an earlier identical request)\n"
	}
	if ack.GameOver && !ack.Persisted {
		text += "Warning: the result could not be saved to history.\n"
	}
	return text
}

func formatCards(cards []engine.Card) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d cards:\n", len(cards))
	for _, c := range cards {
		b.WriteString("- ")
		b.WriteString(formatCard(c))
		b.WriteString("\n")
	}
	return b.String()
}

func formatGames(games []*service.SessionInfo) string {
	if len(games) == 0 {
		return "No live games."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d live games:\n", len(games))
	for _, g := range games {
		fmt.Fprintf(&b, "- %s [%s] %s turn %d (%d vs %d cards)\n",
			g.ID, g.State, strings.Join(g.Players, " vs "), g.TurnNumber, g.CardsA, g.CardsB)
	}
	return b.String()
}

func formatHistory(player string, wins, losses int, history []service.HistoryEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d wins, %d losses\n", player, wins, losses)
	for _, h := range history {
		result := "lost"
		if h.Won {
			result = "won"
		}
		if h.Forfeit {
			result += " by forfeit"
		}
		fmt.Fprintf(&b, "- %s vs %s: %s (%s)\n", h.GameID, h.Opponent, result, h.FinishedAt.Format(time.RFC3339))
	}
	return b.String()
}
