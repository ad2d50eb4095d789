package main

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

	"github.com/wricardo/cricket-trumps/game/engine"
	"github.com/wricardo/cricket-trumps/game/service"
)

// Client talks to the REST API as one or more players.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if json.Unmarshal(data, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s response: %w", path, err)
	}
	return nil
}

func (c *Client) RequestMatch(ctx context.Context, player string) (*service.MatchStatus, error) {
	var status service.MatchStatus
	if err := c.do(ctx, http.MethodPost, "/api/match", map[string]string{"player": player}, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) Leave(ctx context.Context, player string) (*service.AbandonResult, error) {
	var result service.AbandonResult
	if err := c.do(ctx, http.MethodPost, "/api/leave", map[string]string{"player": player}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) State(ctx context.Context, gameID, player string) (*engine.StateView, error) {
	var state engine.StateView
	path := fmt.Sprintf("/api/games/%s/state?player=%s", url.PathEscape(gameID), url.QueryEscape(player))
	if err := c.do(ctx, http.MethodGet, path, nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (c *Client) PlayTurn(ctx context.Context, gameID, player string, attr engine.Attribute, turn int) (*service.TurnAck, error) {
	var ack service.TurnAck
	body := map[string]interface{}{"player": player, "attribute": attr, "turn": turn}
	if err := c.do(ctx, http.MethodPost, "/api/games/"+url.PathEscape(gameID)+"/turns", body, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

func (c *Client) Cards(ctx context.Context) ([]engine.Card, error) {
	var resp struct {
		Cards []engine.Card `json:"cards"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/cards", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Cards, nil
}
