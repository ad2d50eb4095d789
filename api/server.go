package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/wricardo/cricket-trumps/game/engine"
	"github.com/wricardo/cricket-trumps/game/service"
	"github.com/wricardo/cricket-trumps/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
	log     *zap.Logger
}

// NewServer creates a new API server. hub may be nil, which disables /ws.
func NewServer(gameService service.GameService, hub *websocket.Hub, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
		log:     logger,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Matchmaking
	api.HandleFunc("/match", s.handleRequestMatch).Methods("POST")
	api.HandleFunc("/match/{id}", s.handlePollMatch).Methods("GET")
	api.HandleFunc("/leave", s.handleLeave).Methods("POST")

	// Games
	api.HandleFunc("/games", s.handleListGames).Methods("GET")
	api.HandleFunc("/games/{id}/turns", s.handlePlayTurn).Methods("POST")
	api.HandleFunc("/games/{id}/result", s.handleTurnResult).Methods("GET")
	api.HandleFunc("/games/{id}/state", s.handleGameState).Methods("GET")

	// Catalog and players
	api.HandleFunc("/cards", s.handleListCards).Methods("GET")
	api.HandleFunc("/players/{player}/match", s.handleCurrentMatch).Methods("GET")
	api.HandleFunc("/players/{player}/history", s.handleHistory).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Error codes returned in the "code" field of error bodies.
const (
	CodeBadRequest         = "bad_request"
	CodeNotYourTurn        = "not_your_turn"
	CodeUnknownAttribute   = "unknown_attribute"
	CodeEmptyDeck          = "empty_deck"
	CodeSessionNotFound    = "session_not_found"
	CodeSelfMatch          = "self_match_rejected"
	CodeAlreadyMatched     = "already_matched"
	CodeStaleTurn          = "stale_turn"
	CodeNotParticipant     = "not_participant"
	CodeNoTurnPlayed       = "no_turn_played"
	CodeNoActiveGame       = "no_active_game"
	CodeStorageUnavailable = "storage_unavailable"
	CodeInternal           = "internal"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	GameID string `json:"game_id,omitempty"`
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// classify maps a service error to an HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, CodeStorageUnavailable
	case errors.Is(err, service.ErrPlayerRequired):
		return http.StatusBadRequest, CodeBadRequest
	case errors.Is(err, engine.ErrUnknownAttribute):
		return http.StatusBadRequest, CodeUnknownAttribute
	case errors.Is(err, engine.ErrNotYourTurn):
		return http.StatusConflict, CodeNotYourTurn
	case errors.Is(err, engine.ErrStaleTurn):
		return http.StatusConflict, CodeStaleTurn
	case errors.Is(err, engine.ErrEmptyDeck):
		return http.StatusConflict, CodeEmptyDeck
	case errors.Is(err, engine.ErrSelfMatch):
		return http.StatusConflict, CodeSelfMatch
	case errors.Is(err, engine.ErrAlreadyMatched):
		return http.StatusConflict, CodeAlreadyMatched
	case errors.Is(err, engine.ErrNotMatched):
		return http.StatusConflict, CodeSessionNotFound
	case errors.Is(err, engine.ErrNotParticipant):
		return http.StatusForbidden, CodeNotParticipant
	case errors.Is(err, engine.ErrNoTurnPlayed):
		return http.StatusNotFound, CodeNoTurnPlayed
	case errors.Is(err, service.ErrNoActiveGame):
		return http.StatusNotFound, CodeNoActiveGame
	case errors.Is(err, service.ErrSessionNotFound):
		return http.StatusNotFound, CodeSessionNotFound
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// respondServiceError writes the classified error body for err.
func (s *Server) respondServiceError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	body := ErrorResponse{Error: err.Error(), Code: code}

	var matched *service.AlreadyMatchedError
	if errors.As(err, &matched) {
		body.GameID = matched.GameID
	}
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("code", code), zap.Error(err))
	}
	respondJSON(w, status, body)
}

type playerRequest struct {
	Player string `json:"player"`
}

func decodePlayer(r *http.Request) (string, bool) {
	var req playerRequest
	if r.Body == nil {
		return "", false
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", false
	}
	return req.Player, strings.TrimSpace(req.Player) != ""
}

// Matchmaking Handlers

func (s *Server) handleRequestMatch(w http.ResponseWriter, r *http.Request) {
	player, ok := decodePlayer(r)
	if !ok {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "player is required")
		return
	}

	status, err := s.service.RequestMatch(r.Context(), player)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	code := http.StatusOK
	if status.State == service.StateWaiting {
		code = http.StatusAccepted
	}
	respondJSON(w, code, status)
}

func (s *Server) handlePollMatch(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["id"]

	status, err := s.service.PollMatch(r.Context(), gameID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleCurrentMatch(w http.ResponseWriter, r *http.Request) {
	player := mux.Vars(r)["player"]

	status, err := s.service.CurrentMatch(r.Context(), player)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	player, ok := decodePlayer(r)
	if !ok {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "player is required")
		return
	}

	result, err := s.service.Abandon(r.Context(), player)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Game Handlers

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	query := r.URL.Query()
	sortBy := query.Get("sort")    // "created" (default), "accessed"
	order := query.Get("order")    // "asc", "desc" (default)
	limitStr := query.Get("limit") // number of games to return

	if sortBy == "" {
		sortBy = "created"
	}
	if order == "" {
		order = "desc"
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "accessed" {
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		} else {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		}

		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	total := len(sessions)
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(sessions) {
			sessions = sessions[:l]
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(sessions),
		"total": total,
		"games": sessions,
		"sort":  sortBy,
		"order": order,
	})
}

func (s *Server) handlePlayTurn(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["id"]

	var req struct {
		Player    string `json:"player"`
		Attribute string `json:"attribute"`
		Turn      int    `json:"turn,omitempty"`
	}
	if r.Body == nil {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body")
		return
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Player) == "" || strings.TrimSpace(req.Attribute) == "" {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "player and attribute are required")
		return
	}
	if req.Turn < 0 {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "turn cannot be negative")
		return
	}

	ack, err := s.service.PlayTurn(r.Context(), gameID, req.Player, req.Attribute, req.Turn)
	if err != nil {
		s.log.Info("turn rejected",
			zap.String("game_id", gameID),
			zap.String("player", req.Player),
			zap.String("attribute", req.Attribute),
			zap.Error(err))
		s.respondServiceError(w, err)
		return
	}

	// Compact server log for observability
	s.log.Info("turn",
		zap.String("game_id", gameID),
		zap.Int("turn", ack.Turn),
		zap.String("player", ack.PlayedBy),
		zap.String("attribute", string(ack.Attribute)),
		zap.String("outcome", string(ack.Outcome)),
		zap.Int("cards", ack.YourCards),
		zap.Int("opponent_cards", ack.OpponentCards),
		zap.Bool("game_over", ack.GameOver),
		zap.Bool("replayed", ack.Replayed))

	respondJSON(w, http.StatusOK, ack)
}

func (s *Server) handleTurnResult(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["id"]
	player := r.URL.Query().Get("player")
	if strings.TrimSpace(player) == "" {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "player query parameter is required")
		return
	}

	view, err := s.service.GetTurnResult(r.Context(), gameID, player)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleGameState(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["id"]
	player := r.URL.Query().Get("player")
	if strings.TrimSpace(player) == "" {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "player query parameter is required")
		return
	}

	state, err := s.service.GetGameState(r.Context(), gameID, player)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

// Catalog and Player Handlers

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.service.ListCards(r.Context())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(cards),
		"cards": cards,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	player := mux.Vars(r)["player"]

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			respondError(w, http.StatusBadRequest, CodeBadRequest, "limit must be a positive integer")
			return
		}
		limit = l
	}

	history, err := s.service.MatchHistory(r.Context(), player, limit)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	wins := 0
	for _, h := range history {
		if h.Won {
			wins++
		}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"player":  service.NormalizePlayer(player),
		"count":   len(history),
		"wins":    wins,
		"losses":  len(history) - wins,
		"history": history,
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		respondError(w, http.StatusNotFound, CodeBadRequest, "websocket push is disabled")
		return
	}
	query := r.URL.Query()
	gameID, player := query.Get("game"), query.Get("player")
	if gameID == "" || player == "" {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "game and player parameters required")
		return
	}

	// Only participants of a live game may subscribe
	if _, err := s.service.GetGameState(r.Context(), gameID, player); err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.hub.ServeWS(w, r, gameID, player)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
