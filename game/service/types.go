package service

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/wricardo/cricket-trumps/game/engine"
)

// MatchState is the lifecycle stage reported to a caller polling a game.
type MatchState string

const (
	StateWaiting   MatchState = "waiting"
	StateMatched   MatchState = "matched"
	StateFinished  MatchState = "finished"
	StateAbandoned MatchState = "abandoned"
	StateExpired   MatchState = "expired"
)

// StarterPolicy decides who plays the first turn of a new match.
type StarterPolicy string

const (
	// StarterFirst gives the first turn to the player who was waiting.
	StarterFirst StarterPolicy = "first"
	// StarterRandom picks either player with equal probability.
	StarterRandom StarterPolicy = "random"
)

// Session is a live or finished game held by the session registry. The
// match is only touched under the session lock; the timestamps are atomic so
// the registry can read them without taking it.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu           sync.Mutex
	match        *engine.Match
	closed       bool
	state        MatchState
	winner       string
	forfeit      bool
	persisted    bool
	lastAccessed atomic.Int64
	finishedAt   atomic.Int64
}

// NewSession creates a pending session for the waiting player.
func NewSession(id, player string, now time.Time) *Session {
	s := &Session{
		ID:        id,
		CreatedAt: now,
		match:     engine.NewMatch(id, player),
		state:     StateWaiting,
	}
	s.lastAccessed.Store(now.UnixNano())
	return s
}

// Lock acquires the session lock.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session lock.
func (s *Session) Unlock() { s.mu.Unlock() }

// Match returns the underlying match. Callers must hold the session lock.
func (s *Session) Match() *engine.Match { return s.match }

// Closed reports whether the session has ended. Callers must hold the lock.
func (s *Session) Closed() bool { return s.closed }

// State returns the lifecycle stage. Callers must hold the lock.
func (s *Session) State() MatchState { return s.state }

// Touch records activity at now.
func (s *Session) Touch(now time.Time) { s.lastAccessed.Store(now.UnixNano()) }

// LastAccessed returns the time of the most recent activity.
func (s *Session) LastAccessed() time.Time { return time.Unix(0, s.lastAccessed.Load()) }

// FinishedAt returns when the session ended, zero while it is live.
func (s *Session) FinishedAt() time.Time {
	ns := s.finishedAt.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// close marks the session ended. Callers must hold the lock.
func (s *Session) close(state MatchState, now time.Time) {
	s.closed = true
	s.state = state
	s.finishedAt.Store(now.UnixNano())
}

// MatchStatus answers RequestMatch and PollMatch.
type MatchStatus struct {
	State     MatchState `json:"state"`
	GameID    string     `json:"game_id"`
	Player    string     `json:"player,omitempty"`
	Opponent  string     `json:"opponent,omitempty"`
	Players   []string   `json:"players,omitempty"`
	TurnOwner string     `json:"turn_owner,omitempty"`
	Winner    string     `json:"winner,omitempty"`
	Forfeit   bool       `json:"forfeit,omitempty"`
	Message   string     `json:"message"`
}

// TurnAck is the response to a played turn, from the requester's perspective.
type TurnAck struct {
	engine.TurnView
	Replayed  bool `json:"replayed,omitempty"`
	Persisted bool `json:"persisted"`
}

// AbandonResult describes what leaving did.
type AbandonResult struct {
	Player   string     `json:"player"`
	GameID   string     `json:"game_id,omitempty"`
	State    MatchState `json:"state,omitempty"`
	Winner   string     `json:"winner,omitempty"`
	Forfeit  bool       `json:"forfeit"`
	Recorded bool       `json:"recorded"`
	Message  string     `json:"message"`
}

// SessionInfo summarizes a live session for listings.
type SessionInfo struct {
	ID             string     `json:"id"`
	State          MatchState `json:"state"`
	Players        []string   `json:"players"`
	TurnOwner      string     `json:"turn_owner,omitempty"`
	TurnNumber     int        `json:"turn_number"`
	CardsA         int        `json:"cards_a"`
	CardsB         int        `json:"cards_b"`
	CreatedAt      time.Time  `json:"created_at"`
	LastAccessedAt time.Time  `json:"last_accessed_at"`
}

// GameResult is what the result sink persists for a finished game.
type GameResult struct {
	GameID     string    `json:"game_id"`
	Player1    string    `json:"player1"`
	Player2    string    `json:"player2"`
	Winner     string    `json:"winner"`
	Loser      string    `json:"loser"`
	Forfeit    bool      `json:"forfeit"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// HistoryEntry is one finished game seen from a player's side.
type HistoryEntry struct {
	GameID     string    `json:"game_id"`
	Opponent   string    `json:"opponent"`
	Won        bool      `json:"won"`
	Forfeit    bool      `json:"forfeit"`
	FinishedAt time.Time `json:"finished_at"`
}

// SweepReport counts what a maintenance pass removed.
type SweepReport struct {
	ExpiredWaiting  int `json:"expired_waiting"`
	ExpiredSessions int `json:"expired_sessions"`
	PrunedFinished  int `json:"pruned_finished"`
}

// Event is pushed to connected clients through a Notifier.
type Event struct {
	Type   string `json:"type"`
	GameID string `json:"game_id"`
	Data   any    `json:"data,omitempty"`
}

// Event types.
const (
	EventMatched    = "matched"
	EventTurnResult = "turn_result"
	EventGameOver   = "game_over"
	EventAbandoned  = "abandoned"
)
