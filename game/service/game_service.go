package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wricardo/cricket-trumps/game/engine"
)

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrPlayerRequired     = errors.New("player is required")
	ErrNoActiveGame       = errors.New("no active game found")
)

// AlreadyMatchedError is returned when a player asks for a match while a
// live game already holds them.
type AlreadyMatchedError struct {
	GameID string
}

func (e *AlreadyMatchedError) Error() string {
	return fmt.Sprintf("player is already in game %s", e.GameID)
}

// Unwrap lets errors.Is match engine.ErrAlreadyMatched.
func (e *AlreadyMatchedError) Unwrap() error { return engine.ErrAlreadyMatched }

// GameService defines all game-related operations
type GameService interface {
	// Matchmaking
	RequestMatch(ctx context.Context, player string) (*MatchStatus, error)
	PollMatch(ctx context.Context, gameID string) (*MatchStatus, error)
	CurrentMatch(ctx context.Context, player string) (*MatchStatus, error)
	Abandon(ctx context.Context, player string) (*AbandonResult, error)

	// Turns
	PlayTurn(ctx context.Context, gameID, player, attribute string, seq int) (*TurnAck, error)
	GetTurnResult(ctx context.Context, gameID, player string) (*engine.TurnView, error)
	GetGameState(ctx context.Context, gameID, player string) (*engine.StateView, error)

	// Listings
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	ListCards(ctx context.Context) ([]engine.Card, error)
	MatchHistory(ctx context.Context, player string, limit int) ([]HistoryEntry, error)

	// Maintenance
	Sweep(ctx context.Context) SweepReport
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(session *Session) error
	Get(id string) (*Session, error)
	FindByPlayer(player string) (*Session, bool)
	Bind(id, player string) error
	Evict(id string) (*Session, bool)
	Finished(id string) (*Session, bool)
	PruneFinished(olderThan time.Duration) int
	CleanupIdle(maxIdle time.Duration) []*Session
	List() []*Session
	Count() int
}

// CardCatalog is the read-only source of playable cards.
type CardCatalog interface {
	ListCards(ctx context.Context) ([]engine.Card, error)
}

// ResultSink durably records finished games.
type ResultSink interface {
	RecordResult(ctx context.Context, result GameResult) error
}

// HistoryStore answers per-player match history.
type HistoryStore interface {
	MatchHistory(ctx context.Context, player string, limit int) ([]HistoryEntry, error)
}

// CardStatsRecorder counts which card won on which attribute. Stores may
// implement it optionally.
type CardStatsRecorder interface {
	RecordCardWin(ctx context.Context, cardID int64, attr engine.Attribute) error
}

// Store is the storage collaborator the service needs.
type Store interface {
	CardCatalog
	ResultSink
	HistoryStore
}

// Notifier pushes events to one player of a game.
type Notifier interface {
	Notify(gameID, player string, event Event)
}
