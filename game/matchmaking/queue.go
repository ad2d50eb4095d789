package matchmaking

import (
	"errors"
	"sync"
	"time"
)

var ErrPlayerRequired = errors.New("player is required")

// State is the outcome of joining the queue.
type State string

const (
	Waiting State = "waiting"
	Paired  State = "paired"
)

// Slot is the single waiting seat.
type Slot struct {
	GameID string    `json:"game_id"`
	Player string    `json:"player"`
	Since  time.Time `json:"since"`
}

// Ticket is returned by Join. When State is Paired, Slot is the claimed
// waiting seat and the caller owns forming the match; Opponent is the player
// who was waiting. Expired is set when Join dropped a stale slot on the way.
type Ticket struct {
	State    State  `json:"state"`
	GameID   string `json:"game_id"`
	Opponent string `json:"opponent,omitempty"`
	Slot     Slot   `json:"-"`
	Expired  *Slot  `json:"-"`
}

// Queue is a single-slot waiting room. All transitions happen under one
// mutex.
type Queue struct {
	mu      sync.Mutex
	slot    *Slot
	timeout time.Duration
	now     func() time.Time
}

// Option configures a Queue.
type Option func(*Queue)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

// NewQueue returns an empty queue. A zero timeout disables expiry.
func NewQueue(timeout time.Duration, opts ...Option) *Queue {
	q := &Queue{timeout: timeout, now: time.Now}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Join puts player in the waiting slot or pairs them with whoever is there.
//
// When the slot is empty, onWait is called under the queue lock to create the
// pending game and must return its id; if it fails the slot stays empty.
// expired is the stale slot Join just dropped, or nil.
// When player is already waiting, the same game id is returned and the wait
// clock restarts. Otherwise the slot is claimed and cleared in one step.
func (q *Queue) Join(player string, onWait func(expired *Slot) (string, error)) (Ticket, error) {
	if player == "" {
		return Ticket{}, ErrPlayerRequired
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	var expired *Slot
	if q.slot != nil && q.stale(*q.slot, now) {
		stale := *q.slot
		expired = &stale
		q.slot = nil
	}

	switch {
	case q.slot == nil:
		gameID, err := onWait(expired)
		if err != nil {
			return Ticket{Expired: expired}, err
		}
		q.slot = &Slot{GameID: gameID, Player: player, Since: now}
		return Ticket{State: Waiting, GameID: gameID, Slot: *q.slot, Expired: expired}, nil

	case q.slot.Player == player:
		q.slot.Since = now
		return Ticket{State: Waiting, GameID: q.slot.GameID, Slot: *q.slot}, nil

	default:
		claimed := *q.slot
		q.slot = nil
		return Ticket{State: Paired, GameID: claimed.GameID, Opponent: claimed.Player, Slot: claimed}, nil
	}
}

// Restore puts a claimed slot back when forming the match failed. It only
// succeeds while the queue is empty.
func (q *Queue) Restore(slot Slot) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.slot != nil {
		return false
	}
	q.slot = &slot
	return true
}

// Leave removes player from the slot if they are waiting.
func (q *Queue) Leave(player string) (Slot, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.slot == nil || q.slot.Player != player {
		return Slot{}, false
	}
	left := *q.slot
	q.slot = nil
	return left, true
}

// Expire clears the slot if it has waited longer than the timeout at now.
func (q *Queue) Expire(now time.Time) (Slot, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.slot == nil || !q.stale(*q.slot, now) {
		return Slot{}, false
	}
	stale := *q.slot
	q.slot = nil
	return stale, true
}

// Waiting returns the current slot without changing it.
func (q *Queue) Waiting() (Slot, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.slot == nil {
		return Slot{}, false
	}
	return *q.slot, true
}

func (q *Queue) stale(s Slot, now time.Time) bool {
	return q.timeout > 0 && now.Sub(s.Since) > q.timeout
}
