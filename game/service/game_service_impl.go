package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wricardo/cricket-trumps/game/engine"
	"github.com/wricardo/cricket-trumps/game/matchmaking"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
	pairingAttempts     = 3
)

// Options tunes the game service. Zero values get sensible defaults.
type Options struct {
	Logger            *zap.Logger
	Partitioner       *engine.Partitioner
	Starter           StarterPolicy
	Notifier          Notifier
	IdleTTL           time.Duration
	FinishedRetention time.Duration
	Now               func() time.Time
	NewID             func() string
}

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions  SessionManager
	queue     *matchmaking.Queue
	store     Store
	stats     CardStatsRecorder
	log       *zap.Logger
	deal      *engine.Partitioner
	starter   StarterPolicy
	notifier  Notifier
	idleTTL   time.Duration
	retention time.Duration
	now       func() time.Time
	newID     func() string
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, queue *matchmaking.Queue, store Store, opts Options) GameService {
	s := &gameServiceImpl{
		sessions:  sessions,
		queue:     queue,
		store:     store,
		log:       opts.Logger,
		deal:      opts.Partitioner,
		starter:   opts.Starter,
		notifier:  opts.Notifier,
		idleTTL:   opts.IdleTTL,
		retention: opts.FinishedRetention,
		now:       opts.Now,
		newID:     opts.NewID,
	}
	if rec, ok := store.(CardStatsRecorder); ok {
		s.stats = rec
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.deal == nil {
		s.deal = engine.NewPartitioner(0)
	}
	if s.starter == "" {
		s.starter = StarterFirst
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

// NormalizePlayer canonicalizes a caller-supplied player identity.
func NormalizePlayer(player string) string {
	return strings.ToLower(strings.TrimSpace(player))
}

// RequestMatch seats player in the waiting room or pairs them with the
// player already waiting.
func (s *gameServiceImpl) RequestMatch(ctx context.Context, player string) (*MatchStatus, error) {
	player = NormalizePlayer(player)
	if player == "" {
		return nil, ErrPlayerRequired
	}

	for attempt := 0; attempt < pairingAttempts; attempt++ {
		status, retry, err := s.requestMatch(ctx, player)
		if !retry {
			return status, err
		}
		s.log.Debug("waiting player vanished during pairing, retrying", zap.String("player", player))
	}
	return nil, fmt.Errorf("%w: could not pair %s", ErrSessionNotFound, player)
}

func (s *gameServiceImpl) requestMatch(ctx context.Context, player string) (*MatchStatus, bool, error) {
	if sess, ok := s.sessions.FindByPlayer(player); ok {
		sess.Lock()
		matched, id := sess.Match().Matched(), sess.ID
		sess.Unlock()
		if matched {
			return nil, false, &AlreadyMatchedError{GameID: id}
		}
		// Pending but no longer in the slot: someone is dealing this game.
		if slot, waiting := s.queue.Waiting(); !waiting || slot.Player != player {
			return waitingStatus(id, player), false, nil
		}
	}

	ticket, err := s.queue.Join(player, func(expired *matchmaking.Slot) (string, error) {
		// The player's own timed-out game still holds their registry entry.
		if expired != nil && expired.Player == player {
			s.sessions.Evict(expired.GameID)
		}
		id := s.newID()
		if err := s.sessions.Create(NewSession(id, player, s.now())); err != nil {
			return "", err
		}
		return id, nil
	})
	if ticket.Expired != nil {
		s.voidPending(*ticket.Expired, StateExpired)
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to open game: %w", err)
	}

	if ticket.State == matchmaking.Waiting {
		s.log.Info("player waiting", zap.String("player", player), zap.String("game_id", ticket.GameID))
		return waitingStatus(ticket.GameID, player), false, nil
	}
	return s.formMatch(ctx, ticket, player)
}

// formMatch deals the decks for a claimed slot. Catalog I/O happens after the
// queue lock is released.
func (s *gameServiceImpl) formMatch(ctx context.Context, ticket matchmaking.Ticket, player string) (*MatchStatus, bool, error) {
	slot := ticket.Slot

	cards, err := s.store.ListCards(ctx)
	if err == nil && len(cards) < 2 {
		err = fmt.Errorf("%w: need at least 2 cards, have %d", engine.ErrEmptyCatalog, len(cards))
	}
	if err != nil {
		s.restoreSlot(slot)
		s.log.Error("failed to load card catalog", zap.String("game_id", slot.GameID), zap.Error(err))
		return nil, false, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	deckA, deckB, err := s.deal.Partition(cards)
	if err != nil {
		s.restoreSlot(slot)
		return nil, false, fmt.Errorf("failed to deal cards: %w", err)
	}

	sess, err := s.sessions.Get(slot.GameID)
	if err != nil {
		return nil, true, nil
	}

	sess.Lock()
	if sess.Closed() {
		sess.Unlock()
		return nil, true, nil
	}

	if err := s.sessions.Bind(slot.GameID, player); err != nil {
		sess.Unlock()
		s.restoreSlot(slot)
		if other, ok := s.sessions.FindByPlayer(player); ok {
			return nil, false, &AlreadyMatchedError{GameID: other.ID}
		}
		return nil, false, fmt.Errorf("failed to seat %s: %w", player, err)
	}

	starter := slot.Player
	if s.starter == StarterRandom && s.deal.Intn(2) == 1 {
		starter = player
	}
	if err := sess.Match().Join(player, deckA, deckB, starter); err != nil {
		sess.Unlock()
		return nil, false, fmt.Errorf("failed to join game %s: %w", slot.GameID, err)
	}
	sess.state = StateMatched
	sess.Touch(s.now())
	waiter := statusLocked(sess, slot.Player)
	joiner := statusLocked(sess, player)
	sess.Unlock()

	s.log.Info("match formed",
		zap.String("game_id", slot.GameID),
		zap.String("player_a", slot.Player),
		zap.String("player_b", player),
		zap.String("starter", starter),
		zap.Int("cards", len(cards)))
	s.notify(slot.GameID, slot.Player, EventMatched, waiter)

	return joiner, false, nil
}

// restoreSlot puts the waiting player back after a failed pairing. If the
// slot was refilled meanwhile the pending game is voided.
func (s *gameServiceImpl) restoreSlot(slot matchmaking.Slot) {
	if s.queue.Restore(slot) {
		return
	}
	s.voidPending(slot, StateAbandoned)
}

func (s *gameServiceImpl) voidPending(slot matchmaking.Slot, state MatchState) {
	sess, ok := s.sessions.Evict(slot.GameID)
	if !ok {
		// Already evicted when its player re-joined the queue.
		if sess, ok = s.sessions.Finished(slot.GameID); !ok {
			return
		}
	}
	sess.Lock()
	if sess.Closed() {
		sess.Unlock()
		return
	}
	sess.close(state, s.now())
	sess.Unlock()

	s.log.Info("waiting game voided",
		zap.String("game_id", slot.GameID),
		zap.String("player", slot.Player),
		zap.String("reason", string(state)))
	s.notify(slot.GameID, slot.Player, EventAbandoned, &MatchStatus{
		State:   state,
		GameID:  slot.GameID,
		Player:  slot.Player,
		Message: "Matchmaking cancelled, please request a new match",
	})
}

// PollMatch reports the status of a game without changing it.
func (s *gameServiceImpl) PollMatch(ctx context.Context, gameID string) (*MatchStatus, error) {
	sess, err := s.lookup(gameID)
	if err != nil {
		return nil, err
	}
	sess.Lock()
	defer sess.Unlock()
	return statusLocked(sess, ""), nil
}

// CurrentMatch finds the live game a player is seated in.
func (s *gameServiceImpl) CurrentMatch(ctx context.Context, player string) (*MatchStatus, error) {
	player = NormalizePlayer(player)
	if player == "" {
		return nil, ErrPlayerRequired
	}
	sess, ok := s.sessions.FindByPlayer(player)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoActiveGame, player)
	}
	sess.Lock()
	defer sess.Unlock()
	return statusLocked(sess, player), nil
}

// PlayTurn resolves one turn of a live game.
func (s *gameServiceImpl) PlayTurn(ctx context.Context, gameID, player, attribute string, seq int) (*TurnAck, error) {
	player = NormalizePlayer(player)
	if player == "" {
		return nil, ErrPlayerRequired
	}
	attr, err := engine.ParseAttribute(attribute)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, attribute)
	}

	sess, err := s.lookup(gameID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()

	m := sess.Match()
	if sess.Closed() {
		// Ended games only answer replays of their last turn.
		last, ok := m.LastResult()
		if seq == 0 || !ok || seq != last.Turn {
			if sess.State() == StateFinished {
				return nil, fmt.Errorf("game %s is over: %w", sess.ID, engine.ErrEmptyDeck)
			}
			return nil, fmt.Errorf("%w: game %s was %s", ErrSessionNotFound, sess.ID, sess.State())
		}
	}

	before := m.TurnNumber()
	result, err := m.PlayTurn(player, attr, seq)
	if err != nil {
		s.log.Debug("turn rejected",
			zap.String("game_id", sess.ID),
			zap.String("player", player),
			zap.String("attribute", string(attr)),
			zap.Error(err))
		return nil, fmt.Errorf("game %s: %w", sess.ID, err)
	}
	replayed := m.TurnNumber() == before
	now := s.now()
	if !sess.Closed() {
		sess.Touch(now)
	}

	if !replayed {
		s.log.Info("turn played",
			zap.String("game_id", sess.ID),
			zap.String("player", player),
			zap.String("attribute", string(attr)),
			zap.Int("turn", result.Turn),
			zap.String("winner", result.Winner),
			zap.Bool("draw", result.Draw),
			zap.Bool("game_over", result.GameOver))

		if card, ok := result.WinningCard(m.PlayerA()); ok && s.stats != nil {
			if err := s.stats.RecordCardWin(ctx, card.ID, attr); err != nil {
				s.log.Warn("failed to record card win", zap.Int64("card_id", card.ID), zap.Error(err))
			}
		}

		if result.GameOver {
			sess.close(StateFinished, now)
			s.sessions.Evict(sess.ID)
			sess.persisted = s.recordResult(ctx, GameResult{
				GameID:     sess.ID,
				Player1:    m.PlayerA(),
				Player2:    m.PlayerB(),
				Winner:     result.OverallWinner,
				Loser:      result.OverallLoser,
				StartedAt:  sess.CreatedAt,
				FinishedAt: now,
			})
		}
		s.broadcastTurn(sess)
	}

	view, err := m.TurnView(player)
	if err != nil {
		return nil, fmt.Errorf("game %s: %w", sess.ID, err)
	}
	ack := &TurnAck{TurnView: view, Replayed: replayed, Persisted: true}
	if result.GameOver {
		ack.Persisted = sess.persisted
	}
	return ack, nil
}

// broadcastTurn pushes the last turn to both players. Callers hold the lock.
func (s *gameServiceImpl) broadcastTurn(sess *Session) {
	m := sess.Match()
	for _, p := range []string{m.PlayerA(), m.PlayerB()} {
		view, err := m.TurnView(p)
		if err != nil {
			continue
		}
		s.notify(sess.ID, p, EventTurnResult, view)
		if view.GameOver {
			s.notify(sess.ID, p, EventGameOver, statusLocked(sess, p))
		}
	}
}

func (s *gameServiceImpl) recordResult(ctx context.Context, r GameResult) bool {
	if err := s.store.RecordResult(ctx, r); err != nil {
		s.log.Error("failed to record game result",
			zap.String("game_id", r.GameID),
			zap.String("winner", r.Winner),
			zap.String("loser", r.Loser),
			zap.Error(fmt.Errorf("%w: %w", ErrStorageUnavailable, err)))
		return false
	}
	return true
}

// GetTurnResult returns the last resolved turn from player's perspective.
func (s *gameServiceImpl) GetTurnResult(ctx context.Context, gameID, player string) (*engine.TurnView, error) {
	player = NormalizePlayer(player)
	if player == "" {
		return nil, ErrPlayerRequired
	}
	sess, err := s.lookup(gameID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()

	view, err := sess.Match().TurnView(player)
	if err != nil {
		return nil, fmt.Errorf("game %s: %w", sess.ID, err)
	}
	return &view, nil
}

// GetGameState returns whose turn it is and the player's own top card.
func (s *gameServiceImpl) GetGameState(ctx context.Context, gameID, player string) (*engine.StateView, error) {
	player = NormalizePlayer(player)
	if player == "" {
		return nil, ErrPlayerRequired
	}
	sess, err := s.lookup(gameID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()

	view, err := sess.Match().StateView(player)
	if err != nil {
		return nil, fmt.Errorf("game %s: %w", sess.ID, err)
	}
	if sess.Closed() {
		view.Active = false
		view.YourTurn = false
		view.TurnOwner = ""
		if sess.winner != "" {
			view.Winner = sess.winner
		}
	}
	return &view, nil
}

// Abandon removes player from the waiting room or from their live game.
// Leaving an active game forfeits it to the opponent.
func (s *gameServiceImpl) Abandon(ctx context.Context, player string) (*AbandonResult, error) {
	player = NormalizePlayer(player)
	if player == "" {
		return nil, ErrPlayerRequired
	}

	if slot, ok := s.queue.Leave(player); ok {
		s.voidPending(slot, StateAbandoned)
		return &AbandonResult{
			Player:  player,
			GameID:  slot.GameID,
			State:   StateAbandoned,
			Message: "Left matchmaking",
		}, nil
	}

	sess, ok := s.sessions.FindByPlayer(player)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoActiveGame, player)
	}

	sess.Lock()
	defer sess.Unlock()

	if sess.Closed() {
		return nil, fmt.Errorf("%w: %s", ErrNoActiveGame, player)
	}

	now := s.now()
	m := sess.Match()
	res := &AbandonResult{Player: player, GameID: sess.ID, State: StateAbandoned}

	if !m.Matched() || !m.Active() {
		sess.close(StateAbandoned, now)
		s.sessions.Evict(sess.ID)
		res.Message = "Game exited"
		s.log.Info("pending game abandoned", zap.String("game_id", sess.ID), zap.String("player", player))
		return res, nil
	}

	opponent, _ := m.Opponent(player)
	sess.winner = opponent
	sess.forfeit = true
	sess.close(StateAbandoned, now)
	s.sessions.Evict(sess.ID)
	sess.persisted = s.recordResult(ctx, GameResult{
		GameID:     sess.ID,
		Player1:    m.PlayerA(),
		Player2:    m.PlayerB(),
		Winner:     opponent,
		Loser:      player,
		Forfeit:    true,
		StartedAt:  sess.CreatedAt,
		FinishedAt: now,
	})

	res.Winner = opponent
	res.Forfeit = true
	res.Recorded = sess.persisted
	res.Message = fmt.Sprintf("Game exited, %s wins by forfeit", opponent)

	s.log.Info("game forfeited",
		zap.String("game_id", sess.ID),
		zap.String("player", player),
		zap.String("winner", opponent),
		zap.Bool("recorded", res.Recorded))
	s.notify(sess.ID, opponent, EventAbandoned, statusLocked(sess, opponent))
	return res, nil
}

// ListSessions returns all live sessions, oldest first.
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))

	for _, sess := range sessions {
		sess.Lock()
		m := sess.Match()
		info := &SessionInfo{
			ID:             sess.ID,
			State:          sess.State(),
			Players:        players(m),
			TurnOwner:      m.TurnOwner(),
			TurnNumber:     m.TurnNumber(),
			CardsA:         m.DeckA().Len(),
			CardsB:         m.DeckB().Len(),
			CreatedAt:      sess.CreatedAt,
			LastAccessedAt: sess.LastAccessed(),
		}
		sess.Unlock()
		result = append(result, info)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// ListCards returns the card catalog.
func (s *gameServiceImpl) ListCards(ctx context.Context) ([]engine.Card, error) {
	cards, err := s.store.ListCards(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return cards, nil
}

// MatchHistory returns a player's finished games, newest first.
func (s *gameServiceImpl) MatchHistory(ctx context.Context, player string, limit int) ([]HistoryEntry, error) {
	player = NormalizePlayer(player)
	if player == "" {
		return nil, ErrPlayerRequired
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	entries, err := s.store.MatchHistory(ctx, player, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return entries, nil
}

// Sweep expires a stale waiting slot, voids idle games and drops old
// finished games.
func (s *gameServiceImpl) Sweep(ctx context.Context) SweepReport {
	var report SweepReport
	now := s.now()

	if slot, ok := s.queue.Expire(now); ok {
		s.voidPending(slot, StateExpired)
		report.ExpiredWaiting++
	}

	if s.idleTTL > 0 {
		for _, sess := range s.sessions.CleanupIdle(s.idleTTL) {
			sess.Lock()
			if sess.Closed() {
				sess.Unlock()
				continue
			}
			sess.close(StateExpired, now)
			m := sess.Match()
			for _, p := range players(m) {
				s.notify(sess.ID, p, EventAbandoned, statusLocked(sess, p))
			}
			playerA := m.PlayerA()
			sess.Unlock()

			if slot, waiting := s.queue.Waiting(); waiting && strings.EqualFold(slot.GameID, sess.ID) {
				s.queue.Leave(playerA)
			}
			report.ExpiredSessions++
			s.log.Info("idle game expired", zap.String("game_id", sess.ID))
		}
	}

	if s.retention > 0 {
		report.PrunedFinished = s.sessions.PruneFinished(s.retention)
	}
	return report
}

// lookup finds a live game, falling back to recently finished ones.
func (s *gameServiceImpl) lookup(gameID string) (*Session, error) {
	sess, err := s.sessions.Get(gameID)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, ErrSessionNotFound) {
		return nil, err
	}
	if fin, ok := s.sessions.Finished(gameID); ok {
		return fin, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, gameID)
}

func (s *gameServiceImpl) notify(gameID, player string, eventType string, data any) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(gameID, player, Event{Type: eventType, GameID: gameID, Data: data})
}

func waitingStatus(gameID, player string) *MatchStatus {
	return &MatchStatus{
		State:   StateWaiting,
		GameID:  gameID,
		Player:  player,
		Players: []string{player},
		Message: "Waiting for an opponent...",
	}
}

// statusLocked describes sess, from player's side when player is set.
// Callers hold the session lock.
func statusLocked(sess *Session, player string) *MatchStatus {
	m := sess.Match()
	st := &MatchStatus{
		State:     sess.State(),
		GameID:    sess.ID,
		Players:   players(m),
		TurnOwner: m.TurnOwner(),
		Winner:    m.Winner(),
		Forfeit:   sess.forfeit,
	}
	if sess.winner != "" {
		st.Winner = sess.winner
	}
	if player != "" && m.HasPlayer(player) {
		st.Player = player
		st.Opponent, _ = m.Opponent(player)
	}
	if sess.Closed() {
		st.TurnOwner = ""
	}

	switch st.State {
	case StateWaiting:
		st.Message = "Waiting for an opponent..."
	case StateMatched:
		st.Message = "Match found"
	case StateFinished:
		st.Message = fmt.Sprintf("Game over, %s won", st.Winner)
	case StateAbandoned:
		if st.Forfeit {
			st.Message = fmt.Sprintf("Game abandoned, %s wins by forfeit", st.Winner)
		} else {
			st.Message = "Game abandoned"
		}
	case StateExpired:
		st.Message = "Game expired"
	}
	return st
}

func players(m *engine.Match) []string {
	if m.PlayerB() == "" {
		return []string{m.PlayerA()}
	}
	return []string{m.PlayerA(), m.PlayerB()}
}
