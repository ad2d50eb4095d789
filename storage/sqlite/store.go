// Package sqlite provides the SQLite-backed card catalog and result store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/wricardo/cricket-trumps/game/engine"
	"github.com/wricardo/cricket-trumps/game/service"
	"github.com/wricardo/cricket-trumps/storage/sqlite/migrations"
)

// ErrNotConfigured is returned by methods on a nil or closed store.
var ErrNotConfigured = errors.New("storage is not configured")

// Store persists cards, finished games and card win counters in SQLite.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite store at path and applies embedded migrations.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	dsn := filepath.Clean(path) +
		"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	s := &Store{db: db, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger.Debug("sqlite store opened", zap.String("path", path))
	return s, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return ErrNotConfigured
	}
	return nil
}

// ListCards returns the catalog ordered by id, with win counters attached.
func (s *Store) ListCards(ctx context.Context) ([]engine.Card, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, slug, name, power, strike_rate, wickets,
		       matches_played, runs_scored, highest_score, image_ref
		  FROM cards ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	var cards []engine.Card
	index := make(map[int64]int)
	for rows.Next() {
		var c engine.Card
		if err := rows.Scan(&c.ID, &c.Slug, &c.Name, &c.Power, &c.StrikeRate, &c.Wickets,
			&c.MatchesPlayed, &c.RunsScored, &c.HighestScore, &c.ImageRef); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		index[c.ID] = len(cards)
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cards: %w", err)
	}

	wins, err := s.db.QueryContext(ctx, `SELECT card_id, attribute, wins FROM card_wins`)
	if err != nil {
		return nil, fmt.Errorf("list card wins: %w", err)
	}
	defer wins.Close()
	for wins.Next() {
		var (
			id    int64
			attr  string
			count int
		)
		if err := wins.Scan(&id, &attr, &count); err != nil {
			return nil, fmt.Errorf("scan card win: %w", err)
		}
		i, ok := index[id]
		if !ok {
			continue
		}
		if cards[i].Wins == nil {
			cards[i].Wins = make(map[engine.Attribute]int)
		}
		cards[i].Wins[engine.Attribute(attr)] = count
	}
	if err := wins.Err(); err != nil {
		return nil, fmt.Errorf("iterate card wins: %w", err)
	}
	return cards, nil
}

// UpsertCards inserts or updates cards keyed by slug. Cards without a slug
// get one derived from their name. It returns the number of cards written.
func (s *Store) UpsertCards(ctx context.Context, cards []engine.Card) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin upsert cards: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO cards (
		   slug, name, power, strike_rate, wickets, matches_played, runs_scored, highest_score, image_ref
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(slug) DO UPDATE SET
		   name = excluded.name,
		   power = excluded.power,
		   strike_rate = excluded.strike_rate,
		   wickets = excluded.wickets,
		   matches_played = excluded.matches_played,
		   runs_scored = excluded.runs_scored,
		   highest_score = excluded.highest_score,
		   image_ref = excluded.image_ref`)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert cards: %w", err)
	}
	defer stmt.Close()

	for _, c := range cards {
		key := c.Slug
		if key == "" {
			key = slug.Make(c.Name)
		}
		if key == "" {
			return 0, fmt.Errorf("card %q has no usable slug", c.Name)
		}
		if _, err := stmt.ExecContext(ctx, key, strings.TrimSpace(c.Name), c.Power, c.StrikeRate,
			c.Wickets, c.MatchesPlayed, c.RunsScored, c.HighestScore, c.ImageRef); err != nil {
			return 0, fmt.Errorf("upsert card %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit upsert cards: %w", err)
	}
	s.logger.Info("cards upserted", zap.Int("count", len(cards)))
	return len(cards), nil
}

// RecordResult stores a finished game, creating player rows as needed.
// Recording the same game id twice is a no-op.
func (s *Store) RecordResult(ctx context.Context, result service.GameResult) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if result.GameID == "" || result.Player1 == "" || result.Player2 == "" {
		return fmt.Errorf("game id and both players are required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record result: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := toMillis(time.Now())
	for _, email := range []string{result.Player1, result.Player2} {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO players (email, name, created_at) VALUES (?, ?, ?)
			 ON CONFLICT(email) DO NOTHING`,
			email, displayName(email), now,
		); err != nil {
			return fmt.Errorf("upsert player %s: %w", email, err)
		}
	}

	forfeit := 0
	if result.Forfeit {
		forfeit = 1
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO games (id, player1, player2, winner, loser, forfeit, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		result.GameID, result.Player1, result.Player2, result.Winner, result.Loser,
		forfeit, toMillis(result.StartedAt), toMillis(result.FinishedAt),
	); err != nil {
		return fmt.Errorf("insert game %s: %w", result.GameID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record result: %w", err)
	}
	return nil
}

// MatchHistory returns up to limit finished games of player, newest first.
func (s *Store) MatchHistory(ctx context.Context, player string, limit int) ([]service.HistoryEntry, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, player1, player2, winner, forfeit, finished_at
		   FROM games
		  WHERE player1 = ? OR player2 = ?
		  ORDER BY finished_at DESC, id DESC
		  LIMIT ?`,
		player, player, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	history := []service.HistoryEntry{}
	for rows.Next() {
		var (
			id, p1, p2, winner string
			forfeit            int
			finished           int64
		)
		if err := rows.Scan(&id, &p1, &p2, &winner, &forfeit, &finished); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		opponent := p2
		if p2 == player {
			opponent = p1
		}
		history = append(history, service.HistoryEntry{
			GameID:     id,
			Opponent:   opponent,
			Won:        winner == player,
			Forfeit:    forfeit != 0,
			FinishedAt: fromMillis(finished),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return history, nil
}

// RecordCardWin increments the win counter of a card on an attribute.
func (s *Store) RecordCardWin(ctx context.Context, cardID int64, attr engine.Attribute) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO card_wins (card_id, attribute, wins) VALUES (?, ?, 1)
		 ON CONFLICT(card_id, attribute) DO UPDATE SET wins = wins + 1`,
		cardID, string(attr),
	); err != nil {
		return fmt.Errorf("record card win %d/%s: %w", cardID, attr, err)
	}
	return nil
}

// displayName is the local part of an email address.
func displayName(email string) string {
	name, _, _ := strings.Cut(email, "@")
	if name == "" {
		return email
	}
	return name
}
