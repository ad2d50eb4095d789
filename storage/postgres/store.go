// Package postgres provides a gorm-backed card catalog and result store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/wricardo/cricket-trumps/game/engine"
	"github.com/wricardo/cricket-trumps/game/service"
)

// ErrNotConfigured is returned by methods on a nil store.
var ErrNotConfigured = errors.New("storage is not configured")

// Store persists cards, finished games and card win counters in Postgres.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open connects to dsn and migrates the schema.
func Open(ctx context.Context, dsn string, logger *zap.Logger) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return New(ctx, db, logger)
}

// New wraps an existing gorm handle and migrates the schema.
func New(ctx context.Context, db *gorm.DB, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := db.WithContext(ctx).AutoMigrate(&Player{}, &Game{}, &Card{}, &CardWin{}); err != nil {
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	logger.Debug("postgres store ready")
	return &Store{db: db, logger: logger}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) tx(ctx context.Context) (*gorm.DB, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.db == nil {
		return nil, ErrNotConfigured
	}
	return s.db.WithContext(ctx), nil
}

// ListCards returns the catalog ordered by id, with win counters attached.
func (s *Store) ListCards(ctx context.Context) ([]engine.Card, error) {
	db, err := s.tx(ctx)
	if err != nil {
		return nil, err
	}

	var rows []Card
	if err := db.Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	var wins []CardWin
	if err := db.Find(&wins).Error; err != nil {
		return nil, fmt.Errorf("list card wins: %w", err)
	}
	return attachWins(rows, wins), nil
}

func attachWins(rows []Card, wins []CardWin) []engine.Card {
	cards := make([]engine.Card, len(rows))
	index := make(map[int64]int, len(rows))
	for i, r := range rows {
		cards[i] = r.toEngine()
		index[r.ID] = i
	}
	for _, w := range wins {
		i, ok := index[w.CardID]
		if !ok {
			continue
		}
		if cards[i].Wins == nil {
			cards[i].Wins = make(map[engine.Attribute]int)
		}
		cards[i].Wins[engine.Attribute(w.Attribute)] = w.Wins
	}
	return cards
}

// UpsertCards inserts or updates cards keyed by slug.
func (s *Store) UpsertCards(ctx context.Context, cards []engine.Card) (int, error) {
	db, err := s.tx(ctx)
	if err != nil {
		return 0, err
	}

	rows := make([]Card, 0, len(cards))
	for _, c := range cards {
		key := c.Slug
		if key == "" {
			key = slug.Make(c.Name)
		}
		if key == "" {
			return 0, fmt.Errorf("card %q has no usable slug", c.Name)
		}
		c.Name = strings.TrimSpace(c.Name)
		rows = append(rows, cardFromEngine(c, key))
	}
	if len(rows) == 0 {
		return 0, nil
	}

	err = db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "slug"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "power", "strike_rate", "wickets", "matches_played",
			"runs_scored", "highest_score", "image_ref",
		}),
	}).Create(&rows).Error
	if err != nil {
		return 0, fmt.Errorf("upsert cards: %w", err)
	}
	s.logger.Info("cards upserted", zap.Int("count", len(rows)))
	return len(rows), nil
}

// RecordResult stores a finished game, creating player rows as needed.
func (s *Store) RecordResult(ctx context.Context, result service.GameResult) error {
	db, err := s.tx(ctx)
	if err != nil {
		return err
	}
	if result.GameID == "" || result.Player1 == "" || result.Player2 == "" {
		return fmt.Errorf("game id and both players are required")
	}

	now := time.Now().UTC()
	return db.Transaction(func(tx *gorm.DB) error {
		players := []Player{
			{Email: result.Player1, Name: displayName(result.Player1), CreatedAt: now},
			{Email: result.Player2, Name: displayName(result.Player2), CreatedAt: now},
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&players).Error; err != nil {
			return fmt.Errorf("upsert players: %w", err)
		}
		game := gameFromResult(result)
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&game).Error; err != nil {
			return fmt.Errorf("insert game %s: %w", result.GameID, err)
		}
		return nil
	})
}

// MatchHistory returns up to limit finished games of player, newest first.
func (s *Store) MatchHistory(ctx context.Context, player string, limit int) ([]service.HistoryEntry, error) {
	db, err := s.tx(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	var games []Game
	if err := db.Where("player1 = ? OR player2 = ?", player, player).
		Order("finished_at DESC, id DESC").
		Limit(limit).
		Find(&games).Error; err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}

	history := make([]service.HistoryEntry, 0, len(games))
	for _, g := range games {
		history = append(history, g.historyEntry(player))
	}
	return history, nil
}

// RecordCardWin increments the win counter of a card on an attribute.
func (s *Store) RecordCardWin(ctx context.Context, cardID int64, attr engine.Attribute) error {
	db, err := s.tx(ctx)
	if err != nil {
		return err
	}
	win := CardWin{CardID: cardID, Attribute: string(attr), Wins: 1}
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "card_id"}, {Name: "attribute"}},
		DoUpdates: clause.Assignments(map[string]any{"wins": gorm.Expr("card_wins.wins + 1")}),
	}).Create(&win).Error
	if err != nil {
		return fmt.Errorf("record card win %d/%s: %w", cardID, attr, err)
	}
	return nil
}

func displayName(email string) string {
	name, _, _ := strings.Cut(email, "@")
	if name == "" {
		return email
	}
	return name
}
