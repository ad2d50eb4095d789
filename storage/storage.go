// Package storage selects and opens the configured card and result store.
package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wricardo/cricket-trumps/game/config"
	"github.com/wricardo/cricket-trumps/game/engine"
	"github.com/wricardo/cricket-trumps/game/service"
	"github.com/wricardo/cricket-trumps/storage/postgres"
	"github.com/wricardo/cricket-trumps/storage/sqlite"
)

// Store is what both backends provide.
type Store interface {
	service.Store
	service.CardStatsRecorder
	UpsertCards(ctx context.Context, cards []engine.Card) (int, error)
	Close() error
}

var (
	_ Store = (*sqlite.Store)(nil)
	_ Store = (*postgres.Store)(nil)
)

// Open opens the store named by cfg.StoreDriver.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		s, err := sqlite.Open(ctx, cfg.SQLitePath, sqlite.WithLogger(logger.Named("sqlite")))
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverPostgres:
		s, err := postgres.Open(ctx, cfg.PostgresDSN, logger.Named("postgres"))
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: unknown store driver %q", config.ErrInvalidConfig, cfg.StoreDriver)
	}
}

// SeedIfEmpty imports set when the catalog has no cards. It returns the
// number of cards imported.
func SeedIfEmpty(ctx context.Context, store Store, set *config.CardSet) (int, error) {
	existing, err := store.ListCards(ctx)
	if err != nil {
		return 0, fmt.Errorf("check catalog: %w", err)
	}
	if len(existing) > 0 || set == nil {
		return 0, nil
	}
	return store.UpsertCards(ctx, set.Cards)
}
