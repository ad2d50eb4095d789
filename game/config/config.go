package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the runtime configuration of the match server, read from
// TRUMPS_* environment variables. Command-line flags may override the
// listen address and debug mode afterwards.
type Config struct {
	Host  string `env:"TRUMPS_HOST" envDefault:"localhost"`
	Port  int    `env:"TRUMPS_PORT" envDefault:"8080"`
	Debug bool   `env:"TRUMPS_DEBUG"`

	StoreDriver string `env:"TRUMPS_STORE" envDefault:"sqlite"`
	SQLitePath  string `env:"TRUMPS_SQLITE_PATH" envDefault:"data/trumps.db"`
	PostgresDSN string `env:"TRUMPS_POSTGRES_DSN"`

	CardsDir string `env:"TRUMPS_CARDS_DIR" envDefault:"cards"`
	SeedSet  string `env:"TRUMPS_SEED_SET" envDefault:"cricket_legends"`

	WaitingTimeout    time.Duration `env:"TRUMPS_WAITING_TIMEOUT" envDefault:"2m"`
	SweepInterval     time.Duration `env:"TRUMPS_SWEEP_INTERVAL" envDefault:"30s"`
	FinishedRetention time.Duration `env:"TRUMPS_FINISHED_RETENTION" envDefault:"30m"`
	IdleTTL           time.Duration `env:"TRUMPS_IDLE_TTL" envDefault:"1h"`

	Starter     string `env:"TRUMPS_STARTER" envDefault:"first"`
	ShuffleSeed uint64 `env:"TRUMPS_SHUFFLE_SEED"`

	NgrokEnabled   bool   `env:"NGROK_ENABLED"`
	NgrokAuthToken string `env:"NGROK_AUTHTOKEN"`
	NgrokDomain    string `env:"NGROK_DOMAIN"`
}

// Load parses the process environment into a Config and validates it.
func Load() (*Config, error) {
	return load(env.Options{})
}

// LoadFrom is Load over an explicit environment instead of the process one.
func LoadFrom(environ map[string]string) (*Config, error) {
	return load(env.Options{Environment: environ})
}

func load(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Addr returns host:port.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port must be between 1 and 65535, got %d", c.Port))
	}

	switch c.StoreDriver {
	case DriverSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("sqlite path is required for the sqlite store"))
		}
	case DriverPostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("postgres DSN is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q (use %s or %s)", c.StoreDriver, DriverSQLite, DriverPostgres))
	}

	if c.SweepInterval <= 0 {
		errs = append(errs, fmt.Errorf("sweep interval must be positive, got %s", c.SweepInterval))
	}
	for name, d := range map[string]time.Duration{
		"waiting timeout":    c.WaitingTimeout,
		"finished retention": c.FinishedRetention,
		"idle TTL":           c.IdleTTL,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s cannot be negative, got %s", name, d))
		}
	}

	if c.Starter != "first" && c.Starter != "random" {
		errs = append(errs, fmt.Errorf("starter must be first or random, got %q", c.Starter))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
