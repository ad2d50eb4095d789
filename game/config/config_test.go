package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	if err != nil {
		t.Fatalf("Expected defaults to validate, got %v", err)
	}

	if cfg.Addr() != "localhost:8080" {
		t.Errorf("Expected localhost:8080, got %s", cfg.Addr())
	}
	if cfg.StoreDriver != DriverSQLite {
		t.Errorf("Expected sqlite store, got %s", cfg.StoreDriver)
	}
	if cfg.WaitingTimeout != 2*time.Minute {
		t.Errorf("Expected 2m waiting timeout, got %s", cfg.WaitingTimeout)
	}
	if cfg.Starter != "first" {
		t.Errorf("Expected first starter policy, got %s", cfg.Starter)
	}
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"TRUMPS_PORT":            "9191",
		"TRUMPS_STORE":           "postgres",
		"TRUMPS_POSTGRES_DSN":    "postgres://trumps@localhost/trumps",
		"TRUMPS_SWEEP_INTERVAL":  "5s",
		"TRUMPS_STARTER":         "random",
		"TRUMPS_SHUFFLE_SEED":    "42",
		"NGROK_ENABLED":          "true",
		"TRUMPS_WAITING_TIMEOUT": "45s",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.Port != 9191 || cfg.StoreDriver != DriverPostgres {
		t.Errorf("Overrides not applied: %+v", cfg)
	}
	if cfg.SweepInterval != 5*time.Second || cfg.WaitingTimeout != 45*time.Second {
		t.Errorf("Duration overrides not applied: %s %s", cfg.SweepInterval, cfg.WaitingTimeout)
	}
	if cfg.ShuffleSeed != 42 || !cfg.NgrokEnabled {
		t.Errorf("Expected seed 42 and ngrok enabled, got %d %v", cfg.ShuffleSeed, cfg.NgrokEnabled)
	}
}

func TestLoadFrom_ParseError(t *testing.T) {
	_, err := LoadFrom(map[string]string{"TRUMPS_PORT": "eighty"})
	if err == nil || !strings.Contains(err.Error(), "parse env") {
		t.Errorf("Expected parse env error, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			Host:          "localhost",
			Port:          8080,
			StoreDriver:   DriverSQLite,
			SQLitePath:    "trumps.db",
			SweepInterval: time.Second,
			Starter:       "first",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "port too low", mutate: func(c *Config) { c.Port = 0 }, wantErr: "port must be between"},
		{name: "port too high", mutate: func(c *Config) { c.Port = 70000 }, wantErr: "port must be between"},
		{name: "unknown driver", mutate: func(c *Config) { c.StoreDriver = "mongo" }, wantErr: "unknown store driver"},
		{name: "sqlite without path", mutate: func(c *Config) { c.SQLitePath = "" }, wantErr: "sqlite path is required"},
		{name: "postgres without dsn", mutate: func(c *Config) { c.StoreDriver = DriverPostgres }, wantErr: "postgres DSN is required"},
		{name: "zero sweep", mutate: func(c *Config) { c.SweepInterval = 0 }, wantErr: "sweep interval must be positive"},
		{name: "negative idle ttl", mutate: func(c *Config) { c.IdleTTL = -time.Second }, wantErr: "idle TTL cannot be negative"},
		{name: "bad starter", mutate: func(c *Config) { c.Starter = "coin" }, wantErr: "starter must be first or random"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()

			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("Expected ErrInvalidConfig, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfig_ValidateCollectsAll(t *testing.T) {
	cfg := Config{Port: -1, StoreDriver: "x", Starter: "y"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected error")
	}
	for _, want := range []string{"port", "unknown store driver", "sweep interval", "starter"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Expected %q in %v", want, err)
		}
	}
}
