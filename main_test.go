package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/wricardo/cricket-trumps/game/config"
	"github.com/wricardo/cricket-trumps/game/service"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadFrom(map[string]string{
		"TRUMPS_SQLITE_PATH": filepath.Join(t.TempDir(), "trumps.db"),
		"TRUMPS_CARDS_DIR":   "cards",
	})
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	return cfg
}

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if AppName != "Cricket Trumps Server" {
		t.Errorf("Unexpected app name %s", AppName)
	}
}

func TestInitializeServices(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := initializeServices(ctx, testConfig(t), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	defer app.Close()

	cards, err := app.Service.ListCards(ctx)
	if err != nil {
		t.Fatalf("ListCards: %v", err)
	}
	if len(cards) < 2 {
		t.Errorf("Expected the seed set to be imported, got %d cards", len(cards))
	}
}

func TestInitializeServices_UnknownSet(t *testing.T) {
	cfg := testConfig(t)
	cfg.SeedSet = "no_such_set"

	if _, err := initializeServices(context.Background(), cfg, zaptest.NewLogger(t)); err == nil {
		t.Error("Expected error for a missing card set")
	}
}

func TestInitializeServices_MissingCardsDir(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testConfig(t)
	cfg.CardsDir = "/non/existent/path"

	app, err := initializeServices(ctx, cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("A missing cards dir should only skip seeding: %v", err)
	}
	defer app.Close()

	cards, _ := app.Service.ListCards(ctx)
	if len(cards) != 0 {
		t.Errorf("Expected empty catalog, got %d cards", len(cards))
	}
}

func TestApplyFlags(t *testing.T) {
	cfg := testConfig(t)
	if err := flag.CommandLine.Set("port", "9191"); err != nil {
		t.Fatal(err)
	}
	if err := flag.CommandLine.Set("card-set", "other"); err != nil {
		t.Fatal(err)
	}

	applyFlags(cfg)

	if cfg.Port != 9191 {
		t.Errorf("Expected port override, got %d", cfg.Port)
	}
	if cfg.SeedSet != "other" {
		t.Errorf("Expected seed set override, got %s", cfg.SeedSet)
	}
	if cfg.Host != "localhost" {
		t.Errorf("Unset flags must keep env values, got host %q", cfg.Host)
	}
}

type sweepCounter struct {
	service.GameService
	calls atomic.Int32
}

func (s *sweepCounter) Sweep(ctx context.Context) service.SweepReport {
	s.calls.Add(1)
	return service.SweepReport{ExpiredWaiting: 1}
}

func TestStartSweeper(t *testing.T) {
	svc := &sweepCounter{}
	sched, err := startSweeper(context.Background(), 10*time.Millisecond, svc, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	defer sched.Shutdown()

	deadline := time.Now().Add(2 * time.Second)
	for svc.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if svc.calls.Load() < 2 {
		t.Errorf("Expected repeated sweeps, got %d", svc.calls.Load())
	}
}

func TestRouter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := initializeServices(ctx, testConfig(t), zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	defer app.Close()

	var handler http.Handler
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, r)
	}))
	defer srv.Close()
	handler = newRouter(app, srv.URL)

	if !externalAPIAvailable(srv.URL) {
		t.Fatal("Expected /healthz to answer")
	}

	post := func(path, body string) *http.Response {
		t.Helper()
		resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatal(err)
		}
		return resp
	}

	resp := post("/api/match", `{"player":"ana@x.io"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("First request should wait, got %d", resp.StatusCode)
	}

	resp = post("/api/match", `{"player":"bo@x.io"}`)
	var status service.MatchStatus
	json.NewDecoder(resp.Body).Decode(&status)
	resp.Body.Close()
	if status.State != service.StateMatched || status.GameID == "" {
		t.Fatalf("Expected a match, got %+v", status)
	}

	resp = post("/mcp", `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	var rpc map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&rpc)
	resp.Body.Close()
	raw, _ := json.Marshal(rpc)
	if !strings.Contains(string(raw), "request_match") {
		t.Errorf("Expected MCP tool listing, got %s", raw)
	}

	resp, err = http.Get(srv.URL + "/mcp")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for GET /mcp, got %d", resp.StatusCode)
	}
}

func TestExternalAPIAvailable_Down(t *testing.T) {
	if externalAPIAvailable("http://127.0.0.1:1") {
		t.Error("Expected no server on port 1")
	}
}

func TestStoreFlagNamesConfigEnv(t *testing.T) {
	f := flag.Lookup("store")
	if f == nil {
		t.Fatal("Expected a -store flag")
	}
	if !strings.Contains(f.Usage, "env TRUMPS_STORE)") {
		t.Errorf("Usage should name the variable config reads, got %q", f.Usage)
	}

	cfg, err := config.LoadFrom(map[string]string{"TRUMPS_STORE": "postgres", "TRUMPS_POSTGRES_DSN": "postgres://x"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.StoreDriver != config.DriverPostgres {
		t.Errorf("Expected TRUMPS_STORE to select the driver, got %q", cfg.StoreDriver)
	}
}
