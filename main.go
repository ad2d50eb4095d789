// Command cricket-trumps starts the Cricket Trumps match server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Settings come from TRUMPS_* environment variables (optionally via a .env
// file); flags override them. Ngrok tunneling is available for easy external
// access during development.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/cricket-trumps/api"
	"github.com/wricardo/cricket-trumps/game/config"
	"github.com/wricardo/cricket-trumps/game/engine"
	"github.com/wricardo/cricket-trumps/game/matchmaking"
	"github.com/wricardo/cricket-trumps/game/service"
	"github.com/wricardo/cricket-trumps/game/session"
	"github.com/wricardo/cricket-trumps/storage"
	"github.com/wricardo/cricket-trumps/transport/mcp"
	"github.com/wricardo/cricket-trumps/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Cricket Trumps Server"
)

// Flags override the environment configuration when set.
var (
	port         = flag.Int("port", 0, "HTTP server port (default 8080, env TRUMPS_PORT)")
	host         = flag.String("host", "", "HTTP server host (default localhost, env TRUMPS_HOST)")
	cardsDir     = flag.String("cards-dir", "", "Directory containing card sets (env TRUMPS_CARDS_DIR)")
	cardSet      = flag.String("card-set", "", "Card set seeded into an empty catalog (env TRUMPS_SEED_SET)")
	storeDriver  = flag.String("store", "", "Store driver: sqlite or postgres (env TRUMPS_STORE)")
	debug        = flag.Bool("debug", false, "Enable debug logging")
	version      = flag.Bool("version", false, "Show version information")
	ngrokEnabled = flag.Bool("ngrok", false, "Enable ngrok tunnel")
	ngrokAuth    = flag.String("ngrok-auth", "", "Ngrok auth token (or use NGROK_AUTHTOKEN env var)")
	ngrokDomain  = flag.String("ngrok-domain", "", "Custom ngrok domain (optional)")
)

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [MODE]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "%s v%s\n\n", AppName, Version)
		fmt.Fprintf(os.Stderr, "Available modes:\n")
		fmt.Fprintf(os.Stderr, "  server, http     Run HTTP server with API, WebSocket, and MCP endpoint (default)\n")
		fmt.Fprintf(os.Stderr, "  stdio-mcp        Run MCP stdio server with internal HTTP server\n")
		fmt.Fprintf(os.Stderr, "  mcp-stdio        Alias for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "  mcp              Alias for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                       # Run HTTP server on default port 8080\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -port 9090            # Run HTTP server on port 9090\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -store postgres       # Use TRUMPS_POSTGRES_DSN\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s stdio-mcp             # Run MCP stdio server\n", os.Args[0])
	}
}

// main parses flags, initializes services, and starts the selected mode.
func main() {
	envErr := godotenv.Load()

	flag.Parse()

	if *version {
		fmt.Printf("%s v%s\n", AppName, Version)
		os.Exit(0)
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(2)
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	switch {
	case envErr == nil:
		logger.Info("loaded environment variables from .env file")
	case !errors.Is(envErr, os.ErrNotExist):
		logger.Warn("error loading .env file", zap.Error(envErr))
	}

	mode := "server"
	if args := flag.Args(); len(args) > 0 {
		mode = args[0]
	}

	logger.Info("starting", zap.String("app", AppName), zap.String("version", Version), zap.String("mode", mode))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app, err := initializeServices(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize services", zap.Error(err))
	}
	defer app.Close()

	switch mode {
	case "stdio-mcp", "mcp-stdio", "mcp":
		runStdioMCPWithInternalServer(ctx, cfg, app)

	case "server", "http":
		runHTTPServer(ctx, cfg, app)

	default:
		logger.Fatal("unknown mode, use 'server' (default) or 'stdio-mcp'", zap.String("mode", mode))
	}
}

// loadConfig reads the environment and applies explicitly set flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Port = *port
		case "host":
			cfg.Host = *host
		case "cards-dir":
			cfg.CardsDir = *cardsDir
		case "card-set":
			cfg.SeedSet = *cardSet
		case "store":
			cfg.StoreDriver = *storeDriver
		case "debug":
			cfg.Debug = *debug
		case "ngrok":
			cfg.NgrokEnabled = *ngrokEnabled
		case "ngrok-auth":
			cfg.NgrokAuthToken = *ngrokAuth
		case "ngrok-domain":
			cfg.NgrokDomain = *ngrokDomain
		}
	})
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// App holds the running services.
type App struct {
	Service   service.GameService
	Hub       *websocket.Hub
	Store     storage.Store
	Scheduler gocron.Scheduler
	Logger    *zap.Logger
}

// Close stops the sweeper and closes the store.
func (a *App) Close() {
	if a.Scheduler != nil {
		if err := a.Scheduler.Shutdown(); err != nil {
			a.Logger.Warn("scheduler shutdown", zap.Error(err))
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.Warn("store close", zap.Error(err))
		}
	}
}

// initializeServices opens the store, seeds an empty catalog, builds the game
// service and starts the hub and the periodic sweep.
func initializeServices(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	store, err := storage.Open(ctx, cfg, logger.Named("store"))
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	app := &App{Store: store, Logger: logger}

	if err := seedCatalog(ctx, cfg, store, logger); err != nil {
		app.Close()
		return nil, err
	}

	hub := websocket.NewHub(logger.Named("ws"))
	go hub.Run(ctx)
	app.Hub = hub

	app.Service = service.NewGameService(
		session.NewManager(),
		matchmaking.NewQueue(cfg.WaitingTimeout),
		store,
		service.Options{
			Logger:            logger.Named("game"),
			Partitioner:       engine.NewPartitioner(cfg.ShuffleSeed),
			Starter:           service.StarterPolicy(cfg.Starter),
			Notifier:          hub,
			IdleTTL:           cfg.IdleTTL,
			FinishedRetention: cfg.FinishedRetention,
		},
	)

	sched, err := startSweeper(ctx, cfg.SweepInterval, app.Service, logger)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Scheduler = sched

	return app, nil
}

// seedCatalog imports the configured card set when the store has no cards.
// A missing card set directory is not fatal; the catalog may have been
// imported with cardctl.
func seedCatalog(ctx context.Context, cfg *config.Config, store storage.Store, logger *zap.Logger) error {
	if cfg.SeedSet == "" {
		return nil
	}
	sets, err := config.NewManager(cfg.CardsDir)
	if err != nil {
		logger.Warn("card sets unavailable, skipping seed", zap.String("dir", cfg.CardsDir), zap.Error(err))
		return nil
	}
	set, err := sets.LoadSet(cfg.SeedSet)
	if err != nil {
		return fmt.Errorf("failed to load card set %q: %w", cfg.SeedSet, err)
	}
	n, err := storage.SeedIfEmpty(ctx, store, set)
	if err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}
	if n > 0 {
		logger.Info("seeded card catalog", zap.String("set", set.Name), zap.Int("cards", n))
	}
	return nil
}

// startSweeper runs the maintenance pass every interval.
func startSweeper(ctx context.Context, interval time.Duration, svc service.GameService, logger *zap.Logger) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			report := svc.Sweep(ctx)
			if report.ExpiredWaiting+report.ExpiredSessions+report.PrunedFinished > 0 {
				logger.Info("sweep",
					zap.Int("expired_waiting", report.ExpiredWaiting),
					zap.Int("expired_sessions", report.ExpiredSessions),
					zap.Int("pruned_finished", report.PrunedFinished))
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("failed to schedule sweep: %w", err)
	}
	sched.Start()
	return sched, nil
}

// newRouter mounts the API at the root and the MCP proxy at /mcp.
func newRouter(app *App, baseURL string) http.Handler {
	apiServer := api.NewServer(app.Service, app.Hub, app.Logger.Named("api"))
	mcpClient := mcp.NewClient(baseURL)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})
	return mainRouter
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled, it also provisions a public tunnel.
func runHTTPServer(ctx context.Context, cfg *config.Config, app *App) {
	logger := app.Logger
	addr := cfg.Addr()
	mainRouter := newRouter(app, "http://"+addr)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		logger.Info("HTTP server listening",
			zap.String("api", "http://"+addr+"/api"),
			zap.String("ws", "ws://"+addr+"/ws?game=<game_id>&player=<email>"),
			zap.String("mcp", "http://"+addr+"/mcp"))

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	if cfg.NgrokEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, cfg, mainRouter, logger)
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	wg.Wait()
	logger.Info("server stopped")
}

func runNgrok(ctx context.Context, cfg *config.Config, handler http.Handler, logger *zap.Logger) {
	authToken := cfg.NgrokAuthToken
	if authToken == "" {
		authToken = os.Getenv("NGROK_AUTH_TOKEN")
	}
	if authToken == "" {
		logger.Warn("ngrok enabled but no auth token provided (use --ngrok-auth or NGROK_AUTHTOKEN)")
		return
	}

	logger.Info("starting ngrok tunnel")

	var tunnel ngrokConfig.Tunnel
	if cfg.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.NgrokDomain))
		logger.Info("using custom ngrok domain", zap.String("domain", cfg.NgrokDomain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		logger.Error("failed to start ngrok tunnel", zap.Error(err))
		return
	}
	defer func() {
		if err := tun.Close(); err != nil {
			logger.Warn("failed to close ngrok tunnel", zap.Error(err))
		}
	}()

	ngrokURL := tun.URL()
	logger.Info("ngrok tunnel established",
		zap.String("url", ngrokURL),
		zap.String("api", ngrokURL+"/api"),
		zap.String("mcp", ngrokURL+"/mcp"))

	go func() {
		<-ctx.Done()
		tun.Close()
	}()

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed && ctx.Err() == nil {
		logger.Error("ngrok server error", zap.Error(err))
	}
	logger.Info("ngrok tunnel closed")
}

// externalAPIAvailable reports whether a server already answers on baseURL.
func externalAPIAvailable(baseURL string) bool {
	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(baseURL + "/healthz")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It tries to reuse an external API at the configured address; if unavailable,
// it starts an internal HTTP API bound to a random loopback port and targets that.
func runStdioMCPWithInternalServer(ctx context.Context, cfg *config.Config, app *App) {
	logger := app.Logger
	externalURL := "http://" + cfg.Addr()
	baseURL := externalURL

	logger.Info("checking for external API server", zap.String("url", externalURL))

	if externalAPIAvailable(externalURL) {
		logger.Info("external API server found, using it for MCP", zap.String("url", externalURL))
	} else {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			logger.Fatal("failed to get available port", zap.Error(err))
		}
		baseURL = "http://" + listener.Addr().String()

		httpServer := &http.Server{Handler: newRouter(app, baseURL)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				logger.Error("internal HTTP server error", zap.Error(err))
			}
		}()
		defer httpServer.Close()

		logger.Info("started internal HTTP server for MCP stdio", zap.String("url", baseURL))
	}

	mcpClient := mcp.NewClient(baseURL)
	logger.Info("MCP stdio server ready", zap.String("api", baseURL))

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		logger.Error("MCP stdio server error", zap.Error(err))
	}
}
