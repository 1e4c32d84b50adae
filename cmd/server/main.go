/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the billing engine server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present), then flags, then billing.yaml + BILLING_* env
  2. Build the logger
  3. Resolve the branding profile
  4. Open the ledger store and the invoice number source
  5. Start the draft session and the HTTP router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Path to a config file (default: ./billing.yaml if present)
  -port    HTTP server port, overrides server.port

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the stores
  4. Exit

EXAMPLES:
  # CSV ledger next to the binary, IEEE profile
  ./server

  # ROBOCEK profile, SQLite ledger with its own counter
  BILLING_PROFILE_ID=robocek BILLING_LEDGER_BACKEND=sqlite \
  BILLING_LEDGER_PATH=./data/billing.db BILLING_NUMBERING_MODE=counter ./server

SEE ALSO:
  - config/config.go: Settings and defaults
  - api/server.go: Router configuration
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/warp/billing-engine/api"
	"github.com/warp/billing-engine/billing"
	"github.com/warp/billing-engine/billing/store"
	"github.com/warp/billing-engine/config"
	"github.com/warp/billing-engine/export"
	"github.com/warp/billing-engine/profile"
	"github.com/warp/billing-engine/store/csvfile"
	"github.com/warp/billing-engine/store/sqlite"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Config file path")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	logger := newLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	p, err := loadProfile(cfg.Profile)
	if err != nil {
		return err
	}

	deps, closeAll, err := wire(ctx, cfg, p, logger)
	if err != nil {
		return err
	}
	defer closeAll()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.NewRouter(api.NewHandler(deps), cfg.CORS.AllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			"addr", server.Addr,
			"profile", p.ID,
			"ledger", cfg.Ledger.Backend,
			"numbering", cfg.Numbering.Mode,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// =============================================================================
// WIRING
// =============================================================================

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func loadProfile(cfg config.ProfileConfig) (*profile.Profile, error) {
	f := profile.NewFactory()
	if cfg.File != "" {
		return f.Load(cfg.File)
	}
	return f.Preset(cfg.ID)
}

// wire opens the stores and builds the handler dependencies. The returned
// func closes whatever was opened.
func wire(ctx context.Context, cfg *config.Config, p *profile.Profile, logger *slog.Logger) (api.Deps, func(), error) {
	var closers []io.Closer
	closeAll := func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				logger.Warn("close store", "error", err)
			}
		}
	}

	var (
		ledgerStore billing.Store
		counters    billing.CounterStore
	)
	switch cfg.Ledger.Backend {
	case config.BackendMemory:
		m := store.NewMemory()
		ledgerStore, counters = m, m
	case config.BackendSQLite:
		s, err := openSQLite(cfg.Ledger.Path)
		if err != nil {
			return api.Deps{}, func() {}, err
		}
		closers = append(closers, s)
		ledgerStore, counters = s, s
	default:
		ledgerStore = csvfile.New(cfg.Ledger.Path, csvfile.WithLogger(logger))
	}

	ledger := billing.NewLedger(ledgerStore, billing.WithLogger(logger))

	var numbers billing.NumberSource
	if cfg.Numbering.Mode == config.NumberingCounter {
		if counters == nil {
			s, err := openSQLite(cfg.Numbering.Path)
			if err != nil {
				closeAll()
				return api.Deps{}, func() {}, err
			}
			closers = append(closers, s)
			counters = s
		}
		src := billing.NewCounterSource(counters)
		if err := src.SeedFromLedger(ctx, ledger); err != nil {
			closeAll()
			return api.Deps{}, func() {}, fmt.Errorf("seed invoice counter: %w", err)
		}
		numbers = src
	} else {
		numbers = billing.NewGenerator(ledger, billing.WithLogger(logger))
	}

	session, err := billing.NewSession(ctx, numbers, p.BillingDefaults(), billing.WithLogger(logger))
	if err != nil {
		closeAll()
		return api.Deps{}, func() {}, err
	}

	renderers := map[billing.Format]billing.DocumentRenderer{
		billing.FormatCSV: export.RecordRenderer{},
	}
	if cfg.Export.PDF {
		renderers[billing.FormatPDF] = export.NewPDFRenderer(p)
	}

	return api.Deps{
		Session: session,
		Ledger:  ledger,
		Finalizer: &billing.Finalizer{
			Ledger:       ledger,
			Renderers:    renderers,
			RequirePhone: p.RequirePhone,
			Logger:       logger,
		},
		Profile:     p,
		Destination: billing.DirectoryDestination(cfg.Output.Dir),
		XLSXEnabled: cfg.Export.XLSX,
		Logger:      logger,
	}, closeAll, nil
}

func openSQLite(path string) (*sqlite.Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	s, err := sqlite.New(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return s, nil
}
