// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/tagtracker/internal/api"
	"github.com/starford/tagtracker/internal/mcpserver"
	"github.com/starford/tagtracker/internal/report"
	"github.com/starford/tagtracker/internal/sse"
	"github.com/starford/tagtracker/internal/storage"
	"github.com/starford/tagtracker/internal/tracker"
	"github.com/starford/tagtracker/internal/view/builtin"
)

type runtime struct {
	app    *application
	logger *slog.Logger
	svc    *tracker.Service
}

func setup(opts []Option) (*runtime, error) {
	app := &application{stdout: os.Stdout, version: "dev"}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}

	cfg := app.config

	// Structured JSON logger on stderr; stdout carries confirmations and
	// the MCP stdio transport.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("output", cfg.Report.Output),
		slog.String("spec_file", cfg.Report.SpecFile),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	registry, err := builtin.NewRegistry()
	if err != nil {
		return nil, fmt.Errorf("init views: %w", err)
	}

	svc, err := tracker.NewService(store, registry, tracker.Options{
		SpecFile: cfg.Report.SpecFile,
		Defaults: cfg.Report.Defaults(),
		Filters:  cfg.Report.Filter,
		Settings: cfg.Settings,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("init tracker: %w", err)
	}

	return &runtime{app: app, logger: logger, svc: svc}, nil
}

// Run indexes the search root once and writes every report.
func Run(ctx context.Context, opts ...Option) error {
	rt, err := setup(opts)
	if err != nil {
		return err
	}

	color.New(color.FgCyan).Fprintln(rt.app.stdout, "Analyzing...")
	snap, err := rt.svc.Run(ctx)
	if snap != nil {
		printResults(rt.app.stdout, rt.svc.Root(), snap.Results, err)
	}
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	return nil
}

// Watch runs once and then re-runs whenever the search root changes, until
// a shutdown signal arrives.
func Watch(ctx context.Context, opts ...Option) error {
	rt, err := setup(opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return tracker.Watch(ctx, rt.svc, rt.logger, func(snap *tracker.Snapshot, runErr error) {
		if snap != nil {
			printResults(rt.app.stdout, rt.svc.Root(), snap.Results, runErr)
		}
	})
}

// ListViews prints the registered view names.
func ListViews(opts ...Option) error {
	app := &application{stdout: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	registry, err := builtin.NewRegistry()
	if err != nil {
		return err
	}
	for _, name := range registry.Names() {
		fmt.Fprintln(app.stdout, name)
	}
	return nil
}

// ServeMCP serves the MCP tools over stdin/stdout.
func ServeMCP(_ context.Context, opts ...Option) error {
	rt, err := setup(opts)
	if err != nil {
		return err
	}
	rt.logger.Info("MCP server starting on stdio")
	return mcpserver.New(rt.svc, rt.app.version).ServeStdio()
}

// Serve watches the search root and serves the HTTP preview API with
// server-sent events until a shutdown signal arrives.
func Serve(ctx context.Context, opts ...Option) error {
	rt, err := setup(opts)
	if err != nil {
		return err
	}
	cfg := rt.app.config
	logger := rt.logger

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	publish := func(snap *tracker.Snapshot, runErr error) {
		if snap == nil {
			broker.PublishRun(nil, 0, runErr)
			return
		}
		broker.PublishRun(rendered(snap.Results), snap.Index.Len(), runErr)
	}

	apiRouter := api.NewRouter(rt.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker, publish)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if rt.svc.Latest() == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"indexing"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher with SSE callback.
	g.Go(func() error {
		return tracker.Watch(gCtx, rt.svc, logger, publish)
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the errgroup context so the watcher stops with the
// HTTP server.
var errShutdown = errors.New("shutdown")

func rendered(results []report.Result) []sse.Rendered {
	out := make([]sse.Rendered, len(results))
	for i, r := range results {
		out[i] = sse.Rendered{Name: r.Name, Path: r.Path, Views: r.Rendered, Skipped: r.Skipped}
	}
	return out
}

// printResults confirms a completed run and lists the outputs it wrote. A run
// that failed part way lists what was written without the confirmation.
func printResults(w io.Writer, root string, results []report.Result, runErr error) {
	grey := color.New(color.FgHiBlack)
	if runErr == nil {
		color.New(color.FgGreen).Fprintln(w, "Success!")
		if len(results) == 0 {
			grey.Fprintln(w, "\tNo reports written: the report specification has no entries")
			return
		}
	}
	for _, r := range results {
		grey.Fprintf(w, "\tWrote Summary to %s\n", filepath.Join(root, r.Path))
		if len(r.Skipped) > 0 {
			color.New(color.FgYellow).Fprintf(w, "\tSkipped views: %v\n", r.Skipped)
		}
	}
}
