// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/cookbook/internal/api"
	"github.com/starford/cookbook/internal/mcpserver"
	"github.com/starford/cookbook/internal/sse"
	"github.com/starford/cookbook/internal/watch"
)

// Run starts the HTTP server, the recipe watcher and optional auto-sync.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger, logCloser := NewLogger(cfg.App, os.Stdout)
	defer logCloser.Close()
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("local_path", cfg.GitHub.AbsLocalPath()),
		slog.String("repository", cfg.GitHub.Owner+"/"+cfg.GitHub.Repo),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Bool("auto_sync", cfg.App.AutoSync),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker.
	broker := sse.NewBroker(2*time.Second, 30*time.Second)
	defer broker.Close()

	c, err := NewComponents(cfg, logger, broker)
	if err != nil {
		return err
	}
	defer c.Close()

	syncHandler := api.NewSyncHandler(c.Coordinator, c.History, cfg.GitHub.AbsLocalPath())
	apiRouter := api.NewRouter(c.Recipes, syncHandler, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := c.Ready(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
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

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start recipe watcher with SSE callback and optional auto-sync.
	g.Go(func() error {
		wopts := watch.Options{
			Root:     cfg.GitHub.AbsLocalPath(),
			Logger:   logger,
			OnChange: broker.PublishRecipeEvent,
		}
		if cfg.App.AutoSync {
			wopts.AutoSyncDelay = cfg.App.AutoSyncDelay
			wopts.AutoSync = func(ctx context.Context) error {
				res, err := c.Coordinator.Sync(ctx, "")
				if err != nil {
					return err
				}
				logger.Info("auto-sync finished", slog.String("message", res.Message))
				return nil
			}
		}
		if err := watch.Watch(gCtx, wopts); err != nil {
			// Without a clone there is nothing to watch; the API still serves
			// clone and connection checks.
			logger.Warn("recipe watcher not started", slog.String("error", err.Error()))
		}
		return nil
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

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr or the
// configured log file since stdout carries the protocol.
func RunMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger, logCloser := NewLogger(app.config.App, os.Stderr)
	defer logCloser.Close()
	slog.SetDefault(logger)

	c, err := NewComponents(app.config, logger, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	logger.Info("MCP server starting", slog.String("local_path", app.config.GitHub.AbsLocalPath()))
	return mcpserver.New(c.Recipes, app.version).ServeStdio()
}
