package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/starford/cookbook/internal/github"
	"github.com/starford/cookbook/internal/gitsync"
	"github.com/starford/cookbook/internal/history"
	"github.com/starford/cookbook/internal/recipes"
	"github.com/starford/cookbook/internal/storage"
	"github.com/starford/cookbook/internal/vcs/git"
)

// NewLogger builds the JSON logger described by cfg. Output goes to
// cfg.LogFile with rotation when set, otherwise to fallback. The returned
// closer releases the log file.
func NewLogger(cfg ApplicationConfig, fallback io.Writer) (*slog.Logger, io.Closer) {
	var out io.Writer = fallback
	var closer io.Closer = io.NopCloser(nil)
	if cfg.LogFile != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    10, // MB
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		out, closer = lj, lj
	}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	return logger, closer
}

// Components are the long-lived services shared by the server, the MCP
// server and the CLI commands.
type Components struct {
	Store       storage.Provider
	Recipes     *recipes.Repository
	History     *history.DB
	Coordinator *gitsync.Coordinator
}

// NewComponents opens the site clone and the sync history and wires the
// sync coordinator. publisher may be nil.
func NewComponents(cfg *Config, logger *slog.Logger, publisher gitsync.Publisher) (*Components, error) {
	root := cfg.GitHub.AbsLocalPath()
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create site dir: %w", err)
	}
	store, err := storage.NewFS(root)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	if dir := filepath.Dir(cfg.SQLite.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	db, err := history.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init history: %w", err)
	}

	var remote gitsync.RemoteAPI
	if cfg.GitHub.Token != "" {
		client, err := github.New(cfg.GitHub.Token)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("init github client: %w", err)
		}
		remote = client
	}

	opts := gitsync.Options{
		Owner:            cfg.GitHub.Owner,
		Repo:             cfg.GitHub.Repo,
		Token:            cfg.GitHub.Token,
		Branch:           cfg.GitHub.Branch,
		AuthorName:       cfg.GitHub.AuthorName,
		AuthorEmail:      cfg.GitHub.AuthorEmail,
		PullTimeout:      cfg.Sync.PullTimeout,
		PushTimeout:      cfg.Sync.PushTimeout,
		RetryPushTimeout: cfg.Sync.RetryPushTimeout,
		Recorder:         db,
		Publisher:        publisher,
		Logger:           logger.With(slog.String("component", "gitsync")),
	}
	if !git.Available() {
		logger.Warn("git binary not found, sync is disabled")
	}
	var coord *gitsync.Coordinator
	if cfg.GitHub.Configured() && git.Available() {
		coord = gitsync.New(git.New(root), remote, opts)
	} else {
		coord = gitsync.New(nil, remote, opts)
	}

	return &Components{
		Store:       store,
		Recipes:     recipes.New(store, logger.With(slog.String("component", "recipes"))),
		History:     db,
		Coordinator: coord,
	}, nil
}

// Close releases the history database.
func (c *Components) Close() error {
	return c.History.Close()
}

// Ready reports whether the site clone has a recipes directory.
func (c *Components) Ready(context.Context) error {
	ok, err := c.Store.Exists(recipes.Dir)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("recipes directory not found")
	}
	return nil
}
