// Package watch follows the recipe directory for changes made outside the
// API (editors, git pulls) and drives auto-sync.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/cookbook/internal/recipes"
	"github.com/starford/cookbook/internal/sse"
)

// EventCallback is called for every recipe change. kind is one of
// sse.RecipeCreated, sse.RecipeUpdated, sse.RecipeDeleted.
type EventCallback func(kind, filename string)

// Options configures Watch.
type Options struct {
	// Root is the site clone; Watch follows Root/content/recipes.
	Root     string
	Logger   *slog.Logger
	OnChange EventCallback
	// AutoSync, when set, runs once the directory has been quiet for
	// AutoSyncDelay after a change.
	AutoSync      func(ctx context.Context) error
	AutoSyncDelay time.Duration
}

// Watch processes recipe file events until ctx is cancelled.
func Watch(ctx context.Context, opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	delay := opts.AutoSyncDelay
	if delay <= 0 {
		delay = 10 * time.Second
	}
	dir := filepath.Join(opts.Root, filepath.FromSlash(recipes.Dir))

	known, err := snapshot(dir)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	logger.Info("watcher: started", slog.String("dir", dir))

	var syncTimer *time.Timer
	var syncCh <-chan time.Time
	scheduleSync := func() {
		if opts.AutoSync == nil {
			return
		}
		if syncTimer == nil {
			syncTimer = time.NewTimer(delay)
			syncCh = syncTimer.C
		} else {
			syncTimer.Reset(delay)
		}
	}

	emit := func(kind, name string) {
		logger.Debug("watcher: recipe changed", slog.String("filename", name), slog.String("op", kind))
		if opts.OnChange != nil {
			opts.OnChange(kind, name)
		}
		scheduleSync()
	}

	for {
		select {
		case <-ctx.Done():
			if syncTimer != nil {
				syncTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-syncCh:
			if err := opts.AutoSync(ctx); err != nil {
				logger.Error("watcher: auto-sync failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(ev.Name)
			if !isRecipeFile(name) {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				if info, statErr := os.Stat(ev.Name); statErr != nil || !info.Mode().IsRegular() {
					continue
				}
				kind := sse.RecipeUpdated
				if _, seen := known[name]; !seen {
					kind = sse.RecipeCreated
					known[name] = struct{}{}
				}
				emit(kind, name)

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// Rename fires on the old name; the new name arrives as Create.
				if _, seen := known[name]; !seen {
					continue
				}
				delete(known, name)
				emit(sse.RecipeDeleted, name)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func isRecipeFile(name string) bool {
	return strings.HasSuffix(name, recipes.Ext) && name != recipes.IndexFile && !strings.HasPrefix(name, ".")
}

// snapshot returns the recipe files currently present in dir.
func snapshot(dir string) (map[string]struct{}, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("watch: read %s: %w", dir, err)
	}
	known := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if !e.IsDir() && isRecipeFile(e.Name()) {
			known[e.Name()] = struct{}{}
		}
	}
	return known, nil
}
