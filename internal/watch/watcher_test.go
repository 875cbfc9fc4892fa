package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/cookbook/internal/sse"
	"github.com/starford/cookbook/internal/testutil"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(kind, name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, kind+":"+name)
}

func (l *eventLog) has(e string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Contains(l.events, e)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func startWatch(t *testing.T, opts Options) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := Watch(ctx, opts); err != nil {
			t.Errorf("Watch: %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(100 * time.Millisecond)
}

func TestWatch_CreateUpdateDelete(t *testing.T) {
	root, _ := testutil.TestSite(t)
	testutil.WriteRecipe(t, root, "existing.md", "+++\ntitle = \"Old\"\n+++\n")
	log := &eventLog{}
	startWatch(t, Options{Root: root, Logger: quietLogger(), OnChange: log.add})

	dir := filepath.Join(root, "content", "recipes")
	_ = os.WriteFile(filepath.Join(dir, "new.md"), []byte("# New"), 0o644)
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return log.has(sse.RecipeCreated + ":new.md")
	}, "expected created event for new.md")

	_ = os.WriteFile(filepath.Join(dir, "existing.md"), []byte("# Changed"), 0o644)
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return log.has(sse.RecipeUpdated + ":existing.md")
	}, "expected updated event for existing.md")

	_ = os.Remove(filepath.Join(dir, "existing.md"))
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return log.has(sse.RecipeDeleted + ":existing.md")
	}, "expected deleted event for existing.md")
}

func TestWatch_IgnoresOtherFiles(t *testing.T) {
	root, _ := testutil.TestSite(t)
	log := &eventLog{}
	startWatch(t, Options{Root: root, Logger: quietLogger(), OnChange: log.add})

	dir := filepath.Join(root, "content", "recipes")
	_ = os.WriteFile(filepath.Join(dir, "photo.jpg"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "_index.md"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, ".swap.md"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "real.md"), []byte("x"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return log.has(sse.RecipeCreated + ":real.md")
	}, "expected created event for real.md")

	log.mu.Lock()
	defer log.mu.Unlock()
	for _, e := range log.events {
		if e != sse.RecipeCreated+":real.md" && e != sse.RecipeUpdated+":real.md" {
			t.Errorf("unexpected event %q", e)
		}
	}
}

func TestWatch_AutoSyncDebounced(t *testing.T) {
	root, _ := testutil.TestSite(t)
	var syncs atomic.Int32
	startWatch(t, Options{
		Root:          root,
		Logger:        quietLogger(),
		AutoSyncDelay: 300 * time.Millisecond,
		AutoSync: func(context.Context) error {
			syncs.Add(1)
			return nil
		},
	})

	dir := filepath.Join(root, "content", "recipes")
	for _, name := range []string{"a.md", "b.md", "c.md"} {
		_ = os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644)
		time.Sleep(50 * time.Millisecond)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return syncs.Load() >= 1
	}, "auto-sync never ran")
	time.Sleep(500 * time.Millisecond)
	if n := syncs.Load(); n != 1 {
		t.Errorf("auto-sync ran %d times, want 1", n)
	}
}

func TestWatch_MissingDirectory(t *testing.T) {
	err := Watch(context.Background(), Options{Root: t.TempDir(), Logger: quietLogger()})
	if err == nil {
		t.Error("expected error when the recipes directory is missing")
	}
}
