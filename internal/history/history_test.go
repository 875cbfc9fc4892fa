package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/cookbook/internal/apperr"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM sync_runs`).Scan(&count); err != nil {
		t.Fatalf("sync_runs table missing: %v", err)
	}
}

func TestRecordAndList(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)

	runs := []Entry{
		{Kind: KindSync, Pushed: true, Commit: "abc", Message: "Update 1 recipe(s)", Files: []string{"content/recipes/a.md"}, At: base},
		{Kind: KindPull, At: base.Add(time.Minute)},
		{Kind: KindSync, Error: "push rejected", At: base.Add(2 * time.Minute)},
	}
	for _, r := range runs {
		if err := db.Record(ctx, r); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := db.List(ctx, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Error != "push rejected" || got[2].Commit != "abc" {
		t.Errorf("order = %+v", got)
	}
	if len(got[2].Files) != 1 || got[2].Files[0] != "content/recipes/a.md" {
		t.Errorf("files = %v", got[2].Files)
	}
	if !got[2].At.Equal(base) {
		t.Errorf("at = %v, want %v", got[2].At, base)
	}
	if got[1].Files == nil {
		t.Error("files should be an empty slice")
	}

	limited, err := db.List(ctx, 1)
	if err != nil || len(limited) != 1 {
		t.Errorf("List(1) = %v, %v", limited, err)
	}
}

func TestLastSuccess(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if _, err := db.LastSuccess(ctx, KindSync); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("empty db err = %v, want ErrNotFound", err)
	}

	base := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	_ = db.Record(ctx, Entry{Kind: KindSync, Pushed: true, Commit: "good", At: base})
	_ = db.Record(ctx, Entry{Kind: KindSync, Error: "timeout", At: base.Add(time.Minute)})
	_ = db.Record(ctx, Entry{Kind: KindPull, At: base.Add(2 * time.Minute)})

	last, err := db.LastSuccess(ctx, KindSync)
	if err != nil {
		t.Fatalf("LastSuccess: %v", err)
	}
	if last.Commit != "good" || !last.Pushed {
		t.Errorf("last = %+v", last)
	}
}
