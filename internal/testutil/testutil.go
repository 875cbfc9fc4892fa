// Package testutil provides shared test helpers for setting up site clones and databases.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/cookbook/internal/history"
	"github.com/starford/cookbook/internal/storage"
)

// TestDB creates a temporary sync history database that is automatically cleaned up.
func TestDB(t *testing.T) *history.DB {
	t.Helper()
	db, err := history.Open(filepath.Join(t.TempDir(), "cookbook-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestSite creates a temporary Hugo site with hugo.toml and an empty
// content/recipes directory, and a storage.Provider rooted at it.
func TestSite(t *testing.T) (string, storage.Provider) {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "content", "recipes"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "hugo.toml"), []byte("title = \"Cookbook\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	return root, store
}

// WriteRecipe writes raw content to content/recipes/name under root.
func WriteRecipe(t *testing.T, root, name, content string) {
	t.Helper()
	p := filepath.Join(root, "content", "recipes", name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
