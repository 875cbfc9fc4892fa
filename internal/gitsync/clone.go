package gitsync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/cookbook/internal/apperr"
	"github.com/starford/cookbook/internal/vcs/git"
)

// CloneCheck is the outcome of ValidateLocalClone.
type CloneCheck struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// Connection describes the authenticated user and repository access.
type Connection struct {
	User        string          `json:"user"`
	Repository  string          `json:"repository"`
	Permissions map[string]bool `json:"permissions"`
}

// CloneInto clones the configured repository into target, which must be
// missing or empty.
func (c *Coordinator) CloneInto(ctx context.Context, target string) error {
	entries, err := os.ReadDir(target)
	switch {
	case err == nil && len(entries) > 0:
		return fmt.Errorf("%w: Target directory is not empty", apperr.ErrConflict)
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("clone: read target: %w", err)
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return fmt.Errorf("clone: create target: %w", err)
	}

	c.opts.Logger.Info("cloning repository",
		slog.String("repository", c.RepoURL()),
		slog.String("target", target))
	if err := c.opts.Clone(ctx, c.AuthURL(), target); err != nil {
		return classify(opClone, err)
	}
	return nil
}

// ValidateLocalClone checks that path is a clone of the configured
// repository with a Hugo site layout. The first failing check is reported.
func (c *Coordinator) ValidateLocalClone(ctx context.Context, path string) CloneCheck {
	if _, err := os.Stat(path); err != nil {
		return CloneCheck{Reason: "Path does not exist"}
	}

	repo := c.opts.Open(path)
	ok, err := repo.IsRepo(ctx)
	if err != nil || !ok {
		return CloneCheck{Reason: "Not a git repository"}
	}

	remotes, err := repo.Remotes(ctx)
	if err != nil {
		return CloneCheck{Reason: err.Error()}
	}
	var originURL string
	found := false
	for _, r := range remotes {
		if r.Name == remoteName {
			originURL, found = r.FetchURL, true
			break
		}
	}
	if !found {
		return CloneCheck{Reason: "No origin remote found"}
	}

	want := c.opts.Owner + "/" + c.opts.Repo
	if !strings.Contains(git.StripCredentials(originURL), want) {
		return CloneCheck{Reason: "Wrong repository: expected " + want}
	}

	if _, err := os.Stat(filepath.Join(path, "hugo.toml")); err != nil {
		return CloneCheck{Reason: "Hugo configuration file not found"}
	}
	if _, err := os.Stat(filepath.Join(path, "content", "recipes")); err != nil {
		return CloneCheck{Reason: "Recipes directory not found"}
	}
	return CloneCheck{Valid: true}
}

// TestConnection checks the token against the remote API and reports the
// user and repository permissions.
func (c *Coordinator) TestConnection(ctx context.Context) (*Connection, error) {
	if c.remote == nil {
		return nil, fmt.Errorf("%w: GitHub token", ErrNotConfigured)
	}
	user, err := c.remote.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("GitHub connection failed: %w", err)
	}
	repo, err := c.remote.Repository(ctx, c.opts.Owner, c.opts.Repo)
	if err != nil {
		return nil, fmt.Errorf("GitHub connection failed: %w", err)
	}
	return &Connection{User: user, Repository: repo.FullName, Permissions: repo.Permissions}, nil
}
