// Package vcs defines the version-control operations the sync coordinator
// relies on. The git subpackage implements them with the git CLI.
package vcs

import (
	"context"
	"time"
)

// FileStatus is one entry of a working-copy status. Index and WorkingDir hold
// the single-letter porcelain codes (" ", "M", "A", "D", "R", "C", "?", "U").
type FileStatus struct {
	Path       string `json:"path"`
	Index      string `json:"index"`
	WorkingDir string `json:"working_dir"`
}

// StatusResult is the working-copy status relative to the tracked upstream.
type StatusResult struct {
	Branch string       `json:"branch"`
	Ahead  int          `json:"ahead"`
	Behind int          `json:"behind"`
	Files  []FileStatus `json:"files"`
}

// Remote is a configured remote with its fetch and push URLs.
type Remote struct {
	Name     string `json:"name"`
	FetchURL string `json:"fetch_url"`
	PushURL  string `json:"push_url"`
}

// Commit is one entry of the commit log.
type Commit struct {
	Hash    string    `json:"hash"`
	Date    time.Time `json:"date"`
	Message string    `json:"message"`
	Author  string    `json:"author"`
}

// Repository is a working copy of a version-controlled tree.
type Repository interface {
	// Root returns the working copy directory.
	Root() string
	IsRepo(ctx context.Context) (bool, error)
	Status(ctx context.Context) (*StatusResult, error)
	Add(ctx context.Context, paths ...string) error
	// Commit records the staged paths and returns the new commit hash.
	// It returns ErrNothingToCommit when there is nothing staged.
	Commit(ctx context.Context, message string, paths ...string) (string, error)
	Head(ctx context.Context) (string, error)
	Push(ctx context.Context, remote, branch string) error
	Pull(ctx context.Context, remote, branch string) error
	Remotes(ctx context.Context) ([]Remote, error)
	AddRemote(ctx context.Context, name, url string) error
	RemoveRemote(ctx context.Context, name string) error
	SetRemoteURL(ctx context.Context, name, url string) error
	// SetConfig sets a repository-local configuration value.
	SetConfig(ctx context.Context, key, value string) error
	Log(ctx context.Context, limit int) ([]Commit, error)
}
