// Package git implements vcs.Repository by running the git CLI.
package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"

	"github.com/starford/cookbook/internal/vcs"
)

// Git is a working copy driven through the git binary.
type Git struct {
	// root is the working copy directory
	root string
}

var _ vcs.Repository = (*Git)(nil)

// New returns a Git rooted at dir. The directory is not inspected; use
// IsRepo to check it.
func New(dir string) *Git {
	return &Git{root: dir}
}

// Root returns the working copy directory.
func (g *Git) Root() string {
	return g.root
}

// Available reports whether the git binary is on PATH.
func Available() bool {
	_, err := exec.LookPath("git")
	return err == nil
}

// Clone clones url into dir.
func Clone(ctx context.Context, url, dir string) error {
	_, err := run(ctx, "", "clone", url, dir)
	return err
}

// IsRepo reports whether the root is inside a git working tree.
func (g *Git) IsRepo(ctx context.Context) (bool, error) {
	out, err := g.exec(ctx, "rev-parse", "--is-inside-work-tree")
	if err != nil {
		if errors.Is(err, vcs.ErrNotARepo) {
			return false, nil
		}
		return false, err
	}
	return strings.TrimSpace(out) == "true", nil
}

// Head returns the hash of the current commit.
func (g *Git) Head(ctx context.Context) (string, error) {
	out, err := g.exec(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// SetConfig sets a repository-local configuration value.
func (g *Git) SetConfig(ctx context.Context, key, value string) error {
	_, err := g.exec(ctx, "config", "--local", key, value)
	return err
}

func (g *Git) exec(ctx context.Context, args ...string) (string, error) {
	return run(ctx, g.root, args...)
}

// run executes git in dir with prompts disabled. Credentials embedded in
// remote URLs are masked in returned errors.
func run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	output, err := cmd.CombinedOutput()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("git %s: %w", args[0], vcs.ErrTimeout)
		}
		if ctx.Err() != nil {
			return "", fmt.Errorf("git %s: %w", args[0], ctx.Err())
		}
		if strings.Contains(string(output), "not a git repository") {
			return string(output), fmt.Errorf("git %s: %w", args[0], vcs.ErrNotARepo)
		}
		return string(output), fmt.Errorf("git %s failed: %w\n%s",
			args[0], err, Redact(strings.TrimSpace(string(output))))
	}
	return string(output), nil
}

var credentials = regexp.MustCompile(`(https?://)[^@/\s]+@`)

// Redact masks credentials embedded in http(s) URLs.
func Redact(s string) string {
	return credentials.ReplaceAllString(s, "${1}***@")
}

// StripCredentials removes the userinfo part of an http(s) URL.
func StripCredentials(url string) string {
	return credentials.ReplaceAllString(url, "${1}")
}
