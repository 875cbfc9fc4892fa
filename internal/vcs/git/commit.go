package git

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/starford/cookbook/internal/vcs"
)

// Add stages paths, including deletions.
func (g *Git) Add(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	args := append([]string{"add", "-A", "--"}, paths...)
	_, err := g.exec(ctx, args...)
	return err
}

// Commit commits the staged changes, limited to paths when given, and
// returns the new HEAD.
func (g *Git) Commit(ctx context.Context, message string, paths ...string) (string, error) {
	if message == "" {
		return "", fmt.Errorf("commit message is required")
	}
	args := []string{"commit", "-m", message}
	if len(paths) > 0 {
		args = append(args, "--")
		args = append(args, paths...)
	}
	out, err := g.exec(ctx, args...)
	if err != nil {
		if strings.Contains(out, "nothing to commit") || strings.Contains(out, "no changes added to commit") {
			return "", fmt.Errorf("git commit: %w", vcs.ErrNothingToCommit)
		}
		return "", err
	}
	return g.Head(ctx)
}

const (
	fieldSep  = "\x1f"
	recordSep = "\x1e"
)

// Log returns up to limit commits reachable from HEAD, newest first. A
// repository without commits yields an empty log.
func (g *Git) Log(ctx context.Context, limit int) ([]vcs.Commit, error) {
	if limit <= 0 {
		limit = 10
	}
	out, err := g.exec(ctx, "log",
		"-n", strconv.Itoa(limit),
		"--format=%H"+fieldSep+"%aI"+fieldSep+"%an"+fieldSep+"%s"+recordSep)
	if err != nil {
		if strings.Contains(out, "does not have any commits") {
			return []vcs.Commit{}, nil
		}
		return nil, err
	}
	return parseLog(out), nil
}

func parseLog(out string) []vcs.Commit {
	commits := []vcs.Commit{}
	for _, rec := range strings.Split(out, recordSep) {
		rec = strings.Trim(rec, "\n")
		if rec == "" {
			continue
		}
		parts := strings.SplitN(rec, fieldSep, 4)
		if len(parts) != 4 {
			continue
		}
		date, _ := time.Parse(time.RFC3339, parts[1])
		commits = append(commits, vcs.Commit{
			Hash:    parts[0],
			Date:    date,
			Author:  parts[2],
			Message: parts[3],
		})
	}
	return commits
}
