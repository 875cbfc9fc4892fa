package git

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/cookbook/internal/vcs"
)

// Push pushes branch to remote.
func (g *Git) Push(ctx context.Context, remote, branch string) error {
	out, err := g.exec(ctx, "push", remote, branch)
	if err != nil {
		if strings.Contains(out, "rejected") || strings.Contains(out, "non-fast-forward") {
			return fmt.Errorf("%w\n%s", vcs.ErrPushRejected, Redact(strings.TrimSpace(out)))
		}
		return err
	}
	return nil
}

// Pull fetches and merges branch from remote.
func (g *Git) Pull(ctx context.Context, remote, branch string) error {
	out, err := g.exec(ctx, "pull", "--no-rebase", remote, branch)
	if err != nil {
		if strings.Contains(out, "CONFLICT") || strings.Contains(out, "divergent branches") {
			return fmt.Errorf("%w\n%s", vcs.ErrMergeRequired, Redact(strings.TrimSpace(out)))
		}
		return err
	}
	return nil
}

// Remotes lists the configured remotes.
func (g *Git) Remotes(ctx context.Context) ([]vcs.Remote, error) {
	out, err := g.exec(ctx, "remote", "-v")
	if err != nil {
		return nil, err
	}
	return parseRemotes(out), nil
}

// parseRemotes parses `git remote -v` lines of the form
// "origin\thttps://host/repo.git (fetch)".
func parseRemotes(out string) []vcs.Remote {
	remotes := []vcs.Remote{}
	index := map[string]int{}
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		name, url := fields[0], fields[1]
		i, ok := index[name]
		if !ok {
			i = len(remotes)
			index[name] = i
			remotes = append(remotes, vcs.Remote{Name: name})
		}
		kind := "(fetch)"
		if len(fields) > 2 {
			kind = fields[2]
		}
		switch kind {
		case "(push)":
			remotes[i].PushURL = url
		default:
			remotes[i].FetchURL = url
		}
	}
	return remotes
}

// AddRemote adds a remote.
func (g *Git) AddRemote(ctx context.Context, name, url string) error {
	_, err := g.exec(ctx, "remote", "add", name, url)
	return err
}

// RemoveRemote removes a remote.
func (g *Git) RemoveRemote(ctx context.Context, name string) error {
	out, err := g.exec(ctx, "remote", "remove", name)
	if err != nil && strings.Contains(out, "No such remote") {
		return fmt.Errorf("remote %s: %w", name, vcs.ErrNoRemote)
	}
	return err
}

// SetRemoteURL changes the URL of an existing remote.
func (g *Git) SetRemoteURL(ctx context.Context, name, url string) error {
	out, err := g.exec(ctx, "remote", "set-url", name, url)
	if err != nil && strings.Contains(out, "No such remote") {
		return fmt.Errorf("remote %s: %w", name, vcs.ErrNoRemote)
	}
	return err
}
