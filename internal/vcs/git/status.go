package git

import (
	"context"
	"strconv"
	"strings"

	"github.com/starford/cookbook/internal/vcs"
)

// Status returns the branch, upstream divergence and changed files.
func (g *Git) Status(ctx context.Context) (*vcs.StatusResult, error) {
	out, err := g.exec(ctx, "status", "--porcelain=v1", "-z", "--branch", "--untracked-files=all")
	if err != nil {
		return nil, err
	}
	return parseStatus(out), nil
}

// parseStatus parses `git status --porcelain=v1 -z --branch` output.
// Entries are NUL separated; renames and copies carry the source path as an
// extra entry.
func parseStatus(out string) *vcs.StatusResult {
	res := &vcs.StatusResult{Files: []vcs.FileStatus{}}
	fields := strings.Split(out, "\x00")
	for i := 0; i < len(fields); i++ {
		entry := fields[i]
		if strings.HasPrefix(entry, "## ") {
			res.Branch, res.Ahead, res.Behind = parseBranch(entry[3:])
			continue
		}
		if len(entry) < 4 {
			continue
		}
		// XY path: X = index status, Y = working tree status
		fs := vcs.FileStatus{
			Index:      entry[0:1],
			WorkingDir: entry[1:2],
			Path:       entry[3:],
		}
		if fs.Index == "R" || fs.Index == "C" {
			i++ // skip the source path
		}
		res.Files = append(res.Files, fs)
	}
	return res
}

// parseBranch parses the header after "## ", for example
// "main...origin/main [ahead 1, behind 2]".
func parseBranch(s string) (branch string, ahead, behind int) {
	for _, prefix := range []string{"No commits yet on ", "Initial commit on "} {
		if strings.HasPrefix(s, prefix) {
			return strings.TrimPrefix(s, prefix), 0, 0
		}
	}
	if i := strings.Index(s, " ["); i >= 0 && strings.HasSuffix(s, "]") {
		for _, part := range strings.Split(s[i+2:len(s)-1], ", ") {
			name, num, ok := strings.Cut(part, " ")
			if !ok {
				continue
			}
			n, _ := strconv.Atoi(num)
			switch name {
			case "ahead":
				ahead = n
			case "behind":
				behind = n
			}
		}
		s = s[:i]
	}
	if i := strings.Index(s, "..."); i >= 0 {
		s = s[:i]
	}
	return s, ahead, behind
}
