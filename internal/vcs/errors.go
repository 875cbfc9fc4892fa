package vcs

import "errors"

// Common errors returned by Repository implementations. Check them with
// errors.Is; the wrapping error carries the command output.
var (
	// ErrNotARepo is returned when the directory is not a working copy.
	ErrNotARepo = errors.New("not a git repository")

	// ErrNothingToCommit is returned by Commit when nothing is staged.
	ErrNothingToCommit = errors.New("nothing to commit")

	// ErrPushRejected is returned when a push is rejected by the remote,
	// typically due to non-fast-forward updates.
	ErrPushRejected = errors.New("push rejected by remote")

	// ErrMergeRequired is returned when a pull results in divergent
	// histories or conflicts.
	ErrMergeRequired = errors.New("merge required")

	// ErrTimeout is returned when a VCS operation exceeds its deadline.
	ErrTimeout = errors.New("operation timed out")

	// ErrNoRemote is returned when a named remote is not configured.
	ErrNoRemote = errors.New("no remote configured")
)
