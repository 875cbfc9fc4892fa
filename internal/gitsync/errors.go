package gitsync

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/starford/cookbook/internal/apperr"
	"github.com/starford/cookbook/internal/vcs"
)

// Kind classifies a failed remote operation.
type Kind int

const (
	KindUnknown Kind = iota
	KindTimeout
	KindAuth
	KindNotFound
	KindRejected
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	case KindRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// SyncError is a classified sync, pull or clone failure. Its message tells
// the user what to do about it.
type SyncError struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *SyncError) Error() string {
	switch e.Kind {
	case KindTimeout:
		return "Recipe sync timed out. This might be due to network issues or authentication problems. Please check your internet connection and GitHub token."
	case KindAuth:
		return "Authentication failed. Please verify your GitHub token has write access to the repository."
	case KindNotFound:
		return "Repository not found. Please check your GitHub repository settings."
	case KindRejected:
		return "Push rejected due to conflicts. The remote repository has changes that conflict with your local recipes."
	}
	switch e.Op {
	case opPull:
		return fmt.Sprintf("Failed to pull changes: %v", e.Err)
	case opClone:
		return fmt.Sprintf("Failed to clone repository: %v", e.Err)
	default:
		return fmt.Sprintf("Recipe sync failed: %v", e.Err)
	}
}

// Unwrap exposes apperr.ErrRemote (and apperr.ErrTimeout for timeouts)
// alongside the cause.
func (e *SyncError) Unwrap() []error {
	if e.Kind == KindTimeout {
		return []error{apperr.ErrRemote, apperr.ErrTimeout, e.Err}
	}
	return []error{apperr.ErrRemote, e.Err}
}

const (
	opSync  = "sync"
	opPull  = "pull"
	opClone = "clone"
)

// classify maps a git or transport failure onto a SyncError.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *SyncError
	if errors.As(err, &se) {
		return err
	}
	return &SyncError{Op: op, Kind: kindOf(err), Err: err}
}

func kindOf(err error) Kind {
	if isTimeout(err) {
		return KindTimeout
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timed out") || strings.Contains(msg, "timeout"):
		return KindTimeout
	case strings.Contains(msg, "authentication") || strings.Contains(msg, "403") || strings.Contains(msg, "401"):
		return KindAuth
	case strings.Contains(msg, "not found") || strings.Contains(msg, "404"):
		return KindNotFound
	case errors.Is(err, vcs.ErrPushRejected) || strings.Contains(msg, "non-fast-forward"):
		return KindRejected
	}
	return KindUnknown
}

func isTimeout(err error) bool {
	return errors.Is(err, vcs.ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}
