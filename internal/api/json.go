package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/cookbook/internal/apperr"
	"github.com/starford/cookbook/internal/gitsync"
	"github.com/starford/cookbook/internal/vcs"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// statusFor maps a domain error to its HTTP status. Timeouts are checked
// before ErrRemote since a timed-out sync carries both.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrValidation), errors.Is(err, gitsync.ErrNotConfigured),
		errors.Is(err, vcs.ErrNotARepo):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrConflict), errors.Is(err, apperr.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, apperr.ErrRemote):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs err and writes it as a JSON error body. Internal errors
// are not echoed to the client.
func writeError(w http.ResponseWriter, op string, err error, attrs ...any) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	var syncErr *gitsync.SyncError
	if errors.As(err, &syncErr) {
		msg = syncErr.Error()
	}
	args := append([]any{slog.String("error", err.Error()), slog.Int("status", status)}, attrs...)
	if status >= http.StatusInternalServerError {
		slog.Error(op+" failed", args...)
	} else {
		slog.Warn(op+" failed", args...)
	}
	writeJSON(w, status, errorBody(msg))
}
