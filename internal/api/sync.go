package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/starford/cookbook/internal/apperr"
	"github.com/starford/cookbook/internal/gitsync"
	"github.com/starford/cookbook/internal/history"
	"github.com/starford/cookbook/internal/vcs"
)

// SyncService is the part of gitsync.Coordinator the API exposes.
type SyncService interface {
	RecipeStatus(ctx context.Context) (*gitsync.RecipeChanges, error)
	Status(ctx context.Context) (*vcs.StatusResult, error)
	Sync(ctx context.Context, message string) (*gitsync.SyncResult, error)
	Pull(ctx context.Context) (*gitsync.PullResult, error)
	History(ctx context.Context, limit int) ([]vcs.Commit, error)
	TestConnection(ctx context.Context) (*gitsync.Connection, error)
	ValidateLocalClone(ctx context.Context, path string) gitsync.CloneCheck
	CloneInto(ctx context.Context, target string) error
}

// RunLog lists recorded sync and pull runs.
type RunLog interface {
	List(ctx context.Context, limit int) ([]history.Entry, error)
	LastSuccess(ctx context.Context, kind string) (*history.Entry, error)
}

// SyncHandler holds the sync and GitHub route handlers.
type SyncHandler struct {
	svc       SyncService
	runs      RunLog
	localPath string
}

// NewSyncHandler creates a SyncHandler. localPath is the configured clone
// location used when a request names none.
func NewSyncHandler(svc SyncService, runs RunLog, localPath string) *SyncHandler {
	return &SyncHandler{svc: svc, runs: runs, localPath: localPath}
}

func queryLimit(r *http.Request) int {
	n, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return n
}

// Status handles GET /api/sync/status.
//
//	@Summary		Working copy status
//	@Tags			sync
//	@Produce		json
//	@Success		200	{object}	vcs.StatusResult
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sync/status [get]
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Status(r.Context())
	if err != nil {
		writeError(w, "sync status", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// RecipeStatus handles GET /api/sync/recipes.
//
//	@Summary		Pending recipe changes
//	@Tags			sync
//	@Produce		json
//	@Success		200	{object}	RecipeStatusResponse
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sync/recipes [get]
func (h *SyncHandler) RecipeStatus(w http.ResponseWriter, r *http.Request) {
	changes, err := h.svc.RecipeStatus(r.Context())
	if err != nil {
		writeError(w, "recipe status", err)
		return
	}
	resp := RecipeStatusResponse{RecipeChanges: changes}
	last, err := h.runs.LastSuccess(r.Context(), history.KindSync)
	switch {
	case err == nil:
		resp.LastSyncedAt = &last.At
	case !errors.Is(err, apperr.ErrNotFound):
		writeError(w, "recipe status", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Sync handles POST /api/sync.
//
//	@Summary		Commit and push recipe changes
//	@Tags			sync
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SyncRequest	false	"Optional commit message"
//	@Success		200		{object}	gitsync.SyncResult
//	@Failure		502		{object}	errResponse
//	@Failure		504		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sync [post]
func (h *SyncHandler) Sync(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	var req SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	res, err := h.svc.Sync(r.Context(), req.Message)
	if err != nil {
		writeError(w, "sync", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Pull handles POST /api/sync/pull.
//
//	@Summary		Pull remote changes into the local clone
//	@Tags			sync
//	@Produce		json
//	@Success		200	{object}	gitsync.PullResult
//	@Failure		502	{object}	errResponse
//	@Failure		504	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sync/pull [post]
func (h *SyncHandler) Pull(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Pull(r.Context())
	if err != nil {
		writeError(w, "pull", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// History handles GET /api/sync/history.
//
//	@Summary		Recent commits
//	@Tags			sync
//	@Produce		json
//	@Param			limit	query		int	false	"Max commits"
//	@Success		200		{object}	CommitListResponse
//	@Security		BearerAuth
//	@Router			/sync/history [get]
func (h *SyncHandler) History(w http.ResponseWriter, r *http.Request) {
	commits, err := h.svc.History(r.Context(), queryLimit(r))
	if err != nil {
		writeError(w, "sync history", err)
		return
	}
	writeJSON(w, http.StatusOK, CommitListResponse{Commits: commits})
}

// Runs handles GET /api/sync/log.
//
//	@Summary		Recorded sync and pull runs
//	@Tags			sync
//	@Produce		json
//	@Param			limit	query		int	false	"Max runs"
//	@Success		200		{object}	RunListResponse
//	@Security		BearerAuth
//	@Router			/sync/log [get]
func (h *SyncHandler) Runs(w http.ResponseWriter, r *http.Request) {
	runs, err := h.runs.List(r.Context(), queryLimit(r))
	if err != nil {
		writeError(w, "sync log", err)
		return
	}
	writeJSON(w, http.StatusOK, RunListResponse{Runs: runs})
}

// Connection handles GET /api/github/connection.
//
//	@Summary		Check the GitHub token and repository access
//	@Tags			github
//	@Produce		json
//	@Success		200	{object}	gitsync.Connection
//	@Failure		502	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/github/connection [get]
func (h *SyncHandler) Connection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.svc.TestConnection(r.Context())
	if err != nil {
		writeError(w, "github connection", err)
		return
	}
	writeJSON(w, http.StatusOK, conn)
}

// CheckClone handles GET /api/github/clone.
//
//	@Summary		Validate a local clone
//	@Tags			github
//	@Produce		json
//	@Param			path	query		string	false	"Clone path, defaults to the configured one"
//	@Success		200		{object}	gitsync.CloneCheck
//	@Security		BearerAuth
//	@Router			/github/clone [get]
func (h *SyncHandler) CheckClone(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Query().Get("path")
	if p == "" {
		p = h.localPath
	}
	writeJSON(w, http.StatusOK, h.svc.ValidateLocalClone(r.Context(), p))
}

// Clone handles POST /api/github/clone.
//
//	@Summary		Clone the configured repository
//	@Tags			github
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CloneRequest	false	"Target path"
//	@Success		201		{object}	gitsync.CloneCheck
//	@Failure		409		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/github/clone [post]
func (h *SyncHandler) Clone(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	var req CloneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Path == "" {
		req.Path = h.localPath
	}
	if err := h.svc.CloneInto(r.Context(), req.Path); err != nil {
		writeError(w, "clone", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.svc.ValidateLocalClone(r.Context(), req.Path))
}
