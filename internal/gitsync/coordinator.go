// Package gitsync propagates recipe changes between the local Hugo site
// clone and its GitHub repository.
package gitsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/starford/cookbook/internal/github"
	"github.com/starford/cookbook/internal/history"
	"github.com/starford/cookbook/internal/sse"
	"github.com/starford/cookbook/internal/vcs"
	"github.com/starford/cookbook/internal/vcs/git"
)

const (
	recipePrefix = "content/recipes/"
	recipeExt    = ".md"
	remoteName   = "origin"
)

// RemoteAPI is the hosting service used for connection checks.
type RemoteAPI interface {
	CurrentUser(ctx context.Context) (string, error)
	Repository(ctx context.Context, owner, name string) (*github.RepoInfo, error)
}

// Recorder stores completed runs.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) error
}

// Publisher broadcasts run notifications.
type Publisher interface {
	Publish(event sse.Event)
}

// DeadlineFunc derives a context bounded by d.
type DeadlineFunc func(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc)

// Options configures a Coordinator.
type Options struct {
	Owner  string
	Repo   string
	Token  string
	Branch string
	// Host is the git host used for remote URLs, github.com by default.
	Host string

	AuthorName  string
	AuthorEmail string

	PullTimeout      time.Duration
	PushTimeout      time.Duration
	RetryPushTimeout time.Duration

	Recorder  Recorder
	Publisher Publisher
	Logger    *slog.Logger

	Deadline DeadlineFunc
	Now      func() time.Time
	// Open returns the working copy at dir; Clone clones url into dir.
	Open  func(dir string) vcs.Repository
	Clone func(ctx context.Context, url, dir string) error
}

func (o *Options) setDefaults() {
	if o.Branch == "" {
		o.Branch = "main"
	}
	if o.Host == "" {
		o.Host = "github.com"
	}
	if o.AuthorName == "" {
		o.AuthorName = "Cookbook Manager"
	}
	if o.AuthorEmail == "" {
		o.AuthorEmail = "cookbook@localhost"
	}
	if o.PullTimeout <= 0 {
		o.PullTimeout = 30 * time.Second
	}
	if o.PushTimeout <= 0 {
		o.PushTimeout = 45 * time.Second
	}
	if o.RetryPushTimeout <= 0 {
		o.RetryPushTimeout = 20 * time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Deadline == nil {
		o.Deadline = context.WithTimeout
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Open == nil {
		o.Open = func(dir string) vcs.Repository { return git.New(dir) }
	}
	if o.Clone == nil {
		o.Clone = git.Clone
	}
}

// Coordinator runs status, sync and pull against one working copy. Sync and
// Pull are serialised.
type Coordinator struct {
	repo   vcs.Repository
	remote RemoteAPI
	opts   Options
	mu     sync.Mutex
}

// New creates a Coordinator. repo may be nil when no local clone is
// configured yet; remote may be nil when no token is configured.
func New(repo vcs.Repository, remote RemoteAPI, opts Options) *Coordinator {
	opts.setDefaults()
	return &Coordinator{repo: repo, remote: remote, opts: opts}
}

// ErrNotConfigured is returned by operations that need a local clone or an
// API client that was not configured.
var ErrNotConfigured = errors.New("gitsync: not configured")

// RecipeChanges is the recipe-scoped part of the working copy status.
type RecipeChanges struct {
	Branch     string           `json:"branch"`
	Ahead      int              `json:"ahead"`
	Behind     int              `json:"behind"`
	Files      []vcs.FileStatus `json:"files"`
	Modified   []string         `json:"modified"`
	Created    []string         `json:"created"`
	Deleted    []string         `json:"deleted"`
	HasChanges bool             `json:"has_changes"`
}

// SyncedFile is one file carried by a sync.
type SyncedFile struct {
	File   string `json:"file"`
	Status string `json:"status"`
}

// SyncResult reports the outcome of Sync.
type SyncResult struct {
	Pushed        bool         `json:"pushed"`
	Message       string       `json:"message"`
	CommitMessage string       `json:"commit_message,omitempty"`
	Commit        string       `json:"commit,omitempty"`
	Files         []SyncedFile `json:"files"`
	SyncedAt      time.Time    `json:"synced_at"`
}

// PullResult reports the outcome of Pull.
type PullResult struct {
	Head     string    `json:"head"`
	PulledAt time.Time `json:"pulled_at"`
}

// Status returns the full working copy status.
func (c *Coordinator) Status(ctx context.Context) (*vcs.StatusResult, error) {
	if c.repo == nil {
		return nil, fmt.Errorf("%w: local repository", ErrNotConfigured)
	}
	st, err := c.repo.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("get repository status: %w", err)
	}
	return st, nil
}

// RecipeStatus returns the working copy status restricted to recipe files.
func (c *Coordinator) RecipeStatus(ctx context.Context) (*RecipeChanges, error) {
	st, err := c.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("get recipe status: %w", err)
	}
	return recipeChanges(st), nil
}

func recipeChanges(st *vcs.StatusResult) *RecipeChanges {
	rc := &RecipeChanges{
		Branch:   st.Branch,
		Ahead:    st.Ahead,
		Behind:   st.Behind,
		Files:    []vcs.FileStatus{},
		Modified: []string{},
		Created:  []string{},
		Deleted:  []string{},
	}
	for _, f := range st.Files {
		if !isRecipePath(f.Path) {
			continue
		}
		rc.Files = append(rc.Files, f)
		if f.WorkingDir == "M" || f.Index == "M" {
			rc.Modified = append(rc.Modified, f.Path)
		}
		if f.WorkingDir == "?" || f.Index == "A" {
			rc.Created = append(rc.Created, f.Path)
		}
		if f.WorkingDir == "D" || f.Index == "D" {
			rc.Deleted = append(rc.Deleted, f.Path)
		}
	}
	rc.HasChanges = len(rc.Files) > 0
	return rc
}

func isRecipePath(p string) bool {
	lower := strings.ToLower(p)
	return strings.HasPrefix(lower, recipePrefix) && strings.HasSuffix(lower, recipeExt)
}

// Sync commits the pending recipe changes and pushes them. With no recipe
// changes it returns Pushed=false without touching the repository.
func (c *Coordinator) Sync(ctx context.Context, message string) (*SyncResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.repo == nil {
		return nil, fmt.Errorf("%w: local repository", ErrNotConfigured)
	}
	log := c.opts.Logger.With(slog.String("op", opSync))

	changes, err := c.RecipeStatus(ctx)
	if err != nil {
		return nil, c.fail(ctx, opSync, err)
	}
	if !changes.HasChanges {
		log.Info("no recipe changes to sync")
		return &SyncResult{Message: "No recipe changes to sync", Files: []SyncedFile{}}, nil
	}

	paths := make([]string, 0, len(changes.Files))
	files := make([]SyncedFile, 0, len(changes.Files))
	for _, f := range changes.Files {
		paths = append(paths, f.Path)
		status := strings.TrimSpace(f.Index)
		if status == "" {
			status = f.WorkingDir
		}
		files = append(files, SyncedFile{File: f.Path, Status: status})
	}
	log.Info("syncing recipes", slog.Int("files", len(paths)))

	c.setIdentity(ctx, log)
	if err := c.repo.Add(ctx, paths...); err != nil {
		return nil, c.fail(ctx, opSync, err)
	}

	commitMsg := strings.TrimSpace(message)
	if commitMsg == "" {
		commitMsg = fmt.Sprintf("Update %d recipe(s) via Cookbook Manager", len(paths))
	}
	hash, err := c.repo.Commit(ctx, commitMsg, paths...)
	if errors.Is(err, vcs.ErrNothingToCommit) {
		log.Info("nothing to commit")
		return &SyncResult{Message: "No recipe changes to sync", Files: []SyncedFile{}}, nil
	}
	if err != nil {
		return nil, c.fail(ctx, opSync, err)
	}
	log.Info("created commit", slog.String("commit", hash))

	if err := c.push(ctx, log); err != nil {
		return nil, c.fail(ctx, opSync, err)
	}

	res := &SyncResult{
		Pushed:        true,
		Message:       fmt.Sprintf("Successfully synced %d recipe file(s)", len(paths)),
		CommitMessage: commitMsg,
		Commit:        hash,
		Files:         files,
		SyncedAt:      c.opts.Now(),
	}
	c.record(ctx, history.Entry{
		Kind:    history.KindSync,
		Pushed:  true,
		Commit:  hash,
		Message: commitMsg,
		Files:   paths,
		At:      res.SyncedAt,
	})
	c.publish(sse.SyncCompleted, res)
	log.Info("recipe sync completed", slog.String("commit", hash))
	return res, nil
}

// push pushes under the push deadline. A failure that is not a timeout,
// whether from the deadline or reported by git, points origin
// at the authenticated URL and retries once under the retry deadline.
func (c *Coordinator) push(ctx context.Context, log *slog.Logger) error {
	pctx, cancel := c.opts.Deadline(ctx, c.opts.PushTimeout)
	err := c.repo.Push(pctx, remoteName, c.opts.Branch)
	cancel()
	if err == nil {
		return nil
	}
	log.Warn("push failed", slog.String("error", err.Error()))
	if kindOf(err) == KindTimeout || ctx.Err() != nil {
		return err
	}

	if uerr := c.repo.SetRemoteURL(ctx, remoteName, c.AuthURL()); uerr != nil {
		log.Warn("update remote url failed", slog.String("error", uerr.Error()))
	}
	rctx, cancel := c.opts.Deadline(ctx, c.opts.RetryPushTimeout)
	defer cancel()
	if err := c.repo.Push(rctx, remoteName, c.opts.Branch); err != nil {
		log.Warn("retry push failed", slog.String("error", err.Error()))
		return err
	}
	return nil
}

// Pull points origin at the authenticated URL and pulls the configured
// branch under the pull deadline.
func (c *Coordinator) Pull(ctx context.Context) (*PullResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.repo == nil {
		return nil, fmt.Errorf("%w: local repository", ErrNotConfigured)
	}
	log := c.opts.Logger.With(slog.String("op", opPull))

	c.setIdentity(ctx, log)
	c.ensureRemote(ctx, log)

	pctx, cancel := c.opts.Deadline(ctx, c.opts.PullTimeout)
	err := c.repo.Pull(pctx, remoteName, c.opts.Branch)
	cancel()
	if err != nil {
		return nil, c.fail(ctx, opPull, err)
	}

	head, err := c.repo.Head(ctx)
	if err != nil {
		log.Warn("read head failed", slog.String("error", err.Error()))
	}
	res := &PullResult{Head: head, PulledAt: c.opts.Now()}
	c.record(ctx, history.Entry{Kind: history.KindPull, Commit: head, At: res.PulledAt})
	c.publish(sse.PullCompleted, res)
	log.Info("pull completed", slog.String("head", head))
	return res, nil
}

// History returns up to limit recent commits (10 when limit <= 0).
func (c *Coordinator) History(ctx context.Context, limit int) ([]vcs.Commit, error) {
	if c.repo == nil {
		return nil, fmt.Errorf("%w: local repository", ErrNotConfigured)
	}
	if limit <= 0 {
		limit = 10
	}
	commits, err := c.repo.Log(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("get commit history: %w", err)
	}
	return commits, nil
}

// RepoURL is the credential-free HTTPS URL of the configured repository.
func (c *Coordinator) RepoURL() string {
	return fmt.Sprintf("https://%s/%s/%s.git", c.opts.Host, c.opts.Owner, c.opts.Repo)
}

// AuthURL is RepoURL with the token embedded, or RepoURL without a token.
func (c *Coordinator) AuthURL() string {
	if c.opts.Token == "" {
		return c.RepoURL()
	}
	return fmt.Sprintf("https://%s@%s/%s/%s.git", c.opts.Token, c.opts.Host, c.opts.Owner, c.opts.Repo)
}

func (c *Coordinator) setIdentity(ctx context.Context, log *slog.Logger) {
	for key, value := range map[string]string{
		"user.name":  c.opts.AuthorName,
		"user.email": c.opts.AuthorEmail,
	} {
		if err := c.repo.SetConfig(ctx, key, value); err != nil {
			log.Warn("set git config failed", slog.String("key", key), slog.String("error", err.Error()))
		}
	}
}

func (c *Coordinator) ensureRemote(ctx context.Context, log *slog.Logger) {
	remotes, err := c.repo.Remotes(ctx)
	if err != nil {
		log.Warn("list remotes failed", slog.String("error", err.Error()))
		return
	}
	for _, r := range remotes {
		if r.Name == remoteName {
			if err := c.repo.SetRemoteURL(ctx, remoteName, c.AuthURL()); err != nil {
				log.Warn("update remote url failed", slog.String("error", err.Error()))
			}
			return
		}
	}
	if err := c.repo.AddRemote(ctx, remoteName, c.AuthURL()); err != nil {
		log.Warn("add remote failed", slog.String("error", err.Error()))
	}
}

// fail records a failed run and returns the classified error.
func (c *Coordinator) fail(ctx context.Context, op string, err error) error {
	cerr := classify(op, err)
	c.opts.Logger.Error("remote operation failed",
		slog.String("op", op),
		slog.String("error", err.Error()))
	kind := history.KindSync
	if op == opPull {
		kind = history.KindPull
	}
	c.record(ctx, history.Entry{Kind: kind, Error: cerr.Error(), At: c.opts.Now()})
	return cerr
}

func (c *Coordinator) record(ctx context.Context, e history.Entry) {
	if c.opts.Recorder == nil {
		return
	}
	if err := c.opts.Recorder.Record(context.WithoutCancel(ctx), e); err != nil {
		c.opts.Logger.Warn("record history failed", slog.String("error", err.Error()))
	}
}

func (c *Coordinator) publish(kind string, data any) {
	if c.opts.Publisher == nil {
		return
	}
	c.opts.Publisher.Publish(sse.Event{Type: kind, Data: data})
}
