package gitsync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/cookbook/internal/apperr"
	"github.com/starford/cookbook/internal/github"
	"github.com/starford/cookbook/internal/history"
	"github.com/starford/cookbook/internal/sse"
	"github.com/starford/cookbook/internal/vcs"
)

// fakeRepo records calls and replays scripted results.
type fakeRepo struct {
	mu      sync.Mutex
	root    string
	isRepo  bool
	status  *vcs.StatusResult
	remotes []vcs.Remote
	calls   []string

	statusErr error
	commitErr error
	pushErrs  []error // consumed in order
	pullErr   error
	pushCtxs  []context.Context
}

var _ vcs.Repository = (*fakeRepo)(nil)

func (f *fakeRepo) called(format string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeRepo) has(prefix string) bool {
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

func (f *fakeRepo) count(prefix string) int {
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (f *fakeRepo) Root() string                             { return f.root }
func (f *fakeRepo) IsRepo(context.Context) (bool, error)     { return f.isRepo, nil }
func (f *fakeRepo) Head(context.Context) (string, error)     { return "head123", nil }
func (f *fakeRepo) Remotes(context.Context) ([]vcs.Remote, error) { return f.remotes, nil }

func (f *fakeRepo) Status(context.Context) (*vcs.StatusResult, error) {
	f.called("status")
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return f.status, nil
}

func (f *fakeRepo) Add(_ context.Context, paths ...string) error {
	f.called("add %s", strings.Join(paths, ","))
	return nil
}

func (f *fakeRepo) Commit(_ context.Context, message string, paths ...string) (string, error) {
	f.called("commit %s", message)
	if f.commitErr != nil {
		return "", f.commitErr
	}
	return "abc123", nil
}

func (f *fakeRepo) Push(ctx context.Context, remote, branch string) error {
	f.called("push %s %s", remote, branch)
	f.pushCtxs = append(f.pushCtxs, ctx)
	if len(f.pushErrs) == 0 {
		return nil
	}
	err := f.pushErrs[0]
	f.pushErrs = f.pushErrs[1:]
	return err
}

func (f *fakeRepo) Pull(_ context.Context, remote, branch string) error {
	f.called("pull %s %s", remote, branch)
	return f.pullErr
}

func (f *fakeRepo) AddRemote(_ context.Context, name, url string) error {
	f.called("remote add %s %s", name, url)
	return nil
}

func (f *fakeRepo) RemoveRemote(_ context.Context, name string) error {
	f.called("remote remove %s", name)
	return nil
}

func (f *fakeRepo) SetRemoteURL(_ context.Context, name, url string) error {
	f.called("remote set-url %s %s", name, url)
	return nil
}

func (f *fakeRepo) SetConfig(_ context.Context, key, value string) error {
	f.called("config %s %s", key, value)
	return nil
}

func (f *fakeRepo) Log(_ context.Context, limit int) ([]vcs.Commit, error) {
	f.called("log %d", limit)
	return []vcs.Commit{{Hash: "abc", Message: "m", Author: "a"}}, nil
}

type fakeRecorder struct{ entries []history.Entry }

func (r *fakeRecorder) Record(_ context.Context, e history.Entry) error {
	r.entries = append(r.entries, e)
	return nil
}

type fakePublisher struct{ events []sse.Event }

func (p *fakePublisher) Publish(e sse.Event) { p.events = append(p.events, e) }

type deadlineKey struct{}

// recordingDeadline tags each derived context with the requested duration.
func recordingDeadline(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithValue(ctx, deadlineKey{}, d), func() {}
}

func newCoordinator(repo vcs.Repository, opts Options) (*Coordinator, *fakeRecorder, *fakePublisher) {
	rec := &fakeRecorder{}
	pub := &fakePublisher{}
	opts.Owner, opts.Repo, opts.Token = "chef", "cookbook", "tok"
	opts.Recorder, opts.Publisher = rec, pub
	opts.Deadline = recordingDeadline
	opts.Now = func() time.Time { return time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC) }
	return New(repo, nil, opts), rec, pub
}

func recipeStatus() *vcs.StatusResult {
	return &vcs.StatusResult{
		Branch: "main",
		Files: []vcs.FileStatus{
			{Path: "content/recipes/soup.md", Index: " ", WorkingDir: "M"},
			{Path: "content/recipes/new.md", Index: "?", WorkingDir: "?"},
			{Path: "content/recipes/old.md", Index: "D", WorkingDir: " "},
			{Path: "Content/Recipes/UPPER.MD", Index: "A", WorkingDir: " "},
			{Path: "hugo.toml", Index: " ", WorkingDir: "M"},
			{Path: "content/recipes/image.png", Index: "?", WorkingDir: "?"},
			{Path: "archive/content/recipes/x.md", Index: "?", WorkingDir: "?"},
		},
	}
}

func TestRecipeStatus_FiltersAndBuckets(t *testing.T) {
	c, _, _ := newCoordinator(&fakeRepo{status: recipeStatus()}, Options{})
	rc, err := c.RecipeStatus(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(rc.Files) != 4 || !rc.HasChanges {
		t.Fatalf("files = %+v", rc.Files)
	}
	if !slices.Equal(rc.Modified, []string{"content/recipes/soup.md"}) {
		t.Errorf("modified = %v", rc.Modified)
	}
	if !slices.Equal(rc.Created, []string{"content/recipes/new.md", "Content/Recipes/UPPER.MD"}) {
		t.Errorf("created = %v", rc.Created)
	}
	if !slices.Equal(rc.Deleted, []string{"content/recipes/old.md"}) {
		t.Errorf("deleted = %v", rc.Deleted)
	}
}

func TestSync_NoRecipeChangesIsNoop(t *testing.T) {
	repo := &fakeRepo{status: &vcs.StatusResult{Files: []vcs.FileStatus{
		{Path: "hugo.toml", Index: " ", WorkingDir: "M"},
	}}}
	c, rec, pub := newCoordinator(repo, Options{})

	res, err := c.Sync(context.Background(), "")
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if res.Pushed {
		t.Error("Pushed = true, want false")
	}
	for _, op := range []string{"add", "commit", "push", "config"} {
		if repo.has(op) {
			t.Errorf("unexpected %s call: %v", op, repo.calls)
		}
	}
	if len(rec.entries) != 0 || len(pub.events) != 0 {
		t.Errorf("noop sync recorded %v / published %v", rec.entries, pub.events)
	}
}

func TestSync_StagesOnlyRecipesAndPushes(t *testing.T) {
	repo := &fakeRepo{status: recipeStatus()}
	c, rec, pub := newCoordinator(repo, Options{})

	res, err := c.Sync(context.Background(), "")
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !res.Pushed || res.Commit != "abc123" {
		t.Errorf("result = %+v", res)
	}
	wantAdd := "add content/recipes/soup.md,content/recipes/new.md,content/recipes/old.md,Content/Recipes/UPPER.MD"
	if !repo.has(wantAdd) {
		t.Errorf("calls = %v, want %q", repo.calls, wantAdd)
	}
	if !repo.has("commit Update 4 recipe(s) via Cookbook Manager") {
		t.Errorf("calls = %v", repo.calls)
	}
	if !repo.has("config user.name") || !repo.has("config user.email") {
		t.Errorf("identity not configured: %v", repo.calls)
	}
	if repo.count("push origin main") != 1 {
		t.Errorf("calls = %v", repo.calls)
	}
	if d := repo.pushCtxs[0].Value(deadlineKey{}); d != 45*time.Second {
		t.Errorf("push deadline = %v, want 45s", d)
	}
	if res.Message != "Successfully synced 4 recipe file(s)" {
		t.Errorf("message = %q", res.Message)
	}
	if res.Files[0].Status != "M" || res.Files[1].Status != "?" || res.Files[2].Status != "D" {
		t.Errorf("file statuses = %+v", res.Files)
	}

	if len(rec.entries) != 1 || rec.entries[0].Kind != history.KindSync || !rec.entries[0].Pushed {
		t.Errorf("recorded = %+v", rec.entries)
	}
	if len(pub.events) != 1 || pub.events[0].Type != sse.SyncCompleted {
		t.Errorf("published = %+v", pub.events)
	}
}

func TestSync_CustomMessage(t *testing.T) {
	repo := &fakeRepo{status: recipeStatus()}
	c, _, _ := newCoordinator(repo, Options{})
	if _, err := c.Sync(context.Background(), "Add soups"); err != nil {
		t.Fatal(err)
	}
	if !repo.has("commit Add soups") {
		t.Errorf("calls = %v", repo.calls)
	}
}

func TestSync_RetriesOnceWithAuthenticatedRemote(t *testing.T) {
	repo := &fakeRepo{
		status:   recipeStatus(),
		pushErrs: []error{errors.New("git push failed: exit status 128\nfatal: could not read Username")},
	}
	c, _, _ := newCoordinator(repo, Options{})

	res, err := c.Sync(context.Background(), "")
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !res.Pushed {
		t.Error("expected push to succeed on retry")
	}
	if repo.count("push") != 2 {
		t.Errorf("push calls = %d, want 2", repo.count("push"))
	}
	if !repo.has("remote set-url origin https://tok@github.com/chef/cookbook.git") {
		t.Errorf("calls = %v", repo.calls)
	}
	if d := repo.pushCtxs[1].Value(deadlineKey{}); d != 20*time.Second {
		t.Errorf("retry deadline = %v, want 20s", d)
	}
}

func TestSync_SecondFailureIsReturned(t *testing.T) {
	repo := &fakeRepo{
		status: recipeStatus(),
		pushErrs: []error{
			errors.New("git push failed"),
			fmt.Errorf("%w\n! [rejected] main -> main (fetch first)", vcs.ErrPushRejected),
		},
	}
	c, rec, _ := newCoordinator(repo, Options{})

	_, err := c.Sync(context.Background(), "")
	var se *SyncError
	if !errors.As(err, &se) || se.Kind != KindRejected {
		t.Fatalf("err = %v, want rejected SyncError", err)
	}
	if !errors.Is(err, apperr.ErrRemote) || !errors.Is(err, vcs.ErrPushRejected) {
		t.Errorf("err should unwrap to ErrRemote and the cause: %v", err)
	}
	if repo.count("push") != 2 {
		t.Errorf("push calls = %d, want 2", repo.count("push"))
	}
	if len(rec.entries) != 1 || rec.entries[0].Error == "" {
		t.Errorf("failure not recorded: %+v", rec.entries)
	}
}

func TestSync_TimeoutIsNotRetried(t *testing.T) {
	repo := &fakeRepo{
		status:   recipeStatus(),
		pushErrs: []error{fmt.Errorf("git push: %w", vcs.ErrTimeout)},
	}
	c, _, _ := newCoordinator(repo, Options{})

	_, err := c.Sync(context.Background(), "")
	var se *SyncError
	if !errors.As(err, &se) || se.Kind != KindTimeout {
		t.Fatalf("err = %v, want timeout SyncError", err)
	}
	if !errors.Is(err, apperr.ErrTimeout) {
		t.Error("timeout should unwrap to apperr.ErrTimeout")
	}
	if !strings.HasPrefix(err.Error(), "Recipe sync timed out.") {
		t.Errorf("message = %q", err.Error())
	}
	if repo.count("push") != 1 || repo.has("remote set-url") {
		t.Errorf("calls = %v", repo.calls)
	}
}

func TestSync_GitReportedTimeoutIsNotRetried(t *testing.T) {
	repo := &fakeRepo{
		status: recipeStatus(),
		pushErrs: []error{errors.New("git push failed: exit status 128\n" +
			"fatal: unable to access 'https://github.com/alice/cookbook.git/': " +
			"Failed to connect to github.com port 443: Connection timed out")},
	}
	c, _, _ := newCoordinator(repo, Options{})

	_, err := c.Sync(context.Background(), "")
	var se *SyncError
	if !errors.As(err, &se) || se.Kind != KindTimeout {
		t.Fatalf("err = %v, want timeout SyncError", err)
	}
	if repo.count("push") != 1 || repo.has("remote set-url") {
		t.Errorf("calls = %v", repo.calls)
	}
}

func TestSync_StatusFailureIsRecorded(t *testing.T) {
	repo := &fakeRepo{statusErr: errors.New("git status failed: exit status 128")}
	c, rec, _ := newCoordinator(repo, Options{})

	if _, err := c.Sync(context.Background(), ""); err == nil {
		t.Fatal("expected error")
	}
	if len(rec.entries) != 1 {
		t.Fatalf("history entries = %d, want 1", len(rec.entries))
	}
	e := rec.entries[0]
	if e.Kind != history.KindSync || e.Error == "" || e.Pushed {
		t.Errorf("entry = %+v", e)
	}
	if repo.has("commit") || repo.has("push") {
		t.Errorf("calls = %v", repo.calls)
	}
}

func TestSync_NothingToCommitIsSuccess(t *testing.T) {
	repo := &fakeRepo{
		status:    recipeStatus(),
		commitErr: fmt.Errorf("git commit: %w", vcs.ErrNothingToCommit),
	}
	c, _, _ := newCoordinator(repo, Options{})

	res, err := c.Sync(context.Background(), "")
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if res.Pushed || repo.has("push") {
		t.Errorf("res = %+v calls = %v", res, repo.calls)
	}
}

func TestSync_NotConfigured(t *testing.T) {
	c := New(nil, nil, Options{})
	if _, err := c.Sync(context.Background(), ""); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("err = %v", err)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		kind Kind
		msg  string
	}{
		{context.DeadlineExceeded, KindTimeout, "Recipe sync timed out."},
		{errors.New("fatal: Authentication failed for 'https://github.com/x/y.git/'"), KindAuth, "Authentication failed."},
		{errors.New("The requested URL returned error: 403"), KindAuth, "Authentication failed."},
		{errors.New("remote: Repository not found."), KindNotFound, "Repository not found."},
		{errors.New("Updates were rejected: non-fast-forward"), KindRejected, "Push rejected due to conflicts."},
		{errors.New("disk full"), KindUnknown, "Recipe sync failed: disk full"},
	}
	for _, c := range cases {
		err := classify(opSync, c.err)
		var se *SyncError
		if !errors.As(err, &se) {
			t.Fatalf("classify(%v) = %T", c.err, err)
		}
		if se.Kind != c.kind {
			t.Errorf("classify(%q).Kind = %v, want %v", c.err, se.Kind, c.kind)
		}
		if !strings.HasPrefix(err.Error(), c.msg) {
			t.Errorf("classify(%q) = %q, want prefix %q", c.err, err.Error(), c.msg)
		}
	}
	if got := classify(opPull, errors.New("boom")).Error(); got != "Failed to pull changes: boom" {
		t.Errorf("pull message = %q", got)
	}
}

func TestPull(t *testing.T) {
	repo := &fakeRepo{remotes: []vcs.Remote{{Name: "origin", FetchURL: "https://github.com/chef/cookbook.git"}}}
	c, rec, pub := newCoordinator(repo, Options{Branch: "trunk"})

	res, err := c.Pull(context.Background())
	if err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if res.Head != "head123" {
		t.Errorf("head = %q", res.Head)
	}
	if !repo.has("remote set-url origin https://tok@github.com/chef/cookbook.git") || !repo.has("pull origin trunk") {
		t.Errorf("calls = %v", repo.calls)
	}
	if len(rec.entries) != 1 || rec.entries[0].Kind != history.KindPull {
		t.Errorf("recorded = %+v", rec.entries)
	}
	if len(pub.events) != 1 || pub.events[0].Type != sse.PullCompleted {
		t.Errorf("published = %+v", pub.events)
	}
}

func TestPull_AddsMissingOriginAndClassifiesFailure(t *testing.T) {
	repo := &fakeRepo{pullErr: errors.New("fatal: repository 'https://github.com/chef/cookbook.git/' not found")}
	c, _, _ := newCoordinator(repo, Options{})

	_, err := c.Pull(context.Background())
	var se *SyncError
	if !errors.As(err, &se) || se.Kind != KindNotFound || se.Op != opPull {
		t.Fatalf("err = %#v", err)
	}
	if !repo.has("remote add origin https://tok@github.com/chef/cookbook.git") {
		t.Errorf("calls = %v", repo.calls)
	}
}

func TestHistory_DefaultLimit(t *testing.T) {
	repo := &fakeRepo{}
	c, _, _ := newCoordinator(repo, Options{})
	commits, err := c.History(context.Background(), 0)
	if err != nil || len(commits) != 1 {
		t.Fatalf("History = %v, %v", commits, err)
	}
	if !repo.has("log 10") {
		t.Errorf("calls = %v", repo.calls)
	}
}

func TestCloneInto(t *testing.T) {
	var gotURL, gotDir string
	c, _, _ := newCoordinator(nil, Options{
		Clone: func(_ context.Context, url, dir string) error {
			gotURL, gotDir = url, dir
			return nil
		},
	})
	target := filepath.Join(t.TempDir(), "site")
	if err := c.CloneInto(context.Background(), target); err != nil {
		t.Fatalf("CloneInto: %v", err)
	}
	if gotURL != "https://tok@github.com/chef/cookbook.git" || gotDir != target {
		t.Errorf("clone(%q, %q)", gotURL, gotDir)
	}
	if _, err := os.Stat(target); err != nil {
		t.Errorf("target not created: %v", err)
	}

	full := t.TempDir()
	_ = os.WriteFile(filepath.Join(full, "x"), []byte("x"), 0o644)
	err := c.CloneInto(context.Background(), full)
	if !errors.Is(err, apperr.ErrConflict) || !strings.Contains(err.Error(), "Target directory is not empty") {
		t.Errorf("non-empty target err = %v", err)
	}
}

func TestValidateLocalClone(t *testing.T) {
	site := t.TempDir()
	repo := &fakeRepo{isRepo: true}
	c, _, _ := newCoordinator(nil, Options{Open: func(string) vcs.Repository { return repo }})
	ctx := context.Background()

	check := func(want string) {
		t.Helper()
		got := c.ValidateLocalClone(ctx, site)
		if want == "" {
			if !got.Valid {
				t.Errorf("expected valid, got %+v", got)
			}
			return
		}
		if got.Valid || got.Reason != want {
			t.Errorf("reason = %q, want %q", got.Reason, want)
		}
	}

	if got := c.ValidateLocalClone(ctx, filepath.Join(site, "missing")); got.Reason != "Path does not exist" {
		t.Errorf("missing path reason = %q", got.Reason)
	}

	repo.isRepo = false
	check("Not a git repository")
	repo.isRepo = true

	check("No origin remote found")

	repo.remotes = []vcs.Remote{{Name: "origin", FetchURL: "https://github.com/other/site.git"}}
	check("Wrong repository: expected chef/cookbook")

	repo.remotes = []vcs.Remote{{Name: "origin", FetchURL: "https://tok@github.com/chef/cookbook.git"}}
	check("Hugo configuration file not found")

	_ = os.WriteFile(filepath.Join(site, "hugo.toml"), []byte(""), 0o644)
	check("Recipes directory not found")

	_ = os.MkdirAll(filepath.Join(site, "content", "recipes"), 0o755)
	check("")
}

type fakeRemote struct{ err error }

func (f fakeRemote) CurrentUser(context.Context) (string, error) { return "chef", f.err }
func (f fakeRemote) Repository(_ context.Context, owner, name string) (*github.RepoInfo, error) {
	return &github.RepoInfo{FullName: owner + "/" + name, Permissions: map[string]bool{"push": true}}, f.err
}

func TestTestConnection(t *testing.T) {
	c := New(nil, fakeRemote{}, Options{Owner: "chef", Repo: "cookbook"})
	conn, err := c.TestConnection(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if conn.User != "chef" || conn.Repository != "chef/cookbook" || !conn.Permissions["push"] {
		t.Errorf("conn = %+v", conn)
	}

	c = New(nil, fakeRemote{err: apperr.ErrRemote}, Options{})
	if _, err := c.TestConnection(context.Background()); !errors.Is(err, apperr.ErrRemote) {
		t.Errorf("err = %v", err)
	}

	c = New(nil, nil, Options{})
	if _, err := c.TestConnection(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("err = %v", err)
	}
}
