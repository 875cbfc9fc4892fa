// Package recipes implements the recipe collection stored as Markdown files
// under content/recipes of a Hugo site clone.
package recipes

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/sahilm/fuzzy"

	"github.com/starford/cookbook/internal/apperr"
	"github.com/starford/cookbook/internal/checksum"
	"github.com/starford/cookbook/internal/frontmatter"
	"github.com/starford/cookbook/internal/importer"
	"github.com/starford/cookbook/internal/models"
	"github.com/starford/cookbook/internal/storage"
)

// Layout of the Hugo site, relative to the clone root.
const (
	Dir           = "content/recipes"
	Ext           = ".md"
	IndexFile     = "_index.md"
	ArchetypePath = "archetypes/recipes.md"
	Category      = "recipes"
)

const (
	errorPlaceholder = "Error reading file"
	dateLayout       = "2006-01-02"
)

// DefaultContent is the body given to recipes created without one.
const DefaultContent = "## Ingredients\n\n* \n\n## Instructions\n\n1. \n\n## Notes\n\n"

// CreateInput carries the user-supplied fields for a new recipe.
type CreateInput struct {
	Title       string   `json:"title"`
	Tags        []string `json:"tags"`
	Description string   `json:"description"`
	Content     string   `json:"content"`
	PrepTime    string   `json:"prep_time,omitempty"`
	CookTime    string   `json:"cook_time,omitempty"`
	TotalTime   string   `json:"total_time,omitempty"`
	Servings    string   `json:"servings,omitempty"`
}

// Validate checks the required fields.
func (in *CreateInput) Validate() error {
	return validation.ValidateStruct(in,
		validation.Field(&in.Title, validation.Required.Error("recipe title is required")),
	)
}

// UpdateInput replaces the whole document. IfMatch, when set, must equal the
// checksum of the stored file.
type UpdateInput struct {
	Frontmatter frontmatter.Metadata `json:"frontmatter"`
	Content     string               `json:"content"`
	IfMatch     string               `json:"-"`
}

// Repository provides CRUD and query operations over the recipe directory.
// It holds no cache: every call reads the file system.
type Repository struct {
	store  storage.Provider
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Repository.
type Option func(*Repository)

// WithClock overrides the clock used for creation dates.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		r.now = now
	}
}

// New creates a Repository over store.
func New(store storage.Provider, logger *slog.Logger, opts ...Option) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Repository{store: store, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// List returns a summary for every recipe file, newest first.
func (r *Repository) List(ctx context.Context) ([]models.RecipeSummary, error) {
	files, err := r.store.List(Dir, Ext)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("recipes directory not found: %w", apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("list recipes: %w", err)
	}

	out := make([]models.RecipeSummary, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := path.Base(f.Path)
		if name == IndexFile {
			continue
		}
		out = append(out, r.summarize(name, f))
	}
	sortSummaries(out)
	return out, nil
}

func (r *Repository) summarize(name string, f models.FileInfo) models.RecipeSummary {
	data, err := r.store.Read(f.Path)
	if err == nil && !utf8.Valid(data) {
		err = errors.New("file is not valid UTF-8")
	}
	if err != nil {
		r.logger.Warn("recipe unreadable",
			slog.String("filename", name),
			slog.String("error", err.Error()))
		return models.RecipeSummary{
			Filename:    name,
			Title:       strings.TrimSuffix(name, Ext),
			Tags:        []string{},
			Description: errorPlaceholder,
			Modified:    f.ModTime,
			Error:       err.Error(),
		}
	}

	meta, _ := frontmatter.Decode(string(data))
	title := meta.Text("title")
	if title == "" {
		title = strings.TrimSuffix(name, Ext)
	}
	return models.RecipeSummary{
		Filename:    name,
		Title:       title,
		Date:        meta.Text("date"),
		Tags:        tagsOf(meta),
		Description: meta.Text("description"),
		Draft:       meta.Bool("draft"),
		Modified:    f.ModTime,
	}
}

// Get reads and decodes one recipe.
func (r *Repository) Get(_ context.Context, filename string) (*models.Recipe, error) {
	p, err := recipePath(filename)
	if err != nil {
		return nil, err
	}
	data, err := r.store.Read(p)
	if err != nil {
		return nil, notFound(err, filename)
	}
	info, err := r.store.Stat(p)
	if err != nil {
		return nil, notFound(err, filename)
	}
	meta, body := frontmatter.Decode(string(data))
	return &models.Recipe{
		Filename:    filename,
		Frontmatter: meta,
		Content:     body,
		Checksum:    checksum.Sum(data),
		Size:        info.Size,
		Modified:    info.ModTime,
	}, nil
}

// Create writes a new recipe and returns its generated filename.
func (r *Repository) Create(_ context.Context, in CreateInput) (string, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := in.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}

	filename := GenerateFilename(in.Title)
	if filename == Ext {
		return "", fmt.Errorf("%w: recipe title must contain letters or digits", apperr.ErrValidation)
	}
	if err := r.requireDir(); err != nil {
		return "", err
	}
	p := path.Join(Dir, filename)
	exists, err := r.store.Exists(p)
	if err != nil {
		return "", err
	}
	if exists {
		return "", fmt.Errorf("%w: a recipe with this title already exists (%s)", apperr.ErrConflict, filename)
	}

	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}
	meta := frontmatter.NewMetadata()
	meta.Set("title", frontmatter.String(in.Title))
	meta.Set("date", frontmatter.String(r.today()))
	meta.Set("draft", frontmatter.Bool(false))
	meta.Set("tags", frontmatter.Strings(tags...))
	meta.Set("categories", frontmatter.Strings(Category))
	meta.Set("description", frontmatter.String(in.Description))
	for _, opt := range []struct{ key, val string }{
		{"prep_time", in.PrepTime},
		{"cook_time", in.CookTime},
		{"total_time", in.TotalTime},
		{"servings", in.Servings},
	} {
		if opt.val != "" {
			meta.Set(opt.key, frontmatter.String(opt.val))
		}
	}

	body := in.Content
	if body == "" {
		body = DefaultContent
	}
	if err := r.store.Write(p, []byte(frontmatter.Encode(meta, body))); err != nil {
		return "", fmt.Errorf("create recipe: %w", err)
	}
	r.logger.Info("recipe created", slog.String("filename", filename))
	return filename, nil
}

// Update replaces the metadata and body of an existing recipe. The filename
// never changes and categories always end up containing "recipes".
func (r *Repository) Update(_ context.Context, filename string, in UpdateInput) error {
	p, err := recipePath(filename)
	if err != nil {
		return err
	}
	existing, err := r.store.Read(p)
	if err != nil {
		return notFound(err, filename)
	}
	if in.IfMatch != "" && !checksum.Match(existing, in.IfMatch) {
		return fmt.Errorf("%w: %s was modified since it was read", apperr.ErrConflict, filename)
	}

	meta := in.Frontmatter.Clone()
	if strings.TrimSpace(meta.Text("title")) == "" {
		return fmt.Errorf("%w: recipe title is required", apperr.ErrValidation)
	}
	ensureCategory(&meta)

	if err := r.store.Write(p, []byte(frontmatter.Encode(meta, in.Content))); err != nil {
		return fmt.Errorf("update recipe: %w", err)
	}
	r.logger.Info("recipe updated", slog.String("filename", filename))
	return nil
}

// Delete removes a recipe file.
func (r *Repository) Delete(_ context.Context, filename string) error {
	p, err := recipePath(filename)
	if err != nil {
		return err
	}
	exists, err := r.store.Exists(p)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("recipe %s: %w", filename, apperr.ErrNotFound)
	}
	if err := r.store.Delete(p); err != nil {
		return fmt.Errorf("delete recipe: %w", err)
	}
	r.logger.Info("recipe deleted", slog.String("filename", filename))
	return nil
}

// Search returns the recipes whose title, description or any tag contains
// query, ignoring case.
func (r *Repository) Search(ctx context.Context, query string) ([]models.RecipeSummary, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	term := strings.ToLower(query)
	out := make([]models.RecipeSummary, 0)
	for _, s := range all {
		if matches(s, term) {
			out = append(out, s)
		}
	}
	return out, nil
}

func matches(s models.RecipeSummary, term string) bool {
	if strings.Contains(strings.ToLower(s.Title), term) ||
		strings.Contains(strings.ToLower(s.Description), term) {
		return true
	}
	for _, tag := range s.Tags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}

// AllTags returns every tag in use, sorted and de-duplicated.
func (r *Repository) AllTags(ctx context.Context) ([]string, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, s := range all {
		for _, tag := range s.Tags {
			if _, dup := seen[tag]; dup {
				continue
			}
			seen[tag] = struct{}{}
			out = append(out, tag)
		}
	}
	slices.Sort(out)
	return out, nil
}

// Suggest ranks recipe titles by fuzzy similarity to query.
func (r *Repository) Suggest(ctx context.Context, query string, limit int) ([]models.RecipeSummary, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.RecipeSummary, 0)
	if strings.TrimSpace(query) == "" {
		return out, nil
	}
	titles := make([]string, len(all))
	for i, s := range all {
		titles[i] = s.Title
	}
	for _, m := range fuzzy.Find(query, titles) {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, all[m.Index])
	}
	return out, nil
}

// Lint runs Validate over a stored recipe and adds the checks Hugo itself
// would trip over.
func (r *Repository) Lint(_ context.Context, filename string) ([]string, error) {
	p, err := recipePath(filename)
	if err != nil {
		return nil, err
	}
	data, err := r.store.Read(p)
	if err != nil {
		return nil, notFound(err, filename)
	}
	text := string(data)
	meta, body := frontmatter.Decode(text)

	problems := Validate(ValidateInput{Frontmatter: &meta, Content: body})
	if err := frontmatter.Strict(text); err != nil {
		problems = append(problems, "Frontmatter is not valid TOML: "+err.Error())
	}
	if d := meta.Text("date"); d != "" {
		if _, ok := parseDate(d); !ok {
			problems = append(problems, "Date should be an ISO date (YYYY-MM-DD)")
		}
	}
	if !slices.Contains(meta.Strings("categories"), Category) {
		problems = append(problems, `Categories should include "recipes"`)
	}
	return problems, nil
}

// Import converts an Eleventy recipe and stores it under name.
func (r *Repository) Import(_ context.Context, name string, data []byte) (string, error) {
	filename := path.Base(strings.ReplaceAll(name, `\`, "/"))
	p, err := recipePath(filename)
	if err != nil {
		return "", err
	}
	if err := r.requireDir(); err != nil {
		return "", err
	}
	exists, err := r.store.Exists(p)
	if err != nil {
		return "", err
	}
	if exists {
		return "", fmt.Errorf("%w: %s already exists", apperr.ErrConflict, filename)
	}

	doc, err := importer.ConvertEleventy(data, r.today())
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	if doc.Metadata.String("title") == "" {
		return "", fmt.Errorf("%w: %s has no title", apperr.ErrValidation, filename)
	}
	if err := r.store.Write(p, []byte(frontmatter.Encode(doc.Metadata, doc.Body))); err != nil {
		return "", fmt.Errorf("import recipe: %w", err)
	}
	r.logger.Info("recipe imported", slog.String("filename", filename))
	return filename, nil
}

func (r *Repository) requireDir() error {
	ok, err := r.store.Exists(Dir)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("recipes directory not found: %w", apperr.ErrNotFound)
	}
	return nil
}

func (r *Repository) today() string {
	return r.now().Format(dateLayout)
}

// recipePath confines a caller-supplied filename to the recipe directory.
func recipePath(filename string) (string, error) {
	if filename == "" ||
		strings.ContainsAny(filename, `/\`) ||
		filename == "." || filename == ".." ||
		!strings.HasSuffix(filename, Ext) {
		return "", fmt.Errorf("%w: invalid recipe filename %q", apperr.ErrValidation, filename)
	}
	return path.Join(Dir, filename), nil
}

func notFound(err error, filename string) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("recipe %s: %w", filename, apperr.ErrNotFound)
	}
	return err
}

func tagsOf(meta frontmatter.Metadata) []string {
	tags := meta.Strings("tags")
	if tags == nil {
		return []string{}
	}
	return tags
}

func ensureCategory(meta *frontmatter.Metadata) {
	v, ok := meta.Get("categories")
	switch {
	case !ok || v.IsNull():
		meta.Set("categories", frontmatter.Strings(Category))
	case v.Kind() == frontmatter.KindList:
		for _, item := range v.Items() {
			if item.Text() == Category {
				return
			}
		}
		meta.Set("categories", frontmatter.List(append(slices.Clone(v.Items()), frontmatter.String(Category))...))
	default:
		if v.Text() == Category {
			meta.Set("categories", frontmatter.Strings(Category))
			return
		}
		meta.Set("categories", frontmatter.List(v, frontmatter.String(Category)))
	}
}

func sortSummaries(s []models.RecipeSummary) {
	slices.SortStableFunc(s, func(a, b models.RecipeSummary) int {
		da, okA := parseDate(a.Date)
		db, okB := parseDate(b.Date)
		switch {
		case okA && okB:
			if c := db.Compare(da); c != 0 {
				return c
			}
		case okA:
			return -1
		case okB:
			return 1
		}
		return strings.Compare(a.Title, b.Title)
	})
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{dateLayout, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
