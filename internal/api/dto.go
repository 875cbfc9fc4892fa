package api

import (
	"time"

	"github.com/starford/cookbook/internal/frontmatter"
	"github.com/starford/cookbook/internal/gitsync"
	"github.com/starford/cookbook/internal/history"
	"github.com/starford/cookbook/internal/models"
	"github.com/starford/cookbook/internal/recipes"
	"github.com/starford/cookbook/internal/vcs"
)

// CreateRecipeRequest is the request body for creating a recipe.
type CreateRecipeRequest = recipes.CreateInput

// UpdateRecipeRequest is the request body for replacing a recipe.
type UpdateRecipeRequest struct {
	Frontmatter frontmatter.Metadata `json:"frontmatter" validate:"required"`
	Content     string               `json:"content"`
}

// ValidateRecipeRequest is a candidate document for POST /recipes/validate.
type ValidateRecipeRequest = recipes.ValidateInput

// RecipeDetail is the full recipe response type (aliased from the domain layer).
type RecipeDetail = models.Recipe

// RecipeListResponse wraps recipe listings.
type RecipeListResponse struct {
	Recipes []models.RecipeSummary `json:"recipes" validate:"required"`
	Total   int                    `json:"total" example:"42" validate:"required"`
}

// ValidationResponse reports the problems found in a document.
type ValidationResponse struct {
	Valid  bool     `json:"valid" validate:"required"`
	Errors []string `json:"errors" validate:"required"`
}

// LintResponse reports the problems found in a stored recipe.
type LintResponse struct {
	Filename string   `json:"filename" example:"banana-bread.md" validate:"required"`
	Issues   []string `json:"issues" validate:"required"`
}

// TagsResponse lists every distinct tag.
type TagsResponse struct {
	Tags []string `json:"tags" validate:"required"`
}

// SyncRequest is the optional body of POST /sync.
type SyncRequest struct {
	Message string `json:"message" example:"Add banana bread"`
}

// RecipeStatusResponse is the pending recipe changes plus the time of the
// last successful sync, when there was one.
type RecipeStatusResponse struct {
	*gitsync.RecipeChanges
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
}

// CommitListResponse wraps recent commits.
type CommitListResponse struct {
	Commits []vcs.Commit `json:"commits" validate:"required"`
}

// RunListResponse wraps recorded sync and pull runs.
type RunListResponse struct {
	Runs []history.Entry `json:"runs" validate:"required"`
}

// CloneRequest is the body of POST /github/clone. An empty Path means the
// configured local path.
type CloneRequest struct {
	Path string `json:"path" example:"./site"`
}
