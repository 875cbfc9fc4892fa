package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/cookbook/internal/recipes"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(repo *recipes.Repository, sync *SyncHandler, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(repo)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Recipes CRUD.
	r.Get("/recipes", h.ListRecipes)
	r.Post("/recipes", h.CreateRecipe)
	r.Post("/recipes/validate", h.ValidateRecipe)
	r.Get("/recipes/{filename}", h.GetRecipe)
	r.Put("/recipes/{filename}", h.UpdateRecipe)
	r.Delete("/recipes/{filename}", h.DeleteRecipe)
	r.Get("/recipes/{filename}/lint", h.LintRecipe)

	// Search.
	r.Get("/search", h.Search)
	r.Get("/suggest", h.Suggest)
	r.Get("/tags", h.Tags)

	// Git sync and GitHub.
	if sync != nil {
		r.Get("/sync/status", sync.Status)
		r.Get("/sync/recipes", sync.RecipeStatus)
		r.Post("/sync", sync.Sync)
		r.Post("/sync/pull", sync.Pull)
		r.Get("/sync/history", sync.History)
		r.Get("/sync/log", sync.Runs)
		r.Get("/github/connection", sync.Connection)
		r.Get("/github/clone", sync.CheckClone)
		r.Post("/github/clone", sync.Clone)
	}

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
