package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/cookbook/internal/recipes"
)

const maxBody = 10 << 20

// Handler holds recipe route handlers.
type Handler struct {
	repo *recipes.Repository
}

// NewHandler creates a new Handler.
func NewHandler(repo *recipes.Repository) *Handler {
	return &Handler{repo: repo}
}

// recipeFilename extracts the filename URL parameter, tolerating percent
// encoding from generated clients.
func recipeFilename(r *http.Request) string {
	raw := chi.URLParam(r, "filename")
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListRecipes handles GET /api/recipes.
//
//	@Summary		List recipes, newest first
//	@Tags			recipes
//	@Produce		json
//	@Success		200	{object}	RecipeListResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/recipes [get]
func (h *Handler) ListRecipes(w http.ResponseWriter, r *http.Request) {
	items, err := h.repo.List(r.Context())
	if err != nil {
		writeError(w, "list recipes", err)
		return
	}
	writeJSON(w, http.StatusOK, RecipeListResponse{Recipes: items, Total: len(items)})
}

// GetRecipe handles GET /api/recipes/{filename}.
//
//	@Summary		Get a single recipe
//	@Tags			recipes
//	@Produce		json
//	@Param			filename	path		string	true	"Recipe filename"
//	@Success		200			{object}	RecipeDetail
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/recipes/{filename} [get]
func (h *Handler) GetRecipe(w http.ResponseWriter, r *http.Request) {
	name := recipeFilename(r)
	recipe, err := h.repo.Get(r.Context(), name)
	if err != nil {
		writeError(w, "get recipe", err, slog.String("filename", name))
		return
	}
	w.Header().Set("ETag", strconv.Quote(recipe.Checksum))
	writeJSON(w, http.StatusOK, recipe)
}

// CreateRecipe handles POST /api/recipes.
//
//	@Summary		Create a new recipe from a title and optional fields
//	@Tags			recipes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateRecipeRequest	true	"Recipe to create"
//	@Success		201		{object}	RecipeDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/recipes [post]
func (h *Handler) CreateRecipe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	var req CreateRecipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	name, err := h.repo.Create(r.Context(), req)
	if err != nil {
		writeError(w, "create recipe", err, slog.String("title", req.Title))
		return
	}
	recipe, err := h.repo.Get(r.Context(), name)
	if err != nil {
		writeError(w, "create recipe", err, slog.String("filename", name))
		return
	}
	w.Header().Set("Location", "/api/recipes/"+url.PathEscape(name))
	writeJSON(w, http.StatusCreated, recipe)
}

// UpdateRecipe handles PUT /api/recipes/{filename}.
//
//	@Summary		Replace a recipe with optimistic concurrency
//	@Tags			recipes
//	@Accept			json
//	@Produce		json
//	@Param			filename	path		string				true	"Recipe filename"
//	@Param			If-Match	header		string				false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body		UpdateRecipeRequest	true	"Replacement document"
//	@Success		200			{object}	RecipeDetail
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/recipes/{filename} [put]
func (h *Handler) UpdateRecipe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	name := recipeFilename(r)
	var req UpdateRecipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	err := h.repo.Update(r.Context(), name, recipes.UpdateInput{
		Frontmatter: req.Frontmatter,
		Content:     req.Content,
		IfMatch:     r.Header.Get("If-Match"),
	})
	if err != nil {
		writeError(w, "update recipe", err, slog.String("filename", name))
		return
	}
	recipe, err := h.repo.Get(r.Context(), name)
	if err != nil {
		writeError(w, "update recipe", err, slog.String("filename", name))
		return
	}
	w.Header().Set("ETag", strconv.Quote(recipe.Checksum))
	writeJSON(w, http.StatusOK, recipe)
}

// DeleteRecipe handles DELETE /api/recipes/{filename}.
//
//	@Summary		Delete a recipe
//	@Tags			recipes
//	@Param			filename	path	string	true	"Recipe filename"
//	@Success		204			"Recipe deleted"
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/recipes/{filename} [delete]
func (h *Handler) DeleteRecipe(w http.ResponseWriter, r *http.Request) {
	name := recipeFilename(r)
	if err := h.repo.Delete(r.Context(), name); err != nil {
		writeError(w, "delete recipe", err, slog.String("filename", name))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LintRecipe handles GET /api/recipes/{filename}/lint.
//
//	@Summary		Check a stored recipe for problems
//	@Tags			recipes
//	@Produce		json
//	@Param			filename	path		string	true	"Recipe filename"
//	@Success		200			{object}	LintResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/recipes/{filename}/lint [get]
func (h *Handler) LintRecipe(w http.ResponseWriter, r *http.Request) {
	name := recipeFilename(r)
	issues, err := h.repo.Lint(r.Context(), name)
	if err != nil {
		writeError(w, "lint recipe", err, slog.String("filename", name))
		return
	}
	writeJSON(w, http.StatusOK, LintResponse{Filename: name, Issues: issues})
}

// ValidateRecipe handles POST /api/recipes/validate.
//
//	@Summary		Validate a candidate recipe document
//	@Tags			recipes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ValidateRecipeRequest	true	"Candidate document"
//	@Success		200		{object}	ValidationResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/recipes/validate [post]
func (h *Handler) ValidateRecipe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	var req ValidateRecipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	problems := recipes.Validate(req)
	writeJSON(w, http.StatusOK, ValidationResponse{Valid: len(problems) == 0, Errors: problems})
}

// Search handles GET /api/search.
//
//	@Summary		Search recipes by title, description and tags
//	@Tags			search
//	@Produce		json
//	@Param			q	query		string	true	"Search query"
//	@Success		200	{object}	RecipeListResponse
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	items, err := h.repo.Search(r.Context(), q)
	if err != nil {
		writeError(w, "search", err, slog.String("query", q))
		return
	}
	writeJSON(w, http.StatusOK, RecipeListResponse{Recipes: items, Total: len(items)})
}

// Suggest handles GET /api/suggest.
//
//	@Summary		Fuzzy-match recipe titles
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Partial title"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	RecipeListResponse
//	@Security		BearerAuth
//	@Router			/suggest [get]
func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 10
	}
	items, err := h.repo.Suggest(r.Context(), q, limit)
	if err != nil {
		writeError(w, "suggest", err, slog.String("query", q))
		return
	}
	writeJSON(w, http.StatusOK, RecipeListResponse{Recipes: items, Total: len(items)})
}

// Tags handles GET /api/tags.
//
//	@Summary		List every distinct tag
//	@Tags			recipes
//	@Produce		json
//	@Success		200	{object}	TagsResponse
//	@Security		BearerAuth
//	@Router			/tags [get]
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.repo.AllTags(r.Context())
	if err != nil {
		writeError(w, "list tags", err)
		return
	}
	writeJSON(w, http.StatusOK, TagsResponse{Tags: tags})
}
