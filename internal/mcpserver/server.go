// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes cookbook tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/cookbook/internal/frontmatter"
	"github.com/starford/cookbook/internal/recipes"
)

const formatURI = "cookbook://recipe-format"

// Server wraps the MCP server with cookbook tools.
type Server struct {
	mcp  *server.MCPServer
	repo *recipes.Repository
}

// New creates a new MCP server with all cookbook tools registered.
func New(repo *recipes.Repository, version string) *Server {
	s := &Server{repo: repo}

	s.mcp = server.NewMCPServer(
		"Cookbook",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_recipes",
		mcp.WithDescription("List all recipes, newest first, with title, date, tags and description."),
	), s.listRecipes)

	s.mcp.AddTool(mcp.NewTool("search_recipes",
		mcp.WithDescription("Find recipes whose title, description or tags contain the query (case-insensitive)."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search term")),
	), s.searchRecipes)

	s.mcp.AddTool(mcp.NewTool("read_recipe",
		mcp.WithDescription("Read the full document of a recipe, including frontmatter. "+
			"The first line of the result is the checksum to pass to update_recipe."),
		mcp.WithString("filename", mcp.Required(), mcp.Description("Recipe filename (e.g. banana-bread.md)")),
	), s.readRecipe)

	s.mcp.AddTool(mcp.NewTool("create_recipe",
		mcp.WithDescription("Create a new recipe. The filename is derived from the title. "+
			"Read the format via get_recipe_format or the "+formatURI+" resource first."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Recipe title")),
		mcp.WithArray("tags", mcp.Description("Tags"), mcp.WithStringItems()),
		mcp.WithString("description", mcp.Description("One-line description")),
		mcp.WithString("content", mcp.Description("Markdown body; a template with Ingredients, Instructions and Notes is used when empty")),
		mcp.WithString("prep_time", mcp.Description("Preparation time, e.g. 15 minutes")),
		mcp.WithString("cook_time", mcp.Description("Cooking time")),
		mcp.WithString("total_time", mcp.Description("Total time")),
		mcp.WithString("servings", mcp.Description("Number of servings")),
	), s.createRecipe)

	s.mcp.AddTool(mcp.NewTool("update_recipe",
		mcp.WithDescription("Replace a recipe with a complete document (frontmatter and body). "+
			"Categories always keep \"recipes\"."),
		mcp.WithString("filename", mcp.Required(), mcp.Description("Recipe filename")),
		mcp.WithString("document", mcp.Required(), mcp.Description("Full recipe document following the recipe format")),
		mcp.WithString("checksum", mcp.Description("Checksum from read_recipe; the update fails if the file changed since")),
	), s.updateRecipe)

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List every tag used by any recipe."),
	), s.listTags)

	s.mcp.AddTool(mcp.NewTool("get_recipe_format",
		mcp.WithDescription("Returns the recipe document format. "+
			"Call this before creating or updating recipes."),
	), s.getRecipeFormat)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Recipe Format",
			mcp.WithResourceDescription("Hugo TOML-frontmatter format every recipe follows."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readRecipeFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listRecipes(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(items)
}

func (s *Server) searchRecipes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	items, err := s.repo.Search(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(items)
}

func (s *Server) readRecipe(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("filename")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	recipe, err := s.repo.Get(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", name)), nil
	}
	doc := frontmatter.Encode(recipe.Frontmatter, recipe.Content)
	return mcp.NewToolResultText("checksum: " + recipe.Checksum + "\n\n" + doc), nil
}

func (s *Server) createRecipe(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := s.repo.Create(ctx, recipes.CreateInput{
		Title:       title,
		Tags:        req.GetStringSlice("tags", nil),
		Description: req.GetString("description", ""),
		Content:     req.GetString("content", ""),
		PrepTime:    req.GetString("prep_time", ""),
		CookTime:    req.GetString("cook_time", ""),
		TotalTime:   req.GetString("total_time", ""),
		Servings:    req.GetString("servings", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", name)), nil
}

func (s *Server) updateRecipe(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("filename")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := req.RequireString("document")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	meta, body := frontmatter.Decode(doc)
	err = s.repo.Update(ctx, name, recipes.UpdateInput{
		Frontmatter: meta,
		Content:     body,
		IfMatch:     req.GetString("checksum", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %s", name)), nil
}

func (s *Server) listTags(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags, err := s.repo.AllTags(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(tags) == 0 {
		return mcp.NewToolResultText("no tags found"), nil
	}
	return mcp.NewToolResultText(strings.Join(tags, "\n")), nil
}

func (s *Server) getRecipeFormat(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(RecipeFormatContract), nil
}

func (s *Server) readRecipeFormatResource(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     RecipeFormatContract,
		},
	}, nil
}
