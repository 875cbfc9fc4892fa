package mcpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/cookbook/internal/models"
	"github.com/starford/cookbook/internal/recipes"
	"github.com/starford/cookbook/internal/testutil"
)

func testServer(t *testing.T) (*Server, string) {
	t.Helper()
	root, store := testutil.TestSite(t)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return New(recipes.New(store, logger), "test"), root
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so dispatch to the
	// handler functions.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_recipes":
		result, err = srv.listRecipes(ctx, req)
	case "search_recipes":
		result, err = srv.searchRecipes(ctx, req)
	case "read_recipe":
		result, err = srv.readRecipe(ctx, req)
	case "create_recipe":
		result, err = srv.createRecipe(ctx, req)
	case "update_recipe":
		result, err = srv.updateRecipe(ctx, req)
	case "list_tags":
		result, err = srv.listTags(ctx, req)
	case "get_recipe_format":
		result, err = srv.getRecipeFormat(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCreateAndReadRecipe(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "create_recipe", map[string]interface{}{
		"title":       "Banana Bread",
		"tags":        []interface{}{"baking"},
		"description": "Moist",
	})
	if text := resultText(r); text != "created: banana-bread.md" {
		t.Fatalf("create result = %q", text)
	}

	r = callTool(t, srv, "read_recipe", map[string]interface{}{"filename": "banana-bread.md"})
	text := resultText(r)
	if !strings.HasPrefix(text, "checksum: ") {
		t.Errorf("read result missing checksum: %q", text)
	}
	for _, want := range []string{`title = "Banana Bread"`, `tags = ["baking"]`, "## Ingredients"} {
		if !strings.Contains(text, want) {
			t.Errorf("read result missing %q:\n%s", want, text)
		}
	}
}

func TestCreateRecipeDuplicate(t *testing.T) {
	srv, _ := testServer(t)
	_ = callTool(t, srv, "create_recipe", map[string]interface{}{"title": "Soup"})
	r := callTool(t, srv, "create_recipe", map[string]interface{}{"title": "Soup"})
	if !r.IsError {
		t.Error("expected error for duplicate recipe")
	}
}

func TestUpdateRecipe(t *testing.T) {
	srv, root := testServer(t)
	testutil.WriteRecipe(t, root, "soup.md", "+++\ntitle = \"Soup\"\n+++\n\nHot.\n")

	doc := "+++\ntitle = \"Tomato Soup\"\ntags = [\"dinner\"]\n+++\n\n## Ingredients\n\n* tomatoes\n"
	r := callTool(t, srv, "update_recipe", map[string]interface{}{"filename": "soup.md", "document": doc})
	if r.IsError {
		t.Fatalf("update failed: %s", resultText(r))
	}

	data, err := os.ReadFile(root + "/content/recipes/soup.md")
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)
	if !strings.Contains(got, `title = "Tomato Soup"`) || !strings.Contains(got, `categories = ["recipes"]`) {
		t.Errorf("stored document = %q", got)
	}

	r = callTool(t, srv, "update_recipe", map[string]interface{}{
		"filename": "soup.md", "document": doc, "checksum": "stale",
	})
	if !r.IsError {
		t.Error("expected conflict for stale checksum")
	}
}

func TestListAndSearchRecipes(t *testing.T) {
	srv, root := testServer(t)
	testutil.WriteRecipe(t, root, "a.md", "+++\ntitle = \"Apple Pie\"\ntags = [\"dessert\"]\n+++\n")
	testutil.WriteRecipe(t, root, "b.md", "+++\ntitle = \"Beef Stew\"\ntags = [\"dinner\"]\n+++\n")

	var all []models.RecipeSummary
	if err := json.Unmarshal([]byte(resultText(callTool(t, srv, "list_recipes", nil))), &all); err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("list = %d recipes, want 2", len(all))
	}

	var hits []models.RecipeSummary
	text := resultText(callTool(t, srv, "search_recipes", map[string]interface{}{"query": "DESSERT"}))
	if err := json.Unmarshal([]byte(text), &hits); err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].Filename != "a.md" {
		t.Errorf("search = %+v", hits)
	}

	if text := resultText(callTool(t, srv, "list_tags", nil)); text != "dessert\ndinner" {
		t.Errorf("tags = %q", text)
	}
}

func TestReadRecipeMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "read_recipe", map[string]interface{}{"filename": "nope.md"})
	if !r.IsError {
		t.Error("expected error for missing recipe")
	}
}

func TestGetRecipeFormat(t *testing.T) {
	srv, _ := testServer(t)
	if text := resultText(callTool(t, srv, "get_recipe_format", nil)); text != RecipeFormatContract {
		t.Error("format tool should return the contract")
	}
}
