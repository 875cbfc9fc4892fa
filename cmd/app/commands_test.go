package main

import (
	"strings"
	"testing"

	"github.com/starford/cookbook/internal/frontmatter"
)

func TestRecipeMarkdown(t *testing.T) {
	meta := frontmatter.NewMetadata()
	meta.Set("title", frontmatter.String("Banana Bread"))
	meta.Set("description", frontmatter.String("Moist"))
	meta.Set("prep_time", frontmatter.String("15 minutes"))
	meta.Set("servings", frontmatter.String("8"))
	meta.Set("tags", frontmatter.Strings("baking", "breakfast"))

	got := recipeMarkdown(meta, "## Ingredients\n")
	for _, want := range []string{
		"# Banana Bread\n",
		"_Moist_",
		"**Prep:** 15 minutes · **Serves:** 8",
		"Tags: `baking` `breakfast`",
		"## Ingredients\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("markdown missing %q:\n%s", want, got)
		}
	}
}

func TestRecipeMarkdown_Minimal(t *testing.T) {
	meta := frontmatter.NewMetadata()
	meta.Set("title", frontmatter.String("Soup"))
	if got := recipeMarkdown(meta, "Hot."); got != "# Soup\n\nHot." {
		t.Errorf("markdown = %q", got)
	}
}

func TestRender(t *testing.T) {
	out, err := render("notty", "# Soup\n\nHot.")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "Soup") {
		t.Errorf("rendered output = %q", out)
	}
}
