package recipes

import (
	"strings"

	"github.com/starford/cookbook/internal/frontmatter"
)

// ValidateInput is a candidate document. A nil Frontmatter means the
// document has none at all.
type ValidateInput struct {
	Frontmatter *frontmatter.Metadata `json:"frontmatter"`
	Content     string                `json:"content"`
}

// Validate reports the problems with a candidate recipe document. An empty
// result means the document is acceptable.
func Validate(in ValidateInput) []string {
	if in.Frontmatter == nil {
		return []string{"Frontmatter is required"}
	}
	meta := *in.Frontmatter

	problems := make([]string, 0)
	if strings.TrimSpace(meta.Text("title")) == "" {
		problems = append(problems, "Title is required")
	}
	if v, ok := meta.Get("tags"); ok && !v.IsNull() && v.Kind() != frontmatter.KindList {
		problems = append(problems, "Tags must be an array")
	}

	if strings.TrimSpace(in.Content) == "" {
		problems = append(problems, "Recipe content is required")
	}
	if !strings.Contains(in.Content, "## Ingredients") {
		problems = append(problems, "Recipe should include an Ingredients section")
	}
	if !strings.Contains(in.Content, "## Instructions") {
		problems = append(problems, "Recipe should include an Instructions section")
	}
	return problems
}
