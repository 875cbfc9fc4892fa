package recipes

import (
	"strings"
	"unicode"
)

// GenerateFilename derives the recipe filename from a title: lower-cased,
// stripped to ASCII letters, digits, whitespace and hyphens, whitespace runs
// turned into single hyphens, with no leading or trailing hyphen.
// "Chocolate Chip Cookies!!" becomes "chocolate-chip-cookies.md".
func GenerateFilename(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}
	slug := strings.Join(strings.Fields(b.String()), "-")
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	return strings.Trim(slug, "-") + Ext
}
