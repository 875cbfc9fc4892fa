package frontmatter

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Strict checks the metadata block of text against a real TOML parser, the
// way Hugo will read it. Documents without a block pass.
func Strict(text string) error {
	block, _, ok := split(normalize(text))
	if !ok {
		return nil
	}
	var out map[string]any
	if _, err := toml.Decode(block, &out); err != nil {
		return fmt.Errorf("frontmatter: invalid TOML: %w", err)
	}
	return nil
}
