// Package importer converts recipes written for other static-site generators
// into Hugo documents.
package importer

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/cookbook/internal/frontmatter"
)

// ErrNoFrontmatter is returned when the source has no YAML frontmatter.
var ErrNoFrontmatter = errors.New("importer: no frontmatter found")

// Document is a converted recipe ready to be encoded.
type Document struct {
	Metadata frontmatter.Metadata
	Body     string
}

type eleventyFrontmatter struct {
	Title       string     `yaml:"title"`
	Date        string     `yaml:"date"`
	Description string     `yaml:"description"`
	Tags        stringList `yaml:"tags"`
}

// stringList accepts either a YAML sequence or a single scalar.
type stringList []string

func (l *stringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if s := strings.TrimSpace(node.Value); s != "" {
			*l = stringList{s}
		}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		out := make(stringList, 0, len(items))
		for _, s := range items {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("importer: tags must be a list or a string")
	}
}

// ConvertEleventy turns a `---` YAML-frontmatter recipe into Hugo metadata.
// fallbackDate is used when the source has no date.
func ConvertEleventy(data []byte, fallbackDate string) (*Document, error) {
	block, body, ok := splitYAML(data)
	if !ok {
		return nil, ErrNoFrontmatter
	}

	var fm eleventyFrontmatter
	if err := yaml.Unmarshal(block, &fm); err != nil {
		return nil, fmt.Errorf("importer: parse yaml: %w", err)
	}

	date := strings.TrimSpace(fm.Date)
	if date == "" {
		date = fallbackDate
	}
	if len(date) > len("2006-01-02") && date[4] == '-' && date[7] == '-' {
		date = date[:len("2006-01-02")]
	}

	tags := []string(fm.Tags)
	if tags == nil {
		tags = []string{}
	}

	meta := frontmatter.NewMetadata()
	meta.Set("title", frontmatter.String(strings.TrimSpace(fm.Title)))
	meta.Set("date", frontmatter.String(date))
	meta.Set("draft", frontmatter.Bool(false))
	meta.Set("tags", frontmatter.Strings(tags...))
	meta.Set("categories", frontmatter.Strings("recipes"))
	meta.Set("description", frontmatter.String(strings.TrimSpace(fm.Description)))

	return &Document{Metadata: meta, Body: strings.TrimSpace(body)}, nil
}

// splitYAML separates YAML frontmatter between leading --- delimiters from
// the Markdown body.
func splitYAML(data []byte) ([]byte, string, bool) {
	const delim = "---"
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	trimmed := bytes.TrimLeft(data, "\n")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, "", false
	}
	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, "", false
	}
	block := rest[:idx]
	after := rest[idx+1+len(delim):]
	return block, string(after), true
}
