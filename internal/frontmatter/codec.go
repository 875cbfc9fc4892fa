// Package frontmatter reads and writes Markdown documents that carry a
// `+++`-delimited TOML-style metadata block, as used by Hugo content files.
//
// Decoding is lenient: it never fails, lines it cannot understand are
// skipped and values it cannot classify are kept as raw strings. Use Strict
// to find out whether Hugo's real TOML parser will accept a block.
package frontmatter

import (
	"strconv"
	"strings"
)

const (
	delimiter  = "+++"
	openDelim  = delimiter + "\n"
	closeDelim = "\n" + delimiter + "\n"
)

// Decode splits text into metadata and body. Text without a metadata block
// yields empty metadata and the whole trimmed text as body.
func Decode(text string) (Metadata, string) {
	clean := normalize(text)
	block, body, ok := split(clean)
	if !ok {
		return NewMetadata(), strings.TrimSpace(clean)
	}
	return parseBlock(block), strings.TrimSpace(body)
}

// Encode renders metadata and body as a document. Null values are omitted.
func Encode(meta Metadata, body string) string {
	lines := make([]string, 0, meta.Len())
	for _, k := range meta.keys {
		v := meta.values[k]
		if v.IsNull() {
			continue
		}
		lines = append(lines, k+" = "+encodeValue(v))
	}

	var b strings.Builder
	b.WriteString(openDelim)
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString(closeDelim)
	b.WriteString("\n")
	b.WriteString(body)
	return b.String()
}

func normalize(text string) string {
	text = strings.TrimPrefix(text, "\uFEFF")
	return strings.ReplaceAll(text, "\r\n", "\n")
}

// split returns the metadata block and the body following the closing
// delimiter line.
func split(clean string) (block, body string, ok bool) {
	if !strings.HasPrefix(clean, openDelim) {
		return "", "", false
	}
	rest := clean[len(openDelim):]
	idx := strings.Index(rest, closeDelim)
	if idx < 0 {
		return "", "", false
	}
	return rest[:idx], rest[idx+len(closeDelim):], true
}

func parseBlock(block string) Metadata {
	meta := NewMetadata()
	for _, line := range strings.Split(block, "\n") {
		if key, v, ok := parseLine(line); ok {
			meta.Set(key, v)
		}
	}
	return meta
}

// parseLine parses one `key = value` line. ok is false for blank lines,
// comments and anything that is not an assignment.
func parseLine(line string) (key string, v Value, ok bool) {
	s := strings.TrimSpace(line)
	if s == "" || strings.HasPrefix(s, "#") {
		return "", Value{}, false
	}

	n := 0
	for n < len(s) && isKeyByte(s[n]) {
		n++
	}
	if n == 0 {
		return "", Value{}, false
	}
	key = s[:n]

	rest := strings.TrimLeft(s[n:], " \t")
	if !strings.HasPrefix(rest, "=") {
		return "", Value{}, false
	}
	raw := strings.TrimSpace(rest[1:])
	if raw == "" {
		return "", Value{}, false
	}
	return key, ParseValue(raw), true
}

func isKeyByte(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

// ParseValue classifies a raw value: quoted string, list, boolean, integer,
// float, and finally the raw text itself.
func ParseValue(raw string) Value {
	s := strings.TrimSpace(raw)
	if s == "" {
		return String("")
	}

	switch s[0] {
	case '"', '\'':
		if v, ok := parseQuoted(s); ok {
			return v
		}
		if len(s) >= 2 && s[len(s)-1] == s[0] {
			return String(s[1 : len(s)-1])
		}
	case '[':
		if s[len(s)-1] == ']' {
			return parseList(s[1 : len(s)-1])
		}
	}

	switch s {
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}

	if isInteger(s) {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Int(i)
		}
		return String(s)
	}
	if isDecimal(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return Float(f)
		}
	}
	return String(s)
}

// parseQuoted accepts s only when it is exactly one quoted token.
func parseQuoted(s string) (Value, bool) {
	q := s[0]
	if q == '\'' {
		end := strings.IndexByte(s[1:], q)
		if end < 0 || end+2 != len(s) {
			return Value{}, false
		}
		return String(s[1 : end+1]), true
	}

	var b strings.Builder
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s):
			if r, ok := unescape(s[i+1]); ok {
				b.WriteByte(r)
				i++
				continue
			}
			b.WriteByte(c)
		case c == q:
			if i != len(s)-1 {
				return Value{}, false
			}
			return String(b.String()), true
		default:
			b.WriteByte(c)
		}
	}
	return Value{}, false
}

func parseList(inner string) Value {
	if strings.TrimSpace(inner) == "" {
		return List()
	}
	items := []Value{}
	for _, part := range splitTopLevel(inner) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		items = append(items, ParseValue(part))
	}
	return List(items...)
}

// splitTopLevel splits on commas that are outside quotes and nested brackets.
func splitTopLevel(s string) []string {
	var (
		parts []string
		depth int
		quote byte
		start int
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == '\\' && quote == '"' && i+1 < len(s) {
				i++
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

func isInteger(s string) bool {
	s = strings.TrimPrefix(s, "-")
	return s != "" && allDigits(s)
}

func isDecimal(s string) bool {
	s = strings.TrimPrefix(s, "-")
	whole, frac, ok := strings.Cut(s, ".")
	return ok && whole != "" && frac != "" && allDigits(whole) && allDigits(frac)
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// encodeValue renders v as TOML. List items keep their own kind so numbers
// and booleans stay bare and nested lists nest; null items become "".
func encodeValue(v Value) string {
	switch v.kind {
	case KindList:
		items := make([]string, len(v.list))
		for i, item := range v.list {
			items[i] = encodeValue(item)
		}
		return "[" + strings.Join(items, ", ") + "]"
	case KindString, KindNull:
		return quote(v.str)
	default:
		return v.Text()
	}
}

var escaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`)

func quote(s string) string {
	return `"` + escaper.Replace(s) + `"`
}

func unescape(c byte) (byte, bool) {
	switch c {
	case '\\', '"':
		return c, true
	case 'n':
		return '\n', true
	case 'r':
		return '\r', true
	case 't':
		return '\t', true
	}
	return 0, false
}
