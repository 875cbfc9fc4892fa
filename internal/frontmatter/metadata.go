package frontmatter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Metadata is an insertion-ordered set of frontmatter keys.
type Metadata struct {
	keys   []string
	values map[string]Value
}

// NewMetadata returns an empty Metadata.
func NewMetadata() Metadata {
	return Metadata{values: make(map[string]Value)}
}

// Len returns the number of keys.
func (m Metadata) Len() int { return len(m.keys) }

// Keys returns the keys in insertion order.
func (m Metadata) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Get returns the value stored under key.
func (m Metadata) Get(key string) (Value, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Has reports whether key is present.
func (m Metadata) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

// Set stores v under key. Existing keys keep their position.
func (m *Metadata) Set(key string, v Value) {
	if m.values == nil {
		m.values = make(map[string]Value)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Delete removes key.
func (m *Metadata) Delete(key string) {
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Clone returns a copy that shares no key slice or map with m.
func (m Metadata) Clone() Metadata {
	out := NewMetadata()
	for _, k := range m.keys {
		out.Set(k, m.values[k])
	}
	return out
}

// String returns the string stored under key, or "" when the key is absent
// or not a string.
func (m Metadata) String(key string) string {
	v, ok := m.values[key]
	if !ok {
		return ""
	}
	s, _ := v.Str()
	return s
}

// Text returns the value under key rendered as plain text.
func (m Metadata) Text(key string) string {
	v, ok := m.values[key]
	if !ok {
		return ""
	}
	return v.Text()
}

// Strings returns the items of the list stored under key.
func (m Metadata) Strings(key string) []string {
	v, ok := m.values[key]
	if !ok {
		return nil
	}
	return v.StringItems()
}

// Bool returns the boolean stored under key, or false.
func (m Metadata) Bool(key string) bool {
	v, ok := m.values[key]
	if !ok {
		return false
	}
	b, _ := v.BoolValue()
	return b
}

// Equal reports whether m and o hold the same keys with semantically equal
// values. Key order is ignored.
func (m Metadata) Equal(o Metadata) bool {
	if len(m.keys) != len(o.keys) {
		return false
	}
	for k, v := range m.values {
		ov, ok := o.values[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the metadata as a JSON object in key order.
func (m Metadata) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := m.values[k].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping the order keys appear in.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*m = NewMetadata()
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("frontmatter: metadata must be a JSON object")
	}

	out := NewMetadata()
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := kt.(string)
		if !ok {
			return fmt.Errorf("frontmatter: unexpected key token %v", kt)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		var v Value
		if err := v.UnmarshalJSON(raw); err != nil {
			return fmt.Errorf("frontmatter: key %q: %w", key, err)
		}
		out.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*m = out
	return nil
}

func (m Metadata) GoString() string {
	parts := make([]string, 0, len(m.keys))
	for _, k := range m.keys {
		parts = append(parts, k+"="+m.values[k].GoString())
	}
	return "Metadata{" + strings.Join(parts, ", ") + "}"
}
