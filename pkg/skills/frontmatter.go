// Package skills implements SKILL.md ingestion: frontmatter parsing, metadata
// validation, slug allocation, content identity comparison and conversion
// between stored versions and on-disk bundles.
package skills

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	skilltypes "github.com/jingkaihe/skillvault/pkg/types/skills"
)

const frontmatterDelimiter = "---"

// maxFrontmatterSize limits the metadata block handed to the YAML decoder
const maxFrontmatterSize = 64 * 1024

// Frontmatter is the decoded metadata block with keys in document order
type Frontmatter struct {
	keys   []string
	values map[string]any
}

// NewFrontmatter builds a Frontmatter from ordered key/value pairs
func NewFrontmatter(pairs ...any) Frontmatter {
	fm := Frontmatter{values: make(map[string]any)}
	for i := 0; i+1 < len(pairs); i += 2 {
		fm.set(fmt.Sprint(pairs[i]), pairs[i+1])
	}
	return fm
}

func (f *Frontmatter) set(key string, value any) {
	if f.values == nil {
		f.values = make(map[string]any)
	}
	if _, exists := f.values[key]; !exists {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
}

// Keys returns the metadata keys in the order they appear in the document
func (f Frontmatter) Keys() []string {
	out := make([]string, len(f.keys))
	copy(out, f.keys)
	return out
}

// Get returns the decoded value for key. Parsed scalars are strings holding
// their source text.
func (f Frontmatter) Get(key string) (any, bool) {
	v, ok := f.values[key]
	return v, ok
}

// String returns the value for key rendered as a string. ok is false when the
// key is absent, null, or holds a mapping or sequence.
func (f Frontmatter) String(key string) (string, bool) {
	v, ok := f.values[key]
	if !ok || v == nil {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return val, true
	case map[string]any, []any:
		return "", false
	default:
		return fmt.Sprint(val), true
	}
}

// Map returns a copy of the metadata as a plain map
func (f Frontmatter) Map() map[string]any {
	out := make(map[string]any, len(f.values))
	for k, v := range f.values {
		out[k] = v
	}
	return out
}

// Len returns the number of top-level keys
func (f Frontmatter) Len() int {
	return len(f.keys)
}

// Document is a parsed SKILL.md: the metadata block and the trimmed body
type Document struct {
	Frontmatter Frontmatter
	Body        string
}

// ParseFrontmatter splits raw text into its frontmatter block and body.
// The input must open with a "---" line and the block ends at the next line
// consisting solely of "---". Everything after it, trimmed, is the body.
func ParseFrontmatter(raw string) (*Document, error) {
	content := strings.TrimSpace(raw)
	if content == "" {
		return nil, newParseError(ParseMissingFrontmatter, errors.New("content is empty"))
	}

	lines := strings.Split(content, "\n")
	if !isDelimiterLine(lines[0]) {
		return nil, newParseError(ParseMissingFrontmatter, errors.Errorf("content must start with %q", frontmatterDelimiter))
	}

	end := -1
	for i := 1; i < len(lines); i++ {
		if isDelimiterLine(lines[i]) {
			end = i
			break
		}
	}
	if end == -1 {
		return nil, newParseError(ParseUnclosedFrontmatter, errors.Errorf("no closing %q line found", frontmatterDelimiter))
	}

	block := strings.Join(lines[1:end], "\n")
	if strings.TrimSpace(block) == "" {
		return nil, newParseError(ParseInvalidFrontmatter, errors.New("frontmatter block is empty"))
	}
	if len(block) > maxFrontmatterSize {
		return nil, newParseError(ParseInvalidFrontmatter, errors.Errorf("frontmatter exceeds %d bytes", maxFrontmatterSize))
	}

	fm, err := decodeFrontmatter(block)
	if err != nil {
		return nil, newParseError(ParseInvalidFrontmatter, err)
	}

	return &Document{
		Frontmatter: fm,
		Body:        strings.TrimSpace(strings.Join(lines[end+1:], "\n")),
	}, nil
}

func isDelimiterLine(line string) bool {
	return strings.TrimRight(line, " \t\r") == frontmatterDelimiter
}

func decodeFrontmatter(block string) (Frontmatter, error) {
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(block), &root); err != nil {
		return Frontmatter{}, errors.Wrap(err, "failed to decode frontmatter")
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return Frontmatter{}, errors.New("frontmatter block is empty")
	}

	mapping := root.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return Frontmatter{}, errors.Errorf("frontmatter must be key-value pairs, got %s", nodeKindName(mapping.Kind))
	}

	fm := Frontmatter{values: make(map[string]any, len(mapping.Content)/2)}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		keyNode, valueNode := mapping.Content[i], mapping.Content[i+1]
		if keyNode.Kind != yaml.ScalarNode {
			return Frontmatter{}, errors.Errorf("line %d: frontmatter keys must be scalars", keyNode.Line)
		}
		if _, dup := fm.values[keyNode.Value]; dup {
			return Frontmatter{}, errors.Errorf("line %d: duplicate key %q", keyNode.Line, keyNode.Value)
		}

		value, err := nodeValue(valueNode)
		if err != nil {
			return Frontmatter{}, errors.Wrapf(err, "failed to decode value of %q", keyNode.Value)
		}
		fm.set(keyNode.Value, value)
	}

	return fm, nil
}

// nodeValue converts a YAML node into nil, string, []any or map[string]any.
// Scalars keep their source text, so "1.10" and "2024-01-01" are not
// reinterpreted as a number or a timestamp.
func nodeValue(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.AliasNode:
		return nodeValue(n.Alias)
	case yaml.ScalarNode:
		if n.ShortTag() == "!!null" {
			return nil, nil
		}
		return n.Value, nil
	case yaml.SequenceNode:
		items := make([]any, 0, len(n.Content))
		for _, child := range n.Content {
			v, err := nodeValue(child)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return items, nil
	case yaml.MappingNode:
		m := make(map[string]any, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i]
			if key.Kind != yaml.ScalarNode {
				return nil, errors.Errorf("line %d: mapping keys must be scalars", key.Line)
			}
			v, err := nodeValue(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			m[key.Value] = v
		}
		return m, nil
	default:
		return nil, errors.Errorf("line %d: unsupported %s", n.Line, nodeKindName(n.Kind))
	}
}

func nodeKindName(kind yaml.Kind) string {
	switch kind {
	case yaml.SequenceNode:
		return "a sequence"
	case yaml.ScalarNode:
		return "a scalar"
	case yaml.AliasNode:
		return "an alias"
	default:
		return fmt.Sprintf("node kind %d", kind)
	}
}

// ToContent maps a parsed document onto the versioned skill fields.
// allowed-tools given as a sequence is joined with single spaces.
func (d *Document) ToContent() skilltypes.Content {
	fm := d.Frontmatter
	c := skilltypes.Content{Prompt: d.Body}
	c.Name, _ = fm.String("name")
	c.Description, _ = fm.String("description")
	c.License, _ = fm.String("license")
	c.Compatibility, _ = fm.String("compatibility")
	c.AllowedTools = allowedTools(fm)

	if raw, ok := fm.Get("metadata"); ok {
		if m, ok := raw.(map[string]any); ok && len(m) > 0 {
			c.Metadata = make(map[string]string, len(m))
			for k, v := range m {
				c.Metadata[k] = scalarString(v)
			}
		}
	}
	return c
}

func allowedTools(fm Frontmatter) string {
	for _, key := range []string{"allowed-tools", "allowedTools"} {
		raw, ok := fm.Get(key)
		if !ok || raw == nil {
			continue
		}
		if list, ok := raw.([]any); ok {
			parts := make([]string, 0, len(list))
			for _, item := range list {
				if s := strings.TrimSpace(scalarString(item)); s != "" {
					parts = append(parts, s)
				}
			}
			return strings.Join(parts, " ")
		}
		return scalarString(raw)
	}
	return ""
}

func scalarString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// sortedKeys returns the keys of m in lexical order
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
