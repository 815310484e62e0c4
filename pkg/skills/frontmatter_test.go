package skills

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireParseErrorKind(t *testing.T, err error, kind ParseErrorKind) {
	t.Helper()
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, kind, pe.Kind)
	assert.True(t, IsParseError(err))
}

func TestParseFrontmatter(t *testing.T) {
	t.Run("metadata and body", func(t *testing.T) {
		doc, err := ParseFrontmatter("---\nname: my-skill\ndescription: A sample skill.\n---\n\n# Title\n")
		require.NoError(t, err)

		assert.Equal(t, map[string]any{"name": "my-skill", "description": "A sample skill."}, doc.Frontmatter.Map())
		assert.Equal(t, []string{"name", "description"}, doc.Frontmatter.Keys())
		assert.Contains(t, doc.Body, "# Title")
		assert.Equal(t, "# Title", doc.Body)
	})

	t.Run("body omitted", func(t *testing.T) {
		doc, err := ParseFrontmatter("---\nname: my-skill\ndescription: d\n---")
		require.NoError(t, err)
		assert.Equal(t, "", doc.Body)
	})

	t.Run("leading whitespace and CRLF line endings", func(t *testing.T) {
		doc, err := ParseFrontmatter("\n\n  ---\r\nname: crlf\r\ndescription: windows\r\n--- \r\n\r\nBody line\r\n")
		require.NoError(t, err)
		name, _ := doc.Frontmatter.String("name")
		assert.Equal(t, "crlf", name)
		assert.Equal(t, "Body line", doc.Body)
	})

	t.Run("body keeps later delimiter lines", func(t *testing.T) {
		doc, err := ParseFrontmatter("---\nname: a\ndescription: b\n---\nfirst\n---\nsecond")
		require.NoError(t, err)
		assert.Equal(t, "first\n---\nsecond", doc.Body)
	})

	t.Run("nested values keep their shape", func(t *testing.T) {
		doc, err := ParseFrontmatter("---\nname: a\ndescription: b\nmetadata:\n  author: me\n  version: \"1.0\"\nallowed-tools:\n  - Bash\n  - Read\n---\n")
		require.NoError(t, err)

		raw, ok := doc.Frontmatter.Get("metadata")
		require.True(t, ok)
		assert.Equal(t, map[string]any{"author": "me", "version": "1.0"}, raw)

		_, isString := doc.Frontmatter.String("allowed-tools")
		assert.False(t, isString)
	})
}

func TestParseFrontmatterErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  ParseErrorKind
	}{
		{name: "no opening delimiter", input: "# Title\nno frontmatter", kind: ParseMissingFrontmatter},
		{name: "empty input", input: "   \n  ", kind: ParseMissingFrontmatter},
		{name: "delimiter not alone on line", input: "---name: x\n---\n", kind: ParseMissingFrontmatter},
		{name: "four dashes", input: "----\nname: x\n----\n", kind: ParseMissingFrontmatter},
		{name: "no closing delimiter", input: "---\nname: x\ndescription: y\n", kind: ParseUnclosedFrontmatter},
		{name: "invalid yaml", input: "---\nname: [invalid yaml syntax\n---\n", kind: ParseInvalidFrontmatter},
		{name: "empty block", input: "---\n\n---\nbody", kind: ParseInvalidFrontmatter},
		{name: "scalar block", input: "---\njust a string\n---\n", kind: ParseInvalidFrontmatter},
		{name: "sequence block", input: "---\n- a\n- b\n---\n", kind: ParseInvalidFrontmatter},
		{name: "duplicate key", input: "---\nname: a\nname: b\n---\n", kind: ParseInvalidFrontmatter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseFrontmatter(tt.input)
			assert.Nil(t, doc)
			requireParseErrorKind(t, err, tt.kind)
		})
	}

	_, err := ParseFrontmatter("# Title")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing frontmatter")
}

func TestFrontmatterString(t *testing.T) {
	fm := NewFrontmatter("name", "a", "count", 3, "flag", true, "empty", nil, "list", []any{"x"})

	s, ok := fm.String("name")
	assert.True(t, ok)
	assert.Equal(t, "a", s)

	s, ok = fm.String("count")
	assert.True(t, ok)
	assert.Equal(t, "3", s)

	s, ok = fm.String("flag")
	assert.True(t, ok)
	assert.Equal(t, "true", s)

	_, ok = fm.String("empty")
	assert.False(t, ok)
	_, ok = fm.String("list")
	assert.False(t, ok)
	_, ok = fm.String("missing")
	assert.False(t, ok)

	assert.Equal(t, 5, fm.Len())
}

func TestDocumentToContent(t *testing.T) {
	t.Run("string allowed-tools", func(t *testing.T) {
		doc, err := ParseFrontmatter("---\nname: pdf\ndescription: Work with PDFs\nlicense: MIT\ncompatibility: claude\nallowed-tools: 'Bash Read Write'\nmetadata:\n  author: me\n  revision: 2\n---\n\nUse it.")
		require.NoError(t, err)

		c := doc.ToContent()
		assert.Equal(t, "pdf", c.Name)
		assert.Equal(t, "Work with PDFs", c.Description)
		assert.Equal(t, "Use it.", c.Prompt)
		assert.Equal(t, "MIT", c.License)
		assert.Equal(t, "claude", c.Compatibility)
		assert.Equal(t, "Bash Read Write", c.AllowedTools)
		assert.Equal(t, map[string]string{"author": "me", "revision": "2"}, c.Metadata)
	})

	t.Run("sequence allowed-tools is space joined", func(t *testing.T) {
		doc, err := ParseFrontmatter("---\nname: a\ndescription: b\nallowed-tools:\n  - Bash\n  - Read\n---\n")
		require.NoError(t, err)
		assert.Equal(t, "Bash Read", doc.ToContent().AllowedTools)
	})

	t.Run("camelCase alias", func(t *testing.T) {
		doc, err := ParseFrontmatter("---\nname: a\ndescription: b\nallowedTools: Grep\n---\n")
		require.NoError(t, err)
		assert.Equal(t, "Grep", doc.ToContent().AllowedTools)
	})

	t.Run("metadata keeps scalar text", func(t *testing.T) {
		doc, err := ParseFrontmatter("---\nname: a\ndescription: b\nmetadata:\n  version: 1.10\n  when: 2024-01-01\n  beta: yes\n  hex: 0x1F\n  empty:\n---\n")
		require.NoError(t, err)
		assert.Equal(t, map[string]string{
			"version": "1.10",
			"when":    "2024-01-01",
			"beta":    "yes",
			"hex":     "0x1F",
			"empty":   "",
		}, doc.ToContent().Metadata)
	})

	t.Run("numeric description keeps its text", func(t *testing.T) {
		doc, err := ParseFrontmatter("---\nname: a\ndescription: 3.50\n---\n")
		require.NoError(t, err)
		assert.Equal(t, "3.50", doc.ToContent().Description)
	})

	t.Run("aliases resolve to their anchor", func(t *testing.T) {
		doc, err := ParseFrontmatter("---\nname: &n shared\ndescription: *n\n---\n")
		require.NoError(t, err)
		assert.Equal(t, "shared", doc.ToContent().Description)
	})

	t.Run("absent optionals", func(t *testing.T) {
		doc, err := ParseFrontmatter("---\nname: a\ndescription: b\n---\n")
		require.NoError(t, err)
		c := doc.ToContent()
		assert.Empty(t, c.AllowedTools)
		assert.Empty(t, c.License)
		assert.Nil(t, c.Metadata)
	})
}
