package skills

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messages(errs []FieldError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Message
	}
	return out
}

func TestValidate(t *testing.T) {
	t.Run("valid minimal", func(t *testing.T) {
		assert.Empty(t, Validate(NewFrontmatter("name", "my-skill", "description", "A sample skill.")))
	})

	t.Run("valid with every allowed field", func(t *testing.T) {
		fm := NewFrontmatter(
			"name", "pdf-tools2",
			"description", "Handles PDFs",
			"license", "Apache-2.0",
			"compatibility", "any",
			"metadata", map[string]any{"author": "me", "revision": 3},
			"allowed-tools", "Bash Read",
		)
		assert.Empty(t, Validate(fm))
	})

	t.Run("name and description missing", func(t *testing.T) {
		errs := Validate(NewFrontmatter("license", "MIT"))
		assert.Equal(t, []FieldError{
			{Field: "name", Message: "name field is missing"},
			{Field: "description", Message: "description field is missing"},
		}, errs)
	})

	t.Run("only description missing", func(t *testing.T) {
		errs := Validate(NewFrontmatter("name", "ok"))
		assert.Equal(t, []string{"description field is missing"}, messages(errs))
	})

	t.Run("empty strings count as missing", func(t *testing.T) {
		errs := Validate(NewFrontmatter("name", "", "description", "  "))
		assert.Equal(t, []string{"name field is missing", "description field is missing"}, messages(errs))
	})

	t.Run("uppercase and underscore", func(t *testing.T) {
		errs := Validate(NewFrontmatter("name", "My_Skill", "description", "x"))
		msgs := messages(errs)
		assert.Contains(t, msgs, "name must contain only lowercase characters")
		assert.Contains(t, msgs, "name must contain only lowercase alphanumeric characters and hyphens")
		assert.Len(t, msgs, 2)
	})

	nameCases := []struct {
		name     string
		value    string
		expected []string
	}{
		{"uppercase only", "My-Skill", []string{"name must contain only lowercase characters"}},
		{"leading hyphen", "-my-skill", []string{"name must not start or end with a hyphen"}},
		{"trailing hyphen", "my-skill-", []string{"name must not start or end with a hyphen"}},
		{"consecutive hyphens", "my--skill", []string{"name must not contain consecutive hyphens"}},
		{"space", "my skill", []string{"name must contain only lowercase alphanumeric characters and hyphens"}},
		{"too long", strings.Repeat("a", 65), []string{"name must not exceed 64 characters"}},
		{"exactly 64", strings.Repeat("a", 64), nil},
		{"digits", "skill-2", nil},
	}
	for _, tc := range nameCases {
		t.Run("name "+tc.name, func(t *testing.T) {
			errs := Validate(NewFrontmatter("name", tc.value, "description", "x"))
			if tc.expected == nil {
				assert.Empty(t, errs)
				return
			}
			assert.Equal(t, tc.expected, messages(errs))
			for _, e := range errs {
				assert.Equal(t, "name", e.Field)
			}
		})
	}

	t.Run("non-string name", func(t *testing.T) {
		errs := Validate(NewFrontmatter("name", map[string]any{"a": "b"}, "description", "x"))
		assert.Equal(t, []string{"name must be a string"}, messages(errs))
	})

	t.Run("description too long", func(t *testing.T) {
		errs := Validate(NewFrontmatter("name", "a", "description", strings.Repeat("d", 1025)))
		assert.Equal(t, []FieldError{{Field: "description", Message: "description must not exceed 1024 characters"}}, errs)
		assert.Empty(t, Validate(NewFrontmatter("name", "a", "description", strings.Repeat("é", 1024))))
	})

	t.Run("compatibility too long", func(t *testing.T) {
		errs := Validate(NewFrontmatter("name", "a", "description", "b", "compatibility", strings.Repeat("c", 501)))
		assert.Equal(t, []FieldError{{Field: "compatibility", Message: "compatibility must not exceed 500 characters"}}, errs)
	})

	t.Run("unexpected fields in encounter order", func(t *testing.T) {
		fm := NewFrontmatter("name", "a", "foo", 1, "description", "b", "baz", true)
		errs := Validate(fm)
		assert.Equal(t, []FieldError{{Field: "frontmatter", Message: "unexpected fields in frontmatter: foo, baz"}}, errs)
	})

	t.Run("allowedTools alias accepted", func(t *testing.T) {
		assert.Empty(t, Validate(NewFrontmatter("name", "a", "description", "b", "allowedTools", "Bash")))
	})

	t.Run("nested metadata rejected", func(t *testing.T) {
		errs := Validate(NewFrontmatter("name", "a", "description", "b", "metadata", map[string]any{"nested": map[string]any{"x": 1}}))
		assert.Equal(t, []FieldError{{Field: "metadata", Message: "metadata must be a mapping of string keys to string values"}}, errs)

		errs = Validate(NewFrontmatter("name", "a", "description", "b", "metadata", "flat"))
		assert.Len(t, errs, 1)
	})
}

func TestValidateOrError(t *testing.T) {
	require.NoError(t, ValidateOrError(NewFrontmatter("name", "a", "description", "b")))

	err := ValidateOrError(NewFrontmatter("description", "b"))
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.False(t, IsParseError(err))

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []FieldError{{Field: "name", Message: "name field is missing"}}, ve.Errors)
	assert.Equal(t, "skill validation failed: name field is missing", err.Error())
}
