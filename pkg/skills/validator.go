package skills

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	maxNameLength          = 64
	maxDescriptionLength   = 1024
	maxCompatibilityLength = 500
)

var namePattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// allowedFields lists every frontmatter key a SKILL.md may carry
var allowedFields = map[string]bool{
	"name":          true,
	"description":   true,
	"license":       true,
	"compatibility": true,
	"metadata":      true,
	"allowed-tools": true,
	"allowedTools":  true,
}

// Validate checks the frontmatter against the skill schema and returns every
// violation found. It never fails; an empty result means the metadata is valid.
func Validate(fm Frontmatter) []FieldError {
	errs := []FieldError{}
	errs = append(errs, validateName(fm)...)
	errs = append(errs, validateDescription(fm)...)
	errs = append(errs, validateCompatibility(fm)...)
	errs = append(errs, validateMetadata(fm)...)

	var unexpected []string
	for _, key := range fm.Keys() {
		if !allowedFields[key] {
			unexpected = append(unexpected, key)
		}
	}
	if len(unexpected) > 0 {
		errs = append(errs, FieldError{
			Field:   "frontmatter",
			Message: "unexpected fields in frontmatter: " + strings.Join(unexpected, ", "),
		})
	}

	return errs
}

// ValidateOrError wraps Validate and returns a *ValidationError carrying the
// full list of violations, or nil.
func ValidateOrError(fm Frontmatter) error {
	if errs := Validate(fm); len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

func validateName(fm Frontmatter) []FieldError {
	if raw, ok := fm.Get("name"); ok && raw != nil {
		if _, isString := fm.String("name"); !isString {
			return []FieldError{{Field: "name", Message: "name must be a string"}}
		}
	}
	name, _ := fm.String("name")
	if strings.TrimSpace(name) == "" {
		return []FieldError{{Field: "name", Message: "name field is missing"}}
	}

	var errs []FieldError
	if utf8.RuneCountInString(name) > maxNameLength {
		errs = append(errs, FieldError{Field: "name", Message: fmt.Sprintf("name must not exceed %d characters", maxNameLength)})
	}

	lower := strings.ToLower(name)
	if lower != name {
		errs = append(errs, FieldError{Field: "name", Message: "name must contain only lowercase characters"})
	}

	// Checked on the lowercased form so an uppercase letter alone is not
	// reported twice.
	switch {
	case strings.HasPrefix(lower, "-") || strings.HasSuffix(lower, "-"):
		errs = append(errs, FieldError{Field: "name", Message: "name must not start or end with a hyphen"})
	case strings.Contains(lower, "--"):
		errs = append(errs, FieldError{Field: "name", Message: "name must not contain consecutive hyphens"})
	case !namePattern.MatchString(lower):
		errs = append(errs, FieldError{Field: "name", Message: "name must contain only lowercase alphanumeric characters and hyphens"})
	}

	return errs
}

func validateDescription(fm Frontmatter) []FieldError {
	description, _ := fm.String("description")
	if strings.TrimSpace(description) == "" {
		return []FieldError{{Field: "description", Message: "description field is missing"}}
	}
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		return []FieldError{{Field: "description", Message: fmt.Sprintf("description must not exceed %d characters", maxDescriptionLength)}}
	}
	return nil
}

func validateCompatibility(fm Frontmatter) []FieldError {
	compatibility, ok := fm.String("compatibility")
	if ok && utf8.RuneCountInString(compatibility) > maxCompatibilityLength {
		return []FieldError{{Field: "compatibility", Message: fmt.Sprintf("compatibility must not exceed %d characters", maxCompatibilityLength)}}
	}
	return nil
}

func validateMetadata(fm Frontmatter) []FieldError {
	raw, ok := fm.Get("metadata")
	if !ok || raw == nil {
		return nil
	}
	m, isMap := raw.(map[string]any)
	if isMap {
		for _, v := range m {
			switch v.(type) {
			case map[string]any, []any:
				isMap = false
			}
		}
	}
	if !isMap {
		return []FieldError{{Field: "metadata", Message: "metadata must be a mapping of string keys to string values"}}
	}
	return nil
}
