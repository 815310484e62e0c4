package skills

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ParseErrorKind distinguishes structural defects of a skill bundle
type ParseErrorKind string

const (
	ParseMissingFrontmatter  ParseErrorKind = "missing frontmatter"
	ParseUnclosedFrontmatter ParseErrorKind = "unclosed frontmatter"
	ParseInvalidFrontmatter  ParseErrorKind = "invalid frontmatter"
	ParseMissingSkillFile    ParseErrorKind = "missing skill file"
)

// ParseError reports a structural defect in SKILL.md or its bundle
type ParseError struct {
	Kind ParseErrorKind
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *ParseError) Unwrap() error { return e.Err }

func newParseError(kind ParseErrorKind, err error) *ParseError {
	return &ParseError{Kind: kind, Err: err}
}

// ErrMissingSkillFile is returned when an uploaded bundle has no SKILL.md
func ErrMissingSkillFile(name string) error {
	return newParseError(ParseMissingSkillFile, errors.Errorf("%s not found in uploaded files", name))
}

// FieldError is a single schema violation
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every schema violation found in the frontmatter
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		msgs[i] = fe.Message
	}
	return "skill validation failed: " + strings.Join(msgs, "; ")
}

// NotFoundError reports that a referenced resource does not exist
type NotFoundError struct {
	Resource string
	ID       string
	msg      string
}

func (e *NotFoundError) Error() string {
	if e.msg != "" {
		return e.msg
	}
	return fmt.Sprintf("%s with id %s not found", e.Resource, e.ID)
}

// AuthorizationError reports a space/organization mismatch or a non-member caller
type AuthorizationError struct {
	msg string
}

func (e *AuthorizationError) Error() string { return e.msg }

// ErrUserNotFound is returned when the membership oracle does not know the caller
func ErrUserNotFound(id any) error {
	return &NotFoundError{Resource: "User", ID: fmt.Sprint(id), msg: fmt.Sprintf("User not found: %v", id)}
}

// ErrOrganizationNotFound is returned when the organization does not exist
func ErrOrganizationNotFound(id any) error {
	return &NotFoundError{Resource: "Organization", ID: fmt.Sprint(id), msg: fmt.Sprintf("Organization %v not found", id)}
}

// ErrSpaceNotFound is returned when the space does not exist
func ErrSpaceNotFound(id any) error {
	return &NotFoundError{Resource: "Space", ID: fmt.Sprint(id)}
}

// ErrSkillNotFound is returned when an explicitly addressed skill does not exist
func ErrSkillNotFound(id any) error {
	return &NotFoundError{Resource: "Skill", ID: fmt.Sprint(id)}
}

// ErrSkillVersionNotFound is returned when a version of an existing skill does not exist
func ErrSkillVersionNotFound(skillID any, version int) error {
	return &NotFoundError{
		Resource: "SkillVersion",
		ID:       fmt.Sprintf("%v@%d", skillID, version),
		msg:      fmt.Sprintf("SkillVersion %d of skill %v not found", version, skillID),
	}
}

// ErrNotMember is returned when the caller does not belong to the organization
func ErrNotMember(userID, orgID any) error {
	return &AuthorizationError{msg: fmt.Sprintf("User %v is not a member of organization %v", userID, orgID)}
}

// ErrSpaceOrganizationMismatch is returned when the space belongs to another organization
func ErrSpaceOrganizationMismatch(spaceID, orgID any) error {
	return &AuthorizationError{msg: fmt.Sprintf("Space %v does not belong to organization %v", spaceID, orgID)}
}

// ErrSkillSpaceMismatch is returned when an addressed skill lives in another space
func ErrSkillSpaceMismatch(skillID, spaceID any) error {
	return &AuthorizationError{msg: fmt.Sprintf("Skill %v does not belong to space %v", skillID, spaceID)}
}

// IsParseError reports whether err is, or wraps, a ParseError
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// IsValidationError reports whether err is, or wraps, a ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is, or wraps, a NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsUnauthorized reports whether err is, or wraps, an AuthorizationError
func IsUnauthorized(err error) bool {
	var ae *AuthorizationError
	return errors.As(err, &ae)
}
