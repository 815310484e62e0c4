package skills

import (
	"github.com/invopop/jsonschema"
)

// frontmatterFields mirrors the keys accepted in a SKILL.md frontmatter block
type frontmatterFields struct {
	Name          string            `json:"name" jsonschema:"required,maxLength=64,pattern=^[a-z0-9]+(-[a-z0-9]+)*$" jsonschema_description:"Lowercase alphanumeric identifier, hyphen separated"`
	Description   string            `json:"description" jsonschema:"required,maxLength=1024" jsonschema_description:"What the skill does and when to use it"`
	License       string            `json:"license,omitempty"`
	Compatibility string            `json:"compatibility,omitempty" jsonschema:"maxLength=500"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	AllowedTools  string            `json:"allowed-tools,omitempty" jsonschema_description:"Space separated list of tools the skill may use"`
}

// FrontmatterSchema returns the JSON schema describing SKILL.md frontmatter
func FrontmatterSchema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schema := r.Reflect(&frontmatterFields{})
	schema.Title = "SKILL.md frontmatter"
	return schema
}
