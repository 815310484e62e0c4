package skills

import (
	"strconv"
	"strings"
	"unicode"

	skilltypes "github.com/jingkaihe/skillvault/pkg/types/skills"
)

// BuildSkillMarkdown renders content back into SKILL.md form. Parsing the
// result with ParseFrontmatter yields the same fields and prompt.
func BuildSkillMarkdown(c skilltypes.Content) string {
	var b strings.Builder
	b.WriteString(frontmatterDelimiter + "\n")
	writeField(&b, "name", c.Name)
	writeField(&b, "description", c.Description)
	if c.License != "" {
		writeField(&b, "license", c.License)
	}
	if c.Compatibility != "" {
		writeField(&b, "compatibility", c.Compatibility)
	}
	if len(c.Metadata) > 0 {
		b.WriteString("metadata:\n")
		for _, k := range sortedKeys(c.Metadata) {
			b.WriteString("  " + quoteYAML(k) + ": " + quoteYAML(c.Metadata[k]) + "\n")
		}
	}
	if c.AllowedTools != "" {
		writeField(&b, "allowed-tools", c.AllowedTools)
	}
	b.WriteString(frontmatterDelimiter + "\n")

	if c.Prompt != "" {
		b.WriteString("\n" + c.Prompt)
		if !strings.HasSuffix(c.Prompt, "\n") {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func writeField(b *strings.Builder, key, value string) {
	b.WriteString(key + ": " + quoteYAML(value) + "\n")
}

// quoteYAML single-quotes s, doubling embedded quotes. Values that single
// quoting would fold (line breaks, control characters) use double quotes.
func quoteYAML(s string) string {
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || !unicode.IsPrint(r) && r != ' ' {
			return strconv.Quote(s)
		}
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
