package skills

import (
	"sort"

	skilltypes "github.com/jingkaihe/skillvault/pkg/types/skills"
)

// IsIdentical reports whether a candidate upload matches the latest stored
// version, so that re-uploading an unchanged bundle can be a no-op.
// SKILL.md is ignored among candidateFiles since its fields are compared
// through content. Files are compared by path after sorting.
func IsIdentical(latest skilltypes.SkillVersion, latestFiles []skilltypes.SkillFile, content skilltypes.Content, candidateFiles []skilltypes.SkillFileInput) bool {
	if latest.Name != content.Name ||
		latest.Description != content.Description ||
		latest.Prompt != content.Prompt ||
		latest.License != content.License ||
		latest.Compatibility != content.Compatibility ||
		latest.AllowedTools != content.AllowedTools {
		return false
	}

	if !metadataEqual(latest.Metadata, content.Metadata) {
		return false
	}

	return filesEqual(latestFiles, candidateFiles)
}

// metadataEqual treats nil and empty maps as the same value
func metadataEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	ak, bk := sortedKeys(a), sortedKeys(b)
	for i := range ak {
		if ak[i] != bk[i] || a[ak[i]] != b[bk[i]] {
			return false
		}
	}
	return true
}

func filesEqual(stored []skilltypes.SkillFile, candidate []skilltypes.SkillFileInput) bool {
	incoming := make([]skilltypes.SkillFileInput, 0, len(candidate))
	for _, f := range candidate {
		if f.Path != skilltypes.SkillFileName {
			incoming = append(incoming, f)
		}
	}
	if len(stored) != len(incoming) {
		return false
	}

	existing := make([]skilltypes.SkillFile, len(stored))
	copy(existing, stored)
	sort.Slice(existing, func(i, j int) bool { return existing[i].Path < existing[j].Path })
	sort.Slice(incoming, func(i, j int) bool { return incoming[i].Path < incoming[j].Path })

	for i := range existing {
		e, c := existing[i], incoming[i]
		if e.Path != c.Path || e.Content != c.Content || e.Permissions != c.Permissions || e.IsBase64 != c.IsBase64 {
			return false
		}
	}
	return true
}
