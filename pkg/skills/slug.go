package skills

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fallbackSlug is used when a name contains no slug-safe characters at all
const fallbackSlug = "skill"

// Slugify derives a URL-safe identifier from a display name: diacritics are
// stripped, letters lowercased and every run of other characters collapsed
// into a single hyphen.
func Slugify(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}

	if b.Len() == 0 {
		return fallbackSlug
	}
	return b.String()
}

// AllocateSlug returns the slugified name if it is free in taken, otherwise
// the first of base-1, base-2, ... that is. exclude names a slug to treat as
// free, so a skill being renamed does not collide with itself.
func AllocateSlug(name string, taken []string, exclude string) string {
	base := Slugify(name)

	used := make(map[string]struct{}, len(taken))
	for _, s := range taken {
		if s != exclude || exclude == "" {
			used[s] = struct{}{}
		}
	}

	if _, ok := used[base]; !ok {
		return base
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s-%d", base, i)
		if _, ok := used[candidate]; !ok {
			return candidate
		}
	}
}
