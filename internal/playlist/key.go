package playlist

import (
	"fmt"
	"regexp"
	"strings"
)

// managerTag marks playlists created by this application. The canonical key
// is embedded in the playlist description so the key -> playlist mapping can
// be recovered by listing playlists, with no local mapping table.
const (
	tagPrefix = "[managed-by:reelforge; key:"
	tagSuffix = "]"
)

var (
	slugStrip    = regexp.MustCompile(`[^a-z0-9]+`)
	slugCollapse = regexp.MustCompile(`-{2,}`)
	tagPattern   = regexp.MustCompile(`\[managed-by:reelforge; key:([a-z0-9-]+)\]`)
)

// Slugify lowercases s and reduces it to a URL-safe hyphenated slug.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugStrip.ReplaceAllString(s, "-")
	s = slugCollapse.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// CanonicalKey derives the deterministic playlist key for a piece of
// content. Two jobs that belong in the same remote collection always
// produce the same key.
func CanonicalKey(account, persona, topic, format string) string {
	parts := []string{
		Slugify(account),
		Slugify(persona),
		Slugify(topic),
		Slugify(format),
	}
	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "-")
}

// FormatTag returns the manager tag embedding key, suitable for appending
// to a playlist description.
func FormatTag(key string) string {
	return tagPrefix + key + tagSuffix
}

// TagDescription appends the manager tag for key to a human description.
func TagDescription(description, key string) string {
	if description == "" {
		return FormatTag(key)
	}
	return fmt.Sprintf("%s\n\n%s", description, FormatTag(key))
}

// ParseTag extracts the canonical key from a playlist description.
// Returns false when the description carries no manager tag.
func ParseTag(description string) (string, bool) {
	m := tagPattern.FindStringSubmatch(description)
	if m == nil {
		return "", false
	}
	return m[1], true
}
