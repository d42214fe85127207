package metadata

import "strings"

// Slugify derives a URL-safe slug from a display label: lower-cased, runs of
// non-alphanumerics collapsed to single hyphens, trimmed. Uniqueness within
// a group is enforced at create/update time, not here.
func Slugify(label string) string {
	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(strings.TrimSpace(label)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
