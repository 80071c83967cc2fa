package lesson

import "strings"

// Slugify converts a lesson title into its URL-safe slug: lowercase,
// non-alphanumeric runs collapsed into single hyphens, no leading or
// trailing hyphen. "Cell Structure" -> "cell-structure".
func Slugify(title string) string {
	var b strings.Builder
	lastHyphen := true // suppress a leading hyphen
	for _, r := range strings.ToLower(title) {
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
	return strings.TrimRight(b.String(), "-")
}

// SanitizeKey reduces a string to a safe identifier key: lowercase with only
// [a-z0-9_-] retained. Used for lesson IDs and objective keys.
func SanitizeKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	return b.String()
}
