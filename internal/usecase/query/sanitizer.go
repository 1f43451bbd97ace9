package query

import (
	"strings"
	"unicode"
)

// Sanitize normalizes raw query text: control characters are dropped,
// whitespace runs collapse to a single space, the result is trimmed and
// lower-cased. Sanitization never rejects; rejection is the classifier's job.
func Sanitize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))

	lastSpace := false
	for _, r := range raw {
		switch {
		case unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		default:
			b.WriteRune(unicode.ToLower(r))
			lastSpace = false
		}
	}
	return strings.TrimSpace(b.String())
}
