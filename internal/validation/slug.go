package validation

import (
	"strings"
	"unicode"
)

// Slugify turns s into a lowercase, hyphen-separated ASCII token for file names.
// It returns "user" when nothing usable is left.
func Slugify(s string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		default:
			pendingDash = true
		}
	}
	if b.Len() == 0 {
		return "user"
	}
	out := b.String()
	if len(out) > 50 {
		out = strings.TrimRight(out[:50], "-")
	}
	return out
}
