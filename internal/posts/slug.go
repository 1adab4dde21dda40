package posts

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Slugify lower-cases s and keeps only [a-z0-9], whitespace and hyphens.
// Accents are folded first (é becomes e). Whitespace and dash punctuation
// (em dash, en dash) become single hyphens; leading and trailing hyphens
// are trimmed. Slugify(Slugify(s)) == Slugify(s).
func Slugify(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err == nil {
		s = folded
	}

	var b strings.Builder
	b.Grow(len(s))
	pendingHyphen := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		case r == '-', unicode.IsSpace(r), unicode.Is(unicode.Pd, r):
			pendingHyphen = true
		}
	}
	return b.String()
}
