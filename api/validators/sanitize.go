package validators

import (
	"strings"
	"unicode"
)

// SanitizeString trims s, drops control characters, collapses runs of
// whitespace to one space and caps the result at maxLen runes. Search terms
// reach ILIKE patterns, so the cap never splits a multi-byte character.
func SanitizeString(s string, maxLen int) string {
	var b strings.Builder
	b.Grow(len(s))
	runes := 0
	pendingSpace := false
	for _, r := range strings.TrimSpace(s) {
		if unicode.IsSpace(r) {
			pendingSpace = true
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		if pendingSpace && runes > 0 {
			if maxLen > 0 && runes+1 >= maxLen {
				break
			}
			b.WriteByte(' ')
			runes++
		}
		pendingSpace = false
		if maxLen > 0 && runes >= maxLen {
			break
		}
		b.WriteRune(r)
		runes++
	}
	return b.String()
}
