package service

import "strings"

// NormalizeSlug turns a free-form title or slug candidate into the
// canonical URL-safe form used as the product's unique key: lowercase,
// whitespace collapsed to single dashes, everything outside
// [a-z0-9._-] stripped, repeated dashes collapsed and edge dashes
// trimmed.
func NormalizeSlug(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))

	var b strings.Builder
	b.Grow(len(v))
	lastDash := true
	for _, r := range v {
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_':
			b.WriteRune(r)
			lastDash = false
		case r == '-':
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
