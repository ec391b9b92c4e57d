// Package validate contains input validation and sanitization helpers for
// user submitted fields.
package validate

import (
	"net/mail"
	"strings"
	"unicode"
)

// Bounds applied to user submitted profile fields.
const (
	MinNameLen = 2
	MaxNameLen = 100
	MinAge     = 1
	MaxAge     = 120
)

// Email returns true if the address parses as an RFC 5322 address with a
// host part.
func Email(addr string) bool {
	a, err := mail.ParseAddress(addr)
	if err != nil || a.Name != "" {
		return false
	}
	at := strings.LastIndexByte(a.Address, '@')
	if at <= 0 || at == len(a.Address)-1 {
		return false
	}
	return strings.ContainsRune(a.Address[at+1:], '.')
}

// PersonName returns true if the provided display name is acceptable.
// The name must already be sanitized.
func PersonName(name string) bool {
	n := len([]rune(name))
	return n >= MinNameLen && n <= MaxNameLen
}

// Age returns true if the age is within the accepted range.
func Age(age int) bool {
	return age >= MinAge && age <= MaxAge
}

// SanitizeText cleans a user submitted free-text field: control characters
// are dropped, runs of whitespace collapse to a single space, surrounding
// whitespace is trimmed, and the result is truncated to maxLen runes.
func SanitizeText(s string, maxLen int) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			space = true
		case unicode.IsControl(r):
			// dropped
		default:
			if space && b.Len() != 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		}
	}
	out := b.String()
	if maxLen > 0 {
		runes := []rune(out)
		if len(runes) > maxLen {
			out = string(runes[:maxLen])
		}
	}
	return out
}

// SanitizeName applies SanitizeText with the name length bound.
func SanitizeName(s string) string {
	return SanitizeText(s, MaxNameLen)
}
