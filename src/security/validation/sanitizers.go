package validation

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxInputLength bounds search text, filter values and product names coming
// from clients.
const MaxInputLength = 128

// StripUnprintable removes non-printable characters. Tabs and line breaks
// become spaces.
func StripUnprintable(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\t' || r == '\n' || r == '\r' {
			return ' '
		}
		if unicode.IsPrint(r) {
			return r
		}
		return -1
	}, s)
}

// CleanInput strips unprintable characters and truncates s to MaxInputLength
// runes. Surrounding whitespace is kept; matching trims it where it matters.
func CleanInput(s string) string {
	s = StripUnprintable(s)
	if utf8.RuneCountInString(s) <= MaxInputLength {
		return s
	}
	return string([]rune(s)[:MaxInputLength])
}
