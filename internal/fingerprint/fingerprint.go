// Package fingerprint derives the deduplication key of a publication.
//
// The key is the year followed by a simplified title truncated to MaxTitleLen
// runes. Distinct publications from the same year whose simplified titles
// share the first MaxTitleLen runes get the same key and are merged; this is
// a known limitation.
package fingerprint

import (
	"strconv"
	"strings"
	"unicode"
)

// MaxTitleLen is the number of runes of the simplified title kept in a key.
const MaxTitleLen = 50

// Fingerprint returns "<year>_<simplified title>" for a publication.
func Fingerprint(title string, year int) string {
	return strconv.Itoa(year) + "_" + simplify(title)
}

// FromRaw is Fingerprint with a textual year; a year that is not a plain
// non-negative integer counts as 0.
func FromRaw(title, year string) string {
	return Fingerprint(title, ParseYear(year))
}

// ParseYear parses a year, returning 0 for anything that is not a
// non-negative integer.
func ParseYear(s string) int {
	y, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || y < 0 {
		return 0
	}
	return y
}

// simplify lowercases title, drops everything but letters, digits and
// whitespace, joins the words with underscores and truncates the result.
func simplify(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}

	simple := []rune(strings.Join(strings.Fields(b.String()), "_"))
	if len(simple) > MaxTitleLen {
		simple = simple[:MaxTitleLen]
	}
	return string(simple)
}
