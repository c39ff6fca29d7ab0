// Package name canonicalizes free-text person names for comparison.
package name

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// dashes lists the code points treated as a plain ASCII hyphen.
var dashes = []rune{
	'‐', // hyphen
	'‑', // non-breaking hyphen
	'‒', // figure dash
	'–', // en dash
	'—', // em dash
	'―', // horizontal bar
	'−', // minus sign
	'﹘', // small em dash
	'﹣', // small hyphen-minus
	'－', // fullwidth hyphen-minus
}

var dashReplacer = func() *strings.Replacer {
	pairs := make([]string, 0, 2*len(dashes))
	for _, d := range dashes {
		pairs = append(pairs, string(d), "-")
	}
	return strings.NewReplacer(pairs...)
}()

// IsDash reports whether r is one of the recognized dash variants or '-'.
func IsDash(r rune) bool {
	if r == '-' {
		return true
	}
	for _, d := range dashes {
		if r == d {
			return true
		}
	}
	return false
}

// Normalize trims s, collapses internal whitespace to single spaces,
// lowercases it and maps every dash variant to '-'.
func Normalize(s string) string {
	s = dashReplacer.Replace(s)
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// CompactInitials normalizes s and turns initials written with periods into
// bare letters: "J.Smith", "j.   smith" and "J. Smith" all become "j smith".
func CompactInitials(s string) string {
	s = strings.ReplaceAll(Normalize(s), ".", " ")
	s = strings.Join(strings.Fields(s), " ")
	s = strings.ReplaceAll(s, " -", "-")
	return strings.ReplaceAll(s, "- ", "-")
}

// StripDiacritics removes combining marks: "Müller" becomes "Muller".
func StripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Key is the comparison form of a name: compacted initials, no diacritics.
func Key(s string) string {
	return StripDiacritics(CompactInitials(s))
}

// Abbreviate returns "<first-initial> <rest-of-name>" for a key produced by
// Key. Single-token names are returned unchanged.
func Abbreviate(key string) string {
	tokens := strings.Fields(key)
	if len(tokens) < 2 {
		return key
	}
	r, _ := utf8.DecodeRuneInString(tokens[0])
	return string(r) + " " + strings.Join(tokens[1:], " ")
}

// FirstToken returns the first whitespace-separated token of s.
func FirstToken(s string) string {
	tokens := strings.Fields(s)
	if len(tokens) == 0 {
		return ""
	}
	return tokens[0]
}

// LastName returns the last token of the comparison key of s.
func LastName(s string) string {
	tokens := strings.Fields(Key(s))
	if len(tokens) == 0 {
		return ""
	}
	return tokens[len(tokens)-1]
}

// IsInitial reports whether token is a single letter, optionally followed by
// a period.
func IsInitial(token string) bool {
	token = strings.TrimSuffix(token, ".")
	if utf8.RuneCountInString(token) != 1 {
		return false
	}
	r, _ := utf8.DecodeRuneInString(token)
	return unicode.IsLetter(r)
}
