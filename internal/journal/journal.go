// Package journal canonicalizes free-text publication venues.
package journal

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Unknown is the display name used for missing venues.
const Unknown = "Unknown"

// specialPrefix maps a lowercase venue prefix to a fixed display name.
// The data source reports these venues inconsistently.
type specialPrefix struct {
	prefix  string
	display string
}

var specialPrefixes = []specialPrefix{
	{"arxiv", "arXiv"},
	{"biorxiv", "bioRxiv"},
	{"medrxiv", "medRxiv"},
	{"g3", "G3: Genes, Genomes, Genetics"},
}

// connectives are lowercased when they appear as a capitalized word.
var connectives = map[string]string{
	"And": "and",
	"Of":  "of",
	"In":  "in",
}

var (
	volumeTailPattern = regexp.MustCompile(`\s+\d+\s*(\(\d+\))?.*$`)
	volumePattern     = regexp.MustCompile(`\s+(\d+)\s*(\(\d+\))?`)
	issuePattern      = regexp.MustCompile(`\(\s*(\d+)\s*\)`)
)

// Normalizer maps raw venue text to display names. Results are memoized per
// normalizer so that the same raw input always yields the same output.
// A Normalizer is not safe for concurrent use.
type Normalizer struct {
	cache map[string]string
	hits  int
}

// NewNormalizer returns a normalizer with an empty cache.
func NewNormalizer() *Normalizer {
	return &Normalizer{cache: make(map[string]string)}
}

// Normalize returns the canonical display name for raw.
func (n *Normalizer) Normalize(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	if v, ok := n.cache[key]; ok {
		n.hits++
		return v
	}
	v := normalize(raw)
	n.cache[key] = v
	return v
}

// CacheLen returns the number of memoized inputs.
func (n *Normalizer) CacheLen() int {
	return len(n.cache)
}

// Hits returns how many calls were served from the cache.
func (n *Normalizer) Hits() int {
	return n.hits
}

func normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Unknown
	}
	if display, ok := special(raw); ok {
		return display
	}

	tokens := strings.Fields(raw)
	for i, tok := range tokens {
		if !hasInternalUpper(tok) {
			tok = capitalize(tok)
		}
		if lower, ok := connectives[tok]; ok {
			tok = lower
		}
		tokens[i] = tok
	}
	return strings.Join(tokens, " ")
}

func special(raw string) (string, bool) {
	lower := strings.ToLower(raw)
	for _, sp := range specialPrefixes {
		if strings.HasPrefix(lower, sp.prefix) {
			return sp.display, true
		}
	}
	return "", false
}

// hasInternalUpper reports whether an uppercase letter appears after the
// first rune ("bioRxiv", "PLoS", "BMC").
func hasInternalUpper(tok string) bool {
	for i, r := range tok {
		if i > 0 && unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

func capitalize(tok string) string {
	r, size := utf8.DecodeRuneInString(tok)
	if r == utf8.RuneError {
		return tok
	}
	return string(unicode.ToUpper(r)) + tok[size:]
}

// IsAllUpper reports whether s has letters and none of them is lowercase.
func IsAllUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	return hasLetter
}

// ParseVenue splits raw venue text such as "Nature Ecology 5 (3), 112-120"
// into journal name, volume and issue. Volume and issue are empty when
// absent.
func ParseVenue(raw string) (journal, volume, issue string) {
	journal = CleanName(raw)
	if m := volumePattern.FindStringSubmatch(raw); m != nil {
		volume = m[1]
	}
	if m := issuePattern.FindStringSubmatch(raw); m != nil {
		issue = m[1]
	}
	return journal, volume, issue
}

// CleanName strips volume, issue and page information from raw venue text.
func CleanName(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	if display, ok := special(strings.TrimSpace(raw)); ok {
		return display
	}

	name := volumeTailPattern.ReplaceAllString(raw, "")
	if name == raw {
		if idx := strings.Index(raw, ","); idx >= 0 {
			name = raw[:idx]
		}
	}
	return strings.TrimRight(strings.TrimSpace(name), ",")
}
