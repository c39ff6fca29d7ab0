// Package export writes publications in citation-manager formats.
package export

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/scholarlyreport/scholarly/internal/name"
	"github.com/scholarlyreport/scholarly/internal/reference"
)

// ToBibTeX converts a publication to a BibTeX entry with the given key.
func ToBibTeX(p reference.Publication, key string) string {
	entryType := determineEntryType(p.Venue)
	var b strings.Builder

	b.WriteString(fmt.Sprintf("@%s{%s,\n", entryType, key))

	if authors := formatAuthors(p.AuthorList); authors != "" {
		b.WriteString(fmt.Sprintf("  author = {%s},\n", authors))
	}

	b.WriteString(fmt.Sprintf("  title = {%s},\n", escapeLatex(p.Title)))

	// Journal or proceedings, falling back to the raw venue string
	venue := p.Journal
	if venue == "" {
		venue = p.Venue
	}
	if venue != "" {
		fieldName := "journal"
		switch entryType {
		case "inproceedings":
			fieldName = "booktitle"
		case "misc":
			fieldName = "howpublished"
		}
		b.WriteString(fmt.Sprintf("  %s = {%s},\n", fieldName, escapeLatex(venue)))
	}

	if p.Volume != "" {
		b.WriteString(fmt.Sprintf("  volume = {%s},\n", escapeLatex(p.Volume)))
	}
	if p.Issue != "" {
		b.WriteString(fmt.Sprintf("  number = {%s},\n", escapeLatex(p.Issue)))
	}
	if p.Year > 0 {
		b.WriteString(fmt.Sprintf("  year = {%d},\n", p.Year))
	}
	if p.URL != "" {
		b.WriteString(fmt.Sprintf("  url = {%s},\n", p.URL))
	}
	if p.Citations > 0 {
		b.WriteString(fmt.Sprintf("  note = {Cited by %d},\n", p.Citations))
	}

	b.WriteString("}\n")

	return b.String()
}

// ToBibTeXList converts publications to BibTeX, assigning unique keys in
// order.
func ToBibTeXList(pubs []reference.Publication) string {
	keys := NewKeyer()
	var entries []string
	for _, p := range pubs {
		entries = append(entries, ToBibTeX(p, keys.Key(p)))
	}
	return strings.Join(entries, "\n")
}

// Keyer hands out citation keys of the form doe2021deep, adding a letter
// suffix when a key repeats: doe2021deepa, doe2021deepb.
type Keyer struct {
	used map[string]int
}

// NewKeyer returns a Keyer with no keys handed out.
func NewKeyer() *Keyer {
	return &Keyer{used: make(map[string]int)}
}

// Key returns the next unique key for p.
func (k *Keyer) Key(p reference.Publication) string {
	base := baseKey(p)
	n := k.used[base]
	k.used[base]++
	if n == 0 {
		return base
	}
	// a, b, ... z, then numbers
	if n <= 26 {
		return base + string(rune('a'+n-1))
	}
	return base + strconv.Itoa(n)
}

func baseKey(p reference.Publication) string {
	last := "anon"
	if len(p.AuthorList) > 0 {
		if l := keyPart(name.LastName(p.AuthorList[0])); l != "" {
			last = l
		}
	}
	year := ""
	if p.Year > 0 {
		year = strconv.Itoa(p.Year)
	}
	word := ""
	for _, w := range strings.Fields(p.Title) {
		if w = keyPart(w); len(w) > 3 {
			word = w
			break
		}
	}
	return last + year + word
}

// keyPart keeps the ASCII letters of s, lowercased.
func keyPart(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name.StripDiacritics(s)) {
		if r < unicode.MaxASCII && unicode.IsLetter(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// determineEntryType returns the BibTeX entry type for a venue string.
func determineEntryType(venue string) string {
	venue = strings.ToLower(venue)

	if venue == "" {
		return "misc"
	}

	if strings.Contains(venue, "proceedings") ||
		strings.Contains(venue, "conference") ||
		strings.Contains(venue, "workshop") ||
		strings.Contains(venue, "symposium") {
		return "inproceedings"
	}

	if strings.Contains(venue, "thesis") || strings.Contains(venue, "dissertation") {
		return "phdthesis"
	}

	if strings.Contains(venue, "patent") {
		return "misc"
	}

	// Preprints and journals
	return "article"
}

// formatAuthors formats source author names in BibTeX style: "J Doe, A Smith"
// becomes "Doe, J and Smith, A". A truncated list ("...") ends in "others".
func formatAuthors(authors []string) string {
	var formatted []string
	truncated := false
	for _, a := range authors {
		a = strings.TrimSpace(a)
		if a == "..." || a == "…" {
			truncated = true
			continue
		}
		if a == "" {
			continue
		}
		formatted = append(formatted, invertName(a))
	}
	if truncated && len(formatted) > 0 {
		formatted = append(formatted, "others")
	}
	return escapeLatex(strings.Join(formatted, " and "))
}

// invertName turns "J Doe" into "Doe, J". Names already containing a comma
// and single tokens are kept.
func invertName(s string) string {
	if strings.Contains(s, ",") {
		return s
	}
	tokens := strings.Fields(s)
	if len(tokens) < 2 {
		return s
	}
	return tokens[len(tokens)-1] + ", " + strings.Join(tokens[:len(tokens)-1], " ")
}

// escapeLatex escapes special LaTeX characters.
func escapeLatex(s string) string {
	// Order matters: & must be first (before other escapes that might produce &)
	replacer := strings.NewReplacer(
		"&", `\&`,
		"%", `\%`,
		"$", `\$`,
		"#", `\#`,
		"_", `\_`,
		"{", `\{`,
		"}", `\}`,
		"~", `\textasciitilde{}`,
		"^", `\textasciicircum{}`,
	)
	return replacer.Replace(s)
}
