package author

import (
	"strings"

	"github.com/scholarlyreport/scholarly/internal/name"
)

// Query represents a parsed author search query.
type Query struct {
	First string // First name (may be empty for last-name-only queries)
	Last  string // Last name (required)
}

// ParseQuery parses an author search string into a structured Query.
//
// Supported formats:
//   - "Doe"        → last="Doe" (single word = last name only)
//   - "Jane Doe"   → first="Jane", last="Doe" (space-separated = First Last)
//   - "Doe, Jane"  → first="Jane", last="Doe" (comma = Last, First)
//
// Names are trimmed but case is preserved (matching is case-insensitive).
func ParseQuery(input string) Query {
	input = strings.TrimSpace(input)
	if input == "" {
		return Query{}
	}

	// Check for comma format: "Last, First"
	if idx := strings.Index(input, ","); idx > 0 {
		last := strings.TrimSpace(input[:idx])
		first := strings.TrimSpace(input[idx+1:])
		return Query{First: first, Last: last}
	}

	parts := strings.Fields(input)
	if len(parts) == 1 {
		return Query{Last: parts[0]}
	}

	// Multiple words: last word is last name, rest is first name
	last := parts[len(parts)-1]
	first := strings.Join(parts[:len(parts)-1], " ")
	return Query{First: first, Last: last}
}

// Matches checks if the query matches a free-text author name.
//
// Matching rules:
//   - Last name: exact match on the comparison key (required)
//   - First name: prefix match on the comparison key (if query has first name)
//
// This lets "Jan Doe" match "Jane A Doe" while "Do" does not match "Doe".
func (q Query) Matches(fullName string) bool {
	if q.Last == "" {
		return false
	}
	tokens := strings.Fields(name.Key(fullName))
	if len(tokens) == 0 {
		return false
	}

	if tokens[len(tokens)-1] != name.Key(q.Last) {
		return false
	}

	if q.First == "" {
		return true
	}

	first := strings.Join(tokens[:len(tokens)-1], " ")
	return strings.HasPrefix(first, name.Key(q.First))
}

// MatchesAny checks if the query matches any name in the list.
func (q Query) MatchesAny(names []string) bool {
	for _, n := range names {
		if q.Matches(n) {
			return true
		}
	}
	return false
}

// AllMatch checks if all queries match at least one name each.
func AllMatch(queries []Query, names []string) bool {
	for _, q := range queries {
		if !q.MatchesAny(names) {
			return false
		}
	}
	return true
}
