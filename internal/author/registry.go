// Package author provides the registry of tracked researchers and the
// identity matching used to attribute free-text author names to them.
package author

import (
	"errors"
	"fmt"
	"sort"

	"github.com/scholarlyreport/scholarly/internal/name"
	"github.com/scholarlyreport/scholarly/internal/reference"
)

// ErrDuplicateAuthor is returned when an id is registered twice.
var ErrDuplicateAuthor = errors.New("author already registered")

// Registry holds the known researchers keyed by id.
type Registry struct {
	authors map[string]reference.Author
	keys    map[string][]nameForms // precomputed comparison forms per author
}

// nameForms are the comparison forms of one registered name.
type nameForms struct {
	full        string // name.Key of the name
	abbreviated string // "<initial> <rest>" of full
}

// NewRegistry creates a registry from the given authors.
func NewRegistry(authors ...reference.Author) (*Registry, error) {
	r := &Registry{
		authors: make(map[string]reference.Author, len(authors)),
		keys:    make(map[string][]nameForms, len(authors)),
	}
	for _, a := range authors {
		if err := r.Add(a); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Add registers an author.
func (r *Registry) Add(a reference.Author) error {
	if a.ID == "" {
		return fmt.Errorf("registering author %q: empty id", a.PrimaryName)
	}
	if _, ok := r.authors[a.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateAuthor, a.ID)
	}
	r.authors[a.ID] = a
	r.index(a)
	return nil
}

// index recomputes the comparison forms for a: primary name first, then
// every alias in order.
func (r *Registry) index(a reference.Author) {
	var forms []nameForms
	for _, n := range append([]string{a.PrimaryName}, a.Aliases...) {
		key := name.Key(n)
		if key == "" {
			continue
		}
		forms = append(forms, nameForms{full: key, abbreviated: name.Abbreviate(key)})
	}
	r.keys[a.ID] = forms
}

// Get returns the author with the given id.
func (r *Registry) Get(id string) (reference.Author, bool) {
	a, ok := r.authors[id]
	return a, ok
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.authors[id]
	return ok
}

// Len returns the number of registered authors.
func (r *Registry) Len() int {
	return len(r.authors)
}

// IDs returns all registered ids in lexical order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.authors))
	for id := range r.authors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Authors returns all registered authors ordered by id.
func (r *Registry) Authors() []reference.Author {
	out := make([]reference.Author, 0, len(r.authors))
	for _, id := range r.IDs() {
		out = append(out, r.authors[id])
	}
	return out
}

// IsMatch reports whether candidate names the author with the given id.
//
// Matching order, first hit wins:
//  1. exact match on the comparison key of the primary name
//  2. if the candidate starts with an initial, match against the
//     abbreviated primary name ("j doe" for "Jane Doe")
//  3. steps 1-2 against every alias
//
// Empty input or an unknown id never matches.
func (r *Registry) IsMatch(candidate, authorID string) bool {
	forms, ok := r.keys[authorID]
	if !ok {
		return false
	}
	key := name.Key(candidate)
	if key == "" {
		return false
	}
	initial := name.IsInitial(name.FirstToken(key))

	for _, f := range forms {
		if key == f.full {
			return true
		}
		if initial && key == f.abbreviated {
			return true
		}
	}
	return false
}

// MatchLastName is the weak fallback: candidate and primary name share the
// same last name. It is not part of IsMatch and callers must treat a hit as
// unconfirmed.
func (r *Registry) MatchLastName(candidate, authorID string) bool {
	a, ok := r.authors[authorID]
	if !ok {
		return false
	}
	last := name.LastName(candidate)
	return last != "" && last == name.LastName(a.PrimaryName)
}

// FindIndex returns the position of the first name in names that strictly
// matches the author.
func (r *Registry) FindIndex(authorID string, names []string) (int, bool) {
	for i, n := range names {
		if r.IsMatch(n, authorID) {
			return i, true
		}
	}
	return -1, false
}

// Groups derives the research groups from registry metadata, sorted by name.
// Member ids within a group are sorted.
func (r *Registry) Groups() []reference.ResearchGroup {
	byName := make(map[string][]string)
	for _, id := range r.IDs() {
		if g, ok := r.authors[id].Group(); ok {
			byName[g] = append(byName[g], id)
		}
	}

	names := make([]string, 0, len(byName))
	for g := range byName {
		names = append(names, g)
	}
	sort.Strings(names)

	groups := make([]reference.ResearchGroup, 0, len(names))
	for _, g := range names {
		groups = append(groups, reference.ResearchGroup{Name: g, MemberIDs: byName[g]})
	}
	return groups
}

// GroupOf returns the research group of the author, if any.
func (r *Registry) GroupOf(authorID string) (string, bool) {
	a, ok := r.authors[authorID]
	if !ok {
		return "", false
	}
	return a.Group()
}
