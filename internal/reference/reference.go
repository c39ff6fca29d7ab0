// Package reference defines the core domain types for scholarly records.
package reference

import (
	"encoding/json"
	"sort"
)

// Publication is one canonical publication in the merged store.
type Publication struct {
	// Identity
	Fingerprint string `json:"fingerprint"` // Derived from title and year (dedup key)

	// Metadata
	Title      string   `json:"title"`
	RawAuthors string   `json:"authors"`     // Author string as reported by the source
	AuthorList []string `json:"author_list"` // Parsed names, in authorship order
	Venue      string   `json:"venue"`
	Journal    string   `json:"journal"` // Normalized display name
	Volume     string   `json:"volume,omitempty"`
	Issue      string   `json:"issue,omitempty"`
	Year       int      `json:"year"` // 0 if unknown
	Citations  int      `json:"citations"`
	URL        string   `json:"pub_url,omitempty"`

	// Registry authors confirmed to be among the authors
	Members MemberSet `json:"member_ids"`
}

// RawRecord is a single publication row as produced by a data source or read
// back from persisted state. All fields are unparsed text.
type RawRecord struct {
	ScholarID  string `json:"scholar_id"`
	AuthorName string `json:"author_name"`
	Title      string `json:"title"`
	Authors    string `json:"authors"`
	Venue      string `json:"venue"`
	Journal    string `json:"journal"`
	Volume     string `json:"volume"`
	Issue      string `json:"issue"`
	Year       string `json:"year"`
	Citations  string `json:"citations"`
	URL        string `json:"pub_url"`
}

// MemberSet is an insertion-ordered set of author ids.
type MemberSet struct {
	ids []string
}

// NewMemberSet returns a set containing ids, duplicates removed.
func NewMemberSet(ids ...string) MemberSet {
	var m MemberSet
	for _, id := range ids {
		m.Add(id)
	}
	return m
}

// Add inserts id and reports whether it was absent.
func (m *MemberSet) Add(id string) bool {
	if id == "" || m.Has(id) {
		return false
	}
	m.ids = append(m.ids, id)
	return true
}

// Has reports whether id is in the set.
func (m MemberSet) Has(id string) bool {
	for _, x := range m.ids {
		if x == id {
			return true
		}
	}
	return false
}

// Len returns the number of ids.
func (m MemberSet) Len() int {
	return len(m.ids)
}

// IDs returns the ids in insertion order.
func (m MemberSet) IDs() []string {
	out := make([]string, len(m.ids))
	copy(out, m.ids)
	return out
}

// Sorted returns the ids in lexical order.
func (m MemberSet) Sorted() []string {
	out := m.IDs()
	sort.Strings(out)
	return out
}

// MarshalJSON encodes the set as a JSON array in insertion order.
func (m MemberSet) MarshalJSON() ([]byte, error) {
	if m.ids == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(m.ids)
}

// UnmarshalJSON decodes a JSON array, dropping duplicates.
func (m *MemberSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*m = NewMemberSet(ids...)
	return nil
}

// CoauthorshipEdge connects two authors (or research groups) that share
// publications. Source is always lexically smaller than Target.
type CoauthorshipEdge struct {
	Source       string   `json:"source"`
	Target       string   `json:"target"`
	Weight       int      `json:"weight"`
	Publications []string `json:"publications"`
}

// ResearchGroup is derived from the research_group field of registry authors.
type ResearchGroup struct {
	Name      string   `json:"name"`
	MemberIDs []string `json:"member_ids"`
}
