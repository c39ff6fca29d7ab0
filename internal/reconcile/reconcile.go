// Package reconcile matches freshly scraped publication records against a
// previously persisted set so that enriched historical data is kept and only
// citation counts are refreshed.
package reconcile

import (
	"strconv"
	"strings"

	"github.com/scholarlyreport/scholarly/internal/fingerprint"
	"github.com/scholarlyreport/scholarly/internal/journal"
	"github.com/scholarlyreport/scholarly/internal/reference"
)

// Decision is the outcome of reconciling one fresh record.
type Decision int

const (
	// New means no persisted record exists; the fresh record should be
	// completed (detail fetch) and added.
	New Decision = iota
	// KeepPrior means a persisted record exists and nothing changed.
	KeepPrior
	// UpdateCitations means a persisted record exists and only its citation
	// count was refreshed.
	UpdateCitations
)

func (d Decision) String() string {
	switch d {
	case New:
		return "new"
	case KeepPrior:
		return "unchanged"
	case UpdateCitations:
		return "updated"
	default:
		return "unknown"
	}
}

// Stats counts reconciliation outcomes.
type Stats struct {
	Prior     int `json:"prior"`
	New       int `json:"new"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
}

// Reconciler holds the persisted records of one author. It is not safe for
// concurrent use; batches are reconciled one author at a time.
type Reconciler struct {
	records       []reference.RawRecord
	byFingerprint map[string]int
	byTitle       map[string]int // title+journal compound key
	stats         Stats
}

// NewReconciler indexes the persisted records. Every record is kept; when
// several share a key, lookups resolve to the first of them.
func NewReconciler(prior []reference.RawRecord) *Reconciler {
	r := &Reconciler{
		records:       make([]reference.RawRecord, 0, len(prior)),
		byFingerprint: make(map[string]int, len(prior)),
		byTitle:       make(map[string]int, len(prior)),
	}
	for _, rec := range prior {
		r.add(rec)
	}
	r.stats.Prior = len(r.records)
	return r
}

func (r *Reconciler) add(rec reference.RawRecord) {
	r.records = append(r.records, rec)
	i := len(r.records) - 1
	fp := fingerprint.FromRaw(rec.Title, rec.Year)
	if _, ok := r.byFingerprint[fp]; !ok {
		r.byFingerprint[fp] = i
	}
	tk := titleKey(rec.Title, JournalOf(rec))
	if _, ok := r.byTitle[tk]; !ok {
		r.byTitle[tk] = i
	}
}

// JournalOf returns the journal name of a record, parsed from the venue when
// the journal column is empty.
func JournalOf(rec reference.RawRecord) string {
	if strings.TrimSpace(rec.Journal) != "" {
		return rec.Journal
	}
	return journal.CleanName(rec.Venue)
}

func titleKey(title, journalName string) string {
	norm := func(s string) string {
		return strings.ToLower(strings.Join(strings.Fields(s), " "))
	}
	return norm(title) + "|" + norm(journalName)
}

// Exists reports whether a persisted record has this title and journal.
func (r *Reconciler) Exists(title, journalName string) bool {
	_, ok := r.byTitle[titleKey(title, journalName)]
	return ok
}

// Get returns the persisted record with this title and journal.
func (r *Reconciler) Get(title, journalName string) (reference.RawRecord, bool) {
	i, ok := r.byTitle[titleKey(title, journalName)]
	if !ok {
		return reference.RawRecord{}, false
	}
	return r.records[i], true
}

// UpdateCitationCount overwrites the stored citation count and reports
// whether it differed. Unknown records are left alone and report false.
func (r *Reconciler) UpdateCitationCount(title, journalName string, newCount int) bool {
	i, ok := r.byTitle[titleKey(title, journalName)]
	if !ok {
		return false
	}
	return r.setCitations(i, newCount)
}

func (r *Reconciler) setCitations(i, newCount int) bool {
	old := ParseCount(r.records[i].Citations)
	r.records[i].Citations = strconv.Itoa(newCount)
	return old != newCount
}

// lookup finds the persisted record for a fresh one: by the title+journal
// compound key first, then by fingerprint. A preprint and its journal
// version share a fingerprint but not a compound key.
func (r *Reconciler) lookup(fresh reference.RawRecord) (int, bool) {
	if i, ok := r.byTitle[titleKey(fresh.Title, JournalOf(fresh))]; ok {
		return i, true
	}
	i, ok := r.byFingerprint[fingerprint.FromRaw(fresh.Title, fresh.Year)]
	return i, ok
}

// Reconcile decides what to do with a freshly scraped record. When a
// persisted record exists, every field except the citation count is kept
// and the returned record is the persisted one with refreshed citations.
// Otherwise the fresh record is returned unchanged with decision New; the
// caller completes it and passes it to Add.
func (r *Reconciler) Reconcile(fresh reference.RawRecord) (Decision, reference.RawRecord) {
	i, ok := r.lookup(fresh)
	if !ok {
		return New, fresh
	}
	if r.setCitations(i, ParseCount(fresh.Citations)) {
		r.stats.Updated++
		return UpdateCitations, r.records[i]
	}
	r.stats.Unchanged++
	return KeepPrior, r.records[i]
}

// Add appends a record that had no persisted counterpart. A record that
// already resolves to a held one is ignored.
func (r *Reconciler) Add(rec reference.RawRecord) {
	if _, ok := r.lookup(rec); ok {
		return
	}
	r.add(rec)
	r.stats.New++
}

// Records returns persisted records in their original order followed by
// records added during this run.
func (r *Reconciler) Records() []reference.RawRecord {
	out := make([]reference.RawRecord, len(r.records))
	copy(out, r.records)
	return out
}

// Len returns the number of records held.
func (r *Reconciler) Len() int {
	return len(r.records)
}

// Stats returns the reconciliation counts so far.
func (r *Reconciler) Stats() Stats {
	return r.stats
}

// ParseCount parses a citation count; anything that is not a non-negative
// integer (after removing '*' markers) counts as 0.
func ParseCount(s string) int {
	s = strings.TrimSpace(strings.ReplaceAll(s, "*", ""))
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
