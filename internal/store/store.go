// Package store owns the canonical, deduplicated publication set built from
// per-author record batches.
package store

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/scholarlyreport/scholarly/internal/author"
	"github.com/scholarlyreport/scholarly/internal/fingerprint"
	"github.com/scholarlyreport/scholarly/internal/journal"
	"github.com/scholarlyreport/scholarly/internal/logging"
	"github.com/scholarlyreport/scholarly/internal/reconcile"
	"github.com/scholarlyreport/scholarly/internal/reference"
)

// ErrUnknownAuthor is returned when a batch is ingested for an id that is
// not in the registry.
var ErrUnknownAuthor = errors.New("author not in registry")

// authorSplit separates names in an author string.
var authorSplit = regexp.MustCompile(`,\s*|\s+and\s+`)

// Reconciler tracks persisted state for the author being ingested.
type Reconciler interface {
	Exists(title, journal string) bool
	UpdateCitationCount(title, journal string, newCount int) bool
}

// Store holds publications keyed by fingerprint and the membership of
// registry authors in them. It is not safe for concurrent use; batches are
// ingested one author at a time.
type Store struct {
	registry *author.Registry
	journals *journal.Normalizer
	excluded []string // lowercase substrings
	logger   *zap.Logger

	pubs       map[string]*reference.Publication
	authorPubs map[string][]string // author id -> fingerprints, first-seen order
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for the operator review trail.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		s.logger = logging.OrNop(l)
	}
}

// WithExcludedJournals sets the journal exclusion substrings. Matching is
// case-insensitive against normalized journal names.
func WithExcludedJournals(patterns []string) Option {
	return func(s *Store) {
		s.excluded = s.excluded[:0]
		for _, p := range patterns {
			p = strings.ToLower(strings.TrimSpace(p))
			if p != "" {
				s.excluded = append(s.excluded, p)
			}
		}
	}
}

// WithJournalNormalizer shares a normalizer (and its cache) with the store.
func WithJournalNormalizer(n *journal.Normalizer) Option {
	return func(s *Store) {
		if n != nil {
			s.journals = n
		}
	}
}

// New creates an empty store backed by the registry.
func New(registry *author.Registry, opts ...Option) *Store {
	s := &Store{
		registry:   registry,
		journals:   journal.NewNormalizer(),
		logger:     logging.Nop(),
		pubs:       make(map[string]*reference.Publication),
		authorPubs: make(map[string][]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the registry the store matches against.
func (s *Store) Registry() *author.Registry {
	return s.registry
}

// Authors returns the registry authors in id order.
func (s *Store) Authors() []reference.Author {
	return s.registry.Authors()
}

// IngestOption configures a single Ingest call.
type IngestOption func(*ingestConfig)

type ingestConfig struct {
	reconciler Reconciler
}

// WithReconciler classifies records against persisted state: a record
// already persisted counts as updated or unchanged, never as new.
func WithReconciler(r Reconciler) IngestOption {
	return func(c *ingestConfig) {
		c.reconciler = r
	}
}

// Ingest adds one author's batch. Records are processed in order; per-record
// problems are counted in the summary and never abort the batch.
func (s *Store) Ingest(authorID string, records []reference.RawRecord, opts ...IngestOption) (Summary, error) {
	var cfg ingestConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	var sum Summary
	if !s.registry.Has(authorID) {
		return sum, fmt.Errorf("%w: %s", ErrUnknownAuthor, authorID)
	}

	for _, rec := range records {
		s.ingestOne(authorID, rec, cfg.reconciler, &sum)
	}

	s.logger.Info("ingested batch",
		zap.String("scholar_id", authorID),
		zap.Int("records", len(records)),
		zap.Int("new", sum.New),
		zap.Int("updated", sum.Updated),
		zap.Int("unchanged", sum.Unchanged),
		zap.Int("excluded_journal", sum.ExcludedJournal),
		zap.Int("excluded_author_mismatch", sum.ExcludedAuthorMismatch),
		zap.Int("malformed", sum.Malformed),
	)
	return sum, nil
}

func (s *Store) ingestOne(authorID string, rec reference.RawRecord, rc Reconciler, sum *Summary) {
	title := strings.TrimSpace(rec.Title)
	if title == "" {
		sum.Malformed++
		s.logger.Warn("skipping record without title",
			zap.String("scholar_id", authorID),
			zap.String("venue", rec.Venue))
		return
	}

	journalRaw := reconcile.JournalOf(rec)
	journalName := s.journals.Normalize(journalRaw)
	if s.isExcluded(journalName) {
		sum.ExcludedJournal++
		return
	}

	authors := ParseAuthors(rec.Authors)
	switch s.verifyAuthorship(authorID, authors) {
	case matchNone:
		sum.ExcludedAuthorMismatch++
		s.logger.Warn("author not found in author list, record excluded",
			zap.String("scholar_id", authorID),
			zap.String("title", title),
			zap.Strings("authors", authors))
		return
	case matchWeak:
		sum.WeakMatches++
		s.logger.Warn("weak last-name match, review manually",
			zap.String("scholar_id", authorID),
			zap.String("title", title),
			zap.Strings("authors", authors))
	}

	year := fingerprint.ParseYear(rec.Year)
	citations := reconcile.ParseCount(rec.Citations)
	fp := fingerprint.Fingerprint(title, year)

	pub, exists := s.pubs[fp]
	if !exists {
		_, volume, issue := journal.ParseVenue(rec.Venue)
		if rec.Volume != "" || rec.Issue != "" {
			volume, issue = rec.Volume, rec.Issue
		}
		s.pubs[fp] = &reference.Publication{
			Fingerprint: fp,
			Title:       title,
			RawAuthors:  rec.Authors,
			AuthorList:  authors,
			Venue:       rec.Venue,
			Journal:     journalName,
			Volume:      volume,
			Issue:       issue,
			Year:        year,
			Citations:   citations,
			URL:         rec.URL,
			Members:     reference.NewMemberSet(authorID),
		}
		s.authorPubs[authorID] = append(s.authorPubs[authorID], fp)

		switch {
		case rc == nil || !rc.Exists(title, journalRaw):
			sum.New++
		case rc.UpdateCitationCount(title, journalRaw, citations):
			sum.Updated++
		default:
			sum.Unchanged++
		}
		return
	}

	if pub.Members.Add(authorID) {
		s.authorPubs[authorID] = append(s.authorPubs[authorID], fp)
	}
	if journal.IsAllUpper(pub.Journal) && !journal.IsAllUpper(journalName) {
		pub.Journal = journalName
	}

	changed := false
	if citations > pub.Citations {
		pub.Citations = citations
		changed = true
	}
	if rc != nil && rc.UpdateCitationCount(title, journalRaw, citations) {
		changed = true
	}
	if changed {
		sum.Updated++
	} else {
		sum.Unchanged++
	}
}

type matchStrength int

const (
	matchNone matchStrength = iota
	matchWeak
	matchStrict
)

// verifyAuthorship checks that the author appears in the list, falling back
// to the weak last-name match.
func (s *Store) verifyAuthorship(authorID string, authors []string) matchStrength {
	if _, ok := s.registry.FindIndex(authorID, authors); ok {
		return matchStrict
	}
	for _, n := range authors {
		if s.registry.MatchLastName(n, authorID) {
			return matchWeak
		}
	}
	return matchNone
}

func (s *Store) isExcluded(journalName string) bool {
	lower := strings.ToLower(journalName)
	for _, p := range s.excluded {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// ParseAuthors splits an author string on commas or the word "and",
// discarding empty and single-character tokens.
func ParseAuthors(s string) []string {
	var names []string
	for _, part := range authorSplit.Split(s, -1) {
		part = strings.TrimSpace(part)
		if len([]rune(part)) > 1 {
			names = append(names, part)
		}
	}
	return names
}

// Len returns the number of publications.
func (s *Store) Len() int {
	return len(s.pubs)
}

// Get returns a copy of the publication with the given fingerprint.
func (s *Store) Get(fp string) (reference.Publication, bool) {
	p, ok := s.pubs[fp]
	if !ok {
		return reference.Publication{}, false
	}
	return clone(p), true
}

// Publications returns copies of all publications, newest first, then by
// citations (highest first), then by fingerprint.
func (s *Store) Publications() []reference.Publication {
	out := make([]reference.Publication, 0, len(s.pubs))
	for _, p := range s.pubs {
		out = append(out, clone(p))
	}
	SortPublications(out)
	return out
}

// AuthorFingerprints returns the fingerprints of the author's publications in
// the order they were first attributed.
func (s *Store) AuthorFingerprints(authorID string) []string {
	return append([]string(nil), s.authorPubs[authorID]...)
}

// AuthorPublications returns the author's publications, sorted like
// Publications.
func (s *Store) AuthorPublications(authorID string) []reference.Publication {
	fps := s.authorPubs[authorID]
	out := make([]reference.Publication, 0, len(fps))
	for _, fp := range fps {
		out = append(out, clone(s.pubs[fp]))
	}
	SortPublications(out)
	return out
}

// SortPublications orders by year and citations descending, then by
// fingerprint.
func SortPublications(pubs []reference.Publication) {
	sort.Slice(pubs, func(i, j int) bool {
		a, b := pubs[i], pubs[j]
		if a.Year != b.Year {
			return a.Year > b.Year
		}
		if a.Citations != b.Citations {
			return a.Citations > b.Citations
		}
		return a.Fingerprint < b.Fingerprint
	})
}

func clone(p *reference.Publication) reference.Publication {
	c := *p
	c.AuthorList = append([]string(nil), p.AuthorList...)
	c.Members = reference.NewMemberSet(p.Members.IDs()...)
	return c
}
