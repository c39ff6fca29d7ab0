package store

// Summary counts the outcome of ingesting one batch.
type Summary struct {
	New                    int `json:"new"`
	Updated                int `json:"updated"`
	Unchanged              int `json:"unchanged"`
	ExcludedJournal        int `json:"excluded_journal"`
	ExcludedAuthorMismatch int `json:"excluded_author_mismatch"`
	Malformed              int `json:"malformed"`
	WeakMatches            int `json:"weak_matches"` // included in New/Updated/Unchanged
}

// Accepted returns the number of records that made it into the store.
func (s Summary) Accepted() int {
	return s.New + s.Updated + s.Unchanged
}

// Total returns the number of records seen.
func (s Summary) Total() int {
	return s.Accepted() + s.ExcludedJournal + s.ExcludedAuthorMismatch + s.Malformed
}

// Add accumulates o into s.
func (s *Summary) Add(o Summary) {
	s.New += o.New
	s.Updated += o.Updated
	s.Unchanged += o.Unchanged
	s.ExcludedJournal += o.ExcludedJournal
	s.ExcludedAuthorMismatch += o.ExcludedAuthorMismatch
	s.Malformed += o.Malformed
	s.WeakMatches += o.WeakMatches
}
