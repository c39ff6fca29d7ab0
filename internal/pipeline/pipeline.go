// Package pipeline runs the fetch and report workflows of a project: it
// reads the persisted author files, merges them into a store, refreshes
// authors from the data source and renders the report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/scholarlyreport/scholarly/internal/author"
	"github.com/scholarlyreport/scholarly/internal/config"
	"github.com/scholarlyreport/scholarly/internal/fingerprint"
	"github.com/scholarlyreport/scholarly/internal/logging"
	"github.com/scholarlyreport/scholarly/internal/metrics"
	"github.com/scholarlyreport/scholarly/internal/reconcile"
	"github.com/scholarlyreport/scholarly/internal/reference"
	"github.com/scholarlyreport/scholarly/internal/report"
	"github.com/scholarlyreport/scholarly/internal/source"
	"github.com/scholarlyreport/scholarly/internal/stats"
	"github.com/scholarlyreport/scholarly/internal/storage"
	"github.com/scholarlyreport/scholarly/internal/store"
)

// ErrNoAuthors is returned when the data directory holds no author files.
var ErrNoAuthors = errors.New("no author files found")

// Runner executes workflows for one project configuration.
type Runner struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// WithMetrics records run statistics into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithClock replaces time.Now (for testing).
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// New returns a Runner for cfg.
func New(cfg *config.Config, opts ...Option) *Runner {
	r := &Runner{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.OrNop(r.logger)
	if r.metrics == nil {
		r.metrics = metrics.New()
	}
	return r
}

// Metrics returns the collectors the runner records into.
func (r *Runner) Metrics() *metrics.Metrics {
	return r.metrics
}

// Period is the configured year range.
func (r *Runner) Period() stats.Period {
	return stats.Period{MinYear: r.cfg.MinYear, MaxYear: r.cfg.MaxYear}
}

// AuthorSummary is the ingest outcome of one author.
type AuthorSummary struct {
	ID          string        `json:"scholar_id"`
	Name        string        `json:"name"`
	Summary     store.Summary `json:"summary"`
	OutOfPeriod int           `json:"out_of_period"`
}

// Failure is an author that could not be processed.
type Failure struct {
	ID    string `json:"scholar_id"`
	Error string `json:"error"`
}

// LoadResult is the merged store plus what happened while building it.
type LoadResult struct {
	Store             *store.Store    `json:"-"`
	Authors           []AuthorSummary `json:"authors"`
	Failures          []Failure       `json:"failures,omitempty"`
	Total             store.Summary   `json:"total"`
	UnknownRegistered []string        `json:"unknown_registry_ids,omitempty"`
}

// Load reads every author in the data directory into a store. An author
// whose files cannot be read is reported as a failure and the others are
// kept. Records outside the configured period are left out before
// ingestion; row-level parse errors count as malformed.
func (r *Runner) Load() (*LoadResult, error) {
	files, err := storage.DiscoverDataDir(r.cfg.DataDir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoAuthors, r.cfg.DataDir)
	}

	res := &LoadResult{}
	reg, err := author.NewRegistry()
	if err != nil {
		return nil, err
	}
	var registered []storage.AuthorFiles
	for _, af := range files {
		a, err := storage.ReadAuthorInfo(af.InfoPath)
		if err == nil {
			err = reg.Add(a)
		}
		if err != nil {
			r.fail(res, af.ID, err)
			continue
		}
		registered = append(registered, af)
	}

	res.UnknownRegistered, err = r.enrich(reg)
	if err != nil {
		return nil, err
	}
	for _, id := range res.UnknownRegistered {
		r.logger.Warn("registry entry has no author files", zap.String("scholar_id", id))
	}

	excluded, err := r.excludedJournals()
	if err != nil {
		return nil, err
	}

	s := store.New(reg, store.WithLogger(r.logger), store.WithExcludedJournals(excluded))
	period := r.Period()

	for _, af := range registered {
		a, _ := reg.Get(af.ID)
		var recs []reference.RawRecord
		var rowErrs []error
		if af.PublicationsPath != "" {
			recs, rowErrs, err = storage.ReadPublications(af.PublicationsPath)
			if err != nil {
				r.fail(res, af.ID, err)
				continue
			}
		}
		for _, e := range rowErrs {
			r.logger.Warn("malformed publication row", zap.String("scholar_id", af.ID), zap.Error(e))
		}

		inPeriod, outside := filterPeriod(recs, period)
		sum, err := s.Ingest(af.ID, inPeriod)
		if err != nil {
			r.fail(res, af.ID, err)
			continue
		}
		sum.Malformed += len(rowErrs)

		r.metrics.ObserveSummary(sum)
		res.Total.Add(sum)
		res.Authors = append(res.Authors, AuthorSummary{
			ID:          af.ID,
			Name:        a.Name(),
			Summary:     sum,
			OutOfPeriod: outside,
		})
	}

	res.Store = s
	return res, nil
}

// enrich applies the registry file, if configured, and returns the entries
// that name no known author.
func (r *Runner) enrich(reg *author.Registry) ([]string, error) {
	if r.cfg.RegistryFile == "" {
		return nil, nil
	}
	entries, err := author.LoadEnrichment(r.cfg.RegistryFile)
	if err != nil {
		return nil, err
	}
	return reg.ApplyEnrichment(entries), nil
}

func (r *Runner) excludedJournals() ([]string, error) {
	if r.cfg.ExcludeJournalsFile == "" {
		return nil, nil
	}
	return storage.ReadExclusionList(r.cfg.ExcludeJournalsFile)
}

func (r *Runner) fail(res *LoadResult, id string, err error) {
	r.logger.Error("author skipped", zap.String("scholar_id", id), zap.Error(err))
	res.Failures = append(res.Failures, Failure{ID: id, Error: err.Error()})
}

// filterPeriod splits records by publication year. Unparseable years are
// year 0 and only pass an open period.
func filterPeriod(recs []reference.RawRecord, period stats.Period) ([]reference.RawRecord, int) {
	if period.IsOpen() {
		return recs, 0
	}
	out := make([]reference.RawRecord, 0, len(recs))
	for _, rec := range recs {
		if period.Contains(fingerprint.ParseYear(rec.Year)) {
			out = append(out, rec)
		}
	}
	return out, len(recs) - len(out)
}

// ReportResult summarizes a report run.
type ReportResult struct {
	Load     *LoadResult    `json:"load"`
	Report   *report.Result `json:"report"`
	Snapshot string         `json:"snapshot"`
}

// Report loads the store, renders the report, writes the JSONL snapshot and
// the metrics textfile when one is configured.
func (r *Runner) Report() (*ReportResult, error) {
	start := r.now()

	loaded, err := r.Load()
	if err != nil {
		return nil, err
	}

	gen := report.New(report.Options{
		OutputDir:     r.cfg.OutputDir,
		InstituteName: r.cfg.InstituteName,
		Period:        r.Period(),
		Colors: report.Colors{
			Primary:    r.cfg.Theme.Primary,
			Accent:     r.cfg.Theme.Accent,
			Link:       r.cfg.Theme.Link,
			Background: r.cfg.Theme.Background,
		},
		Now: r.now,
	}, r.logger)
	rep, err := gen.Generate(loaded.Store)
	if err != nil {
		return nil, fmt.Errorf("generating report: %w", err)
	}

	snapshot := r.cfg.SnapshotPath()
	if err := storage.WriteSnapshot(snapshot, loaded.Store.Publications()); err != nil {
		return nil, fmt.Errorf("writing snapshot: %w", err)
	}

	r.metrics.ObserveStore(loaded.Store.Registry().Len(), loaded.Store.Len(), rep.Edges)
	r.metrics.ObserveRun(start, r.now())
	if err := r.writeMetrics(); err != nil {
		return nil, err
	}

	return &ReportResult{Load: loaded, Report: rep, Snapshot: snapshot}, nil
}

func (r *Runner) writeMetrics() error {
	if r.cfg.MetricsFile == "" {
		return nil
	}
	return r.metrics.WriteTextfile(r.cfg.MetricsFile)
}

// FetchResult is the outcome of refreshing one author. Stats counts the
// profile rows; Summary classifies the kept records against the author's
// persisted file the way a report run would ingest them.
type FetchResult struct {
	Author  reference.Author   `json:"author"`
	Stats   source.ScrapeStats `json:"stats"`
	Summary store.Summary      `json:"summary"`
	Records int                `json:"records"`
}

// Fetch scrapes one author against their persisted records and replaces
// both author files once the scrape succeeded. Persisted records that the
// profile no longer lists are kept. The info file is written first so a
// failed write never leaves new publications beside stale author data.
func (r *Runner) Fetch(ctx context.Context, sc *source.Scraper, scholarID string) (*FetchResult, error) {
	pubPath := storage.PublicationsPath(r.cfg.DataDir, scholarID)
	prior, rowErrs, err := storage.ReadPublications(pubPath)
	if err != nil {
		return nil, err
	}
	if len(rowErrs) > 0 {
		r.logger.Warn("ignoring malformed persisted rows",
			zap.String("scholar_id", scholarID), zap.Int("rows", len(rowErrs)))
	}

	rc := reconcile.NewReconciler(prior)
	res, err := sc.Scrape(ctx, scholarID, r.Period(), rc)
	if err != nil {
		r.metrics.ObserveFetchError(err)
		return nil, err
	}
	r.metrics.ObserveScrape(res.Stats)

	sum, err := r.classify(res.Author, res.Records, reconcile.NewReconciler(prior))
	if err != nil {
		return nil, err
	}
	r.metrics.ObserveSummary(sum)

	records := rc.Records()
	if err := storage.WriteAuthorInfo(storage.InfoPath(r.cfg.DataDir, scholarID), res.Author); err != nil {
		return nil, fmt.Errorf("saving author info: %w", err)
	}
	if err := storage.WritePublications(pubPath, records); err != nil {
		return nil, fmt.Errorf("saving publications: %w", err)
	}

	r.logger.Info("author refreshed",
		zap.String("scholar_id", scholarID),
		zap.Int("new", sum.New),
		zap.Int("updated", sum.Updated),
		zap.Int("unchanged", sum.Unchanged),
		zap.Int("excluded", sum.ExcludedJournal+sum.ExcludedAuthorMismatch),
		zap.Int("records", len(records)))
	return &FetchResult{Author: res.Author, Stats: res.Stats, Summary: sum, Records: len(records)}, nil
}

// classify ingests freshly scraped records into a single-author store that
// checks them against the persisted state in baseline.
func (r *Runner) classify(a reference.Author, recs []reference.RawRecord, baseline *reconcile.Reconciler) (store.Summary, error) {
	reg, err := author.NewRegistry(a)
	if err != nil {
		return store.Summary{}, err
	}
	if _, err := r.enrich(reg); err != nil {
		return store.Summary{}, err
	}
	excluded, err := r.excludedJournals()
	if err != nil {
		return store.Summary{}, err
	}
	s := store.New(reg, store.WithLogger(r.logger), store.WithExcludedJournals(excluded))
	return s.Ingest(a.ID, recs, store.WithReconciler(baseline))
}

// BatchResult is the outcome of refreshing several authors.
type BatchResult struct {
	Fetched  []FetchResult `json:"fetched"`
	Failures []Failure     `json:"failures,omitempty"`
}

// FetchAll refreshes every id in order. A failing author is recorded and
// the batch continues, except when access is blocked or ctx is done: the
// remaining authors are then left alone and the error is returned with the
// partial result.
func (r *Runner) FetchAll(ctx context.Context, sc *source.Scraper, ids []string) (*BatchResult, error) {
	res := &BatchResult{}
	for _, id := range ids {
		fr, err := r.Fetch(ctx, sc, id)
		if err != nil {
			res.Failures = append(res.Failures, Failure{ID: id, Error: err.Error()})
			if source.IsBlocked(err) || ctx.Err() != nil {
				r.logger.Error("stopping batch", zap.String("scholar_id", id), zap.Error(err))
				return res, err
			}
			r.logger.Error("fetch failed", zap.String("scholar_id", id), zap.Error(err))
			continue
		}
		res.Fetched = append(res.Fetched, *fr)
	}
	return res, nil
}

// RegisteredIDs lists the authors with an info file in the data directory.
func (r *Runner) RegisteredIDs() ([]string, error) {
	files, err := storage.DiscoverDataDir(r.cfg.DataDir)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(files))
	for _, f := range files {
		ids = append(ids, f.ID)
	}
	return ids, nil
}
