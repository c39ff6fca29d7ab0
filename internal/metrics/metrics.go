// Package metrics records run statistics with Prometheus. Metrics live on a
// private registry so they can be written to a node-exporter textfile after
// a batch run or served on /metrics.
package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/scholarlyreport/scholarly/internal/source"
	"github.com/scholarlyreport/scholarly/internal/store"
)

const namespace = "scholarly"

// Record outcomes, used as the "outcome" label.
const (
	OutcomeNew                    = "new"
	OutcomeUpdated                = "updated"
	OutcomeUnchanged              = "unchanged"
	OutcomeExcludedJournal        = "excluded_journal"
	OutcomeExcludedAuthorMismatch = "excluded_author_mismatch"
	OutcomeMalformed              = "malformed"
	OutcomeWeakMatch              = "weak_match"
)

// Fetch failure reasons, used as the "reason" label.
const (
	ReasonBlocked  = "blocked"
	ReasonNotFound = "not_found"
	ReasonOther    = "error"
)

// Metrics holds the collectors of one process.
type Metrics struct {
	registry *prometheus.Registry

	records       *prometheus.CounterVec
	fetchFailures *prometheus.CounterVec
	detailFailure prometheus.Counter
	publications  prometheus.Gauge
	authors       prometheus.Gauge
	edges         prometheus.Gauge
	lastRun       prometheus.Gauge
	runDuration   prometheus.Gauge
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Publication records processed, by outcome.",
		}, []string{"outcome"}),
		fetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Author profiles that could not be fetched, by reason.",
		}, []string{"reason"}),
		detailFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detail_failures_total",
			Help:      "Publication detail pages that could not be fetched.",
		}),
		publications: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "publications",
			Help:      "Publications in the merged store.",
		}),
		authors: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "authors",
			Help:      "Authors in the registry.",
		}),
		edges: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "coauthorship_edges",
			Help:      "Links in the author coauthorship network.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last completed run.",
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Duration of the last completed run.",
		}),
	}
	m.registry.MustRegister(
		m.records,
		m.fetchFailures,
		m.detailFailure,
		m.publications,
		m.authors,
		m.edges,
		m.lastRun,
		m.runDuration,
	)
	for _, o := range []string{
		OutcomeNew, OutcomeUpdated, OutcomeUnchanged, OutcomeExcludedJournal,
		OutcomeExcludedAuthorMismatch, OutcomeMalformed, OutcomeWeakMatch,
	} {
		m.records.WithLabelValues(o)
	}
	return m
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveSummary adds an ingest summary to the record counters.
func (m *Metrics) ObserveSummary(s store.Summary) {
	m.add(OutcomeNew, s.New)
	m.add(OutcomeUpdated, s.Updated)
	m.add(OutcomeUnchanged, s.Unchanged)
	m.add(OutcomeExcludedJournal, s.ExcludedJournal)
	m.add(OutcomeExcludedAuthorMismatch, s.ExcludedAuthorMismatch)
	m.add(OutcomeMalformed, s.Malformed)
	m.add(OutcomeWeakMatch, s.WeakMatches)
}

func (m *Metrics) add(outcome string, n int) {
	if n > 0 {
		m.records.WithLabelValues(outcome).Add(float64(n))
	}
}

// ObserveScrape records detail page failures of one scrape.
func (m *Metrics) ObserveScrape(st source.ScrapeStats) {
	if st.DetailFailures > 0 {
		m.detailFailure.Add(float64(st.DetailFailures))
	}
}

// ObserveFetchError counts a failed profile fetch.
func (m *Metrics) ObserveFetchError(err error) {
	switch {
	case err == nil:
		return
	case source.IsBlocked(err):
		m.fetchFailures.WithLabelValues(ReasonBlocked).Inc()
	case errors.Is(err, source.ErrNotFound):
		m.fetchFailures.WithLabelValues(ReasonNotFound).Inc()
	default:
		m.fetchFailures.WithLabelValues(ReasonOther).Inc()
	}
}

// ObserveStore sets the size gauges.
func (m *Metrics) ObserveStore(authors, publications, edges int) {
	m.authors.Set(float64(authors))
	m.publications.Set(float64(publications))
	m.edges.Set(float64(edges))
}

// ObserveRun marks a run started at start as completed at end.
func (m *Metrics) ObserveRun(start, end time.Time) {
	m.lastRun.Set(float64(end.Unix()))
	m.runDuration.Set(end.Sub(start).Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// WriteTextfile writes the registry for the node-exporter textfile
// collector. The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
