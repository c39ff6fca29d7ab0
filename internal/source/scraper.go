package source

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/scholarlyreport/scholarly/internal/journal"
	"github.com/scholarlyreport/scholarly/internal/logging"
	"github.com/scholarlyreport/scholarly/internal/reconcile"
	"github.com/scholarlyreport/scholarly/internal/reference"
	"github.com/scholarlyreport/scholarly/internal/stats"
)

// DefaultMaxPages bounds profile pagination.
const DefaultMaxPages = 20

// Result is the outcome of scraping one author.
type Result struct {
	Author  reference.Author
	Records []reference.RawRecord
	Stats   ScrapeStats
}

// ScrapeStats counts what happened to the rows of one profile.
type ScrapeStats struct {
	Rows           int `json:"rows"`
	SkippedYear    int `json:"skipped_year"`
	New            int `json:"new"`
	Updated        int `json:"updated"`
	Unchanged      int `json:"unchanged"`
	DetailFailures int `json:"detail_failures"`
}

// Scraper turns profile pages into raw publication records.
type Scraper struct {
	fetcher  Fetcher
	baseURL  string
	maxPages int
	logger   *zap.Logger
}

// ScraperOption configures a Scraper.
type ScraperOption func(*Scraper)

// WithBaseURL sets the site root (for testing).
func WithBaseURL(url string) ScraperOption {
	return func(s *Scraper) {
		s.baseURL = url
	}
}

// WithMaxPages bounds how many profile pages are requested.
func WithMaxPages(n int) ScraperOption {
	return func(s *Scraper) {
		if n > 0 {
			s.maxPages = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ScraperOption {
	return func(s *Scraper) {
		s.logger = l
	}
}

// NewScraper creates a scraper reading pages through f.
func NewScraper(f Fetcher, opts ...ScraperOption) *Scraper {
	s := &Scraper{
		fetcher:  f,
		baseURL:  BaseURL,
		maxPages: DefaultMaxPages,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrNop(s.logger)
	return s
}

// Scrape fetches the profile of scholarID and returns its records. Rows
// with a non-numeric year or a year outside period are skipped. When rc is
// non-nil, rows it already knows only refresh their citation count and
// keep every other persisted field; unknown rows get a detail page visit
// for the full author list and are added to rc.
//
// Profile page failures abort the scrape. Detail page failures fall back
// to the row's author text.
func (s *Scraper) Scrape(ctx context.Context, scholarID string, period stats.Period, rc *reconcile.Reconciler) (*Result, error) {
	scholarID = strings.TrimSpace(scholarID)
	if scholarID == "" {
		return nil, fmt.Errorf("%w: empty scholar id", ErrInvalidProfile)
	}

	author, rows, err := s.fetchProfile(ctx, scholarID)
	if err != nil {
		return nil, err
	}
	author.ID = scholarID
	author.LifetimePublicationCount = len(rows)

	res := &Result{Author: author}
	res.Stats.Rows = len(rows)

	for i, row := range rows {
		year, err := strconv.Atoi(strings.TrimSpace(row.Year))
		if err != nil {
			s.logger.Debug("skipping row without year",
				zap.String("scholar_id", scholarID), zap.String("title", row.Title), zap.String("year", row.Year))
			res.Stats.SkippedYear++
			continue
		}
		if !period.Contains(year) {
			res.Stats.SkippedYear++
			continue
		}

		fresh := s.record(author, row)

		if rc != nil {
			decision, kept := rc.Reconcile(fresh)
			switch decision {
			case reconcile.UpdateCitations:
				res.Stats.Updated++
				res.Records = append(res.Records, kept)
				continue
			case reconcile.KeepPrior:
				res.Stats.Unchanged++
				res.Records = append(res.Records, kept)
				continue
			}
		}

		if fresh.URL != "" {
			full, err := s.fetchDetail(ctx, fresh.URL)
			switch {
			case err != nil && ctx.Err() != nil:
				return nil, ctx.Err()
			case err != nil:
				res.Stats.DetailFailures++
				s.logger.Warn("detail page failed, keeping row authors",
					zap.String("scholar_id", scholarID), zap.String("title", row.Title), zap.Error(err))
			case full != "":
				fresh.Authors = full
			}
		}

		if rc != nil {
			rc.Add(fresh)
		}
		res.Stats.New++
		res.Records = append(res.Records, fresh)

		if i < 3 || i%10 == 0 {
			s.logger.Debug("processed row",
				zap.Int("index", i+1), zap.Int("total", len(rows)),
				zap.String("title", row.Title), zap.String("journal", fresh.Journal))
		}
	}

	s.logger.Info("scraped profile",
		zap.String("scholar_id", scholarID),
		zap.String("name", author.PrimaryName),
		zap.Int("rows", res.Stats.Rows),
		zap.Int("kept", len(res.Records)),
		zap.Int("new", res.Stats.New),
		zap.Int("updated", res.Stats.Updated))

	return res, nil
}

// fetchProfile reads profile pages until a short page, a page with no new
// rows or the page bound. A browser fetcher returns the expanded list on
// the first page; later pages then add nothing and stop the loop.
func (s *Scraper) fetchProfile(ctx context.Context, scholarID string) (reference.Author, []Row, error) {
	var (
		author reference.Author
		rows   []Row
		seen   = make(map[string]bool)
	)

	for page := 0; page < s.maxPages; page++ {
		url := ProfileURL(s.baseURL, scholarID, page*PageSize)
		html, err := s.fetcher.Fetch(ctx, url)
		if err != nil {
			if page > 0 && errors.Is(err, ErrNotFound) {
				break
			}
			return author, nil, fmt.Errorf("fetching profile %s: %w", scholarID, err)
		}

		a, pageRows, err := ParseProfile(html)
		if err != nil {
			if page > 0 {
				break
			}
			return author, nil, fmt.Errorf("parsing profile %s: %w", scholarID, err)
		}
		if page == 0 {
			author = a
		}

		added := 0
		for _, r := range pageRows {
			key := strings.ToLower(r.Title) + "|" + r.Year + "|" + r.Link
			if seen[key] {
				continue
			}
			seen[key] = true
			rows = append(rows, r)
			added++
		}

		if added == 0 || len(pageRows) < PageSize || !HasMoreRows(html) {
			break
		}
	}

	return author, rows, nil
}

func (s *Scraper) fetchDetail(ctx context.Context, url string) (string, error) {
	html, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return "", err
	}
	return ParseDetail(html), nil
}

func (s *Scraper) record(author reference.Author, row Row) reference.RawRecord {
	name, volume, issue := journal.ParseVenue(row.Venue)
	return reference.RawRecord{
		ScholarID:  author.ID,
		AuthorName: author.PrimaryName,
		Title:      row.Title,
		Authors:    row.Authors,
		Venue:      row.Venue,
		Journal:    name,
		Volume:     volume,
		Issue:      issue,
		Year:       strings.TrimSpace(row.Year),
		Citations:  row.Citations,
		URL:        ResolveURL(s.baseURL, row.Link),
	}
}
