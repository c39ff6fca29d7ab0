package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scholarlyreport/scholarly/internal/config"
	"github.com/scholarlyreport/scholarly/internal/pipeline"
	"github.com/scholarlyreport/scholarly/internal/source"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [scholar_id...]",
	Short: "Refresh authors from their public profile pages",
	Long: `Fetch scrapes each author's profile and merges the listed publications
into the author's TSV files. Previously stored records are kept; citation
counts are updated.

Use --all to refresh every author that already has files in the data
directory. The run stops at the first blocked request (CAPTCHA, 403, 429).

Examples:
  scholarly fetch AbC123xyz
  scholarly fetch --all --browser`,
	RunE: runFetch,
}

var (
	fetchAll      bool
	fetchBrowser  bool
	fetchMaxPages int
	fetchInterval time.Duration
)

func init() {
	fetchCmd.Flags().BoolVar(&fetchAll, "all", false, "Refresh every author in the data directory")
	fetchCmd.Flags().BoolVar(&fetchBrowser, "browser", false, "Use a headless browser instead of plain HTTP")
	fetchCmd.Flags().IntVar(&fetchMaxPages, "max-pages", source.DefaultMaxPages, "Maximum profile pages per author")
	fetchCmd.Flags().DurationVar(&fetchInterval, "interval", 0, "Minimum delay between requests (default from config)")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	if fetchAll == (len(args) > 0) {
		exitWithError(ExitError, "pass scholar IDs or --all")
	}

	runner, cfg, logger := mustNewRunner()
	defer logger.Sync()

	ids := args
	if fetchAll {
		var err error
		ids, err = runner.RegisteredIDs()
		if err != nil {
			exitWithError(ExitDataError, "listing authors: %v", err)
		}
		if len(ids) == 0 {
			exitWithError(ExitDataError, "no authors in %s", cfg.DataDir)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if fetchBrowser {
		cfg.Browser = true
	}
	if fetchInterval > 0 {
		cfg.RequestInterval = fetchInterval
	}
	fetcher, closeFetcher := newFetcher(ctx, cfg, logger)
	defer closeFetcher()

	sc := source.NewScraper(fetcher, source.WithMaxPages(fetchMaxPages), source.WithLogger(logger))
	res, err := runner.FetchAll(ctx, sc, ids)

	if humanOutput {
		for _, f := range res.Fetched {
			fmt.Printf("%-14s %-28s %4d new %4d updated %4d unchanged %4d excluded (%d records)\n",
				f.Author.ID, truncateString(f.Author.Name(), 28),
				f.Summary.New, f.Summary.Updated, f.Summary.Unchanged,
				f.Summary.ExcludedJournal+f.Summary.ExcludedAuthorMismatch, f.Records)
		}
		printFailures(res.Failures)
	} else {
		outputJSON(res)
	}

	switch {
	case err != nil:
		exitWithError(exitCodeFor(err), "fetch stopped: %v", err)
	case len(res.Failures) > 0 && len(res.Fetched) == 0:
		os.Exit(ExitError)
	}
	return nil
}

// newFetcher builds the configured page fetcher and its cleanup function.
func newFetcher(ctx context.Context, cfg *config.Config, logger *zap.Logger) (source.Fetcher, func()) {
	ua := config.GetUserAgent()
	if cfg.Browser {
		opts := []source.BrowserOption{
			source.WithHeadless(cfg.Headless),
			source.WithBrowserInterval(cfg.RequestInterval),
			source.WithBrowserLogger(logger),
		}
		if ua != "" {
			opts = append(opts, source.WithBrowserUserAgent(ua))
		}
		bf := source.NewBrowserFetcher(ctx, opts...)
		return bf, bf.Close
	}

	opts := []source.HTTPOption{source.WithInterval(cfg.RequestInterval)}
	if ua != "" {
		opts = append(opts, source.WithUserAgent(ua))
	}
	return source.NewHTTPFetcher(opts...), func() {}
}

// fetchRegistered refreshes every stored author with a fresh fetcher.
func fetchRegistered(ctx context.Context, runner *pipeline.Runner, cfg *config.Config, logger *zap.Logger) (*pipeline.BatchResult, error) {
	ids, err := runner.RegisteredIDs()
	if err != nil {
		return nil, err
	}
	fetcher, closeFetcher := newFetcher(ctx, cfg, logger)
	defer closeFetcher()
	sc := source.NewScraper(fetcher, source.WithLogger(logger))
	return runner.FetchAll(ctx, sc, ids)
}
