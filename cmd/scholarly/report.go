package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/scholarlyreport/scholarly/internal/config"
	"github.com/scholarlyreport/scholarly/internal/pipeline"
)

var reportCmd = &cobra.Command{
	Use:   "report [data_dir]",
	Short: "Render the static report from the stored author files",
	Long: `Report reads every author's TSV files, merges the publications into one
deduplicated set and renders the HTML report into the output directory.
It also writes the JSONL snapshot used by query.

Authors whose files cannot be read are listed and skipped; the report is
still written and the command exits with status 3.

Examples:
  scholarly report
  scholarly report ./export --out ./site --min-year 2020`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

var (
	reportOut     string
	reportMinYear int
	reportMaxYear int
)

func init() {
	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "", "Output directory (default from config)")
	reportCmd.Flags().IntVar(&reportMinYear, "min-year", 0, "Earliest publication year to include")
	reportCmd.Flags().IntVar(&reportMaxYear, "max-year", 0, "Latest publication year to include")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	runner, cfg, logger := mustNewRunner()
	defer logger.Sync()

	if len(args) == 1 {
		cfg.DataDir = config.ExpandPath(args[0])
	}
	if reportOut != "" {
		cfg.OutputDir = config.ExpandPath(reportOut)
	}
	if cmd.Flags().Changed("min-year") {
		cfg.MinYear = reportMinYear
	}
	if cmd.Flags().Changed("max-year") {
		cfg.MaxYear = reportMaxYear
	}
	if err := cfg.Validate(); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	start := time.Now()
	res, err := runner.Report()
	if err != nil {
		exitWithError(exitCodeFor(err), "%v", err)
	}

	if humanOutput {
		printSummaryTable(res.Load.Authors, res.Load.Total)
		printFailures(res.Load.Failures)
		fmt.Printf("\nWrote %d files to %s in %s (%d authors, %d publications, %d coauthor links)\n",
			len(res.Report.Files), res.Report.OutputDir, formatDuration(time.Since(start)),
			res.Report.Authors, res.Report.Publications, res.Report.Edges)
	} else if err := outputJSON(res); err != nil {
		return err
	}

	if code := reportExitCode(res); code != ExitSuccess {
		os.Exit(code)
	}
	return nil
}

// reportExitCode is the status of a rendered report: skipped authors make
// it a data error.
func reportExitCode(res *pipeline.ReportResult) int {
	if len(res.Load.Failures) > 0 {
		return ExitDataError
	}
	return ExitSuccess
}
