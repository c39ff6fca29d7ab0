package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scholarlyreport/scholarly/internal/export"
	"github.com/scholarlyreport/scholarly/internal/storage"
)

var (
	exportAuthor string
	exportYear   string
	exportOut    string
)

func init() {
	exportCmd.Flags().StringVarP(&exportAuthor, "author", "a", "", "Only publications of this scholar ID")
	exportCmd.Flags().StringVar(&exportYear, "year", "", "Filter by year: exact (2024), range (2020:2024), or open (2020: or :2024)")
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "Write to file instead of stdout")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the merged publication set as BibTeX",
	Long: `Export writes the publications of the last report run as BibTeX.

Examples:
  scholarly export > all.bib
  scholarly export --author AbC123xyz --year 2020: -o doe.bib`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

// ExportResult is the response when writing to a file.
type ExportResult struct {
	Status       string `json:"status"`
	Path         string `json:"path"`
	Publications int    `json:"publications"`
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig(mustFindProject())

	filters := storage.SearchFilters{Author: exportAuthor}
	if exportYear != "" {
		from, to, err := parseYearRange(exportYear)
		if err != nil {
			exitWithError(ExitError, "invalid year format: %v", err)
		}
		filters.YearFrom, filters.YearTo = from, to
	}

	db := mustOpenFreshDatabase(cfg)
	defer db.Close()

	pubs, err := db.SearchWithFilters(filters, 0)
	if err != nil {
		exitWithError(ExitError, "listing publications: %v", err)
	}
	bib := export.ToBibTeXList(pubs)

	if exportOut == "" {
		fmt.Print(bib)
		return nil
	}
	if err := os.WriteFile(exportOut, []byte(bib), 0644); err != nil {
		exitWithError(ExitError, "writing %s: %v", exportOut, err)
	}
	if humanOutput {
		fmt.Printf("Exported %d publications to %s\n", len(pubs), exportOut)
		return nil
	}
	return outputJSON(ExportResult{Status: "exported", Path: exportOut, Publications: len(pubs)})
}
