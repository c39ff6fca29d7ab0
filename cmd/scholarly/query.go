package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scholarlyreport/scholarly/internal/author"
	"github.com/scholarlyreport/scholarly/internal/config"
	"github.com/scholarlyreport/scholarly/internal/reference"
	"github.com/scholarlyreport/scholarly/internal/storage"
)

var (
	queryLimit   int
	queryAuthor  string
	queryYear    string
	queryTitle   string
	queryJournal string
	queryNames   []string
)

func init() {
	queryCmd.Flags().IntVar(&queryLimit, "limit", DefaultQueryLimit, "Maximum results to return")
	queryCmd.Flags().StringVarP(&queryAuthor, "author", "a", "", "Only publications of this scholar ID")
	queryCmd.Flags().StringVar(&queryYear, "year", "", "Filter by year: exact (2024), range (2020:2024), or open (2020: or :2024)")
	queryCmd.Flags().StringVarP(&queryTitle, "title", "t", "", "Search in title only")
	queryCmd.Flags().StringVar(&queryJournal, "journal", "", "Filter by journal (partial match)")
	queryCmd.Flags().StringArrayVarP(&queryNames, "name", "n", nil, "Filter by a name in the author list (can be repeated, uses AND logic)")
	rootCmd.AddCommand(queryCmd)
}

var queryCmd = &cobra.Command{
	Use:   "query [keyword]",
	Short: "Search the merged publication set",
	Long: `Query searches the publications written by the last report run.

The keyword matches title, authors and journal. The index is rebuilt
automatically when the snapshot changed since the last query.

--author takes a scholar ID and matches registered members only. --name
matches any listed coauthor: "Doe" matches every Doe, "J Doe" and "Jane Doe"
match "J Doe" and "Jane A Doe".

Year syntax:
  --year 2024         - Exact year
  --year 2020:2024    - Range (inclusive)
  --year 2020:        - 2020 and later
  --year :2020        - 2020 and earlier

Examples:
  scholarly query "coral reef"
  scholarly query --author AbC123xyz --year 2022:
  scholarly query --journal Nature --title genome
  scholarly query -n "Doe" -n "Q Zhang"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runQuery,
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig(mustFindProject())

	filters := storage.SearchFilters{
		Title:   queryTitle,
		Author:  queryAuthor,
		Journal: queryJournal,
	}
	if len(args) == 1 {
		filters.Keyword = args[0]
	}
	if queryYear != "" {
		from, to, err := parseYearRange(queryYear)
		if err != nil {
			exitWithError(ExitError, "invalid year format: %v", err)
		}
		filters.YearFrom = from
		filters.YearTo = to
	}
	if filters == (storage.SearchFilters{}) && len(queryNames) == 0 {
		exitWithError(ExitError, "must specify a keyword or at least one filter (--author, --name, --title, --journal, --year)")
	}

	db := mustOpenFreshDatabase(cfg)
	defer db.Close()

	// Name filters run after the SQL query, so the limit is applied last.
	limit := queryLimit
	if len(queryNames) > 0 {
		limit = 0
	}
	pubs, err := db.SearchWithFilters(filters, limit)
	if err != nil {
		exitWithError(ExitError, "searching: %v", err)
	}
	if len(queryNames) > 0 {
		pubs = filterByNames(pubs, queryNames, queryLimit)
	}

	// Empty result is not an error
	if pubs == nil {
		pubs = []reference.Publication{}
	}

	if humanOutput {
		if len(pubs) == 0 {
			fmt.Println("No publications found")
			return nil
		}
		fmt.Printf("Found %d publications:\n\n", len(pubs))
		for _, p := range pubs {
			fmt.Printf("%4s  %5d  %s\n", yearLabel(p.Year), p.Citations, truncateString(p.Title, TitleMaxLen))
			fmt.Printf("             %s | %s\n", truncateString(p.Journal, 40), formatList(p.Members.IDs()))
		}
		return nil
	}
	return outputJSON(pubs)
}

// mustOpenFreshDatabase opens the index and rebuilds it when the snapshot
// changed since the last rebuild.
func mustOpenFreshDatabase(cfg *config.Config) *storage.DB {
	snapshot := cfg.SnapshotPath()
	if _, err := os.Stat(snapshot); err != nil {
		exitWithError(ExitDataError, "no snapshot at %s; run 'scholarly report' first", snapshot)
	}

	db := mustOpenDatabase(cfg)
	stale, err := db.IsStale(snapshot)
	if err != nil {
		db.Close()
		exitWithError(ExitDataError, "checking index: %v", err)
	}
	if stale {
		if _, err := db.RebuildFromSnapshot(snapshot); err != nil {
			db.Close()
			exitWithError(ExitDataError, "rebuilding index: %v", err)
		}
	}
	return db
}

// filterByNames keeps publications whose author list matches every name
// query, up to limit results (0 = no limit).
func filterByNames(pubs []reference.Publication, names []string, limit int) []reference.Publication {
	queries := make([]author.Query, 0, len(names))
	for _, n := range names {
		queries = append(queries, author.ParseQuery(n))
	}
	var out []reference.Publication
	for _, p := range pubs {
		if !author.AllMatch(queries, p.AuthorList) {
			continue
		}
		out = append(out, p)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func yearLabel(year int) string {
	if year == 0 {
		return "----"
	}
	return strconv.Itoa(year)
}

// parseYearRange parses a --year value into from/to values.
// Supported formats: "2024", "2020:2024", "2020:", ":2024"
func parseYearRange(value string) (from, to int, err error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, 0, nil
	}

	if strings.Contains(value, ":") {
		parts := strings.SplitN(value, ":", 2)

		if parts[0] != "" {
			from, err = strconv.Atoi(parts[0])
			if err != nil {
				return 0, 0, fmt.Errorf("invalid start year %q", parts[0])
			}
		}

		if parts[1] != "" {
			to, err = strconv.Atoi(parts[1])
			if err != nil {
				return 0, 0, fmt.Errorf("invalid end year %q", parts[1])
			}
		}

		if from > 0 && to > 0 && from > to {
			return 0, 0, fmt.Errorf("start year %d after end year %d", from, to)
		}
		return from, to, nil
	}

	year, err := strconv.Atoi(value)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid year %q", value)
	}
	return year, year, nil
}
