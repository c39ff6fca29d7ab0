package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/scholarlyreport/scholarly/internal/config"
	"github.com/scholarlyreport/scholarly/internal/pipeline"
	"github.com/scholarlyreport/scholarly/internal/source"
	"github.com/scholarlyreport/scholarly/internal/store"
)

// Constants for output formatting.
const (
	DefaultQueryLimit = 50 // Default limit for query results
	TitleMaxLen       = 70 // Title truncation in result lists
)

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// exitCodeFor maps workflow errors to exit codes.
func exitCodeFor(err error) int {
	switch {
	case source.IsBlocked(err):
		return ExitAccessBlocked
	case errors.Is(err, config.ErrInvalidConfig), errors.Is(err, config.ErrNoProject):
		return ExitConfigError
	case errors.Is(err, pipeline.ErrNoAuthors), errors.Is(err, source.ErrInvalidProfile), errors.Is(err, source.ErrNotFound):
		return ExitDataError
	default:
		return ExitError
	}
}

// StatusResponse is a generic response for commands that return status.
type StatusResponse struct {
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// printSummaryTable prints per-author ingest counts.
func printSummaryTable(authors []pipeline.AuthorSummary, total store.Summary) {
	fmt.Printf("%-14s %-28s %5s %5s %5s %5s %5s %5s\n", "ID", "NAME", "NEW", "UPD", "SAME", "EXJ", "EXA", "BAD")
	for _, a := range authors {
		printSummaryRow(a.ID, truncateString(a.Name, 28), a.Summary)
	}
	printSummaryRow("total", "", total)
}

func printSummaryRow(id, name string, s store.Summary) {
	fmt.Printf("%-14s %-28s %5d %5d %5d %5d %5d %5d\n",
		id, name, s.New, s.Updated, s.Unchanged, s.ExcludedJournal, s.ExcludedAuthorMismatch, s.Malformed)
}

// printFailures lists authors that could not be processed.
func printFailures(failures []pipeline.Failure) {
	if len(failures) == 0 {
		return
	}
	fmt.Printf("\n%d author(s) failed:\n", len(failures))
	for _, f := range failures {
		fmt.Printf("  %s: %s\n", f.ID, f.Error)
	}
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}

// formatBytes formats bytes in a human-readable way.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// formatList joins values with commas, "-" for none.
func formatList(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ", ")
}
