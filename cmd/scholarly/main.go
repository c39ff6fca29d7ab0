// Package main provides the scholarly CLI entry point.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scholarlyreport/scholarly/internal/config"
	"github.com/scholarlyreport/scholarly/internal/logging"
	"github.com/scholarlyreport/scholarly/internal/metrics"
	"github.com/scholarlyreport/scholarly/internal/pipeline"
	"github.com/scholarlyreport/scholarly/internal/storage"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// humanOutput controls whether to use human-readable output
	humanOutput bool
	verbose     bool
	configPath  string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "scholarly",
	Short: "Publication metadata collector and report generator",
	Long: `scholarly collects publication metadata for a set of researchers from
their public profile pages, merges it into one deduplicated publication set
and renders a static multi-page report.

Typical workflow:
  scholarly config init            # create scholarly.yml
  scholarly fetch <scholar_id>     # add or refresh an author
  scholarly report                 # render the report
  scholarly publish                # upload it to S3

Per-author data is stored as TSV files in the data directory; a JSONL
snapshot and an ephemeral SQLite index back the query command.
All commands output JSON by default; use --human for readable output.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to scholarly.yml or its directory")
	rootCmd.Version = Version
}

// mustFindProject finds the project root, exits on error. --config wins
// over the working directory and the global default_project.
func mustFindProject() string {
	if configPath != "" {
		root := config.ExpandPath(configPath)
		if filepath.Base(root) == config.ProjectFile {
			root = filepath.Dir(root)
		}
		if !config.IsProject(root) {
			exitWithError(ExitConfigError, "no %s in %s", config.ProjectFile, root)
		}
		return root
	}

	cwd, err := os.Getwd()
	if err != nil {
		exitWithError(ExitError, "getting current directory: %v", err)
	}
	root, err := config.ResolveProject(cwd)
	if err != nil {
		fmt.Fprintln(os.Stderr, config.HelpfulConfigMessage())
		os.Exit(ExitConfigError)
	}
	return root
}

// mustLoadConfig loads configuration, exits on error.
func mustLoadConfig(root string) *config.Config {
	cfg, err := config.Load(root)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	return cfg
}

// mustNewLogger builds the process logger, exits on error.
func mustNewLogger() *zap.Logger {
	logger, err := logging.New(verbose, humanOutput)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	return logger
}

// mustNewRunner loads the project and returns a workflow runner with its
// logger. The caller should Sync the logger.
func mustNewRunner() (*pipeline.Runner, *config.Config, *zap.Logger) {
	cfg := mustLoadConfig(mustFindProject())
	logger := mustNewLogger()
	return pipeline.New(cfg, pipeline.WithLogger(logger), pipeline.WithMetrics(metrics.New())), cfg, logger
}

// mustOpenDatabase opens the SQLite index, exits on error.
// The caller is responsible for calling Close() on the returned DB.
func mustOpenDatabase(cfg *config.Config) *storage.DB {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath()), 0755); err != nil {
		exitWithError(ExitError, "creating cache directory: %v", err)
	}
	db, err := storage.OpenDB(cfg.DBPath())
	if err != nil {
		exitWithError(ExitError, "opening database: %v", err)
	}
	return db
}
