package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(rebuildCmd)
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the query index from the snapshot",
	Long: `Rebuild the SQLite query index from the JSONL snapshot written by report.

Use this if the index becomes corrupted; query rebuilds a stale index on
its own.`,
	RunE: runRebuild,
}

// RebuildResult is the response for the rebuild command.
type RebuildResult struct {
	Status       string `json:"status"`
	Publications int    `json:"publications"`
	Path         string `json:"path"`
}

func runRebuild(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig(mustFindProject())

	db := mustOpenDatabase(cfg)
	defer db.Close()

	n, err := db.RebuildFromSnapshot(cfg.SnapshotPath())
	if err != nil {
		exitWithError(ExitDataError, "rebuilding index: %v", err)
	}

	if humanOutput {
		fmt.Printf("Rebuilt query index with %d publications\n", n)
	} else {
		outputJSON(RebuildResult{Status: "rebuilt", Publications: n, Path: cfg.DBPath()})
	}
	return nil
}
