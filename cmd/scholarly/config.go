package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/scholarlyreport/scholarly/internal/config"
)

func init() {
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().StringVar(&initInstitute, "institute", "", "Institute name for the page header")
	configInitCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing scholarly.yml")
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective project configuration",
	Long: `Show the configuration after applying scholarly.yml, .env and SCHOLARLY_*
environment overrides. Relative paths are shown resolved.

Usage:
  scholarly config              # Show effective config
  scholarly config init [dir]   # Create scholarly.yml with defaults`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

var configInitCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Create scholarly.yml with default values",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigInit,
}

var (
	initInstitute string
	initForce     bool
)

// ConfigResponse is the response for the config command.
type ConfigResponse struct {
	Root   string         `json:"root"`
	Config *config.Config `json:"config"`
}

func runConfig(cmd *cobra.Command, args []string) error {
	root := mustFindProject()
	cfg := mustLoadConfig(root)

	if humanOutput {
		data, err := yaml.Marshal(cfg)
		if err != nil {
			exitWithError(ExitError, "encoding config: %v", err)
		}
		fmt.Printf("# %s\n%s", config.ProjectPath(root), data)
		return nil
	}
	return outputJSON(ConfigResponse{Root: root, Config: cfg})
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) == 1 {
		root = config.ExpandPath(args[0])
	}
	root, err := filepath.Abs(root)
	if err != nil {
		exitWithError(ExitError, "resolving path: %v", err)
	}

	if config.IsProject(root) && !initForce {
		exitWithError(ExitConfigError, "%s already exists (use --force to overwrite)", config.ProjectPath(root))
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		exitWithError(ExitError, "creating directory: %v", err)
	}

	cfg := config.Default()
	if initInstitute != "" {
		cfg.InstituteName = initInstitute
	}
	if err := cfg.Save(root); err != nil {
		exitWithError(ExitError, "%v", err)
	}
	if err := os.MkdirAll(filepath.Join(root, cfg.DataDir), 0755); err != nil {
		exitWithError(ExitError, "creating data directory: %v", err)
	}

	outputStatus("created", config.ProjectPath(root))
	return nil
}
