// Package config handles project and global configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	// ProjectFile marks a project root.
	ProjectFile = "scholarly.yml"
	// EnvPrefix prefixes environment overrides (SCHOLARLY_DATA_DIR, ...).
	EnvPrefix = "SCHOLARLY"
	// EnvFile is loaded from the project root before applying overrides.
	EnvFile = ".env"

	SnapshotFile = "publications.jsonl"
	CacheDir     = ".cache"
	DBFile       = "publications.db"
)

// ErrNoProject is returned when no scholarly.yml is found.
var ErrNoProject = errors.New("not in a scholarly project (no scholarly.yml found)")

// ErrInvalidConfig wraps validation failures.
var ErrInvalidConfig = errors.New("invalid config")

// Config represents project configuration stored in scholarly.yml. Every
// field can be overridden with a SCHOLARLY_* environment variable.
type Config struct {
	Root string `yaml:"-" ignored:"true"`

	DataDir             string `yaml:"data_dir" envconfig:"DATA_DIR"`                           // Per-author TSV files
	OutputDir           string `yaml:"output_dir" envconfig:"OUTPUT_DIR"`                       // Rendered report
	InstituteName       string `yaml:"institute_name" envconfig:"INSTITUTE_NAME"`               // Page header
	RegistryFile        string `yaml:"registry_file,omitempty" envconfig:"REGISTRY_FILE"`       // Alias/group enrichment YAML
	ExcludeJournalsFile string `yaml:"exclude_journals_file,omitempty" envconfig:"EXCLUDE_FILE"` // Journal exclusion substrings

	MinYear int `yaml:"min_year,omitempty" envconfig:"MIN_YEAR"` // 0 = no lower bound
	MaxYear int `yaml:"max_year,omitempty" envconfig:"MAX_YEAR"` // 0 = no upper bound

	Browser         bool          `yaml:"browser" envconfig:"BROWSER"`                   // Fetch profiles with a headless browser
	Headless        bool          `yaml:"headless" envconfig:"HEADLESS"`                 // Hide the browser window
	RequestInterval time.Duration `yaml:"request_interval" envconfig:"REQUEST_INTERVAL"` // Minimum delay between page fetches

	Schedule    string `yaml:"schedule,omitempty" envconfig:"SCHEDULE"`         // Cron expression for the schedule command
	ServeAddr   string `yaml:"serve_addr,omitempty" envconfig:"SERVE_ADDR"`     // Listen address for the serve command
	MetricsFile string `yaml:"metrics_file,omitempty" envconfig:"METRICS_FILE"` // node-exporter textfile

	S3    S3Config    `yaml:"s3,omitempty" envconfig:"S3"`
	Theme ThemeConfig `yaml:"theme,omitempty" envconfig:"THEME"`
}

// ThemeConfig holds the report colours as CSS hex values. Empty fields use
// the built-in theme.
type ThemeConfig struct {
	Primary    string `yaml:"primary,omitempty" envconfig:"PRIMARY"`
	Accent     string `yaml:"accent,omitempty" envconfig:"ACCENT"`
	Link       string `yaml:"link,omitempty" envconfig:"LINK"`
	Background string `yaml:"background,omitempty" envconfig:"BACKGROUND"`
}

// S3Config is the publish target.
type S3Config struct {
	Bucket   string `yaml:"bucket,omitempty" envconfig:"BUCKET"`
	Prefix   string `yaml:"prefix,omitempty" envconfig:"PREFIX"`
	Region   string `yaml:"region,omitempty" envconfig:"REGION"`
	Endpoint string `yaml:"endpoint,omitempty" envconfig:"ENDPOINT"` // S3-compatible providers
}

// Default returns the configuration used for keys absent from scholarly.yml.
func Default() *Config {
	return &Config{
		DataDir:         "data",
		OutputDir:       "report",
		InstituteName:   "Research Institute",
		Headless:        true,
		RequestInterval: 2 * time.Second,
		Schedule:        "0 3 * * 1",
		ServeAddr:       ":8080",
	}
}

// ProjectPath returns the path to scholarly.yml from a root path.
func ProjectPath(root string) string {
	return filepath.Join(root, ProjectFile)
}

// IsProject checks if the given path contains a scholarly.yml.
func IsProject(root string) bool {
	info, err := os.Stat(ProjectPath(root))
	return err == nil && !info.IsDir()
}

// FindProject walks up from the given path to find a project root.
func FindProject(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	for {
		if IsProject(abs) {
			return abs, nil
		}

		parent := filepath.Dir(abs)
		if parent == abs {
			return "", ErrNoProject
		}
		abs = parent
	}
}

// Load reads scholarly.yml at root, applies .env and SCHOLARLY_*
// environment overrides, resolves relative paths against root and
// validates the result.
func Load(root string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(ProjectPath(root))
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := ApplyEnv(cfg, filepath.Join(root, EnvFile)); err != nil {
		return nil, err
	}

	cfg.Root = root
	cfg.resolvePaths()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv loads envFile (if present) into the process environment without
// overriding variables already set, then applies SCHOLARLY_* overrides.
func ApplyEnv(cfg *Config, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("loading %s: %w", envFile, err)
		}
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}
	return nil
}

func (c *Config) resolvePaths() {
	c.DataDir = c.abs(c.DataDir)
	c.OutputDir = c.abs(c.OutputDir)
	c.RegistryFile = c.abs(c.RegistryFile)
	c.ExcludeJournalsFile = c.abs(c.ExcludeJournalsFile)
	c.MetricsFile = c.abs(c.MetricsFile)
}

func (c *Config) abs(path string) string {
	if path == "" {
		return ""
	}
	path = ExpandPath(path)
	if filepath.IsAbs(path) || c.Root == "" {
		return path
	}
	return filepath.Join(c.Root, path)
}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("%w: data_dir must be set", ErrInvalidConfig)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("%w: output_dir must be set", ErrInvalidConfig)
	}
	if c.MinYear < 0 || c.MaxYear < 0 {
		return fmt.Errorf("%w: years must not be negative", ErrInvalidConfig)
	}
	if c.MinYear != 0 && c.MaxYear != 0 && c.MinYear > c.MaxYear {
		return fmt.Errorf("%w: min_year %d is after max_year %d", ErrInvalidConfig, c.MinYear, c.MaxYear)
	}
	if c.RequestInterval < 0 {
		return fmt.Errorf("%w: request_interval must not be negative", ErrInvalidConfig)
	}
	for key, v := range map[string]string{
		"primary":    c.Theme.Primary,
		"accent":     c.Theme.Accent,
		"link":       c.Theme.Link,
		"background": c.Theme.Background,
	} {
		if v != "" && !hexColor.MatchString(v) {
			return fmt.Errorf("%w: theme.%s %q is not a hex colour", ErrInvalidConfig, key, v)
		}
	}
	return nil
}

// Save writes the configuration to scholarly.yml at root.
func (c *Config) Save(root string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(ProjectPath(root), data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// SnapshotPath returns the path of the merged publication snapshot.
func (c *Config) SnapshotPath() string {
	return filepath.Join(c.DataDir, SnapshotFile)
}

// DBPath returns the path of the ephemeral query index.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, CacheDir, DBFile)
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path // Return original if we can't get home directory
	}

	return filepath.Join(home, path[1:])
}
