package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// GlobalConfig represents per-user settings stored in
// ~/.config/scholarly/config.yml. Credentials live here rather than in the
// project file so scholarly.yml can be committed.
type GlobalConfig struct {
	DefaultProject string `yaml:"default_project,omitempty"`
	S3AccessKey    string `yaml:"s3_access_key,omitempty"`
	S3SecretKey    string `yaml:"s3_secret_key,omitempty"`
	UserAgent      string `yaml:"user_agent,omitempty"`
}

const (
	// GlobalConfigDir is the directory name under XDG_CONFIG_HOME.
	GlobalConfigDir = "scholarly"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yml"
)

// globalConfigCache caches the loaded global config.
var globalConfigCache *GlobalConfig

// GlobalConfigPath returns the path to the global config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/scholarly/config.yml.
func GlobalConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, GlobalConfigDir, GlobalConfigFile)
}

// LoadGlobalConfig loads the global configuration file.
// Returns an empty config (not an error) if the file doesn't exist.
func LoadGlobalConfig() (*GlobalConfig, error) {
	if globalConfigCache != nil {
		return globalConfigCache, nil
	}

	path := GlobalConfigPath()
	if path == "" {
		return &GlobalConfig{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &GlobalConfig{}, nil
		}
		return nil, fmt.Errorf("reading global config: %w", err)
	}

	var cfg GlobalConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing global config: %w", err)
	}

	if cfg.DefaultProject != "" {
		cfg.DefaultProject = ExpandPath(cfg.DefaultProject)
	}

	globalConfigCache = &cfg
	return &cfg, nil
}

// ResetGlobalConfigCache clears the cached global config.
// Useful for testing.
func ResetGlobalConfigCache() {
	globalConfigCache = nil
}

// GetConfigValue returns the environment variable if set, else fallback.
func GetConfigValue(envKey, fallback string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return fallback
}

// GetS3Credentials returns the static S3 key pair. The standard AWS
// environment variables take priority over the global config. Both empty
// means the default AWS credential chain should be used.
func GetS3Credentials() (accessKey, secretKey string) {
	cfg, err := LoadGlobalConfig()
	if err != nil {
		cfg = &GlobalConfig{}
	}
	return GetConfigValue("AWS_ACCESS_KEY_ID", cfg.S3AccessKey),
		GetConfigValue("AWS_SECRET_ACCESS_KEY", cfg.S3SecretKey)
}

// GetUserAgent returns the configured User-Agent override, if any.
func GetUserAgent() string {
	cfg, err := LoadGlobalConfig()
	if err != nil {
		return ""
	}
	return cfg.UserAgent
}

// ResolveProject finds the project root starting at start, falling back to
// default_project from the global config.
func ResolveProject(start string) (string, error) {
	root, err := FindProject(start)
	if err == nil {
		return root, nil
	}

	cfg, gerr := LoadGlobalConfig()
	if gerr != nil || cfg.DefaultProject == "" {
		return "", err
	}
	if !IsProject(cfg.DefaultProject) {
		return "", fmt.Errorf("%w: default_project %s has no %s", ErrNoProject, cfg.DefaultProject, ProjectFile)
	}
	return cfg.DefaultProject, nil
}

// HelpfulConfigMessage returns a hint shown when no project is found.
func HelpfulConfigMessage() string {
	configPath := GlobalConfigPath()
	return fmt.Sprintf(`No scholarly project found.

Run 'scholarly config init' in your data directory, or set a default in %s:
  mkdir -p %s
  echo 'default_project: /path/to/project' > %s`,
		configPath,
		filepath.Dir(configPath),
		configPath)
}
