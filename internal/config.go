package internal

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// StorageRoot is one editor workspaceStorage directory and the edition it belongs to
type StorageRoot struct {
	Path    string `yaml:"path"`
	Edition string `yaml:"edition"`
}

// Config holds the user-tunable settings for scanning and storage
type Config struct {
	Database     string        `yaml:"database"`
	Editions     []string      `yaml:"editions"`
	StoragePaths []StorageRoot `yaml:"storage_paths"`
	IncludeCLI   bool          `yaml:"include_cli"`
	CLIPaths     []string      `yaml:"cli_paths"`
	GitTimeout   time.Duration `yaml:"git_timeout"`
	LogLevel     string        `yaml:"log_level"`
	LogFormat    string        `yaml:"log_format"`
}

// DefaultConfigPath returns ~/.config/copilot-session/config.yaml
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "copilot-session", "config.yaml")
}

// DefaultDatabasePath returns ~/.copilot-session/sessions.db
func DefaultDatabasePath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".copilot-session", "sessions.db")
}

// DefaultConfig returns the configuration used when no file is present
func DefaultConfig() Config {
	return Config{
		Database:   DefaultDatabasePath(),
		Editions:   []string{EditionStable, EditionInsider},
		IncludeCLI: true,
		GitTimeout: 5 * time.Second,
		LogLevel:   "info",
		LogFormat:  "console",
	}
}

// LoadConfig reads a YAML config file on top of DefaultConfig. A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, &StorageError{Path: path, Op: "read", Err: err}
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ParseError{Source: "config", Key: path, Err: err}
	}
	if cfg.GitTimeout <= 0 {
		cfg.GitTimeout = 5 * time.Second
	}
	if cfg.Database == "" {
		cfg.Database = DefaultDatabasePath()
	}
	return cfg, nil
}

// SaveConfig writes cfg as YAML, creating the parent directory
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "create config dir")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}
	return errors.Wrap(os.WriteFile(path, data, 0644), "write config")
}

// HasEdition reports whether the edition is enabled
func (c Config) HasEdition(edition string) bool {
	if len(c.Editions) == 0 {
		return true
	}
	for _, e := range c.Editions {
		if e == edition {
			return true
		}
	}
	return false
}
