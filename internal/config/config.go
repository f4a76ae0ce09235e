// Package config manages dbdiff configuration and the .dbdiff workspace directory.
// It handles loading, saving, and initializing the workspace configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

const (
	WorkspaceDir = ".dbdiff"
	ConfigFile   = "config"
	DatabaseFile = "dbdiff.db"
	LogFile      = "dbdiff.log"

	// HomeEnv overrides the workspace lookup when set.
	HomeEnv = "DBDIFF_HOME"

	DefaultRowLimit    = 1000
	DefaultDiffWorkers = 4
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
)

// Config represents the dbdiff configuration
type Config struct {
	LogLevel       string `toml:"log_level"`
	LogFormat      string `toml:"log_format"`
	RowLimit       int    `toml:"row_limit"`    // Maximum rows captured per table
	DiffWorkers    int    `toml:"diff_workers"` // Tables diffed concurrently
	CurrentProject string `toml:"current_project,omitempty"`
	path           string // path to .dbdiff directory
}

// Default returns a configuration with every field at its default.
func Default() *Config {
	return &Config{
		LogLevel:    DefaultLogLevel,
		LogFormat:   DefaultLogFormat,
		RowLimit:    DefaultRowLimit,
		DiffWorkers: DefaultDiffWorkers,
	}
}

// FindRoot returns $DBDIFF_HOME when set, otherwise finds the .dbdiff
// directory by walking up from the current directory.
func FindRoot() (string, error) {
	if home := os.Getenv(HomeEnv); home != "" {
		if info, err := os.Stat(home); err == nil && info.IsDir() {
			return home, nil
		}
		return "", fmt.Errorf("%s=%s is not a dbdiff workspace", HomeEnv, home)
	}

	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		path := filepath.Join(dir, WorkspaceDir)
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			return path, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not a dbdiff workspace (or any parent up to root); run 'dbdiff init'")
		}
		dir = parent
	}
}

// Load loads the configuration from the workspace directory
func Load() (*Config, error) {
	root, err := FindRoot()
	if err != nil {
		return nil, err
	}
	return LoadFrom(root)
}

// LoadFrom loads the configuration of the workspace at path. Missing fields
// keep their defaults.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Join(path, ConfigFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.normalize()

	cfg.path = path
	return cfg, nil
}

func (c *Config) normalize() {
	if c.RowLimit <= 0 {
		c.RowLimit = DefaultRowLimit
	}
	if c.DiffWorkers <= 0 {
		c.DiffWorkers = DefaultDiffWorkers
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
}

// Save saves the configuration to disk
func (c *Config) Save() error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(filepath.Join(c.path, ConfigFile), data, 0644)
}

// Path returns the path to the workspace directory
func (c *Config) Path() string {
	return c.path
}

// DatabasePath returns the path to the bbolt database
func (c *Config) DatabasePath() string {
	return filepath.Join(c.path, DatabaseFile)
}

// LogPath returns the path to the CLI log file
func (c *Config) LogPath() string {
	return filepath.Join(c.path, LogFile)
}

// Initialize creates a new .dbdiff directory under dir with the default configuration
func Initialize(dir string) (*Config, error) {
	path := filepath.Join(dir, WorkspaceDir)

	// Check if already initialized
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("dbdiff workspace already exists at %s", path)
	}

	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s directory: %w", WorkspaceDir, err)
	}

	cfg := Default()
	cfg.path = path

	if err := cfg.Save(); err != nil {
		// Cleanup on failure
		os.RemoveAll(path)
		return nil, err
	}

	return cfg, nil
}
