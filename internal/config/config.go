// Package config loads schemaguard.toml and resolves named environments into
// concrete connection strings and paths.
package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// ConfigFileName is searched for upward from the working directory.
const ConfigFileName = "schemaguard.toml"

// LoggingConfig controls the structured log output.
type LoggingConfig struct {
	Level      string `toml:"level"`       // debug, info, warn, error
	File       string `toml:"file"`        // empty disables the file sink
	MaxSizeMB  int    `toml:"max_size_mb"` // per rotated file
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// DiffToolConfig names the external schema diff binary.
type DiffToolConfig struct {
	Bin  string   `toml:"bin"`
	Args []string `toml:"args"`
}

// EnvironmentConfig describes a single named environment from
// schemaguard.toml. Any field left empty inherits the top-level value.
type EnvironmentConfig struct {
	DatabaseURL   string `toml:"database_url"`
	SchemaPath    string `toml:"schema_path"`
	MigrationsDir string `toml:"migrations_dir"`
}

type Config struct {
	MicroserviceID     string                       `toml:"microservice_id"`
	DefaultEnvironment string                       `toml:"default_environment"`
	DatabaseURL        string                       `toml:"database_url"`
	SchemaPath         string                       `toml:"schema_path"`
	MigrationsDir      string                       `toml:"migrations_dir"`
	ManifestPath       string                       `toml:"manifest_path"`
	DiffTool           DiffToolConfig               `toml:"diff_tool"`
	Logging            LoggingConfig                `toml:"logging"`
	Environments       map[string]EnvironmentConfig `toml:"environments"`
	ConfigFilePath     string                       `toml:"-"`
}

// ConfigDir returns the directory containing the loaded config file, or ""
// when no file was found.
func (c *Config) ConfigDir() string {
	if c == nil || c.ConfigFilePath == "" {
		return ""
	}
	return filepath.Dir(c.ConfigFilePath)
}

func LoadConfig() (*Config, error) {
	startDir, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return loadConfigFrom(startDir)
}

func loadConfigFrom(startDir string) (*Config, error) {
	dir := startDir
	for {
		// Check if schemaguard.toml exists in current directory
		configPath := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, err
			}

			var config Config
			if err := toml.Unmarshal(data, &config); err != nil {
				return nil, err
			}

			config.ConfigFilePath = configPath
			return &config, nil
		}

		// Check if we've reached a project boundary
		if isProjectRoot(dir) {
			break
		}

		// Move to parent directory
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}

	return &Config{}, nil
}

// isProjectRoot checks if the directory is a project root based on common markers
func isProjectRoot(dir string) bool {
	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		return true
	}
	if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
		return true
	}
	if _, err := os.Stat(filepath.Join(dir, "package.json")); err == nil {
		return true
	}
	return false
}
