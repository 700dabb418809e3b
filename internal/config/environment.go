package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

const (
	defaultEnvironmentName = "local"
	defaultSchemaPath      = "prisma/schema.prisma"
	defaultMigrationsDir   = "prisma/migrations"
	defaultManifestPath    = ".schemaguard/schema-manifest.json"
	defaultDatabaseURL     = "file:.schemaguard/fields.db"
)

// ResolvedEnvironment represents a fully-resolved environment with concrete values.
type ResolvedEnvironment struct {
	Name          string
	DatabaseURL   string
	SchemaPath    string
	MigrationsDir string
	ManifestPath  string
	DotenvPath    string
	FromConfig    bool
	FromDotenv    bool
}

// ResolveEnvironment resolves a named environment into concrete connection
// strings and paths. Precedence per value: environment section, top-level
// config, .env.<name> file, built-in default. Relative paths are anchored at
// the config file's directory when one was found.
func ResolveEnvironment(config *Config, name string) (*ResolvedEnvironment, error) {
	envName := strings.TrimSpace(name)
	if envName == "" {
		if config != nil && config.DefaultEnvironment != "" {
			envName = config.DefaultEnvironment
		} else {
			envName = defaultEnvironmentName
		}
	}

	var (
		envConfig EnvironmentConfig
		envExists bool
	)
	if config != nil && config.Environments != nil {
		if cfg, ok := config.Environments[envName]; ok {
			envConfig = cfg
			envExists = true
		}
	}

	resolved := &ResolvedEnvironment{Name: envName, FromConfig: envExists}

	var baseDir string
	if config != nil {
		baseDir = config.ConfigDir()
		if config.DatabaseURL != "" && envConfig.DatabaseURL == "" {
			envConfig.DatabaseURL = config.DatabaseURL
		}
		if config.SchemaPath != "" && envConfig.SchemaPath == "" {
			envConfig.SchemaPath = config.SchemaPath
		}
		if config.MigrationsDir != "" && envConfig.MigrationsDir == "" {
			envConfig.MigrationsDir = config.MigrationsDir
		}
		resolved.ManifestPath = config.ManifestPath
	}
	if baseDir == "" {
		if cwd, err := os.Getwd(); err == nil {
			baseDir = cwd
		}
	}

	resolved.DatabaseURL = envConfig.DatabaseURL
	resolved.SchemaPath = envConfig.SchemaPath
	resolved.MigrationsDir = envConfig.MigrationsDir

	dotenvFileName := ".env." + envName
	if baseDir != "" {
		resolved.DotenvPath = filepath.Join(baseDir, dotenvFileName)
	} else {
		resolved.DotenvPath = dotenvFileName
	}

	if info, err := os.Stat(resolved.DotenvPath); err == nil && !info.IsDir() {
		values, err := godotenv.Read(resolved.DotenvPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", resolved.DotenvPath, err)
		}
		resolved.FromDotenv = true

		if resolved.DatabaseURL == "" {
			// Check for generic DATABASE_URL first
			if value := values["DATABASE_URL"]; value != "" {
				resolved.DatabaseURL = value
			}
		}
		if resolved.DatabaseURL == "" {
			if value := values["POSTGRES_URL"]; value != "" {
				resolved.DatabaseURL = value
			}
		}
		if resolved.DatabaseURL == "" {
			if value := values["SQLITE_DB_PATH"]; value != "" {
				resolved.DatabaseURL = value
			}
		}
		if resolved.DatabaseURL == "" {
			if value := values["LIBSQL_URL"]; value != "" {
				// Construct libSQL connection string with auth token if available
				if authToken := values["LIBSQL_AUTH_TOKEN"]; authToken != "" {
					resolved.DatabaseURL = fmt.Sprintf("%s?authToken=%s", value, authToken)
				} else {
					resolved.DatabaseURL = value
				}
			}
		}
		if resolved.SchemaPath == "" {
			if value := values["SCHEMA_PATH"]; value != "" {
				resolved.SchemaPath = value
			}
		}
		if resolved.MigrationsDir == "" {
			if value := values["MIGRATIONS_DIR"]; value != "" {
				resolved.MigrationsDir = value
			}
		}
	} else if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to access %s: %w", resolved.DotenvPath, err)
	}

	if resolved.DatabaseURL == "" {
		resolved.DatabaseURL = defaultDatabaseURL
	}
	if resolved.SchemaPath == "" {
		resolved.SchemaPath = defaultSchemaPath
	}
	if resolved.MigrationsDir == "" {
		resolved.MigrationsDir = defaultMigrationsDir
	}
	if resolved.ManifestPath == "" {
		resolved.ManifestPath = defaultManifestPath
	}

	resolved.SchemaPath = anchorPath(resolved.SchemaPath, baseDir)
	resolved.MigrationsDir = anchorPath(resolved.MigrationsDir, baseDir)
	resolved.ManifestPath = anchorPath(resolved.ManifestPath, baseDir)

	if config != nil && len(config.Environments) > 0 && !envExists && !resolved.FromDotenv {
		return nil, fmt.Errorf("environment %q not defined in %s and %s not found",
			envName, ConfigFileName, resolved.DotenvPath)
	}

	return resolved, nil
}

func anchorPath(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) || baseDir == "" {
		return path
	}
	return filepath.Join(baseDir, path)
}
