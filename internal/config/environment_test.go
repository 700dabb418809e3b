package config

import (
	"os"
	"path/filepath"
	"testing"
)

func configAt(dir string) *Config {
	return &Config{ConfigFilePath: filepath.Join(dir, ConfigFileName)}
}

func TestResolveEnvironmentDefaults(t *testing.T) {
	t.Parallel()

	env, err := ResolveEnvironment(configAt(t.TempDir()), "")
	if err != nil {
		t.Fatalf("ResolveEnvironment returned error: %v", err)
	}

	if env.Name != defaultEnvironmentName {
		t.Fatalf("Expected default environment name %q, got %q", defaultEnvironmentName, env.Name)
	}
	if env.DatabaseURL != defaultDatabaseURL {
		t.Fatalf("Expected default database URL %q, got %q", defaultDatabaseURL, env.DatabaseURL)
	}
	if filepath.Base(env.SchemaPath) != "schema.prisma" {
		t.Errorf("SchemaPath = %q, want default schema path", env.SchemaPath)
	}
}

func TestResolveEnvironmentFromConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	config := configAt(dir)
	config.DefaultEnvironment = "staging"
	config.SchemaPath = "db/schema.prisma"
	config.Environments = map[string]EnvironmentConfig{
		"staging": {DatabaseURL: "postgres://staging.example.com/app"},
	}

	env, err := ResolveEnvironment(config, "")
	if err != nil {
		t.Fatalf("ResolveEnvironment returned error: %v", err)
	}
	if !env.FromConfig {
		t.Error("FromConfig = false, want true")
	}
	if env.DatabaseURL != "postgres://staging.example.com/app" {
		t.Errorf("DatabaseURL = %q", env.DatabaseURL)
	}
	// Top-level schema_path applies when the environment leaves it empty,
	// anchored at the config directory.
	if want := filepath.Join(dir, "db", "schema.prisma"); env.SchemaPath != want {
		t.Errorf("SchemaPath = %q, want %q", env.SchemaPath, want)
	}
}

func TestResolveEnvironmentSectionOverridesTopLevel(t *testing.T) {
	t.Parallel()

	config := configAt(t.TempDir())
	config.DatabaseURL = "file:global.db"
	config.Environments = map[string]EnvironmentConfig{
		"local": {DatabaseURL: "file:local.db"},
	}

	env, err := ResolveEnvironment(config, "local")
	if err != nil {
		t.Fatalf("ResolveEnvironment returned error: %v", err)
	}
	if env.DatabaseURL != "file:local.db" {
		t.Errorf("DatabaseURL = %q, want the environment section value", env.DatabaseURL)
	}
}

func TestResolveEnvironmentFromDotenv(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dotenvPath := filepath.Join(dir, ".env.staging")
	content := "DATABASE_URL=postgres://staging\nSCHEMA_PATH=schemas/staging.prisma\n"
	if err := os.WriteFile(dotenvPath, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write dotenv file: %v", err)
	}

	env, err := ResolveEnvironment(configAt(dir), "staging")
	if err != nil {
		t.Fatalf("ResolveEnvironment returned error: %v", err)
	}
	if !env.FromDotenv {
		t.Error("FromDotenv = false, want true")
	}
	if env.DatabaseURL != "postgres://staging" {
		t.Errorf("DatabaseURL = %q", env.DatabaseURL)
	}
	if want := filepath.Join(dir, "schemas", "staging.prisma"); env.SchemaPath != want {
		t.Errorf("SchemaPath = %q, want %q", env.SchemaPath, want)
	}
}

func TestResolveEnvironmentLibsqlAuthToken(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	content := "LIBSQL_URL=libsql://db.turso.io\nLIBSQL_AUTH_TOKEN=tok123\n"
	if err := os.WriteFile(filepath.Join(dir, ".env.local"), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	env, err := ResolveEnvironment(configAt(dir), "local")
	if err != nil {
		t.Fatalf("ResolveEnvironment returned error: %v", err)
	}
	if env.DatabaseURL != "libsql://db.turso.io?authToken=tok123" {
		t.Errorf("DatabaseURL = %q", env.DatabaseURL)
	}
}

func TestResolveEnvironmentUnknownName(t *testing.T) {
	t.Parallel()

	config := configAt(t.TempDir())
	config.Environments = map[string]EnvironmentConfig{
		"local": {DatabaseURL: "file:local.db"},
	}

	if _, err := ResolveEnvironment(config, "production"); err == nil {
		t.Fatal("ResolveEnvironment accepted an undefined environment")
	}
}

func TestResolveEnvironmentConfigWinsOverDotenv(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env.local"),
		[]byte("DATABASE_URL=file:dotenv.db\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	config := configAt(dir)
	config.Environments = map[string]EnvironmentConfig{
		"local": {DatabaseURL: "file:config.db"},
	}

	env, err := ResolveEnvironment(config, "local")
	if err != nil {
		t.Fatalf("ResolveEnvironment returned error: %v", err)
	}
	if env.DatabaseURL != "file:config.db" {
		t.Errorf("DatabaseURL = %q, want config value to win", env.DatabaseURL)
	}
}
