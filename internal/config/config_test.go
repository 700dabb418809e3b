package config

import (
	"os"
	"path/filepath"
	"testing"
)

const exampleConfig = `microservice_id = "4eef25cf-c340-49bf-8ecf-eef40ff8b647"
default_environment = "local"
schema_path = "prisma/schema.prisma"

[logging]
level = "debug"
file = "logs/schemaguard.log"
max_size_mb = 10

[diff_tool]
bin = "migrate-diff"
args = ["--shadow-database-url", "file:shadow.db"]

[environments.local]
database_url = "file:.schemaguard/fields.db"

[environments.staging]
database_url = "postgres://staging.example.com/app"
migrations_dir = "prisma/migrations"
`

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadConfigInCurrentDirectory(t *testing.T) {
	tempDir := t.TempDir()
	configPath := writeConfig(t, tempDir, exampleConfig)

	config, err := loadConfigFrom(tempDir)
	if err != nil {
		t.Fatalf("loadConfigFrom() returned error: %v", err)
	}

	if config.ConfigFilePath != configPath {
		t.Errorf("ConfigFilePath = %q, want %q", config.ConfigFilePath, configPath)
	}
	if config.MicroserviceID != "4eef25cf-c340-49bf-8ecf-eef40ff8b647" {
		t.Errorf("MicroserviceID = %q", config.MicroserviceID)
	}
	if config.DefaultEnvironment != "local" {
		t.Errorf("DefaultEnvironment = %q, want local", config.DefaultEnvironment)
	}
	if config.Logging.Level != "debug" || config.Logging.MaxSizeMB != 10 {
		t.Errorf("Logging = %+v", config.Logging)
	}
	if config.DiffTool.Bin != "migrate-diff" || len(config.DiffTool.Args) != 2 {
		t.Errorf("DiffTool = %+v", config.DiffTool)
	}
	if _, ok := config.Environments["staging"]; !ok {
		t.Errorf("Environments = %+v, missing staging", config.Environments)
	}
}

func TestLoadConfigSearchesUpward(t *testing.T) {
	tempDir := t.TempDir()
	configPath := writeConfig(t, tempDir, exampleConfig)

	nested := filepath.Join(tempDir, "services", "billing")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	config, err := loadConfigFrom(nested)
	if err != nil {
		t.Fatalf("loadConfigFrom() returned error: %v", err)
	}
	if config.ConfigFilePath != configPath {
		t.Errorf("ConfigFilePath = %q, want %q", config.ConfigFilePath, configPath)
	}
}

func TestLoadConfigStopsAtProjectRoot(t *testing.T) {
	tempDir := t.TempDir()
	writeConfig(t, tempDir, exampleConfig)

	// A nested go.mod marks a separate project; the search must not cross it.
	project := filepath.Join(tempDir, "other")
	if err := os.MkdirAll(project, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(project, "go.mod"), []byte("module other\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	config, err := loadConfigFrom(project)
	if err != nil {
		t.Fatalf("loadConfigFrom() returned error: %v", err)
	}
	if config.ConfigFilePath != "" {
		t.Errorf("ConfigFilePath = %q, want empty (search stopped at boundary)", config.ConfigFilePath)
	}
}

func TestLoadConfigMissingFileIsNotAnError(t *testing.T) {
	tempDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tempDir, "go.mod"), []byte("module x\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	config, err := loadConfigFrom(tempDir)
	if err != nil {
		t.Fatalf("loadConfigFrom() returned error: %v", err)
	}
	if config.ConfigFilePath != "" || config.MicroserviceID != "" {
		t.Errorf("config = %+v, want zero value", config)
	}
}

func TestLoadConfigRejectsMalformedToml(t *testing.T) {
	tempDir := t.TempDir()
	writeConfig(t, tempDir, "[environments.local\ndatabase_url = ")

	if _, err := loadConfigFrom(tempDir); err == nil {
		t.Fatal("loadConfigFrom() accepted malformed TOML")
	}
}
