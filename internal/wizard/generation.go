package wizard

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"

	"github.com/pullstream/schemaguard/internal/config"
)

// GenerateFiles creates schemaguard.toml and the environment's .env file in
// the current directory. An existing config keeps its other environments.
func GenerateFiles(env EnvironmentInput) (*InitResult, error) {
	result := &InitResult{}

	configPath := config.ConfigFileName
	fileExists := false
	if _, err := os.Stat(configPath); err == nil {
		fileExists = true
	}

	if err := writeConfigTOML(configPath, env); err != nil {
		return nil, fmt.Errorf("failed to generate %s: %w", configPath, err)
	}
	result.ConfigPath = configPath
	if fileExists {
		result.ConfigUpdated = true
	} else {
		result.ConfigCreated = true
	}

	envFilePath := ".env." + env.Name
	if err := writeEnvFile(envFilePath, env); err != nil {
		return nil, fmt.Errorf("failed to generate %s: %w", envFilePath, err)
	}
	result.EnvFile = envFilePath

	if err := updateGitignore(env.Name); err != nil {
		return nil, fmt.Errorf("failed to update .gitignore: %w", err)
	}
	result.GitignoreUpdated = true

	return result, nil
}

type tomlEnvironment struct {
	DatabaseURL string `toml:"database_url,omitempty"`
	SchemaPath  string `toml:"schema_path,omitempty"`
}

type tomlConfig struct {
	MicroserviceID     string                     `toml:"microservice_id"`
	DefaultEnvironment string                     `toml:"default_environment"`
	SchemaPath         string                     `toml:"schema_path,omitempty"`
	Environments       map[string]tomlEnvironment `toml:"environments"`
}

func writeConfigTOML(path string, env EnvironmentInput) error {
	cfg := tomlConfig{
		Environments: make(map[string]tomlEnvironment),
	}

	// Preserve everything an existing config already declares.
	if data, err := os.ReadFile(path); err == nil {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("existing config is not valid TOML: %w", err)
		}
		if cfg.Environments == nil {
			cfg.Environments = make(map[string]tomlEnvironment)
		}
	}

	if cfg.MicroserviceID == "" {
		cfg.MicroserviceID = env.MicroserviceID
	}
	if cfg.MicroserviceID == "" {
		cfg.MicroserviceID = uuid.NewString()
	}
	if cfg.DefaultEnvironment == "" {
		cfg.DefaultEnvironment = env.Name
	}
	if env.SchemaPath != "" {
		cfg.SchemaPath = env.SchemaPath
	}

	// The connection string goes into the .env file, not the committed
	// config.
	cfg.Environments[env.Name] = tomlEnvironment{}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}

	header := "# schemaguard configuration\n# Connection strings live in .env.<environment> files.\n\n"
	return os.WriteFile(path, []byte(header+string(data)), 0o644)
}

func writeEnvFile(path string, env EnvironmentInput) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# Environment: %s\n", env.Name)
	switch env.DatabaseType {
	case "postgres":
		fmt.Fprintf(&b, "POSTGRES_URL=%s\n", env.DatabaseURL)
	case "libsql":
		fmt.Fprintf(&b, "LIBSQL_URL=%s\n", env.DatabaseURL)
		b.WriteString("# LIBSQL_AUTH_TOKEN=\n")
	default:
		fmt.Fprintf(&b, "SQLITE_DB_PATH=%s\n", env.DatabaseURL)
	}
	return os.WriteFile(path, []byte(b.String()), 0o600)
}

// updateGitignore makes sure the environment file and the local state
// directory are ignored.
func updateGitignore(envName string) error {
	entries := []string{".env." + envName, ".schemaguard/"}

	existing := ""
	if data, err := os.ReadFile(".gitignore"); err == nil {
		existing = string(data)
	}

	var missing []string
	for _, entry := range entries {
		if !containsLine(existing, entry) {
			missing = append(missing, entry)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString(existing)
	if existing != "" && !strings.HasSuffix(existing, "\n") {
		b.WriteString("\n")
	}
	for _, entry := range missing {
		b.WriteString(entry)
		b.WriteString("\n")
	}
	return os.WriteFile(".gitignore", []byte(b.String()), 0o644)
}

func containsLine(content, line string) bool {
	for _, l := range strings.Split(content, "\n") {
		if strings.TrimSpace(l) == line {
			return true
		}
	}
	return false
}
