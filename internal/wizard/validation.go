package wizard

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var envNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// validateEnvironmentName checks that the name is usable as a TOML table key
// and a .env file suffix.
func validateEnvironmentName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("environment name is required")
	}
	if !envNamePattern.MatchString(name) {
		return fmt.Errorf("environment name must start with a letter and contain only lowercase letters, digits, - and _")
	}
	return nil
}

// validateDatabaseURL checks the URL matches the selected database type.
func validateDatabaseURL(dbType, url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return fmt.Errorf("database URL is required")
	}
	switch dbType {
	case "postgres":
		if !strings.HasPrefix(url, "postgres://") && !strings.HasPrefix(url, "postgresql://") {
			return fmt.Errorf("PostgreSQL URLs start with postgres://")
		}
	case "libsql":
		if !strings.HasPrefix(url, "libsql://") && !strings.HasPrefix(url, "wss://") && !strings.HasPrefix(url, "ws://") {
			return fmt.Errorf("libSQL URLs start with libsql:// or wss://")
		}
	case "sqlite":
		if strings.Contains(url, "://") {
			return fmt.Errorf("SQLite uses a file path, not a URL scheme")
		}
	}
	return nil
}

// validateMicroserviceID accepts an empty value (a fresh id is generated) or
// a well-formed UUID.
func validateMicroserviceID(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("microservice id must be a UUID")
	}
	return nil
}
