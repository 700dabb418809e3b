// Package manifest persists the last-known generated data model for a
// microservice.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pullstream/schemaguard/internal/model"
)

// Version is the current manifest file format version.
const Version = "1"

// Manifest is the persisted snapshot of the last successfully generated data
// model. It is absent on first generation and rewritten in full after every
// successful run, including any auto-applied fixes.
type Manifest struct {
	Version        string                 `json:"version"`
	MicroserviceID string                 `json:"microserviceId"`
	GeneratedAt    time.Time              `json:"generatedAt"`
	Models         map[string]model.Model `json:"models"`
	AppliedFixes   []AppliedFix           `json:"appliedFixes,omitempty"`
}

// FixMadeOptional is the only auto-fix currently applied: a new required
// field on an existing model is forced optional.
const FixMadeOptional = "made_optional"

// AppliedFix is the audit record for one automatically applied fix.
type AppliedFix struct {
	AppliedAt time.Time `json:"appliedAt"`
	Model     string    `json:"model"`
	Field     string    `json:"field"`
	FieldID   string    `json:"fieldId"`
	Fix       string    `json:"fix"`
	Reason    string    `json:"reason"`
}

// Store loads and saves the manifest at a fixed path.
type Store struct {
	path string
}

// NewStore returns a store for the manifest file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the manifest file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the manifest. A missing file is not an error: it returns
// (nil, nil) and signals first generation to the analyzer.
func (s *Store) Load() (*Manifest, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read manifest %s: %w", s.path, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", s.path, err)
	}
	return &m, nil
}

// Save writes the manifest atomically (temp file, then rename) so a crash
// mid-write cannot leave a truncated snapshot behind.
func (s *Store) Save(m *Manifest) error {
	if m == nil {
		return errors.New("nil manifest")
	}
	if m.Version == "" {
		m.Version = Version
	}

	dir := filepath.Dir(s.path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create manifest directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	tmpFile := s.path + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := os.Rename(tmpFile, s.path); err != nil {
		return fmt.Errorf("failed to save manifest: %w", err)
	}
	return nil
}

// Clear removes the manifest file. Missing files are ignored.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
