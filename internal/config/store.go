package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	env "github.com/Netflix/go-env"
	"github.com/spf13/afero"

	"scribeflow/internal/domain"
)

// Store defines persistence operations for service settings.
type Store interface {
	Load() (domain.Settings, error)
	Save(domain.Settings) error
}

// JSONStore persists settings in a single JSON file.
type JSONStore struct {
	fs   afero.Fs
	path string
}

// NewJSONStore creates a JSON-backed settings store.
func NewJSONStore(fs afero.Fs, path string) *JSONStore {
	return &JSONStore{fs: fs, path: path}
}

// Load reads settings or returns defaults when the file is missing, then
// applies environment variable overrides.
func (s *JSONStore) Load() (domain.Settings, error) {
	cfg := DefaultSettings()

	data, err := afero.ReadFile(s.fs, s.path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return domain.Settings{}, fmt.Errorf("parse settings %s: %w", s.path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// First run; defaults apply.
	default:
		return domain.Settings{}, err
	}

	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return domain.Settings{}, fmt.Errorf("apply environment overrides: %w", err)
	}
	return cfg, nil
}

// Save writes settings as indented JSON and creates parent directories.
func (s *JSONStore) Save(cfg domain.Settings) error {
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return afero.WriteFile(s.fs, s.path, data, 0o644)
}
