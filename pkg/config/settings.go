// Package config loads and saves the user's MuteTool settings.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/NicolasHaas/mutetool/pkg/logging"
)

const appDir = "mutetool"

// Settings stores user preferences persisted as YAML in the user config
// directory.
type Settings struct {
	Shortcut    string        `yaml:"shortcut"`
	Sounds      bool          `yaml:"sounds"`
	QuitDelay   time.Duration `yaml:"quit_delay"`
	LogLevel    string        `yaml:"log_level"`
	LogFormat   string        `yaml:"log_format"`
	JournalPath string        `yaml:"journal_path,omitempty"` // empty: journal disabled
	MetricsAddr string        `yaml:"metrics_addr,omitempty"` // empty: no HTTP endpoint
}

// DefaultSettings returns default settings.
func DefaultSettings() *Settings {
	return &Settings{
		Shortcut:    DefaultShortcut(),
		Sounds:      true,
		QuitDelay:   time.Second,
		LogLevel:    "info",
		LogFormat:   "text",
		JournalPath: DefaultJournalPath(),
	}
}

// DefaultPath is <user config dir>/mutetool/settings.yaml, or
// settings.yaml in the working directory when there is no config dir.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "settings.yaml"
	}
	return filepath.Join(dir, appDir, "settings.yaml")
}

// DefaultJournalPath is <user config dir>/mutetool/journal.db.
func DefaultJournalPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "journal.db"
	}
	return filepath.Join(dir, appDir, "journal.db")
}

// Load reads settings from path. A missing file yields defaults; a
// malformed or invalid file is logged and also yields defaults.
func Load(path string) *Settings {
	data, err := os.ReadFile(path) //nolint:gosec // path from user-provided flag
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("read settings", "path", path, "err", err)
		}
		return DefaultSettings()
	}

	s, err := Parse(data)
	if err != nil {
		slog.Error("parse settings", "path", path, "err", err)
		return DefaultSettings()
	}
	return s
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Settings, error) {
	s := DefaultSettings()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Save writes settings to path, creating the directory if needed.
func (s *Settings) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("config: create dir: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate checks the shortcut, log options and quit delay.
func (s *Settings) Validate() error {
	if _, err := ParseShortcut(s.Shortcut); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := logging.Validate(s.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := logging.ValidateFormat(s.LogFormat); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if s.QuitDelay < 0 {
		return fmt.Errorf("config: negative quit_delay %s", s.QuitDelay)
	}
	return nil
}
