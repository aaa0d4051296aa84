package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/tradebook/journal"
	"github.com/rustyeddy/tradebook/migrate"
	"github.com/rustyeddy/tradebook/notes"
	"github.com/rustyeddy/tradebook/paths"
	"github.com/rustyeddy/tradebook/trades"
)

// DefaultFile is the config file looked up in the data root.
const DefaultFile = "tradebook.yaml"

// Config represents the complete tradebook configuration
type Config struct {
	Data   DataConfig   `json:"data" yaml:"data"`
	Notes  NotesConfig  `json:"notes" yaml:"notes"`
	Log    LogConfig    `json:"log" yaml:"log"`
	SQLite SQLiteConfig `json:"sqlite" yaml:"sqlite"`
}

// DataConfig locates the data root and the files inside it. Everything but
// Root is relative to Root.
type DataConfig struct {
	Root       string `json:"root" yaml:"root"`
	TradesDir  string `json:"trades_dir" yaml:"trades_dir"`
	LedgerFile string `json:"ledger_file" yaml:"ledger_file"`
	BackupsDir string `json:"backups_dir" yaml:"backups_dir"`
}

// NotesConfig controls how note files are recognised and placed.
type NotesConfig struct {
	Extensions []string `json:"extensions" yaml:"extensions"`
	PathScheme string   `json:"path_scheme" yaml:"path_scheme"` // "folder" or "calendar"
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Pretty bool   `json:"pretty" yaml:"pretty"`
}

// SQLiteConfig is where `export sqlite` writes, relative to the data root
// unless absolute.
type SQLiteConfig struct {
	Path string `json:"path" yaml:"path"`
}

// LoadFromFile loads configuration from a file (YAML or JSON). Keys the file
// leaves out keep their Default values.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

var logLevels = []string{"", "debug", "info", "warn", "warning", "error", "err", "disabled", "off"}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Data.Root == "" {
		return fmt.Errorf("data.root is required")
	}
	for _, f := range []struct{ key, val string }{
		{"data.trades_dir", c.Data.TradesDir},
		{"data.ledger_file", c.Data.LedgerFile},
		{"data.backups_dir", c.Data.BackupsDir},
	} {
		if err := checkRelative(f.key, f.val); err != nil {
			return err
		}
	}
	tradesDir, backups := path.Clean(c.Data.TradesDir), path.Clean(c.Data.BackupsDir)
	if tradesDir == backups || strings.HasPrefix(backups, tradesDir+"/") {
		return fmt.Errorf("data.backups_dir must not be inside data.trades_dir")
	}
	if strings.HasPrefix(path.Clean(c.Data.LedgerFile), tradesDir+"/") {
		return fmt.Errorf("data.ledger_file must not be inside data.trades_dir")
	}

	if len(c.Notes.Extensions) == 0 {
		return fmt.Errorf("notes.extensions needs at least one entry")
	}
	for _, ext := range c.Notes.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return fmt.Errorf("notes.extensions: %q must look like \".md\"", ext)
		}
	}
	switch notes.Scheme(c.Notes.PathScheme) {
	case notes.SchemeFolder, notes.SchemeCalendar:
	default:
		return fmt.Errorf("notes.path_scheme must be 'folder' or 'calendar'")
	}

	if !slices.Contains(logLevels, strings.ToLower(c.Log.Level)) {
		return fmt.Errorf("unknown log.level: %s", c.Log.Level)
	}
	if c.SQLite.Path == "" {
		return fmt.Errorf("sqlite.path is required")
	}
	return nil
}

func checkRelative(key, p string) error {
	if p == "" {
		return fmt.Errorf("%s is required", key)
	}
	if path.IsAbs(p) {
		return fmt.Errorf("%s must be relative to data.root", key)
	}
	clean := path.Clean(p)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("%s must stay inside data.root", key)
	}
	return nil
}

// Scheme returns the note path scheme.
func (c *Config) Scheme() notes.Scheme {
	return notes.Scheme(c.Notes.PathScheme)
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Data: DataConfig{
			Root:       ".",
			TradesDir:  paths.DefaultRoot,
			LedgerFile: journal.DefaultPath,
			BackupsDir: migrate.DefaultBackupsDir,
		},
		Notes: NotesConfig{
			Extensions: slices.Clone(trades.DefaultNoteExtensions),
			PathScheme: string(notes.SchemeFolder),
		},
		Log: LogConfig{
			Level: "info",
		},
		SQLite: SQLiteConfig{
			Path: "tradebook.db",
		},
	}
}
