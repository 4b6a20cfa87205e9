package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the config file at the root of a bookkeeping repository.
const FileName = "balancebook.yaml"

// Storage backends.
const (
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
)

// Config represents the top-level balancebook.yaml configuration.
type Config struct {
	Business BusinessConfig `yaml:"business"`
	Fiscal   FiscalConfig   `yaml:"fiscal"`
	Storage  StorageConfig  `yaml:"storage"`
	Reports  ReportsConfig  `yaml:"reports"`
	Log      LogConfig      `yaml:"log"`
	Git      GitConfig      `yaml:"git"`
}

// BusinessConfig identifies the business entity.
type BusinessConfig struct {
	Name       string `yaml:"name"`
	EntityType string `yaml:"entity_type"`
}

// FiscalConfig defines the fiscal year boundaries.
type FiscalConfig struct {
	YearStart string `yaml:"year_start"` // "MM-DD" format, e.g. "01-01"
}

// StorageConfig selects where journal entries and accounts live.
type StorageConfig struct {
	Backend    string `yaml:"backend"`               // csv | sqlite
	SQLitePath string `yaml:"sqlite_path,omitempty"` // relative to the repo root
}

// ReportsConfig tunes statement generation.
type ReportsConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// LogConfig sets the default log level; the --log-level flag overrides it.
type LogConfig struct {
	Level string `yaml:"level"`
}

// GitConfig controls git integration for CSV repositories.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// Path returns the config location under a repo root.
func Path(repoRoot string) string {
	return filepath.Join(repoRoot, FileName)
}

// Load reads a balancebook.yaml file from disk and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default("", "")
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new project.
func Default(businessName, entityType string) *Config {
	return &Config{
		Business: BusinessConfig{
			Name:       businessName,
			EntityType: entityType,
		},
		Fiscal: FiscalConfig{
			YearStart: "01-01",
		},
		Storage: StorageConfig{
			Backend:    BackendCSV,
			SQLitePath: "ledger.db",
		},
		Reports: ReportsConfig{
			Concurrency: 4,
		},
		Log: LogConfig{
			Level: "warn",
		},
		Git: GitConfig{
			AutoCommit:  false,
			AuthorName:  "Balancebook",
			AuthorEmail: "books@balancebook.local",
		},
	}
}

// Validate reports the first malformed setting.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendCSV:
	case BackendSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("storage.sqlite_path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if _, _, err := c.Fiscal.monthDay(); err != nil {
		return err
	}
	if c.Reports.Concurrency < 1 {
		return fmt.Errorf("reports.concurrency must be at least 1, got %d", c.Reports.Concurrency)
	}
	return nil
}

func (f FiscalConfig) monthDay() (time.Month, int, error) {
	t, err := time.Parse("01-02", f.YearStart)
	if err != nil {
		return 0, 0, fmt.Errorf("fiscal.year_start %q is not MM-DD", f.YearStart)
	}
	return t.Month(), t.Day(), nil
}

// YearStartFor returns the first day of the fiscal year containing d.
// An invalid YearStart falls back to January 1.
func (f FiscalConfig) YearStartFor(d time.Time) time.Time {
	m, day, err := f.monthDay()
	if err != nil {
		m, day = time.January, 1
	}
	start := time.Date(d.Year(), m, day, 0, 0, 0, 0, time.UTC)
	if start.After(time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)) {
		start = start.AddDate(-1, 0, 0)
	}
	return start
}
