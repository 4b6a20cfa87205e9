package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default("Test Biz", "llc_single_member")
	cfg.Storage.Backend = BackendSQLite
	cfg.Reports.Concurrency = 8
	cfg.Log.Level = "debug"
	cfg.Git.AutoCommit = true

	path := filepath.Join(t.TempDir(), FileName)
	err := Save(path, cfg)
	require.NoError(t, err)

	got, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, cfg, got)
}

func TestDefaults(t *testing.T) {
	cfg := Default("My Company", "llc_single_member")

	assert.Equal(t, "My Company", cfg.Business.Name)
	assert.Equal(t, "llc_single_member", cfg.Business.EntityType)
	assert.Equal(t, "01-01", cfg.Fiscal.YearStart)
	assert.Equal(t, BackendCSV, cfg.Storage.Backend)
	assert.Equal(t, "ledger.db", cfg.Storage.SQLitePath)
	assert.Equal(t, 4, cfg.Reports.Concurrency)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.False(t, cfg.Git.AutoCommit)
	assert.Equal(t, "Balancebook", cfg.Git.AuthorName)
	assert.NoError(t, cfg.Validate())
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_MissingSectionsKeepDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("business:\n  name: Sparse\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Sparse", cfg.Business.Name)
	assert.Equal(t, BackendCSV, cfg.Storage.Backend)
	assert.Equal(t, 4, cfg.Reports.Concurrency)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown backend", "storage:\n  backend: postgres\n", "unknown storage backend"},
		{"bad year start", "fiscal:\n  year_start: \"13-01\"\n", "not MM-DD"},
		{"zero concurrency", "reports:\n  concurrency: 0\n", "at least 1"},
		{"sqlite without path", "storage:\n  backend: sqlite\n  sqlite_path: \"\"\n", "sqlite_path is required"},
		{"not yaml", "business: [\n", "parsing config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))
			_, err := Load(path)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestYAMLFormat(t *testing.T) {
	cfg := Default("Test Biz", "llc_single_member")
	path := filepath.Join(t.TempDir(), FileName)
	err := Save(path, cfg)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "name: Test Biz")
	assert.Contains(t, contents, "entity_type: llc_single_member")
	assert.Contains(t, contents, "year_start: 01-01")
	assert.Contains(t, contents, "backend: csv")
	assert.Contains(t, contents, "concurrency: 4")
}

func TestYearStartFor(t *testing.T) {
	day := func(y, m, d int) time.Time { return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC) }

	tests := []struct {
		yearStart string
		date      time.Time
		want      time.Time
	}{
		{"01-01", day(2024, 6, 15), day(2024, 1, 1)},
		{"01-01", day(2024, 1, 1), day(2024, 1, 1)},
		{"07-01", day(2024, 6, 30), day(2023, 7, 1)},
		{"07-01", day(2024, 7, 1), day(2024, 7, 1)},
		{"07-01", day(2024, 12, 31), day(2024, 7, 1)},
		{"garbage", day(2024, 3, 3), day(2024, 1, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.yearStart+" "+tt.date.Format("2006-01-02"), func(t *testing.T) {
			f := FiscalConfig{YearStart: tt.yearStart}
			assert.Equal(t, tt.want, f.YearStartFor(tt.date))
		})
	}
}
