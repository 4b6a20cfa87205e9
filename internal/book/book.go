// Package book opens a bookkeeping repository and wires its collaborators:
// config, logging, metrics, the account registry, the entry store, the
// journal service and the statement generator.
package book

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/cleared-dev/balancebook/internal/accounts"
	"github.com/cleared-dev/balancebook/internal/config"
	"github.com/cleared-dev/balancebook/internal/gitops"
	"github.com/cleared-dev/balancebook/internal/importer"
	"github.com/cleared-dev/balancebook/internal/journal"
	"github.com/cleared-dev/balancebook/internal/ledger"
	"github.com/cleared-dev/balancebook/internal/observability"
	"github.com/cleared-dev/balancebook/internal/store/sqlite"
)

// ErrNotABook is returned when the directory has no balancebook.yaml.
var ErrNotABook = errors.New("not a balancebook repository (run `balancebook init`)")

// Options override parts of the on-disk configuration. Zero values fall back
// to the config file, a new metrics registry and the system clock.
type Options struct {
	LogLevel string
	Logger   *zap.Logger
	Clock    ledger.Clock
	Metrics  *observability.Metrics
}

// Book is an open bookkeeping repository.
type Book struct {
	Root     string
	Config   *config.Config
	Logger   *zap.Logger
	Metrics  *observability.Metrics
	Clock    ledger.Clock
	Accounts *accounts.Service
	Journal  *journal.Service
	Reports  *ledger.Generator

	db *sqlite.Store // nil for the CSV backend
}

// Open loads the repository at root.
func Open(ctx context.Context, root string, opts Options) (*Book, error) {
	cfg, err := config.Load(config.Path(root))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", root, ErrNotABook)
		}
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		level := cfg.Log.Level
		if opts.LogLevel != "" {
			level = opts.LogLevel
		}
		if logger, err = observability.NewLogger(level); err != nil {
			return nil, err
		}
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = observability.NewMetrics()
	}

	clock := opts.Clock
	if clock == nil {
		clock = ledger.SystemClock{}
	}

	b := &Book{Root: root, Config: cfg, Logger: logger, Metrics: metrics, Clock: clock}

	var store journal.Store
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		db, err := sqlite.New(b.sqlitePath())
		if err != nil {
			return nil, fmt.Errorf("opening ledger database: %w", err)
		}
		accts, err := db.LoadAccounts(ctx)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("loading accounts: %w", err)
		}
		b.db = db
		b.Accounts = accounts.NewService(accts)
		store = db
	default:
		if b.Accounts, err = accounts.Load(root); err != nil {
			return nil, err
		}
		store = journal.NewCSVStore(root)
	}

	b.Journal = journal.NewService(store, b.Accounts, metrics, logger.Named("journal"))
	calc := ledger.NewCalculator(b.Accounts, store, metrics)
	b.Reports = ledger.NewGenerator(calc, clock, cfg.Reports.Concurrency, metrics, logger.Named("ledger"))

	logger.Debug("book opened",
		zap.String("root", root),
		zap.String("backend", cfg.Storage.Backend),
		zap.Int("accounts", len(b.Accounts.All())),
	)
	return b, nil
}

func (b *Book) sqlitePath() string {
	if filepath.IsAbs(b.Config.Storage.SQLitePath) {
		return b.Config.Storage.SQLitePath
	}
	return filepath.Join(b.Root, b.Config.Storage.SQLitePath)
}

// SaveAccounts persists the registry to the configured backend.
func (b *Book) SaveAccounts(ctx context.Context) error {
	if b.db != nil {
		return b.db.SaveAccounts(ctx, b.Accounts.All())
	}
	return b.Accounts.Save(b.Root)
}

// Checkpoint commits the working tree when git.auto_commit is on and the
// repository is under git. Returns the short hash, or "" if nothing was committed.
func (b *Book) Checkpoint(ctx context.Context, message string) (string, error) {
	if !b.Config.Git.AutoCommit || !gitops.IsRepo(b.Root) {
		return "", nil
	}
	hash, err := gitops.CommitAll(ctx, b.Root, message, gitops.Author{
		Name:  b.Config.Git.AuthorName,
		Email: b.Config.Git.AuthorEmail,
	})
	if err != nil {
		return "", fmt.Errorf("committing %q: %w", message, err)
	}
	if hash != "" {
		b.Logger.Info("committed", zap.String("hash", hash), zap.String("message", message))
	}
	return hash, nil
}

// Close releases the database and flushes the logger.
func (b *Book) Close() error {
	_ = b.Logger.Sync()
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

// Init lays out a new repository at root: config, chart of accounts, the
// journal and import directories, and a git repository when withGit is set.
func Init(ctx context.Context, root string, cfg *config.Config, withGit bool) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := os.Stat(config.Path(root)); err == nil {
		return fmt.Errorf("%s already exists", config.Path(root))
	}

	dirs := []string{
		"accounts",
		"drafts",
		importer.ImportDir,
		importer.ProcessedDir,
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	if withGit {
		cfg.Git.AutoCommit = true
	}
	if err := config.Save(config.Path(root), cfg); err != nil {
		return err
	}

	chart := accounts.NewService(accounts.DefaultChart(cfg.Business.EntityType))
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		path := cfg.Storage.SQLitePath
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, path)
		}
		db, err := sqlite.New(path)
		if err != nil {
			return fmt.Errorf("creating ledger database: %w", err)
		}
		defer db.Close()
		if err := db.SaveAccounts(ctx, chart.All()); err != nil {
			return fmt.Errorf("writing chart of accounts: %w", err)
		}
	default:
		if err := chart.Save(root); err != nil {
			return fmt.Errorf("writing chart of accounts: %w", err)
		}
	}

	gitignore := "*.db-wal\n*.db-shm\n" + importer.ImportDir + "/*.csv\n"
	if err := os.WriteFile(filepath.Join(root, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	if !withGit {
		return nil
	}
	if err := gitops.Init(ctx, root); err != nil {
		return err
	}
	_, err := gitops.CommitAll(ctx, root, "init: "+cfg.Business.Name, gitops.Author{
		Name:  cfg.Git.AuthorName,
		Email: cfg.Git.AuthorEmail,
	})
	return err
}
