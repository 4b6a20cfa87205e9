package book

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cleared-dev/balancebook/internal/config"
	"github.com/cleared-dev/balancebook/internal/gitops"
	"github.com/cleared-dev/balancebook/internal/ledger"
	"github.com/cleared-dev/balancebook/internal/model"
)

func initBook(t *testing.T, backend string) *Book {
	t.Helper()
	ctx := context.Background()
	root := t.TempDir()
	cfg := config.Default("Test Biz", "llc_single_member")
	cfg.Storage.Backend = backend
	require.NoError(t, Init(ctx, root, cfg, false))

	b, err := Open(ctx, root, Options{
		Logger: zap.NewNop(),
		Clock:  ledger.FixedClock{Date: time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)},
	})
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func TestOpen_NotABook(t *testing.T) {
	_, err := Open(context.Background(), t.TempDir(), Options{Logger: zap.NewNop()})
	assert.ErrorIs(t, err, ErrNotABook)
}

func TestInit_RefusesExisting(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	require.NoError(t, Init(ctx, root, config.Default("A", "sole_proprietor"), false))
	err := Init(ctx, root, config.Default("B", "sole_proprietor"), false)
	assert.ErrorContains(t, err, "already exists")
}

func TestInit_Layout(t *testing.T) {
	b := initBook(t, config.BackendCSV)
	for _, d := range []string{"accounts", "drafts", "import", filepath.Join("import", "processed")} {
		info, err := os.Stat(filepath.Join(b.Root, d))
		require.NoError(t, err, d)
		assert.True(t, info.IsDir())
	}
	_, err := os.Stat(filepath.Join(b.Root, "accounts", "chart-of-accounts.csv"))
	assert.NoError(t, err)
}

// Both backends must behave identically end to end.
func TestBook_PostAndReport(t *testing.T) {
	for _, backend := range []string{config.BackendCSV, config.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			b := initBook(t, backend)

			cash, err := b.Accounts.Get("1000")
			require.NoError(t, err)
			cash.OpeningBalance = decimal.RequireFromString("1000")
			require.NoError(t, b.Accounts.Update(cash))
			equity, err := b.Accounts.Get("3010")
			require.NoError(t, err)
			equity.OpeningBalance = decimal.RequireFromString("1000")
			require.NoError(t, b.Accounts.Update(equity))
			require.NoError(t, b.SaveAccounts(ctx))

			// Reopen so the saved chart is what the engine sees.
			reopened, err := Open(ctx, b.Root, Options{Logger: zap.NewNop()})
			require.NoError(t, err)
			defer reopened.Close()

			e := model.NewDraft(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), "Invoice 1")
			require.NoError(t, e.AddLine(model.Debit, "1000", decimal.RequireFromString("500.00"), ""))
			require.NoError(t, e.AddLine(model.Credit, "4010", decimal.RequireFromString("500.00"), ""))
			id, err := reopened.Journal.Post(ctx, e)
			require.NoError(t, err)
			assert.Equal(t, "2024-02-001", id)

			asOf := time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC)
			bal, err := reopened.Reports.Calculator().ComputeBalance(ctx, "1000", nil, &asOf)
			require.NoError(t, err)
			assert.Equal(t, "1500", bal.Closing.String())

			bs, err := reopened.Reports.BalanceSheet(ctx, &asOf)
			require.NoError(t, err)
			assert.True(t, bs.Balanced)
			assert.Equal(t, "500", bs.RetainedEarnings.String())

			assert.InDelta(t, 1, reopened.Metrics.PostCount("posted"), 0.001)
		})
	}
}

func TestCheckpoint(t *testing.T) {
	b := initBook(t, config.BackendCSV)
	ctx := context.Background()

	// Off by default.
	hash, err := b.Checkpoint(ctx, "post: x")
	require.NoError(t, err)
	assert.Empty(t, hash)

	if !gitops.Available() {
		t.Skip("git not installed")
	}
	root := t.TempDir()
	require.NoError(t, Init(ctx, root, config.Default("Git Biz", "sole_proprietor"), true))
	g, err := Open(ctx, root, Options{Logger: zap.NewNop()})
	require.NoError(t, err)
	defer g.Close()
	assert.True(t, g.Config.Git.AutoCommit)

	e := model.NewDraft(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "Sale")
	require.NoError(t, e.AddLine(model.Debit, "1000", decimal.NewFromInt(5), ""))
	require.NoError(t, e.AddLine(model.Credit, "4010", decimal.NewFromInt(5), ""))
	_, err = g.Journal.Post(ctx, e)
	require.NoError(t, err)

	hash, err = g.Checkpoint(ctx, "post: 2024-03-001")
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
}
