package commands

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/balancebook/internal/book"
	"github.com/cleared-dev/balancebook/internal/config"
	"github.com/cleared-dev/balancebook/internal/ledger"
	"github.com/cleared-dev/balancebook/internal/observability"
)

// execute runs one command line against a fresh command tree sharing g.
func execute(t *testing.T, g *globals, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	root := newRootCommand(g)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	require.NoError(t, root.Execute(), out.String())
	return out.String()
}

func TestDefaultsFollowInjectedClock(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, book.Init(context.Background(), dir, config.Default("Clock Biz", "llc_single_member"), false))

	g := &globals{
		metrics: observability.NewMetrics(),
		clock:   ledger.FixedClock{Date: time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)},
	}

	out := execute(t, g, "--repo", dir, "entry", "record", "-d", "Sale",
		"-l", "debit:1000:5", "-l", "credit:4010:5")
	assert.Contains(t, out, "Posted 2024-03-001  2024-03-15")

	// Dated after the clock's today, so today's balances leave it out.
	execute(t, g, "--repo", dir, "entry", "record", "--date", "2024-04-01", "-d", "Later",
		"-l", "debit:1000:7", "-l", "credit:4010:7")

	out = execute(t, g, "--repo", dir, "account", "show", "1000")
	assert.Regexp(t, `Balance:\s+5\.00`, out)

	out = execute(t, g, "--repo", dir, "report", "trial-balance")
	assert.Contains(t, out, "Trial balance 2024-01-01 to 2024-03-15")

	out = execute(t, g, "--repo", dir, "report", "income-statement")
	assert.Contains(t, out, "Income statement 2024-01-01 to 2024-03-15")
	assert.Regexp(t, `Net income\s+5\.00`, out)

	out = execute(t, g, "--repo", dir, "report", "balance-sheet")
	assert.Contains(t, out, "Balance sheet as of 2024-03-15")
}
