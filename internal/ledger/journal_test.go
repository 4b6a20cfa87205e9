package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/balancebook/internal/accounts"
	"github.com/cleared-dev/balancebook/internal/journal"
	"github.com/cleared-dev/balancebook/internal/model"
)

// Balances computed over entries posted through the journal service.
func TestPostedEntriesDriveBalances(t *testing.T) {
	ctx := context.Background()
	chart := accounts.NewService([]model.Account{cashAccount(), revenueAccount()})
	svc := journal.NewService(journal.NewCSVStore(t.TempDir()), chart, nil, nil)
	calc := NewCalculator(chart, svc, nil)

	sale := model.NewDraft(date(2024, 2, 1), "Invoice 1")
	require.NoError(t, sale.AddLine(model.Debit, "1000", dec("500.00"), ""))
	require.NoError(t, sale.AddLine(model.Credit, "4000", dec("500.00"), ""))
	_, err := svc.Post(ctx, sale)
	require.NoError(t, err)

	cash, err := calc.ComputeBalance(ctx, "1000", nil, ptr(2024, 2, 28))
	require.NoError(t, err)
	assertDec(t, "1500.00", cash.Closing)

	// A rejected post leaves every balance where it was.
	bad := model.NewDraft(date(2024, 2, 2), "Typo")
	require.NoError(t, bad.AddLine(model.Debit, "1000", dec("100.00"), ""))
	require.NoError(t, bad.AddLine(model.Credit, "4000", dec("90.00"), ""))
	_, err = svc.Post(ctx, bad)
	require.ErrorIs(t, err, model.ErrUnbalancedEntry)

	again, err := calc.ComputeBalance(ctx, "1000", nil, ptr(2024, 2, 28))
	require.NoError(t, err)
	assert.True(t, again.Closing.Equal(cash.Closing))

	rev, err := calc.ComputeBalance(ctx, "4000", ptr(2024, 1, 1), ptr(2024, 2, 28))
	require.NoError(t, err)
	assertDec(t, "500.00", rev.PeriodCredits)

	// Saved drafts never reach the calculator.
	draft := model.NewDraft(date(2024, 2, 3), "pending")
	require.NoError(t, draft.AddLine(model.Debit, "1000", dec("7"), ""))
	require.NoError(t, draft.AddLine(model.Credit, "4000", dec("7"), ""))
	require.NoError(t, svc.SaveDraft(ctx, draft))

	still, err := calc.ComputeBalance(ctx, "1000", nil, nil)
	require.NoError(t, err)
	assertDec(t, "1500.00", still.Closing)
}
