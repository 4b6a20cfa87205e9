package model

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestAddLine_RejectsNonPositiveAmounts(t *testing.T) {
	for _, amt := range []string{"0", "0.00", "-1", "-100.00"} {
		e := NewDraft(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), "test")
		err := e.AddLine(Debit, "1000", dec(amt), "")
		require.Error(t, err, "amount %s", amt)
		assert.ErrorIs(t, err, ErrInvalidAmount)
		assert.Empty(t, e.Lines)
	}
}

func TestAddLine_InvalidSide(t *testing.T) {
	e := NewDraft(time.Now(), "test")
	assert.Error(t, e.AddLine(Side("sideways"), "1000", dec("1"), ""))
}

func TestTotalsAndBalance(t *testing.T) {
	e := NewDraft(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), "split")
	require.NoError(t, e.AddLine(Debit, "5020", dec("60.00"), ""))
	require.NoError(t, e.AddLine(Debit, "5030", dec("40.00"), ""))
	require.NoError(t, e.AddLine(Credit, "1000", dec("100.00"), ""))

	assert.True(t, e.TotalDebits().Equal(dec("100")))
	assert.True(t, e.TotalCredits().Equal(dec("100")))
	assert.True(t, e.IsBalanced())
	assert.True(t, e.HasBothSides())

	require.NoError(t, e.RemoveLine(1))
	assert.False(t, e.IsBalanced())
	assert.Error(t, e.RemoveLine(5))
}

func TestIsBalanced_ExactEquality(t *testing.T) {
	e := NewDraft(time.Now(), "off by a cent")
	require.NoError(t, e.AddLine(Debit, "1000", dec("100.00"), ""))
	require.NoError(t, e.AddLine(Credit, "4000", dec("99.999"), ""))
	assert.False(t, e.IsBalanced())
}

func TestPostedEntryIsImmutable(t *testing.T) {
	e := NewDraft(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), "sale")
	require.NoError(t, e.AddLine(Debit, "1000", dec("500"), ""))
	require.NoError(t, e.AddLine(Credit, "4000", dec("500"), ""))
	require.NoError(t, e.MarkPosted("2024-02-001"))

	assert.True(t, e.IsPosted())
	assert.ErrorIs(t, e.AddLine(Debit, "1000", dec("1"), ""), ErrEntryPosted)
	assert.ErrorIs(t, e.RemoveLine(0), ErrEntryPosted)
	assert.ErrorIs(t, e.MarkPosted("2024-02-002"), ErrEntryPosted)
	assert.Equal(t, "2024-02-001", e.ID)
}

func TestPostedLines(t *testing.T) {
	e := NewDraft(time.Date(2024, 2, 1, 15, 30, 0, 0, time.UTC), "sale")
	e.Reference = "INV-1"
	require.NoError(t, e.AddLine(Debit, "1000", dec("500"), "cash in"))
	require.NoError(t, e.AddLine(Credit, "4000", dec("500"), ""))
	require.NoError(t, e.MarkPosted("2024-02-001"))

	lines := e.PostedLines()
	require.Len(t, lines, 2)
	assert.Equal(t, "2024-02-001", lines[0].EntryID)
	assert.Equal(t, 0, lines[0].LineNo)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), lines[0].Date)
	assert.Equal(t, "cash in", lines[0].LineDescription)
	assert.Equal(t, "INV-1", lines[1].Reference)
	assert.True(t, lines[0].Debit().Equal(dec("500")))
	assert.True(t, lines[0].Credit().IsZero())
	assert.True(t, lines[1].Credit().Equal(dec("500")))
}

func TestParseSide(t *testing.T) {
	tests := []struct {
		in   string
		want Side
	}{
		{"debit", Debit}, {"D", Debit}, {"dr", Debit},
		{"CREDIT", Credit}, {"c", Credit}, {" cr ", Credit},
	}
	for _, tt := range tests {
		got, err := ParseSide(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	_, err := ParseSide("x")
	assert.Error(t, err)
}

func TestAccountTypeEffect(t *testing.T) {
	debits, credits := dec("300"), dec("100")
	assert.True(t, AccountTypeAsset.Effect(debits, credits).Equal(dec("200")))
	assert.True(t, AccountTypeExpense.Effect(debits, credits).Equal(dec("200")))
	assert.True(t, AccountTypeLiability.Effect(debits, credits).Equal(dec("-200")))
	assert.True(t, AccountTypeEquity.Effect(debits, credits).Equal(dec("-200")))
	assert.True(t, AccountTypeIncome.Effect(debits, credits).Equal(dec("-200")))
}

func TestParseAccountType(t *testing.T) {
	for _, at := range AccountTypes {
		got, err := ParseAccountType(string(at))
		require.NoError(t, err)
		assert.Equal(t, at, got)
	}
	got, err := ParseAccountType("Income")
	require.NoError(t, err)
	assert.Equal(t, AccountTypeIncome, got)

	_, err = ParseAccountType("revenue")
	assert.ErrorIs(t, err, ErrInvalidAccountType)
	_, err = ParseAccountType("")
	assert.ErrorIs(t, err, ErrInvalidAccountType)
}

func TestStructuredErrorsUnwrap(t *testing.T) {
	var err error = &UnbalancedEntryError{Debits: dec("100"), Credits: dec("90")}
	assert.True(t, errors.Is(err, ErrUnbalancedEntry))
	assert.Contains(t, err.Error(), "100.00")

	err = &AccountNotFoundError{Code: "9999"}
	assert.True(t, errors.Is(err, ErrAccountNotFound))
	err = &AccountNotFoundError{Code: "1000", Inactive: true}
	assert.Contains(t, err.Error(), "inactive")

	err = &InconsistentStatementError{Statement: "balance sheet", Left: dec("10"), Right: dec("9"), Difference: dec("1")}
	assert.True(t, errors.Is(err, ErrInconsistentStatement))
}

func TestDateRangeContains(t *testing.T) {
	from := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC)
	r := DateRange{From: &from, To: &to}

	assert.True(t, r.Contains(from))
	assert.True(t, r.Contains(to.Add(23*time.Hour)))
	assert.False(t, r.Contains(from.AddDate(0, 0, -1)))
	assert.False(t, r.Contains(to.AddDate(0, 0, 1)))
	assert.True(t, DateRange{}.Contains(time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)))
}
