package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/balancebook/internal/model"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func entry(t *testing.T, d time.Time, desc, debit, credit, amount string) *model.JournalEntry {
	t.Helper()
	e := model.NewDraft(d, desc)
	require.NoError(t, e.AddLine(model.Debit, debit, decimal.RequireFromString(amount), "dr"))
	require.NoError(t, e.AddLine(model.Credit, credit, decimal.RequireFromString(amount), "cr"))
	return e
}

func TestAccounts_RoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	opened := date(2024, 1, 1)

	chart := []model.Account{
		{Code: "1000", Name: "Cash", Type: model.AccountTypeAsset, Active: true,
			OpeningBalance: decimal.RequireFromString("1000.50"), OpeningBalanceDate: &opened},
		{Code: "1010", Name: "Checking", Type: model.AccountTypeAsset, ParentCode: "1000", Active: false,
			OpeningBalance: decimal.Zero},
	}
	require.NoError(t, s.SaveAccounts(ctx, chart))

	got, err := s.LoadAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Cash", got[0].Name)
	assert.True(t, got[0].OpeningBalance.Equal(decimal.RequireFromString("1000.50")))
	require.NotNil(t, got[0].OpeningBalanceDate)
	assert.Equal(t, opened, *got[0].OpeningBalanceDate)
	assert.Nil(t, got[1].OpeningBalanceDate)
	assert.Equal(t, "1000", got[1].ParentCode)
	assert.False(t, got[1].Active)

	// Saving replaces the table.
	require.NoError(t, s.SaveAccounts(ctx, chart[:1]))
	got, err = s.LoadAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestCommit_AssignsMonthlySequence(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	id1, err := s.Commit(ctx, entry(t, date(2024, 2, 1), "one", "1000", "4000", "10"))
	require.NoError(t, err)
	id2, err := s.Commit(ctx, entry(t, date(2024, 2, 1), "two", "1000", "4000", "20"))
	require.NoError(t, err)
	id3, err := s.Commit(ctx, entry(t, date(2024, 3, 9), "three", "1000", "4000", "30"))
	require.NoError(t, err)

	assert.Equal(t, "2024-02-001", id1)
	assert.Equal(t, "2024-02-002", id2)
	assert.Equal(t, "2024-03-001", id3)
}

func TestCommit_Rejects(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	oneSided := model.NewDraft(date(2024, 2, 1), "x")
	require.NoError(t, oneSided.AddLine(model.Debit, "1000", decimal.NewFromInt(1), ""))
	_, err := s.Commit(ctx, oneSided)
	assert.ErrorIs(t, err, model.ErrEmptyEntry)

	posted := entry(t, date(2024, 2, 1), "x", "1000", "4000", "1")
	require.NoError(t, posted.MarkPosted("2024-02-001"))
	_, err = s.Commit(ctx, posted)
	assert.ErrorIs(t, err, model.ErrEntryPosted)

	missing := entry(t, date(2024, 2, 1), "x", "1000", "4000", "1")
	missing.DraftID = "5f0c8d5e-0000-4000-8000-000000000000"
	_, err = s.Commit(ctx, missing)
	assert.ErrorIs(t, err, model.ErrDraftNotFound)

	// Nothing was written, so the first real commit still gets 001.
	id, err := s.Commit(ctx, entry(t, date(2024, 2, 1), "ok", "1000", "4000", "1"))
	require.NoError(t, err)
	assert.Equal(t, "2024-02-001", id)
}

func TestEntriesAndPostedLines(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, err := s.Commit(ctx, entry(t, date(2024, 2, 10), "later", "1000", "4000", "20.25"))
	require.NoError(t, err)
	_, err = s.Commit(ctx, entry(t, date(2024, 1, 5), "earlier", "5020", "1000", "5"))
	require.NoError(t, err)
	_, err = s.Commit(ctx, entry(t, date(2024, 2, 10), "same day", "1000", "4000", "1"))
	require.NoError(t, err)

	all, err := s.Entries(ctx, model.DateRange{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "2024-01-001", all[0].ID)
	assert.Equal(t, "2024-02-001", all[1].ID)
	assert.Equal(t, "2024-02-002", all[2].ID)
	assert.True(t, all[1].IsPosted())
	require.Len(t, all[1].Lines, 2)
	assert.Equal(t, model.Debit, all[1].Lines[0].Side)
	assert.True(t, all[1].Lines[0].Amount.Equal(decimal.RequireFromString("20.25")))

	from := date(2024, 2, 1)
	feb, err := s.Entries(ctx, model.DateRange{From: &from})
	require.NoError(t, err)
	assert.Len(t, feb, 2)

	lines, err := s.PostedLines(ctx, "1000", model.DateRange{})
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, "2024-01-001", lines[0].EntryID)
	assert.Equal(t, model.Credit, lines[0].Side)
	assert.Equal(t, 1, lines[0].LineNo)
	assert.Equal(t, "earlier", lines[0].Description)
	assert.Equal(t, "cr", lines[0].LineDescription)
	assert.Equal(t, "2024-02-002", lines[2].EntryID)

	to := date(2024, 1, 31)
	jan, err := s.PostedLines(ctx, "1000", model.DateRange{To: &to})
	require.NoError(t, err)
	assert.Len(t, jan, 1)
}

func TestDrafts_Lifecycle(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	d := entry(t, date(2024, 2, 1), "pending", "1000", "4000", "7")
	d.Reference = "INV-1"
	require.NoError(t, s.SaveDraft(ctx, d))
	require.NotEmpty(t, d.DraftID)

	got, err := s.Draft(ctx, d.DraftID)
	require.NoError(t, err)
	assert.Equal(t, "INV-1", got.Reference)
	assert.Equal(t, model.StateDraft, got.State)
	assert.Len(t, got.Lines, 2)

	// Re-saving replaces lines instead of appending.
	require.NoError(t, d.RemoveLine(1))
	require.NoError(t, d.AddLine(model.Credit, "4010", decimal.NewFromInt(7), ""))
	require.NoError(t, s.SaveDraft(ctx, d))
	got, err = s.Draft(ctx, d.DraftID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 2)
	assert.Equal(t, "4010", got.Lines[1].AccountCode)

	empty := model.NewDraft(date(2024, 1, 1), "no lines yet")
	require.NoError(t, s.SaveDraft(ctx, empty))

	drafts, err := s.Drafts(ctx)
	require.NoError(t, err)
	require.Len(t, drafts, 2)
	assert.Equal(t, "no lines yet", drafts[0].Description)
	assert.Empty(t, drafts[0].Lines)

	// Drafts never show up as posted activity.
	lines, err := s.PostedLines(ctx, "1000", model.DateRange{})
	require.NoError(t, err)
	assert.Empty(t, lines)

	id, err := s.Commit(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-001", id)

	_, err = s.Draft(ctx, d.DraftID)
	assert.ErrorIs(t, err, model.ErrDraftNotFound)

	require.NoError(t, s.DeleteDraft(ctx, empty.DraftID))
	assert.ErrorIs(t, s.DeleteDraft(ctx, empty.DraftID), model.ErrDraftNotFound)
}

func TestNew_FileDatabasePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	s, err := New(path)
	require.NoError(t, err)
	_, err = s.Commit(ctx, entry(t, date(2024, 2, 1), "kept", "1000", "4000", "3"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := New(path)
	require.NoError(t, err)
	defer reopened.Close()

	all, err := reopened.Entries(ctx, model.DateRange{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "kept", all[0].Description)
}
