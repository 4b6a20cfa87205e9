package journal

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/balancebook/internal/model"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRoundTrip(t *testing.T) {
	rows := []Row{
		{
			LineID:          "2025-01-001a",
			Date:            date(2025, 1, 3),
			AccountCode:     "5020",
			Description:     "GitHub Pro subscription",
			LineDescription: "monthly plan",
			Debit:           dec("4.00"),
			Reference:       "INV-17",
			Notes:           "recurring",
		},
		{
			LineID:      "2025-01-001b",
			Date:        date(2025, 1, 3),
			AccountCode: "1010",
			Description: "GitHub Pro subscription",
			Credit:      dec("4.00"),
			Reference:   "INV-17",
			Notes:       "recurring",
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteRows(&buf, rows))

	got, err := ReadRows(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)

	for i := range rows {
		assert.Equal(t, rows[i].LineID, got[i].LineID)
		assert.Equal(t, rows[i].Date, got[i].Date)
		assert.Equal(t, rows[i].AccountCode, got[i].AccountCode)
		assert.Equal(t, rows[i].Description, got[i].Description)
		assert.Equal(t, rows[i].LineDescription, got[i].LineDescription)
		assert.True(t, rows[i].Debit.Equal(got[i].Debit))
		assert.True(t, rows[i].Credit.Equal(got[i].Credit))
		assert.Equal(t, rows[i].Reference, got[i].Reference)
		assert.Equal(t, rows[i].Notes, got[i].Notes)
	}
}

func TestMarshalRow_Amounts(t *testing.T) {
	rec := MarshalRow(Row{LineID: "2025-01-001a", Date: date(2025, 1, 1), AccountCode: "1000", Debit: dec("5")})
	assert.Equal(t, "5.00", rec[colDebit])
	assert.Empty(t, rec[colCredit])

	// Sub-cent precision is kept.
	rec = MarshalRow(Row{LineID: "2025-01-001a", Date: date(2025, 1, 1), AccountCode: "1000", Credit: dec("0.125")})
	assert.Equal(t, "0.125", rec[colCredit])
}

func TestUnmarshalRow_Errors(t *testing.T) {
	tests := []struct {
		name   string
		record []string
		want   string
	}{
		{"short row", []string{"2025-01-001a", "2025-01-01"}, "expected 9 fields"},
		{"bad date", []string{"2025-01-001a", "01/02/2025", "1000", "", "", "1.00", "", "", ""}, "parsing date"},
		{"bad debit", []string{"2025-01-001a", "2025-01-02", "1000", "", "", "one", "", "", ""}, "parsing debit"},
		{"bad credit", []string{"2025-01-001a", "2025-01-02", "1000", "", "", "", "x", "", ""}, "parsing credit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalRow(tt.record)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestReadRows_Empty(t *testing.T) {
	got, err := ReadRows(strings.NewReader(""))
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = ReadRows(strings.NewReader(Header + "\n"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadRows_ReportsRowNumber(t *testing.T) {
	input := Header + "\n" +
		"2025-01-001a,2025-01-02,1000,ok,,1.00,,,\n" +
		"2025-01-001b,2025-01-02,4000,ok,,,oops,,\n"
	_, err := ReadRows(strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 3")
}

func TestRowsFromEntry_EntriesFromRows(t *testing.T) {
	e := model.NewDraft(date(2025, 2, 1), "Invoice 7")
	e.Reference = "INV-7"
	require.NoError(t, e.AddLine(model.Debit, "1000", dec("500.00"), "deposit"))
	require.NoError(t, e.AddLine(model.Credit, "4000", dec("450.00"), ""))
	require.NoError(t, e.AddLine(model.Credit, "2100", dec("50.00"), "sales tax"))
	e.ID = "2025-02-004"

	rows := RowsFromEntry(e)
	require.Len(t, rows, 3)
	assert.Equal(t, "2025-02-004a", rows[0].LineID)
	assert.Equal(t, "2025-02-004c", rows[2].LineID)
	assert.True(t, rows[0].Debit.Equal(dec("500")))
	assert.True(t, rows[1].Debit.IsZero())
	assert.True(t, rows[1].Credit.Equal(dec("450")))

	entries, err := EntriesFromRows(rows)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	got := entries[0]
	assert.Equal(t, "2025-02-004", got.ID)
	assert.Equal(t, model.StatePosted, got.State)
	assert.Equal(t, "Invoice 7", got.Description)
	assert.Equal(t, "INV-7", got.Reference)
	require.Len(t, got.Lines, 3)
	assert.Equal(t, model.Credit, got.Lines[2].Side)
	assert.Equal(t, "sales tax", got.Lines[2].Description)
	assert.True(t, got.IsBalanced())
}

func TestEntriesFromRows_RejectsBadLines(t *testing.T) {
	_, err := EntriesFromRows([]Row{{LineID: "2025-01-001a", AccountCode: "1000", Debit: dec("1"), Credit: dec("1")}})
	assert.Error(t, err)

	_, err = EntriesFromRows([]Row{{LineID: "2025-01-001", AccountCode: "1000", Debit: dec("1")}})
	assert.Error(t, err)
}
