package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/balancebook/internal/id"
	"github.com/cleared-dev/balancebook/internal/model"
)

// Header is the CSV header for journal.csv.
const Header = "entry_id,date,account_code,description,line_description,debit,credit,reference,notes"

const (
	numFields   = 9
	colLineID   = 0
	colDate     = 1
	colAcctCode = 2
	colDesc     = 3
	colLineDesc = 4
	colDebit    = 5
	colCredit   = 6
	colRef      = 7
	colNotes    = 8
)

// Row is one line of a posted entry as stored in journal.csv. Entry-level
// fields are repeated on every row of the entry.
type Row struct {
	LineID          string // "2025-01-001a"
	Date            time.Time
	AccountCode     string
	Description     string
	LineDescription string
	Debit           decimal.Decimal
	Credit          decimal.Decimal
	Reference       string
	Notes           string
}

// EntryID returns the posted entry ID this row belongs to.
func (r Row) EntryID() string {
	return id.EntryGroup(r.LineID)
}

// ReadRows reads all rows from a journal.csv reader.
func ReadRows(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading journal CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	// Skip header row.
	var rows []Row
	for i, rec := range records[1:] {
		row, err := UnmarshalRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// WriteRows writes rows to a journal.csv writer (including header).
func WriteRows(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, row := range rows {
		if err := cw.Write(MarshalRow(row)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalRow converts a Row to a CSV record.
func MarshalRow(row Row) []string {
	rec := make([]string, numFields)
	rec[colLineID] = row.LineID
	rec[colDate] = row.Date.Format(model.DateFormat)
	rec[colAcctCode] = row.AccountCode
	rec[colDesc] = row.Description
	rec[colLineDesc] = row.LineDescription
	if !row.Debit.IsZero() {
		rec[colDebit] = formatAmount(row.Debit)
	}
	if !row.Credit.IsZero() {
		rec[colCredit] = formatAmount(row.Credit)
	}
	rec[colRef] = row.Reference
	rec[colNotes] = row.Notes
	return rec
}

// UnmarshalRow converts a CSV record to a Row.
func UnmarshalRow(record []string) (Row, error) {
	if len(record) != numFields {
		return Row{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	date, err := model.ParseDay(record[colDate])
	if err != nil {
		return Row{}, fmt.Errorf("parsing date %q: %w", record[colDate], err)
	}

	var debit, credit decimal.Decimal
	if record[colDebit] != "" {
		debit, err = decimal.NewFromString(record[colDebit])
		if err != nil {
			return Row{}, fmt.Errorf("parsing debit %q: %w", record[colDebit], err)
		}
	}
	if record[colCredit] != "" {
		credit, err = decimal.NewFromString(record[colCredit])
		if err != nil {
			return Row{}, fmt.Errorf("parsing credit %q: %w", record[colCredit], err)
		}
	}

	return Row{
		LineID:          record[colLineID],
		Date:            date,
		AccountCode:     record[colAcctCode],
		Description:     record[colDesc],
		LineDescription: record[colLineDesc],
		Debit:           debit,
		Credit:          credit,
		Reference:       record[colRef],
		Notes:           record[colNotes],
	}, nil
}

// RowsFromEntry flattens an entry into journal rows. The entry must carry its
// posted ID.
func RowsFromEntry(e *model.JournalEntry) []Row {
	rows := make([]Row, len(e.Lines))
	for i, l := range e.Lines {
		row := Row{
			LineID:          id.FormatLineID(e.ID, i),
			Date:            e.Date,
			AccountCode:     l.AccountCode,
			Description:     e.Description,
			LineDescription: l.Description,
			Reference:       e.Reference,
			Notes:           e.Notes,
		}
		if l.Side == model.Debit {
			row.Debit = l.Amount
		} else {
			row.Credit = l.Amount
		}
		rows[i] = row
	}
	return rows
}

// EntriesFromRows regroups rows into posted entries, in first-seen order.
func EntriesFromRows(rows []Row) ([]*model.JournalEntry, error) {
	var entries []*model.JournalEntry
	byID := make(map[string]*model.JournalEntry)

	for _, row := range rows {
		entryID, _, err := id.ParseLineID(row.LineID)
		if err != nil {
			return nil, err
		}

		var line model.Line
		switch {
		case row.Debit.IsPositive() && row.Credit.IsZero():
			line = model.Line{Side: model.Debit, Amount: row.Debit}
		case row.Credit.IsPositive() && row.Debit.IsZero():
			line = model.Line{Side: model.Credit, Amount: row.Credit}
		default:
			return nil, fmt.Errorf("line %s: must have exactly one positive debit or credit", row.LineID)
		}
		line.AccountCode = row.AccountCode
		line.Description = row.LineDescription

		e, ok := byID[entryID]
		if !ok {
			e = &model.JournalEntry{
				ID:          entryID,
				Date:        row.Date,
				Description: row.Description,
				Reference:   row.Reference,
				Notes:       row.Notes,
				State:       model.StatePosted,
			}
			byID[entryID] = e
			entries = append(entries, e)
		}
		e.Lines = append(e.Lines, line)
	}
	return entries, nil
}

// formatAmount keeps at least two decimal places without truncating finer amounts.
func formatAmount(d decimal.Decimal) string {
	if d.Exponent() >= -2 {
		return d.StringFixed(2)
	}
	return d.String()
}
