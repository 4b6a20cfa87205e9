package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Side is one side of a journal line.
type Side string

const (
	Debit  Side = "debit"
	Credit Side = "credit"
)

// ParseSide accepts "debit"/"credit" or the short forms "d"/"c", any casing.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debit", "d", "dr":
		return Debit, nil
	case "credit", "c", "cr":
		return Credit, nil
	}
	return "", fmt.Errorf("invalid side %q", s)
}

// EntryState is the lifecycle state of a journal entry.
// The only legal transition is Draft -> Posted.
type EntryState string

const (
	StateDraft  EntryState = "draft"
	StatePosted EntryState = "posted"
)

// Line is one debit or credit of a journal entry.
type Line struct {
	Side        Side
	AccountCode string
	Amount      decimal.Decimal // always > 0
	Description string
}

// JournalEntry is a set of lines recorded together. Lines are owned by the
// entry and only editable while the entry is a draft.
type JournalEntry struct {
	ID          string // posted ID ("2025-01-001"); empty until posted
	DraftID     string // set when the draft has been persisted
	Date        time.Time
	Description string
	Reference   string
	Notes       string
	State       EntryState
	Lines       []Line
}

// NewDraft starts an empty draft entry dated at the given day.
func NewDraft(date time.Time, description string) *JournalEntry {
	return &JournalEntry{
		Date:        Day(date),
		Description: description,
		State:       StateDraft,
	}
}

// IsPosted reports whether the entry has been posted.
func (e *JournalEntry) IsPosted() bool {
	return e.State == StatePosted
}

// AddLine appends a line. Amounts must be strictly positive.
func (e *JournalEntry) AddLine(side Side, accountCode string, amount decimal.Decimal, description string) error {
	if e.IsPosted() {
		return fmt.Errorf("adding line to %s: %w", e.ID, ErrEntryPosted)
	}
	if side != Debit && side != Credit {
		return fmt.Errorf("invalid side %q", side)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, amount.String())
	}
	e.Lines = append(e.Lines, Line{
		Side:        side,
		AccountCode: accountCode,
		Amount:      amount,
		Description: description,
	})
	return nil
}

// RemoveLine deletes the line at index i.
func (e *JournalEntry) RemoveLine(i int) error {
	if e.IsPosted() {
		return fmt.Errorf("removing line from %s: %w", e.ID, ErrEntryPosted)
	}
	if i < 0 || i >= len(e.Lines) {
		return fmt.Errorf("line %d out of range (entry has %d lines)", i, len(e.Lines))
	}
	e.Lines = append(e.Lines[:i], e.Lines[i+1:]...)
	return nil
}

// TotalDebits sums the debit lines.
func (e *JournalEntry) TotalDebits() decimal.Decimal {
	return e.total(Debit)
}

// TotalCredits sums the credit lines.
func (e *JournalEntry) TotalCredits() decimal.Decimal {
	return e.total(Credit)
}

func (e *JournalEntry) total(side Side) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range e.Lines {
		if l.Side == side {
			sum = sum.Add(l.Amount)
		}
	}
	return sum
}

// IsBalanced reports exact decimal equality of debits and credits.
func (e *JournalEntry) IsBalanced() bool {
	return e.TotalDebits().Equal(e.TotalCredits())
}

// HasBothSides reports whether the entry has at least one debit and one credit.
func (e *JournalEntry) HasBothSides() bool {
	var d, c bool
	for _, l := range e.Lines {
		switch l.Side {
		case Debit:
			d = true
		case Credit:
			c = true
		}
	}
	return d && c
}

// MarkPosted moves a draft to Posted under the given ID. Callers validate first.
func (e *JournalEntry) MarkPosted(id string) error {
	if e.IsPosted() {
		return fmt.Errorf("posting %s: %w", e.ID, ErrEntryPosted)
	}
	e.ID = id
	e.State = StatePosted
	return nil
}

// PostedLine is the read model the balance calculator consumes: one line of a
// posted entry, flattened with its entry's date and identity.
type PostedLine struct {
	EntryID         string
	LineNo          int
	Date            time.Time
	AccountCode     string
	Side            Side
	Amount          decimal.Decimal
	Description     string // entry description
	LineDescription string
	Reference       string
}

// Debit returns the amount if this is a debit line, else zero.
func (l PostedLine) Debit() decimal.Decimal {
	if l.Side == Debit {
		return l.Amount
	}
	return decimal.Zero
}

// Credit returns the amount if this is a credit line, else zero.
func (l PostedLine) Credit() decimal.Decimal {
	if l.Side == Credit {
		return l.Amount
	}
	return decimal.Zero
}

// PostedLines flattens a posted entry.
func (e *JournalEntry) PostedLines() []PostedLine {
	out := make([]PostedLine, len(e.Lines))
	for i, l := range e.Lines {
		out[i] = PostedLine{
			EntryID:         e.ID,
			LineNo:          i,
			Date:            e.Date,
			AccountCode:     l.AccountCode,
			Side:            l.Side,
			Amount:          l.Amount,
			Description:     e.Description,
			LineDescription: l.Description,
			Reference:       e.Reference,
		}
	}
	return out
}
