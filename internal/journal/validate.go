package journal

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/balancebook/internal/id"
)

// ValidationError describes a single invariant violation in a month file.
type ValidationError struct {
	Invariant   int
	EntryID     string
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invariant %d [%s]: %s", e.Invariant, e.EntryID, e.Description)
}

// AccountChecker tests whether an account code exists in the chart of accounts.
type AccountChecker interface {
	Exists(code string) bool
}

// ValidateRows enforces the journal file invariants on all rows of one month:
//
//  1. each entry balances
//  2. each row has exactly one positive debit or credit
//  3. account codes resolve (skipped when accounts is nil)
//  4. dates fall inside the month
//  5. entry IDs belong to the month and run 1..N without gaps
func ValidateRows(rows []Row, accounts AccountChecker, year, month int) []ValidationError {
	var errs []ValidationError

	// Group rows by entry.
	groups := make(map[string][]Row)
	var groupOrder []string
	for _, row := range rows {
		g := row.EntryID()
		if _, seen := groups[g]; !seen {
			groupOrder = append(groupOrder, g)
		}
		groups[g] = append(groups[g], row)
	}

	for _, g := range groupOrder {
		debits, credits := decimal.Zero, decimal.Zero
		for _, row := range groups[g] {
			debits = debits.Add(row.Debit)
			credits = credits.Add(row.Credit)
		}
		if !debits.Equal(credits) {
			errs = append(errs, ValidationError{
				Invariant:   1,
				EntryID:     g,
				Description: fmt.Sprintf("debits (%s) != credits (%s)", debits.String(), credits.String()),
			})
		}
	}

	for _, row := range rows {
		hasDebit := row.Debit.IsPositive()
		hasCredit := row.Credit.IsPositive()
		if hasDebit == hasCredit || row.Debit.IsNegative() || row.Credit.IsNegative() {
			errs = append(errs, ValidationError{
				Invariant:   2,
				EntryID:     row.LineID,
				Description: "line must have exactly one positive debit or credit",
			})
		}

		if accounts != nil && !accounts.Exists(row.AccountCode) {
			errs = append(errs, ValidationError{
				Invariant:   3,
				EntryID:     row.LineID,
				Description: fmt.Sprintf("unknown account %s", row.AccountCode),
			})
		}

		if row.Date.Year() != year || int(row.Date.Month()) != month {
			errs = append(errs, ValidationError{
				Invariant:   4,
				EntryID:     row.LineID,
				Description: fmt.Sprintf("date %s not in %04d-%02d", row.Date.Format("2006-01-02"), year, month),
			})
		}
	}

	seqSeen := make(map[int]bool)
	for _, g := range groupOrder {
		y, m, seq, err := id.ParseEntryID(g)
		if err != nil {
			errs = append(errs, ValidationError{
				Invariant:   5,
				EntryID:     g,
				Description: fmt.Sprintf("invalid entry ID: %v", err),
			})
			continue
		}
		if y != year || m != month {
			errs = append(errs, ValidationError{
				Invariant:   5,
				EntryID:     g,
				Description: fmt.Sprintf("entry ID not in %04d-%02d", year, month),
			})
			continue
		}
		seqSeen[seq] = true
	}
	for i := 1; i <= len(seqSeen); i++ {
		if !seqSeen[i] {
			errs = append(errs, ValidationError{
				Invariant:   5,
				EntryID:     fmt.Sprintf("seq %d", i),
				Description: fmt.Sprintf("missing sequence %d in 1..%d", i, len(seqSeen)),
			})
		}
	}

	return errs
}
