package model

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Sentinel errors. Use errors.Is; the structured errors below unwrap to these.
var (
	ErrUnbalancedEntry       = errors.New("unbalanced entry")
	ErrInvalidAmount         = errors.New("invalid amount: must be greater than zero")
	ErrAccountNotFound       = errors.New("account not found")
	ErrInconsistentStatement = errors.New("inconsistent statement")
	ErrEntryPosted           = errors.New("entry is posted")
	ErrEmptyEntry            = errors.New("entry needs at least one debit and one credit line")
	ErrDuplicateAccount      = errors.New("duplicate account code")
	ErrInvalidAccountType    = errors.New("invalid account type")
	ErrAccountCycle          = errors.New("account hierarchy cycle")
	ErrDraftNotFound         = errors.New("draft not found")
)

// UnbalancedEntryError reports the totals of an entry that failed to post.
type UnbalancedEntryError struct {
	Debits  decimal.Decimal
	Credits decimal.Decimal
}

func (e *UnbalancedEntryError) Error() string {
	return fmt.Sprintf("unbalanced entry: debits %s != credits %s",
		e.Debits.StringFixed(2), e.Credits.StringFixed(2))
}

func (e *UnbalancedEntryError) Unwrap() error {
	return ErrUnbalancedEntry
}

// AccountNotFoundError names the missing account. Inactive is set when the
// account exists but no longer accepts postings.
type AccountNotFoundError struct {
	Code     string
	Inactive bool
}

func (e *AccountNotFoundError) Error() string {
	if e.Inactive {
		return fmt.Sprintf("account %s is inactive", e.Code)
	}
	return fmt.Sprintf("account %s not found", e.Code)
}

func (e *AccountNotFoundError) Unwrap() error {
	return ErrAccountNotFound
}

// InconsistentStatementError signals that a generated statement violates its
// accounting identity. It indicates a data or logic defect.
type InconsistentStatementError struct {
	Statement  string
	Left       decimal.Decimal
	Right      decimal.Decimal
	Difference decimal.Decimal
}

func (e *InconsistentStatementError) Error() string {
	return fmt.Sprintf("%s does not balance: %s != %s (difference %s)",
		e.Statement, e.Left.String(), e.Right.String(), e.Difference.String())
}

func (e *InconsistentStatementError) Unwrap() error {
	return ErrInconsistentStatement
}
