package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AccountType classifies accounts in the chart of accounts.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeIncome    AccountType = "income"
	AccountTypeExpense   AccountType = "expense"
)

// AccountTypes lists every account type in chart order.
var AccountTypes = []AccountType{
	AccountTypeAsset,
	AccountTypeLiability,
	AccountTypeEquity,
	AccountTypeIncome,
	AccountTypeExpense,
}

// ParseAccountType accepts any casing of a known type name.
func ParseAccountType(s string) (AccountType, error) {
	t := AccountType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidAccountType, s)
	}
	return t, nil
}

// Valid reports whether t is one of the five account types.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeIncome, AccountTypeExpense:
		return true
	}
	return false
}

// NormalSide is the side that increases an account of this type.
// Asset and Expense are debit-normal; Liability, Equity and Income are credit-normal.
func (t AccountType) NormalSide() Side {
	if t == AccountTypeAsset || t == AccountTypeExpense {
		return Debit
	}
	return Credit
}

// Effect nets debits and credits in the direction of the type's normal balance.
func (t AccountType) Effect(debits, credits decimal.Decimal) decimal.Decimal {
	if t.NormalSide() == Debit {
		return debits.Sub(credits)
	}
	return credits.Sub(debits)
}

// Account represents one row of the chart of accounts.
type Account struct {
	Code               string
	Name               string
	Description        string
	Type               AccountType
	OpeningBalance     decimal.Decimal
	OpeningBalanceDate *time.Time // nil = effective from the beginning of time
	ParentCode         string     // "" = top-level
	Active             bool
}
