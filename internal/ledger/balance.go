// Package ledger computes account balances and financial statements from
// posted journal lines.
package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/balancebook/internal/id"
	"github.com/cleared-dev/balancebook/internal/model"
	"github.com/cleared-dev/balancebook/internal/observability"
)

// AccountLookup resolves and lists accounts. accounts.Service satisfies it.
type AccountLookup interface {
	Get(code string) (model.Account, error)
	All() []model.Account
}

// LineSource answers posted-line range queries. Drafts never appear here.
type LineSource interface {
	PostedLines(ctx context.Context, accountCode string, r model.DateRange) ([]model.PostedLine, error)
}

// Balance is the result of a balance computation for one account.
//
// Amounts are signed in the account's normal direction: a positive Closing on
// an asset is a debit balance, on a liability a credit balance.
type Balance struct {
	AccountCode   string
	Opening       decimal.Decimal
	PeriodDebits  decimal.Decimal
	PeriodCredits decimal.Decimal
	PeriodEffect  decimal.Decimal
	Closing       decimal.Decimal
}

// Compute derives an account's balance from its posted lines.
//
// With start set, lines dated before start roll into a dynamic opening balance
// on top of the stored one, and only lines in [start, end] count as period
// activity. With start nil the stored opening balance is the opening and every
// line up to end is period activity. A nil end means no upper bound.
// Lines of other accounts are ignored.
func Compute(acct model.Account, lines []model.PostedLine, start, end *time.Time) Balance {
	before, period := partition(acct.Code, lines, start, end)

	b := Balance{
		AccountCode:   acct.Code,
		Opening:       acct.OpeningBalance,
		PeriodDebits:  decimal.Zero,
		PeriodCredits: decimal.Zero,
	}
	for _, l := range before {
		b.Opening = b.Opening.Add(acct.Type.Effect(l.Debit(), l.Credit()))
	}
	for _, l := range period {
		b.PeriodDebits = b.PeriodDebits.Add(l.Debit())
		b.PeriodCredits = b.PeriodCredits.Add(l.Credit())
	}
	b.PeriodEffect = acct.Type.Effect(b.PeriodDebits, b.PeriodCredits)
	b.Closing = b.Opening.Add(b.PeriodEffect)
	return b
}

// partition splits an account's lines into those before start and those in
// [start, end], the latter ordered by date, entry ID, then line number.
func partition(code string, lines []model.PostedLine, start, end *time.Time) (before, period []model.PostedLine) {
	var from, to time.Time
	if start != nil {
		from = model.Day(*start)
	}
	if end != nil {
		to = model.Day(*end)
	}

	for _, l := range lines {
		if l.AccountCode != code {
			continue
		}
		d := model.Day(l.Date)
		if end != nil && d.After(to) {
			continue
		}
		if start != nil && d.Before(from) {
			before = append(before, l)
			continue
		}
		period = append(period, l)
	}

	sort.SliceStable(period, func(i, j int) bool {
		a, b := period[i], period[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if c := id.Compare(a.EntryID, b.EntryID); c != 0 {
			return c < 0
		}
		return a.LineNo < b.LineNo
	})
	return before, period
}

// Calculator computes balances against an account registry and a line source.
type Calculator struct {
	accounts AccountLookup
	lines    LineSource
	metrics  *observability.Metrics
}

// NewCalculator creates a Calculator. metrics may be nil.
func NewCalculator(accounts AccountLookup, lines LineSource, metrics *observability.Metrics) *Calculator {
	return &Calculator{accounts: accounts, lines: lines, metrics: metrics}
}

// ComputeBalance computes the balance of the account with the given code.
// Either bound may be nil; see Compute.
func (c *Calculator) ComputeBalance(ctx context.Context, code string, start, end *time.Time) (Balance, error) {
	if err := checkPeriod(start, end); err != nil {
		return Balance{}, err
	}
	acct, err := c.accounts.Get(code)
	if err != nil {
		return Balance{}, err
	}
	return c.compute(ctx, acct, start, end)
}

func (c *Calculator) compute(ctx context.Context, acct model.Account, start, end *time.Time) (Balance, error) {
	lines, err := c.postedLines(ctx, acct, end)
	if err != nil {
		return Balance{}, err
	}
	c.metrics.IncrBalanceComputation()
	return Compute(acct, lines, start, end), nil
}

// postedLines fetches every posted line of acct up to end. Lines before the
// period start are needed for the dynamic opening balance, so the lower bound
// is always open.
func (c *Calculator) postedLines(ctx context.Context, acct model.Account, end *time.Time) ([]model.PostedLine, error) {
	lines, err := c.lines.PostedLines(ctx, acct.Code, model.DateRange{To: end})
	if err != nil {
		return nil, fmt.Errorf("loading lines for account %s: %w", acct.Code, err)
	}
	return lines, nil
}

func checkPeriod(start, end *time.Time) error {
	if start != nil && end != nil && model.Day(*start).After(model.Day(*end)) {
		return fmt.Errorf("period start %s is after end %s",
			start.Format(model.DateFormat), end.Format(model.DateFormat))
	}
	return nil
}
