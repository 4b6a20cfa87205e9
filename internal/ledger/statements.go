package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cleared-dev/balancebook/internal/model"
	"github.com/cleared-dev/balancebook/internal/observability"
)

// Report names used in metrics, logs, and InconsistentStatementError.
const (
	ReportTrialBalance     = "trial_balance"
	ReportBalanceSheet     = "balance_sheet"
	ReportIncomeStatement  = "income_statement"
	ReportAccountStatement = "account_statement"
)

// Generator builds financial statements on top of a Calculator. Statements
// are read-only; nothing is written while generating them.
type Generator struct {
	calc        *Calculator
	clock       Clock
	concurrency int
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// NewGenerator creates a Generator. concurrency bounds how many accounts are
// computed at once; values below 1 mean one at a time. metrics and logger may
// be nil.
func NewGenerator(calc *Calculator, clock Clock, concurrency int, metrics *observability.Metrics, logger *zap.Logger) *Generator {
	if clock == nil {
		clock = SystemClock{}
	}
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{calc: calc, clock: clock, concurrency: concurrency, metrics: metrics, logger: logger}
}

// Calculator returns the calculator the generator reads balances from.
func (g *Generator) Calculator() *Calculator {
	return g.calc
}

// accountBalance pairs an account with its computed balance.
type accountBalance struct {
	Account model.Account
	Balance Balance
}

// balances computes every account's balance concurrently, preserving the
// order of accts.
func (g *Generator) balances(ctx context.Context, accts []model.Account, start, end *time.Time) ([]accountBalance, error) {
	out := make([]accountBalance, len(accts))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency)
	for i, acct := range accts {
		i, acct := i, acct
		eg.Go(func() error {
			b, err := g.calc.compute(ctx, acct, start, end)
			if err != nil {
				return err
			}
			out[i] = accountBalance{Account: acct, Balance: b}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// observe records duration and, for an inconsistent report, logs and counts it.
func (g *Generator) observe(report string, began time.Time, inconsistent *model.InconsistentStatementError) {
	g.metrics.RecordReportDuration(report, time.Since(began))
	if inconsistent == nil {
		g.logger.Debug("report generated", zap.String("report", report), zap.Duration("took", time.Since(began)))
		return
	}
	g.metrics.IncrInconsistent(report)
	g.logger.Error("statement does not balance",
		zap.String("report", report),
		zap.String("left", inconsistent.Left.String()),
		zap.String("right", inconsistent.Right.String()),
		zap.String("difference", inconsistent.Difference.String()),
	)
}

// TrialBalanceRow is one account on a trial balance.
type TrialBalanceRow struct {
	Code          string
	Name          string
	Type          model.AccountType
	Active        bool
	Opening       decimal.Decimal
	PeriodDebits  decimal.Decimal
	PeriodCredits decimal.Decimal
	Closing       decimal.Decimal
	Debit         decimal.Decimal // closing balance when it sits on the debit side
	Credit        decimal.Decimal // closing balance when it sits on the credit side
}

// TrialBalance lists closing balances split into debit and credit columns.
type TrialBalance struct {
	Start        time.Time
	End          time.Time
	Rows         []TrialBalanceRow
	TotalDebits  decimal.Decimal
	TotalCredits decimal.Decimal
	Balanced     bool
}

// TrialBalance builds the trial balance for [start, end]. Accounts with a
// zero closing balance and no period activity are left out. Inactive accounts
// are included when they still carry a balance, otherwise the columns could
// not agree.
//
// If the columns disagree the populated report is returned together with an
// *model.InconsistentStatementError.
func (g *Generator) TrialBalance(ctx context.Context, start, end time.Time) (*TrialBalance, error) {
	began := time.Now()
	if err := checkPeriod(&start, &end); err != nil {
		return nil, err
	}

	results, err := g.balances(ctx, g.calc.accounts.All(), &start, &end)
	if err != nil {
		return nil, fmt.Errorf("trial balance: %w", err)
	}

	tb := &TrialBalance{
		Start:        model.Day(start),
		End:          model.Day(end),
		TotalDebits:  decimal.Zero,
		TotalCredits: decimal.Zero,
	}
	for _, r := range results {
		b := r.Balance
		if b.Closing.IsZero() && b.PeriodDebits.IsZero() && b.PeriodCredits.IsZero() {
			continue
		}
		row := TrialBalanceRow{
			Code:          r.Account.Code,
			Name:          r.Account.Name,
			Type:          r.Account.Type,
			Active:        r.Account.Active,
			Opening:       b.Opening,
			PeriodDebits:  b.PeriodDebits,
			PeriodCredits: b.PeriodCredits,
			Closing:       b.Closing,
		}
		row.Debit, row.Credit = splitColumns(r.Account.Type, b.Closing)
		tb.TotalDebits = tb.TotalDebits.Add(row.Debit)
		tb.TotalCredits = tb.TotalCredits.Add(row.Credit)
		tb.Rows = append(tb.Rows, row)
	}
	tb.Balanced = tb.TotalDebits.Equal(tb.TotalCredits)

	var inconsistent *model.InconsistentStatementError
	if !tb.Balanced {
		inconsistent = &model.InconsistentStatementError{
			Statement:  "trial balance",
			Left:       tb.TotalDebits,
			Right:      tb.TotalCredits,
			Difference: tb.TotalDebits.Sub(tb.TotalCredits),
		}
	}
	g.observe(ReportTrialBalance, began, inconsistent)
	if inconsistent != nil {
		return tb, inconsistent
	}
	return tb, nil
}

// splitColumns places a closing balance in the debit or credit column. A
// balance on the account's normal side goes to that side; a negative balance
// flips to the other.
func splitColumns(t model.AccountType, closing decimal.Decimal) (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	switch {
	case closing.IsZero():
	case (t.NormalSide() == model.Debit) == closing.IsPositive():
		debit = closing.Abs()
	default:
		credit = closing.Abs()
	}
	return debit, credit
}

// StatementLine is one account's amount on a balance sheet or income statement.
type StatementLine struct {
	Code   string
	Name   string
	Amount decimal.Decimal
}

// BalanceSheet is a point-in-time statement of assets, liabilities, and equity.
type BalanceSheet struct {
	AsOf             time.Time
	Assets           []StatementLine
	Liabilities      []StatementLine
	Equity           []StatementLine
	TotalAssets      decimal.Decimal
	TotalLiabilities decimal.Decimal
	RetainedEarnings decimal.Decimal
	TotalEquity      decimal.Decimal // includes RetainedEarnings
	Balanced         bool
}

// BalanceSheet builds the balance sheet as of asOf, or as of today when asOf
// is nil. Retained earnings are income minus expenses to date and are folded
// into total equity.
//
// If assets do not equal liabilities plus equity the populated report is
// returned together with an *model.InconsistentStatementError.
func (g *Generator) BalanceSheet(ctx context.Context, asOf *time.Time) (*BalanceSheet, error) {
	began := time.Now()
	day := g.clock.Today()
	if asOf != nil {
		day = model.Day(*asOf)
	}

	results, err := g.balances(ctx, g.calc.accounts.All(), nil, &day)
	if err != nil {
		return nil, fmt.Errorf("balance sheet: %w", err)
	}

	bs := &BalanceSheet{
		AsOf:             day,
		TotalAssets:      decimal.Zero,
		TotalLiabilities: decimal.Zero,
		RetainedEarnings: decimal.Zero,
		TotalEquity:      decimal.Zero,
	}
	income, expenses := decimal.Zero, decimal.Zero
	for _, r := range results {
		closing := r.Balance.Closing
		line := StatementLine{Code: r.Account.Code, Name: r.Account.Name, Amount: closing}
		switch r.Account.Type {
		case model.AccountTypeAsset:
			bs.TotalAssets = bs.TotalAssets.Add(closing)
			bs.Assets = appendNonZero(bs.Assets, line)
		case model.AccountTypeLiability:
			bs.TotalLiabilities = bs.TotalLiabilities.Add(closing)
			bs.Liabilities = appendNonZero(bs.Liabilities, line)
		case model.AccountTypeEquity:
			bs.TotalEquity = bs.TotalEquity.Add(closing)
			bs.Equity = appendNonZero(bs.Equity, line)
		case model.AccountTypeIncome:
			income = income.Add(closing)
		case model.AccountTypeExpense:
			expenses = expenses.Add(closing)
		}
	}
	bs.RetainedEarnings = income.Sub(expenses)
	bs.TotalEquity = bs.TotalEquity.Add(bs.RetainedEarnings)

	right := bs.TotalLiabilities.Add(bs.TotalEquity)
	bs.Balanced = bs.TotalAssets.Equal(right)

	var inconsistent *model.InconsistentStatementError
	if !bs.Balanced {
		inconsistent = &model.InconsistentStatementError{
			Statement:  "balance sheet",
			Left:       bs.TotalAssets,
			Right:      right,
			Difference: bs.TotalAssets.Sub(right),
		}
	}
	g.observe(ReportBalanceSheet, began, inconsistent)
	if inconsistent != nil {
		return bs, inconsistent
	}
	return bs, nil
}

func appendNonZero(lines []StatementLine, l StatementLine) []StatementLine {
	if l.Amount.IsZero() {
		return lines
	}
	return append(lines, l)
}

// IncomeStatement is a period statement of income and expenses.
type IncomeStatement struct {
	Start         time.Time
	End           time.Time
	Income        []StatementLine
	Expenses      []StatementLine
	TotalIncome   decimal.Decimal
	TotalExpenses decimal.Decimal
	NetIncome     decimal.Decimal
}

// IncomeStatement builds the income statement for [start, end], ending today
// when end is nil. Income amounts are credits minus debits and expense
// amounts debits minus credits over the period; opening balances do not count.
func (g *Generator) IncomeStatement(ctx context.Context, start time.Time, end *time.Time) (*IncomeStatement, error) {
	began := time.Now()
	day := g.clock.Today()
	if end != nil {
		day = model.Day(*end)
	}
	if err := checkPeriod(&start, &day); err != nil {
		return nil, err
	}

	var accts []model.Account
	for _, a := range g.calc.accounts.All() {
		if a.Type == model.AccountTypeIncome || a.Type == model.AccountTypeExpense {
			accts = append(accts, a)
		}
	}

	results, err := g.balances(ctx, accts, &start, &day)
	if err != nil {
		return nil, fmt.Errorf("income statement: %w", err)
	}

	is := &IncomeStatement{
		Start:         model.Day(start),
		End:           day,
		TotalIncome:   decimal.Zero,
		TotalExpenses: decimal.Zero,
	}
	for _, r := range results {
		line := StatementLine{Code: r.Account.Code, Name: r.Account.Name, Amount: r.Balance.PeriodEffect}
		if r.Account.Type == model.AccountTypeIncome {
			is.TotalIncome = is.TotalIncome.Add(line.Amount)
			is.Income = appendNonZero(is.Income, line)
		} else {
			is.TotalExpenses = is.TotalExpenses.Add(line.Amount)
			is.Expenses = appendNonZero(is.Expenses, line)
		}
	}
	is.NetIncome = is.TotalIncome.Sub(is.TotalExpenses)

	g.observe(ReportIncomeStatement, began, nil)
	return is, nil
}

// StatementRow is one row of an account statement.
type StatementRow struct {
	Date            time.Time
	EntryID         string // empty on the opening row
	Description     string
	LineDescription string
	Reference       string
	Debit           decimal.Decimal
	Credit          decimal.Decimal
	Balance         decimal.Decimal // running balance after this row
}

// OpeningBalanceDescription labels the synthetic first row of an account statement.
const OpeningBalanceDescription = "Opening Balance"

// AccountStatement is an account's activity with a running balance.
type AccountStatement struct {
	Account model.Account
	Start   *time.Time
	End     *time.Time
	Opening decimal.Decimal
	Closing decimal.Decimal
	Rows    []StatementRow // Rows[0] is the opening balance row
}

// AccountStatement lists an account's posted lines in [start, end] with a
// running balance, preceded by an opening balance row. Either bound may be nil.
// Rows are ordered by date, entry ID, then line number.
func (g *Generator) AccountStatement(ctx context.Context, code string, start, end *time.Time) (*AccountStatement, error) {
	began := time.Now()
	if err := checkPeriod(start, end); err != nil {
		return nil, err
	}
	acct, err := g.calc.accounts.Get(code)
	if err != nil {
		return nil, err
	}

	lines, err := g.calc.postedLines(ctx, acct, end)
	if err != nil {
		return nil, err
	}
	g.metrics.IncrBalanceComputation()

	bal := Compute(acct, lines, start, end)
	_, period := partition(acct.Code, lines, start, end)

	openingDate := time.Time{}
	switch {
	case start != nil:
		openingDate = model.Day(*start)
	case acct.OpeningBalanceDate != nil:
		openingDate = model.Day(*acct.OpeningBalanceDate)
	}

	st := &AccountStatement{
		Account: acct,
		Start:   start,
		End:     end,
		Opening: bal.Opening,
		Rows: []StatementRow{{
			Date:        openingDate,
			Description: OpeningBalanceDescription,
			Debit:       decimal.Zero,
			Credit:      decimal.Zero,
			Balance:     bal.Opening,
		}},
	}

	running := bal.Opening
	for _, l := range period {
		running = running.Add(acct.Type.Effect(l.Debit(), l.Credit()))
		st.Rows = append(st.Rows, StatementRow{
			Date:            l.Date,
			EntryID:         l.EntryID,
			Description:     l.Description,
			LineDescription: l.LineDescription,
			Reference:       l.Reference,
			Debit:           l.Debit(),
			Credit:          l.Credit(),
			Balance:         running,
		})
	}
	st.Closing = running

	g.observe(ReportAccountStatement, began, nil)
	return st, nil
}
