package commands

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/balancebook/internal/ledger"
	"github.com/cleared-dev/balancebook/internal/model"
)

func newReportCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Balances and financial statements",
	}
	cmd.AddCommand(
		newReportBalanceCommand(g),
		newReportTrialBalanceCommand(g),
		newReportBalanceSheetCommand(g),
		newReportIncomeStatementCommand(g),
		newReportStatementCommand(g),
	)
	return cmd
}

// periodFlags are the --from/--to pair most reports take.
type periodFlags struct {
	from, to string
}

func (p *periodFlags) register(cmd *cobra.Command, fromHelp, toHelp string) {
	cmd.Flags().StringVar(&p.from, "from", "", fromHelp)
	cmd.Flags().StringVar(&p.to, "to", "", toHelp)
}

func (p *periodFlags) parse() (start, end *time.Time, err error) {
	if start, err = parseDate("from", p.from); err != nil {
		return nil, nil, err
	}
	if end, err = parseDate("to", p.to); err != nil {
		return nil, nil, err
	}
	return start, end, nil
}

// inconsistent reports whether err only flags an unbalanced statement, in
// which case the report is still printed before the error is returned.
func inconsistent(err error) bool {
	var ise *model.InconsistentStatementError
	return errors.As(err, &ise)
}

func newReportBalanceCommand(g *globals) *cobra.Command {
	var p periodFlags

	cmd := &cobra.Command{
		Use:   "balance CODE",
		Short: "Opening, period activity, and closing balance of one account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := p.parse()
			if err != nil {
				return err
			}
			b, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer b.Close()

			bal, err := b.Reports.Calculator().ComputeBalance(cmd.Context(), args[0], start, end)
			if err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout())
			row(tw, "Account:", bal.AccountCode)
			row(tw, "Opening:", money(bal.Opening))
			row(tw, "Debits:", money(bal.PeriodDebits))
			row(tw, "Credits:", money(bal.PeriodCredits))
			row(tw, "Net change:", money(bal.PeriodEffect))
			row(tw, "Closing:", money(bal.Closing))
			return tw.Flush()
		},
	}
	p.register(cmd, "period start, YYYY-MM-DD (default: all history)", "period end, YYYY-MM-DD (default: all history)")
	return cmd
}

func newReportTrialBalanceCommand(g *globals) *cobra.Command {
	var p periodFlags

	cmd := &cobra.Command{
		Use:   "trial-balance",
		Short: "Closing balances of every account in debit and credit columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start, end, err := p.parse()
			if err != nil {
				return err
			}
			b, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer b.Close()

			if end == nil {
				today := b.Clock.Today()
				end = &today
			}
			if start == nil {
				fy := b.Config.Fiscal.YearStartFor(*end)
				start = &fy
			}

			tb, err := b.Reports.TrialBalance(cmd.Context(), *start, *end)
			if err != nil && !inconsistent(err) {
				return err
			}
			if werr := writeTrialBalance(cmd.OutOrStdout(), tb); werr != nil {
				return werr
			}
			return err
		},
	}
	p.register(cmd, "period start (default: start of the fiscal year)", "period end (default: today)")
	return cmd
}

func writeTrialBalance(w io.Writer, tb *ledger.TrialBalance) error {
	fmt.Fprintf(w, "Trial balance %s to %s\n\n", day(tb.Start), day(tb.End))
	tw := newTable(w)
	row(tw, "CODE", "NAME", "TYPE", "OPENING", "DEBITS", "CREDITS", "CLOSING", "DEBIT", "CREDIT")
	for _, r := range tb.Rows {
		name := r.Name
		if !r.Active {
			name += " (inactive)"
		}
		row(tw, r.Code, name, string(r.Type), money(r.Opening), money(r.PeriodDebits), money(r.PeriodCredits),
			money(r.Closing), moneyOrBlank(r.Debit), moneyOrBlank(r.Credit))
	}
	row(tw, "", "Total", "", "", "", "", "", money(tb.TotalDebits), money(tb.TotalCredits))
	if err := tw.Flush(); err != nil {
		return err
	}
	if tb.Balanced {
		fmt.Fprintln(w, "\nBalanced")
	}
	return nil
}

func newReportBalanceSheetCommand(g *globals) *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "balance-sheet",
		Short: "Assets, liabilities, and equity at a date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			date, err := parseDate("as-of", asOf)
			if err != nil {
				return err
			}
			b, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer b.Close()

			bs, err := b.Reports.BalanceSheet(cmd.Context(), date)
			if err != nil && !inconsistent(err) {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s\nBalance sheet as of %s\n\n", b.Config.Business.Name, day(bs.AsOf))
			tw := newTable(w)
			section(tw, "Assets", bs.Assets, bs.TotalAssets)
			section(tw, "Liabilities", bs.Liabilities, bs.TotalLiabilities)
			equity := append(slices.Clone(bs.Equity), ledger.StatementLine{Name: "Retained earnings", Amount: bs.RetainedEarnings})
			section(tw, "Equity", equity, bs.TotalEquity)
			row(tw, "", "Total liabilities and equity", money(bs.TotalLiabilities.Add(bs.TotalEquity)))
			if werr := tw.Flush(); werr != nil {
				return werr
			}
			return err
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "statement date, YYYY-MM-DD (default today)")
	return cmd
}

func newReportIncomeStatementCommand(g *globals) *cobra.Command {
	var p periodFlags

	cmd := &cobra.Command{
		Use:   "income-statement",
		Short: "Income, expenses, and net income over a period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start, end, err := p.parse()
			if err != nil {
				return err
			}
			b, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer b.Close()

			if start == nil {
				ref := b.Clock.Today()
				if end != nil {
					ref = *end
				}
				fy := b.Config.Fiscal.YearStartFor(ref)
				start = &fy
			}

			is, err := b.Reports.IncomeStatement(cmd.Context(), *start, end)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s\nIncome statement %s to %s\n\n", b.Config.Business.Name, day(is.Start), day(is.End))
			tw := newTable(w)
			section(tw, "Income", is.Income, is.TotalIncome)
			section(tw, "Expenses", is.Expenses, is.TotalExpenses)
			row(tw, "", "Net income", money(is.NetIncome))
			return tw.Flush()
		},
	}
	p.register(cmd, "period start (default: start of the fiscal year)", "period end (default: today)")
	return cmd
}

func section(w io.Writer, title string, lines []ledger.StatementLine, total decimal.Decimal) {
	row(w, title, "", "")
	for _, l := range lines {
		row(w, "  "+l.Code, l.Name, money(l.Amount))
	}
	row(w, "", "Total "+title, money(total))
	row(w, "", "", "")
}

func newReportStatementCommand(g *globals) *cobra.Command {
	var p periodFlags

	cmd := &cobra.Command{
		Use:   "statement CODE",
		Short: "An account's activity with a running balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := p.parse()
			if err != nil {
				return err
			}
			b, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer b.Close()

			st, err := b.Reports.AccountStatement(cmd.Context(), args[0], start, end)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s %s (%s)\n\n", st.Account.Code, st.Account.Name, st.Account.Type)
			tw := newTable(w)
			row(tw, "DATE", "ENTRY", "DESCRIPTION", "REF", "DEBIT", "CREDIT", "BALANCE")
			for _, r := range st.Rows {
				desc := r.Description
				if r.LineDescription != "" {
					desc += " / " + r.LineDescription
				}
				row(tw, day(r.Date), r.EntryID, desc, r.Reference, moneyOrBlank(r.Debit), moneyOrBlank(r.Credit), money(r.Balance))
			}
			return tw.Flush()
		},
	}
	p.register(cmd, "first date, YYYY-MM-DD", "last date, YYYY-MM-DD")
	return cmd
}
