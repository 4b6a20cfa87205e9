package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/balancebook/internal/book"
	"github.com/cleared-dev/balancebook/internal/buildinfo"
	"github.com/cleared-dev/balancebook/internal/ledger"
	"github.com/cleared-dev/balancebook/internal/observability"
)

// globals holds the persistent flags and the metrics registry shared by
// every command of one process.
type globals struct {
	repo     string
	logLevel string
	stats    bool
	metrics  *observability.Metrics
	clock    ledger.Clock // nil means the system clock
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&globals{metrics: observability.NewMetrics()})
}

func newRootCommand(g *globals) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "balancebook",
		Short:   "Double-entry bookkeeping: journal, balances, and financial statements",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if g.stats {
				printStats(cmd, g.metrics)
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&g.repo, "repo", ".", "bookkeeping repository root")
	flags.StringVar(&g.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides balancebook.yaml")
	flags.BoolVar(&g.stats, "stats", false, "print engine counters to stderr when the command finishes")

	rootCmd.AddCommand(
		newInitCommand(),
		newAccountCommand(g),
		newEntryCommand(g),
		newReportCommand(g),
	)

	return rootCmd
}

// open loads the repository named by --repo.
func (g *globals) open(cmd *cobra.Command) (*book.Book, error) {
	root, err := filepath.Abs(g.repo)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	return book.Open(cmd.Context(), root, book.Options{
		LogLevel: g.logLevel,
		Metrics:  g.metrics,
		Clock:    g.clock,
	})
}

func printStats(cmd *cobra.Command, m *observability.Metrics) {
	w := cmd.ErrOrStderr()
	fmt.Fprintf(w, "entries posted:          %.0f\n", m.PostCount(observability.PostResultPosted))
	fmt.Fprintf(w, "posts rejected:          %.0f\n",
		m.PostCount(observability.PostResultUnbalanced)+m.PostCount(observability.PostResultInvalid)+m.PostCount(observability.PostResultError))
	fmt.Fprintf(w, "balance computations:    %.0f\n", m.BalanceComputations())

	var inconsistent float64
	for _, r := range []string{ledger.ReportTrialBalance, ledger.ReportBalanceSheet, ledger.ReportIncomeStatement} {
		inconsistent += m.InconsistentCount(r)
	}
	fmt.Fprintf(w, "inconsistent statements: %.0f\n", inconsistent)
}
