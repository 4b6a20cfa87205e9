package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/balancebook/internal/book"
	"github.com/cleared-dev/balancebook/internal/config"
)

func newInitCommand() *cobra.Command {
	var (
		name       string
		entityType string
		backend    string
		yearStart  string
		withGit    bool
	)

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new bookkeeping repository",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			cfg := config.Default(name, entityType)
			cfg.Storage.Backend = backend
			cfg.Fiscal.YearStart = yearStart
			if err := book.Init(cmd.Context(), absDir, cfg, withGit); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Initialized %s books at %s (%s backend)\n", name, absDir, backend)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "business name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&entityType, "entity-type", "llc_single_member", "entity type (llc_single_member, sole_proprietor)")
	cmd.Flags().StringVar(&backend, "backend", config.BackendCSV, "storage backend (csv, sqlite)")
	cmd.Flags().StringVar(&yearStart, "fiscal-year-start", "01-01", "first day of the fiscal year, MM-DD")
	cmd.Flags().BoolVar(&withGit, "git", false, "create a git repository and commit every posting")

	return cmd
}
