package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/balancebook/internal/book"
	"github.com/cleared-dev/balancebook/internal/importer"
	"github.com/cleared-dev/balancebook/internal/ledger"
	"github.com/cleared-dev/balancebook/internal/model"
)

func newEntryCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entry",
		Short: "Record journal entries",
	}
	cmd.AddCommand(
		newEntryDraftCommand(g),
		newEntryDraftsCommand(g),
		newEntryShowCommand(g),
		newEntryPostCommand(g),
		newEntryDiscardCommand(g),
		newEntryRecordCommand(g),
		newEntryListCommand(g),
		newEntryImportCommand(g),
	)
	return cmd
}

// entryFlags describe a new entry on the command line.
type entryFlags struct {
	date        string
	description string
	reference   string
	notes       string
	lines       []string
}

func (f *entryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.date, "date", "", "entry date, YYYY-MM-DD (default today)")
	cmd.Flags().StringVarP(&f.description, "description", "d", "", "entry description")
	cmd.Flags().StringVar(&f.reference, "ref", "", "external reference (invoice number, bank id)")
	cmd.Flags().StringVar(&f.notes, "notes", "", "free-form notes")
	cmd.Flags().StringArrayVarP(&f.lines, "line", "l", nil, "side:account:amount[:description], repeatable")
	_ = cmd.MarkFlagRequired("description")
}

// build assembles the entry, dated today by clock unless --date is set.
func (f *entryFlags) build(clock ledger.Clock) (*model.JournalEntry, error) {
	date := clock.Today()
	if f.date != "" {
		d, err := parseDate("date", f.date)
		if err != nil {
			return nil, err
		}
		date = *d
	}

	e := model.NewDraft(date, f.description)
	e.Reference = f.reference
	e.Notes = f.notes
	for _, spec := range f.lines {
		side, code, amount, desc, err := parseLineSpec(spec)
		if err != nil {
			return nil, err
		}
		if err := e.AddLine(side, code, amount, desc); err != nil {
			return nil, fmt.Errorf("line %q: %w", spec, err)
		}
	}
	return e, nil
}

func newEntryDraftCommand(g *globals) *cobra.Command {
	var f entryFlags

	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Save a draft entry for later review",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer b.Close()

			e, err := f.build(b.Clock)
			if err != nil {
				return err
			}

			if err := b.Journal.SaveDraft(cmd.Context(), e); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Saved draft %s\n", e.DraftID)
			if !e.IsBalanced() {
				fmt.Fprintf(out, "Warning: debits %s != credits %s; the draft will not post until it balances\n",
					money(e.TotalDebits()), money(e.TotalCredits()))
			}
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newEntryDraftsCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "drafts",
		Short: "List saved drafts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer b.Close()

			drafts, err := b.Journal.Drafts(cmd.Context())
			if err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout())
			row(tw, "DRAFT", "DATE", "DESCRIPTION", "DEBITS", "CREDITS", "BALANCED")
			for _, d := range drafts {
				row(tw, d.DraftID, day(d.Date), d.Description,
					money(d.TotalDebits()), money(d.TotalCredits()), fmt.Sprint(d.IsBalanced()))
			}
			return tw.Flush()
		},
	}
}

func newEntryShowCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "show DRAFT_ID",
		Short: "Show a draft and its lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer b.Close()

			d, err := b.Journal.Draft(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  %s  %s\n", d.DraftID, day(d.Date), d.Description)
			if d.Reference != "" {
				fmt.Fprintf(out, "Reference: %s\n", d.Reference)
			}
			return writeLines(out, d)
		},
	}
}

func newEntryPostCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "post DRAFT_ID...",
		Short: "Post saved drafts to the journal",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer b.Close()

			for _, draftID := range args {
				e, err := b.Journal.PostDraft(cmd.Context(), draftID)
				if err != nil {
					return fmt.Errorf("draft %s: %w", draftID, err)
				}
				if err := posted(cmd, b, e); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newEntryDiscardCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "discard DRAFT_ID",
		Short: "Delete a saved draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer b.Close()

			if err := b.Journal.DeleteDraft(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Discarded draft %s\n", args[0])
			return nil
		},
	}
}

func newEntryRecordCommand(g *globals) *cobra.Command {
	var f entryFlags

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Post an entry directly, without saving a draft",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer b.Close()

			e, err := f.build(b.Clock)
			if err != nil {
				return err
			}

			if _, err := b.Journal.Record(cmd.Context(), e); err != nil {
				return err
			}
			return posted(cmd, b, e)
		},
	}
	f.register(cmd)
	return cmd
}

func posted(cmd *cobra.Command, b *book.Book, e *model.JournalEntry) error {
	fmt.Fprintf(cmd.OutOrStdout(), "Posted %s  %s  %s\n", e.ID, day(e.Date), money(e.TotalDebits()))
	_, err := b.Checkpoint(cmd.Context(), fmt.Sprintf("post: %s %s", e.ID, e.Description))
	return err
}

func newEntryListCommand(g *globals) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List posted entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start, err := parseDate("from", from)
			if err != nil {
				return err
			}
			end, err := parseDate("to", to)
			if err != nil {
				return err
			}
			b, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer b.Close()

			entries, err := b.Journal.Entries(cmd.Context(), model.DateRange{From: start, To: end})
			if err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout())
			row(tw, "ID", "DATE", "ACCOUNT", "DESCRIPTION", "DEBIT", "CREDIT")
			for _, e := range entries {
				row(tw, e.ID, day(e.Date), "", e.Description, "", "")
				for _, l := range e.Lines {
					var debit, credit decimal.Decimal
					if l.Side == model.Debit {
						debit = l.Amount
					} else {
						credit = l.Amount
					}
					row(tw, "", "", l.AccountCode, l.Description, moneyOrBlank(debit), moneyOrBlank(credit))
				}
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first date, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last date, YYYY-MM-DD")
	return cmd
}

func writeLines(w io.Writer, e *model.JournalEntry) error {
	tw := newTable(w)
	row(tw, "#", "SIDE", "ACCOUNT", "AMOUNT", "DESCRIPTION")
	for i, l := range e.Lines {
		row(tw, fmt.Sprint(i), string(l.Side), l.AccountCode, money(l.Amount), l.Description)
	}
	row(tw, "", "", "debits", money(e.TotalDebits()), "")
	row(tw, "", "", "credits", money(e.TotalCredits()), "")
	return tw.Flush()
}

func newEntryImportCommand(g *globals) *cobra.Command {
	var format, bank, offset string

	cmd := &cobra.Command{
		Use:   "import [FILE...]",
		Short: "Create drafts from bank CSV exports",
		Long: "Create one draft per bank transaction, between the bank account and an offset account.\n" +
			"With no files, every CSV under import/ is read and moved to import/processed/.",
		RunE: func(cmd *cobra.Command, args []string) error {
			parser := importer.DefaultRegistry().Get(format)
			if parser == nil {
				return fmt.Errorf("unknown bank format %q", format)
			}
			b, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer b.Close()

			if _, err := b.Accounts.Get(bank); err != nil {
				return fmt.Errorf("--bank: %w", err)
			}
			if _, err := b.Accounts.Get(offset); err != nil {
				return fmt.Errorf("--offset: %w", err)
			}

			files := args
			scanned := len(args) == 0
			if scanned {
				found, err := importer.Scan(b.Root)
				if err != nil {
					return err
				}
				for _, f := range found {
					files = append(files, f.Path)
				}
			}

			seen, err := knownReferences(cmd, b)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, path := range files {
				res, err := importFile(cmd, b, parser, path, bank, offset, seen)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s: %d drafts, %d duplicates skipped\n", filepath.Base(path), len(res.Drafts), res.Duplicates)
				if scanned {
					if err := importer.MarkProcessed(b.Root, filepath.Base(path)); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "chase", "bank export format")
	cmd.Flags().StringVar(&bank, "bank", "", "bank account code (required)")
	cmd.Flags().StringVar(&offset, "offset", "", "account on the other side of each draft, e.g. a suspense account (required)")
	_ = cmd.MarkFlagRequired("bank")
	_ = cmd.MarkFlagRequired("offset")
	return cmd
}

func importFile(cmd *cobra.Command, b *book.Book, parser importer.Parser, path, bank, offset string, seen map[string]bool) (importer.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return importer.Result{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	txns, err := parser.Parse(f)
	if err != nil {
		return importer.Result{}, fmt.Errorf("%s: %w", path, err)
	}
	res, err := importer.ToDrafts(txns, bank, offset, seen)
	if err != nil {
		return importer.Result{}, err
	}
	for _, d := range res.Drafts {
		if err := b.Journal.SaveDraft(cmd.Context(), d); err != nil {
			return importer.Result{}, fmt.Errorf("saving draft %q: %w", d.Reference, err)
		}
	}
	return res, nil
}

// knownReferences collects references already present as drafts or posted
// entries so re-importing an export is idempotent.
func knownReferences(cmd *cobra.Command, b *book.Book) (map[string]bool, error) {
	seen := make(map[string]bool)
	drafts, err := b.Journal.Drafts(cmd.Context())
	if err != nil {
		return nil, err
	}
	entries, err := b.Journal.Entries(cmd.Context(), model.DateRange{})
	if err != nil {
		return nil, err
	}
	for _, e := range append(drafts, entries...) {
		if e.Reference != "" {
			seen[e.Reference] = true
		}
	}
	return seen, nil
}
