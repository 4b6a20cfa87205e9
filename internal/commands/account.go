package commands

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/balancebook/internal/book"
	"github.com/cleared-dev/balancebook/internal/model"
)

func newAccountCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage the chart of accounts",
	}
	cmd.AddCommand(
		newAccountListCommand(g),
		newAccountShowCommand(g),
		newAccountAddCommand(g),
		newAccountUpdateCommand(g),
		newAccountDeactivateCommand(g),
	)
	return cmd
}

func newAccountListCommand(g *globals) *cobra.Command {
	var all bool
	var accountType string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer b.Close()

			var accts []model.Account
			switch {
			case accountType != "":
				t, err := model.ParseAccountType(accountType)
				if err != nil {
					return err
				}
				accts = b.Accounts.ByType(t)
				if !all {
					accts = slices.DeleteFunc(accts, func(a model.Account) bool { return !a.Active })
				}
			case all:
				accts = b.Accounts.All()
			default:
				accts = b.Accounts.ListActive()
			}

			tw := newTable(cmd.OutOrStdout())
			row(tw, "CODE", "NAME", "TYPE", "PARENT", "OPENING", "ACTIVE")
			for _, a := range accts {
				row(tw, a.Code, a.Name, string(a.Type), a.ParentCode, money(a.OpeningBalance), fmt.Sprint(a.Active))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include inactive accounts")
	cmd.Flags().StringVar(&accountType, "type", "", "only accounts of this type")
	return cmd
}

func newAccountShowCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "show CODE",
		Short: "Show an account and its current balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer b.Close()

			a, err := b.Accounts.Get(args[0])
			if err != nil {
				return err
			}
			today := b.Clock.Today()
			bal, err := b.Reports.Calculator().ComputeBalance(cmd.Context(), a.Code, nil, &today)
			if err != nil {
				return err
			}
			ancestors, err := b.Accounts.Ancestors(a.Code)
			if err != nil {
				return err
			}

			tw := newTable(cmd.OutOrStdout())
			row(tw, "Code:", a.Code)
			row(tw, "Name:", a.Name)
			row(tw, "Type:", fmt.Sprintf("%s (%s-normal)", a.Type, a.Type.NormalSide()))
			if a.Description != "" {
				row(tw, "Description:", a.Description)
			}
			for _, p := range ancestors {
				row(tw, "Parent:", p.Code+" "+p.Name)
			}
			opening := money(a.OpeningBalance)
			if a.OpeningBalanceDate != nil {
				opening += " on " + day(*a.OpeningBalanceDate)
			}
			row(tw, "Opening:", opening)
			row(tw, "Active:", fmt.Sprint(a.Active))
			row(tw, "Balance:", money(bal.Closing))
			return tw.Flush()
		},
	}
}

// accountFlags are shared by add and update.
type accountFlags struct {
	name        string
	accountType string
	parent      string
	opening     string
	openingDate string
	description string
	active      bool
}

func (f *accountFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "account name")
	cmd.Flags().StringVar(&f.accountType, "type", "", "asset, liability, equity, income, or expense")
	cmd.Flags().StringVar(&f.parent, "parent", "", "parent account code")
	cmd.Flags().StringVar(&f.opening, "opening", "0", "opening balance, signed in the account's normal direction")
	cmd.Flags().StringVar(&f.openingDate, "opening-date", "", "date the opening balance is effective, YYYY-MM-DD")
	cmd.Flags().StringVar(&f.description, "description", "", "free-form description")
	cmd.Flags().BoolVar(&f.active, "active", true, "whether the account accepts postings")
}

// apply copies every changed flag onto a. With onlyChanged false every flag
// applies, which is what add wants.
func (f *accountFlags) apply(cmd *cobra.Command, a *model.Account, onlyChanged bool) error {
	set := func(name string) bool { return !onlyChanged || cmd.Flags().Changed(name) }

	if set("name") {
		a.Name = f.name
	}
	if set("type") {
		t, err := model.ParseAccountType(f.accountType)
		if err != nil {
			return err
		}
		a.Type = t
	}
	if set("parent") {
		a.ParentCode = f.parent
	}
	if set("opening") {
		amt, err := parseAmount(f.opening)
		if err != nil {
			return err
		}
		a.OpeningBalance = amt
	}
	if set("opening-date") {
		d, err := parseDate("opening-date", f.openingDate)
		if err != nil {
			return err
		}
		a.OpeningBalanceDate = d
	}
	if set("description") {
		a.Description = f.description
	}
	if set("active") {
		a.Active = f.active
	}
	return nil
}

func newAccountAddCommand(g *globals) *cobra.Command {
	var f accountFlags

	cmd := &cobra.Command{
		Use:   "add CODE",
		Short: "Add an account to the chart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer b.Close()

			a := model.Account{Code: args[0]}
			if err := f.apply(cmd, &a, false); err != nil {
				return err
			}
			if err := b.Accounts.Create(a); err != nil {
				return err
			}
			if err := saveAccounts(cmd, b, "account: add "+a.Code); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added account %s %s\n", a.Code, a.Name)
			return nil
		},
	}
	f.register(cmd)
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func newAccountUpdateCommand(g *globals) *cobra.Command {
	var f accountFlags

	cmd := &cobra.Command{
		Use:   "update CODE",
		Short: "Change an account's metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer b.Close()

			a, err := b.Accounts.Get(args[0])
			if err != nil {
				return err
			}
			if err := f.apply(cmd, &a, true); err != nil {
				return err
			}
			if err := b.Accounts.Update(a); err != nil {
				return err
			}
			if err := saveAccounts(cmd, b, "account: update "+a.Code); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated account %s\n", a.Code)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newAccountDeactivateCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate CODE",
		Short: "Stop an account from accepting postings; its history is kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer b.Close()

			if err := b.Accounts.Deactivate(args[0]); err != nil {
				return err
			}
			if err := saveAccounts(cmd, b, "account: deactivate "+args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deactivated account %s\n", args[0])
			return nil
		},
	}
}

func saveAccounts(cmd *cobra.Command, b *book.Book, message string) error {
	if err := b.SaveAccounts(cmd.Context()); err != nil {
		return fmt.Errorf("saving chart of accounts: %w", err)
	}
	_, err := b.Checkpoint(cmd.Context(), message)
	return err
}
