package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tally/internal/cli"
	"tally/internal/core"
	"tally/internal/records"
)

// shortID trims UUIDs for table output; commands accept the full ID.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func newSubscriptionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "subs",
		Aliases: []string{"subscriptions"},
		Short:   "Manage subscriptions",
	}
	cmd.AddCommand(newSubsListCmd(a), newSubsAddCmd(a), newSubsRmCmd(a))
	return cmd
}

func newSubsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List subscriptions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			subs, err := res.Backend.ListSubscriptions(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(subs) == 0 {
				fmt.Fprintln(out, cli.RenderMuted("No subscriptions yet."))
				return nil
			}
			t := cli.Table{
				Title:   fmt.Sprintf("Subscriptions (%d)", len(subs)),
				Headers: []string{"Name", "ID", "Category", "Billing", "Amount", "Start", "Stop", "Status", "Paying"},
			}
			for _, s := range subs {
				paying := "yes"
				if !s.UserPaying {
					paying = "no"
				}
				t.Rows = append(t.Rows, []string{
					s.Name,
					shortID(s.ID),
					string(s.Category.Normalize()),
					string(s.BillingType),
					cli.FormatMoney(s.Amount),
					cli.FormatDate(s.StartDate),
					cli.FormatDate(s.Stop()),
					string(s.Status),
					paying,
				})
			}
			fmt.Fprintln(out, cli.RenderTable(t))
			return nil
		},
	}
}

func newSubsAddCmd(a *app) *cobra.Command {
	var (
		rec       records.SubscriptionRecord
		amount    string
		start     string
		stop      string
		notPaying bool
	)
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec.Name = args[0]
			if err := rec.Amount.UnmarshalText([]byte(amount)); err != nil {
				return err
			}
			if err := rec.StartDate.UnmarshalText([]byte(start)); err != nil {
				return err
			}
			if err := rec.StopDate.UnmarshalText([]byte(stop)); err != nil {
				return err
			}
			paying := !notPaying
			rec.UserPaying = &paying

			sub, err := rec.ToCore()
			if err != nil {
				return err
			}
			res, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			created, err := res.Records.CreateSubscription(cmd.Context(), sub)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s): %s %s\n", created.Name, created.ID, cli.FormatMoney(created.Amount), created.BillingType)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&rec.Category, "category", "", "category, see core categories (blank means Other)")
	f.StringVar(&rec.BillingType, "billing", string(core.Monthly), "billing type: weekly, monthly, yearly or lifetime")
	f.StringVar(&amount, "amount", "", "amount per charge, e.g. 9.99")
	f.StringVar(&start, "start", "", "first charge date, YYYY-MM-DD")
	f.StringVar(&stop, "stop", "", "last day of the subscription, YYYY-MM-DD")
	f.StringVar(&rec.Status, "status", string(core.StatusActive), "active or wishlist")
	f.StringVar(&rec.AccessType, "access", string(core.AccessOwned), "owned or shared")
	f.BoolVar(&notPaying, "not-paying", false, "someone else pays for it")
	f.StringVar(&rec.Notes, "notes", "", "free-form notes")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func newSubsRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			if err := res.Records.DeleteSubscription(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted subscription %s\n", args[0])
			return nil
		},
	}
}

func newItemsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "items",
		Aliases: []string{"one-time-items"},
		Short:   "Manage one-time purchases",
	}
	cmd.AddCommand(newItemsListCmd(a), newItemsAddCmd(a), newItemsRmCmd(a))
	return cmd
}

func newItemsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List one-time purchases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			items, err := res.Backend.ListOneTimeItems(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, cli.RenderMuted("No one-time purchases yet."))
				return nil
			}
			t := cli.Table{
				Title:   fmt.Sprintf("One-time purchases (%d)", len(items)),
				Headers: []string{"Name", "ID", "Category", "Date", "Amount"},
			}
			for _, it := range items {
				t.Rows = append(t.Rows, []string{
					it.Name,
					shortID(it.ID),
					string(it.Category.Normalize()),
					cli.FormatDate(it.Date),
					cli.FormatMoney(it.Amount),
				})
			}
			fmt.Fprintln(out, cli.RenderTable(t))
			return nil
		},
	}
}

func newItemsAddCmd(a *app) *cobra.Command {
	var (
		rec    records.OneTimeItemRecord
		amount string
		date   string
	)
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a one-time purchase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec.Name = args[0]
			if err := rec.Amount.UnmarshalText([]byte(amount)); err != nil {
				return err
			}
			if err := rec.Date.UnmarshalText([]byte(date)); err != nil {
				return err
			}

			item, err := rec.ToCore()
			if err != nil {
				return err
			}
			res, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			created, err := res.Records.CreateOneTimeItem(cmd.Context(), item)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s): %s on %s\n", created.Name, created.ID, cli.FormatMoney(created.Amount), created.Date)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&rec.Category, "category", "", "category (blank means Other)")
	f.StringVar(&amount, "amount", "", "amount paid, e.g. 249.00")
	f.StringVar(&date, "date", "", "purchase date, YYYY-MM-DD")
	f.StringVar(&rec.Notes, "notes", "", "free-form notes")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func newItemsRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a one-time purchase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			if err := res.Records.DeleteOneTimeItem(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted one-time item %s\n", args[0])
			return nil
		},
	}
}
