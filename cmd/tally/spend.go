package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tally/internal/cli"
	"tally/internal/core"
	"tally/internal/spend"
)

// windowFlags are the selector flags shared by spend, drill and export.
type windowFlags struct {
	view     string
	year     int
	month    int
	wishlist bool
}

func (f *windowFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.view, "view", "overall", "reporting view: overall, monthly or yearly")
	cmd.Flags().IntVar(&f.year, "year", 0, "reporting year (default current year)")
	cmd.Flags().IntVar(&f.month, "month", 0, "reporting month for the monthly view (default current month)")
	cmd.Flags().BoolVar(&f.wishlist, "wishlist", false, "include wishlist subscriptions")
}

// options resolves the flags against now and validates them.
func (f windowFlags) options(now time.Time) (spend.Options, error) {
	view, err := spend.ParseView(f.view)
	if err != nil {
		return spend.Options{}, err
	}
	opts := spend.Options{
		View:            view,
		Window:          spend.Window{Year: f.year, Month: f.month},
		IncludeWishlist: f.wishlist,
	}
	if opts.Window.Year == 0 {
		opts.Window.Year = now.Year()
	}
	if view == spend.ViewMonthly && opts.Window.Month == 0 {
		opts.Window.Month = int(now.Month())
	}
	if err := opts.Validate(); err != nil {
		return spend.Options{}, err
	}
	return opts, nil
}

func describe(opts spend.Options) string {
	window := spend.Window{Year: opts.Window.Year}
	if opts.View == spend.ViewMonthly {
		window = opts.Window
	}
	s := fmt.Sprintf("%s %s", opts.View, window)
	if opts.IncludeWishlist {
		s += " incl. wishlist"
	}
	return s
}

func newSpendCmd(a *app) *cobra.Command {
	var wf windowFlags
	cmd := &cobra.Command{
		Use:   "spend",
		Short: "Show spend per category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := wf.options(time.Now())
			if err != nil {
				return err
			}
			res, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			b, err := res.Spend.Aggregate(cmd.Context(), opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.RenderTitle("Spend · "+describe(opts)))
			if len(b.Categories) == 0 {
				fmt.Fprintln(out, cli.RenderMuted("Nothing to report for this window."))
				return nil
			}
			fmt.Fprintln(out, cli.RenderTable(breakdownTable(b)))
			return nil
		},
	}
	wf.register(cmd)
	return cmd
}

func breakdownTable(b spend.Breakdown) cli.Table {
	t := cli.Table{Headers: []string{"Category", "Amount", "Share"}}
	for _, c := range b.Categories {
		t.Rows = append(t.Rows, []string{string(c.Category), cli.FormatMoney(c.Value), cli.FormatShare(c.Value, b.Total)})
	}
	t.Rows = append(t.Rows, []string{"---"}, []string{"Total", cli.FormatMoney(b.Total), cli.FormatShare(b.Total, b.Total)})
	return t
}

func newDrillCmd(a *app) *cobra.Command {
	var wf windowFlags
	cmd := &cobra.Command{
		Use:   "drill <category>",
		Short: "List what makes up one category's spend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := wf.options(time.Now())
			if err != nil {
				return err
			}
			res, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			items, err := res.Spend.DrillDown(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}

			category, _ := core.ParseCategory(args[0])
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.RenderTitle(fmt.Sprintf("%s · %s", category, describe(opts))))
			if len(items) == 0 {
				fmt.Fprintln(out, cli.RenderMuted("Nothing in this category for this window."))
				return nil
			}

			t := cli.Table{Headers: []string{"Name", "Kind", "Amount"}}
			var total core.Money
			for _, c := range items {
				total = total.Add(c.Amount)
				t.Rows = append(t.Rows, []string{c.Name(), string(c.Kind), cli.FormatMoney(c.Amount)})
			}
			t.Rows = append(t.Rows, []string{"---"}, []string{"Total", "", cli.FormatMoney(total)})
			fmt.Fprintln(out, cli.RenderTable(t))
			return nil
		},
	}
	wf.register(cmd)
	return cmd
}

func newUpcomingCmd(a *app) *cobra.Command {
	var (
		from     string
		days     int
		wishlist bool
	)
	cmd := &cobra.Command{
		Use:   "upcoming",
		Short: "List the charges due in the next days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start := core.DateOf(time.Now())
			if from != "" {
				d, err := core.ParseDate(from)
				if err != nil {
					return fmt.Errorf("--from: %w", err)
				}
				start = d
			}
			res, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			charges, err := res.Spend.Upcoming(cmd.Context(), start, days, wishlist)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.RenderTitle(fmt.Sprintf("Upcoming · %d days from %s", days, start)))
			if len(charges) == 0 {
				fmt.Fprintln(out, cli.RenderMuted("No charges due."))
				return nil
			}

			t := cli.Table{Headers: []string{"Date", "Name", "Category", "Billing", "Amount"}}
			var total core.Money
			for _, c := range charges {
				total = total.Add(c.Amount)
				t.Rows = append(t.Rows, []string{
					cli.FormatDate(c.Date),
					c.Subscription.Name,
					string(c.Subscription.Category.Normalize()),
					string(c.Subscription.BillingType),
					cli.FormatMoney(c.Amount),
				})
			}
			t.Rows = append(t.Rows, []string{"---"}, []string{"Total", "", "", "", cli.FormatMoney(total)})
			fmt.Fprintln(out, cli.RenderTable(t))
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD (default today)")
	cmd.Flags().IntVar(&days, "days", 30, "number of days to look ahead")
	cmd.Flags().BoolVar(&wishlist, "wishlist", false, "include wishlist subscriptions")
	return cmd
}
