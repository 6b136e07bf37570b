package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

func (r *runner) newAddCommand() *cobra.Command {
	var in services.TransactionInput

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record an income or expense",
		Long: "Record a transaction. With --every it becomes a recurring task and\n" +
			"every occurrence due up to today is added right away.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.Date == "" {
				in.Date = time.Now().Format(core.DateLayout)
			}
			return r.with(cmd, func(ctx context.Context, app *App) error {
				tx, err := app.Tracker.AddTransaction(ctx, in)
				if err != nil {
					return err
				}
				if r.asJSON {
					return r.printJSON(cmd.OutOrStdout(), tx)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s on %s (%s)\n",
					tx.Description, signedAmount(tx), tx.Date, tx.Type)
				return r.printTotals(cmd.OutOrStdout(), app.Tracker.Totals())
			})
		},
	}

	cmd.Flags().StringVarP(&in.Description, "description", "d", "", "what the transaction is for (required)")
	cmd.Flags().StringVar(&in.Date, "date", "", "date as YYYY-MM-DD (default today)")
	cmd.Flags().StringVarP(&in.Amount, "amount", "a", "", "positive amount, dot or comma decimals (required)")
	cmd.Flags().StringVarP(&in.Type, "type", "t", "", "category, \"income\" for incomes (required)")
	cmd.Flags().StringVar(&in.RecurrencePeriod, "every", "", "repeat every N days or daily, weekly, monthly, yearly")
	_ = cmd.MarkFlagRequired("description")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func (r *runner) newDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete INDEX",
		Short: "Delete the transaction shown at INDEX by list or search",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := parseIndexArg(args[0])
			if err != nil {
				return err
			}
			return r.with(cmd, func(ctx context.Context, app *App) error {
				tx, err := app.Tracker.DeleteTransaction(ctx, idx)
				if err != nil {
					return err
				}
				if r.asJSON {
					return r.printJSON(cmd.OutOrStdout(), tx)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s %s on %s\n", tx.Description, signedAmount(tx), tx.Date)
				return r.printTotals(cmd.OutOrStdout(), app.Tracker.Totals())
			})
		},
	}
}

func (r *runner) newListCommand() *cobra.Command {
	var months int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, most recent action first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var window *int
			if cmd.Flags().Changed("months") {
				if months < 0 {
					return fmt.Errorf("%w: --months must not be negative", core.ErrValidation)
				}
				window = &months
			}
			return r.with(cmd, func(ctx context.Context, app *App) error {
				return r.printEntries(cmd.OutOrStdout(), app.Tracker.QueryByRecency(window))
			})
		},
	}

	cmd.Flags().IntVar(&months, "months", 0, "only show the trailing N months")
	return cmd
}

func (r *runner) newSearchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "search TERM",
		Short: "Find transactions by description, amount, type or date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.with(cmd, func(ctx context.Context, app *App) error {
				return r.printEntries(cmd.OutOrStdout(), app.Tracker.QueryByText(args[0]))
			})
		},
	}
}

func (r *runner) newSummaryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show balance, income and outcome totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.with(cmd, func(ctx context.Context, app *App) error {
				return r.printTotals(cmd.OutOrStdout(), app.Tracker.Totals())
			})
		},
	}
}

func (r *runner) newChartCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "chart",
		Short: "Show the income versus outcome split",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.with(cmd, func(ctx context.Context, app *App) error {
				chart := app.Tracker.Chart()
				if r.asJSON {
					return r.printJSON(cmd.OutOrStdout(), chart)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Income\t%s\nOutcome\t%s\n",
					core.FormatAmount(chart.IncomeTotal), core.FormatAmount(chart.OutcomeTotal))
				return nil
			})
		},
	}
}

func (r *runner) newRefreshCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Add recurring occurrences that became due",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.with(cmd, func(ctx context.Context, app *App) error {
				n, err := app.Tracker.Refresh(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d occurrence(s) added\n", n)
				return nil
			})
		},
	}
}
