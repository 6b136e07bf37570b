package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

func (r *runner) newRecurringCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recurring",
		Short: "Manage recurring tasks",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List recurring tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.with(cmd, func(ctx context.Context, app *App) error {
				tasks := app.Tracker.RecurringTasks()
				if r.asJSON {
					return r.printJSON(cmd.OutOrStdout(), tasks)
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "#\tSTART\tDESCRIPTION\tTYPE\tAMOUNT\tEVERY")
				for i, task := range tasks {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%dd\n",
						i, task.Date, task.Description, task.Type, core.FormatAmount(task.Signed()), task.Period())
				}
				return tw.Flush()
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "stop INDEX",
		Short: "Stop a recurring task, keeping the occurrences already added",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := parseIndexArg(args[0])
			if err != nil {
				return err
			}
			return r.with(cmd, func(ctx context.Context, app *App) error {
				task, err := app.Tracker.StopRecurringTask(ctx, idx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Stopped %s (every %d days)\n", task.Description, task.Period())
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "edit INDEX PERIOD",
		Short: "Change how often a recurring task repeats",
		Long:  "PERIOD is a number of days or one of daily, weekly, monthly, yearly.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := parseIndexArg(args[0])
			if err != nil {
				return err
			}
			days, err := services.ParsePeriod(args[1])
			if err != nil {
				return err
			}
			return r.with(cmd, func(ctx context.Context, app *App) error {
				if err := app.Tracker.EditRecurringTask(ctx, idx, days); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Recurring task %d now repeats every %d days\n", idx, days)
				return nil
			})
		},
	})

	return cmd
}
