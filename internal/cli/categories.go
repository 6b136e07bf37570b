package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func (r *runner) newCategoriesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "categories",
		Aliases: []string{"cat"},
		Short:   "Manage transaction categories",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List categories with their index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.with(cmd, func(ctx context.Context, app *App) error {
				if r.asJSON {
					return r.printJSON(cmd.OutOrStdout(), app.Tracker.CategoryOptions())
				}
				for i, name := range app.Tracker.Categories() {
					fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", i, name)
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add NAME",
		Short: "Append a category",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.Join(args, " ")
			return r.with(cmd, func(ctx context.Context, app *App) error {
				if err := app.Tracker.AddCategory(ctx, name); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added category %s\n", strings.TrimSpace(name))
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete INDEX",
		Short: "Delete the category at INDEX",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := parseIndexArg(args[0])
			if err != nil {
				return err
			}
			return r.with(cmd, func(ctx context.Context, app *App) error {
				if err := app.Tracker.DeleteCategory(ctx, idx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted category %d\n", idx)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rename INDEX NAME",
		Short: "Rename the category at INDEX",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := parseIndexArg(args[0])
			if err != nil {
				return err
			}
			name := strings.Join(args[1:], " ")
			return r.with(cmd, func(ctx context.Context, app *App) error {
				if err := app.Tracker.RenameCategory(ctx, idx, name); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Renamed category %d to %s\n", idx, strings.TrimSpace(name))
				return nil
			})
		},
	})

	return cmd
}
