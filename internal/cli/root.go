package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

// Opener produces a started App for one command invocation.
type Opener func(ctx context.Context) (*App, error)

type runner struct {
	open   Opener
	asJSON bool
}

// NewRootCommand creates the fintrack command tree. A nil open uses Bootstrap.
func NewRootCommand(version string, open Opener) *cobra.Command {
	if open == nil {
		open = Bootstrap
	}
	r := &runner{open: open}

	rootCmd := &cobra.Command{
		Use:     "fintrack",
		Short:   "Personal income and expense tracker",
		Version: version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVar(&r.asJSON, "json", false, "print JSON instead of tables")

	rootCmd.AddCommand(
		r.newAddCommand(),
		r.newDeleteCommand(),
		r.newListCommand(),
		r.newSearchCommand(),
		r.newSummaryCommand(),
		r.newChartCommand(),
		r.newRefreshCommand(),
		r.newRecurringCommand(),
		r.newCategoriesCommand(),
		r.newServeCommand(),
		r.newEventsCommand(),
	)
	return rootCmd
}

// with opens the app, runs fn and closes the app.
func (r *runner) with(cmd *cobra.Command, fn func(ctx context.Context, app *App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := r.open(ctx)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(ctx, app)
}

func (r *runner) printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (r *runner) printEntries(w io.Writer, entries []ledger.Entry) error {
	if r.asJSON {
		return r.printJSON(w, entries)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tDATE\tDESCRIPTION\tTYPE\tAMOUNT")
	for _, e := range entries {
		tx := e.Transaction
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", e.Index, tx.Date, tx.Description, tx.Type, signedAmount(tx))
	}
	return tw.Flush()
}

func (r *runner) printTotals(w io.Writer, t core.Totals) error {
	if r.asJSON {
		return r.printJSON(w, t)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Balance\t%s\n", core.FormatAmount(t.Balance))
	fmt.Fprintf(tw, "Income\t%s\n", core.FormatAmount(t.Income))
	fmt.Fprintf(tw, "Outcome\t%s\n", core.FormatAmount(t.Outcome))
	return tw.Flush()
}

func signedAmount(tx core.Transaction) string {
	return core.FormatAmount(tx.Signed())
}

func parseIndexArg(arg string) (int, error) {
	idx, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("%w: index %q is not a number", core.ErrValidation, arg)
	}
	return idx, nil
}
