package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
)

func (r *runner) newEventsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect ledger events published to the broker",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "tail",
		Short: "Print ledger events from the queue until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := SignalContext(cmd.Context())
			defer stop()
			app, err := r.open(ctx)
			if err != nil {
				return err
			}
			defer app.Close()
			if app.AMQP == nil {
				return errors.New("events need AMQP_URL to point at a reachable broker")
			}

			err = app.AMQP.ConsumeLedgerEvents(ctx, func(msg *amqp.LedgerEventMessage) error {
				return r.printEvent(cmd.OutOrStdout(), msg)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	})

	return cmd
}

func (r *runner) printEvent(w io.Writer, msg *amqp.LedgerEventMessage) error {
	if r.asJSON {
		return r.printJSON(w, msg)
	}
	line := fmt.Sprintf("%s  %-20s balance=%s", msg.Timestamp.Format("2006-01-02 15:04:05"), msg.Kind, core.FormatAmount(msg.Balance))
	if msg.Transaction != nil {
		line += fmt.Sprintf("  %s %s on %s", msg.Transaction.Description, signedAmount(*msg.Transaction), msg.Transaction.Date)
	}
	if msg.Materialized > 0 {
		line += fmt.Sprintf("  +%d occurrence(s)", msg.Materialized)
	}
	_, err := fmt.Fprintln(w, line)
	return err
}
