package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/neobank/internal/audit"
	"github.com/roach88/neobank/internal/store"
)

// EventsOptions holds flags for the events command.
type EventsOptions struct {
	*RootOptions
	Subject string
	Kind    string
	OpID    string
	After   int64
	Limit   int
}

// NewEventsCommand creates the events command.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EventsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Query the audit log",
		Long: `Print audit events in log order.

Every committed operation, and every rejected withdrawal that raised the
suspicious activity count, appends events sharing one operation id.

Example:
  neobank events --subject <agent>
  neobank events --kind withdrawal --limit 20
  neobank events --op <op-id> --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvents(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Subject, "subject", "", "filter by subject (agent identity, bank, governance, proposal/<id>)")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter by event kind")
	cmd.Flags().StringVar(&opts.OpID, "op", "", "filter by operation id")
	cmd.Flags().Int64Var(&opts.After, "after", 0, "only events after this sequence number")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of events (0 = all)")

	return cmd
}

func runEvents(opts *EventsOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	return withApp(opts.RootOptions, cmd.ErrOrStderr(), func(ctx context.Context, app *App) error {
		events, err := app.Store.Events(ctx, store.EventFilter{
			Subject:  opts.Subject,
			Kind:     audit.Kind(opts.Kind),
			OpID:     opts.OpID,
			AfterSeq: opts.After,
			Limit:    opts.Limit,
		})
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to query events", err)
		}
		formatter.VerboseLog("Found %d event(s)", len(events))

		if formatter.Format == "json" {
			return formatter.Success(events)
		}
		return formatter.Success(eventTable(events))
	})
}

// eventTable renders events one per line.
type eventTable []audit.Event

func (t eventTable) String() string {
	if len(t) == 0 {
		return "No events found."
	}
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SEQ\tAT\tKIND\tSUBJECT\tOP")
	for _, ev := range t {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			ev.Seq,
			time.Unix(ev.At, 0).UTC().Format(time.RFC3339),
			ev.Kind,
			ev.Subject,
			ev.OpID,
		)
	}
	_ = w.Flush()
	return strings.TrimRight(b.String(), "\n")
}
