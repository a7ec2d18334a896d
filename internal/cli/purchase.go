package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

func recordPurchaseCmd(factory Factory) *cobra.Command {
	var clientFlag string
	var orderedAtFlag string

	cmd := &cobra.Command{
		Use:   "portfolios:record-purchase",
		Short: "Open the purchase window of a client's active record",
		Long: `Apply an order to the client's active portfolio record. The first order
sets first_purchase_at and the window close date; later orders leave both
untouched. Clients without an active record are ignored.

--ordered-at accepts RFC3339 or YYYY-MM-DD and defaults to now. A bare date
is midnight in the lifecycle timezone (PORTFOLIOS_LIFECYCLE_TIMEZONE).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			clientID, err := uuid.Parse(strings.TrimSpace(clientFlag))
			if err != nil {
				return fmt.Errorf("--client must be a uuid: %w", err)
			}
			orderedAt, dateOnly, err := parseOrderedAt(orderedAtFlag, time.Now())
			if err != nil {
				return err
			}

			svc, closeFn, err := factory(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			if dateOnly {
				orderedAt = midnightIn(orderedAt, svc.Options().Location)
			}

			result, err := svc.RecordPurchase(cmd.Context(), clientID, orderedAt)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "record-purchase: client=%s outcome=%s", clientID, result.Outcome)
			if result.Reason != "" {
				fmt.Fprintf(out, " reason=%s", result.Reason)
			}
			if result.WindowClosesAt != nil {
				fmt.Fprintf(out, " window_closes_at=%s", result.WindowClosesAt.UTC().Format(time.RFC3339))
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().StringVar(&clientFlag, "client", "", "client (user) id")
	cmd.Flags().StringVar(&orderedAtFlag, "ordered-at", "", "order timestamp, RFC3339 or YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("client")
	return cmd
}

// parseOrderedAt reads the --ordered-at flag. dateOnly reports a bare date,
// which still has to be placed on the lifecycle calendar.
func parseOrderedAt(value string, now time.Time) (t time.Time, dateOnly bool, err error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return now.UTC(), false, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), false, nil
	}
	t, err = time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("--ordered-at must be RFC3339 or %s, got %q", dateLayout, value)
	}
	return t, true, nil
}

// midnightIn moves a parsed calendar date to midnight in loc, returned in UTC.
func midnightIn(date time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc).UTC()
}
