package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/angelmondragon/portfolios-backend/internal/portfolios"
)

// Lifecycle is the operator surface driven from the command line.
type Lifecycle interface {
	Sync(ctx context.Context, params portfolios.RunParams) (portfolios.RunSummary, error)
	CloseCycle(ctx context.Context, params portfolios.RunParams) (portfolios.RunSummary, error)
	MigrateUnassigned(ctx context.Context, params portfolios.RunParams) (portfolios.RunSummary, error)
	RecordPurchase(ctx context.Context, clientID uuid.UUID, orderedAt time.Time) (portfolios.PurchaseResult, error)
	Options() portfolios.Options
}

// Factory builds the lifecycle service when a command first needs it. The
// returned func releases whatever the factory opened.
type Factory func(ctx context.Context) (Lifecycle, func(), error)

// NewRootCmd returns the portfolios command tree.
func NewRootCmd(factory Factory) *cobra.Command {
	root := &cobra.Command{
		Use:   "portfolios",
		Short: "Seller portfolio lifecycle operators",
		Long: `Run the portfolio lifecycle operators by hand.

Each operator is safe to re-run: clients already in the right state are left
untouched. Per-client failures are logged and reported but do not change the
exit status; they are picked up again by the next run. A run that is
interrupted prints what it did so far and exits non-zero.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		syncCmd(factory),
		closeCycleCmd(factory),
		migrateUnassignedCmd(factory),
		recordPurchaseCmd(factory),
	)
	return root
}

type operatorFunc func(Lifecycle, context.Context, portfolios.RunParams) (portfolios.RunSummary, error)

func syncCmd(factory Factory) *cobra.Command {
	return operatorCmd(factory, operatorDef{
		use:   "portfolios:sync",
		short: "Give every seller-assigned client an active record in a portfolio of their seller",
		long: `Open a record for clients whose seller has no matching active portfolio
record. Clients without any record enter the seller's first portfolio; clients
whose active portfolio belongs to another seller are moved.`,
		run: Lifecycle.Sync,
	})
}

func closeCycleCmd(factory Factory) *cobra.Command {
	return operatorCmd(factory, operatorDef{
		use:   "portfolios:close-cycle",
		short: "Move clients whose purchase window has closed to the successor portfolio",
		long: `Close each active new-business record whose purchase window ended and
open a record in the portfolio's successor. The client's seller becomes the
successor's owner. Records whose portfolio has no successor are skipped.`,
		run: Lifecycle.CloseCycle,
	})
}

func migrateUnassignedCmd(factory Factory) *cobra.Command {
	return operatorCmd(factory, operatorDef{
		use:   "portfolios:migrate-unassigned",
		short: "Place clients without a seller into a default portfolio",
		long: `Assign clients with no seller to the default portfolio of the category their
order history calls for. Without --limit the configured batch size applies
(PORTFOLIOS_MIGRATE_UNASSIGNED_LIMIT, 100 unless set).`,
		run: Lifecycle.MigrateUnassigned,
	})
}

type operatorDef struct {
	use   string
	short string
	long  string
	run   operatorFunc
}

func operatorCmd(factory Factory, def operatorDef) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   def.use,
		Short: def.short,
		Long:  def.long,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return fmt.Errorf("--limit must be >= 0, got %d", limit)
			}
			svc, closeFn, err := factory(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			summary, err := def.run(svc, cmd.Context(), portfolios.RunParams{Limit: limit})
			if err == nil || summary.Operator != "" {
				printSummary(cmd.OutOrStdout(), def.use, summary)
				for _, failure := range multierr.Errors(summary.Err) {
					fmt.Fprintf(cmd.ErrOrStderr(), "  failed: %v\n", failure)
				}
			}
			if err != nil {
				return fmt.Errorf("%s: %w", def.use, err)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of clients to process (0 = operator default)")
	return cmd
}

func printSummary(w io.Writer, name string, summary portfolios.RunSummary) {
	if summary.Disabled {
		fmt.Fprintf(w, "%s: disabled\n", name)
		return
	}
	fmt.Fprintf(w, "%s: eligible=%d created=%d transitioned=%d unchanged=%d skipped=%d failed=%d\n",
		name, summary.Eligible, summary.Created, summary.Transitioned, summary.Unchanged, summary.Skipped, summary.Failed)
	if summary.NewBusiness > 0 || summary.Retention > 0 {
		fmt.Fprintf(w, "  new_business=%d retention=%d\n", summary.NewBusiness, summary.Retention)
	}
	if len(summary.SkipReasons) > 0 {
		reasons := make([]string, 0, len(summary.SkipReasons))
		for reason, count := range summary.SkipReasons {
			reasons = append(reasons, fmt.Sprintf("%s=%d", reason, count))
		}
		sort.Strings(reasons)
		fmt.Fprintf(w, "  skipped: %s\n", strings.Join(reasons, " "))
	}
}
