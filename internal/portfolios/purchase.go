package portfolios

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/portfolios-backend/internal/lifecycle"
	"github.com/angelmondragon/portfolios-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/portfolios-backend/pkg/errors"
)

// PurchaseResult describes what RecordPurchase did.
type PurchaseResult struct {
	Outcome         Outcome
	Reason          string
	RecordID        *uuid.UUID
	FirstPurchaseAt *time.Time
	WindowClosesAt  *time.Time
}

// RecordPurchase opens the purchase window on the client's active record when
// it has none yet. Later orders never move an existing window, and clients
// without an active record are ignored.
func (s *Service) RecordPurchase(ctx context.Context, clientID uuid.UUID, orderedAt time.Time) (PurchaseResult, error) {
	if clientID == uuid.Nil {
		return PurchaseResult{}, pkgerrors.New(pkgerrors.CodeValidation, "client id is required")
	}
	if orderedAt.IsZero() {
		return PurchaseResult{}, pkgerrors.New(pkgerrors.CodeValidation, "order date is required")
	}
	ctx = s.logg.WithOperator(ctx, string(enums.PortfolioOperatorPurchaseHook))
	ctx = s.logg.WithClientID(ctx, clientID.String())

	var result PurchaseResult
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repos := s.bind(tx)
		client, err := repos.clients.Lock(ctx, clientID)
		if err != nil {
			return fmt.Errorf("lock client: %w", err)
		}
		if client == nil {
			result = PurchaseResult{Outcome: OutcomeSkipped, Reason: ReasonClientGone}
			return nil
		}
		active, err := repos.ledger.Active(ctx, clientID)
		if err != nil {
			return err
		}
		if active == nil {
			result = PurchaseResult{Outcome: OutcomeSkipped, Reason: "no_active_record"}
			return nil
		}
		recordID := active.ID
		if active.FirstPurchaseAt != nil {
			result = PurchaseResult{
				Outcome:         OutcomeUnchanged,
				RecordID:        &recordID,
				FirstPurchaseAt: active.FirstPurchaseAt,
				WindowClosesAt:  active.WindowClosesAt,
			}
			return nil
		}

		first, closes := lifecycle.WindowFor(&orderedAt, s.opts.Location)
		updated, err := repos.ledger.SetPurchaseWindow(ctx, active.ID, *first, *closes)
		if err != nil {
			return fmt.Errorf("set purchase window: %w", err)
		}
		if !updated {
			return pkgerrors.New(pkgerrors.CodeConflict, "purchase window changed concurrently")
		}
		result = PurchaseResult{
			Outcome:         OutcomeWindowOpened,
			RecordID:        &recordID,
			FirstPurchaseAt: first,
			WindowClosesAt:  closes,
		}
		return nil
	})
	if err != nil {
		s.metrics.IncOutcome(string(enums.PortfolioOperatorPurchaseHook), string(OutcomeFailed))
		return PurchaseResult{}, fmt.Errorf("record purchase for client %s: %w", clientID, err)
	}

	s.metrics.IncOutcome(string(enums.PortfolioOperatorPurchaseHook), string(result.Outcome))
	fields := map[string]any{"outcome": string(result.Outcome)}
	if result.Reason != "" {
		fields["reason"] = result.Reason
	}
	if result.WindowClosesAt != nil {
		fields["window_closes_at"] = result.WindowClosesAt.Format(time.RFC3339)
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), "purchase recorded")
	return result, nil
}
