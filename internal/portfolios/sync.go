package portfolios

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/portfolios-backend/internal/lifecycle"
	"github.com/angelmondragon/portfolios-backend/pkg/db/models"
	"github.com/angelmondragon/portfolios-backend/pkg/enums"
)

// Sync reconciles each client's active record with the portfolio their recorded
// seller defaults to. It never changes the client's seller.
func (s *Service) Sync(ctx context.Context, params RunParams) (RunSummary, error) {
	ctx = s.logg.WithOperator(ctx, string(enums.PortfolioOperatorSync))
	if !s.opts.SyncEnabled {
		return s.disabled(ctx, enums.PortfolioOperatorSync), nil
	}
	if err := params.validate(); err != nil {
		return RunSummary{}, err
	}

	clientsWithSeller, err := s.clients.ListWithSeller(ctx, params.Limit)
	if err != nil {
		return RunSummary{}, fmt.Errorf("list clients with seller: %w", err)
	}

	now := s.nowUTC()
	summary := newSummary(enums.PortfolioOperatorSync)
	summary.Eligible = len(clientsWithSeller)
	var runErr error
	for _, client := range clientsWithSeller {
		if err := ctx.Err(); err != nil {
			runErr = s.interrupted(summary, err)
			break
		}
		s.runClient(ctx, summary, client.ID, func(ctx context.Context, repos txRepos, clientID uuid.UUID) (clientResult, error) {
			return s.syncClient(ctx, repos, clientID, now)
		})
	}
	s.finish(ctx, summary)
	return *summary, runErr
}

func (s *Service) syncClient(ctx context.Context, repos txRepos, clientID uuid.UUID, now time.Time) (clientResult, error) {
	client, err := repos.clients.Lock(ctx, clientID)
	if err != nil {
		return clientResult{}, fmt.Errorf("lock client: %w", err)
	}
	if client == nil {
		return skipped(ReasonClientGone), nil
	}
	if client.IsSeller || client.SellerID == nil {
		return skipped(ReasonStateChanged), nil
	}
	sellerID := *client.SellerID

	active, err := repos.ledger.Active(ctx, client.ID)
	if err != nil {
		return clientResult{}, err
	}
	if active != nil {
		current, err := repos.catalog.FindByID(ctx, active.PortfolioID)
		if err != nil {
			return clientResult{}, fmt.Errorf("load active portfolio: %w", err)
		}
		// Any portfolio owned by the current seller is a match.
		if current != nil && current.SellerID == sellerID {
			return unchanged(), nil
		}
	}

	target, err := repos.catalog.FirstForSeller(ctx, sellerID)
	if err != nil {
		return clientResult{}, fmt.Errorf("load seller portfolio: %w", err)
	}
	if target == nil {
		return skipped(ReasonNoPortfolio), nil
	}
	if active != nil && active.PortfolioID == target.ID {
		return unchanged(), nil
	}

	next := &models.UserPortfolio{
		UserID:          client.ID,
		PortfolioID:     target.ID,
		AssignedAt:      now,
		BranchCreatedAt: client.BranchCreatedAt(),
	}
	if active == nil && s.opts.SyncBackfill {
		oldest, err := repos.orders.Oldest(ctx, client.ID)
		if err != nil {
			return clientResult{}, fmt.Errorf("read order history: %w", err)
		}
		next.FirstPurchaseAt, next.WindowClosesAt = lifecycle.WindowFor(oldest, s.opts.Location)
	}

	if err := repos.ledger.Transition(ctx, active, next); err != nil {
		return clientResult{}, err
	}

	result := clientResult{outcome: OutcomeCreated, portfolioID: target.ID.String()}
	if active != nil {
		result.outcome = OutcomeTransitioned
	}
	return result, nil
}
