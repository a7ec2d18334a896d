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

// CloseCycle moves every client whose purchase window expired into the
// successor of their portfolio and hands them to the successor's seller.
// Each run advances a client at most one hop along the successor chain.
func (s *Service) CloseCycle(ctx context.Context, params RunParams) (RunSummary, error) {
	ctx = s.logg.WithOperator(ctx, string(enums.PortfolioOperatorCloseCycle))
	if !s.opts.CloseCycleEnabled {
		return s.disabled(ctx, enums.PortfolioOperatorCloseCycle), nil
	}
	if err := params.validate(); err != nil {
		return RunSummary{}, err
	}

	now := s.nowUTC()
	expired, err := s.ledger.ListExpired(ctx, now, params.Limit)
	if err != nil {
		return RunSummary{}, fmt.Errorf("list expired records: %w", err)
	}

	summary := newSummary(enums.PortfolioOperatorCloseCycle)
	summary.Eligible = len(expired)
	var runErr error
	for _, record := range expired {
		if err := ctx.Err(); err != nil {
			runErr = s.interrupted(summary, err)
			break
		}
		recordID := record.ID
		s.runClient(ctx, summary, record.UserID, func(ctx context.Context, repos txRepos, clientID uuid.UUID) (clientResult, error) {
			return s.closeCycleClient(ctx, repos, clientID, recordID, now)
		})
	}
	s.finish(ctx, summary)
	return *summary, runErr
}

func (s *Service) closeCycleClient(ctx context.Context, repos txRepos, clientID, recordID uuid.UUID, now time.Time) (clientResult, error) {
	client, err := repos.clients.Lock(ctx, clientID)
	if err != nil {
		return clientResult{}, fmt.Errorf("lock client: %w", err)
	}
	if client == nil {
		return skipped(ReasonClientGone), nil
	}

	active, err := repos.ledger.Active(ctx, clientID)
	if err != nil {
		return clientResult{}, err
	}
	if active == nil || active.ID != recordID || !lifecycle.IsExpired(*active, now) {
		return skipped(ReasonStateChanged), nil
	}

	portfolio, err := repos.catalog.FindByID(ctx, active.PortfolioID)
	if err != nil {
		return clientResult{}, fmt.Errorf("load portfolio: %w", err)
	}
	if portfolio == nil {
		return clientResult{outcome: OutcomeSkipped, reason: ReasonPortfolioMissing, portfolioID: active.PortfolioID.String()}, nil
	}
	successor, err := repos.catalog.Successor(ctx, *portfolio)
	if err != nil {
		return clientResult{}, fmt.Errorf("load successor portfolio: %w", err)
	}
	if successor == nil {
		return clientResult{outcome: OutcomeSkipped, reason: ReasonNoSuccessor, portfolioID: portfolio.ID.String()}, nil
	}

	branchCreatedAt := client.BranchCreatedAt()
	if branchCreatedAt == nil {
		branchCreatedAt = active.BranchCreatedAt
	}
	next := &models.UserPortfolio{
		UserID:          clientID,
		PortfolioID:     successor.ID,
		AssignedAt:      now,
		BranchCreatedAt: branchCreatedAt,
	}
	if err := repos.ledger.Transition(ctx, active, next); err != nil {
		return clientResult{}, err
	}
	if err := repos.clients.AssignSeller(ctx, clientID, successor.SellerID); err != nil {
		return clientResult{}, fmt.Errorf("assign successor seller: %w", err)
	}
	return clientResult{outcome: OutcomeTransitioned, portfolioID: successor.ID.String()}, nil
}
