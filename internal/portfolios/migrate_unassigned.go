package portfolios

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/portfolios-backend/internal/lifecycle"
	"github.com/angelmondragon/portfolios-backend/pkg/db/models"
	"github.com/angelmondragon/portfolios-backend/pkg/enums"
	"github.com/angelmondragon/portfolios-backend/pkg/pagination"
)

// MigrateUnassigned places clients without a seller into the default portfolio
// of the category their order history calls for and hands them to that
// portfolio's seller. Clients with no orders, or whose window from the oldest
// order is still open, enter new-business; the rest enter retention directly.
//
// Clients left out because their category has no default do not count toward
// the limit: the run pages past them so newer clients still get placed.
func (s *Service) MigrateUnassigned(ctx context.Context, params RunParams) (RunSummary, error) {
	ctx = s.logg.WithOperator(ctx, string(enums.PortfolioOperatorMigrateUnassigned))
	if !s.opts.MigrateUnassignedEnabled {
		return s.disabled(ctx, enums.PortfolioOperatorMigrateUnassigned), nil
	}
	if err := params.validate(); err != nil {
		return RunSummary{}, err
	}
	limit := params.Limit
	if limit == 0 {
		limit = s.opts.MigrateUnassignedLimit
	}
	if limit == 0 {
		limit = DefaultMigrateLimit
	}

	targets, err := s.defaultPortfolios(ctx)
	if err != nil {
		return RunSummary{}, err
	}

	now := s.nowUTC()
	summary := newSummary(enums.PortfolioOperatorMigrateUnassigned)
	if len(targets) == 0 {
		s.logg.Warn(s.logg.WithField(ctx, "reason", ReasonNoDefault), "no default portfolio configured, unassigned clients left as they are")
		s.finish(ctx, summary)
		return *summary, nil
	}

	var (
		after  *pagination.Cursor
		runErr error
	)
	remaining := limit
pages:
	for remaining > 0 {
		pageSize := remaining
		page, err := s.clients.ListUnassigned(ctx, pageSize, after)
		if err != nil {
			runErr = fmt.Errorf("list unassigned clients: %w", err)
			break
		}
		summary.Eligible += len(page)
		for _, client := range page {
			if err := ctx.Err(); err != nil {
				runErr = s.interrupted(summary, err)
				break pages
			}
			result := s.runClient(ctx, summary, client.ID, func(ctx context.Context, repos txRepos, clientID uuid.UUID) (clientResult, error) {
				return s.migrateClient(ctx, repos, clientID, targets, now)
			})
			if !result.missingDefault {
				remaining--
			}
		}
		if len(page) < pageSize {
			break
		}
		last := page[len(page)-1]
		after = &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	s.finish(ctx, summary)
	return *summary, runErr
}

// defaultPortfolios resolves the default portfolio of each category once per
// run. Categories without a default are absent from the map.
func (s *Service) defaultPortfolios(ctx context.Context) (map[enums.PortfolioCategory]models.SellerPortfolio, error) {
	targets := make(map[enums.PortfolioCategory]models.SellerPortfolio, 2)
	for _, category := range []enums.PortfolioCategory{enums.PortfolioCategoryNewBusiness, enums.PortfolioCategoryRetention} {
		portfolio, err := s.catalog.DefaultByCategory(ctx, category)
		if err != nil {
			return nil, fmt.Errorf("load default %s portfolio: %w", category, err)
		}
		if portfolio != nil {
			targets[category] = *portfolio
		}
	}
	return targets, nil
}

func (s *Service) migrateClient(ctx context.Context, repos txRepos, clientID uuid.UUID, targets map[enums.PortfolioCategory]models.SellerPortfolio, now time.Time) (clientResult, error) {
	client, err := repos.clients.Lock(ctx, clientID)
	if err != nil {
		return clientResult{}, fmt.Errorf("lock client: %w", err)
	}
	if client == nil {
		return skipped(ReasonClientGone), nil
	}
	if client.IsSeller || client.SellerID != nil {
		return skipped(ReasonStateChanged), nil
	}

	active, err := repos.ledger.Active(ctx, clientID)
	if err != nil {
		return clientResult{}, err
	}
	if active != nil {
		return clientResult{outcome: OutcomeSkipped, reason: ReasonAlreadyActive, portfolioID: active.PortfolioID.String()}, nil
	}

	oldest, err := repos.orders.Oldest(ctx, clientID)
	if err != nil {
		return clientResult{}, fmt.Errorf("read order history: %w", err)
	}
	category, firstPurchaseAt, windowClosesAt := s.placement(oldest, now)

	target, ok := targets[category]
	if !ok {
		result := skipped(ReasonNoDefault + ":" + category.String())
		result.missingDefault = true
		return result, nil
	}

	next := &models.UserPortfolio{
		UserID:          clientID,
		PortfolioID:     target.ID,
		AssignedAt:      now,
		BranchCreatedAt: client.BranchCreatedAt(),
		FirstPurchaseAt: firstPurchaseAt,
		WindowClosesAt:  windowClosesAt,
	}
	if err := repos.ledger.Transition(ctx, nil, next); err != nil {
		return clientResult{}, err
	}
	if err := repos.clients.AssignSeller(ctx, clientID, target.SellerID); err != nil {
		return clientResult{}, fmt.Errorf("assign default seller: %w", err)
	}
	return clientResult{outcome: OutcomeCreated, portfolioID: target.ID.String(), category: category}, nil
}

// placement picks the category and purchase fields for a client whose oldest
// order is oldest. Retention entries carry no window.
func (s *Service) placement(oldest *time.Time, now time.Time) (enums.PortfolioCategory, *time.Time, *time.Time) {
	firstPurchaseAt, windowClosesAt := lifecycle.WindowFor(oldest, s.opts.Location)
	if windowClosesAt == nil {
		return enums.PortfolioCategoryNewBusiness, nil, nil
	}
	if lifecycle.WindowExpired(*windowClosesAt, now) {
		return enums.PortfolioCategoryRetention, firstPurchaseAt, nil
	}
	return enums.PortfolioCategoryNewBusiness, firstPurchaseAt, windowClosesAt
}
