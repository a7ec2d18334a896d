package portfolios

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/portfolios-backend/internal/catalog"
	"github.com/angelmondragon/portfolios-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/portfolios-backend/pkg/errors"
	"github.com/angelmondragon/portfolios-backend/pkg/pagination"
)

// PortfolioSummary is a catalog entry with its current client count.
type PortfolioSummary struct {
	Portfolio     models.SellerPortfolio
	ActiveClients int64
}

// ListPortfolios returns the catalog with active client counts.
func (s *Service) ListPortfolios(ctx context.Context, filter catalog.ListFilter) ([]PortfolioSummary, error) {
	rows, err := s.catalog.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list portfolios: %w", err)
	}
	counts, err := s.ledger.CountActiveByPortfolio(ctx)
	if err != nil {
		return nil, fmt.Errorf("count active clients: %w", err)
	}
	out := make([]PortfolioSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, PortfolioSummary{Portfolio: row, ActiveClients: counts[row.ID]})
	}
	return out, nil
}

// ActiveClientsPage is one page of a portfolio's active records.
type ActiveClientsPage struct {
	Records    []models.UserPortfolio
	NextCursor string
}

// ActiveClients pages through the clients currently assigned to a portfolio.
func (s *Service) ActiveClients(ctx context.Context, portfolioID uuid.UUID, params pagination.Params) (*ActiveClientsPage, error) {
	portfolio, err := s.catalog.FindByID(ctx, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("load portfolio: %w", err)
	}
	if portfolio == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "portfolio not found")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	records, next, err := s.ledger.ListActiveByPortfolio(ctx, portfolioID, params.Limit, cursor)
	if err != nil {
		return nil, fmt.Errorf("list active records: %w", err)
	}
	page := &ActiveClientsPage{Records: records}
	if next != nil {
		page.NextCursor = pagination.EncodeCursor(*next)
	}
	return page, nil
}

// ClientHistory returns the full assignment trail of a client, oldest first.
func (s *Service) ClientHistory(ctx context.Context, clientID uuid.UUID) ([]models.UserPortfolio, error) {
	client, err := s.clients.FindByID(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("load client: %w", err)
	}
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "client not found")
	}
	history, err := s.ledger.History(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return history, nil
}
