package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/portfolios-backend/api/responses"
	"github.com/angelmondragon/portfolios-backend/api/validators"
	"github.com/angelmondragon/portfolios-backend/internal/catalog"
	"github.com/angelmondragon/portfolios-backend/internal/portfolios"
	"github.com/angelmondragon/portfolios-backend/pkg/db/models"
	"github.com/angelmondragon/portfolios-backend/pkg/logger"
	"github.com/angelmondragon/portfolios-backend/pkg/pagination"
)

// PortfolioQueries is the read side of the portfolio service.
type PortfolioQueries interface {
	ListPortfolios(ctx context.Context, filter catalog.ListFilter) ([]portfolios.PortfolioSummary, error)
	ActiveClients(ctx context.Context, portfolioID uuid.UUID, params pagination.Params) (*portfolios.ActiveClientsPage, error)
	ClientHistory(ctx context.Context, clientID uuid.UUID) ([]models.UserPortfolio, error)
}

type portfolioResponse struct {
	ID                   uuid.UUID  `json:"id"`
	Name                 string     `json:"name"`
	SellerID             uuid.UUID  `json:"sellerId"`
	Category             string     `json:"category"`
	SuccessorPortfolioID *uuid.UUID `json:"successorPortfolioId,omitempty"`
	IsDefault            bool       `json:"isDefault"`
	ActiveClients        int64      `json:"activeClients"`
	CreatedAt            time.Time  `json:"createdAt"`
}

type assignmentResponse struct {
	ID                  uuid.UUID  `json:"id"`
	ClientID            uuid.UUID  `json:"clientId"`
	PortfolioID         uuid.UUID  `json:"portfolioId"`
	IsActive            bool       `json:"isActive"`
	AssignedAt          time.Time  `json:"assignedAt"`
	BranchCreatedAt     *time.Time `json:"branchCreatedAt,omitempty"`
	FirstPurchaseAt     *time.Time `json:"firstPurchaseAt,omitempty"`
	WindowClosesAt      *time.Time `json:"windowClosesAt,omitempty"`
	PreviousPortfolioID *uuid.UUID `json:"previousPortfolioId,omitempty"`
}

func toAssignmentResponses(rows []models.UserPortfolio) []assignmentResponse {
	out := make([]assignmentResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, assignmentResponse{
			ID:                  row.ID,
			ClientID:            row.UserID,
			PortfolioID:         row.PortfolioID,
			IsActive:            row.IsActive,
			AssignedAt:          row.AssignedAt,
			BranchCreatedAt:     row.BranchCreatedAt,
			FirstPurchaseAt:     row.FirstPurchaseAt,
			WindowClosesAt:      row.WindowClosesAt,
			PreviousPortfolioID: row.PreviousPortfolioID,
		})
	}
	return out
}

// ListPortfolios returns the catalog, optionally filtered by sellerId and category.
func ListPortfolios(svc PortfolioQueries, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := validators.ParseQueryUUID(r, "sellerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		category, err := validators.ParseQueryCategory(r, "category")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListPortfolios(r.Context(), catalog.ListFilter{SellerID: sellerID, Category: category})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]portfolioResponse, 0, len(rows))
		for _, row := range rows {
			p := row.Portfolio
			out = append(out, portfolioResponse{
				ID:                   p.ID,
				Name:                 p.Name,
				SellerID:             p.SellerID,
				Category:             string(p.Category),
				SuccessorPortfolioID: p.SuccessorPortfolioID,
				IsDefault:            p.IsDefault,
				ActiveClients:        row.ActiveClients,
				CreatedAt:            p.CreatedAt,
			})
		}
		responses.WriteSuccess(w, out)
	}
}

// PortfolioClients pages through the clients currently assigned to a portfolio.
func PortfolioClients(svc PortfolioQueries, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		portfolioID, err := validators.ParseURLUUID(r, "portfolioId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ActiveClients(r.Context(), portfolioID, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WritePage(w, toAssignmentResponses(page.Records), page.NextCursor)
	}
}

// ClientPortfolioHistory returns every assignment of a client, oldest first.
func ClientPortfolioHistory(svc PortfolioQueries, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID, err := validators.ParseURLUUID(r, "clientId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		history, err := svc.ClientHistory(r.Context(), clientID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toAssignmentResponses(history))
	}
}
