package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/portfolios-backend/pkg/db/models"
	"github.com/angelmondragon/portfolios-backend/pkg/enums"
)

// Repository reads the portfolio catalog. Lookups return a nil portfolio when
// nothing matches so callers handle the skip path explicitly.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the catalog to a GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository scoped to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByID loads a portfolio by id.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.SellerPortfolio, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

// FirstForSeller returns the seller's earliest portfolio, the one clients default to.
func (r *Repository) FirstForSeller(ctx context.Context, sellerID uuid.UUID) (*models.SellerPortfolio, error) {
	return r.first(r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at ASC, id ASC"))
}

// DefaultByCategory returns the oldest default portfolio of category.
func (r *Repository) DefaultByCategory(ctx context.Context, category enums.PortfolioCategory) (*models.SellerPortfolio, error) {
	return r.first(r.db.WithContext(ctx).
		Where("category = ? AND is_default = ?", category, true).
		Order("created_at ASC, id ASC"))
}

// Successor returns the portfolio that p migrates into, nil when none is configured.
func (r *Repository) Successor(ctx context.Context, p models.SellerPortfolio) (*models.SellerPortfolio, error) {
	if p.SuccessorPortfolioID == nil {
		return nil, nil
	}
	return r.FindByID(ctx, *p.SuccessorPortfolioID)
}

// ListFilter narrows List.
type ListFilter struct {
	SellerID *uuid.UUID
	Category *enums.PortfolioCategory
}

// List returns catalog entries ordered by creation.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]models.SellerPortfolio, error) {
	query := r.db.WithContext(ctx).Model(&models.SellerPortfolio{})
	if filter.SellerID != nil {
		query = query.Where("seller_id = ?", *filter.SellerID)
	}
	if filter.Category != nil {
		query = query.Where("category = ?", *filter.Category)
	}

	var rows []models.SellerPortfolio
	if err := query.Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) first(query *gorm.DB) (*models.SellerPortfolio, error) {
	var rows []models.SellerPortfolio
	if err := query.Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}
