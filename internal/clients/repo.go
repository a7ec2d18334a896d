package clients

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/portfolios-backend/pkg/db/models"
	"github.com/angelmondragon/portfolios-backend/pkg/pagination"
)

// Repository reads and updates client accounts. Sellers are never returned as clients.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the client directory to a GORM connection.
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

// ListWithSeller returns clients that have a seller recorded. limit <= 0 means no limit.
func (r *Repository) ListWithSeller(ctx context.Context, limit int) ([]models.User, error) {
	query := r.db.WithContext(ctx).
		Where("is_seller = ? AND seller_id IS NOT NULL", false).
		Order("created_at ASC, id ASC")
	return r.list(query, limit)
}

// ListUnassigned returns clients without a seller and without an active
// portfolio record in (created_at, id) order, starting after the keyset
// position after when it is set.
func (r *Repository) ListUnassigned(ctx context.Context, limit int, after *pagination.Cursor) ([]models.User, error) {
	active := r.db.Session(&gorm.Session{NewDB: true}).
		Model(&models.UserPortfolio{}).
		Select("1").
		Where("user_portfolios.user_id = users.id AND user_portfolios.is_active = ?", true)

	query := r.db.WithContext(ctx).
		Where("is_seller = ? AND seller_id IS NULL", false).
		Where("NOT EXISTS (?)", active)
	if after != nil {
		query = query.Where("(created_at > ?) OR (created_at = ? AND id > ?)", after.CreatedAt.UTC(), after.CreatedAt.UTC(), after.ID)
	}
	return r.list(query.Order("created_at ASC, id ASC"), limit)
}

// Lock loads a client row with SELECT ... FOR UPDATE, serializing transitions
// for that client until the surrounding transaction ends. The branch is loaded
// when the client has one. A missing client yields nil.
func (r *Repository) Lock(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var rows []models.User
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	client := &rows[0]
	if err := r.loadBranch(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

// FindByID loads a client and its branch. A missing client yields nil.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var rows []models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	client := &rows[0]
	if err := r.loadBranch(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

// AssignSeller records sellerID as the client's seller.
func (r *Repository) AssignSeller(ctx context.Context, clientID, sellerID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", clientID).
		Update("seller_id", sellerID).Error
}

func (r *Repository) loadBranch(ctx context.Context, client *models.User) error {
	if client.BranchID == nil {
		return nil
	}
	var branches []models.Branch
	if err := r.db.WithContext(ctx).Where("id = ?", *client.BranchID).Limit(1).Find(&branches).Error; err != nil {
		return err
	}
	if len(branches) > 0 {
		client.Branch = &branches[0]
	}
	return nil
}

func (r *Repository) list(query *gorm.DB, limit int) ([]models.User, error) {
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.User
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
