package assignments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/portfolios-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/portfolios-backend/pkg/errors"
	"github.com/angelmondragon/portfolios-backend/pkg/pagination"
)

// ActiveIndexName is the Postgres partial unique index allowing one active record per client.
const ActiveIndexName = "user_portfolios_one_active_per_user"

var (
	// ErrMultipleActive means a client holds more than one active record.
	ErrMultipleActive = errors.New("client has more than one active portfolio record")
	// ErrAlreadyClosed means the record was deactivated by a concurrent writer.
	ErrAlreadyClosed = errors.New("portfolio record already inactive")
)

// Repository is the assignment ledger. Rows are only ever inserted or
// deactivated, never deleted.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the ledger to a GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a ledger scoped to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Active returns the client's active record or nil. More than one active
// record is reported as a state conflict instead of picking one.
func (r *Repository) Active(ctx context.Context, userID uuid.UUID) (*models.UserPortfolio, error) {
	var rows []models.UserPortfolio
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("assigned_at ASC, id ASC").
		Limit(2).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, nil
	case 1:
		return &rows[0], nil
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeStateConflict, ErrMultipleActive, fmt.Sprintf("client %s", userID))
	}
}

// Open inserts a new active record.
func (r *Repository) Open(ctx context.Context, record *models.UserPortfolio) error {
	if record == nil {
		return fmt.Errorf("record is required")
	}
	record.IsActive = true
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		if pkgerrors.IsUniqueViolation(err, ActiveIndexName) {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "client already has an active portfolio record")
		}
		return err
	}
	return nil
}

// Close deactivates an active record.
func (r *Repository) Close(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&models.UserPortfolio{}).
		Where("id = ? AND is_active = ?", id, true).
		UpdateColumn("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, ErrAlreadyClosed, id.String())
	}
	return nil
}

// Transition closes current and opens next, linking next back to current's
// portfolio. Callers run it inside the client's transaction.
func (r *Repository) Transition(ctx context.Context, current, next *models.UserPortfolio) error {
	if next == nil {
		return fmt.Errorf("next record is required")
	}
	if current != nil {
		if current.UserID != next.UserID {
			return fmt.Errorf("transition across clients %s and %s", current.UserID, next.UserID)
		}
		if err := r.Close(ctx, current.ID); err != nil {
			return fmt.Errorf("close record %s: %w", current.ID, err)
		}
		previous := current.PortfolioID
		next.PreviousPortfolioID = &previous
	} else {
		next.PreviousPortfolioID = nil
	}
	if err := r.Open(ctx, next); err != nil {
		return fmt.Errorf("open record for portfolio %s: %w", next.PortfolioID, err)
	}
	return nil
}

// ListExpired returns active records whose window closed before now, oldest
// closing first. Clients holding more than one active record are left out;
// Active reports them wherever they are loaded. limit <= 0 means no limit.
func (r *Repository) ListExpired(ctx context.Context, now time.Time, limit int) ([]models.UserPortfolio, error) {
	query := r.db.WithContext(ctx).
		Where("is_active = ? AND window_closes_at IS NOT NULL AND window_closes_at < ?", true, now.UTC()).
		Where("NOT EXISTS (SELECT 1 FROM user_portfolios AS other WHERE other.user_id = user_portfolios.user_id AND other.is_active = ? AND other.id <> user_portfolios.id)", true).
		Order("window_closes_at ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []models.UserPortfolio
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// SetPurchaseWindow fills the purchase fields of an active record that has
// none yet. It reports false when the record already had a first purchase.
func (r *Repository) SetPurchaseWindow(ctx context.Context, id uuid.UUID, firstPurchaseAt, windowClosesAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.UserPortfolio{}).
		Where("id = ? AND is_active = ? AND first_purchase_at IS NULL", id, true).
		UpdateColumns(map[string]any{
			"first_purchase_at": firstPurchaseAt.UTC(),
			"window_closes_at":  windowClosesAt.UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// History returns every record of a client in assignment order.
func (r *Repository) History(ctx context.Context, userID uuid.UUID) ([]models.UserPortfolio, error) {
	var rows []models.UserPortfolio
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("assigned_at ASC, created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListActiveByPortfolio pages through the active records of a portfolio, newest first.
func (r *Repository) ListActiveByPortfolio(ctx context.Context, portfolioID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.UserPortfolio, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).
		Where("portfolio_id = ? AND is_active = ?", portfolioID, true)
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt.UTC(), cursor.CreatedAt.UTC(), cursor.ID)
	}

	var rows []models.UserPortfolio
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(limit)).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(rows, limit, func(row models.UserPortfolio) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
	return page, next, nil
}

// CountActiveByPortfolio returns the number of clients currently in each portfolio.
func (r *Repository) CountActiveByPortfolio(ctx context.Context) (map[uuid.UUID]int64, error) {
	type countRow struct {
		PortfolioID uuid.UUID
		Total       int64
	}
	var rows []countRow
	if err := r.db.WithContext(ctx).
		Model(&models.UserPortfolio{}).
		Select("portfolio_id, COUNT(*) AS total").
		Where("is_active = ?", true).
		Group("portfolio_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		counts[row.PortfolioID] = row.Total
	}
	return counts, nil
}
