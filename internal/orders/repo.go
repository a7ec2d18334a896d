package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/portfolios-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an order history reader bound to the provided DB.
func NewRepository(db *gorm.DB) Reader {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Reader {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Dates(ctx context.Context, userID uuid.UUID) ([]time.Time, error) {
	var rows []models.Order
	if err := r.db.WithContext(ctx).
		Select("id", "created_at").
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	dates := make([]time.Time, 0, len(rows))
	for _, row := range rows {
		dates = append(dates, row.CreatedAt.UTC())
	}
	return dates, nil
}

// Oldest sorts in the database rather than aggregating so the driver returns a
// typed timestamp on every engine.
func (r *repository) Oldest(ctx context.Context, userID uuid.UUID) (*time.Time, error) {
	var rows []models.Order
	if err := r.db.WithContext(ctx).
		Select("id", "created_at").
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	oldest := rows[0].CreatedAt.UTC()
	return &oldest, nil
}
