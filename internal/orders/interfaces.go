package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reader is the read-only view over a client's order history.
type Reader interface {
	WithTx(tx *gorm.DB) Reader
	// Dates returns every order date of the client, oldest first.
	Dates(ctx context.Context, userID uuid.UUID) ([]time.Time, error)
	// Oldest returns the client's earliest order date, nil when there are no orders.
	Oldest(ctx context.Context, userID uuid.UUID) (*time.Time, error)
}
