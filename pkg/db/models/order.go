package models

import (
	"time"

	"github.com/google/uuid"
)

// Order is the read-only projection of a placed order used for purchase history.
type Order struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null"`
	Status    string    `gorm:"column:status;not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (Order) TableName() string { return "orders" }
