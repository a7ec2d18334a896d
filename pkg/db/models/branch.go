package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Branch is the organizational unit a client belongs to.
type Branch struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Branch) TableName() string { return "branches" }

func (b *Branch) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
