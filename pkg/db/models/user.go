package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a customer account or a seller. Clients point at their seller via SellerID.
type User struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string     `gorm:"column:name;not null"`
	IsSeller  bool       `gorm:"column:is_seller;not null;default:false"`
	SellerID  *uuid.UUID `gorm:"column:seller_id;type:uuid"`
	BranchID  *uuid.UUID `gorm:"column:branch_id;type:uuid"`
	Branch    *Branch    `gorm:"foreignKey:BranchID"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string { return "users" }

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// BranchCreatedAt returns the creation time of the client's branch, if loaded.
func (u User) BranchCreatedAt() *time.Time {
	if u.Branch == nil || u.Branch.CreatedAt.IsZero() {
		return nil
	}
	created := u.Branch.CreatedAt
	return &created
}
