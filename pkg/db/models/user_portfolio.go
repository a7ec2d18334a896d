package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserPortfolio is one assignment ledger row linking a client to a portfolio.
// Rows are never deleted; superseded rows keep IsActive=false.
type UserPortfolio struct {
	ID                  uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID              uuid.UUID  `gorm:"column:user_id;type:uuid;not null"`
	PortfolioID         uuid.UUID  `gorm:"column:portfolio_id;type:uuid;not null"`
	IsActive            bool       `gorm:"column:is_active;not null"`
	AssignedAt          time.Time  `gorm:"column:assigned_at;not null"`
	BranchCreatedAt     *time.Time `gorm:"column:branch_created_at"`
	FirstPurchaseAt     *time.Time `gorm:"column:first_purchase_at"`
	WindowClosesAt      *time.Time `gorm:"column:window_closes_at"`
	PreviousPortfolioID *uuid.UUID `gorm:"column:previous_portfolio_id;type:uuid"`
	CreatedAt           time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (UserPortfolio) TableName() string { return "user_portfolios" }

func (p *UserPortfolio) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
