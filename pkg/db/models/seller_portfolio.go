package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/portfolios-backend/pkg/enums"
)

// SellerPortfolio groups clients owned by one seller. SuccessorPortfolioID forms an acyclic chain.
type SellerPortfolio struct {
	ID                   uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name                 string                  `gorm:"column:name;not null"`
	SellerID             uuid.UUID               `gorm:"column:seller_id;type:uuid;not null"`
	Category             enums.PortfolioCategory `gorm:"column:category;type:portfolio_category;not null"`
	SuccessorPortfolioID *uuid.UUID              `gorm:"column:successor_portfolio_id;type:uuid"`
	IsDefault            bool                    `gorm:"column:is_default;not null;default:false"`
	CreatedAt            time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (SellerPortfolio) TableName() string { return "seller_portfolios" }

func (p *SellerPortfolio) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
