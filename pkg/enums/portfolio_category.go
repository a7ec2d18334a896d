package enums

import "fmt"

// PortfolioCategory maps to the portfolio_category enum in Postgres.
type PortfolioCategory string

const (
	// PortfolioCategoryNewBusiness holds clients inside their first purchase window.
	PortfolioCategoryNewBusiness PortfolioCategory = "new_business"
	// PortfolioCategoryRetention holds clients whose purchase window already closed.
	PortfolioCategoryRetention PortfolioCategory = "retention"
)

var validPortfolioCategories = []PortfolioCategory{
	PortfolioCategoryNewBusiness,
	PortfolioCategoryRetention,
}

// IsValid reports whether the value matches the canonical portfolio category enum.
func (c PortfolioCategory) IsValid() bool {
	for _, candidate := range validPortfolioCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

func (c PortfolioCategory) String() string { return string(c) }

// ParsePortfolioCategory converts raw input into PortfolioCategory.
func ParsePortfolioCategory(value string) (PortfolioCategory, error) {
	for _, candidate := range validPortfolioCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid portfolio category %q", value)
}
