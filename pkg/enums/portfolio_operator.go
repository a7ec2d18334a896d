package enums

import "fmt"

// PortfolioOperator identifies which process wrote an assignment record.
type PortfolioOperator string

const (
	PortfolioOperatorSync              PortfolioOperator = "sync"
	PortfolioOperatorCloseCycle        PortfolioOperator = "close_cycle"
	PortfolioOperatorMigrateUnassigned PortfolioOperator = "migrate_unassigned"
	PortfolioOperatorPurchaseHook      PortfolioOperator = "purchase_hook"
)

var validPortfolioOperators = []PortfolioOperator{
	PortfolioOperatorSync,
	PortfolioOperatorCloseCycle,
	PortfolioOperatorMigrateUnassigned,
	PortfolioOperatorPurchaseHook,
}

// IsValid reports whether the value is a known operator.
func (o PortfolioOperator) IsValid() bool {
	for _, candidate := range validPortfolioOperators {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParsePortfolioOperator converts raw input into PortfolioOperator.
func ParsePortfolioOperator(value string) (PortfolioOperator, error) {
	for _, candidate := range validPortfolioOperators {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid portfolio operator %q", value)
}
