package portfolios

import (
	"go.uber.org/multierr"

	"github.com/angelmondragon/portfolios-backend/pkg/enums"
)

// Outcome is what happened to one client during a run.
type Outcome string

const (
	OutcomeCreated      Outcome = "created"
	OutcomeTransitioned Outcome = "transitioned"
	OutcomeUnchanged    Outcome = "unchanged"
	OutcomeSkipped      Outcome = "skipped"
	OutcomeFailed       Outcome = "failed"
	// OutcomeWindowOpened is the purchase hook setting a first purchase.
	OutcomeWindowOpened Outcome = "window_opened"
)

// Skip reasons recorded in logs and summaries.
const (
	ReasonNoPortfolio      = "seller_has_no_portfolio"
	ReasonNoSuccessor      = "no_successor"
	ReasonNoDefault        = "no_default_portfolio"
	ReasonAlreadyActive    = "already_active"
	ReasonClientGone       = "client_missing"
	ReasonPortfolioMissing = "portfolio_missing"
	ReasonStateChanged     = "state_changed"
	ReasonDisabled         = "operator_disabled"
)

// RunSummary aggregates one operator run.
type RunSummary struct {
	Operator     enums.PortfolioOperator
	Disabled     bool
	Eligible     int
	Created      int
	Transitioned int
	Unchanged    int
	Skipped      int
	Failed       int
	// NewBusiness and Retention split migrate-unassigned assignments by category.
	NewBusiness int
	Retention   int
	SkipReasons map[string]int
	// Err combines every per-client failure; already committed clients are unaffected.
	Err error
}

func newSummary(operator enums.PortfolioOperator) *RunSummary {
	return &RunSummary{Operator: operator, SkipReasons: map[string]int{}}
}

func (s *RunSummary) record(result clientResult) {
	switch result.outcome {
	case OutcomeCreated:
		s.Created++
	case OutcomeTransitioned:
		s.Transitioned++
	case OutcomeUnchanged:
		s.Unchanged++
	case OutcomeSkipped:
		s.Skipped++
		s.SkipReasons[result.reason]++
	case OutcomeFailed:
		s.Failed++
	}
	switch result.category {
	case enums.PortfolioCategoryNewBusiness:
		s.NewBusiness++
	case enums.PortfolioCategoryRetention:
		s.Retention++
	}
}

func (s *RunSummary) fail(err error) {
	s.Failed++
	s.Err = multierr.Append(s.Err, err)
}

// Processed counts clients whose ledger the run actually changed.
func (s RunSummary) Processed() int {
	return s.Created + s.Transitioned
}

// Fields flattens the summary for structured logs.
func (s RunSummary) Fields() map[string]any {
	fields := map[string]any{
		"operator":     string(s.Operator),
		"eligible":     s.Eligible,
		"created":      s.Created,
		"transitioned": s.Transitioned,
		"unchanged":    s.Unchanged,
		"skipped":      s.Skipped,
		"failed":       s.Failed,
	}
	if s.Operator == enums.PortfolioOperatorMigrateUnassigned {
		fields["new_business"] = s.NewBusiness
		fields["retention"] = s.Retention
	}
	if len(s.SkipReasons) > 0 {
		fields["skip_reasons"] = s.SkipReasons
	}
	if s.Disabled {
		fields["disabled"] = true
	}
	return fields
}

type clientResult struct {
	outcome     Outcome
	reason      string
	portfolioID string
	category    enums.PortfolioCategory
	// missingDefault marks a client no default portfolio can take yet.
	missingDefault bool
}

func unchanged() clientResult { return clientResult{outcome: OutcomeUnchanged} }

func skipped(reason string) clientResult {
	return clientResult{outcome: OutcomeSkipped, reason: reason}
}
