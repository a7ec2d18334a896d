package portfolios

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/portfolios-backend/internal/assignments"
	"github.com/angelmondragon/portfolios-backend/internal/catalog"
	"github.com/angelmondragon/portfolios-backend/internal/clients"
	"github.com/angelmondragon/portfolios-backend/internal/orders"
	"github.com/angelmondragon/portfolios-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/portfolios-backend/pkg/errors"
	"github.com/angelmondragon/portfolios-backend/pkg/logger"
	"github.com/angelmondragon/portfolios-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams wires the portfolio service.
type ServiceParams struct {
	Logger  *logger.Logger
	DB      txRunner
	Catalog *catalog.Repository
	Ledger  *assignments.Repository
	Clients *clients.Repository
	Orders  orders.Reader
	Metrics *metrics.LifecycleMetrics
	Options Options
	Now     func() time.Time
}

// Service runs the portfolio lifecycle operators against the assignment ledger.
type Service struct {
	logg    *logger.Logger
	db      txRunner
	catalog *catalog.Repository
	ledger  *assignments.Repository
	clients *clients.Repository
	orders  orders.Reader
	metrics *metrics.LifecycleMetrics
	opts    Options
	now     func() time.Time
}

// NewService validates params and builds the service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("assignment ledger required")
	}
	if params.Clients == nil {
		return nil, fmt.Errorf("clients repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order history reader required")
	}
	if err := params.Options.Validate(); err != nil {
		return nil, err
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		logg:    params.Logger,
		db:      params.DB,
		catalog: params.Catalog,
		ledger:  params.Ledger,
		clients: params.Clients,
		orders:  params.Orders,
		metrics: params.Metrics,
		opts:    params.Options,
		now:     now,
	}, nil
}

// Options returns the options the service was built with.
func (s *Service) Options() Options {
	return s.opts
}

// txRepos are the repositories bound to one client transaction.
type txRepos struct {
	catalog *catalog.Repository
	ledger  *assignments.Repository
	clients *clients.Repository
	orders  orders.Reader
}

func (s *Service) bind(tx *gorm.DB) txRepos {
	return txRepos{
		catalog: s.catalog.WithTx(tx),
		ledger:  s.ledger.WithTx(tx),
		clients: s.clients.WithTx(tx),
		orders:  s.orders.WithTx(tx),
	}
}

type clientStep func(ctx context.Context, repos txRepos, clientID uuid.UUID) (clientResult, error)

// runClient processes one client in its own transaction. The transaction rolls
// back on error so a failed client leaves no partial transition behind.
func (s *Service) runClient(ctx context.Context, summary *RunSummary, clientID uuid.UUID, step clientStep) clientResult {
	clientCtx := s.logg.WithClientID(ctx, clientID.String())

	var result clientResult
	err := s.db.WithTx(clientCtx, func(tx *gorm.DB) error {
		var stepErr error
		result, stepErr = step(clientCtx, s.bind(tx), clientID)
		return stepErr
	})
	if err != nil {
		err = fmt.Errorf("client %s: %w", clientID, err)
		summary.fail(err)
		s.metrics.IncOutcome(string(summary.Operator), string(OutcomeFailed))
		logCtx := s.logg.WithFields(clientCtx, pkgerrors.Dump(err).Fields())
		if pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
			s.logg.Error(logCtx, "portfolio ledger invariant violated, client skipped", err)
		} else {
			s.logg.Error(logCtx, "portfolio transition failed, client will be retried next run", err)
		}
		return clientResult{outcome: OutcomeFailed}
	}

	summary.record(result)
	s.metrics.IncOutcome(string(summary.Operator), string(result.outcome))
	if result.outcome == OutcomeSkipped {
		logCtx := s.logg.WithField(clientCtx, "reason", result.reason)
		if result.portfolioID != "" {
			logCtx = s.logg.WithPortfolioID(logCtx, result.portfolioID)
		}
		s.logg.Info(logCtx, "client skipped")
	}
	return result
}

// interrupted records why a run stopped early, keeping the client failures
// already collected, and returns the error the caller reports.
func (s *Service) interrupted(summary *RunSummary, cause error) error {
	summary.Err = multierr.Append(summary.Err, cause)
	return fmt.Errorf("%s interrupted: %w", summary.Operator, cause)
}

func (s *Service) finish(ctx context.Context, summary *RunSummary) {
	s.metrics.ObserveEligible(string(summary.Operator), summary.Eligible)
	logCtx := s.logg.WithFields(ctx, summary.Fields())
	if summary.Failed > 0 {
		s.logg.Warn(logCtx, "portfolio run finished with failures")
		return
	}
	s.logg.Info(logCtx, "portfolio run finished")
}

func (s *Service) disabled(ctx context.Context, operator enums.PortfolioOperator) RunSummary {
	summary := newSummary(operator)
	summary.Disabled = true
	s.logg.Info(s.logg.WithField(ctx, "reason", ReasonDisabled), "portfolio operator disabled")
	return *summary
}

func (s *Service) nowUTC() time.Time {
	return s.now().UTC()
}
