package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/portfolios-backend/internal/portfolios"
	"github.com/angelmondragon/portfolios-backend/pkg/logger"
	"go.uber.org/multierr"
)

const (
	JobSync              = "portfolios-sync"
	JobCloseCycle        = "portfolios-close-cycle"
	JobMigrateUnassigned = "portfolios-migrate-unassigned"
)

// Operator is the lifecycle surface the scheduled jobs drive.
type Operator interface {
	Sync(ctx context.Context, params portfolios.RunParams) (portfolios.RunSummary, error)
	CloseCycle(ctx context.Context, params portfolios.RunParams) (portfolios.RunSummary, error)
	MigrateUnassigned(ctx context.Context, params portfolios.RunParams) (portfolios.RunSummary, error)
}

type runFunc func(ctx context.Context, params portfolios.RunParams) (portfolios.RunSummary, error)

// OperatorJobParams wires one scheduled operator run.
type OperatorJobParams struct {
	Logger   *logger.Logger
	Operator Operator
	// Limit caps eligible clients per run; zero lets the operator decide.
	Limit int
}

type operatorJob struct {
	name   string
	logg   *logger.Logger
	run    runFunc
	params portfolios.RunParams
}

// NewSyncJob schedules the sync operator.
func NewSyncJob(params OperatorJobParams) (Job, error) {
	return newOperatorJob(JobSync, params, func(op Operator) runFunc { return op.Sync })
}

// NewCloseCycleJob schedules the close-cycle operator.
func NewCloseCycleJob(params OperatorJobParams) (Job, error) {
	return newOperatorJob(JobCloseCycle, params, func(op Operator) runFunc { return op.CloseCycle })
}

// NewMigrateUnassignedJob schedules the migrate-unassigned operator.
func NewMigrateUnassignedJob(params OperatorJobParams) (Job, error) {
	return newOperatorJob(JobMigrateUnassigned, params, func(op Operator) runFunc { return op.MigrateUnassigned })
}

// DefaultJobs registers the operators in the order a daily cycle runs them:
// expired windows move on first, then seller changes, then unassigned clients.
func DefaultJobs(params OperatorJobParams) ([]Job, error) {
	constructors := []func(OperatorJobParams) (Job, error){
		NewCloseCycleJob,
		NewSyncJob,
		NewMigrateUnassignedJob,
	}
	jobs := make([]Job, 0, len(constructors))
	for _, build := range constructors {
		job, err := build(params)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func newOperatorJob(name string, params OperatorJobParams, pick func(Operator) runFunc) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Operator == nil {
		return nil, fmt.Errorf("operator required")
	}
	if params.Limit < 0 {
		return nil, fmt.Errorf("limit must be >= 0")
	}
	return &operatorJob{
		name:   name,
		logg:   params.Logger,
		run:    pick(params.Operator),
		params: portfolios.RunParams{Limit: params.Limit},
	}, nil
}

func (j *operatorJob) Name() string { return j.name }

func (j *operatorJob) Run(ctx context.Context) error {
	summary, err := j.run(ctx, j.params)
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}
	logCtx := j.logg.WithFields(ctx, summary.Fields())
	if summary.Disabled {
		j.logg.Info(logCtx, "operator disabled; nothing to do")
		return nil
	}
	if summary.Err != nil {
		j.logg.Warn(logCtx, "operator finished with client failures")
		return fmt.Errorf("%s: %d client(s) failed: %w", j.name, len(multierr.Errors(summary.Err)), summary.Err)
	}
	j.logg.Info(logCtx, "operator finished")
	return nil
}
