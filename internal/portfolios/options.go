package portfolios

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/angelmondragon/portfolios-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/portfolios-backend/pkg/errors"
)

// DefaultMigrateLimit bounds migrate-unassigned runs when no limit is given.
const DefaultMigrateLimit = 100

var validate = validator.New()

// Options are the toggles each operator is invoked with. They are passed in
// explicitly rather than read from process-wide state.
type Options struct {
	SyncEnabled              bool
	SyncBackfill             bool
	CloseCycleEnabled        bool
	MigrateUnassignedEnabled bool
	MigrateUnassignedLimit   int            `validate:"gte=0,lte=10000"`
	Location                 *time.Location `validate:"required"`
}

// DefaultOptions enables every operator on the UTC calendar.
func DefaultOptions() Options {
	return Options{
		SyncEnabled:              true,
		CloseCycleEnabled:        true,
		MigrateUnassignedEnabled: true,
		MigrateUnassignedLimit:   DefaultMigrateLimit,
		Location:                 time.UTC,
	}
}

// OptionsFromConfig maps the lifecycle config section onto Options.
func OptionsFromConfig(cfg config.LifecycleConfig) (Options, error) {
	loc, err := cfg.Location()
	if err != nil {
		return Options{}, err
	}
	opts := Options{
		SyncEnabled:              cfg.SyncEnabled,
		SyncBackfill:             cfg.SyncBackfill,
		CloseCycleEnabled:        cfg.CloseCycleEnabled,
		MigrateUnassignedEnabled: cfg.MigrateUnassignedEnabled,
		MigrateUnassignedLimit:   cfg.MigrateUnassignedLimit,
		Location:                 loc,
	}
	return opts, opts.Validate()
}

// Validate checks the options before a service is built with them.
func (o Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("invalid lifecycle options: %v", err))
	}
	return nil
}

// RunParams customize a single operator invocation.
type RunParams struct {
	// Limit caps the clients processed. Zero means the operator default:
	// unbounded for sync and close-cycle, MigrateUnassignedLimit for migrate-unassigned.
	Limit int `validate:"gte=0"`
}

func (p RunParams) validate() error {
	if err := validate.Struct(p); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid run parameters")
	}
	return nil
}
