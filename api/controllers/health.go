package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/portfolios-backend/api/responses"
	"github.com/angelmondragon/portfolios-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/portfolios-backend/pkg/errors"
	"github.com/angelmondragon/portfolios-backend/pkg/logger"
)

const (
	envHeader    = "X-Portfolios-Env"
	readyTimeout = 2 * time.Second
)

// Pinger is a dependency checked by the readiness endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every named dependency; a failing one returns 503.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				wrapped := pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable").
					WithDetails(map[string]any{"dependency": name})
				responses.WriteError(r.Context(), logg, w, wrapped)
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
