package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/portfolios-backend/api/controllers"
	"github.com/angelmondragon/portfolios-backend/api/middleware"
	"github.com/angelmondragon/portfolios-backend/pkg/config"
	"github.com/angelmondragon/portfolios-backend/pkg/logger"
	"github.com/angelmondragon/portfolios-backend/pkg/metrics"
)

// RouterParams wires the read-only portfolio API.
type RouterParams struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       controllers.Pinger
	Redis    controllers.Pinger
	Queries  controllers.PortfolioQueries
	Gatherer prometheus.Gatherer
	Metrics  *metrics.HTTPMetrics
}

func NewRouter(p RouterParams) http.Handler {
	logg := p.Logger
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(p.Metrics),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(p.Config))
		r.Get("/ready", controllers.HealthReady(p.Config, logg, map[string]controllers.Pinger{
			"database": p.DB,
			"redis":    p.Redis,
		}))
	})

	if p.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/portfolios", func(r chi.Router) {
			r.Get("/", controllers.ListPortfolios(p.Queries, logg))
			r.Get("/{portfolioId}/clients", controllers.PortfolioClients(p.Queries, logg))
		})
		r.Get("/clients/{clientId}/portfolio-history", controllers.ClientPortfolioHistory(p.Queries, logg))
	})

	return r
}
