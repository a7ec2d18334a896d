package portfolios

import (
	"time"

	"github.com/angelmondragon/portfolios-backend/internal/assignments"
	"github.com/angelmondragon/portfolios-backend/internal/catalog"
	"github.com/angelmondragon/portfolios-backend/internal/clients"
	"github.com/angelmondragon/portfolios-backend/internal/orders"
	pkgdb "github.com/angelmondragon/portfolios-backend/pkg/db"
	"github.com/angelmondragon/portfolios-backend/pkg/logger"
	"github.com/angelmondragon/portfolios-backend/pkg/metrics"
)

// Build wires every repository over one database client.
func Build(logg *logger.Logger, client *pkgdb.Client, m *metrics.LifecycleMetrics, opts Options, now func() time.Time) (*Service, error) {
	conn := client.DB()
	return NewService(ServiceParams{
		Logger:  logg,
		DB:      client,
		Catalog: catalog.NewRepository(conn),
		Ledger:  assignments.NewRepository(conn),
		Clients: clients.NewRepository(conn),
		Orders:  orders.NewRepository(conn),
		Metrics: m,
		Options: opts,
		Now:     now,
	})
}
