package portfolios

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/portfolios-backend/internal/storetest"
	pkgdb "github.com/angelmondragon/portfolios-backend/pkg/db"
	"github.com/angelmondragon/portfolios-backend/pkg/db/models"
	"github.com/angelmondragon/portfolios-backend/pkg/logger"
	"github.com/angelmondragon/portfolios-backend/pkg/metrics"
)

type testEnv struct {
	t   *testing.T
	db  *gorm.DB
	fx  *storetest.Fixtures
	svc *Service
	now time.Time
}

func newTestEnv(t *testing.T, mutate ...func(*Options)) *testEnv {
	t.Helper()
	return newTestEnvLogging(t, io.Discard, mutate...)
}

func newTestEnvLogging(t *testing.T, logOut io.Writer, mutate ...func(*Options)) *testEnv {
	t.Helper()

	db := storetest.NewDB(t)
	env := &testEnv{
		t:   t,
		db:  db,
		fx:  storetest.NewFixtures(t, db),
		now: time.Date(2026, time.February, 26, 12, 0, 0, 0, time.UTC),
	}

	opts := DefaultOptions()
	for _, m := range mutate {
		m(&opts)
	}
	svc, err := Build(
		logger.New(logger.Options{ServiceName: "portfolios-test", Output: logOut, Format: logger.FormatJSON}),
		pkgdb.Wrap(db),
		metrics.NewLifecycleMetrics(prometheus.NewRegistry()),
		opts,
		func() time.Time { return env.now },
	)
	require.NoError(t, err)
	env.svc = svc
	return env
}

func (e *testEnv) setSeller(clientID, sellerID uuid.UUID) {
	e.t.Helper()
	require.NoError(e.t, e.db.Model(&models.User{}).Where("id = ?", clientID).Update("seller_id", sellerID).Error)
}

func (e *testEnv) sellerOf(clientID uuid.UUID) *uuid.UUID {
	e.t.Helper()
	return e.fx.User(clientID).SellerID
}

func (e *testEnv) active(clientID uuid.UUID) models.UserPortfolio {
	e.t.Helper()
	rows := e.fx.ActiveRecords(clientID)
	require.Len(e.t, rows, 1)
	return rows[0]
}

// cancelOnError cancels a run as soon as it logs an error line.
type cancelOnError struct {
	cancel context.CancelFunc
}

func (w cancelOnError) Write(p []byte) (int, error) {
	if bytes.Contains(p, []byte(`"level":"error"`)) {
		w.cancel()
	}
	return len(p), nil
}

func utc(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func endOfDay(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 23, 59, 59, 999999000, time.UTC)
}
