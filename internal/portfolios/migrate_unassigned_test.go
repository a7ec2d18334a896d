package portfolios

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/portfolios-backend/internal/storetest"
	"github.com/angelmondragon/portfolios-backend/pkg/db/models"
	"github.com/angelmondragon/portfolios-backend/pkg/enums"
)

type defaults struct {
	freshSeller     models.User
	retentionSeller models.User
	fresh           models.SellerPortfolio
	retention       models.SellerPortfolio
}

func seedDefaults(env *testEnv) defaults {
	d := defaults{
		freshSeller:     env.fx.Seller("Venta fresca"),
		retentionSeller: env.fx.Seller("Post venta"),
	}
	d.retention = env.fx.Portfolio("Post venta", d.retentionSeller.ID, storetest.PortfolioOpts{Category: enums.PortfolioCategoryRetention, Default: true})
	d.fresh = env.fx.Portfolio("Venta fresca", d.freshSeller.ID, storetest.PortfolioOpts{Default: true, Successor: &d.retention.ID})
	return d
}

func TestMigrateUnassignedWithoutOrdersGoesToNewBusiness(t *testing.T) {
	env := newTestEnv(t)
	d := seedDefaults(env)
	branch := env.fx.Branch("Sur", utc(2022, 1, 1, 0, 0))
	client := env.fx.Client("client", nil, &branch.ID)

	summary, err := env.svc.MigrateUnassigned(context.Background(), RunParams{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.NewBusiness)
	assert.Zero(t, summary.Retention)

	record := env.active(client.ID)
	assert.Equal(t, d.fresh.ID, record.PortfolioID)
	assert.Nil(t, record.FirstPurchaseAt)
	assert.Nil(t, record.WindowClosesAt)
	assert.Nil(t, record.PreviousPortfolioID)
	require.NotNil(t, record.BranchCreatedAt)

	require.NotNil(t, env.sellerOf(client.ID))
	assert.Equal(t, d.freshSeller.ID, *env.sellerOf(client.ID))
}

func TestMigrateUnassignedOpenWindowKeepsNewBusiness(t *testing.T) {
	env := newTestEnv(t)
	d := seedDefaults(env)
	client := env.fx.Client("client", nil, nil)
	env.fx.Order(client.ID, utc(2026, 2, 12, 10, 0))
	env.fx.Order(client.ID, utc(2026, 1, 20, 10, 0))

	summary, err := env.svc.MigrateUnassigned(context.Background(), RunParams{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.NewBusiness)

	record := env.active(client.ID)
	assert.Equal(t, d.fresh.ID, record.PortfolioID)
	require.NotNil(t, record.FirstPurchaseAt)
	assert.True(t, record.FirstPurchaseAt.Equal(utc(2026, 1, 20, 10, 0)))
	require.NotNil(t, record.WindowClosesAt)
	assert.True(t, record.WindowClosesAt.Equal(endOfDay(2026, 2, 28)))
}

func TestMigrateUnassignedExpiredWindowGoesToRetention(t *testing.T) {
	env := newTestEnv(t)
	d := seedDefaults(env)
	client := env.fx.Client("client", nil, nil)
	env.fx.Order(client.ID, utc(2025, 12, 10, 10, 0))

	summary, err := env.svc.MigrateUnassigned(context.Background(), RunParams{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Retention)

	record := env.active(client.ID)
	assert.Equal(t, d.retention.ID, record.PortfolioID)
	require.NotNil(t, record.FirstPurchaseAt)
	assert.True(t, record.FirstPurchaseAt.Equal(utc(2025, 12, 10, 10, 0)))
	assert.Nil(t, record.WindowClosesAt, "retention entries track no window")

	require.NotNil(t, env.sellerOf(client.ID))
	assert.Equal(t, d.retentionSeller.ID, *env.sellerOf(client.ID))

	closeSummary, err := env.svc.CloseCycle(context.Background(), RunParams{})
	require.NoError(t, err)
	assert.Zero(t, closeSummary.Eligible, "retention entries never expire")
}

func TestMigrateUnassignedUsesOldestOrder(t *testing.T) {
	env := newTestEnv(t)
	d := seedDefaults(env)
	client := env.fx.Client("client", nil, nil)
	env.fx.Order(client.ID, utc(2025, 6, 5, 10, 0))
	env.fx.Order(client.ID, utc(2026, 1, 10, 10, 0))
	env.fx.Order(client.ID, utc(2025, 3, 20, 10, 0))

	_, err := env.svc.MigrateUnassigned(context.Background(), RunParams{})
	require.NoError(t, err)

	record := env.active(client.ID)
	assert.Equal(t, d.retention.ID, record.PortfolioID)
	require.NotNil(t, record.FirstPurchaseAt)
	assert.True(t, record.FirstPurchaseAt.Equal(utc(2025, 3, 20, 10, 0)))
}

func TestMigrateUnassignedWindowClosingNowIsStillOpen(t *testing.T) {
	env := newTestEnv(t)
	d := seedDefaults(env)
	client := env.fx.Client("client", nil, nil)
	env.fx.Order(client.ID, utc(2026, 1, 15, 10, 0))
	env.now = endOfDay(2026, 2, 28)

	_, err := env.svc.MigrateUnassigned(context.Background(), RunParams{})
	require.NoError(t, err)

	record := env.active(client.ID)
	assert.Equal(t, d.fresh.ID, record.PortfolioID)
	require.NotNil(t, record.WindowClosesAt)
	assert.True(t, record.WindowClosesAt.Equal(env.now))

	env.now = env.now.Add(time.Second)
	closeSummary, err := env.svc.CloseCycle(context.Background(), RunParams{})
	require.NoError(t, err)
	assert.Equal(t, 1, closeSummary.Transitioned)
	assert.Equal(t, d.retention.ID, env.active(client.ID).PortfolioID)
}

func TestMigrateUnassignedSkipsMissingDefault(t *testing.T) {
	env := newTestEnv(t)
	seller := env.fx.Seller("Venta fresca")
	fresh := env.fx.Portfolio("Venta fresca", seller.ID, storetest.PortfolioOpts{Default: true})
	veteran := env.fx.Client("veteran", nil, nil)
	env.fx.Order(veteran.ID, utc(2024, 5, 5, 10, 0))
	newcomer := env.fx.Client("newcomer", nil, nil)

	summary, err := env.svc.MigrateUnassigned(context.Background(), RunParams{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.NewBusiness)
	assert.Equal(t, 1, summary.SkipReasons[ReasonNoDefault+":retention"])
	assert.NoError(t, summary.Err)

	assert.Empty(t, env.fx.Ledger(veteran.ID))
	assert.Nil(t, env.sellerOf(veteran.ID))
	assert.Equal(t, fresh.ID, env.active(newcomer.ID).PortfolioID)
}

func TestMigrateUnassignedLimitIsNotSpentOnMissingDefaults(t *testing.T) {
	env := newTestEnv(t, func(o *Options) { o.MigrateUnassignedLimit = 2 })
	seller := env.fx.Seller("Venta fresca")
	fresh := env.fx.Portfolio("Venta fresca", seller.ID, storetest.PortfolioOpts{Default: true})
	for _, name := range []string{"veteran a", "veteran b", "veteran c"} {
		veteran := env.fx.Client(name, nil, nil)
		env.fx.Order(veteran.ID, utc(2024, 3, 10, 10, 0))
	}
	newcomer := env.fx.Client("newcomer", nil, nil)
	later := env.fx.Client("later", nil, nil)

	summary, err := env.svc.MigrateUnassigned(context.Background(), RunParams{})
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Eligible)
	assert.Equal(t, 3, summary.SkipReasons[ReasonNoDefault+":retention"])
	assert.Equal(t, 2, summary.Created)
	assert.Equal(t, fresh.ID, env.active(newcomer.ID).PortfolioID)
	assert.Equal(t, fresh.ID, env.active(later.ID).PortfolioID)

	again, err := env.svc.MigrateUnassigned(context.Background(), RunParams{})
	require.NoError(t, err)
	assert.Equal(t, 3, again.Skipped)
	assert.Zero(t, again.Created)
}

func TestMigrateUnassignedStopsAtLimitAfterSkippedClients(t *testing.T) {
	env := newTestEnv(t)
	seller := env.fx.Seller("Venta fresca")
	env.fx.Portfolio("Venta fresca", seller.ID, storetest.PortfolioOpts{Default: true})
	veteran := env.fx.Client("veteran", nil, nil)
	env.fx.Order(veteran.ID, utc(2024, 3, 10, 10, 0))
	first := env.fx.Client("first", nil, nil)
	second := env.fx.Client("second", nil, nil)

	summary, err := env.svc.MigrateUnassigned(context.Background(), RunParams{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Created)
	assert.Equal(t, 1, summary.Skipped)
	assert.Len(t, env.fx.ActiveRecords(first.ID), 1)
	assert.Empty(t, env.fx.ActiveRecords(second.ID))
}

func TestMigrateUnassignedWithoutDefaultsDoesNothing(t *testing.T) {
	env := newTestEnv(t)
	client := env.fx.Client("client", nil, nil)

	summary, err := env.svc.MigrateUnassigned(context.Background(), RunParams{})
	require.NoError(t, err)
	assert.Zero(t, summary.Eligible)
	assert.Zero(t, summary.Processed())
	assert.Empty(t, env.fx.Ledger(client.ID))
}

func TestMigrateUnassignedHonoursLimit(t *testing.T) {
	env := newTestEnv(t, func(o *Options) { o.MigrateUnassignedLimit = 2 })
	seedDefaults(env)
	a := env.fx.Client("a", nil, nil)
	b := env.fx.Client("b", nil, nil)
	c := env.fx.Client("c", nil, nil)

	first, err := env.svc.MigrateUnassigned(context.Background(), RunParams{})
	require.NoError(t, err)
	assert.Equal(t, 2, first.Eligible)
	assert.Len(t, env.fx.ActiveRecords(a.ID), 1)
	assert.Len(t, env.fx.ActiveRecords(b.ID), 1)
	assert.Empty(t, env.fx.ActiveRecords(c.ID))

	second, err := env.svc.MigrateUnassigned(context.Background(), RunParams{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, second.Eligible)
	assert.Len(t, env.fx.ActiveRecords(c.ID), 1)

	third, err := env.svc.MigrateUnassigned(context.Background(), RunParams{})
	require.NoError(t, err)
	assert.Zero(t, third.Eligible)
}

func TestMigrateUnassignedMatchesPurchaseHook(t *testing.T) {
	env := newTestEnv(t)
	seedDefaults(env)
	orderedAt := utc(2026, 2, 1, 10, 0)

	backfilled := env.fx.Client("backfilled", nil, nil)
	env.fx.Order(backfilled.ID, orderedAt)
	live := env.fx.Client("live", nil, nil)

	_, err := env.svc.MigrateUnassigned(context.Background(), RunParams{})
	require.NoError(t, err)
	_, err = env.svc.RecordPurchase(context.Background(), live.ID, orderedAt)
	require.NoError(t, err)

	want := env.active(backfilled.ID)
	got := env.active(live.ID)
	require.NotNil(t, want.WindowClosesAt)
	require.NotNil(t, got.WindowClosesAt)
	assert.True(t, want.FirstPurchaseAt.Equal(*got.FirstPurchaseAt))
	assert.True(t, want.WindowClosesAt.Equal(*got.WindowClosesAt))
	assert.True(t, got.WindowClosesAt.Equal(endOfDay(2026, 2, 28)), "day-one purchase closes the same month")
}
