package portfolios

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/portfolios-backend/internal/storetest"
	"github.com/angelmondragon/portfolios-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/portfolios-backend/pkg/errors"
)

func TestRecordPurchaseSetsWindowOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seller := env.fx.Seller("Ana")
	portfolio := env.fx.Portfolio("Ana", seller.ID, storetest.PortfolioOpts{})
	client := env.fx.Client("client", &seller.ID, nil)
	record := env.fx.Assignment(models.UserPortfolio{UserID: client.ID, PortfolioID: portfolio.ID, IsActive: true})

	result, err := env.svc.RecordPurchase(ctx, client.ID, utc(2025, 12, 15, 18, 30))
	require.NoError(t, err)
	assert.Equal(t, OutcomeWindowOpened, result.Outcome)
	require.NotNil(t, result.RecordID)
	assert.Equal(t, record.ID, *result.RecordID)
	require.NotNil(t, result.WindowClosesAt)
	assert.True(t, result.WindowClosesAt.Equal(endOfDay(2026, 1, 31)))

	later, err := env.svc.RecordPurchase(ctx, client.ID, utc(2026, 1, 3, 9, 0))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, later.Outcome)

	stored := env.active(client.ID)
	require.NotNil(t, stored.FirstPurchaseAt)
	assert.True(t, stored.FirstPurchaseAt.Equal(utc(2025, 12, 15, 18, 30)), "later orders never overwrite the first purchase")
	assert.True(t, stored.WindowClosesAt.Equal(endOfDay(2026, 1, 31)))
}

func TestRecordPurchaseIgnoresClientsWithoutActiveRecord(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	client := env.fx.Client("client", nil, nil)
	result, err := env.svc.RecordPurchase(ctx, client.ID, utc(2026, 1, 3, 9, 0))
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, result.Outcome)
	assert.Empty(t, env.fx.Ledger(client.ID))

	missing, err := env.svc.RecordPurchase(ctx, uuid.New(), utc(2026, 1, 3, 9, 0))
	require.NoError(t, err)
	assert.Equal(t, ReasonClientGone, missing.Reason)
}

func TestRecordPurchaseValidatesInput(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.RecordPurchase(context.Background(), uuid.Nil, utc(2026, 1, 3, 9, 0))
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = env.svc.RecordPurchase(context.Background(), uuid.New(), time.Time{})
	require.Error(t, err)
}

func TestRecordPurchaseRejectsCorruptLedger(t *testing.T) {
	env := newTestEnv(t)

	seller := env.fx.Seller("Ana")
	portfolio := env.fx.Portfolio("Ana", seller.ID, storetest.PortfolioOpts{})
	client := env.fx.Client("client", &seller.ID, nil)
	env.fx.Assignment(models.UserPortfolio{UserID: client.ID, PortfolioID: portfolio.ID, IsActive: true})
	env.fx.Assignment(models.UserPortfolio{UserID: client.ID, PortfolioID: portfolio.ID, IsActive: true})

	_, err := env.svc.RecordPurchase(context.Background(), client.ID, utc(2026, 1, 3, 9, 0))
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
	for _, row := range env.fx.Ledger(client.ID) {
		assert.Nil(t, row.FirstPurchaseAt)
	}
}
