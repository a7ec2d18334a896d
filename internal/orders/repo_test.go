package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/portfolios-backend/internal/storetest"
)

func TestOldestPicksEarliestOrder(t *testing.T) {
	db := storetest.NewDB(t)
	fx := storetest.NewFixtures(t, db)
	reader := NewRepository(db)
	ctx := context.Background()

	client := fx.Client("client", nil, nil)
	other := fx.Client("other", nil, nil)
	fx.Order(client.ID, time.Date(2025, 6, 5, 10, 0, 0, 0, time.UTC))
	fx.Order(client.ID, time.Date(2026, 1, 10, 10, 0, 0, 0, time.UTC))
	fx.Order(client.ID, time.Date(2025, 3, 20, 10, 0, 0, 0, time.UTC))
	fx.Order(other.ID, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC))

	oldest, err := reader.Oldest(ctx, client.ID)
	require.NoError(t, err)
	require.NotNil(t, oldest)
	assert.True(t, oldest.Equal(time.Date(2025, 3, 20, 10, 0, 0, 0, time.UTC)))

	dates, err := reader.Dates(ctx, client.ID)
	require.NoError(t, err)
	require.Len(t, dates, 3)
	assert.True(t, dates[0].Equal(*oldest))
	assert.True(t, dates[2].Equal(time.Date(2026, 1, 10, 10, 0, 0, 0, time.UTC)))
}

func TestOldestWithoutOrders(t *testing.T) {
	db := storetest.NewDB(t)
	reader := NewRepository(db)

	oldest, err := reader.Oldest(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, oldest)

	dates, err := reader.Dates(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, dates)
}
