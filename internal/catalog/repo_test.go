package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/portfolios-backend/internal/storetest"
	"github.com/angelmondragon/portfolios-backend/pkg/enums"
)

func TestFirstForSellerPicksOldest(t *testing.T) {
	db := storetest.NewDB(t)
	fx := storetest.NewFixtures(t, db)
	repo := NewRepository(db)
	ctx := context.Background()

	seller := fx.Seller("Ana")
	first := fx.Portfolio("Ana primary", seller.ID, storetest.PortfolioOpts{})
	fx.Portfolio("Ana secondary", seller.ID, storetest.PortfolioOpts{Category: enums.PortfolioCategoryRetention})

	got, err := repo.FirstForSeller(ctx, seller.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, first.ID, got.ID)

	none, err := repo.FirstForSeller(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestDefaultByCategory(t *testing.T) {
	db := storetest.NewDB(t)
	fx := storetest.NewFixtures(t, db)
	repo := NewRepository(db)
	ctx := context.Background()

	seller := fx.Seller("House")
	fx.Portfolio("Not default", seller.ID, storetest.PortfolioOpts{})
	fresh := fx.Portfolio("Fresh", seller.ID, storetest.PortfolioOpts{Default: true})
	fx.Portfolio("Fresh later", seller.ID, storetest.PortfolioOpts{Default: true})

	got, err := repo.DefaultByCategory(ctx, enums.PortfolioCategoryNewBusiness)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, fresh.ID, got.ID)

	missing, err := repo.DefaultByCategory(ctx, enums.PortfolioCategoryRetention)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSuccessorAndList(t *testing.T) {
	db := storetest.NewDB(t)
	fx := storetest.NewFixtures(t, db)
	repo := NewRepository(db)
	ctx := context.Background()

	seller := fx.Seller("Bruno")
	other := fx.Seller("Carla")
	retention := fx.Portfolio("Retention", other.ID, storetest.PortfolioOpts{Category: enums.PortfolioCategoryRetention})
	fresh := fx.Portfolio("Fresh", seller.ID, storetest.PortfolioOpts{Successor: &retention.ID})

	next, err := repo.Successor(ctx, fresh)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, retention.ID, next.ID)

	end, err := repo.Successor(ctx, retention)
	require.NoError(t, err)
	assert.Nil(t, end)

	all, err := repo.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	category := enums.PortfolioCategoryRetention
	filtered, err := repo.List(ctx, ListFilter{Category: &category})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, retention.ID, filtered[0].ID)

	bySeller, err := repo.List(ctx, ListFilter{SellerID: &seller.ID})
	require.NoError(t, err)
	require.Len(t, bySeller, 1)
	assert.Equal(t, fresh.ID, bySeller[0].ID)
}
