package clients

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/portfolios-backend/internal/storetest"
	"github.com/angelmondragon/portfolios-backend/pkg/db/models"
	"github.com/angelmondragon/portfolios-backend/pkg/pagination"
)

func TestListWithSellerSkipsSellersAndUnassigned(t *testing.T) {
	db := storetest.NewDB(t)
	fx := storetest.NewFixtures(t, db)
	repo := NewRepository(db)
	ctx := context.Background()

	seller := fx.Seller("Ana")
	first := fx.Client("first", &seller.ID, nil)
	fx.Client("unassigned", nil, nil)
	second := fx.Client("second", &seller.ID, nil)

	rows, err := repo.ListWithSeller(ctx, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, first.ID, rows[0].ID)
	assert.Equal(t, second.ID, rows[1].ID)

	limited, err := repo.ListWithSeller(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestListUnassignedExcludesActiveRecords(t *testing.T) {
	db := storetest.NewDB(t)
	fx := storetest.NewFixtures(t, db)
	repo := NewRepository(db)
	ctx := context.Background()

	seller := fx.Seller("Ana")
	portfolio := fx.Portfolio("A", seller.ID, storetest.PortfolioOpts{})
	fx.Client("assigned", &seller.ID, nil)
	guarded := fx.Client("already active", nil, nil)
	fx.Assignment(models.UserPortfolio{UserID: guarded.ID, PortfolioID: portfolio.ID, IsActive: true})
	historic := fx.Client("only inactive", nil, nil)
	fx.Assignment(models.UserPortfolio{UserID: historic.ID, PortfolioID: portfolio.ID, IsActive: false})
	bare := fx.Client("bare", nil, nil)

	rows, err := repo.ListUnassigned(ctx, 100, nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, historic.ID, rows[0].ID)
	assert.Equal(t, bare.ID, rows[1].ID)

	limited, err := repo.ListUnassigned(ctx, 1, nil)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, historic.ID, limited[0].ID)
}

func TestListUnassignedResumesAfterCursor(t *testing.T) {
	db := storetest.NewDB(t)
	fx := storetest.NewFixtures(t, db)
	repo := NewRepository(db)
	ctx := context.Background()

	first := fx.Client("first", nil, nil)
	second := fx.Client("second", nil, nil)
	third := fx.Client("third", nil, nil)

	page, err := repo.ListUnassigned(ctx, 2, nil)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, first.ID, page[0].ID)
	assert.Equal(t, second.ID, page[1].ID)

	rest, err := repo.ListUnassigned(ctx, 2, &pagination.Cursor{CreatedAt: page[1].CreatedAt, ID: page[1].ID})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, third.ID, rest[0].ID)
}

func TestLockLoadsBranchAndAssignSeller(t *testing.T) {
	db := storetest.NewDB(t)
	fx := storetest.NewFixtures(t, db)
	repo := NewRepository(db)
	ctx := context.Background()

	branchCreated := time.Date(2023, 6, 1, 8, 0, 0, 0, time.UTC)
	branch := fx.Branch("Centro", branchCreated)
	seller := fx.Seller("Ana")
	client := fx.Client("client", nil, &branch.ID)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		locked, err := repo.WithTx(tx).Lock(ctx, client.ID)
		require.NoError(t, err)
		require.NotNil(t, locked)
		require.NotNil(t, locked.BranchCreatedAt())
		assert.True(t, locked.BranchCreatedAt().Equal(branchCreated))
		return repo.WithTx(tx).AssignSeller(ctx, client.ID, seller.ID)
	}))

	reloaded, err := repo.FindByID(ctx, client.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded)
	require.NotNil(t, reloaded.SellerID)
	assert.Equal(t, seller.ID, *reloaded.SellerID)

	missing, err := repo.Lock(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	noBranch, err := repo.FindByID(ctx, seller.ID)
	require.NoError(t, err)
	require.NotNil(t, noBranch)
	assert.Nil(t, noBranch.BranchCreatedAt())
}
