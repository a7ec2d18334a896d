// Package storetest opens in-memory SQLite databases carrying the portfolio schema
// and seeds fixtures for repository and operator tests.
package storetest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/portfolios-backend/pkg/db/models"
	"github.com/angelmondragon/portfolios-backend/pkg/enums"
)

// The partial unique index on active records is Postgres-only so tests can
// build corrupt ledgers on purpose.
var schema = []string{
	`CREATE TABLE branches (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  created_at DATETIME
);`,
	`CREATE TABLE users (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  is_seller INTEGER NOT NULL DEFAULT 0,
  seller_id TEXT,
  branch_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE seller_portfolios (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  seller_id TEXT NOT NULL,
  category TEXT NOT NULL,
  successor_portfolio_id TEXT,
  is_default INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE user_portfolios (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  portfolio_id TEXT NOT NULL,
  is_active INTEGER NOT NULL,
  assigned_at DATETIME NOT NULL,
  branch_created_at DATETIME,
  first_purchase_at DATETIME,
  window_closes_at DATETIME,
  previous_portfolio_id TEXT,
  created_at DATETIME
);`,
	`CREATE TABLE orders (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  status TEXT NOT NULL,
  created_at DATETIME
);`,
}

// NewDB returns an isolated in-memory database with the schema applied.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:portfolios_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	for _, stmt := range schema {
		require.NoError(t, db.Exec(stmt).Error)
	}

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// Fixtures seeds rows with deterministic, strictly increasing creation times.
type Fixtures struct {
	t     *testing.T
	db    *gorm.DB
	clock time.Time
}

func NewFixtures(t *testing.T, db *gorm.DB) *Fixtures {
	return &Fixtures{t: t, db: db, clock: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *Fixtures) tick() time.Time {
	f.clock = f.clock.Add(time.Minute)
	return f.clock
}

func (f *Fixtures) Branch(name string, createdAt time.Time) models.Branch {
	f.t.Helper()
	branch := models.Branch{Name: name, CreatedAt: createdAt.UTC()}
	require.NoError(f.t, f.db.Create(&branch).Error)
	return branch
}

func (f *Fixtures) Seller(name string) models.User {
	f.t.Helper()
	seller := models.User{Name: name, IsSeller: true, CreatedAt: f.tick()}
	require.NoError(f.t, f.db.Create(&seller).Error)
	return seller
}

// Client creates a non-seller user; sellerID and branchID may be nil.
func (f *Fixtures) Client(name string, sellerID, branchID *uuid.UUID) models.User {
	f.t.Helper()
	client := models.User{Name: name, SellerID: sellerID, BranchID: branchID, CreatedAt: f.tick()}
	require.NoError(f.t, f.db.Create(&client).Error)
	return client
}

// PortfolioOpts customizes a seeded portfolio.
type PortfolioOpts struct {
	Category  enums.PortfolioCategory
	Successor *uuid.UUID
	Default   bool
}

func (f *Fixtures) Portfolio(name string, sellerID uuid.UUID, opts PortfolioOpts) models.SellerPortfolio {
	f.t.Helper()
	if opts.Category == "" {
		opts.Category = enums.PortfolioCategoryNewBusiness
	}
	portfolio := models.SellerPortfolio{
		Name:                 name,
		SellerID:             sellerID,
		Category:             opts.Category,
		SuccessorPortfolioID: opts.Successor,
		IsDefault:            opts.Default,
		CreatedAt:            f.tick(),
	}
	require.NoError(f.t, f.db.Create(&portfolio).Error)
	return portfolio
}

// SetSuccessor links from to to after both exist.
func (f *Fixtures) SetSuccessor(from, to uuid.UUID) {
	f.t.Helper()
	require.NoError(f.t, f.db.Model(&models.SellerPortfolio{}).
		Where("id = ?", from).
		Update("successor_portfolio_id", to).Error)
}

func (f *Fixtures) Order(userID uuid.UUID, placedAt time.Time) models.Order {
	f.t.Helper()
	order := models.Order{ID: uuid.New(), UserID: userID, Status: "placed", CreatedAt: placedAt.UTC()}
	require.NoError(f.t, f.db.Create(&order).Error)
	return order
}

// Assignment inserts a ledger row as-is, bypassing transition rules.
func (f *Fixtures) Assignment(record models.UserPortfolio) models.UserPortfolio {
	f.t.Helper()
	if record.AssignedAt.IsZero() {
		record.AssignedAt = f.tick()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = record.AssignedAt
	}
	require.NoError(f.t, f.db.Create(&record).Error)
	return record
}

// Ledger returns every record of a client oldest first.
func (f *Fixtures) Ledger(userID uuid.UUID) []models.UserPortfolio {
	f.t.Helper()
	var rows []models.UserPortfolio
	require.NoError(f.t, f.db.Where("user_id = ?", userID).Order("assigned_at ASC, created_at ASC").Find(&rows).Error)
	return rows
}

// ActiveRecords returns the active records of a client.
func (f *Fixtures) ActiveRecords(userID uuid.UUID) []models.UserPortfolio {
	f.t.Helper()
	var rows []models.UserPortfolio
	require.NoError(f.t, f.db.Where("user_id = ? AND is_active = ?", userID, true).Find(&rows).Error)
	return rows
}

func (f *Fixtures) User(id uuid.UUID) models.User {
	f.t.Helper()
	var user models.User
	require.NoError(f.t, f.db.Where("id = ?", id).First(&user).Error)
	return user
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }
