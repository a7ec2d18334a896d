package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	require.NoError(t, ValidateDir(""))
	require.NoError(t, ValidateDir("migrations"))
}

func TestUserPortfoliosMigrationEnforcesSingleActive(t *testing.T) {
	content := readMigration(t, "*_create_user_portfolios.sql")

	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS user_portfolios",
		"CREATE UNIQUE INDEX IF NOT EXISTS user_portfolios_one_active_per_user ON user_portfolios (user_id) WHERE is_active",
		"CHECK (window_closes_at IS NULL OR first_purchase_at IS NOT NULL)",
		"FOREIGN KEY (previous_portfolio_id) REFERENCES seller_portfolios(id)",
		"DROP TABLE IF EXISTS user_portfolios",
	} {
		assert.Contains(t, content, sub)
	}
}

func TestSellerPortfoliosMigrationDeclaresCategoryEnum(t *testing.T) {
	content := readMigration(t, "*_create_seller_portfolios.sql")

	assert.Contains(t, content, "CREATE TYPE portfolio_category AS ENUM ('new_business', 'retention')")
	assert.Contains(t, content, "successor_portfolio_id uuid NULL")
	assert.Contains(t, content, "DROP TYPE IF EXISTS portfolio_category")
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()

	path, err := CreateSQLMigration(dir, "Add Portfolio Notes!")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "_add_portfolio_notes.sql"), path)
	require.NoError(t, ValidateDir(dir))

	_, err = CreateSQLMigration(dir, "!!!")
	require.Error(t, err)
}

func TestValidateDirRejectsBrokenFiles(t *testing.T) {
	cases := map[string]string{
		"20260101000000_no_down.sql":    "-- +goose Up\nSELECT 1;\n",
		"20260101000000_unbalanced.sql": "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\n",
		"bad-name.sql":                  "-- +goose Up\n-- +goose Down\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
			require.Error(t, ValidateDir(dir))
		})
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	return string(data)
}
