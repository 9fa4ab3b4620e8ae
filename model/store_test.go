package model

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// setupMockStore wires a *GormStore over a sqlmock-backed *sql.DB, the way
// the teacher's setupMySQLMockDB avoids needing a live database for query
// assembly tests.
func setupMockStore(t *testing.T) (*GormStore, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	return NewGormStore(db), mock
}

func TestGormStore_GetSystemApiKeyByKey_FiltersEnabled(t *testing.T) {
	store, mock := setupMockStore(t)

	mock.ExpectQuery(`SELECT \* FROM .system_api_keys. WHERE key = \? AND enabled = \?`).
		WithArgs("cyder-abc", true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "key", "enabled"}).AddRow(1, "cyder-abc", true))

	key, err := store.GetSystemApiKeyByKey("cyder-abc")
	require.NoError(t, err)
	require.Equal(t, int64(1), key.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_GetSystemApiKeyByKey_NotFoundWrapsErrNotFound(t *testing.T) {
	store, mock := setupMockStore(t)

	mock.ExpectQuery(`SELECT \* FROM .system_api_keys.`).
		WillReturnError(gorm.ErrRecordNotFound)

	_, err := store.GetSystemApiKeyByKey("missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_ListEnabledProviders(t *testing.T) {
	store, mock := setupMockStore(t)

	mock.ExpectQuery(`SELECT \* FROM .providers. WHERE enabled = \?`).
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "provider_key", "enabled"}).
			AddRow(1, "openai", true).
			AddRow(2, "anthropic", true))

	providers, err := store.ListEnabledProviders()
	require.NoError(t, err)
	require.Len(t, providers, 2)
	require.Equal(t, "openai", providers[0].ProviderKey)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_ListEnabledModelAliases(t *testing.T) {
	store, mock := setupMockStore(t)

	mock.ExpectQuery(`SELECT \* FROM .model_aliases. WHERE enabled = \?`).
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "alias", "model_id", "enabled"}).
			AddRow(1, "fast", 10, true))

	aliases, err := store.ListEnabledModelAliases()
	require.NoError(t, err)
	require.Len(t, aliases, 1)
	require.Equal(t, "fast", aliases[0].Alias)
	require.NoError(t, mock.ExpectationsWereMet())
}
