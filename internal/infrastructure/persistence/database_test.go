package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/pharmacy/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockDatabase creates a Database instance with a mocked postgres connection
func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return &Database{DB: gormDB, Driver: config.DriverPostgres}, mock, mockDB
}

func TestNewDatabase_SQLite(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Driver:   config.DriverSQLite,
		Path:     fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
		LogLevel: "silent",
	}

	db, err := NewDatabase(cfg, zap.NewNop())
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, config.DriverSQLite, db.Driver)
	require.NoError(t, AutoMigrate(db.DB))
	require.NoError(t, db.Ping())

	for _, table := range []string{
		"medicine_batches", "stock_movements", "documents", "document_lines",
		"line_allocations", "document_sequences", "accounts", "financial_transactions", "alerts",
	} {
		assert.True(t, db.DB.Migrator().HasTable(table), table)
	}

	stats, err := db.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.MaxOpenConnections)
}

func TestNewDatabase_UnsupportedDriver(t *testing.T) {
	_, err := NewDatabase(&config.DatabaseConfig{Driver: "mysql"}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestDatabase_Ping(t *testing.T) {
	t.Run("successful ping", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectPing()
		assert.NoError(t, db.Ping())
	})

	t.Run("failed ping", func(t *testing.T) {
		mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer mockDB.Close()

		gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB}), &gorm.Config{DisableAutomaticPing: true})
		require.NoError(t, err)

		mock.ExpectPing().WillReturnError(sql.ErrConnDone)
		db := &Database{DB: gormDB}
		assert.Error(t, db.Ping())
	})
}

func TestDatabase_Stats(t *testing.T) {
	db, _, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	stats, err := db.Stats()
	assert.NoError(t, err)
	assert.IsType(t, ConnectionStats{}, stats)
}

func TestDatabase_Close(t *testing.T) {
	db, mock, _ := newMockDatabase(t)

	mock.ExpectClose()
	assert.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRowLocks_Postgres(t *testing.T) {
	ctx := context.Background()

	t.Run("batch lock", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "medicine_batches" WHERE id = \$1 ORDER BY "medicine_batches"."id" LIMIT \$2 FOR UPDATE`).
			WithArgs(int64(7), 1).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := NewGormMedicineBatchRepository(db.DB).FindByIDForUpdate(ctx, 7)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("batch set lock in id order", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "medicine_batches" WHERE id IN \(\$1,\$2\) ORDER BY id ASC FOR UPDATE`).
			WithArgs(int64(3), int64(9)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := NewGormMedicineBatchRepository(db.DB).FindByIDsForUpdate(ctx, []int64{3, 9})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("sellable candidates lock", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "medicine_batches" WHERE medicine_id = \$1 AND status = \$2 AND remaining_quantity > 0 ORDER BY id ASC FOR UPDATE`).
			WithArgs(int64(5), "ACTIVE").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := NewGormMedicineBatchRepository(db.DB).FindSellableCandidatesForUpdate(ctx, 5)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("account lock", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "accounts" WHERE id = \$1 ORDER BY "accounts"."id" LIMIT \$2 FOR UPDATE`).
			WithArgs(int64(1), 1).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := NewGormAccountRepository(db.DB).FindByIDForUpdate(ctx, 1)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
