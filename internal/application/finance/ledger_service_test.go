package finance

import (
	"context"
	"testing"
	"time"

	"github.com/pharmacy/backend/internal/domain/finance"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/pharmacy/backend/internal/infrastructure/persistence"
	"github.com/pharmacy/backend/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newLedgerService(t *testing.T) (*LedgerService, *gorm.DB, *testutil.FixedClock) {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	clock := testutil.NewFixedClock(testutil.Date(2026, 3, 1).Add(8 * time.Hour))
	return NewLedgerService(persistence.NewGormTransactionScope(db), clock, zap.NewNop()), db, clock
}

func TestLedgerService_OpenAccount(t *testing.T) {
	svc, _, _ := newLedgerService(t)
	ctx := context.Background()

	account, err := svc.OpenAccount(ctx, OpenAccountCommand{
		Name:           "Main cash",
		Currency:       "EGP",
		OpeningBalance: decimal.NewFromInt(10000),
	})
	require.NoError(t, err)
	assert.NotZero(t, account.ID)
	assert.True(t, decimal.NewFromInt(10000).Equal(account.Balance))

	stmt, err := svc.Statement(ctx, account.ID)
	require.NoError(t, err)
	require.Len(t, stmt.Entries, 1)
	assert.Equal(t, finance.TransactionTypeAdjustment, stmt.Entries[0].Transaction.Type)

	empty, err := svc.OpenAccount(ctx, OpenAccountCommand{Name: "Petty cash", Currency: "EGP"})
	require.NoError(t, err)
	stmt, err = svc.Statement(ctx, empty.ID)
	require.NoError(t, err)
	assert.Empty(t, stmt.Entries)
	assert.True(t, stmt.Balance.IsZero())

	_, err = svc.OpenAccount(ctx, OpenAccountCommand{Name: "Bad", Currency: "EGYPT"})
	assert.Equal(t, shared.KindValidation, shared.KindOf(err))
}

func TestLedgerService_PostAndStatement(t *testing.T) {
	svc, _, clock := newLedgerService(t)
	ctx := context.Background()
	account, err := svc.OpenAccount(ctx, OpenAccountCommand{Name: "Main", Currency: "EGP", OpeningBalance: decimal.NewFromInt(10000)})
	require.NoError(t, err)

	clock.Advance(time.Minute)
	tx, err := svc.Post(ctx, account.ID, finance.PostRequest{
		Type:        finance.TransactionTypeExpense,
		Amount:      decimal.NewFromInt(-2000),
		Description: "Supplier invoice",
	})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(8000).Equal(tx.BalanceAfter))

	clock.Advance(time.Minute)
	_, err = svc.Post(ctx, account.ID, finance.PostRequest{
		Type:        finance.TransactionTypeIncome,
		Amount:      decimal.NewFromInt(2000),
		Description: "Supplier refund",
	})
	require.NoError(t, err)

	stmt, err := svc.Statement(ctx, account.ID)
	require.NoError(t, err)
	require.Len(t, stmt.Entries, 3)
	assert.True(t, decimal.NewFromInt(8000).Equal(stmt.Entries[1].Balance))
	assert.True(t, decimal.NewFromInt(10000).Equal(stmt.Balance))
	assert.True(t, stmt.Balance.Equal(stmt.Account.Balance))

	_, err = svc.Post(ctx, account.ID, finance.PostRequest{
		Type:        finance.TransactionTypeIncome,
		Amount:      decimal.NewFromInt(-5),
		Description: "Wrong sign",
	})
	assert.Equal(t, shared.KindValidation, shared.KindOf(err))

	_, err = svc.Post(ctx, 999, finance.PostRequest{
		Type:        finance.TransactionTypeIncome,
		Amount:      decimal.NewFromInt(5),
		Description: "No account",
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestLedgerService_ReconcileDetectsDrift(t *testing.T) {
	svc, db, _ := newLedgerService(t)
	ctx := context.Background()
	account, err := svc.OpenAccount(ctx, OpenAccountCommand{Name: "Main", Currency: "EGP", OpeningBalance: decimal.NewFromInt(500)})
	require.NoError(t, err)

	require.NoError(t, svc.Reconcile(ctx, account.ID))
	require.NoError(t, svc.ReconcileAll(ctx))

	// Corrupt the stored total behind the ledger's back
	require.NoError(t, db.Exec("UPDATE accounts SET balance = ? WHERE id = ?", "499", account.ID).Error)

	err = svc.Reconcile(ctx, account.ID)
	require.Error(t, err)
	assert.Equal(t, shared.KindReconciliation, shared.KindOf(err))
	assert.Equal(t, shared.KindReconciliation, shared.KindOf(svc.ReconcileAll(ctx)))

	// Reconcile reports and never corrects
	stmt, err := svc.Statement(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(499).Equal(stmt.Account.Balance))
}

func TestLedgerService_EnsureAccount(t *testing.T) {
	cmd := OpenAccountCommand{Name: "Main", Currency: "EGP"}

	t.Run("bootstraps first account", func(t *testing.T) {
		svc, _, _ := newLedgerService(t)
		account, err := svc.EnsureAccount(context.Background(), 1, cmd)
		require.NoError(t, err)
		assert.Equal(t, int64(1), account.ID)
		assert.Equal(t, "Main", account.Name)
	})

	t.Run("returns existing account", func(t *testing.T) {
		svc, _, _ := newLedgerService(t)
		ctx := context.Background()
		opened, err := svc.OpenAccount(ctx, OpenAccountCommand{Name: "Existing", Currency: "USD", OpeningBalance: decimal.NewFromInt(7)})
		require.NoError(t, err)

		account, err := svc.EnsureAccount(ctx, opened.ID, cmd)
		require.NoError(t, err)
		assert.Equal(t, "Existing", account.Name)
		assert.True(t, decimal.NewFromInt(7).Equal(account.Balance))
	})

	t.Run("missing account among others", func(t *testing.T) {
		svc, _, _ := newLedgerService(t)
		ctx := context.Background()
		_, err := svc.OpenAccount(ctx, cmd)
		require.NoError(t, err)

		_, err = svc.EnsureAccount(ctx, 5, cmd)
		assert.Equal(t, shared.KindNotFound, shared.KindOf(err))
	})

	t.Run("configured id not assignable", func(t *testing.T) {
		svc, _, _ := newLedgerService(t)
		_, err := svc.EnsureAccount(context.Background(), 3, cmd)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configured id is 3")
	})
}
