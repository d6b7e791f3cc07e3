package persistence

import (
	"context"

	"github.com/pharmacy/backend/internal/application/uow"
	"github.com/pharmacy/backend/internal/domain/alert"
	"github.com/pharmacy/backend/internal/domain/document"
	"github.com/pharmacy/backend/internal/domain/finance"
	"github.com/pharmacy/backend/internal/domain/inventory"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos uow.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepositories{tx: tx})
	})
}

// gormRepositories provides access to all repositories within a transaction.
type gormRepositories struct {
	tx *gorm.DB
}

// Batches returns the medicine batch repository scoped to the current transaction.
func (r *gormRepositories) Batches() inventory.BatchRepository {
	return NewGormMedicineBatchRepository(r.tx)
}

// Movements returns the stock movement repository scoped to the current transaction.
func (r *gormRepositories) Movements() inventory.MovementRepository {
	return NewGormStockMovementRepository(r.tx)
}

// Documents returns the document repository scoped to the current transaction.
func (r *gormRepositories) Documents() document.DocumentRepository {
	return NewGormDocumentRepository(r.tx)
}

// Accounts returns the account repository scoped to the current transaction.
func (r *gormRepositories) Accounts() finance.AccountRepository {
	return NewGormAccountRepository(r.tx)
}

// Transactions returns the financial transaction repository scoped to the current transaction.
func (r *gormRepositories) Transactions() finance.TransactionRepository {
	return NewGormFinancialTransactionRepository(r.tx)
}

// Alerts returns the alert repository scoped to the current transaction.
func (r *gormRepositories) Alerts() alert.AlertRepository {
	return NewGormAlertRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ uow.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormRepositories implements Repositories
var _ uow.Repositories = (*gormRepositories)(nil)
