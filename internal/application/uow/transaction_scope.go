package uow

import (
	"context"

	"github.com/pharmacy/backend/internal/domain/alert"
	"github.com/pharmacy/backend/internal/domain/document"
	"github.com/pharmacy/backend/internal/domain/finance"
	"github.com/pharmacy/backend/internal/domain/inventory"
)

// TransactionScope provides transactional access to the pharmacy repositories.
// All repository operations made through the Repositories handed to fn share one
// database transaction, committed when fn returns nil and rolled back otherwise.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}

// Repositories provides access to all repositories within a transaction.
// Row locks taken through the ForUpdate finders are held until the transaction ends.
type Repositories interface {
	Batches() inventory.BatchRepository
	Movements() inventory.MovementRepository
	Documents() document.DocumentRepository
	Accounts() finance.AccountRepository
	Transactions() finance.TransactionRepository
	Alerts() alert.AlertRepository
}
