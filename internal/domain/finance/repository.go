package finance

import (
	"context"
)

// AccountRepository defines the interface for account persistence
type AccountRepository interface {
	// FindByID finds an account by its ID
	FindByID(ctx context.Context, id int64) (*Account, error)

	// FindByIDForUpdate finds and row-locks an account
	FindByIDForUpdate(ctx context.Context, id int64) (*Account, error)

	// FindAll returns all accounts ordered by ID
	FindAll(ctx context.Context) ([]Account, error)

	// Create inserts an account and assigns its ID
	Create(ctx context.Context, account *Account) error

	// Save updates an account's balance and version
	Save(ctx context.Context, account *Account) error
}

// TransactionRepository defines the interface for financial transaction persistence.
// Transactions are append-only.
type TransactionRepository interface {
	// Create inserts a transaction and assigns its ID
	Create(ctx context.Context, tx *Transaction) error

	// FindByAccount returns all transactions of an account ordered by (created_at, id)
	FindByAccount(ctx context.Context, accountID int64) ([]Transaction, error)

	// FindByDocument returns the transactions posted for a document, ordered by ID
	FindByDocument(ctx context.Context, documentID int64) ([]Transaction, error)
}
