package finance

import (
	"context"
	"fmt"
	"sort"

	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Ledger posts money against an explicitly named account. Posting locks the account
// row, so callers must run inside a TransactionScope.
type Ledger struct {
	accounts     AccountRepository
	transactions TransactionRepository
	clock        shared.Clock
}

// NewLedger creates a ledger over transaction-bound repositories
func NewLedger(accounts AccountRepository, transactions TransactionRepository, clock shared.Clock) *Ledger {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return &Ledger{
		accounts:     accounts,
		transactions: transactions,
		clock:        clock,
	}
}

// Post appends a transaction and moves the account balance by its amount
func (l *Ledger) Post(ctx context.Context, accountID int64, req PostRequest) (*Transaction, error) {
	now := l.clock.Now()
	tx, err := NewTransaction(accountID, req, now)
	if err != nil {
		return nil, err
	}

	account, err := l.accounts.FindByIDForUpdate(ctx, accountID)
	if err != nil {
		return nil, err
	}
	account.apply(tx, now)

	if err := l.transactions.Create(ctx, tx); err != nil {
		return nil, err
	}
	if err := l.accounts.Save(ctx, account); err != nil {
		return nil, err
	}
	return tx, nil
}

// Reverse posts the inverse of every given transaction to its own account, newest first
func (l *Ledger) Reverse(ctx context.Context, txs []Transaction, description string) error {
	for i := len(txs) - 1; i >= 0; i-- {
		if _, err := l.Post(ctx, txs[i].AccountID, txs[i].InverseRequest(description)); err != nil {
			return err
		}
	}
	return nil
}

// StatementEntry is one transaction with the running balance after it
type StatementEntry struct {
	Transaction Transaction
	Balance     decimal.Decimal
}

// Statement is the chronological transaction history of an account
type Statement struct {
	Account *Account
	Entries []StatementEntry
	Balance decimal.Decimal
}

// Statement folds the account's transactions into running balances
func (l *Ledger) Statement(ctx context.Context, accountID int64) (*Statement, error) {
	account, err := l.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	txs, err := l.transactions.FindByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return BuildStatement(account, txs), nil
}

// Reconcile checks that the stored balance equals the fold of all transactions.
// A mismatch is reported, never corrected.
func (l *Ledger) Reconcile(ctx context.Context, accountID int64) error {
	stmt, err := l.Statement(ctx, accountID)
	if err != nil {
		return err
	}
	if !stmt.Balance.Equal(stmt.Account.Balance) {
		return shared.NewKindError(shared.KindReconciliation, "BALANCE_DRIFT",
			fmt.Sprintf("Account %d balance %s but transactions sum to %s",
				accountID, stmt.Account.Balance.StringFixed(2), stmt.Balance.StringFixed(2)))
	}
	return nil
}

// BuildStatement folds transactions in (created_at, id) order
func BuildStatement(account *Account, txs []Transaction) *Statement {
	ordered := make([]Transaction, len(txs))
	copy(ordered, txs)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
		}
		return ordered[i].ID < ordered[j].ID
	})

	stmt := &Statement{
		Account: account,
		Entries: make([]StatementEntry, 0, len(ordered)),
		Balance: decimal.Zero,
	}
	for _, tx := range ordered {
		stmt.Balance = stmt.Balance.Add(tx.Amount)
		stmt.Entries = append(stmt.Entries, StatementEntry{Transaction: tx, Balance: stmt.Balance})
	}
	return stmt
}
