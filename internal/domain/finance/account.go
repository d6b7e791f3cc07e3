package finance

import (
	"strings"
	"time"

	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Account is the pharmacy's cash account. Balance is the fold of its transactions
// and only changes through Ledger.Post.
type Account struct {
	shared.BaseAggregateRoot
	Name     string
	Currency string
	Balance  decimal.Decimal
}

// NewAccount creates an account with a zero balance
func NewAccount(name, currency string, now time.Time) (*Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Account name cannot be empty")
	}
	if len(name) > 100 {
		return nil, shared.NewDomainError("INVALID_NAME", "Account name cannot exceed 100 characters")
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return nil, shared.NewDomainError("INVALID_CURRENCY", "Currency must be a 3-letter code")
	}
	return &Account{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(now),
		Name:              name,
		Currency:          currency,
		Balance:           decimal.Zero,
	}, nil
}

// apply adds the transaction amount to the balance and stamps BalanceAfter
func (a *Account) apply(tx *Transaction, now time.Time) {
	a.Balance = a.Balance.Add(tx.Amount)
	tx.BalanceAfter = a.Balance
	a.Touch(now)
	a.IncrementVersion()
}
