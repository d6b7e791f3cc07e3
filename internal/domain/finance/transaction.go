package finance

import (
	"fmt"
	"strings"
	"time"

	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// TransactionType represents the type of a financial transaction
type TransactionType string

const (
	// TransactionTypeIncome is money in; amount must be positive
	TransactionTypeIncome TransactionType = "INCOME"
	// TransactionTypeExpense is money out; amount must be negative
	TransactionTypeExpense TransactionType = "EXPENSE"
	// TransactionTypeAdjustment is a manual correction in either direction
	TransactionTypeAdjustment TransactionType = "ADJUSTMENT"
)

// String returns the string representation of TransactionType
func (t TransactionType) String() string {
	return string(t)
}

// IsValid returns true if the transaction type is valid
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeIncome, TransactionTypeExpense, TransactionTypeAdjustment:
		return true
	}
	return false
}

// Sign returns +1 for Income, -1 for Expense and 0 for Adjustment
func (t TransactionType) Sign() int {
	switch t {
	case TransactionTypeIncome:
		return 1
	case TransactionTypeExpense:
		return -1
	}
	return 0
}

// Inverse returns the type that undoes this one
func (t TransactionType) Inverse() TransactionType {
	switch t {
	case TransactionTypeIncome:
		return TransactionTypeExpense
	case TransactionTypeExpense:
		return TransactionTypeIncome
	}
	return TransactionTypeAdjustment
}

// PostRequest describes money to post against an account
type PostRequest struct {
	Type        TransactionType
	Amount      decimal.Decimal // signed
	Description string
	DocumentID  *int64
	BatchID     *int64
}

// Validate checks the amount sign against the transaction type
func (r PostRequest) Validate() error {
	if !r.Type.IsValid() {
		return shared.NewDomainError("INVALID_TRANSACTION_TYPE", fmt.Sprintf("Unknown transaction type: %s", r.Type))
	}
	if r.Amount.IsZero() {
		return shared.NewDomainError("INVALID_AMOUNT", "Transaction amount cannot be zero")
	}
	switch r.Type.Sign() {
	case 1:
		if !r.Amount.IsPositive() {
			return shared.NewDomainError("INVALID_AMOUNT", "Income amount must be positive")
		}
	case -1:
		if !r.Amount.IsNegative() {
			return shared.NewDomainError("INVALID_AMOUNT", "Expense amount must be negative")
		}
	}
	if strings.TrimSpace(r.Description) == "" {
		return shared.NewDomainError("INVALID_DESCRIPTION", "Transaction description is required")
	}
	if len(r.Description) > 500 {
		return shared.NewDomainError("INVALID_DESCRIPTION", "Transaction description cannot exceed 500 characters")
	}
	return nil
}

// Transaction is an immutable money movement on an account
type Transaction struct {
	shared.BaseEntity
	AccountID    int64
	Type         TransactionType
	Amount       decimal.Decimal
	BalanceAfter decimal.Decimal
	Description  string
	DocumentID   *int64
	BatchID      *int64
}

// NewTransaction creates a validated transaction for an account
func NewTransaction(accountID int64, req PostRequest, now time.Time) (*Transaction, error) {
	if accountID <= 0 {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Account ID must be positive")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &Transaction{
		BaseEntity:  shared.NewBaseEntity(now),
		AccountID:   accountID,
		Type:        req.Type,
		Amount:      req.Amount,
		Description: strings.TrimSpace(req.Description),
		DocumentID:  req.DocumentID,
		BatchID:     req.BatchID,
	}, nil
}

// InverseRequest returns the request that cancels this transaction
func (t *Transaction) InverseRequest(description string) PostRequest {
	return PostRequest{
		Type:        t.Type.Inverse(),
		Amount:      t.Amount.Neg(),
		Description: description,
		DocumentID:  t.DocumentID,
		BatchID:     t.BatchID,
	}
}
