package models

import (
	"github.com/pharmacy/backend/internal/domain/finance"
	"github.com/shopspring/decimal"
)

// AccountModel is the persistence model for the Account aggregate root.
type AccountModel struct {
	AggregateModel
	Name     string          `gorm:"type:varchar(100);not null"`
	Currency string          `gorm:"type:varchar(3);not null"`
	Balance  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (AccountModel) TableName() string {
	return "accounts"
}

// ToDomain converts the persistence model to a domain Account.
func (m *AccountModel) ToDomain() *finance.Account {
	return &finance.Account{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Name:              m.Name,
		Currency:          m.Currency,
		Balance:           m.Balance,
	}
}

// AccountModelFromDomain creates a new persistence model from a domain Account.
func AccountModelFromDomain(a *finance.Account) *AccountModel {
	m := &AccountModel{
		Name:     a.Name,
		Currency: a.Currency,
		Balance:  a.Balance,
	}
	m.FromDomainAggregateRoot(a.BaseAggregateRoot)
	return m
}

// FinancialTransactionModel is the persistence model for the append-only money ledger.
type FinancialTransactionModel struct {
	BaseModel
	AccountID    int64                   `gorm:"not null;index:idx_fin_tx_account_created,priority:1"`
	Type         finance.TransactionType `gorm:"type:varchar(20);not null"`
	Amount       decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	BalanceAfter decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	Description  string                  `gorm:"type:varchar(500);not null"`
	DocumentID   *int64                  `gorm:"index"`
	BatchID      *int64                  `gorm:"index"`
}

// TableName returns the table name for GORM
func (FinancialTransactionModel) TableName() string {
	return "financial_transactions"
}

// ToDomain converts the persistence model to a domain Transaction.
func (m *FinancialTransactionModel) ToDomain() *finance.Transaction {
	return &finance.Transaction{
		BaseEntity:   m.BaseModel.ToDomain(),
		AccountID:    m.AccountID,
		Type:         m.Type,
		Amount:       m.Amount,
		BalanceAfter: m.BalanceAfter,
		Description:  m.Description,
		DocumentID:   m.DocumentID,
		BatchID:      m.BatchID,
	}
}

// FinancialTransactionModelFromDomain creates a new persistence model from a domain Transaction.
func FinancialTransactionModelFromDomain(tx *finance.Transaction) *FinancialTransactionModel {
	m := &FinancialTransactionModel{
		AccountID:    tx.AccountID,
		Type:         tx.Type,
		Amount:       tx.Amount,
		BalanceAfter: tx.BalanceAfter,
		Description:  tx.Description,
		DocumentID:   tx.DocumentID,
		BatchID:      tx.BatchID,
	}
	m.FromDomainBaseEntity(tx.BaseEntity)
	return m
}
