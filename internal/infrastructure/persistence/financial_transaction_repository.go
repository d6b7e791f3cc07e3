package persistence

import (
	"context"

	"github.com/pharmacy/backend/internal/domain/finance"
	"github.com/pharmacy/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormFinancialTransactionRepository implements TransactionRepository using GORM
type GormFinancialTransactionRepository struct {
	db *gorm.DB
}

// NewGormFinancialTransactionRepository creates a new GormFinancialTransactionRepository
func NewGormFinancialTransactionRepository(db *gorm.DB) *GormFinancialTransactionRepository {
	return &GormFinancialTransactionRepository{db: db}
}

// Create inserts a transaction and assigns its ID
func (r *GormFinancialTransactionRepository) Create(ctx context.Context, tx *finance.Transaction) error {
	model := models.FinancialTransactionModelFromDomain(tx)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	tx.ID = model.ID
	return nil
}

// FindByAccount returns all transactions of an account ordered by (created_at, id)
func (r *GormFinancialTransactionRepository) FindByAccount(ctx context.Context, accountID int64) ([]finance.Transaction, error) {
	return r.find(r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at ASC, id ASC"))
}

// FindByDocument returns the transactions posted for a document, ordered by ID
func (r *GormFinancialTransactionRepository) FindByDocument(ctx context.Context, documentID int64) ([]finance.Transaction, error) {
	return r.find(r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("id ASC"))
}

func (r *GormFinancialTransactionRepository) find(query *gorm.DB) ([]finance.Transaction, error) {
	var list []models.FinancialTransactionModel
	if err := query.Find(&list).Error; err != nil {
		return nil, err
	}
	txs := make([]finance.Transaction, len(list))
	for i := range list {
		txs[i] = *list[i].ToDomain()
	}
	return txs, nil
}

// Ensure GormFinancialTransactionRepository implements TransactionRepository
var _ finance.TransactionRepository = (*GormFinancialTransactionRepository)(nil)
