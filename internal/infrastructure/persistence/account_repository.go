package persistence

import (
	"context"
	"errors"

	"github.com/pharmacy/backend/internal/domain/finance"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/pharmacy/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAccountRepository implements AccountRepository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// FindByID finds an account by its ID
func (r *GormAccountRepository) FindByID(ctx context.Context, id int64) (*finance.Account, error) {
	return r.findOne(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds and row-locks an account
func (r *GormAccountRepository) FindByIDForUpdate(ctx context.Context, id int64) (*finance.Account, error) {
	return r.findOne(forUpdate(r.db.WithContext(ctx)), id)
}

func (r *GormAccountRepository) findOne(db *gorm.DB, id int64) (*finance.Account, error) {
	var model models.AccountModel
	if err := db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns all accounts ordered by ID
func (r *GormAccountRepository) FindAll(ctx context.Context) ([]finance.Account, error) {
	var list []models.AccountModel
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	accounts := make([]finance.Account, len(list))
	for i := range list {
		accounts[i] = *list[i].ToDomain()
	}
	return accounts, nil
}

// Create inserts an account and assigns its ID
func (r *GormAccountRepository) Create(ctx context.Context, account *finance.Account) error {
	model := models.AccountModelFromDomain(account)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	account.ID = model.ID
	return nil
}

// Save updates an account's balance and version
func (r *GormAccountRepository) Save(ctx context.Context, account *finance.Account) error {
	return r.db.WithContext(ctx).Save(models.AccountModelFromDomain(account)).Error
}

// Ensure GormAccountRepository implements AccountRepository
var _ finance.AccountRepository = (*GormAccountRepository)(nil)
