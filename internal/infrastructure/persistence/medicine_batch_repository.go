package persistence

import (
	"context"
	"errors"

	"github.com/pharmacy/backend/internal/domain/inventory"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/pharmacy/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormMedicineBatchRepository implements BatchRepository using GORM
type GormMedicineBatchRepository struct {
	db *gorm.DB
}

// NewGormMedicineBatchRepository creates a new GormMedicineBatchRepository
func NewGormMedicineBatchRepository(db *gorm.DB) *GormMedicineBatchRepository {
	return &GormMedicineBatchRepository{db: db}
}

// forUpdate adds a row-level lock to the query. SQLite ignores it.
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// FindByID finds a batch by its ID
func (r *GormMedicineBatchRepository) FindByID(ctx context.Context, id int64) (*inventory.MedicineBatch, error) {
	return r.findOne(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds and locks a batch
func (r *GormMedicineBatchRepository) FindByIDForUpdate(ctx context.Context, id int64) (*inventory.MedicineBatch, error) {
	return r.findOne(forUpdate(r.db.WithContext(ctx)), id)
}

func (r *GormMedicineBatchRepository) findOne(db *gorm.DB, id int64) (*inventory.MedicineBatch, error) {
	var model models.MedicineBatchModel
	if err := db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDsForUpdate locks several batches in ascending ID order
func (r *GormMedicineBatchRepository) FindByIDsForUpdate(ctx context.Context, ids []int64) ([]*inventory.MedicineBatch, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var list []models.MedicineBatchModel
	if err := forUpdate(r.db.WithContext(ctx)).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return toBatches(list), nil
}

// FindSellableCandidatesForUpdate locks the Active batches of a medicine that hold stock
func (r *GormMedicineBatchRepository) FindSellableCandidatesForUpdate(ctx context.Context, medicineID int64) ([]*inventory.MedicineBatch, error) {
	var list []models.MedicineBatchModel
	if err := forUpdate(r.db.WithContext(ctx)).
		Where("medicine_id = ? AND status = ? AND remaining_quantity > 0", medicineID, inventory.BatchStatusActive).
		Order("id ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return toBatches(list), nil
}

// FindByMedicine finds all batches of a medicine
func (r *GormMedicineBatchRepository) FindByMedicine(ctx context.Context, medicineID int64) ([]*inventory.MedicineBatch, error) {
	var list []models.MedicineBatchModel
	if err := r.db.WithContext(ctx).
		Where("medicine_id = ?", medicineID).
		Order("expiry_date ASC, id ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return toBatches(list), nil
}

// FindByStatus finds all batches with the given status, ordered by ID
func (r *GormMedicineBatchRepository) FindByStatus(ctx context.Context, status inventory.BatchStatus) ([]*inventory.MedicineBatch, error) {
	var list []models.MedicineBatchModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("id ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return toBatches(list), nil
}

// FindBySourceDocument finds the batches created by a purchase document
func (r *GormMedicineBatchRepository) FindBySourceDocument(ctx context.Context, documentID int64) ([]*inventory.MedicineBatch, error) {
	var list []models.MedicineBatchModel
	if err := r.db.WithContext(ctx).
		Where("source_document_id = ?", documentID).
		Order("id ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return toBatches(list), nil
}

// Create inserts a new batch and assigns its ID
func (r *GormMedicineBatchRepository) Create(ctx context.Context, batch *inventory.MedicineBatch) error {
	model := models.MedicineBatchModelFromDomain(batch)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	batch.ID = model.ID
	return nil
}

// Save updates an existing batch
func (r *GormMedicineBatchRepository) Save(ctx context.Context, batch *inventory.MedicineBatch) error {
	if batch.ID == 0 {
		return shared.NewDomainError("INVALID_BATCH", "Cannot save a batch that was never created")
	}
	return r.db.WithContext(ctx).Save(models.MedicineBatchModelFromDomain(batch)).Error
}

func toBatches(list []models.MedicineBatchModel) []*inventory.MedicineBatch {
	batches := make([]*inventory.MedicineBatch, len(list))
	for i := range list {
		batches[i] = list[i].ToDomain()
	}
	return batches
}

// Ensure GormMedicineBatchRepository implements BatchRepository
var _ inventory.BatchRepository = (*GormMedicineBatchRepository)(nil)
