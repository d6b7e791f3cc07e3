package persistence

import (
	"context"

	"github.com/pharmacy/backend/internal/domain/inventory"
	"github.com/pharmacy/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormStockMovementRepository implements MovementRepository using GORM.
// It only ever inserts and reads.
type GormStockMovementRepository struct {
	db *gorm.DB
}

// NewGormStockMovementRepository creates a new GormStockMovementRepository
func NewGormStockMovementRepository(db *gorm.DB) *GormStockMovementRepository {
	return &GormStockMovementRepository{db: db}
}

// Create inserts a movement and assigns its ID
func (r *GormStockMovementRepository) Create(ctx context.Context, movement *inventory.StockMovement) error {
	model := models.StockMovementModelFromDomain(movement)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	movement.ID = model.ID
	return nil
}

// FindByReference returns the movements caused by one reference, ordered by ID
func (r *GormStockMovementRepository) FindByReference(ctx context.Context, refKind inventory.ReferenceKind, refID int64) ([]inventory.StockMovement, error) {
	var list []models.StockMovementModel
	if err := r.db.WithContext(ctx).
		Where("reference_kind = ? AND reference_id = ?", refKind, refID).
		Order("id ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return toMovements(list), nil
}

// FindForCard returns the movements of a medicine, or of one batch, ordered by (created_at, id)
func (r *GormStockMovementRepository) FindForCard(ctx context.Context, medicineID int64, batchID *int64) ([]inventory.StockMovement, error) {
	query := r.db.WithContext(ctx).Where("medicine_id = ?", medicineID)
	if batchID != nil {
		query = query.Where("batch_id = ?", *batchID)
	}

	var list []models.StockMovementModel
	if err := query.Order("created_at ASC, id ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return toMovements(list), nil
}

// SumByBatch returns the signed sum of all movements on a batch
func (r *GormStockMovementRepository) SumByBatch(ctx context.Context, batchID int64) (int64, error) {
	var sum int64
	if err := r.db.WithContext(ctx).
		Model(&models.StockMovementModel{}).
		Where("batch_id = ?", batchID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&sum).Error; err != nil {
		return 0, err
	}
	return sum, nil
}

func toMovements(list []models.StockMovementModel) []inventory.StockMovement {
	movements := make([]inventory.StockMovement, len(list))
	for i := range list {
		movements[i] = *list[i].ToDomain()
	}
	return movements
}

// Ensure GormStockMovementRepository implements MovementRepository
var _ inventory.MovementRepository = (*GormStockMovementRepository)(nil)
