package persistence

import (
	"context"
	"errors"

	"github.com/pharmacy/backend/internal/domain/alert"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/pharmacy/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormAlertRepository implements AlertRepository using GORM
type GormAlertRepository struct {
	db *gorm.DB
}

// NewGormAlertRepository creates a new GormAlertRepository
func NewGormAlertRepository(db *gorm.DB) *GormAlertRepository {
	return &GormAlertRepository{db: db}
}

// FindByID finds an alert by its ID
func (r *GormAlertRepository) FindByID(ctx context.Context, id int64) (*alert.Alert, error) {
	var model models.AlertModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ExistsForBatch reports whether an alert of the type was ever raised for the batch
func (r *GormAlertRepository) ExistsForBatch(ctx context.Context, batchID int64, typ alert.Type) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.AlertModel{}).
		Where("batch_id = ? AND type = ?", batchID, typ).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindByStatus returns alerts with the given status with the total count
func (r *GormAlertRepository) FindByStatus(ctx context.Context, status alert.Status, filter shared.Filter) ([]alert.Alert, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.AlertModel{}).Where("status = ?", status).Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.OrderBy == "" {
		filter.OrderBy = "id"
		filter.OrderDir = "desc"
	}
	var list []models.AlertModel
	if err := applyPaging(query, filter, alertSort).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return toAlerts(list), total, nil
}

// FindByBatch returns all alerts of a batch ordered by ID
func (r *GormAlertRepository) FindByBatch(ctx context.Context, batchID int64) ([]alert.Alert, error) {
	var list []models.AlertModel
	if err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("id ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return toAlerts(list), nil
}

// Create inserts an alert. A (batch, type) pair that already exists is skipped and
// reported as ErrDuplicateAlert without failing the surrounding transaction.
func (r *GormAlertRepository) Create(ctx context.Context, a *alert.Alert) error {
	model := models.AlertModelFromDomain(a)
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "batch_id"}, {Name: "type"}},
			DoNothing: true,
		}).
		Create(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return alert.ErrDuplicateAlert
	}
	a.ID = model.ID
	return nil
}

// Save updates an alert's status
func (r *GormAlertRepository) Save(ctx context.Context, a *alert.Alert) error {
	result := r.db.WithContext(ctx).
		Model(&models.AlertModel{}).
		Where("id = ?", a.ID).
		Updates(map[string]any{
			"status":     a.Status,
			"updated_at": a.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func toAlerts(list []models.AlertModel) []alert.Alert {
	alerts := make([]alert.Alert, len(list))
	for i := range list {
		alerts[i] = *list[i].ToDomain()
	}
	return alerts
}

// Ensure GormAlertRepository implements AlertRepository
var _ alert.AlertRepository = (*GormAlertRepository)(nil)
