package models

import (
	"time"

	"github.com/pharmacy/backend/internal/domain/inventory"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// MedicineBatchModel is the persistence model for the MedicineBatch aggregate root.
type MedicineBatchModel struct {
	AggregateModel
	MedicineID        int64                 `gorm:"not null;index:idx_batch_medicine_status,priority:1"`
	BatchNumber       string                `gorm:"type:varchar(64);not null;index"`
	TotalQuantity     int64                 `gorm:"not null"`
	RemainingQuantity int64                 `gorm:"not null;default:0"`
	SoldQuantity      int64                 `gorm:"not null;default:0"`
	ExpiryDate        time.Time             `gorm:"type:date;not null;index"`
	UnitCost          decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	SalePrice         decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	Status            inventory.BatchStatus `gorm:"type:varchar(20);not null;default:'ACTIVE';index:idx_batch_medicine_status,priority:2"`
	SourceDocumentID  *int64                `gorm:"index"`
}

// TableName returns the table name for GORM
func (MedicineBatchModel) TableName() string {
	return "medicine_batches"
}

// ToDomain converts the persistence model to a domain MedicineBatch.
func (m *MedicineBatchModel) ToDomain() *inventory.MedicineBatch {
	return &inventory.MedicineBatch{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		MedicineID:        m.MedicineID,
		BatchNumber:       m.BatchNumber,
		TotalQuantity:     m.TotalQuantity,
		RemainingQuantity: m.RemainingQuantity,
		SoldQuantity:      m.SoldQuantity,
		ExpiryDate:        shared.Day(m.ExpiryDate),
		UnitCost:          m.UnitCost,
		SalePrice:         m.SalePrice,
		Status:            m.Status,
		SourceDocumentID:  m.SourceDocumentID,
	}
}

// FromDomain populates the persistence model from a domain MedicineBatch.
func (m *MedicineBatchModel) FromDomain(b *inventory.MedicineBatch) {
	m.FromDomainAggregateRoot(b.BaseAggregateRoot)
	m.MedicineID = b.MedicineID
	m.BatchNumber = b.BatchNumber
	m.TotalQuantity = b.TotalQuantity
	m.RemainingQuantity = b.RemainingQuantity
	m.SoldQuantity = b.SoldQuantity
	m.ExpiryDate = shared.Day(b.ExpiryDate)
	m.UnitCost = b.UnitCost
	m.SalePrice = b.SalePrice
	m.Status = b.Status
	m.SourceDocumentID = b.SourceDocumentID
}

// MedicineBatchModelFromDomain creates a new persistence model from a domain MedicineBatch.
func MedicineBatchModelFromDomain(b *inventory.MedicineBatch) *MedicineBatchModel {
	m := &MedicineBatchModel{}
	m.FromDomain(b)
	return m
}

// StockMovementModel is the persistence model for the append-only stock ledger.
type StockMovementModel struct {
	BaseModel
	MedicineID    int64                   `gorm:"not null;index:idx_movement_medicine_created,priority:1"`
	BatchID       *int64                  `gorm:"index"`
	Kind          inventory.MovementKind  `gorm:"type:varchar(30);not null"`
	Quantity      int64                   `gorm:"not null"`
	ReferenceKind inventory.ReferenceKind `gorm:"type:varchar(30);not null;index:idx_movement_reference,priority:1"`
	ReferenceID   int64                   `gorm:"not null;index:idx_movement_reference,priority:2"`
	SourceLineID  *int64
	Reversal      bool   `gorm:"not null;default:false"`
	BalanceAfter  int64  `gorm:"not null"`
	Notes         string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (StockMovementModel) TableName() string {
	return "stock_movements"
}

// ToDomain converts the persistence model to a domain StockMovement.
func (m *StockMovementModel) ToDomain() *inventory.StockMovement {
	return &inventory.StockMovement{
		BaseEntity:    m.BaseModel.ToDomain(),
		MedicineID:    m.MedicineID,
		BatchID:       m.BatchID,
		Kind:          m.Kind,
		Quantity:      m.Quantity,
		ReferenceKind: m.ReferenceKind,
		ReferenceID:   m.ReferenceID,
		SourceLineID:  m.SourceLineID,
		Reversal:      m.Reversal,
		BalanceAfter:  m.BalanceAfter,
		Notes:         m.Notes,
	}
}

// StockMovementModelFromDomain creates a new persistence model from a domain StockMovement.
func StockMovementModelFromDomain(s *inventory.StockMovement) *StockMovementModel {
	m := &StockMovementModel{
		MedicineID:    s.MedicineID,
		BatchID:       s.BatchID,
		Kind:          s.Kind,
		Quantity:      s.Quantity,
		ReferenceKind: s.ReferenceKind,
		ReferenceID:   s.ReferenceID,
		SourceLineID:  s.SourceLineID,
		Reversal:      s.Reversal,
		BalanceAfter:  s.BalanceAfter,
		Notes:         s.Notes,
	}
	m.FromDomainBaseEntity(s.BaseEntity)
	return m
}
