package inventory

import (
	"time"

	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeMedicineBatch = "MedicineBatch"

// Event type constants
const (
	EventTypeBatchExpired     = "BatchExpired"
	EventTypeBatchWrittenOff  = "BatchWrittenOff"
	EventTypeBatchQuarantined = "BatchQuarantined"
	EventTypeBatchReleased    = "BatchReleased"
)

// BatchExpiredEvent is raised when the expiry scan zeroes a batch
type BatchExpiredEvent struct {
	shared.BaseDomainEvent
	MedicineID  int64           `json:"medicine_id"`
	BatchNumber string          `json:"batch_number"`
	Quantity    int64           `json:"quantity"`
	Loss        decimal.Decimal `json:"loss"`
}

// NewBatchExpiredEvent creates a new BatchExpiredEvent
func NewBatchExpiredEvent(b *MedicineBatch, quantity int64, loss decimal.Decimal, at time.Time) *BatchExpiredEvent {
	return &BatchExpiredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBatchExpired, AggregateTypeMedicineBatch, b.ID, at),
		MedicineID:      b.MedicineID,
		BatchNumber:     b.BatchNumber,
		Quantity:        quantity,
		Loss:            loss,
	}
}

// BatchWrittenOffEvent is raised when a batch is written off as damaged
type BatchWrittenOffEvent struct {
	shared.BaseDomainEvent
	MedicineID  int64           `json:"medicine_id"`
	BatchNumber string          `json:"batch_number"`
	Quantity    int64           `json:"quantity"`
	Loss        decimal.Decimal `json:"loss"`
	Reason      string          `json:"reason,omitempty"`
}

// NewBatchWrittenOffEvent creates a new BatchWrittenOffEvent
func NewBatchWrittenOffEvent(b *MedicineBatch, quantity int64, loss decimal.Decimal, reason string, at time.Time) *BatchWrittenOffEvent {
	return &BatchWrittenOffEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBatchWrittenOff, AggregateTypeMedicineBatch, b.ID, at),
		MedicineID:      b.MedicineID,
		BatchNumber:     b.BatchNumber,
		Quantity:        quantity,
		Loss:            loss,
		Reason:          reason,
	}
}

// BatchStatusChangedEvent is raised on quarantine and release
type BatchStatusChangedEvent struct {
	shared.BaseDomainEvent
	MedicineID int64       `json:"medicine_id"`
	From       BatchStatus `json:"from"`
	To         BatchStatus `json:"to"`
}

// NewBatchStatusChangedEvent creates a quarantine or release event depending on the target status
func NewBatchStatusChangedEvent(b *MedicineBatch, from BatchStatus, at time.Time) *BatchStatusChangedEvent {
	eventType := EventTypeBatchReleased
	if b.Status == BatchStatusQuarantined {
		eventType = EventTypeBatchQuarantined
	}
	return &BatchStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeMedicineBatch, b.ID, at),
		MedicineID:      b.MedicineID,
		From:            from,
		To:              b.Status,
	}
}
