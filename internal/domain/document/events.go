package document

import (
	"time"

	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeDocument = "Document"

// Event type constants
const (
	EventTypeDocumentApproved  = "DocumentApproved"
	EventTypeDocumentCancelled = "DocumentCancelled"
)

// ApprovedEvent is raised when a document's effects have been committed
type ApprovedEvent struct {
	shared.BaseDomainEvent
	Number      string          `json:"number"`
	Kind        Kind            `json:"kind"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	ApprovedBy  int64           `json:"approved_by"`
}

// NewApprovedEvent creates a new ApprovedEvent
func NewApprovedEvent(d *Document, at time.Time) *ApprovedEvent {
	var by int64
	if d.ApprovedBy != nil {
		by = *d.ApprovedBy
	}
	return &ApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentApproved, AggregateTypeDocument, d.ID, at),
		Number:          d.Number,
		Kind:            d.Kind,
		TotalAmount:     d.TotalAmount,
		ApprovedBy:      by,
	}
}

// CancelledEvent is raised when a document has been reversed
type CancelledEvent struct {
	shared.BaseDomainEvent
	Number      string `json:"number"`
	Kind        Kind   `json:"kind"`
	Reason      string `json:"reason"`
	CancelledBy int64  `json:"cancelled_by"`
}

// NewCancelledEvent creates a new CancelledEvent
func NewCancelledEvent(d *Document, at time.Time) *CancelledEvent {
	var by int64
	if d.CancelledBy != nil {
		by = *d.CancelledBy
	}
	return &CancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentCancelled, AggregateTypeDocument, d.ID, at),
		Number:          d.Number,
		Kind:            d.Kind,
		Reason:          d.CancelReason,
		CancelledBy:     by,
	}
}
