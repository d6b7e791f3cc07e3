package inventory

import (
	"fmt"
	"time"

	"github.com/pharmacy/backend/internal/domain/shared"
)

// MovementKind is the business cause of a stock movement
type MovementKind string

const (
	MovementKindPurchase       MovementKind = "PURCHASE"
	MovementKindSale           MovementKind = "SALE"
	MovementKindPurchaseReturn MovementKind = "PURCHASE_RETURN"
	MovementKindSalesReturn    MovementKind = "SALES_RETURN"
	MovementKindAdjustment     MovementKind = "ADJUSTMENT"
	MovementKindDamage         MovementKind = "DAMAGE"
	MovementKindExpiry         MovementKind = "EXPIRY"
)

// IsValid returns true if the kind is known
func (k MovementKind) IsValid() bool {
	switch k {
	case MovementKindPurchase, MovementKindSale, MovementKindPurchaseReturn,
		MovementKindSalesReturn, MovementKindAdjustment, MovementKindDamage, MovementKindExpiry:
		return true
	}
	return false
}

// String returns the string representation of MovementKind
func (k MovementKind) String() string {
	return string(k)
}

// Direction returns the sign a forward movement of this kind carries:
// +1 inbound, -1 outbound, 0 either way
func (k MovementKind) Direction() int {
	switch k {
	case MovementKindPurchase, MovementKindSalesReturn:
		return 1
	case MovementKindSale, MovementKindPurchaseReturn, MovementKindDamage, MovementKindExpiry:
		return -1
	}
	return 0
}

// IsReversible returns true if a compensating movement of this kind may be recorded
func (k MovementKind) IsReversible() bool {
	return k != MovementKindDamage && k != MovementKindExpiry
}

// ReferenceKind identifies what caused a movement
type ReferenceKind string

const (
	ReferencePurchaseInvoice ReferenceKind = "PURCHASE_INVOICE"
	ReferenceSaleInvoice     ReferenceKind = "SALE_INVOICE"
	ReferencePurchaseReturn  ReferenceKind = "PURCHASE_RETURN"
	ReferenceSalesReturn     ReferenceKind = "SALES_RETURN"
	ReferenceExpiryScan      ReferenceKind = "EXPIRY_SCAN"
	ReferenceDamageReport    ReferenceKind = "DAMAGE_REPORT"
	ReferenceStockAdjustment ReferenceKind = "STOCK_ADJUSTMENT"
)

// IsValid returns true if the reference kind is known
func (r ReferenceKind) IsValid() bool {
	switch r {
	case ReferencePurchaseInvoice, ReferenceSaleInvoice, ReferencePurchaseReturn,
		ReferenceSalesReturn, ReferenceExpiryScan, ReferenceDamageReport, ReferenceStockAdjustment:
		return true
	}
	return false
}

// RecordRequest describes a movement to be appended to the ledger
type RecordRequest struct {
	MedicineID    int64
	BatchID       *int64
	Kind          MovementKind
	Quantity      int64 // signed; + adds stock, - removes it
	ReferenceKind ReferenceKind
	ReferenceID   int64
	SourceLineID  *int64
	Reversal      bool
	Notes         string
}

// Validate checks the request shape and the sign rule of its kind
func (r RecordRequest) Validate() error {
	if r.MedicineID <= 0 {
		return shared.NewDomainError("INVALID_MEDICINE", "Medicine ID must be positive")
	}
	if !r.Kind.IsValid() {
		return shared.NewDomainError("INVALID_MOVEMENT_KIND", fmt.Sprintf("Unknown movement kind: %s", r.Kind))
	}
	if !r.ReferenceKind.IsValid() {
		return shared.NewDomainError("INVALID_REFERENCE_KIND", fmt.Sprintf("Unknown reference kind: %s", r.ReferenceKind))
	}
	if r.Quantity == 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Movement quantity cannot be zero")
	}
	if r.Reversal && !r.Kind.IsReversible() {
		return shared.NewDomainError("IRREVERSIBLE_MOVEMENT", fmt.Sprintf("%s movements cannot be reversed", r.Kind))
	}
	if r.BatchID == nil && r.Kind != MovementKindAdjustment {
		return shared.NewDomainError("BATCH_REQUIRED", fmt.Sprintf("%s movements must reference a batch", r.Kind))
	}

	dir := r.Kind.Direction()
	if dir != 0 {
		if r.Reversal {
			dir = -dir
		}
		if (dir > 0) != (r.Quantity > 0) {
			return shared.NewDomainError("INVALID_MOVEMENT_SIGN",
				fmt.Sprintf("%s movement quantity has the wrong sign: %d", r.Kind, r.Quantity))
		}
	}
	return nil
}

// StockMovement is one immutable row of the stock ledger.
// Corrections are new movements with Reversal set, never edits.
type StockMovement struct {
	shared.BaseEntity
	MedicineID    int64
	BatchID       *int64
	Kind          MovementKind
	Quantity      int64
	ReferenceKind ReferenceKind
	ReferenceID   int64
	SourceLineID  *int64
	Reversal      bool
	BalanceAfter  int64 // batch remainder after this movement, 0 for batchless rows
	Notes         string
}

// NewStockMovement creates a validated movement from a request
func NewStockMovement(req RecordRequest, now time.Time) (*StockMovement, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &StockMovement{
		BaseEntity:    shared.NewBaseEntity(now),
		MedicineID:    req.MedicineID,
		BatchID:       req.BatchID,
		Kind:          req.Kind,
		Quantity:      req.Quantity,
		ReferenceKind: req.ReferenceKind,
		ReferenceID:   req.ReferenceID,
		SourceLineID:  req.SourceLineID,
		Reversal:      req.Reversal,
		Notes:         req.Notes,
	}, nil
}

// ReversalRequest returns the compensating request for this movement: same kind,
// same batch and reference, opposite sign
func (m *StockMovement) ReversalRequest(notes string) RecordRequest {
	return RecordRequest{
		MedicineID:    m.MedicineID,
		BatchID:       m.BatchID,
		Kind:          m.Kind,
		Quantity:      -m.Quantity,
		ReferenceKind: m.ReferenceKind,
		ReferenceID:   m.ReferenceID,
		SourceLineID:  m.SourceLineID,
		Reversal:      !m.Reversal,
		Notes:         notes,
	}
}

// IsInbound returns true if the movement adds stock
func (m *StockMovement) IsInbound() bool {
	return m.Quantity > 0
}
