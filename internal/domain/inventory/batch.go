package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// BatchStatus is the lifecycle status of a medicine batch
type BatchStatus string

const (
	BatchStatusActive      BatchStatus = "ACTIVE"
	BatchStatusSoldOut     BatchStatus = "SOLD_OUT"
	BatchStatusExpired     BatchStatus = "EXPIRED"
	BatchStatusDamaged     BatchStatus = "DAMAGED"
	BatchStatusReserved    BatchStatus = "RESERVED"
	BatchStatusQuarantined BatchStatus = "QUARANTINED"
)

// IsValid returns true if the status is known
func (s BatchStatus) IsValid() bool {
	switch s {
	case BatchStatusActive, BatchStatusSoldOut, BatchStatusExpired,
		BatchStatusDamaged, BatchStatusReserved, BatchStatusQuarantined:
		return true
	}
	return false
}

// String returns the string representation of BatchStatus
func (s BatchStatus) String() string {
	return string(s)
}

// IsWrittenOff returns true for terminal loss statuses. Stock in these batches has already
// been posted as a financial loss and is never restored.
func (s BatchStatus) IsWrittenOff() bool {
	return s == BatchStatusExpired || s == BatchStatusDamaged
}

// MedicineBatch is a received lot of a medicine with its own expiry date and remainder.
// RemainingQuantity only changes through StockMovements applied by the Ledger.
type MedicineBatch struct {
	shared.BaseAggregateRoot
	MedicineID        int64
	BatchNumber       string
	TotalQuantity     int64
	RemainingQuantity int64
	SoldQuantity      int64 // units currently in customers' hands
	ExpiryDate        time.Time
	UnitCost          decimal.Decimal
	SalePrice         decimal.Decimal
	Status            BatchStatus
	SourceDocumentID  *int64
}

// NewMedicineBatch creates an Active batch with nothing on hand yet.
// The receiving Purchase movement credits RemainingQuantity.
func NewMedicineBatch(
	medicineID int64,
	batchNumber string,
	totalQuantity int64,
	expiryDate time.Time,
	unitCost, salePrice decimal.Decimal,
	now time.Time,
) (*MedicineBatch, error) {
	if medicineID <= 0 {
		return nil, shared.NewDomainError("INVALID_MEDICINE", "Medicine ID must be positive")
	}
	batchNumber = strings.TrimSpace(batchNumber)
	if batchNumber == "" {
		return nil, shared.NewDomainError("INVALID_BATCH_NUMBER", "Batch number cannot be empty")
	}
	if len(batchNumber) > 64 {
		return nil, shared.NewDomainError("INVALID_BATCH_NUMBER", "Batch number cannot exceed 64 characters")
	}
	if totalQuantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Received quantity must be positive")
	}
	if expiryDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_EXPIRY_DATE", "Expiry date is required")
	}
	if unitCost.IsNegative() {
		return nil, shared.NewDomainError("INVALID_COST", "Unit cost cannot be negative")
	}
	if salePrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Sale price cannot be negative")
	}

	return &MedicineBatch{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(now),
		MedicineID:        medicineID,
		BatchNumber:       batchNumber,
		TotalQuantity:     totalQuantity,
		ExpiryDate:        shared.Day(expiryDate),
		UnitCost:          unitCost,
		SalePrice:         salePrice,
		Status:            BatchStatusActive,
	}, nil
}

// IsExpiredOn returns true if the batch's expiry day is today or earlier
func (b *MedicineBatch) IsExpiredOn(today time.Time) bool {
	return !shared.Day(b.ExpiryDate).After(shared.Day(today))
}

// DaysUntilExpiry returns whole days from today to the expiry day
func (b *MedicineBatch) DaysUntilExpiry(today time.Time) int {
	return shared.DaysBetween(today, b.ExpiryDate)
}

// IsSellableOn returns true if FEFO may allocate from this batch today
func (b *MedicineBatch) IsSellableOn(today time.Time) bool {
	return b.Status == BatchStatusActive && b.RemainingQuantity > 0 && !b.IsExpiredOn(today)
}

// HasSoldUnits returns true if any unit of this batch is currently sold
func (b *MedicineBatch) HasSoldUnits() bool {
	return b.SoldQuantity > 0
}

// StockValue returns the cost value of the remaining quantity
func (b *MedicineBatch) StockValue() decimal.Decimal {
	return b.UnitCost.Mul(decimal.NewFromInt(b.RemainingQuantity))
}

// ApplyMovement applies a signed quantity delta of the given kind.
// It is called by the Ledger only, in the same transaction that inserts the movement.
func (b *MedicineBatch) ApplyMovement(kind MovementKind, quantity int64, now time.Time) error {
	if quantity == 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Movement quantity cannot be zero")
	}
	if b.Status.IsWrittenOff() && quantity > 0 {
		return shared.NewKindError(shared.KindCancellationConflict, "BATCH_WRITTEN_OFF",
			fmt.Sprintf("Batch %s is %s and cannot receive stock", b.BatchNumber, b.Status))
	}

	remaining := b.RemainingQuantity + quantity
	if remaining < 0 {
		return shared.NewKindError(shared.KindInsufficientStock, "BATCH_UNDERFLOW",
			fmt.Sprintf("Batch %s has %d units, cannot remove %d", b.BatchNumber, b.RemainingQuantity, -quantity))
	}

	sold := b.SoldQuantity
	switch kind {
	case MovementKindSale, MovementKindSalesReturn:
		sold -= quantity
	}
	if sold < 0 {
		return shared.NewKindError(shared.KindCancellationConflict, "SOLD_UNDERFLOW",
			fmt.Sprintf("Batch %s has only %d sold units to restore", b.BatchNumber, b.SoldQuantity))
	}

	b.RemainingQuantity = remaining
	b.SoldQuantity = sold

	switch {
	case remaining == 0 && b.Status == BatchStatusActive:
		b.Status = BatchStatusSoldOut
	case remaining > 0 && b.Status == BatchStatusSoldOut:
		b.Status = BatchStatusActive
	}

	b.Touch(now)
	b.IncrementVersion()
	return nil
}

// MarkExpired flips the batch to Expired. The remainder must already be zeroed by an
// Expiry movement.
func (b *MedicineBatch) MarkExpired(now time.Time) error {
	if b.Status == BatchStatusExpired {
		return shared.NewKindError(shared.KindInvalidTransition, "ALREADY_EXPIRED", "Batch is already expired")
	}
	if b.RemainingQuantity != 0 {
		return shared.NewKindError(shared.KindInvalidTransition, "NOT_ZEROED", "Batch must be zeroed before it is marked expired")
	}
	b.Status = BatchStatusExpired
	b.Touch(now)
	b.IncrementVersion()
	return nil
}

// MarkDamaged flips a zeroed batch to Damaged
func (b *MedicineBatch) MarkDamaged(now time.Time) error {
	if b.Status.IsWrittenOff() {
		return shared.NewKindError(shared.KindInvalidTransition, "ALREADY_WRITTEN_OFF", "Batch is already written off")
	}
	if b.RemainingQuantity != 0 {
		return shared.NewKindError(shared.KindInvalidTransition, "NOT_ZEROED", "Batch must be zeroed before it is marked damaged")
	}
	b.Status = BatchStatusDamaged
	b.Touch(now)
	b.IncrementVersion()
	return nil
}

// Quarantine withdraws an Active batch from sale
func (b *MedicineBatch) Quarantine(now time.Time) error {
	if b.Status != BatchStatusActive {
		return shared.NewKindError(shared.KindInvalidTransition, "INVALID_STATE",
			fmt.Sprintf("Only active batches can be quarantined, batch is %s", b.Status))
	}
	b.Status = BatchStatusQuarantined
	b.Touch(now)
	b.IncrementVersion()
	return nil
}

// Release returns a quarantined batch to sale
func (b *MedicineBatch) Release(now time.Time) error {
	if b.Status != BatchStatusQuarantined {
		return shared.NewKindError(shared.KindInvalidTransition, "INVALID_STATE",
			fmt.Sprintf("Only quarantined batches can be released, batch is %s", b.Status))
	}
	if b.RemainingQuantity == 0 {
		b.Status = BatchStatusSoldOut
	} else {
		b.Status = BatchStatusActive
	}
	b.Touch(now)
	b.IncrementVersion()
	return nil
}
