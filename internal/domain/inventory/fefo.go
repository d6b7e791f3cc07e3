package inventory

import (
	"fmt"
	"sort"
	"time"

	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// BatchAllocation is the portion of a requested quantity taken from one batch
type BatchAllocation struct {
	BatchID          int64
	BatchNumber      string
	Quantity         int64
	ExpiryDate       time.Time
	UnitCost         decimal.Decimal
	RemainingInBatch int64 // remainder once this allocation is applied
}

// Cost returns Quantity * UnitCost
func (a BatchAllocation) Cost() decimal.Decimal {
	return a.UnitCost.Mul(decimal.NewFromInt(a.Quantity))
}

// AllocationPlan is the full FEFO split of one requested quantity
type AllocationPlan struct {
	MedicineID  int64
	Requested   int64
	Allocations []BatchAllocation
}

// TotalAllocated returns the sum of all allocation quantities
func (p *AllocationPlan) TotalAllocated() int64 {
	var total int64
	for _, a := range p.Allocations {
		total += a.Quantity
	}
	return total
}

// TotalCost returns the cost of all allocated units
func (p *AllocationPlan) TotalCost() decimal.Decimal {
	total := decimal.Zero
	for _, a := range p.Allocations {
		total = total.Add(a.Cost())
	}
	return total
}

// Allocator splits an outbound quantity across batches
type Allocator interface {
	Allocate(medicineID, quantity int64, today time.Time, batches []*MedicineBatch) (*AllocationPlan, error)
}

// FEFOAllocator allocates from the earliest-expiring sellable batch first.
// Ties on expiry day are broken by the lower batch ID.
type FEFOAllocator struct{}

// NewFEFOAllocator creates a FEFO allocator
func NewFEFOAllocator() *FEFOAllocator {
	return &FEFOAllocator{}
}

// Allocate is pure: it reads the batches but never mutates them. Either the whole
// quantity is allocated or InsufficientStock is returned with no plan.
func (a *FEFOAllocator) Allocate(medicineID, quantity int64, today time.Time, batches []*MedicineBatch) (*AllocationPlan, error) {
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Requested quantity must be positive")
	}

	sellable := SellableBatches(medicineID, today, batches)
	var available int64
	for _, b := range sellable {
		available += b.RemainingQuantity
	}
	if available < quantity {
		return nil, shared.NewKindError(shared.KindInsufficientStock, "INSUFFICIENT_STOCK",
			fmt.Sprintf("Medicine %d: requested %d, sellable %d", medicineID, quantity, available))
	}

	plan := &AllocationPlan{
		MedicineID:  medicineID,
		Requested:   quantity,
		Allocations: make([]BatchAllocation, 0, len(sellable)),
	}
	left := quantity
	for _, b := range sellable {
		if left == 0 {
			break
		}
		take := min(left, b.RemainingQuantity)
		plan.Allocations = append(plan.Allocations, BatchAllocation{
			BatchID:          b.ID,
			BatchNumber:      b.BatchNumber,
			Quantity:         take,
			ExpiryDate:       b.ExpiryDate,
			UnitCost:         b.UnitCost,
			RemainingInBatch: b.RemainingQuantity - take,
		})
		left -= take
	}
	return plan, nil
}

// SellableBatches filters batches to the sellable ones of a medicine, in FEFO order
func SellableBatches(medicineID int64, today time.Time, batches []*MedicineBatch) []*MedicineBatch {
	result := make([]*MedicineBatch, 0, len(batches))
	for _, b := range batches {
		if b.MedicineID == medicineID && b.IsSellableOn(today) {
			result = append(result, b)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		di, dj := shared.Day(result[i].ExpiryDate), shared.Day(result[j].ExpiryDate)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// AvailableQuantity sums the sellable remainder of a medicine
func AvailableQuantity(medicineID int64, today time.Time, batches []*MedicineBatch) int64 {
	var total int64
	for _, b := range SellableBatches(medicineID, today, batches) {
		total += b.RemainingQuantity
	}
	return total
}
