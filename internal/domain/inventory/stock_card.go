package inventory

import (
	"sort"
)

// StockCardEntry is one movement with the running balance after it
type StockCardEntry struct {
	Movement StockMovement
	Balance  int64
}

// StockCard is the chronological movement history of a medicine or batch
type StockCard struct {
	MedicineID int64
	BatchID    *int64
	Entries    []StockCardEntry
	Balance    int64
}

// BuildStockCard folds movements in (created_at, id) order into running balances
func BuildStockCard(medicineID int64, batchID *int64, movements []StockMovement) *StockCard {
	ordered := make([]StockMovement, len(movements))
	copy(ordered, movements)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
		}
		return ordered[i].ID < ordered[j].ID
	})

	card := &StockCard{
		MedicineID: medicineID,
		BatchID:    batchID,
		Entries:    make([]StockCardEntry, 0, len(ordered)),
	}
	for _, m := range ordered {
		card.Balance += m.Quantity
		card.Entries = append(card.Entries, StockCardEntry{Movement: m, Balance: card.Balance})
	}
	return card
}

// Inbound returns the total of positive movements
func (c *StockCard) Inbound() int64 {
	var total int64
	for _, e := range c.Entries {
		if e.Movement.Quantity > 0 {
			total += e.Movement.Quantity
		}
	}
	return total
}

// Outbound returns the absolute total of negative movements
func (c *StockCard) Outbound() int64 {
	var total int64
	for _, e := range c.Entries {
		if e.Movement.Quantity < 0 {
			total -= e.Movement.Quantity
		}
	}
	return total
}
