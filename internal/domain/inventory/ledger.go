package inventory

import (
	"context"
	"fmt"

	"github.com/pharmacy/backend/internal/domain/shared"
)

// StockLedger is the only writer of batch remainders. Every change is one appended
// StockMovement plus the matching delta on the batch, both inside the caller's transaction.
type StockLedger struct {
	batches   BatchRepository
	movements MovementRepository
	clock     shared.Clock
}

// NewStockLedger creates a ledger over transaction-bound repositories
func NewStockLedger(batches BatchRepository, movements MovementRepository, clock shared.Clock) *StockLedger {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return &StockLedger{
		batches:   batches,
		movements: movements,
		clock:     clock,
	}
}

// Record locks the referenced batch, applies the movement and appends it.
// Returns the new movement ID.
func (l *StockLedger) Record(ctx context.Context, req RecordRequest) (int64, error) {
	if req.BatchID == nil {
		m, err := l.append(ctx, req, nil)
		if err != nil {
			return 0, err
		}
		return m.ID, nil
	}

	batch, err := l.batches.FindByIDForUpdate(ctx, *req.BatchID)
	if err != nil {
		return 0, err
	}
	m, err := l.Apply(ctx, batch, req)
	if err != nil {
		return 0, err
	}
	return m.ID, nil
}

// Apply records a movement against a batch the caller already holds locked.
// The batch is mutated in place so the caller sees its new remainder.
func (l *StockLedger) Apply(ctx context.Context, batch *MedicineBatch, req RecordRequest) (*StockMovement, error) {
	if batch == nil {
		return nil, shared.NewDomainError("INVALID_BATCH", "Batch cannot be nil")
	}
	if req.BatchID == nil {
		id := batch.ID
		req.BatchID = &id
	}
	if *req.BatchID != batch.ID {
		return nil, shared.NewDomainError("BATCH_MISMATCH",
			fmt.Sprintf("Movement targets batch %d but batch %d was supplied", *req.BatchID, batch.ID))
	}
	if req.MedicineID != batch.MedicineID {
		return nil, shared.NewDomainError("MEDICINE_MISMATCH",
			fmt.Sprintf("Batch %d belongs to medicine %d, not %d", batch.ID, batch.MedicineID, req.MedicineID))
	}
	return l.append(ctx, req, batch)
}

func (l *StockLedger) append(ctx context.Context, req RecordRequest, batch *MedicineBatch) (*StockMovement, error) {
	now := l.clock.Now()
	m, err := NewStockMovement(req, now)
	if err != nil {
		return nil, err
	}

	if batch != nil {
		if err := batch.ApplyMovement(m.Kind, m.Quantity, now); err != nil {
			return nil, err
		}
		m.BalanceAfter = batch.RemainingQuantity
		if err := l.batches.Save(ctx, batch); err != nil {
			return nil, err
		}
	}

	if err := l.movements.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Reverse records the compensating movement for each given movement, in reverse order.
// The batches map must hold every referenced batch, already locked.
func (l *StockLedger) Reverse(ctx context.Context, movements []StockMovement, batches map[int64]*MedicineBatch, notes string) error {
	for i := len(movements) - 1; i >= 0; i-- {
		m := movements[i]
		req := m.ReversalRequest(notes)
		if m.BatchID == nil {
			if _, err := l.append(ctx, req, nil); err != nil {
				return err
			}
			continue
		}
		batch, ok := batches[*m.BatchID]
		if !ok {
			return shared.NewDomainError("BATCH_NOT_LOCKED", fmt.Sprintf("Batch %d was not locked for reversal", *m.BatchID))
		}
		if _, err := l.append(ctx, req, batch); err != nil {
			return err
		}
	}
	return nil
}

// Card builds the running-balance stock card of a medicine, or of one batch
func (l *StockLedger) Card(ctx context.Context, medicineID int64, batchID *int64) (*StockCard, error) {
	movements, err := l.movements.FindForCard(ctx, medicineID, batchID)
	if err != nil {
		return nil, err
	}
	return BuildStockCard(medicineID, batchID, movements), nil
}

// VerifyBatch checks that a batch remainder equals the signed sum of its movements
func (l *StockLedger) VerifyBatch(ctx context.Context, batchID int64) error {
	batch, err := l.batches.FindByID(ctx, batchID)
	if err != nil {
		return err
	}
	sum, err := l.movements.SumByBatch(ctx, batchID)
	if err != nil {
		return err
	}
	if sum != batch.RemainingQuantity {
		return shared.NewKindError(shared.KindReconciliation, "BATCH_DRIFT",
			fmt.Sprintf("Batch %d remaining %d but movements sum to %d", batchID, batch.RemainingQuantity, sum))
	}
	return nil
}
