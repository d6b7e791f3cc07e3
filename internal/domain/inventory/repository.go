package inventory

import (
	"context"
)

// BatchRepository defines the interface for medicine batch persistence.
// The ForUpdate variants take a row lock held until the surrounding transaction ends;
// they must be called inside a TransactionScope.
type BatchRepository interface {
	// FindByID finds a batch by its ID
	FindByID(ctx context.Context, id int64) (*MedicineBatch, error)

	// FindByIDForUpdate finds and locks a batch
	FindByIDForUpdate(ctx context.Context, id int64) (*MedicineBatch, error)

	// FindByIDsForUpdate locks several batches in ascending ID order
	FindByIDsForUpdate(ctx context.Context, ids []int64) ([]*MedicineBatch, error)

	// FindSellableCandidatesForUpdate locks the Active batches of a medicine that still
	// hold stock, in ascending ID order. Expiry filtering is left to the allocator.
	FindSellableCandidatesForUpdate(ctx context.Context, medicineID int64) ([]*MedicineBatch, error)

	// FindByMedicine finds all batches of a medicine
	FindByMedicine(ctx context.Context, medicineID int64) ([]*MedicineBatch, error)

	// FindByStatus finds all batches with the given status, ordered by ID
	FindByStatus(ctx context.Context, status BatchStatus) ([]*MedicineBatch, error)

	// FindBySourceDocument finds the batches created by a purchase document
	FindBySourceDocument(ctx context.Context, documentID int64) ([]*MedicineBatch, error)

	// Create inserts a new batch and assigns its ID
	Create(ctx context.Context, batch *MedicineBatch) error

	// Save updates an existing batch
	Save(ctx context.Context, batch *MedicineBatch) error
}

// MovementRepository defines the interface for stock movement persistence.
// Movements are append-only: there is no update or delete.
type MovementRepository interface {
	// Create inserts a movement and assigns its ID
	Create(ctx context.Context, movement *StockMovement) error

	// FindByReference returns the movements caused by one reference, ordered by ID
	FindByReference(ctx context.Context, refKind ReferenceKind, refID int64) ([]StockMovement, error)

	// FindForCard returns the movements of a medicine, or of one batch when batchID is set,
	// ordered by (created_at, id)
	FindForCard(ctx context.Context, medicineID int64, batchID *int64) ([]StockMovement, error)

	// SumByBatch returns the signed sum of all movements on a batch
	SumByBatch(ctx context.Context, batchID int64) (int64, error)
}
