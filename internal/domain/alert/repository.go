package alert

import (
	"context"

	"github.com/pharmacy/backend/internal/domain/shared"
)

// AlertRepository defines the interface for alert persistence
type AlertRepository interface {
	// FindByID finds an alert by its ID
	FindByID(ctx context.Context, id int64) (*Alert, error)

	// ExistsForBatch reports whether an alert of the type was ever raised for the batch,
	// whatever its status
	ExistsForBatch(ctx context.Context, batchID int64, typ Type) (bool, error)

	// FindByStatus returns alerts with the given status, newest first
	FindByStatus(ctx context.Context, status Status, filter shared.Filter) ([]Alert, int64, error)

	// FindByBatch returns all alerts of a batch ordered by ID
	FindByBatch(ctx context.Context, batchID int64) ([]Alert, error)

	// Create inserts an alert and assigns its ID. A duplicate (batch, type) returns
	// ErrDuplicateAlert.
	Create(ctx context.Context, a *Alert) error

	// Save updates an alert's status
	Save(ctx context.Context, a *Alert) error
}

// ErrDuplicateAlert is returned when an alert of the same type already exists for the batch
var ErrDuplicateAlert = shared.NewKindError(shared.KindValidation, "DUPLICATE_ALERT", "Alert already raised for this batch")
