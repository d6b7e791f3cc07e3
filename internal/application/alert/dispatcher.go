package alert

import (
	"context"
	"errors"

	"github.com/pharmacy/backend/internal/application/uow"
	"github.com/pharmacy/backend/internal/domain/alert"
	"github.com/pharmacy/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Raise persists an alert unless one of the same type was ever raised for the batch.
// It returns false when the alert was a duplicate.
func Raise(ctx context.Context, repos uow.Repositories, a *alert.Alert) (bool, error) {
	exists, err := repos.Alerts().ExistsForBatch(ctx, a.BatchID, a.Type)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if err := repos.Alerts().Create(ctx, a); err != nil {
		if errors.Is(err, alert.ErrDuplicateAlert) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Dispatcher hands committed alerts to the notifier. Delivery failures are logged
// and never returned.
type Dispatcher struct {
	notifier shared.Notifier
	logger   *zap.Logger
}

// NewDispatcher creates a Dispatcher
func NewDispatcher(notifier shared.Notifier, logger *zap.Logger) *Dispatcher {
	if notifier == nil {
		notifier = shared.NopNotifier{}
	}
	return &Dispatcher{notifier: notifier, logger: logger}
}

// Dispatch notifies every alert. Call only after the creating transaction committed.
func (d *Dispatcher) Dispatch(ctx context.Context, alerts ...*alert.Alert) {
	for _, a := range alerts {
		if a == nil {
			continue
		}
		if err := d.notifier.Notify(ctx, a.Title, a.MessageEN, a.Severity); err != nil {
			d.logger.Warn("Failed to dispatch alert notification",
				zap.Int64("alert_id", a.ID),
				zap.Int64("batch_id", a.BatchID),
				zap.String("type", a.Type.String()),
				zap.Error(err),
			)
		}
	}
}
