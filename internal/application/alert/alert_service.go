package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/pharmacy/backend/internal/application/uow"
	"github.com/pharmacy/backend/internal/domain/alert"
	"github.com/pharmacy/backend/internal/domain/inventory"
	"github.com/pharmacy/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// AlertService manages alert handling by staff and on-demand low-stock alerts
type AlertService struct {
	scope      uow.TransactionScope
	dispatcher *Dispatcher
	clock      shared.Clock
	logger     *zap.Logger
}

// NewAlertService creates a new AlertService
func NewAlertService(scope uow.TransactionScope, dispatcher *Dispatcher, clock shared.Clock, logger *zap.Logger) *AlertService {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return &AlertService{scope: scope, dispatcher: dispatcher, clock: clock, logger: logger}
}

// RaiseLowStock raises a LowStock alert for a batch once. Returns nil, nil when one
// already exists.
func (s *AlertService) RaiseLowStock(ctx context.Context, batchID int64) (*alert.Alert, error) {
	var raised *alert.Alert
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		batch, err := repos.Batches().FindByID(ctx, batchID)
		if err != nil {
			return err
		}
		if batch.Status.IsWrittenOff() {
			return shared.NewKindError(shared.KindInvalidTransition, "BATCH_WRITTEN_OFF",
				fmt.Sprintf("Batch %s is %s", batch.BatchNumber, batch.Status))
		}
		now := s.clock.Now()
		a, err := alert.NewAlert(alert.TypeLowStock, shared.SeverityWarning, SubjectOf(batch), now, now)
		if err != nil {
			return err
		}
		ok, err := Raise(ctx, repos, a)
		if err != nil {
			return err
		}
		if ok {
			raised = a
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if raised != nil {
		s.dispatcher.Dispatch(ctx, raised)
	}
	return raised, nil
}

// MarkRead marks an alert as read
func (s *AlertService) MarkRead(ctx context.Context, id int64) error {
	return s.transition(ctx, id, (*alert.Alert).MarkRead)
}

// Dismiss closes an alert without action
func (s *AlertService) Dismiss(ctx context.Context, id int64) error {
	return s.transition(ctx, id, (*alert.Alert).Dismiss)
}

// Resolve closes an alert as handled
func (s *AlertService) Resolve(ctx context.Context, id int64) error {
	return s.transition(ctx, id, (*alert.Alert).Resolve)
}

func (s *AlertService) transition(ctx context.Context, id int64, apply func(*alert.Alert, time.Time) error) error {
	return s.scope.Execute(ctx, func(repos uow.Repositories) error {
		a, err := repos.Alerts().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := apply(a, s.clock.Now()); err != nil {
			return err
		}
		return repos.Alerts().Save(ctx, a)
	})
}

// ListPending returns pending alerts, newest first, with the total count
func (s *AlertService) ListPending(ctx context.Context, filter shared.Filter) ([]alert.Alert, int64, error) {
	var (
		alerts []alert.Alert
		total  int64
	)
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		var err error
		alerts, total, err = repos.Alerts().FindByStatus(ctx, alert.StatusPending, filter)
		return err
	})
	return alerts, total, err
}

// SubjectOf describes a batch for alert rendering
func SubjectOf(b *inventory.MedicineBatch) alert.Subject {
	return alert.Subject{
		BatchID:     b.ID,
		MedicineID:  b.MedicineID,
		BatchNumber: b.BatchNumber,
		ExpiryDate:  b.ExpiryDate,
		Remaining:   b.RemainingQuantity,
	}
}
