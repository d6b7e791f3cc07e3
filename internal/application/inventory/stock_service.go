package inventory

import (
	"context"
	"fmt"
	"time"

	appalert "github.com/pharmacy/backend/internal/application/alert"
	"github.com/pharmacy/backend/internal/application/uow"
	"github.com/pharmacy/backend/internal/application/validation"
	"github.com/pharmacy/backend/internal/domain/alert"
	"github.com/pharmacy/backend/internal/domain/finance"
	"github.com/pharmacy/backend/internal/domain/inventory"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/pharmacy/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AdjustStockCommand corrects a batch remainder after a physical count
type AdjustStockCommand struct {
	BatchID  int64  `json:"batch_id" validate:"required,gt=0"`
	Quantity int64  `json:"quantity" validate:"required"` // signed
	Reason   string `json:"reason" validate:"required,max=255"`
}

// WriteOffCommand writes off damaged units of a batch
type WriteOffCommand struct {
	BatchID  int64  `json:"batch_id" validate:"required,gt=0"`
	Quantity int64  `json:"quantity" validate:"required,gt=0"`
	Reason   string `json:"reason" validate:"required,max=255"`
}

// StockService exposes stock queries and manual stock operations
type StockService struct {
	scope      uow.TransactionScope
	dispatcher *appalert.Dispatcher
	publisher  shared.EventPublisher
	clock      shared.Clock
	accountID  int64
	logger     *zap.Logger
}

// NewStockService creates a new StockService. Write-off losses are posted to accountID.
func NewStockService(
	scope uow.TransactionScope,
	dispatcher *appalert.Dispatcher,
	publisher shared.EventPublisher,
	clock shared.Clock,
	accountID int64,
	logger *zap.Logger,
) *StockService {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return &StockService{
		scope:      scope,
		dispatcher: dispatcher,
		publisher:  publisher,
		clock:      clock,
		accountID:  accountID,
		logger:     logger,
	}
}

func (s *StockService) ledger(repos uow.Repositories) *inventory.StockLedger {
	return inventory.NewStockLedger(repos.Batches(), repos.Movements(), s.clock)
}

// StockCard returns the movement history of a medicine, or of one of its batches
func (s *StockService) StockCard(ctx context.Context, medicineID int64, batchID *int64) (*inventory.StockCard, error) {
	var card *inventory.StockCard
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		var err error
		card, err = s.ledger(repos).Card(ctx, medicineID, batchID)
		return err
	})
	return card, err
}

// AvailableQuantity returns the sellable stock of a medicine today
func (s *StockService) AvailableQuantity(ctx context.Context, medicineID int64) (int64, error) {
	var available int64
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		batches, err := repos.Batches().FindByMedicine(ctx, medicineID)
		if err != nil {
			return err
		}
		available = inventory.AvailableQuantity(medicineID, s.clock.Now(), batches)
		return nil
	})
	return available, err
}

// VerifyBatch checks a batch remainder against its movements
func (s *StockService) VerifyBatch(ctx context.Context, batchID int64) error {
	return s.scope.Execute(ctx, func(repos uow.Repositories) error {
		return s.ledger(repos).VerifyBatch(ctx, batchID)
	})
}

// AdjustStock records an Adjustment movement on a batch
func (s *StockService) AdjustStock(ctx context.Context, cmd AdjustStockCommand) (*inventory.StockMovement, error) {
	if err := validation.Struct(cmd); err != nil {
		return nil, err
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "stock", "adjust",
		telemetry.SpanAttrBatchID, cmd.BatchID, telemetry.SpanAttrQuantity, cmd.Quantity)
	defer span.End()

	var movement *inventory.StockMovement
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		batch, err := repos.Batches().FindByIDForUpdate(ctx, cmd.BatchID)
		if err != nil {
			return err
		}
		if batch.Status.IsWrittenOff() {
			return shared.NewKindError(shared.KindInvalidTransition, "BATCH_WRITTEN_OFF",
				fmt.Sprintf("Batch %s is %s and cannot be adjusted", batch.BatchNumber, batch.Status))
		}
		movement, err = s.ledger(repos).Apply(ctx, batch, inventory.RecordRequest{
			MedicineID:    batch.MedicineID,
			Kind:          inventory.MovementKindAdjustment,
			Quantity:      cmd.Quantity,
			ReferenceKind: inventory.ReferenceStockAdjustment,
			ReferenceID:   batch.ID,
			Notes:         cmd.Reason,
		})
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Stock adjusted",
		zap.Int64("batch_id", cmd.BatchID),
		zap.Int64("quantity", cmd.Quantity),
		zap.Int64("balance_after", movement.BalanceAfter),
		zap.String("reason", cmd.Reason),
	)
	return movement, nil
}

// WriteOffDamaged removes damaged units, posts their cost as an expense and raises a
// Damaged alert. A batch written down to zero becomes Damaged.
func (s *StockService) WriteOffDamaged(ctx context.Context, cmd WriteOffCommand) (*inventory.MedicineBatch, error) {
	if err := validation.Struct(cmd); err != nil {
		return nil, err
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "stock", "write_off",
		telemetry.SpanAttrBatchID, cmd.BatchID, telemetry.SpanAttrQuantity, cmd.Quantity)
	defer span.End()

	var (
		batch  *inventory.MedicineBatch
		raised *alert.Alert
		event  *inventory.BatchWrittenOffEvent
	)
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		raised = nil
		var err error
		batch, err = repos.Batches().FindByIDForUpdate(ctx, cmd.BatchID)
		if err != nil {
			return err
		}
		if batch.Status.IsWrittenOff() {
			return shared.NewKindError(shared.KindInvalidTransition, "BATCH_WRITTEN_OFF",
				fmt.Sprintf("Batch %s is already %s", batch.BatchNumber, batch.Status))
		}

		now := s.clock.Now()
		if _, err := s.ledger(repos).Apply(ctx, batch, inventory.RecordRequest{
			MedicineID:    batch.MedicineID,
			Kind:          inventory.MovementKindDamage,
			Quantity:      -cmd.Quantity,
			ReferenceKind: inventory.ReferenceDamageReport,
			ReferenceID:   batch.ID,
			Notes:         cmd.Reason,
		}); err != nil {
			return err
		}

		loss := batch.UnitCost.Mul(decimal.NewFromInt(cmd.Quantity))
		if loss.IsPositive() {
			id := batch.ID
			ledger := finance.NewLedger(repos.Accounts(), repos.Transactions(), s.clock)
			if _, err := ledger.Post(ctx, s.accountID, finance.PostRequest{
				Type:        finance.TransactionTypeExpense,
				Amount:      loss.Neg(),
				Description: fmt.Sprintf("Damaged stock from batch %s: %s", batch.BatchNumber, cmd.Reason),
				BatchID:     &id,
			}); err != nil {
				return err
			}
		}

		if batch.RemainingQuantity == 0 {
			if err := batch.MarkDamaged(now); err != nil {
				return err
			}
			if err := repos.Batches().Save(ctx, batch); err != nil {
				return err
			}
		}

		subject := appalert.SubjectOf(batch)
		subject.Remaining = cmd.Quantity
		a, err := alert.NewAlert(alert.TypeDamaged, shared.SeverityWarning, subject, now, now)
		if err != nil {
			return err
		}
		ok, err := appalert.Raise(ctx, repos, a)
		if err != nil {
			return err
		}
		if ok {
			raised = a
		}
		event = inventory.NewBatchWrittenOffEvent(batch, cmd.Quantity, loss, cmd.Reason, now)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Damaged stock written off",
		zap.Int64("batch_id", batch.ID),
		zap.Int64("quantity", cmd.Quantity),
		zap.String("loss", event.Loss.StringFixed(2)),
		zap.String("status", batch.Status.String()),
	)
	if raised != nil {
		s.dispatcher.Dispatch(ctx, raised)
	}
	s.publish(ctx, event)
	return batch, nil
}

// Quarantine withdraws a batch from sale
func (s *StockService) Quarantine(ctx context.Context, batchID int64) (*inventory.MedicineBatch, error) {
	return s.changeStatus(ctx, batchID, (*inventory.MedicineBatch).Quarantine)
}

// Release returns a quarantined batch to sale
func (s *StockService) Release(ctx context.Context, batchID int64) (*inventory.MedicineBatch, error) {
	return s.changeStatus(ctx, batchID, (*inventory.MedicineBatch).Release)
}

func (s *StockService) changeStatus(ctx context.Context, batchID int64, apply func(*inventory.MedicineBatch, time.Time) error) (*inventory.MedicineBatch, error) {
	var (
		batch *inventory.MedicineBatch
		event *inventory.BatchStatusChangedEvent
	)
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		var err error
		batch, err = repos.Batches().FindByIDForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		from := batch.Status
		now := s.clock.Now()
		if err := apply(batch, now); err != nil {
			return err
		}
		event = inventory.NewBatchStatusChangedEvent(batch, from, now)
		return repos.Batches().Save(ctx, batch)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Batch status changed",
		zap.Int64("batch_id", batch.ID),
		zap.String("from", event.From.String()),
		zap.String("to", event.To.String()),
	)
	s.publish(ctx, event)
	return batch, nil
}

func (s *StockService) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish stock events", zap.Error(err))
	}
}
