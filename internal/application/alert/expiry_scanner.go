package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pharmacy/backend/internal/application/uow"
	"github.com/pharmacy/backend/internal/domain/alert"
	"github.com/pharmacy/backend/internal/domain/finance"
	"github.com/pharmacy/backend/internal/domain/inventory"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/pharmacy/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultNearExpiryWindowDays is how far ahead near-expiry alerts look
const DefaultNearExpiryWindowDays = 30

// ScannerConfig configures the expiry scanner
type ScannerConfig struct {
	AccountID            int64 // account that absorbs expiry losses
	NearExpiryWindowDays int
}

// ScanStats summarizes one scan cycle
type ScanStats struct {
	RunID        uuid.UUID       `json:"run_id"`
	Scanned      int             `json:"scanned"`
	Expired      int             `json:"expired"`
	AlertsRaised int             `json:"alerts_raised"`
	Skipped      int             `json:"skipped"`
	Failed       int             `json:"failed"`
	Loss         decimal.Decimal `json:"loss"`
	StartedAt    time.Time       `json:"started_at"`
	FinishedAt   time.Time       `json:"finished_at"`
}

// ExpiryScanner writes off expired batches and raises near-expiry alerts.
// Each expired batch is handled in its own transaction; a failure on one batch is
// logged and counted and the cycle moves on.
type ExpiryScanner struct {
	scope      uow.TransactionScope
	dispatcher *Dispatcher
	publisher  shared.EventPublisher
	clock      shared.Clock
	config     ScannerConfig
	logger     *zap.Logger
}

// NewExpiryScanner creates a new ExpiryScanner
func NewExpiryScanner(
	scope uow.TransactionScope,
	dispatcher *Dispatcher,
	publisher shared.EventPublisher,
	clock shared.Clock,
	config ScannerConfig,
	logger *zap.Logger,
) *ExpiryScanner {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	if config.NearExpiryWindowDays <= 0 {
		config.NearExpiryWindowDays = DefaultNearExpiryWindowDays
	}
	return &ExpiryScanner{
		scope:      scope,
		dispatcher: dispatcher,
		publisher:  publisher,
		clock:      clock,
		config:     config,
		logger:     logger,
	}
}

// Scan runs one cycle over all Active batches
func (s *ExpiryScanner) Scan(ctx context.Context) (*ScanStats, error) {
	stats := &ScanStats{
		RunID:     uuid.New(),
		Loss:      decimal.Zero,
		StartedAt: s.clock.Now(),
	}
	ctx, span := telemetry.StartSpan(ctx, "expiry_scan.run", "run_id", stats.RunID.String())
	defer span.End()

	var batches []*inventory.MedicineBatch
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		var err error
		batches, err = repos.Batches().FindByStatus(ctx, inventory.BatchStatusActive)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Error("Failed to load active batches", zap.Error(err))
		return nil, fmt.Errorf("load active batches: %w", err)
	}

	today := shared.Day(stats.StartedAt)
	stats.Scanned = len(batches)

	for _, b := range batches {
		if err := ctx.Err(); err != nil {
			stats.FinishedAt = s.clock.Now()
			return stats, err
		}

		if b.IsExpiredOn(today) {
			s.handleExpired(ctx, b.ID, today, stats)
			continue
		}

		days := b.DaysUntilExpiry(today)
		if days <= s.config.NearExpiryWindowDays {
			s.handleNearExpiry(ctx, b, today, days, stats)
		}
	}

	stats.FinishedAt = s.clock.Now()
	telemetry.SetAttributes(span, "expired", stats.Expired, "alerts_raised", stats.AlertsRaised, "failed", stats.Failed)
	s.logger.Info("Expiry scan completed",
		zap.String("run_id", stats.RunID.String()),
		zap.Int("scanned", stats.Scanned),
		zap.Int("expired", stats.Expired),
		zap.Int("alerts_raised", stats.AlertsRaised),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed),
		zap.String("loss", stats.Loss.StringFixed(2)),
	)
	return stats, nil
}

func (s *ExpiryScanner) handleExpired(ctx context.Context, batchID int64, today time.Time, stats *ScanStats) {
	var (
		raised  *alert.Alert
		event   *inventory.BatchExpiredEvent
		skipped bool
	)
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		raised, event, skipped = nil, nil, false

		batch, err := repos.Batches().FindByIDForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		if batch.Status != inventory.BatchStatusActive || batch.RemainingQuantity == 0 {
			skipped = true
			return nil
		}

		now := s.clock.Now()
		quantity := batch.RemainingQuantity
		loss := batch.StockValue()
		subject := SubjectOf(batch)

		if loss.IsPositive() {
			ledger := finance.NewLedger(repos.Accounts(), repos.Transactions(), s.clock)
			id := batch.ID
			if _, err := ledger.Post(ctx, s.config.AccountID, finance.PostRequest{
				Type:        finance.TransactionTypeExpense,
				Amount:      loss.Neg(),
				Description: fmt.Sprintf("Expired batch %s written off", batch.BatchNumber),
				BatchID:     &id,
			}); err != nil {
				return err
			}
		}

		stock := inventory.NewStockLedger(repos.Batches(), repos.Movements(), s.clock)
		if _, err := stock.Apply(ctx, batch, inventory.RecordRequest{
			MedicineID:    batch.MedicineID,
			Kind:          inventory.MovementKindExpiry,
			Quantity:      -quantity,
			ReferenceKind: inventory.ReferenceExpiryScan,
			ReferenceID:   batch.ID,
			Notes:         "Expired on " + batch.ExpiryDate.Format("2006-01-02"),
		}); err != nil {
			return err
		}
		if err := batch.MarkExpired(now); err != nil {
			return err
		}
		if err := repos.Batches().Save(ctx, batch); err != nil {
			return err
		}

		a, err := alert.NewAlert(alert.TypeExpired, shared.SeverityCritical, subject, today, now)
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
		event = inventory.NewBatchExpiredEvent(batch, quantity, loss, now)
		return nil
	})
	if err != nil {
		stats.Failed++
		s.logger.Error("Failed to expire batch", zap.Int64("batch_id", batchID), zap.Error(err))
		return
	}
	if skipped {
		stats.Skipped++
		return
	}

	stats.Expired++
	stats.Loss = stats.Loss.Add(event.Loss)
	if raised != nil {
		stats.AlertsRaised++
		s.dispatcher.Dispatch(ctx, raised)
	}
	s.publish(ctx, event)
}

func (s *ExpiryScanner) handleNearExpiry(ctx context.Context, batch *inventory.MedicineBatch, today time.Time, days int, stats *ScanStats) {
	var raised *alert.Alert
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		raised = nil
		a, err := alert.NewAlert(alert.ExpiryBucket(days), alert.ExpirySeverity(days), SubjectOf(batch), today, s.clock.Now())
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
		stats.Failed++
		s.logger.Error("Failed to raise near-expiry alert", zap.Int64("batch_id", batch.ID), zap.Error(err))
		return
	}
	if raised != nil {
		stats.AlertsRaised++
		s.dispatcher.Dispatch(ctx, raised)
	}
}

func (s *ExpiryScanner) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish scanner events", zap.Error(err))
	}
}
