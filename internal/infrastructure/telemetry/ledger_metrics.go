package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/pharmacy/backend/internal/domain/document"
	"github.com/pharmacy/backend/internal/domain/inventory"
	"github.com/pharmacy/backend/internal/domain/shared"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when a metrics set is built without a meter.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// LedgerMetrics counts document lifecycle transitions, batch write-offs and
// expiry scan outcomes. It subscribes to the event bus as a shared.EventHandler;
// scan results are pushed by the scheduler task through RecordScan.
type LedgerMetrics struct {
	documentsTotal    *Counter
	documentAmount    *FloatCounter
	batchesRemoved    *Counter
	unitsRemoved      *Counter
	inventoryLoss     *FloatCounter
	scanRuns          *Counter
	scanAlertsRaised  *Counter
	scanBatchFailures *Counter
	scanDuration      *Histogram
}

// ScanResult is the part of an expiry scan cycle that is recorded as metrics.
type ScanResult struct {
	AlertsRaised int
	Failed       int
	Duration     time.Duration
	Err          error
}

// NewLedgerMetrics registers the ledger instruments on meter.
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	m := &LedgerMetrics{}
	var err error
	if m.documentsTotal, err = NewCounter(meter, "ledger_documents_total",
		"Documents approved or cancelled", "{document}"); err != nil {
		return nil, err
	}
	if m.documentAmount, err = NewFloatCounter(meter, "ledger_document_amount_total",
		"Total amount of approved documents", "{currency}"); err != nil {
		return nil, err
	}
	if m.batchesRemoved, err = NewCounter(meter, "inventory_batches_removed_total",
		"Batches zeroed by expiry or write-off", "{batch}"); err != nil {
		return nil, err
	}
	if m.unitsRemoved, err = NewCounter(meter, "inventory_units_removed_total",
		"Units removed by expiry or write-off", "{unit}"); err != nil {
		return nil, err
	}
	if m.inventoryLoss, err = NewFloatCounter(meter, "inventory_loss_total",
		"Cost value of expired or written off stock", "{currency}"); err != nil {
		return nil, err
	}
	if m.scanRuns, err = NewCounter(meter, "expiry_scan_runs_total",
		"Expiry scan cycles by outcome", "{run}"); err != nil {
		return nil, err
	}
	if m.scanAlertsRaised, err = NewCounter(meter, "expiry_scan_alerts_raised_total",
		"Near-expiry alerts raised by the scanner", "{alert}"); err != nil {
		return nil, err
	}
	if m.scanBatchFailures, err = NewCounter(meter, "expiry_scan_batch_failures_total",
		"Batches the scanner failed to process", "{batch}"); err != nil {
		return nil, err
	}
	if m.scanDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "expiry_scan_duration_seconds",
		Description: "Expiry scan cycle duration",
		Unit:        "s",
		Boundaries:  []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
	}); err != nil {
		return nil, err
	}
	return m, nil
}

// EventTypes returns the events that feed the counters
func (m *LedgerMetrics) EventTypes() []string {
	return []string{
		document.EventTypeDocumentApproved,
		document.EventTypeDocumentCancelled,
		inventory.EventTypeBatchExpired,
		inventory.EventTypeBatchWrittenOff,
	}
}

// Handle updates the counters for one event
func (m *LedgerMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *document.ApprovedEvent:
		m.documentsTotal.Inc(ctx, AttrDocumentKind.String(string(e.Kind)), AttrAction.String("approved"))
		m.documentAmount.Add(ctx, e.TotalAmount.InexactFloat64(), AttrDocumentKind.String(string(e.Kind)))
	case *document.CancelledEvent:
		m.documentsTotal.Inc(ctx, AttrDocumentKind.String(string(e.Kind)), AttrAction.String("cancelled"))
	case *inventory.BatchExpiredEvent:
		m.recordRemoval(ctx, "expired", e.Quantity, e.Loss.InexactFloat64())
	case *inventory.BatchWrittenOffEvent:
		m.recordRemoval(ctx, "written_off", e.Quantity, e.Loss.InexactFloat64())
	}
	return nil
}

func (m *LedgerMetrics) recordRemoval(ctx context.Context, reason string, quantity int64, loss float64) {
	attr := AttrReason.String(reason)
	m.batchesRemoved.Inc(ctx, attr)
	m.unitsRemoved.Add(ctx, quantity, attr)
	m.inventoryLoss.Add(ctx, loss, attr)
}

// RecordScan records one expiry scan cycle
func (m *LedgerMetrics) RecordScan(ctx context.Context, r ScanResult) {
	status := "success"
	if r.Err != nil {
		status = "failed"
	}
	m.scanRuns.Inc(ctx, AttrStatus.String(status))
	m.scanDuration.RecordDuration(ctx, r.Duration, AttrStatus.String(status))
	if r.AlertsRaised > 0 {
		m.scanAlertsRaised.Add(ctx, int64(r.AlertsRaised))
	}
	if r.Failed > 0 {
		m.scanBatchFailures.Add(ctx, int64(r.Failed))
	}
}

var _ shared.EventHandler = (*LedgerMetrics)(nil)
