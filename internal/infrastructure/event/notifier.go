package event

import (
	"context"
	"time"

	"github.com/pharmacy/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// EventTypeNotificationRequested is published for every staff notification
const EventTypeNotificationRequested = "NotificationRequested"

// NotificationRequestedEvent carries a rendered staff notification
type NotificationRequestedEvent struct {
	shared.BaseDomainEvent
	Title    string          `json:"title"`
	Message  string          `json:"message"`
	Severity shared.Severity `json:"severity"`
}

// BusNotifier implements shared.Notifier by publishing NotificationRequested events.
// Delivery channels (log, mail, push) subscribe to the bus.
type BusNotifier struct {
	publisher shared.EventPublisher
	clock     shared.Clock
}

// NewBusNotifier creates a BusNotifier
func NewBusNotifier(publisher shared.EventPublisher, clock shared.Clock) *BusNotifier {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return &BusNotifier{publisher: publisher, clock: clock}
}

// Notify publishes the notification
func (n *BusNotifier) Notify(ctx context.Context, title, message string, severity shared.Severity) error {
	return n.publisher.Publish(ctx, &NotificationRequestedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeNotificationRequested, "Notification", 0, n.clock.Now()),
		Title:           title,
		Message:         message,
		Severity:        severity,
	})
}

var _ shared.Notifier = (*BusNotifier)(nil)

// LogNotificationHandler writes notifications to the log, at a level matching
// their severity.
type LogNotificationHandler struct {
	logger *zap.Logger
}

// NewLogNotificationHandler creates a LogNotificationHandler
func NewLogNotificationHandler(logger *zap.Logger) *LogNotificationHandler {
	return &LogNotificationHandler{logger: logger.Named("notifications")}
}

// EventTypes subscribes to notifications only
func (h *LogNotificationHandler) EventTypes() []string {
	return []string{EventTypeNotificationRequested}
}

// Handle logs the notification
func (h *LogNotificationHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	n, ok := event.(*NotificationRequestedEvent)
	if !ok {
		return nil
	}
	fields := []zap.Field{
		zap.String("title", n.Title),
		zap.String("severity", n.Severity.String()),
	}
	switch n.Severity {
	case shared.SeverityCritical:
		h.logger.Error(n.Message, fields...)
	case shared.SeverityWarning:
		h.logger.Warn(n.Message, fields...)
	default:
		h.logger.Info(n.Message, fields...)
	}
	return nil
}

// AuditLogHandler records every domain event in the structured log
type AuditLogHandler struct {
	logger *zap.Logger
}

// NewAuditLogHandler creates an AuditLogHandler
func NewAuditLogHandler(logger *zap.Logger) *AuditLogHandler {
	return &AuditLogHandler{logger: logger.Named("audit")}
}

// EventTypes returns nil: the handler receives all events
func (h *AuditLogHandler) EventTypes() []string {
	return nil
}

// Handle logs the event envelope and payload
func (h *AuditLogHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	if event.EventType() == EventTypeNotificationRequested {
		return nil
	}
	h.logger.Info("Domain event",
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.Int64("aggregate_id", event.AggregateID()),
		zap.Time("occurred_at", event.OccurredAt().UTC().Truncate(time.Millisecond)),
		zap.Any("payload", event),
	)
	return nil
}
