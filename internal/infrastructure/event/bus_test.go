package event

import (
	"context"
	"testing"
	"time"

	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/pharmacy/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type panicHandler struct{}

func (panicHandler) EventTypes() []string { return []string{"BatchExpired"} }

func (panicHandler) Handle(context.Context, shared.DomainEvent) error { panic("boom") }

func startedBus(t *testing.T, logger *zap.Logger) *InMemoryEventBus {
	t.Helper()
	bus := NewInMemoryEventBus(logger)
	require.NoError(t, bus.Start(context.Background()))
	t.Cleanup(func() { _ = bus.Stop(context.Background()) })
	return bus
}

func TestInMemoryEventBus_DeliversByType(t *testing.T) {
	bus := startedBus(t, zap.NewNop())
	expired := testutil.NewMockEventHandler("BatchExpired")
	approved := testutil.NewMockEventHandler("DocumentApproved")
	all := testutil.NewMockEventHandler()

	bus.Subscribe(expired)
	bus.Subscribe(approved)
	bus.Subscribe(all)

	require.NoError(t, bus.Publish(context.Background(),
		testutil.NewTestEvent("BatchExpired", 1),
		testutil.NewTestEvent("DocumentApproved", 2),
		nil,
	))

	assert.Equal(t, 1, expired.HandledCount())
	assert.Equal(t, 1, approved.HandledCount())
	assert.Equal(t, 2, all.HandledCount())

	published, failed := bus.Stats()
	assert.Equal(t, int64(2), published)
	assert.Zero(t, failed)
}

func TestInMemoryEventBus_ExplicitTypesOverrideHandler(t *testing.T) {
	bus := startedBus(t, zap.NewNop())
	h := testutil.NewMockEventHandler("BatchExpired")

	bus.Subscribe(h, "DocumentCancelled")
	require.NoError(t, bus.Publish(context.Background(), testutil.NewTestEvent("BatchExpired", 1)))
	assert.Zero(t, h.HandledCount())

	require.NoError(t, bus.Publish(context.Background(), testutil.NewTestEvent("DocumentCancelled", 1)))
	assert.Equal(t, 1, h.HandledCount())
}

func TestInMemoryEventBus_HandlerFailureIsIsolated(t *testing.T) {
	core, recorded := observer.New(zapcore.ErrorLevel)
	bus := startedBus(t, zap.New(core))

	failing := testutil.NewMockEventHandler("BatchExpired")
	failing.SetError(assert.AnError)
	after := testutil.NewMockEventHandler("BatchExpired")

	bus.Subscribe(failing)
	bus.Subscribe(panicHandler{})
	bus.Subscribe(after)

	err := bus.Publish(context.Background(), testutil.NewTestEvent("BatchExpired", 9))
	require.NoError(t, err)

	assert.Equal(t, 1, after.HandledCount())
	_, failed := bus.Stats()
	assert.Equal(t, int64(2), failed)
	assert.Len(t, recorded.FilterMessage("Handler failed to process event").All(), 2)
}

func TestInMemoryEventBus_DropsWhenStopped(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	h := testutil.NewMockEventHandler()
	bus.Subscribe(h)

	require.NoError(t, bus.Publish(context.Background(), testutil.NewTestEvent("BatchExpired", 1)))
	assert.Zero(t, h.HandledCount())

	require.NoError(t, bus.Start(context.Background()))
	require.NoError(t, bus.Publish(context.Background(), testutil.NewTestEvent("BatchExpired", 1)))
	assert.Equal(t, 1, h.HandledCount())

	require.NoError(t, bus.Stop(context.Background()))
	require.NoError(t, bus.Publish(context.Background(), testutil.NewTestEvent("BatchExpired", 1)))
	assert.Equal(t, 1, h.HandledCount())
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := startedBus(t, zap.NewNop())
	h := testutil.NewMockEventHandler("BatchExpired")
	bus.Subscribe(h)
	bus.Unsubscribe(h)

	require.NoError(t, bus.Publish(context.Background(), testutil.NewTestEvent("BatchExpired", 1)))
	assert.Zero(t, h.HandledCount())
}

func TestBusNotifier_PublishesNotification(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	bus := startedBus(t, zap.New(core))
	bus.Subscribe(NewLogNotificationHandler(zap.New(core)))
	audit := testutil.NewMockEventHandler(EventTypeNotificationRequested)
	bus.Subscribe(audit)

	at := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	notifier := NewBusNotifier(bus, shared.ClockFunc(func() time.Time { return at }))

	require.NoError(t, notifier.Notify(context.Background(), "Batch expired", "Batch B-1 expired", shared.SeverityCritical))

	require.Equal(t, 1, audit.HandledCount())
	n, ok := audit.Handled()[0].(*NotificationRequestedEvent)
	require.True(t, ok)
	assert.Equal(t, "Batch expired", n.Title)
	assert.Equal(t, at, n.OccurredAt())

	logged := recorded.FilterMessage("Batch B-1 expired").All()
	require.Len(t, logged, 1)
	assert.Equal(t, zapcore.ErrorLevel, logged[0].Level)
}

func TestLogNotificationHandler_SeverityLevels(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	h := NewLogNotificationHandler(zap.New(core))
	notifier := NewBusNotifier(publisherFunc(func(ctx context.Context, events ...shared.DomainEvent) error {
		for _, e := range events {
			require.NoError(t, h.Handle(ctx, e))
		}
		return nil
	}), nil)

	require.NoError(t, notifier.Notify(context.Background(), "t", "warn", shared.SeverityWarning))
	require.NoError(t, notifier.Notify(context.Background(), "t", "info", shared.SeverityInfo))
	require.NoError(t, h.Handle(context.Background(), testutil.NewTestEvent("Other", 1)))

	logs := recorded.All()
	require.Len(t, logs, 2)
	assert.Equal(t, zapcore.WarnLevel, logs[0].Level)
	assert.Equal(t, zapcore.InfoLevel, logs[1].Level)
}

func TestAuditLogHandler(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	h := NewAuditLogHandler(zap.New(core))
	assert.Empty(t, h.EventTypes())

	require.NoError(t, h.Handle(context.Background(), testutil.NewTestEvent("DocumentApproved", 42)))
	require.NoError(t, h.Handle(context.Background(), &NotificationRequestedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeNotificationRequested, "Notification", 0, time.Now()),
	}))

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "DocumentApproved", logs[0].ContextMap()["event_type"])
	assert.Equal(t, int64(42), logs[0].ContextMap()["aggregate_id"])
}

type publisherFunc func(ctx context.Context, events ...shared.DomainEvent) error

func (f publisherFunc) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	return f(ctx, events...)
}
