package testutil

import (
	"context"
	"testing"

	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEventHandler(t *testing.T) {
	handler := NewMockEventHandler("BatchExpired")
	assert.Equal(t, []string{"BatchExpired"}, handler.EventTypes())

	event := NewTestEvent("BatchExpired", 12)
	require.NoError(t, handler.Handle(context.Background(), event))
	assert.Equal(t, 1, handler.HandledCount())
	assert.Equal(t, int64(12), handler.Handled()[0].AggregateID())

	handler.SetError(assert.AnError)
	assert.Equal(t, assert.AnError, handler.Handle(context.Background(), event))
}

func TestRecordingPublisher(t *testing.T) {
	var p RecordingPublisher
	require.NoError(t, p.Publish(context.Background(), NewTestEvent("A", 1), NewTestEvent("B", 2)))

	assert.Equal(t, []string{"A", "B"}, p.Types())
	assert.Len(t, p.Events(), 2)

	p.SetError(assert.AnError)
	assert.Error(t, p.Publish(context.Background(), NewTestEvent("C", 3)))
}

func TestRecordingNotifier(t *testing.T) {
	var n RecordingNotifier
	require.NoError(t, n.Notify(context.Background(), "Expired", "Batch B1 expired", shared.SeverityCritical))

	sent := n.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, shared.SeverityCritical, sent[0].Severity)

	n.SetError(assert.AnError)
	assert.Error(t, n.Notify(context.Background(), "x", "y", shared.SeverityInfo))
}
