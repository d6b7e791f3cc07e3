package event

import (
	"testing"

	"github.com/pharmacy/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
)

func TestHandlerRegistry(t *testing.T) {
	r := NewHandlerRegistry()
	expired := testutil.NewMockEventHandler()
	all := testutil.NewMockEventHandler()

	r.Register(expired, "BatchExpired", "BatchWrittenOff")
	r.Register(expired, "BatchExpired")
	r.Register(all)

	handlers := r.GetHandlers("BatchExpired")
	assert.Len(t, handlers, 2)
	assert.Same(t, expired, handlers[0])
	assert.Same(t, all, handlers[1])

	assert.Len(t, r.GetHandlers("DocumentApproved"), 1)
	assert.Equal(t, 2, r.Count())

	r.Unregister(expired)
	assert.Len(t, r.GetHandlers("BatchExpired"), 1)
	assert.Len(t, r.GetHandlers("BatchWrittenOff"), 1)
	assert.Equal(t, 1, r.Count())

	r.Unregister(all)
	assert.Empty(t, r.GetHandlers("BatchExpired"))
	assert.Zero(t, r.Count())
}

func TestHandlerRegistry_WildcardAlsoTyped(t *testing.T) {
	r := NewHandlerRegistry()
	h := testutil.NewMockEventHandler()

	r.Register(h, "BatchExpired")
	r.Register(h)

	assert.Len(t, r.GetHandlers("BatchExpired"), 1)
}
