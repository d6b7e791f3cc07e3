package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func fieldMap(entry observer.LoggedEntry) map[string]any {
	return entry.ContextMap()
}

func TestFromContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	l := zap.NewExample()
	assert.Same(t, l, FromContext(WithContext(context.Background(), l)))
}

func TestCorrelationIDs(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	ctx, _ := WithRequestID(context.Background(), base, "req-1")
	ctx, _ = WithActorID(ctx, FromContext(ctx), 42)
	ctx, l := WithRunID(ctx, FromContext(ctx), "run-9")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, int64(42), GetActorID(ctx))
	assert.Equal(t, "run-9", GetRunID(ctx))

	l.Info("scan started")
	logs := recorded.All()
	require.Len(t, logs, 1)
	fields := fieldMap(logs[0])
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, int64(42), fields["actor_id"])
	assert.Equal(t, "run-9", fields["run_id"])
}

func TestGetters_Empty(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRequestID(ctx))
	assert.Zero(t, GetActorID(ctx))
	assert.Empty(t, GetRunID(ctx))
	assert.Empty(t, GetTraceID(ctx))
}

func TestContextLogger_InjectsTraceAndIDs(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	base := zap.New(core)

	traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	spanID, _ := trace.SpanIDFromHex("0102030405060708")
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), spanCtx)
	ctx = context.WithValue(ctx, RunIDKey, "run-1")

	WithLogger(ctx, base).With(zap.String("component", "scanner")).Warn("batch skipped")

	logs := recorded.All()
	require.Len(t, logs, 1)
	fields := fieldMap(logs[0])
	assert.Equal(t, traceID.String(), fields["trace_id"])
	assert.Equal(t, spanID.String(), fields["span_id"])
	assert.Equal(t, "run-1", fields["run_id"])
	assert.Equal(t, "scanner", fields["component"])
	assert.Equal(t, traceID.String(), GetTraceID(ctx))
}

func TestL_UsesContextLogger(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	ctx := WithContext(context.Background(), zap.New(core))

	L(ctx).Info("hello")
	L(ctx).Debug("dropped")

	require.Len(t, recorded.All(), 1)
	assert.NotNil(t, L(context.Background()).Zap())
}
