package telemetry

import (
	"context"
	"runtime/pprof"
	"strings"
	"testing"

	"github.com/grafana/pyroscope-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewProfiler_Disabled(t *testing.T) {
	p, err := NewProfiler(ProfilerConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, p.IsEnabled())
	require.NoError(t, p.Stop())
	require.NoError(t, p.Stop())
}

func TestNewProfiler_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  ProfilerConfig
		want string
	}{
		{"missing address", ProfilerConfig{Enabled: true, ApplicationName: "ledger"}, "server address"},
		{"missing name", ProfilerConfig{Enabled: true, ServerAddress: "http://pyroscope:4040"}, "application name"},
		{"bad type", ProfilerConfig{Enabled: true, ServerAddress: "http://pyroscope:4040", ApplicationName: "ledger",
			ProfileTypes: []string{"cpu", "gpu"}}, "unknown profile type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProfiler(tt.cfg, zap.NewNop())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseProfileTypes(t *testing.T) {
	types, err := ParseProfileTypes(nil)
	require.NoError(t, err)
	assert.Equal(t, []pyroscope.ProfileType{pyroscope.ProfileCPU, pyroscope.ProfileInuseObjects, pyroscope.ProfileInuseSpace}, types)

	types, err = ParseProfileTypes([]string{" CPU ", "goroutines", "cpu"})
	require.NoError(t, err)
	assert.Equal(t, []pyroscope.ProfileType{pyroscope.ProfileCPU, pyroscope.ProfileGoroutines}, types)
}

func TestSanitizeLabels(t *testing.T) {
	pairs := sanitizeLabels(map[string]string{
		"Operation":   "expiry-scan",
		"run_id":      "abc",
		"empty":       "",
		"Code-Region": strings.Repeat("x", 200),
		"!!!":         "dropped",
	})
	require.Len(t, pairs, 4)
	assert.Equal(t, "code_region", pairs[0])
	assert.Len(t, pairs[1], maxLabelValueLength)
	assert.Equal(t, []string{"operation", "expiry-scan"}, pairs[2:])
}

func TestWithProfilingLabels(t *testing.T) {
	var got string
	WithProfilingLabels(context.Background(), OperationLabels("expiry_scan", map[string]string{"trigger": "interval"}),
		func(ctx context.Context) {
			got, _ = pprof.Label(ctx, ProfilingLabelOperation)
		})
	assert.Equal(t, "expiry_scan", got)

	called := false
	WithProfilingLabels(context.Background(), nil, func(ctx context.Context) { called = true })
	assert.True(t, called)
}
