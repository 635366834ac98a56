package telemetry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"repolens/internal/agent"
	"repolens/internal/config"
	"repolens/internal/types"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumByAttr(t *testing.T, m metricdata.Metrics, key string) map[string]int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is %T", m.Name, m.Data)
	out := map[string]int64{}
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value(attribute.Key(key))
		out[v.Emit()] += dp.Value
	}
	return out
}

func TestRecorder_AnalysisFinished(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	rec, err := NewRecorder(context.Background(), reader, "test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = rec.Close(context.Background()) })

	start := time.Now()
	stats := &types.AnalysisStats{
		Model:         "sonnet-b",
		Mode:          types.ModeStandard,
		ModelAttempts: []string{"opus", "sonnet-a", "sonnet-b"},
		Attempts:      2,
		ToolCalls: []types.ToolCallRecord{
			{Name: "read_file"},
			{Name: "read_file", Failed: true},
			{Name: "search"},
		},
		TotalEvents:    42,
		ResponseLength: 1200,
		StartedAt:      start,
		EndedAt:        start.Add(3 * time.Second),
	}
	rec.AnalysisFinished(context.Background(), stats, nil)
	rec.AnalysisFinished(context.Background(), &types.AnalysisStats{Mode: types.ModeFast, ModelAttempts: []string{"opus"}},
		&agent.NoAvailableModelsError{Tried: []string{"opus"}})

	metrics := collect(t, reader)

	outcomes := sumByAttr(t, metrics["repolens_analyses_total"], "outcome")
	assert.Equal(t, map[string]int64{OutcomeSuccess: 1, OutcomeNoModels: 1}, outcomes)

	tools := sumByAttr(t, metrics["repolens_tool_calls_total"], "tool")
	assert.Equal(t, map[string]int64{"read_file": 2, "search": 1}, tools)

	fallbacks := sumByAttr(t, metrics["repolens_model_fallbacks_total"], "model")
	assert.Equal(t, map[string]int64{"sonnet-b": 2, "none": 1}, fallbacks)

	for _, name := range []string{
		"repolens_analysis_attempts",
		"repolens_stream_events",
		"repolens_analysis_duration_seconds",
		"repolens_response_bytes",
	} {
		assert.Contains(t, metrics, name)
	}

	events, ok := metrics["repolens_stream_events"].Data.(metricdata.Histogram[int64])
	require.True(t, ok)
	var total int64
	for _, dp := range events.DataPoints {
		total += dp.Sum
	}
	assert.Equal(t, int64(42), total)
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, OutcomeSuccess},
		{fmt.Errorf("wrapped: %w", &agent.ValidationFailedError{Attempts: 3}), OutcomeValidationFailed},
		{&agent.NoAvailableModelsError{}, OutcomeNoModels},
		{fmt.Errorf("%w: %w", agent.ErrTimeout, context.DeadlineExceeded), OutcomeTimeout},
		{errors.New("connection refused"), OutcomeError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Outcome(tt.err), "%v", tt.err)
	}
}

func TestNew_Disabled(t *testing.T) {
	exp, err := New(context.Background(), config.TelemetryConfig{}, "test")
	require.NoError(t, err)
	assert.IsType(t, &Noop{}, exp)
	exp.AnalysisFinished(context.Background(), &types.AnalysisStats{}, nil)
	assert.NoError(t, exp.Close(context.Background()))

	_, err = New(context.Background(), config.TelemetryConfig{Enabled: true}, "test")
	assert.Error(t, err)
}
