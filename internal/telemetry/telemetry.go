// Package telemetry records analysis metrics through OpenTelemetry and, when
// enabled, exports them to an OTLP collector over gRPC.
package telemetry

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"repolens/internal/agent"
	"repolens/internal/config"
	"repolens/internal/logging"
	"repolens/internal/types"
)

const serviceName = "repolens"

// Outcome labels for repolens_analyses_total.
const (
	OutcomeSuccess          = "success"
	OutcomeValidationFailed = "validation_failed"
	OutcomeNoModels         = "no_models"
	OutcomeTimeout          = "timeout"
	OutcomeError            = "error"
)

// Exporter receives finished analyses. It satisfies agent.Observer.
type Exporter interface {
	AnalysisFinished(ctx context.Context, stats *types.AnalysisStats, err error)
	Close(ctx context.Context) error
}

// Recorder records analysis metrics on an SDK meter provider.
type Recorder struct {
	provider *sdkmetric.MeterProvider

	analyses     metric.Int64Counter
	attempts     metric.Int64Histogram
	toolCalls    metric.Int64Counter
	events       metric.Int64Histogram
	duration     metric.Float64Histogram
	fallbacks    metric.Int64Counter
	responseSize metric.Int64Histogram
}

// New builds the exporter for cfg. Disabled telemetry yields a no-op.
func New(ctx context.Context, cfg config.TelemetryConfig, version string) (Exporter, error) {
	if !cfg.Enabled {
		return NewNoop(), nil
	}
	if cfg.Endpoint == "" {
		return nil, errors.New("telemetry enabled but no endpoint configured")
	}

	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	rec, err := NewRecorder(ctx, sdkmetric.NewPeriodicReader(exp), version)
	if err != nil {
		return nil, err
	}
	logging.Telemetry("Exporting metrics to %s (insecure=%v)", cfg.Endpoint, cfg.Insecure)
	return rec, nil
}

// NewRecorder builds a Recorder reading through reader. Tests pass a
// sdkmetric.ManualReader.
func NewRecorder(ctx context.Context, reader sdkmetric.Reader, version string) (*Recorder, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(res),
	)
	meter := provider.Meter(serviceName)
	r := &Recorder{provider: provider}

	if r.analyses, err = meter.Int64Counter(
		"repolens_analyses_total",
		metric.WithDescription("Analyses run, by mode, model and outcome"),
		metric.WithUnit("{analysis}"),
	); err != nil {
		return nil, fmt.Errorf("creating analyses counter: %w", err)
	}

	if r.attempts, err = meter.Int64Histogram(
		"repolens_analysis_attempts",
		metric.WithDescription("Prompts sent per analysis, retries included"),
		metric.WithUnit("{attempt}"),
	); err != nil {
		return nil, fmt.Errorf("creating attempts histogram: %w", err)
	}

	if r.toolCalls, err = meter.Int64Counter(
		"repolens_tool_calls_total",
		metric.WithDescription("Tool invocations by tool name and failure"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, fmt.Errorf("creating tool calls counter: %w", err)
	}

	if r.events, err = meter.Int64Histogram(
		"repolens_stream_events",
		metric.WithDescription("Backend stream events consumed per analysis"),
		metric.WithUnit("{event}"),
	); err != nil {
		return nil, fmt.Errorf("creating events histogram: %w", err)
	}

	if r.duration, err = meter.Float64Histogram(
		"repolens_analysis_duration_seconds",
		metric.WithDescription("Analysis wall-clock duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	if r.fallbacks, err = meter.Int64Counter(
		"repolens_model_fallbacks_total",
		metric.WithDescription("Candidate models skipped as unavailable"),
		metric.WithUnit("{model}"),
	); err != nil {
		return nil, fmt.Errorf("creating fallbacks counter: %w", err)
	}

	if r.responseSize, err = meter.Int64Histogram(
		"repolens_response_bytes",
		metric.WithDescription("Length of the final response buffer"),
		metric.WithUnit("By"),
	); err != nil {
		return nil, fmt.Errorf("creating response size histogram: %w", err)
	}

	return r, nil
}

// Outcome classifies an analysis error for the outcome label.
func Outcome(err error) string {
	var (
		noModels   *agent.NoAvailableModelsError
		validation *agent.ValidationFailedError
	)
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.As(err, &noModels):
		return OutcomeNoModels
	case errors.As(err, &validation):
		return OutcomeValidationFailed
	case errors.Is(err, agent.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	default:
		return OutcomeError
	}
}

// AnalysisFinished records one finished analysis.
func (r *Recorder) AnalysisFinished(ctx context.Context, stats *types.AnalysisStats, err error) {
	if stats == nil {
		return
	}
	model := stats.Model
	if model == "" {
		model = "none"
	}
	base := []attribute.KeyValue{
		attribute.String("mode", stats.Mode),
		attribute.String("model", model),
	}
	opt := metric.WithAttributes(base...)

	r.analyses.Add(ctx, 1, metric.WithAttributes(append(base, attribute.String("outcome", Outcome(err)))...))
	r.attempts.Record(ctx, int64(stats.Attempts), opt)
	r.events.Record(ctx, int64(stats.TotalEvents), opt)
	r.responseSize.Record(ctx, int64(stats.ResponseLength), opt)
	r.duration.Record(ctx, stats.Duration().Seconds(), opt)

	skipped := len(stats.ModelAttempts)
	if stats.Model != "" {
		skipped--
	}
	if skipped > 0 {
		r.fallbacks.Add(ctx, int64(skipped), opt)
	}

	for _, call := range stats.ToolCalls {
		r.toolCalls.Add(ctx, 1, metric.WithAttributes(
			attribute.String("tool", call.Name),
			attribute.Bool("failed", call.Failed),
		))
	}
}

// Close flushes pending metrics and shuts the provider down.
func (r *Recorder) Close(ctx context.Context) error {
	return r.provider.Shutdown(ctx)
}

// Noop discards everything.
type Noop struct{}

// NewNoop returns an exporter for disabled telemetry.
func NewNoop() *Noop { return &Noop{} }

func (Noop) AnalysisFinished(context.Context, *types.AnalysisStats, error) {}

func (Noop) Close(context.Context) error { return nil }

var (
	_ agent.Observer = (*Recorder)(nil)
	_ agent.Observer = Noop{}
)
