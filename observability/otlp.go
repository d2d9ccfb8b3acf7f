package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// OTLPTracer implements combinators/observability.Tracer by exporting spans
// over the OpenTelemetry Protocol, grounded on the teacher's
// pkg/middleware/observability/otlp.go OTLPTracerProvider. It is trimmed to
// the single StartSpan(ctx, name) (context.Context, func(error)) shape the
// trace combinator needs; the richer SpanOption/SpanKind API the teacher
// exposes for manual instrumentation is not part of FlowEngine's surface.
type OTLPTracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// OTLPConfig configures an OTLPTracer.
type OTLPConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	UseHTTP        bool
	Insecure       bool
	Headers        map[string]string
	SampleRate     float64
	BatchTimeout   time.Duration
}

// DefaultOTLPConfig returns sensible defaults for local development: gRPC,
// insecure, full sampling, a 5s batch timeout.
func DefaultOTLPConfig(serviceName, endpoint string) OTLPConfig {
	return OTLPConfig{
		ServiceName:    serviceName,
		ServiceVersion: "unknown",
		Endpoint:       endpoint,
		UseHTTP:        false,
		Insecure:       true,
		SampleRate:     1.0,
		BatchTimeout:   5 * time.Second,
	}
}

// OTLPOption configures an OTLPConfig.
type OTLPOption func(*OTLPConfig)

// WithServiceVersion sets the service version attached to every span.
func WithServiceVersion(version string) OTLPOption {
	return func(cfg *OTLPConfig) { cfg.ServiceVersion = version }
}

// WithHTTPExporter uses HTTP instead of gRPC to reach the collector.
func WithHTTPExporter() OTLPOption {
	return func(cfg *OTLPConfig) { cfg.UseHTTP = true }
}

// WithSecureTransport enables TLS against the collector.
func WithSecureTransport() OTLPOption {
	return func(cfg *OTLPConfig) { cfg.Insecure = false }
}

// WithHeaders sets additional headers sent with every export request.
func WithHeaders(headers map[string]string) OTLPOption {
	return func(cfg *OTLPConfig) { cfg.Headers = headers }
}

// WithSampleRate sets the fraction of traces recorded, in [0, 1].
func WithSampleRate(rate float64) OTLPOption {
	return func(cfg *OTLPConfig) { cfg.SampleRate = rate }
}

// NewOTLPTracer connects to an OTLP collector (Jaeger, Tempo, or any
// OTLP-compatible backend) and installs the resulting provider as the
// global OpenTelemetry tracer provider. Call Shutdown when the engine stops
// to flush pending spans.
func NewOTLPTracer(serviceName, endpoint string, opts ...OTLPOption) (*OTLPTracer, error) {
	cfg := DefaultOTLPConfig(serviceName, endpoint)
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx := context.Background()
	exporter, err := createExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	var sampler sdktrace.Sampler
	switch {
	case cfg.SampleRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case cfg.SampleRate <= 0.0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(cfg.BatchTimeout)),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &OTLPTracer{provider: provider, tracer: provider.Tracer(cfg.ServiceName)}, nil
}

// StartSpan implements combinators/observability.Tracer.
func (t *OTLPTracer) StartSpan(ctx context.Context, name string) (context.Context, func(err error)) {
	spanCtx, span := t.tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindInternal))
	return spanCtx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// Shutdown flushes and stops the tracer provider.
func (t *OTLPTracer) Shutdown(ctx context.Context) error {
	return t.provider.Shutdown(ctx)
}

func createExporter(ctx context.Context, cfg OTLPConfig) (*otlptrace.Exporter, error) {
	if cfg.UseHTTP {
		return createHTTPExporter(ctx, cfg)
	}
	return createGRPCExporter(ctx, cfg)
}

func createHTTPExporter(ctx context.Context, cfg OTLPConfig) (*otlptrace.Exporter, error) {
	options := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		options = append(options, otlptracehttp.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		options = append(options, otlptracehttp.WithHeaders(cfg.Headers))
	}
	return otlptracehttp.New(ctx, options...)
}

func createGRPCExporter(ctx context.Context, cfg OTLPConfig) (*otlptrace.Exporter, error) {
	options := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		options = append(options, otlptracegrpc.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		options = append(options, otlptracegrpc.WithHeaders(cfg.Headers))
	}
	return otlptracegrpc.New(ctx, options...)
}
