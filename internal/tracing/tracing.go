package tracing

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc/credentials"
)

const (
	headerTraceParent = "traceparent"
	headerTraceState  = "tracestate"
)

// Config is the resolved tracing configuration. Env overrides and defaults
// are applied by the config package before it gets here.
type Config struct {
	Enabled      bool
	ServiceName  string
	Environment  string
	OTLPEndpoint string
	OTLPInsecure bool
	SampleRatio  float64
}

// Setup installs the W3C propagator and, when enabled, an OTLP/gRPC tracer
// provider. The propagator is installed either way because research runs
// carry their submit request's trace context across the detach.
func Setup(ctx context.Context, cfg Config, logger *slog.Logger) (func(context.Context) error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	otel.SetTextMapPropagator(propagation.TraceContext{})
	noop := func(context.Context) error { return nil }
	if !cfg.Enabled {
		return noop, nil
	}

	exp, err := otlptracegrpc.New(ctx, exporterOptions(cfg)...)
	if err != nil {
		logger.Warn("otel exporter init failed; tracing disabled", "err", err)
		return noop, nil
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(newResource(cfg, logger)),
		sdktrace.WithSampler(sampler(cfg.SampleRatio)),
	)
	otel.SetTracerProvider(tp)
	logger.Info("tracing enabled", "endpoint", cfg.OTLPEndpoint, "service", cfg.ServiceName)
	return tp.Shutdown, nil
}

func exporterOptions(cfg Config) []otlptracegrpc.Option {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(grpcEndpoint(cfg.OTLPEndpoint))}
	if cfg.OTLPInsecure {
		return append(opts, otlptracegrpc.WithInsecure())
	}
	return append(opts, otlptracegrpc.WithTLSCredentials(credentials.NewClientTLSFromCert(nil, "")))
}

func newResource(cfg Config, logger *slog.Logger) *resource.Resource {
	attrs := resource.NewWithAttributes(semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.DeploymentEnvironment(cfg.Environment),
	)
	res, err := resource.Merge(resource.Default(), attrs)
	if err != nil {
		logger.Warn("otel resource merge failed; using service attributes only", "err", err)
		return attrs
	}
	return res
}

// sampler honours the caller's decision for joined traces and samples new
// root spans at ratio.
func sampler(ratio float64) sdktrace.Sampler {
	if ratio <= 0 || ratio >= 1 {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}

// grpcEndpoint reduces a collector URL to the host:port the gRPC exporter dials.
func grpcEndpoint(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		if u, err := url.Parse(raw); err == nil && u.Host != "" {
			return u.Host
		}
	}
	return strings.TrimSuffix(raw, "/")
}

// Capture returns the traceparent and tracestate of the span in ctx, for
// storing on a task whose run outlives the request.
func Capture(ctx context.Context) (traceParent, traceState string) {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return carrier.Get(headerTraceParent), carrier.Get(headerTraceState)
}

// Resume makes the captured span the remote parent of spans started from the
// returned context. Empty strings leave ctx untouched.
func Resume(ctx context.Context, traceParent, traceState string) context.Context {
	traceParent = strings.TrimSpace(traceParent)
	if traceParent == "" {
		return ctx
	}
	carrier := propagation.MapCarrier{headerTraceParent: traceParent}
	if ts := strings.TrimSpace(traceState); ts != "" {
		carrier[headerTraceState] = ts
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
