package tracing

import (
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestGRPCEndpoint(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"localhost:4317", "localhost:4317"},
		{"http://collector:4317", "collector:4317"},
		{"https://collector.example.com:443/", "collector.example.com:443"},
		{"collector:4317/", "collector:4317"},
		{"  ", ""},
	}
	for _, tt := range tests {
		if got := grpcEndpoint(tt.in); got != tt.want {
			t.Errorf("grpcEndpoint(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{0, "root:AlwaysOnSampler"},
		{1, "root:AlwaysOnSampler"},
		{0.25, "root:TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		if got := sampler(tt.ratio).Description(); !strings.Contains(got, tt.want) {
			t.Errorf("sampler(%v) = %q, want it to contain %q", tt.ratio, got, tt.want)
		}
	}
}

func TestSetupDisabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{Enabled: false}, nil)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
	if _, ok := otel.GetTextMapPropagator().(propagation.TraceContext); !ok {
		t.Errorf("expected TraceContext propagator")
	}
}

func TestCaptureResume(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	state, _ := trace.ParseTraceState("research=run")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
		TraceState: state,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	parent, ts := Capture(ctx)
	if parent == "" || ts != "research=run" {
		t.Fatalf("Capture = %q, %q", parent, ts)
	}

	restored := trace.SpanContextFromContext(Resume(context.Background(), parent, ts))
	if restored.TraceID() != traceID || restored.SpanID() != spanID {
		t.Errorf("restored = %s/%s, want %s/%s", restored.TraceID(), restored.SpanID(), traceID, spanID)
	}
	if !restored.IsRemote() {
		t.Error("expected remote span context")
	}
	if restored.TraceState().Get("research") != "run" {
		t.Errorf("trace state = %q", restored.TraceState().String())
	}
}

func TestResumeWithoutParent(t *testing.T) {
	ctx := context.Background()
	if got := Resume(ctx, " ", "research=run"); got != ctx {
		t.Error("expected original context without a traceparent")
	}
}
