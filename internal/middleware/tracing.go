package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// TraceIDHeader carries the request's trace id back to the caller so a
// research task can be looked up in the trace backend.
const TraceIDHeader = "X-Trace-Id"

// TracingMiddleware starts one server span per request, named after the
// matched route and parented on any incoming traceparent. POST /research
// captures this span onto the task it creates.
func TracingMiddleware(serviceName string) gin.HandlerFunc {
	tracer := otel.Tracer(serviceName + "/http")

	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		parent := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(parent, c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Request.Method),
				attribute.String("http.route", route),
				attribute.String("request.id", RequestIDFromContext(c.Request.Context())),
			),
		)
		defer span.End()

		if taskID := c.Param("task_id"); taskID != "" {
			span.SetAttributes(attribute.String("research.task_id", taskID))
		}
		if sc := span.SpanContext(); sc.HasTraceID() {
			c.Writer.Header().Set(TraceIDHeader, sc.TraceID().String())
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
		if len(c.Errors) > 0 {
			span.RecordError(c.Errors.Last())
		}
	}
}
