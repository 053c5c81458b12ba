package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"relay-paging/internal/logging"
)

// GraphQLTracingMiddleware wraps GraphQL execution in a "graphql.execute" span
// annotated with the operation shape, and tags the request logger with the
// trace identifiers.
func GraphQLTracingMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := readGraphQLRequest(r)
			if strings.TrimSpace(req.Query) == "" {
				next.ServeHTTP(w, r)
				return
			}

			tracer := otel.Tracer("relay-paging/graphql")
			ctx, span := tracer.Start(r.Context(), "graphql.execute")
			defer span.End()
			if spanCtx := span.SpanContext(); spanCtx.IsValid() {
				reqLogger := logging.FromContext(ctx).WithFields(
					slog.String("trace_id", spanCtx.TraceID().String()),
					slog.String("span_id", spanCtx.SpanID().String()),
				)
				ctx = logging.WithLogger(ctx, reqLogger)
			}

			if span.IsRecording() {
				span.SetAttributes(operationAttributes(req)...)
			}

			wrapped := newCaptureWriter(w, span.IsRecording())
			next.ServeHTTP(wrapped, r.WithContext(ctx))

			if wrapped.statusCode >= 400 || responseHasGraphQLErrors(wrapped.body.Bytes()) {
				span.SetStatus(codes.Error, "graphql errors")
				span.SetAttributes(attribute.Bool("graphql.has_errors", true))
			}
		})
	}
}

func operationAttributes(req graphQLRequest) []attribute.KeyValue {
	attrs := []attribute.KeyValue{}
	if req.OperationName != "" {
		attrs = append(attrs, attribute.String("graphql.operation.name", req.OperationName))
	}
	shape, err := req.describe()
	if err != nil {
		return append(attrs, attribute.Bool("graphql.parse_error", true))
	}
	if shape == nil {
		return attrs
	}
	return append(attrs,
		attribute.String("graphql.operation.type", shape.kind),
		attribute.Int("graphql.document.field_count", shape.fields),
		attribute.Int("graphql.document.depth", shape.depth),
		attribute.Int("graphql.document.variable_count", shape.variables),
		attribute.Int("graphql.document.paged_field_count", shape.paged),
	)
}
