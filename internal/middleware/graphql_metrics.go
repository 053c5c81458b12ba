package middleware

import (
	"net/http"
	"strings"
	"time"

	"relay-paging/internal/observability"
)

// GraphQLMetricsMiddleware records request duration, outcome and in-flight
// count for GraphQL POST requests. A nil metrics value disables recording.
func GraphQLMetricsMiddleware(metrics *observability.PagingMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// GraphiQL page loads are not queries.
			if metrics == nil || r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			metrics.IncrementActiveRequests(ctx)
			defer metrics.DecrementActiveRequests(ctx)

			start := time.Now()
			operationType := "unknown"
			if shape, err := readGraphQLRequest(r).describe(); err == nil && shape != nil && strings.TrimSpace(shape.kind) != "" {
				operationType = shape.kind
			}

			wrapped := newCaptureWriter(w, true)
			next.ServeHTTP(wrapped, r)

			hasErrors := wrapped.statusCode >= 400 || responseHasGraphQLErrors(wrapped.body.Bytes())
			metrics.RecordRequest(ctx, time.Since(start), hasErrors, operationType)
		})
	}
}
