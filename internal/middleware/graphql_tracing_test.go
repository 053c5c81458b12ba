package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func setupTracing(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
	tp.RegisterSpanProcessor(recorder)
	oldProvider := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(oldProvider)
	})
	return recorder
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestGraphQLTracingMiddleware_AnnotatesOperation(t *testing.T) {
	recorder := setupTracing(t)

	var sawSpan bool
	handler := GraphQLTracingMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawSpan = trace.SpanFromContext(r.Context()).SpanContext().IsValid()
		_, _ = w.Write([]byte(`{"data":{"card":null}}`))
	}))

	body := `{"query":"query One($id: ID!) { card(id: $id) { id title } }","operationName":"One"}`
	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "graphql.execute", spans[0].Name())
	assert.True(t, sawSpan)

	attrs := spanAttrs(spans[0])
	assert.Equal(t, "query", attrs["graphql.operation.type"].AsString())
	assert.Equal(t, "One", attrs["graphql.operation.name"].AsString())
	assert.Equal(t, int64(3), attrs["graphql.document.field_count"].AsInt64())
	assert.Equal(t, int64(2), attrs["graphql.document.depth"].AsInt64())
	assert.Equal(t, int64(1), attrs["graphql.document.variable_count"].AsInt64())
	assert.Equal(t, int64(0), attrs["graphql.document.paged_field_count"].AsInt64())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
}

func TestGraphQLTracingMiddleware_MarksErrors(t *testing.T) {
	recorder := setupTracing(t)

	handler := GraphQLTracingMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors":[{"message":"Identifier eA== is not valid."}]}`))
	}))

	req := httptest.NewRequest(http.MethodGet, "/graphql?query="+url.QueryEscape(`{node(id:"eA=="){id}}`), nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.True(t, spanAttrs(spans[0])["graphql.has_errors"].AsBool())
}

func TestGraphQLTracingMiddleware_ParseErrorStillExecutes(t *testing.T) {
	recorder := setupTracing(t)

	called := false
	handler := GraphQLTracingMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/graphql?query="+url.QueryEscape(`{card(`), nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.True(t, called)
	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.True(t, spanAttrs(spans[0])["graphql.parse_error"].AsBool())
}

func TestGraphQLTracingMiddleware_SkipsRequestsWithoutQuery(t *testing.T) {
	recorder := setupTracing(t)

	called := false
	handler := GraphQLTracingMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/graphql", nil))

	assert.True(t, called)
	assert.Empty(t, recorder.Ended())
}
