package serverapp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"relay-paging/internal/config"
)

func TestWrapHTTPHandler_UsesHTTPRootSpanName(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
	tp.RegisterSpanProcessor(recorder)
	originalTP := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(originalTP)
	})

	cfg := &config.Config{Observability: config.ObservabilityConfig{TracingEnabled: true}}
	handler := wrapHTTPHandler(cfg, testLogger(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /health", spans[0].Name())
}

func TestWrapHTTPHandler_PassThroughWithoutTelemetry(t *testing.T) {
	inner := http.NotFoundHandler()
	got := wrapHTTPHandler(&config.Config{}, testLogger(), inner)
	assert.NotNil(t, got)

	rec := httptest.NewRecorder()
	got.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHTTPRootSpanName(t *testing.T) {
	tests := []struct {
		method string
		path   string
		want   string
	}{
		{http.MethodPost, "/graphql", "POST /graphql"},
		{http.MethodGet, "/", "GET /"},
		{http.MethodGet, "/metrics", "GET /metrics"},
		{http.MethodGet, "/cards/12", "GET /*"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, httpRootSpanName(httptest.NewRequest(tt.method, tt.path, nil)))
		})
	}
	assert.Equal(t, "HTTP /*", httpRootSpanName(nil))
}

func TestHealthHandler(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()
	mock.ExpectPing().WillReturnError(errors.New("gone away"))

	h := healthHandler(db, 0)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","database":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unhealthy","database":"failed"}`, rec.Body.String())

	require.NoError(t, mock.ExpectationsWereMet())
}

func newHandlerApp(t *testing.T) (*App, sqlmock.Sqlmock, http.Handler) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := &config.Config{
		Paging: config.PagingConfig{DefaultFirst: 10, MaxFirst: 100},
		Schema: config.DefaultSchema(),
	}
	app := &App{cfg: cfg, logger: testLogger()}
	_, handler, err := app.buildHandler(db, nil, nil)
	require.NoError(t, err)
	return app, mock, handler
}

func TestBuildHandler_ServesCardLookup(t *testing.T) {
	_, mock, handler := newHandlerApp(t)

	mock.ExpectQuery("FROM `cards`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "author_id"}).
			AddRow(int64(1), "First", int64(7)))

	body := `{"query":"{ card(id: \"Q2FyZDox\") { id title } }"}`
	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"card":{"id":"Q2FyZDox","title":"First"}}}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildHandler_Routes(t *testing.T) {
	_, _, handler := newHandlerApp(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/graphql", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBuildHandler_RejectsBrokenSchema(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cfg := &config.Config{Schema: config.SchemaConfig{Models: []config.ModelConfig{{
		Name:      "Card",
		Table:     "cards",
		Relations: []config.RelationConfig{{Name: "owner", Kind: "many_to_one", Target: "User", LocalColumn: "owner_id"}},
	}}}}
	app := &App{cfg: cfg, logger: testLogger()}
	_, _, err = app.buildHandler(db, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to build model registry")
}
