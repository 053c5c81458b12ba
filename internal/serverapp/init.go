package serverapp

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/graphql-go/graphql"

	"relay-paging/internal/dbexec"
	"relay-paging/internal/eager"
	"relay-paging/internal/observability"
	"relay-paging/internal/resolver"
)

// Init initializes all runtime resources. It is idempotent. Resources
// acquired before a failure are released before Init returns.
func (a *App) Init(ctx context.Context) error {
	a.stateMu.Lock()
	if a.initialized {
		a.stateMu.Unlock()
		return nil
	}
	a.stateMu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}

	cleanup := cleanupStack{}
	success := false
	defer func() {
		if !success {
			cleanup.run(context.Background(), a.logger)
		}
	}()

	if a.loggerProvider != nil {
		cleanup.push("logger provider", func(shutdownCtx context.Context) error {
			return a.loggerProvider.Shutdown(shutdownCtx, a.logger.Logger)
		})
	}

	meterProvider, pagingMetrics, err := initMetrics(a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry metrics: %w", err)
	}
	if meterProvider != nil {
		cleanup.push("meter provider", func(shutdownCtx context.Context) error {
			return meterProvider.Shutdown(shutdownCtx, a.logger.Logger)
		})
	}

	tracerProvider, err := initTracing(a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry tracing: %w", err)
	}
	if tracerProvider != nil {
		cleanup.push("tracer provider", func(shutdownCtx context.Context) error {
			return tracerProvider.Shutdown(shutdownCtx, a.logger.Logger)
		})
	}

	a.logger.Info("connecting to database",
		slog.String("host", a.cfg.Database.Host),
		slog.Int("port", a.cfg.Database.Port),
		slog.String("database", a.cfg.Database.Database),
		slog.Bool("dsn_present", a.cfg.Database.ConnectionString != ""),
	)
	db, dbStatsReg, err := connectDB(a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	cleanup.push("database", func(_ context.Context) error {
		if dbStatsReg != nil {
			if err := dbStatsReg.Unregister(); err != nil {
				a.logger.Warn("failed to unregister DB stats metrics", slog.String("error", err.Error()))
			}
		}
		return db.Close()
	})

	if err := configureDatabase(ctx, a.cfg, a.logger, db); err != nil {
		return fmt.Errorf("failed to verify database connection: %w", err)
	}

	var metricsHandler http.Handler
	if meterProvider != nil {
		metricsHandler = meterProvider.Handler()
	}
	schema, handler, err := a.buildHandler(db, pagingMetrics, metricsHandler)
	if err != nil {
		return err
	}

	serverAddr := fmt.Sprintf(":%d", a.cfg.Server.Port)
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  a.cfg.Server.IdleTimeout,
	}
	cleanup.push("HTTP server", func(shutdownCtx context.Context) error {
		return srv.Shutdown(shutdownCtx)
	})

	a.stateMu.Lock()
	a.meterProvider = meterProvider
	a.tracerProvider = tracerProvider
	a.pagingMetrics = pagingMetrics
	a.db = db
	a.dbStatsReg = dbStatsReg
	a.schema = schema
	a.handler = handler
	a.serverAddr = serverAddr
	a.srv = srv
	a.cleanup = cleanup
	a.initialized = true
	a.stateMu.Unlock()

	success = true
	return nil
}

// buildHandler builds the schema over db and the HTTP handler serving it. A
// nil metricsHandler leaves /metrics unmounted.
func (a *App) buildHandler(db *sql.DB, metrics *observability.PagingMetrics, metricsHandler http.Handler) (graphql.Schema, http.Handler, error) {
	registry, err := a.cfg.Schema.BuildRegistry()
	if err != nil {
		return graphql.Schema{}, nil, fmt.Errorf("failed to build model registry: %w", err)
	}

	loader := eager.NewLoader(dbexec.NewStandardExecutor(db), registry, eager.WithMetrics(metrics))
	schema, err := resolver.BuildSchema(registry, loader, resolver.Config{
		DefaultFirst: a.cfg.Paging.DefaultFirst,
		MaxFirst:     a.cfg.Paging.MaxFirst,
		ColumnTypes:  a.cfg.Schema.ColumnTypes(),
		Naming:       a.cfg.Naming,
		Metrics:      metrics,
	})
	if err != nil {
		return graphql.Schema{}, nil, fmt.Errorf("failed to build GraphQL schema: %w", err)
	}
	a.logger.Info("GraphQL schema built",
		slog.Int("models", len(registry.Models())),
		slog.Int("default_first", a.cfg.Paging.DefaultFirst),
		slog.Int("max_first", a.cfg.Paging.MaxFirst),
	)

	graphqlHandler := buildGraphQLHandler(a.cfg, a.logger, &schema, metrics)
	mux := buildRouter(a.cfg, a.logger, db, graphqlHandler, metricsHandler)
	return schema, wrapHTTPHandler(a.cfg, a.logger, mux), nil
}
