package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/opentracing/opentracing-go"

	"github.com/therealutkarshpriyadarshi/vidsum/internal/config"
	"github.com/therealutkarshpriyadarshi/vidsum/internal/logging"
	"github.com/therealutkarshpriyadarshi/vidsum/internal/tracing"
)

// DB wraps the PostgreSQL pool backing the account store
type DB struct {
	Pool *pgxpool.Pool
}

// New connects to the PostgreSQL account database described by cfg. Queries
// are traced, and those slower than cfg.SlowQueryThreshold are logged.
func New(cfg config.DatabaseConfig, logger *logging.Logger) (*DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d pool_min_conns=%d",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
		cfg.MaxConns, cfg.MinConns,
	)
	return Connect(dsn, &queryTracer{logger: logger, slow: cfg.SlowQueryThreshold})
}

// Connect opens a pool for a DSN or postgres:// URL. tracer may be nil.
func Connect(dsn string, tracer pgx.QueryTracer) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// Account traffic is light; recycle idle connections quickly
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute
	if tracer != nil {
		poolConfig.ConnConfig.Tracer = tracer
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close closes the pool
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// Health pings the database
func (db *DB) Health(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

type queryStateKey struct{}

type queryState struct {
	start time.Time
	sql   string
	span  opentracing.Span
}

// queryTracer wraps every query in a span and logs slow ones
type queryTracer struct {
	logger *logging.Logger
	slow   time.Duration
}

func (t *queryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	span, ctx := tracing.StartSpan(ctx, "db.query")
	tracing.SetTag(span, "db.statement", compactSQL(data.SQL))
	return context.WithValue(ctx, queryStateKey{}, &queryState{start: time.Now(), sql: data.SQL, span: span})
}

func (t *queryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	st, ok := ctx.Value(queryStateKey{}).(*queryState)
	if !ok {
		return
	}
	tracing.FinishSpan(st.span, data.Err)

	elapsed := time.Since(st.start)
	if t.logger == nil || t.slow <= 0 || elapsed < t.slow {
		return
	}
	t.logger.LogSlowQuery(compactSQL(st.sql), elapsed, data.Err)
}

// compactSQL collapses a multi-line statement onto one line
func compactSQL(sql string) string {
	return strings.Join(strings.Fields(sql), " ")
}
