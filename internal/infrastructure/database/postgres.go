package database

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// Option adjusts the pool configuration before the pool is created.
type Option func(*pgxpool.Config)

// WithMaxConns caps the pool size. Non-positive values keep the default.
func WithMaxConns(n int32) Option {
	return func(cfg *pgxpool.Config) {
		if n > 0 {
			cfg.MaxConns = n
		}
	}
}

// Connect opens a pgx pool on dsn and pings it before returning.
// DSNs copied from SQLAlchemy-style .env files ("postgresql+asyncpg://") are accepted.
func Connect(ctx context.Context, dsn string, opts ...Option) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(normalizeDSN(dsn))
	if err != nil {
		return nil, errors.Wrap(err, "postgres: parse config")
	}
	applyDefaults(cfg)
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "postgres: new pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "postgres: ping")
	}
	return pool, nil
}

// applyDefaults sizes the pool for a chat node: a handful of connections
// shared by short queries, recycled hourly.
func applyDefaults(cfg *pgxpool.Config) {
	cfg.MaxConns = 8
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.MaxConnLifetime = time.Hour
	cfg.HealthCheckPeriod = time.Minute
}

var driverSuffixes = []struct{ from, to string }{
	{"postgresql+asyncpg://", "postgresql://"},
	{"postgres+asyncpg://", "postgres://"},
	{"postgresql+pgx://", "postgresql://"},
	{"postgres+pgx://", "postgres://"},
}

// normalizeDSN strips driver suffixes pgx does not understand.
func normalizeDSN(dsn string) string {
	s := strings.TrimSpace(dsn)
	for _, d := range driverSuffixes {
		if strings.HasPrefix(s, d.from) {
			return d.to + strings.TrimPrefix(s, d.from)
		}
	}
	return s
}
