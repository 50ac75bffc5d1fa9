package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Defaults applied by NewPool when the corresponding PoolConfig field is
// zero.
const (
	DefaultMaxConns          = 20
	DefaultMinConns          = 5
	DefaultMaxConnLifetime   = time.Hour
	DefaultMaxConnIdleTime   = 30 * time.Minute
	DefaultHealthCheckPeriod = time.Minute
	DefaultConnectTimeout    = 10 * time.Second
)

// PoolConfig configures the pgx connection pool shared by the profile and
// item stores and the audit sink.
type PoolConfig struct {
	// ConnString is a postgres:// connection URL.
	ConnString string

	MaxConns int32
	MinConns int32

	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	ConnectTimeout    time.Duration
}

func (c *PoolConfig) withDefaults() PoolConfig {
	out := *c
	if out.MaxConns == 0 {
		out.MaxConns = DefaultMaxConns
	}
	if out.MinConns == 0 {
		out.MinConns = DefaultMinConns
	}
	if out.MaxConnLifetime == 0 {
		out.MaxConnLifetime = DefaultMaxConnLifetime
	}
	if out.MaxConnIdleTime == 0 {
		out.MaxConnIdleTime = DefaultMaxConnIdleTime
	}
	if out.HealthCheckPeriod == 0 {
		out.HealthCheckPeriod = DefaultHealthCheckPeriod
	}
	if out.ConnectTimeout == 0 {
		out.ConnectTimeout = DefaultConnectTimeout
	}
	return out
}

// NewPool connects a pgx pool using cfg, filling zero fields with the
// package defaults, and pings it before returning.
func NewPool(ctx context.Context, cfg *PoolConfig) (*pgxpool.Pool, error) {
	if cfg == nil || cfg.ConnString == "" {
		return nil, fmt.Errorf("connection string is required")
	}

	resolved := cfg.withDefaults()

	poolConfig, err := pgxpool.ParseConfig(resolved.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolConfig.MaxConns = resolved.MaxConns
	poolConfig.MinConns = resolved.MinConns
	poolConfig.MaxConnLifetime = resolved.MaxConnLifetime
	poolConfig.MaxConnIdleTime = resolved.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = resolved.HealthCheckPeriod
	poolConfig.ConnConfig.ConnectTimeout = resolved.ConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
