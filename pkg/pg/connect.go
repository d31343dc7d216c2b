package pg

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"
)

// Connect establishes the central PostgreSQL connection pool with retry
// logic so that the platform survives a database that is still starting up.
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	connConfig, err := pgxpool.ParseConfig(cfg.ConnectionString)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseDBConfig, err)
	}
	connConfig.MaxConns = cfg.MaxOpenConns
	connConfig.MinConns = cfg.MaxIdleConns
	connConfig.HealthCheckPeriod = cfg.HealthCheckPeriod
	connConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	connConfig.MaxConnLifetime = cfg.MaxConnLifetime

	attempts := cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	interval := cfg.RetryInterval
	if interval <= 0 {
		interval = time.Second
	}

	var pool *pgxpool.Pool
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewFibonacci(interval))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		conn, err := pgxpool.NewWithConfig(ctx, connConfig)
		if err != nil {
			return retry.RetryableError(err)
		}
		// Verify connectivity with an actual ping to catch authentication
		// and permission issues before the pool is handed out.
		if err := conn.Ping(ctx); err != nil {
			conn.Close()
			return retry.RetryableError(err)
		}
		pool = conn
		return nil
	})
	if err != nil {
		return nil, errors.Join(ErrFailedToOpenDBConnection, err)
	}

	return pool, nil
}
