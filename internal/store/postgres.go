package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"redarch/internal/archive"
	"redarch/internal/config"
)

// pgQueryCanceled is the SQLSTATE raised when statement_timeout expires.
const pgQueryCanceled = "57014"

// PostgresStore is the archive.Store backed by PostgreSQL through a pgx
// connection pool. All bulk loads run through the COPY protocol; the pool is
// the only shared mutable resource between pipeline workers.
type PostgresStore struct {
	pool    *pgxpool.Pool
	timeout time.Duration
	logger  archive.Logger
}

var _ archive.Store = (*PostgresStore)(nil)

// Open connects a PostgresStore using the database config. The connection is
// verified with a ping before the store is returned.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger archive.Logger) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to %s/%s: %w", cfg.Host, cfg.Name, err)
	}

	timeout := time.Duration(cfg.StatementTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &PostgresStore{pool: pool, timeout: timeout, logger: logger}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// aggregateCtx bounds heavy scan queries so they cannot pin a pool
// connection indefinitely.
func (s *PostgresStore) aggregateCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// mapQueryErr folds the two expiry shapes (client deadline, server
// statement cancel) into the query-timeout sentinel.
func mapQueryErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", archive.ErrQueryTimeout, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgQueryCanceled {
		return fmt.Errorf("%w: %v", archive.ErrQueryTimeout, err)
	}
	return err
}
