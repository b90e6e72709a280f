// Package postgres stores raw bid records and skipped units in PostgreSQL.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool is the connection pool shared by the bid record and skip stores.
type Pool struct {
	*pgxpool.Pool
}

// PoolOptions tunes a pool. Zero values keep the settings of the DSN.
type PoolOptions struct {
	// MaxConns caps open connections. A smoothing pass reads one unit per
	// worker, so Workers+1 is enough.
	MaxConns int32

	// ApplicationName tags sessions in pg_stat_activity, e.g. "curves" or "ingest".
	ApplicationName string
}

// NewPool connects to the bid database and pings it.
func NewPool(ctx context.Context, dsn string, opts PoolOptions) (*Pool, error) {
	if opts.MaxConns < 0 {
		return nil, fmt.Errorf("postgres max conns must not be negative, got %d", opts.MaxConns)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
		if cfg.MinConns > cfg.MaxConns {
			cfg.MinConns = cfg.MaxConns
		}
	}
	if opts.ApplicationName != "" {
		cfg.ConnConfig.RuntimeParams["application_name"] = opts.ApplicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// Close releases every connection of the pool.
func (p *Pool) Close() {
	p.Pool.Close()
}
