// Package postgres implements store.Repository on PostgreSQL using pgx,
// squirrel for statement building and scany for row mapping.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolConfig configures the connection pool.
type PoolConfig struct {
	DSN string

	// Default: 10
	MaxConns int32

	// Default: 1
	MinConns int32

	// Default: 1 hour
	MaxConnLifetime time.Duration

	// Default: 30 minutes
	MaxConnIdleTime time.Duration

	// ApplicationName is reported to the server for each connection.
	// Default: "voxlink"
	ApplicationName string
}

// NewPool opens and pings a connection pool.
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = 10
	}
	if cfg.MinConns <= 0 {
		cfg.MinConns = 1
	}
	if cfg.MaxConnLifetime <= 0 {
		cfg.MaxConnLifetime = time.Hour
	}
	if cfg.MaxConnIdleTime <= 0 {
		cfg.MaxConnIdleTime = 30 * time.Minute
	}
	if cfg.ApplicationName == "" {
		cfg.ApplicationName = "voxlink"
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolConfig.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Schema creates the numbers table.
const Schema = `
CREATE TABLE IF NOT EXISTS provisioned_numbers (
    phone_number   TEXT PRIMARY KEY,
    provider       TEXT NOT NULL,
    status         TEXT NOT NULL,
    account_id     TEXT NOT NULL DEFAULT '',
    reservation_id TEXT NOT NULL DEFAULT '',
    purchase_id    TEXT NOT NULL DEFAULT '',
    porting_id     TEXT NOT NULL DEFAULT '',
    expires_at     TIMESTAMPTZ,
    updated_at     TIMESTAMPTZ NOT NULL
)`

// Migrate applies Schema.
func Migrate(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Compile-time check that a pool can serve as DB.
var _ DB = (*pgxpool.Pool)(nil)
