// Package postgres implements the engine stores on PostgreSQL through sqlx
// and the pgx stdlib driver.
package postgres

import (
	"context"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

const driverName = "pgx"

type DB struct {
	conn *sqlx.DB
}

// Option configures the connection pool.
type Option func(*sqlx.DB)

func WithMaxOpenConns(n int) Option {
	return func(db *sqlx.DB) { db.SetMaxOpenConns(n) }
}

func WithConnMaxLifetime(d time.Duration) Option {
	return func(db *sqlx.DB) { db.SetConnMaxLifetime(d) }
}

// Open connects and pings the database.
func Open(ctx context.Context, dsn string, opts ...Option) (*DB, error) {
	conn, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	conn.SetMaxOpenConns(10)
	conn.SetConnMaxLifetime(30 * time.Minute)
	for _, opt := range opts {
		opt(conn)
	}

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &DB{conn: conn}, nil
}

// NewDB wraps an existing handle.
func NewDB(conn *sqlx.DB) *DB {
	return &DB{conn: conn}
}

func (db *DB) Close() error {
	return db.conn.Close()
}
