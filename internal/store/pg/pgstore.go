package pg

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DB wraps the shared connection pool.
type DB struct {
	db *sql.DB
}

// Open connects to PostgreSQL with pool settings suitable for a portal
// workload dominated by short point queries.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &DB{db: db}, nil
}

func (d *DB) Close() error { return d.db.Close() }

// DB exposes the underlying handle for stores and readiness probes.
func (d *DB) DB() *sql.DB { return d.db }

// Ping verifies connectivity.
func (d *DB) Ping(ctx context.Context) error { return d.db.PingContext(ctx) }
