// Package duck wraps the embedded DuckDB engine behind small DB and
// Connection interfaces so the rest of the server can be tested against
// fakes.
package duck

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/duckdb/duckdb-go/v2"
)

type DB interface {
	Conn(ctx context.Context) (Connection, error)
	Close() error
}

type Connection interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	Close() error
}

type duckDB struct {
	db *sql.DB
}

type duckDBConn struct {
	conn *sql.Conn
}

// Open opens a DuckDB database. An empty path or ":memory:" opens an
// in-memory database; views created on it are shared by every
// connection drawn from the same handle.
func Open(dbPath string) (DB, error) {
	if dbPath == ":memory:" {
		dbPath = ""
	}
	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &duckDB{db: db}, nil
}

func (d *duckDB) Conn(ctx context.Context) (Connection, error) {
	conn, err := d.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection: %w", err)
	}
	return &duckDBConn{conn: conn}, nil
}

func (d *duckDB) Close() error {
	return d.db.Close()
}

func (c *duckDBConn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.conn.ExecContext(ctx, query, args...)
}

func (c *duckDBConn) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.conn.QueryContext(ctx, query, args...)
}

func (c *duckDBConn) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return c.conn.QueryRowContext(ctx, query, args...)
}

func (c *duckDBConn) Close() error {
	return c.conn.Close()
}
