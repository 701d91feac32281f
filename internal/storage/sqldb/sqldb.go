// Package sqldb implements the storage.Gateway on top of database/sql.
//
// One implementation serves every supported database; the differences
// (placeholder style, how a generated key is read back, DDL) live in a
// small per-driver dialect.
//
// The blank imports register the drivers with database/sql. Their init()
// functions do this automatically; nothing in them is called directly.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aanand-mishra/e-learning-api/internal/config"
	"github.com/aanand-mishra/e-learning-api/internal/storage"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// sqlOpenFunc allows tests to override database opening behavior.
var sqlOpenFunc = sql.Open

// DB is the database/sql backed storage.Gateway.
// A single *sql.DB is a pool and is safe for concurrent use.
type DB struct {
	db      *sql.DB
	dialect dialect
}

// New opens the database described by cfg, checks that it answers, and
// creates the tables unless cfg.SkipBootstrap is set.
func New(ctx context.Context, cfg config.Storage) (*DB, error) {
	d, err := lookupDialect(cfg.Driver)
	if err != nil {
		return nil, fmt.Errorf("sqldb.New: %w", err)
	}

	db, err := sqlOpenFunc(d.driver, d.dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("sqldb.New: open db: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqldb.New: ping: %w", err)
	}

	s := &DB{db: db, dialect: d}

	if !cfg.SkipBootstrap {
		if err := s.Bootstrap(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return s, nil
}

// Wrap builds a gateway around an already open pool. The driver name
// selects the dialect.
func Wrap(db *sql.DB, driver string) (*DB, error) {
	d, err := lookupDialect(driver)
	if err != nil {
		return nil, fmt.Errorf("sqldb.Wrap: %w", err)
	}
	return &DB{db: db, dialect: d}, nil
}

// Bootstrap runs CREATE TABLE IF NOT EXISTS for every table. It is
// idempotent and safe to run on every start-up.
func (s *DB) Bootstrap(ctx context.Context) error {
	for _, ddl := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("sqldb.Bootstrap: create table: %w", err)
		}
	}
	return nil
}

// Close closes the underlying pool.
func (s *DB) Close() error {
	return s.db.Close()
}

// ─────────────────────────────────────────────────────────────────────────────
// Acquire pins one pooled connection and begins a transaction on it.
// Failures are wrapped with storage.ErrConnection.
//
// HOW A REQUEST'S CONNECTION WORKS:
// ──────────────────────────────────
// *sql.DB is a pool. db.Conn takes one connection out of it and keeps it
// for this request only, so every statement below runs on the same
// session. BeginTx then opens the transaction the handler either commits
// or rolls back. Release hands the connection back to the pool.
// ─────────────────────────────────────────────────────────────────────────────
func (s *DB) Acquire(ctx context.Context) (storage.Conn, error) {
	c, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrConnection, err)
	}

	tx, err := c.BeginTx(ctx, nil)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("%w: %v", storage.ErrConnection, err)
	}

	return &conn{conn: c, tx: tx, dialect: s.dialect}, nil
}

type conn struct {
	conn    *sql.Conn
	tx      *sql.Tx
	dialect dialect

	finished bool // tx committed or rolled back
	released bool
}

func (c *conn) Query(ctx context.Context, query string, args ...any) (storage.Rows, error) {
	rows, err := c.tx.QueryContext(ctx, c.dialect.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Exec runs one write statement inside the request's transaction.
//
// HOW THE GENERATED KEY IS READ BACK:
// ────────────────────────────────────
// MySQL and SQLite report the new id through Result.LastInsertId.
// PostgreSQL has no such call, so for a statement with a Key the query
// gets "RETURNING <key>" appended and the id is scanned like a row.
// ─────────────────────────────────────────────────────────────────────────────
func (c *conn) Exec(ctx context.Context, stmt storage.Statement) (storage.Result, error) {
	query := c.dialect.rebind(stmt.Query)

	if stmt.Key != "" && c.dialect.returning {
		var id int64
		err := c.tx.QueryRowContext(ctx, query+" RETURNING "+stmt.Key, stmt.Args...).Scan(&id)
		if err != nil {
			return storage.Result{}, err
		}
		return storage.Result{RowsAffected: 1, LastInsertID: id}, nil
	}

	res, err := c.tx.ExecContext(ctx, query, stmt.Args...)
	if err != nil {
		return storage.Result{}, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return storage.Result{}, fmt.Errorf("rows affected: %w", err)
	}

	out := storage.Result{RowsAffected: n}
	if stmt.Key != "" {
		id, err := res.LastInsertId()
		if err != nil {
			return storage.Result{}, fmt.Errorf("last insert id: %w", err)
		}
		out.LastInsertID = id
	}
	return out, nil
}

func (c *conn) Commit() error {
	c.finished = true
	return c.tx.Commit()
}

func (c *conn) Rollback() error {
	c.finished = true
	if err := c.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Release ends the request's use of the connection.
//
// HOW RELEASE KEEPS THE POOL CLEAN:
// ──────────────────────────────────
// A transaction left open would hold locks and poison the connection for
// the next request. If the handler returned without Commit or Rollback,
// Release rolls back first, then closes the *sql.Conn, which returns it to
// the pool rather than disconnecting. Calling it twice is a no-op.
// ─────────────────────────────────────────────────────────────────────────────
func (c *conn) Release() error {
	if c.released {
		return nil
	}
	c.released = true

	if !c.finished {
		_ = c.Rollback()
	}
	return c.conn.Close()
}
