// Package storage defines the Persistence Gateway: the contract every
// database backend satisfies so the HTTP layer never talks to a driver
// directly.
//
// A request's unit of work looks like:
//
//	conn, err := gw.Acquire(ctx)
//	if err != nil { ... }          // ErrConnection
//	defer conn.Release()           // runs on every exit path
//
//	res, err := conn.Exec(ctx, storage.Statement{...})
//	if err != nil {
//		conn.Rollback()
//		...
//	}
//	conn.Commit()
//
// Handlers (and their tests) only depend on these interfaces, so a fake
// or an sqlmock-backed gateway is enough to exercise them.
package storage

import (
	"context"
	"errors"
)

// ErrConnection is wrapped by Acquire when no live connection could be
// obtained from the store.
var ErrConnection = errors.New("connection error")

// Gateway hands out connections, each carrying its own transaction.
type Gateway interface {
	Acquire(ctx context.Context) (Conn, error)
}

// Conn is one acquired connection with an open transaction.
//
// Statements use "?" placeholders and positional arguments only; values
// are never concatenated into the SQL text.
type Conn interface {
	// Query runs a read and returns a cursor the caller must Close.
	Query(ctx context.Context, query string, args ...any) (Rows, error)

	// Exec runs a write and reports how many rows it touched and, for an
	// insert with Statement.Key set, the generated primary key.
	Exec(ctx context.Context, stmt Statement) (Result, error)

	Commit() error
	Rollback() error

	// Release rolls back anything not yet committed and hands the
	// connection back to the pool. It is safe to call more than once.
	Release() error
}

// Rows is the subset of *sql.Rows the handlers use.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// Statement is a parameterized write.
type Statement struct {
	Query string
	Args  []any

	// Key names the generated primary key column of an INSERT. Backends
	// without LastInsertId support use it to ask for the value back.
	Key string
}

// Result is the outcome of Exec.
type Result struct {
	RowsAffected int64
	LastInsertID int64
}
