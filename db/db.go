package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	//nolint:revive,nolintlint // Idiomatic way of loading DB libraries.
	_ "github.com/glebarez/go-sqlite"

	"go.hackfix.me/d1migrate/db/types"
)

// DB wraps sql.DB with additional context and an exclusive-transaction guard.
type DB struct {
	*sql.DB
	ctx     context.Context
	timeNow func() time.Time
	path    string

	mx sync.Mutex
	tx *Tx
}

var _ types.Querier = (*DB)(nil)

// Open creates and configures a new SQLite database connection.
func Open(ctx context.Context, path string, timeNow func() time.Time) (*DB, error) {
	var d *DB
	if strings.Contains(path, "mode=memory") || strings.Contains(path, ":memory:") {
		defer func() {
			if d != nil {
				// See https://github.com/mattn/go-sqlite3#faq
				d.SetMaxIdleConns(10)
				d.SetConnMaxLifetime(time.Duration(math.Inf(1)))
			}
		}()
	}

	sqliteDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed opening SQLite database: %w", err)
	}

	if timeNow == nil {
		timeNow = time.Now
	}
	d = &DB{DB: sqliteDB, ctx: ctx, path: path, timeNow: timeNow}

	return d, nil
}

// NewContext returns a new child context of the main database context.
func (d *DB) NewContext() context.Context {
	// TODO: Return cancel func?
	ctx, _ := context.WithCancel(d.ctx) //nolint:govet // I'll handle this later...
	return ctx
}

// Path returns the filesystem path the database was opened with.
func (d *DB) Path() string {
	return d.path
}

// TimeNow returns the current system time.
func (d *DB) TimeNow() time.Time {
	return d.timeNow()
}

// BeginExclusive starts a transaction, failing with types.InTransactionError
// if one started through this wrapper is still open. Operations that must be
// all-or-nothing, like installing triggers across all tables, refuse to nest
// inside a caller's transaction.
func (d *DB) BeginExclusive(ctx context.Context) (*Tx, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	if d.tx != nil {
		return nil, types.InTransactionError{}
	}

	sqlTx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed starting transaction: %w", err)
	}

	tx := &Tx{Tx: sqlTx, d: d}
	d.tx = tx

	return tx, nil
}

func (d *DB) release(tx *Tx) {
	d.mx.Lock()
	defer d.mx.Unlock()
	if d.tx == tx {
		d.tx = nil
	}
}

// Tx is an open database transaction. It satisfies types.Querier, so any
// query that accepts the DB also runs inside a transaction.
type Tx struct {
	*sql.Tx
	d *DB
}

var _ types.Querier = (*Tx)(nil)

// NewContext returns a new child context of the main database context.
func (t *Tx) NewContext() context.Context {
	return t.d.NewContext()
}

// TimeNow returns the current system time.
func (t *Tx) TimeNow() time.Time {
	return t.d.TimeNow()
}

// Commit commits the transaction and releases the exclusive guard.
func (t *Tx) Commit() error {
	t.d.release(t)
	if err := t.Tx.Commit(); err != nil {
		return fmt.Errorf("failed committing transaction: %w", err)
	}
	return nil
}

// Rollback aborts the transaction and releases the exclusive guard. Calling
// it after Commit is a no-op, so it is safe to defer.
func (t *Tx) Rollback() error {
	t.d.release(t)
	if err := t.Tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed rolling back transaction: %w", err)
	}
	return nil
}
