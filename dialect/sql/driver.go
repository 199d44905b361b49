package sql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/syssam/relmap/dialect"
)

// Driver is a dialect.Driver implementation for SQL based databases.
type Driver struct {
	Conn
	dialect string
}

// NewDriver creates a new Driver with the given Conn and dialect.
func NewDriver(dialect string, c Conn) *Driver {
	return &Driver{dialect: dialect, Conn: c}
}

// Open wraps the database/sql.Open method and returns a Driver.
func Open(dialect, source string) (*Driver, error) {
	db, err := sql.Open(dialect, source)
	if err != nil {
		return nil, err
	}
	return OpenDB(dialect, db), nil
}

// OpenDB wraps the given database/sql.DB method with a Driver.
func OpenDB(dialect string, db *sql.DB) *Driver {
	return NewDriver(dialect, Conn{ExecQuerier: db, dialect: dialect})
}

// DB returns the underlying *sql.DB instance.
func (d Driver) DB() *sql.DB {
	return d.ExecQuerier.(*sql.DB)
}

// Dialect implements the dialect.Dialect method.
func (d Driver) Dialect() string { return baseDialect(d.dialect) }

// baseDialect strips the suffix a wrapping driver adds to the dialect name.
func baseDialect(name string) string {
	for _, base := range []string{dialect.MySQL, dialect.SQLite, dialect.Postgres} {
		if strings.HasPrefix(name, base) {
			return base
		}
	}
	return name
}

// Tx starts and returns a transaction.
func (d *Driver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// BeginTx starts a transaction with options.
func (d *Driver) BeginTx(ctx context.Context, opts *TxOptions) (*Tx, error) {
	tx, err := d.DB().BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Tx{
		Conn: Conn{ExecQuerier: tx, dialect: d.dialect, observer: d.observer},
		tx:   tx,
	}, nil
}

// Borrow returns a Session bound to a single connection for the duration of
// one logical call, and the function releasing it. When ctx carries a
// transaction (see NewTxContext), the session runs inside it. Variables
// attached with WithVar are set once on the session, before any statement of
// the call, and reset by the release function.
func (d *Driver) Borrow(ctx context.Context) (*Session, func() error, error) {
	vars := varsFromContext(ctx)
	if tx := TxFromContext(ctx); tx != nil {
		s := &Session{Conn: tx.Conn, tx: tx}
		reset, err := s.setVars(ctx, vars)
		if err != nil {
			return nil, nil, err
		}
		return s, reset, nil
	}
	conn, err := d.DB().Conn(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("dialect/sql: borrow connection: %w", err)
	}
	s := &Session{Conn: Conn{ExecQuerier: conn, dialect: d.dialect, observer: d.observer}}
	reset, err := s.setVars(ctx, vars)
	if err != nil {
		return nil, nil, errors.Join(err, conn.Close())
	}
	return s, func() error { return errors.Join(reset(), conn.Close()) }, nil
}

// Close closes the underlying connection.
func (d *Driver) Close() error { return d.DB().Close() }

// RollbackListener is notified around the rollback of a transaction.
type RollbackListener interface {
	BeforeRollback()
	AfterRollback()
}

// RollbackFunc adapts a function to a RollbackListener that runs after the
// rollback completed.
type RollbackFunc func()

// BeforeRollback implements RollbackListener.
func (RollbackFunc) BeforeRollback() {}

// AfterRollback implements RollbackListener.
func (f RollbackFunc) AfterRollback() { f() }

// Tx implements dialect.Tx interface. Listeners registered with OnRollback
// live as long as the transaction: they fire on Rollback and are dropped on
// Commit.
type Tx struct {
	Conn
	tx *sql.Tx

	mu        sync.Mutex
	listeners []RollbackListener
}

// OnRollback registers a listener fired if the transaction is rolled back.
func (tx *Tx) OnRollback(l RollbackListener) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.listeners = append(tx.listeners, l)
}

// Listeners returns the number of registered rollback listeners.
func (tx *Tx) Listeners() int {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return len(tx.listeners)
}

func (tx *Tx) takeListeners() []RollbackListener {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	ls := tx.listeners
	tx.listeners = nil
	return ls
}

// Commit commits the transaction.
func (tx *Tx) Commit() error {
	tx.takeListeners()
	return tx.tx.Commit()
}

// Rollback aborts the transaction and notifies the rollback listeners.
func (tx *Tx) Rollback() error {
	ls := tx.takeListeners()
	for _, l := range ls {
		l.BeforeRollback()
	}
	err := tx.tx.Rollback()
	for _, l := range ls {
		l.AfterRollback()
	}
	return err
}

var _ driver.Tx = (*Tx)(nil)

// txCtxKey is the key used for attaching a transaction to a context.
type txCtxKey struct{}

// NewTxContext returns a new context that carries the transaction. Sessions
// borrowed with that context run inside it.
func NewTxContext(ctx context.Context, tx *Tx) context.Context {
	return context.WithValue(ctx, txCtxKey{}, tx)
}

// TxFromContext returns the transaction stored in ctx, or nil.
func TxFromContext(ctx context.Context) *Tx {
	tx, _ := ctx.Value(txCtxKey{}).(*Tx)
	return tx
}

// Session is one connection, or one transaction, borrowed for the duration
// of a logical call. Every statement of a bulk operation goes through the
// same Session so that they all observe the same transaction.
type Session struct {
	Conn
	tx *Tx
}

// Tx returns the transaction of the session, or nil when the session runs
// in auto-commit mode.
func (s *Session) Tx() *Tx {
	return s.tx
}

// NewSession returns a Session over the given ExecQuerier, typically an
// *sql.Conn or *sql.Tx obtained by other means.
func NewSession(dialect string, ex ExecQuerier) *Session {
	return &Session{Conn: Conn{ExecQuerier: ex, dialect: dialect}}
}

// ExecQuerier wraps the standard Exec, Query and Prepare methods. It is
// implemented by *sql.DB, *sql.Conn and *sql.Tx.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// Observer is called after every statement executed through a Conn.
type Observer func(ctx context.Context, query string, args []any, took time.Duration, err error, isQuery bool)

// Conn implements dialect.ExecQuerier given ExecQuerier.
type Conn struct {
	ExecQuerier
	dialect  string
	observer Observer
}

func (c Conn) observe(ctx context.Context, query string, args []any, start time.Time, err error, isQuery bool) {
	if c.observer != nil {
		c.observer(ctx, query, args, time.Since(start), err, isQuery)
	}
}

// Exec implements the dialect.Exec method.
func (c Conn) Exec(ctx context.Context, query string, args, v any) error {
	argv, ok := args.([]any)
	if !ok {
		return fmt.Errorf("dialect/sql: invalid type %T. expect []any for args", args)
	}
	switch v.(type) {
	case nil, *sql.Result:
	default:
		return fmt.Errorf("dialect/sql: invalid type %T. expect *sql.Result", v)
	}
	start := time.Now()
	res, err := c.ExecContext(ctx, query, argv...)
	c.observe(ctx, query, argv, start, err, false)
	if err != nil {
		return fmt.Errorf("dialect/sql: exec: %w", err)
	}
	if r, ok := v.(*sql.Result); ok {
		*r = res
	}
	return nil
}

// Query implements the dialect.Query method.
func (c Conn) Query(ctx context.Context, query string, args, v any) error {
	vr, ok := v.(*Rows)
	if !ok {
		return fmt.Errorf("dialect/sql: invalid type %T. expect *sql.Rows", v)
	}
	argv, ok := args.([]any)
	if !ok {
		return fmt.Errorf("dialect/sql: invalid type %T. expect []any for args", args)
	}
	start := time.Now()
	rows, err := c.QueryContext(ctx, query, argv...)
	c.observe(ctx, query, argv, start, err, true)
	if err != nil {
		return fmt.Errorf("dialect/sql: query: %w", err)
	}
	*vr = Rows{rows}
	return nil
}

// Prepare creates a prepared statement on the underlying connection.
func (c Conn) Prepare(ctx context.Context, query string) (*sql.Stmt, error) {
	stmt, err := c.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: prepare: %w", err)
	}
	return stmt, nil
}

// ExecStmt executes a prepared statement and reports it to the observer.
func (c Conn) ExecStmt(ctx context.Context, stmt *sql.Stmt, query string, args []any) (sql.Result, error) {
	start := time.Now()
	res, err := stmt.ExecContext(ctx, args...)
	c.observe(ctx, query, args, start, err, false)
	return res, err
}

var _ dialect.Driver = (*Driver)(nil)

type (
	// Rows wraps the sql.Rows to avoid locks copy.
	Rows struct{ ColumnScanner }
	// Result is an alias to sql.Result.
	Result = sql.Result
	// NullBool is an alias to sql.NullBool.
	NullBool = sql.NullBool
	// NullInt64 is an alias to sql.NullInt64.
	NullInt64 = sql.NullInt64
	// NullString is an alias to sql.NullString.
	NullString = sql.NullString
	// NullFloat64 is an alias to sql.NullFloat64.
	NullFloat64 = sql.NullFloat64
	// NullTime represents a time.Time that may be null.
	NullTime = sql.NullTime
	// TxOptions holds the transaction options to be used in DB.BeginTx.
	TxOptions = sql.TxOptions
)

// ColumnScanner is the interface that wraps the standard
// sql.Rows methods used for scanning database rows.
type ColumnScanner interface {
	Close() error
	ColumnTypes() ([]*sql.ColumnType, error)
	Columns() ([]string, error)
	Err() error
	Next() bool
	NextResultSet() bool
	Scan(dest ...any) error
}
