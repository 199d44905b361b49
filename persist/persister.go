// Package persist writes and reads entities through a mapping.Strategy.
//
// A Persister stages writes in batches over one prepared statement per
// distinct column set, chunks bulk reads and deletes to the parameter limit
// of the dialect, and checks affected row counts against the rows it meant
// to change:
//
//	users, err := persist.New[*User](userMapper, drv,
//		persist.WithOptimisticLock(userVersion, persist.IntegerVersioning{}, userMapper),
//	)
//	if err != nil {
//		return err
//	}
//	if err := users.Insert(ctx, []*User{ann, bob}); err != nil {
//		return err
//	}
//	found, err := users.Select(ctx, []any{ann.ID, bob.ID})
//
// Every call borrows one connection from the provider for its whole
// duration. Run it with a context carrying a transaction (sql.NewTxContext)
// to have optimistic lock versions restored on rollback.
package persist

import (
	"context"
	"errors"
	"log/slog"

	"github.com/syssam/relmap"
	"github.com/syssam/relmap/dialect/sql"
	"github.com/syssam/relmap/dialect/sql/sqlgraph"
	"github.com/syssam/relmap/mapping"
	"github.com/syssam/relmap/metrics"
	"github.com/syssam/relmap/schema"
)

// Provider lends the connections statements run on. *sql.Driver and
// *sql.StatsDriver implement it.
type Provider interface {
	Borrow(ctx context.Context) (*sql.Session, func() error, error)
	Dialect() string
}

// Duplet pairs the modified state of an entity with the state it was read
// in. A nil Unmodified means every column changed.
type Duplet[E any] struct {
	Modified   E
	Unmodified E
}

// Diff returns the Duplet of an entity.
func Diff[E any](modified, unmodified E) Duplet[E] {
	return Duplet[E]{Modified: modified, Unmodified: unmodified}
}

type options struct {
	dialect   *sql.Dialect
	batchSize int
	inMaxSize int
	logger    *slog.Logger
	lock      OptimisticLockManager
	rows      RowCountManager
}

// Option configures a Persister.
type Option func(*options)

// WithDialect overrides the dialect constants derived from the provider.
func WithDialect(d sql.Dialect) Option {
	return func(o *options) {
		o.dialect = &d
	}
}

// WithBatchSize sets the number of rows staged before a batch is flushed.
func WithBatchSize(n int) Option {
	return func(o *options) {
		o.batchSize = n
	}
}

// WithInOperatorMaxSize sets the maximum number of keys of one "in" clause.
func WithInOperatorMaxSize(n int) Option {
	return func(o *options) {
		o.inMaxSize = n
	}
}

// WithLogger sets the logger of the persister. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithOptimisticLock versions rows with column, using a RevertOnRollbackMVCC
// lock manager.
func WithOptimisticLock(column *schema.Column, versioning VersioningStrategy, accessor VersionAccessor) Option {
	return WithLockManager(NewRevertOnRollbackMVCC(column, versioning, accessor))
}

// WithLockManager sets the optimistic lock manager. Defaults to
// NoopLockManager.
func WithLockManager(m OptimisticLockManager) Option {
	return func(o *options) {
		o.lock = m
	}
}

// WithRowCountManager sets the manager reconciling affected row counts of
// Update and Delete. Defaults to ThrowingRowCountManager.
func WithRowCountManager(m RowCountManager) Option {
	return func(o *options) {
		o.rows = m
	}
}

// Persister reads and writes entities of type E.
// It is safe for concurrent use.
type Persister[E any] struct {
	strategy mapping.Strategy
	provider Provider
	dialect  sql.Dialect
	logger   *slog.Logger
	lock     OptimisticLockManager
	rows     RowCountManager

	table     *schema.Table
	pk        *schema.Column
	positions map[*schema.Column]int
	selector  *sqlgraph.Transformer[E]
	// deleteKeys are the columns matched by Delete.
	deleteKeys []*schema.Column
}

// New returns a Persister of the entities mapped by strategy.
func New[E any](strategy mapping.Strategy, provider Provider, opts ...Option) (*Persister[E], error) {
	if strategy == nil {
		return nil, relmap.NewConfigError("persist", "nil strategy")
	}
	if provider == nil {
		return nil, relmap.NewConfigError("persist", "nil provider")
	}
	o := options{logger: slog.Default(), lock: NoopLockManager{}, rows: ThrowingRowCountManager{}}
	for _, opt := range opts {
		opt(&o)
	}
	d := sql.DialectFor(provider.Dialect())
	if o.dialect != nil {
		d = *o.dialect
	}
	if o.batchSize != 0 {
		d.BatchSize = o.batchSize
	}
	if o.inMaxSize != 0 {
		d.InOperatorMaxSize = o.inMaxSize
	}
	table := strategy.Table()
	switch {
	case d.BatchSize < 1:
		return nil, relmap.NewConfigError("persist", "invalid batch size %d", d.BatchSize)
	case d.InOperatorMaxSize < 1:
		return nil, relmap.NewConfigError("persist", "invalid in operator max size %d", d.InOperatorMaxSize)
	case len(table.PrimaryKey) != 1:
		return nil, relmap.NewConfigError("persist", "table %s must have a single column primary key", table.AbsoluteName())
	case o.logger == nil || o.lock == nil || o.rows == nil:
		return nil, relmap.NewConfigError("persist", "nil logger, lock manager or row count manager")
	}
	p := &Persister[E]{
		strategy:   strategy,
		provider:   provider,
		dialect:    d,
		logger:     o.logger.With("table", table.AbsoluteName()),
		lock:       o.lock,
		rows:       o.rows,
		table:      table,
		pk:         table.PrimaryKey[0],
		positions:  make(map[*schema.Column]int, len(table.Columns)),
		deleteKeys: []*schema.Column{table.PrimaryKey[0]},
	}
	for i, c := range table.Columns {
		p.positions[c] = i
	}
	if c := o.lock.Column(); c != nil {
		if c.Table != table {
			return nil, relmap.NewConfigError("persist", "version column %s does not belong to %s", c.AbsoluteName(), table.AbsoluteName())
		}
		found := false
		for _, k := range strategy.VersionedKeys() {
			found = found || k == c
		}
		if !found {
			return nil, relmap.NewConfigError("persist", "version column %s is not a versioned key of %s", c.AbsoluteName(), table.AbsoluteName())
		}
		p.deleteKeys = append(p.deleteKeys, c)
	}
	sel, err := sqlgraph.NewJoinedStrategiesSelect[E](strategy)
	if err != nil {
		return nil, err
	}
	p.selector = sel.Build()
	return p, nil
}

// Dialect returns the dialect constants of the persister.
func (p *Persister[E]) Dialect() sql.Dialect { return p.dialect }

// Strategy returns the mapping strategy of the persister.
func (p *Persister[E]) Strategy() mapping.Strategy { return p.strategy }

// borrow borrows a session and returns the function releasing it into err.
func (p *Persister[E]) borrow(ctx context.Context, op string) (*sql.Session, func(*error), error) {
	s, release, err := p.provider.Borrow(ctx)
	if err != nil {
		return nil, nil, relmap.NewExecutionError(op, "", err)
	}
	return s, func(err *error) {
		if rerr := release(); rerr != nil {
			*err = errors.Join(*err, relmap.NewExecutionError(op, "", rerr))
		}
	}, nil
}

// flush executes the staged rows of w.
func (p *Persister[E]) flush(ctx context.Context, op string, w *sql.WriteOperation) (int64, error) {
	rows := w.Pending()
	if rows == 0 {
		return 0, nil
	}
	n, err := w.ExecuteBatch(ctx)
	metrics.Batch(op, rows)
	if err != nil {
		return n, classify(err)
	}
	p.logger.DebugContext(ctx, "batch flushed", "statement", w.Query(), "batch", rows, "affected", n)
	return n, nil
}

// check reconciles the affected row count of a write call.
func (p *Persister[E]) check(ctx context.Context, op string, counter *RowCounter, affected int64) error {
	err := p.rows.CheckRowCount(counter, affected)
	if relmap.IsStaleObject(err) {
		metrics.Stale(p.table.AbsoluteName())
		p.logger.WarnContext(ctx, "stale write", "op", op, "expected", counter.Size(), "affected", affected)
	}
	return err
}

// classify marks constraint violations of an execution error.
func classify(err error) error {
	var ee *relmap.ExecutionError
	if errors.As(err, &ee) {
		ee.Err = sqlgraph.WrapConstraintError(ee.Err)
	}
	return err
}

// closeAll closes write operations into err.
func closeAll(err *error, ops ...*sql.WriteOperation) {
	for _, w := range ops {
		if w == nil {
			continue
		}
		if cerr := w.Close(); cerr != nil {
			*err = errors.Join(*err, cerr)
		}
	}
}
