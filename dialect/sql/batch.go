package sql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/syssam/relmap"
)

// WriteOperation is a prepared write statement plus the rows waiting to be
// executed with it. Rows are staged with AddBatch and sent with ExecuteBatch,
// one execution per row over the same prepared statement and session.
type WriteOperation struct {
	session *Session
	op      string
	query   string
	stmt    *sql.Stmt
	pending []pendingRow
}

type pendingRow struct {
	args  []any
	after func(Result) error
}

// NewWriteOperation prepares query on the session. op names the operation in
// errors, for example "insert" or "update".
func NewWriteOperation(ctx context.Context, s *Session, op, query string) (*WriteOperation, error) {
	stmt, err := s.Prepare(ctx, query)
	if err != nil {
		return nil, relmap.NewExecutionError(op, query, err)
	}
	return &WriteOperation{session: s, op: op, query: query, stmt: stmt}, nil
}

// Query returns the statement text.
func (w *WriteOperation) Query() string { return w.query }

// Pending returns the number of staged rows.
func (w *WriteOperation) Pending() int { return len(w.pending) }

// AddBatch stages one row. The optional after function receives the result
// of the row once executed, for example to read a generated identifier.
func (w *WriteOperation) AddBatch(args []any, after ...func(Result) error) {
	r := pendingRow{args: args}
	if len(after) > 0 {
		r.after = after[0]
	}
	w.pending = append(w.pending, r)
}

// ExecuteBatch executes the staged rows and returns the sum of the affected
// row counts. The batch is empty afterwards, whatever the outcome. The first
// failing row aborts the remaining ones.
func (w *WriteOperation) ExecuteBatch(ctx context.Context) (int64, error) {
	rows := w.pending
	w.pending = w.pending[:0]
	var total int64
	for _, r := range rows {
		res, err := w.session.ExecStmt(ctx, w.stmt, w.query, r.args)
		if err != nil {
			return total, relmap.NewExecutionError(w.op, w.query, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, relmap.NewExecutionError(w.op, w.query, err)
		}
		total += n
		if r.after != nil {
			if err := r.after(res); err != nil {
				return total, relmap.NewExecutionError(w.op, w.query, err)
			}
		}
	}
	return total, nil
}

// Close releases the prepared statement. Staged rows are discarded.
func (w *WriteOperation) Close() error {
	w.pending = nil
	if w.stmt == nil {
		return nil
	}
	err := w.stmt.Close()
	w.stmt = nil
	if err != nil && !errors.Is(err, sql.ErrConnDone) {
		return relmap.NewExecutionError(w.op, w.query, err)
	}
	return nil
}
