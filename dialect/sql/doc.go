// Package sql wraps database/sql for relmap: drivers and sessions,
// transactions with rollback listeners, batched write operations, parameter
// lists and typed value readers.
//
// # Sessions
//
// Every persister call borrows one Session for its whole duration. Outside a
// transaction the session holds a dedicated connection, so that prepared
// statements and session variables stay on it. Inside a transaction carried
// by the context, the session runs on the transaction:
//
//	tx, err := drv.BeginTx(ctx, nil)
//	if err != nil {
//		return err
//	}
//	ctx = sql.NewTxContext(ctx, tx)
//	if _, err := users.UpdatePartially(ctx, diffs); err != nil {
//		return errors.Join(err, tx.Rollback())
//	}
//	return tx.Commit()
//
// Listeners registered with Tx.OnRollback run around a rollback and are
// dropped on commit.
//
// # Batches
//
// A WriteOperation prepares one statement and executes it once per staged
// row, summing the affected row counts:
//
//	w, err := sql.NewWriteOperation(ctx, s, "insert", "insert into users (id, name) values (?, ?)")
//	if err != nil {
//		return err
//	}
//	defer w.Close()
//	w.AddBatch([]any{1, "ann"})
//	w.AddBatch([]any{2, "bob"})
//	n, err := w.ExecuteBatch(ctx)
//
// # Dialects
//
// Statements are written with "?" placeholders. Dialect.Rebind rewrites them
// for PostgreSQL, and Dialect carries the batch size and the maximum number of
// parameters of an "in" clause:
//
//	d := sql.DialectFor(dialect.Postgres)
//	d.Rebind("select name from users where id " + sql.InPlaceholders(2))
//	// select name from users where id in ($1, $2)
//
// # Observation
//
// Observe chains a callback after every statement of a driver. StatsDriver
// counts statements and reports slow ones, and NewDebugDriver logs every
// statement with log/slog.
package sql
