package sql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/syssam/relmap/dialect"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriverDialect(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	for _, name := range []string{dialect.MySQL, dialect.Postgres, dialect.SQLite} {
		assert.Equal(t, name, OpenDB(name, db).Dialect())
		assert.Equal(t, name, OpenDB(name+"-debug", db).Dialect())
	}
	assert.Equal(t, "oracle", OpenDB("oracle", db).Dialect())
}

func TestConnObserver(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()
	type call struct {
		query   string
		failed  bool
		isQuery bool
	}
	var calls []call
	drv := Observe(OpenDB(dialect.MySQL, db), func(_ context.Context, query string, _ []any, _ time.Duration, err error, isQuery bool) {
		calls = append(calls, call{query: query, failed: err != nil, isQuery: isQuery})
	})
	ctx := context.Background()

	mock.ExpectExec("delete from users where id = ?").WithArgs(1).WillReturnResult(sqlmock.NewResult(0, 1))
	var res Result
	require.NoError(t, drv.Exec(ctx, "delete from users where id = ?", []any{1}, &res))
	n, err := res.RowsAffected()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	mock.ExpectQuery("select id from users").WillReturnError(errors.New("bad connection"))
	var rows Rows
	require.Error(t, drv.Query(ctx, "select id from users", []any{}, &rows))

	assert.Error(t, drv.Exec(ctx, "delete from users", []int{1}, nil))
	assert.Error(t, drv.Exec(ctx, "delete from users", []any{}, new(int)))
	assert.Error(t, drv.Query(ctx, "select id from users", []any{}, new(int)))
	assert.Equal(t, []call{
		{query: "delete from users where id = ?"},
		{query: "select id from users", failed: true, isQuery: true},
	}, calls)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBorrow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.SQLite, db)

	t.Run("Conn", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM users").WillReturnResult(sqlmock.NewResult(0, 2))
		s, release, err := drv.Borrow(context.Background())
		require.NoError(t, err)
		assert.Nil(t, s.Tx())
		var res Result
		require.NoError(t, s.Exec(context.Background(), "DELETE FROM users", []any{}, &res))
		n, err := res.RowsAffected()
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)
		require.NoError(t, release())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ContextTx", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM users").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
		tx, err := drv.BeginTx(context.Background(), nil)
		require.NoError(t, err)
		ctx := NewTxContext(context.Background(), tx)
		require.Same(t, tx, TxFromContext(ctx))
		s, release, err := drv.Borrow(ctx)
		require.NoError(t, err)
		assert.Same(t, tx, s.Tx())
		require.NoError(t, s.Exec(ctx, "DELETE FROM users", []any{}, nil))
		require.NoError(t, release())
		require.NoError(t, tx.Commit())
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

type recordingListener struct {
	events *[]string
	name   string
}

func (l recordingListener) BeforeRollback() { *l.events = append(*l.events, "before "+l.name) }
func (l recordingListener) AfterRollback()  { *l.events = append(*l.events, "after "+l.name) }

func TestTxRollbackListeners(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.Postgres, db)

	t.Run("Rollback", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectRollback()
		tx, err := drv.BeginTx(context.Background(), nil)
		require.NoError(t, err)
		var events []string
		tx.OnRollback(recordingListener{events: &events, name: "a"})
		tx.OnRollback(recordingListener{events: &events, name: "b"})
		tx.OnRollback(RollbackFunc(func() { events = append(events, "func") }))
		require.Equal(t, 3, tx.Listeners())
		require.NoError(t, tx.Rollback())
		assert.Equal(t, []string{"before a", "before b", "after a", "after b", "func"}, events)
		assert.Zero(t, tx.Listeners())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("CommitDropsListeners", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectCommit()
		tx, err := drv.BeginTx(context.Background(), nil)
		require.NoError(t, err)
		fired := false
		tx.OnRollback(RollbackFunc(func() { fired = true }))
		require.NoError(t, tx.Commit())
		assert.Zero(t, tx.Listeners())
		assert.False(t, fired)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RollbackError", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectRollback().WillReturnError(errors.New("connection lost"))
		tx, err := drv.BeginTx(context.Background(), nil)
		require.NoError(t, err)
		fired := false
		tx.OnRollback(RollbackFunc(func() { fired = true }))
		require.Error(t, tx.Rollback())
		assert.True(t, fired)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
