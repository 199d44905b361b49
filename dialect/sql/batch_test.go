package sql

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/relmap"
	"github.com/syssam/relmap/dialect"
)

func TestWriteOperation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.MySQL, db)
	ctx := context.Background()

	t.Run("ExecuteBatch", func(t *testing.T) {
		const q = "insert into users (id, name) values (?, ?)"
		prep := mock.ExpectPrepare(`insert into users \(id, name\) values \(\?, \?\)`)
		prep.ExpectExec().WithArgs(1, "a").WillReturnResult(sqlmock.NewResult(1, 1))
		prep.ExpectExec().WithArgs(2, "b").WillReturnResult(sqlmock.NewResult(2, 1))
		s, release, err := drv.Borrow(ctx)
		require.NoError(t, err)
		defer release()
		w, err := NewWriteOperation(ctx, s, "insert", q)
		require.NoError(t, err)
		var ids []int64
		after := func(r Result) error {
			id, err := r.LastInsertId()
			ids = append(ids, id)
			return err
		}
		w.AddBatch([]any{1, "a"}, after)
		w.AddBatch([]any{2, "b"}, after)
		require.Equal(t, 2, w.Pending())
		n, err := w.ExecuteBatch(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)
		assert.Equal(t, []int64{1, 2}, ids)
		assert.Zero(t, w.Pending())
		require.NoError(t, w.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ExecError", func(t *testing.T) {
		const q = "delete from users where id = ?"
		prep := mock.ExpectPrepare(`delete from users where id = \?`)
		prep.ExpectExec().WithArgs(1).WillReturnResult(sqlmock.NewResult(0, 1))
		prep.ExpectExec().WithArgs(2).WillReturnError(errors.New("boom"))
		s, release, err := drv.Borrow(ctx)
		require.NoError(t, err)
		defer release()
		w, err := NewWriteOperation(ctx, s, "delete", q)
		require.NoError(t, err)
		defer w.Close()
		for _, id := range []int{1, 2, 3} {
			w.AddBatch([]any{id})
		}
		n, err := w.ExecuteBatch(ctx)
		require.Error(t, err)
		assert.EqualValues(t, 1, n)
		assert.True(t, relmap.IsExecutionError(err))
		var ee *relmap.ExecutionError
		require.ErrorAs(t, err, &ee)
		assert.Equal(t, q, ee.Query)
		assert.Zero(t, w.Pending())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("PrepareError", func(t *testing.T) {
		mock.ExpectPrepare("update").WillReturnError(errors.New("syntax"))
		s, release, err := drv.Borrow(ctx)
		require.NoError(t, err)
		defer release()
		_, err = NewWriteOperation(ctx, s, "update", "update users set")
		require.True(t, relmap.IsExecutionError(err))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
