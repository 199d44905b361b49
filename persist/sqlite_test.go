package persist_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/relmap"
	"github.com/syssam/relmap/dialect/sql"
	"github.com/syssam/relmap/persist"
)

func TestSQLite_RoundTrip(t *testing.T) {
	u := newUsers()
	drv := sqliteDriver(t, createUsers)
	p, err := persist.New[*user](u.mapper, drv,
		persist.WithBatchSize(2),
		persist.WithInOperatorMaxSize(2),
		persist.WithOptimisticLock(u.version, persist.IntegerVersioning{}, u.mapper),
	)
	require.NoError(t, err)
	ctx := context.Background()

	entities := []*user{{ID: 1, Name: "ann"}, {ID: 2, Name: "bob", Email: "b@example.com"}, {ID: 3, Name: "cid"}}
	require.NoError(t, p.Insert(ctx, entities))

	found, err := p.Select(ctx, []any{3, 1, 2, 4})
	require.NoError(t, err)
	found = persist.OrderByIDs([]int64{3, 1, 2, 4}, found, func(u *user) int64 { return u.ID })
	require.Len(t, found, 3)
	assert.Equal(t, entities[2], found[0])
	assert.Equal(t, entities[0], found[1])
	assert.Equal(t, "b@example.com", found[2].Email)

	bob := found[2].clone()
	bob.Name = "bobby"
	n, err := p.UpdatePartially(ctx, []persist.Duplet[*user]{persist.Diff(bob, found[2])})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.EqualValues(t, 2, bob.Version)

	// The read copy still holds version 1.
	_, err = p.UpdatePartially(ctx, []persist.Duplet[*user]{persist.Diff(found[2].clone(), nil)})
	assert.True(t, relmap.IsStaleObject(err))

	got, err := p.SelectOne(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "bobby", got.Name)
	assert.EqualValues(t, 2, got.Version)

	n, err = p.Delete(ctx, []*user{got, found[0]})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	_, err = p.SelectOne(ctx, 3)
	assert.True(t, relmap.IsNotFound(err))

	require.NoError(t, p.Insert(ctx, []*user{{ID: 4, Name: "dan"}}))
	err = p.Insert(ctx, []*user{{ID: 4, Name: "dan"}})
	assert.True(t, relmap.IsConstraintError(err), "got %v", err)
	n, err = p.DeleteFromID(ctx, []any{1, 4, 5})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestSQLite_RevertOnRollback(t *testing.T) {
	u := newUsers()
	drv := sqliteDriver(t, createUsers, "insert into users (id, name, version) values (1, 'ann', 1)")
	p, err := persist.New[*user](u.mapper, drv, persist.WithOptimisticLock(u.version, persist.IntegerVersioning{}, u.mapper))
	require.NoError(t, err)
	ctx := context.Background()

	ann, err := p.SelectOne(ctx, 1)
	require.NoError(t, err)
	tx, err := drv.BeginTx(ctx, nil)
	require.NoError(t, err)
	modified := ann.clone()
	modified.Name = "anna"
	n, err := p.UpdatePartially(sql.NewTxContext(ctx, tx), []persist.Duplet[*user]{persist.Diff(modified, ann)})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.EqualValues(t, 2, modified.Version)
	assert.Equal(t, 1, tx.Listeners())

	require.NoError(t, tx.Rollback())
	assert.EqualValues(t, 1, modified.Version, "version restored on rollback")
	got, err := p.SelectOne(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "ann", got.Name)
	assert.EqualValues(t, 1, got.Version)

	tx, err = drv.BeginTx(ctx, nil)
	require.NoError(t, err)
	_, err = p.UpdatePartially(sql.NewTxContext(ctx, tx), []persist.Duplet[*user]{persist.Diff(modified, ann)})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.Zero(t, tx.Listeners())
	assert.EqualValues(t, 2, modified.Version)
}

func TestSQLite_GeneratedID(t *testing.T) {
	_, notes := newNotes()
	drv := sqliteDriver(t, "create table notes (id integer primary key autoincrement, body text not null)")
	p, err := persist.New[*note](notes, drv, persist.WithBatchSize(2))
	require.NoError(t, err)
	ctx := context.Background()

	entities := []*note{{Body: "a"}, {Body: "b"}, {Body: "c"}}
	require.NoError(t, p.Insert(ctx, entities))
	for i, n := range entities {
		assert.EqualValues(t, i+1, n.ID)
	}
	got, err := p.SelectOne(ctx, entities[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "b", got.Body)
}

func TestSQLite_UUIDIdentifier(t *testing.T) {
	_, tags := newTags()
	drv := sqliteDriver(t, "create table tags (id text primary key, label text not null)")
	p, err := persist.New[*tag](tags, drv)
	require.NoError(t, err)
	ctx := context.Background()

	fixed := uuid.New()
	entities := []*tag{{Label: "go"}, {ID: fixed, Label: "sql"}}
	require.NoError(t, p.Insert(ctx, entities))
	assert.NotEqual(t, uuid.Nil, entities[0].ID)
	assert.Equal(t, fixed, entities[1].ID, "assigned identifiers are kept")

	got, err := p.SelectOne(ctx, entities[0].ID)
	require.NoError(t, err)
	assert.Equal(t, entities[0], got)
}
