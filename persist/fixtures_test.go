package persist_test

import (
	"context"
	stdsql "database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/syssam/relmap/dialect"
	"github.com/syssam/relmap/dialect/sql"
	"github.com/syssam/relmap/mapping"
	"github.com/syssam/relmap/schema"
	"github.com/syssam/relmap/schema/field"
)

type user struct {
	ID      int64
	Name    string
	Email   string
	Version int64
}

func (u *user) clone() *user {
	c := *u
	return &c
}

type users struct {
	table  *schema.Table
	mapper *mapping.Mapper[*user]

	id, name, email, version *schema.Column
}

func newUsers(opts ...mapping.MapperOption[*user]) *users {
	u := &users{table: schema.NewTable("users")}
	u.id = u.table.AddColumn("id", field.TypeInt64, schema.PrimaryKey())
	u.name = u.table.AddColumn("name", field.TypeString)
	u.email = u.table.AddColumn("email", field.TypeString, schema.Nullable())
	u.version = u.table.AddColumn("version", field.TypeInt64)
	opts = append([]mapping.MapperOption[*user]{mapping.WithVersion[*user](u.version)}, opts...)
	u.mapper = mapping.MustMapper(u.table, func() *user { return &user{} }, []mapping.Binding[*user]{
		mapping.Bind(u.id, func(e *user) int64 { return e.ID }, func(e *user, v int64) { e.ID = v }),
		mapping.Bind(u.name, func(e *user) string { return e.Name }, func(e *user, v string) { e.Name = v }),
		mapping.Bind(u.email, func(e *user) string { return e.Email }, func(e *user, v string) { e.Email = v }),
		mapping.Bind(u.version, func(e *user) int64 { return e.Version }, func(e *user, v int64) { e.Version = v }),
	}, opts...)
	return u
}

type note struct {
	ID   int64
	Body string
}

func newNotes() (*schema.Table, *mapping.Mapper[*note]) {
	t := schema.NewTable("notes")
	id := t.AddColumn("id", field.TypeInt64, schema.PrimaryKey(), schema.AutoGenerated())
	body := t.AddColumn("body", field.TypeString)
	return t, mapping.MustMapper(t, func() *note { return &note{} }, []mapping.Binding[*note]{
		mapping.Bind(id, func(n *note) int64 { return n.ID }, func(n *note, v int64) { n.ID = v }),
		mapping.Bind(body, func(n *note) string { return n.Body }, func(n *note, v string) { n.Body = v }),
	}, mapping.WithIdentifierPolicy[*note](mapping.DatabaseGenerated))
}

type tag struct {
	ID    uuid.UUID
	Label string
}

func newTags() (*schema.Table, *mapping.Mapper[*tag]) {
	t := schema.NewTable("tags")
	id := t.AddColumn("id", field.TypeUUID, schema.PrimaryKey())
	label := t.AddColumn("label", field.TypeString)
	return t, mapping.MustMapper(t, func() *tag { return &tag{} }, []mapping.Binding[*tag]{
		mapping.Bind(id, func(e *tag) uuid.UUID { return e.ID }, func(e *tag, v uuid.UUID) { e.ID = v }),
		mapping.Bind(label, func(e *tag) string { return e.Label }, func(e *tag, v string) { e.Label = v }),
	}, mapping.WithIdentifierPolicy[*tag](mapping.UUIDIdentifier))
}

// mockDriver returns a MySQL driver over sqlmock matching statements
// verbatim.
func mockDriver(t *testing.T) (*sql.Driver, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sql.OpenDB(dialect.MySQL, db), mock
}

// sqliteDriver returns a driver over a single connection in-memory SQLite
// database created with stmts.
func sqliteDriver(t *testing.T, stmts ...string) *sql.Driver {
	t.Helper()
	db, err := stdsql.Open(dialect.SQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	db.SetMaxOpenConns(1)
	for _, stmt := range stmts {
		_, err := db.ExecContext(context.Background(), stmt)
		require.NoError(t, err, stmt)
	}
	return sql.OpenDB(dialect.SQLite, db)
}

const createUsers = "create table users (id integer primary key, name text not null, email text, version integer not null)"
