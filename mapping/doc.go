// Package mapping defines how entities are bound to tables.
//
// Strategy is the contract the query and write executors consume. Mapper
// implements it with one Binding per column:
//
//	type User struct {
//	    ID      int64
//	    Name    string
//	    Version int64
//	}
//
//	users := schema.NewTable(mapping.TableName[*User]())
//	id := users.AddColumn("id", field.TypeInt64, schema.PrimaryKey())
//	name := users.AddColumn("name", field.TypeString)
//	version := users.AddColumn("version", field.TypeInt64)
//
//	m := mapping.MustMapper(users, func() *User { return &User{} }, []mapping.Binding[*User]{
//	    mapping.Bind(id, func(u *User) int64 { return u.ID }, func(u *User, v int64) { u.ID = v }),
//	    mapping.Bind(name, func(u *User) string { return u.Name }, func(u *User, v string) { u.Name = v }),
//	    mapping.Bind(version, func(u *User) int64 { return u.Version }, func(u *User, v int64) { u.Version = v }),
//	}, mapping.WithVersion[*User](version))
//
// UpdateValues keys its result by UpwhereColumn, so that one column can be
// both a SET target and a WHERE predicate of the same statement.
package mapping
