// Package schema describes the tables and columns that mapping strategies
// bind entities to.
//
// Tables are declared once, at configuration time, and are read-only
// afterwards:
//
//	users := schema.NewTable("users")
//	id := users.AddColumn("id", field.TypeInt64, schema.PrimaryKey())
//	name := users.AddColumn("name", field.TypeString)
//	version := users.AddColumn("version", field.TypeInt64)
//
// Columns are compared by identity. Two tables named alike still own
// distinct columns, which lets the same table be joined several times in
// one query.
//
// ValidateTable and ValidateSchema check declarations for problems that
// would otherwise only show up as SQL errors: invalid identifiers,
// duplicate names, missing primary keys and dangling index columns.
package schema
