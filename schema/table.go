package schema

import (
	"regexp"

	"github.com/syssam/relmap/schema/field"
)

// validIdentifierRe validates SQL identifiers (alphanumeric, underscores, dots for schema.name)
var validIdentifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*$`)

// ValidIdentifier checks if the string is a valid SQL identifier.
func ValidIdentifier(s string) bool {
	return s != "" && len(s) <= 128 && validIdentifierRe.MatchString(s)
}

// Table is a database table a mapping strategy writes to and reads from.
type Table struct {
	Name       string
	Schema     string
	Columns    []*Column
	PrimaryKey []*Column
	Indexes    []*Index
}

// NewTable returns a new table with the given name.
func NewTable(name string) *Table {
	return &Table{Name: name}
}

// SetSchema sets the database schema (namespace) of the table.
func (t *Table) SetSchema(s string) *Table {
	t.Schema = s
	return t
}

// AbsoluteName returns the schema qualified name of the table.
func (t *Table) AbsoluteName() string {
	if t.Schema != "" {
		return t.Schema + "." + t.Name
	}
	return t.Name
}

// AddColumn declares a new column on the table and returns it.
func (t *Table) AddColumn(name string, typ field.Type, opts ...ColumnOption) *Column {
	c := &Column{Table: t, Name: name, Type: typ}
	for _, opt := range opts {
		opt(c)
	}
	t.Columns = append(t.Columns, c)
	if c.Primary {
		t.PrimaryKey = append(t.PrimaryKey, c)
	}
	return c
}

// Column returns the column with the given name, or nil.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// SetPrimaryKey replaces the primary key of the table.
func (t *Table) SetPrimaryKey(cols ...*Column) *Table {
	for _, c := range t.PrimaryKey {
		c.Primary = false
	}
	for _, c := range cols {
		c.Primary = true
	}
	t.PrimaryKey = cols
	return t
}

// AddIndex adds an index over the given columns.
func (t *Table) AddIndex(name string, unique bool, cols ...*Column) *Index {
	idx := &Index{Name: name, Unique: unique, Columns: cols}
	t.Indexes = append(t.Indexes, idx)
	return idx
}

// Column is a column of a Table. Columns are compared by identity.
type Column struct {
	Table         *Table
	Name          string
	Type          field.Type
	Nullable      bool
	Primary       bool
	AutoGenerated bool // Value is produced by the database on insert.
}

// AbsoluteName returns the table qualified name of the column.
func (c *Column) AbsoluteName() string {
	if c.Table == nil {
		return c.Name
	}
	return c.Table.AbsoluteName() + "." + c.Name
}

// String implements fmt.Stringer.
func (c *Column) String() string {
	return c.AbsoluteName()
}

// ColumnOption configures a column when it is added to a table.
type ColumnOption func(*Column)

// Nullable marks the column as accepting NULL.
func Nullable() ColumnOption {
	return func(c *Column) { c.Nullable = true }
}

// PrimaryKey marks the column as part of the primary key.
func PrimaryKey() ColumnOption {
	return func(c *Column) { c.Primary = true }
}

// AutoGenerated marks the column as generated by the database (e.g. serial
// ids). Such columns are not part of inserts.
func AutoGenerated() ColumnOption {
	return func(c *Column) { c.AutoGenerated = true }
}

// Index is a table index.
type Index struct {
	Name    string
	Unique  bool
	Columns []*Column
}
