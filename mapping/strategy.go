package mapping

import (
	"github.com/syssam/relmap/schema"
)

// Strategy binds one entity type to one table. Implementations are built at
// configuration time and must be safe for concurrent reads afterwards.
//
// Entities travel as any so that strategies of different entity types can
// live in the same join tree. Mapper is the reference implementation.
type Strategy interface {
	// Table is the table the entity is stored in.
	Table() *schema.Table
	// SelectableColumns are the columns read back when loading an entity.
	SelectableColumns() []*schema.Column
	// InsertableColumns are the columns written by an insert.
	InsertableColumns() []*schema.Column
	// UpdatableColumns are the columns a full update writes.
	UpdatableColumns() []*schema.Column
	// VersionedKeys are the columns identifying one version of a row: the
	// primary key plus the version column when the entity is versioned.
	VersionedKeys() []*schema.Column
	// IDOf returns the identifier of the entity.
	IDOf(entity any) any
	// NewInstance returns a new, empty entity.
	NewInstance() any
	// ApplyRow copies the values of row onto instance.
	ApplyRow(row Row, instance any) error
	// InsertValues returns the values of the insertable columns.
	InsertValues(entity any) map[*schema.Column]any
	// UpdateValues returns the SET and WHERE values needed to turn
	// unmodified into modified. An empty map means nothing changed. When
	// allColumns is true and something changed, every updatable column is
	// part of the SET entries.
	UpdateValues(modified, unmodified any, allColumns bool) map[UpwhereColumn]any
	// VersionedKeyValues returns the values of VersionedKeys.
	VersionedKeyValues(entity any) map[*schema.Column]any
}

// Versioned is implemented by strategies whose entities carry a version
// used for optimistic locking.
type Versioned interface {
	VersionColumn() *schema.Column
	Version(entity any) any
	SetVersion(entity, version any) error
}

// IdentifierAssigner is implemented by strategies that assign identifiers
// themselves before an insert.
type IdentifierAssigner interface {
	AssignID(entity any) error
}

// GeneratedKeySetter is implemented by strategies whose identifier is
// generated by the database and read back after an insert.
type GeneratedKeySetter interface {
	GeneratesID() bool
	SetGeneratedID(entity any, id int64) error
}

// UpwhereColumn is a column tagged with the role it plays in an update
// statement: a SET target or a WHERE predicate. The same column may appear
// in both roles, for example to set a new version only where the old one
// still matches.
type UpwhereColumn struct {
	Column *schema.Column
	Update bool
}

// Set returns the SET role of a column.
func Set(c *schema.Column) UpwhereColumn {
	return UpwhereColumn{Column: c, Update: true}
}

// Where returns the WHERE role of a column.
func Where(c *schema.Column) UpwhereColumn {
	return UpwhereColumn{Column: c}
}

// String implements fmt.Stringer.
func (u UpwhereColumn) String() string {
	if u.Update {
		return "set " + u.Column.AbsoluteName()
	}
	return "where " + u.Column.AbsoluteName()
}

// Row gives access to the column values of one result row.
type Row interface {
	Value(c *schema.Column) (any, bool)
}

// MapRow is a Row backed by a map.
type MapRow map[*schema.Column]any

// Value implements Row.
func (r MapRow) Value(c *schema.Column) (any, bool) {
	v, ok := r[c]
	return v, ok
}
