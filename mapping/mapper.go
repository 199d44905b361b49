package mapping

import (
	"fmt"
	"reflect"

	"github.com/go-openapi/inflect"
	"github.com/google/uuid"

	"github.com/syssam/relmap/schema"
)

// Binding binds one column to one property of E.
type Binding[E any] struct {
	Column *schema.Column
	Get    func(E) any
	Set    func(E, any) error
	// ReadOnly bindings are selected but never written.
	ReadOnly bool
}

// Bind returns a Binding for a property of type V. Values read from the
// database are converted with Convert.
func Bind[E, V any](c *schema.Column, get func(E) V, set func(E, V)) Binding[E] {
	return Binding[E]{
		Column: c,
		Get:    func(e E) any { return get(e) },
		Set: func(e E, v any) error {
			tv, err := Convert[V](v)
			if err != nil {
				return fmt.Errorf("column %s: %w", c.AbsoluteName(), err)
			}
			set(e, tv)
			return nil
		},
	}
}

// ReadOnly marks the binding as read only.
func ReadOnly[E any](b Binding[E]) Binding[E] {
	b.ReadOnly = true
	return b
}

// IdentifierPolicy tells how an entity gets its identifier before insert.
type IdentifierPolicy uint8

const (
	// AlreadyAssigned expects the caller to set identifiers.
	AlreadyAssigned IdentifierPolicy = iota
	// UUIDIdentifier assigns a random UUID to entities whose identifier is
	// the zero value.
	UUIDIdentifier
	// DatabaseGenerated reads the identifier back from the insert result.
	DatabaseGenerated
)

// Mapper is a Strategy built from functions, one Binding per column.
// The table must declare exactly one primary key column, and one of the
// bindings must bind it.
type Mapper[E any] struct {
	table    *schema.Table
	factory  func() E
	bindings []Binding[E]
	id       int // index of the primary key binding
	version  int // index of the version binding, -1 if none
	policy   IdentifierPolicy

	selectable, insertable, updatable, versionedKeys []*schema.Column
}

// MapperOption configures a Mapper.
type MapperOption[E any] func(*Mapper[E]) error

// WithVersion declares the bound column holding the entity version.
func WithVersion[E any](c *schema.Column) MapperOption[E] {
	return func(m *Mapper[E]) error {
		for i, b := range m.bindings {
			if b.Column == c {
				m.version = i
				return nil
			}
		}
		return fmt.Errorf("mapping: version column %s is not bound", c.AbsoluteName())
	}
}

// WithIdentifierPolicy sets how identifiers are assigned on insert.
func WithIdentifierPolicy[E any](p IdentifierPolicy) MapperOption[E] {
	return func(m *Mapper[E]) error {
		m.policy = p
		return nil
	}
}

// NewMapper returns a Mapper for E stored in table.
func NewMapper[E any](table *schema.Table, factory func() E, bindings []Binding[E], opts ...MapperOption[E]) (*Mapper[E], error) {
	if len(table.PrimaryKey) != 1 {
		return nil, fmt.Errorf("mapping: table %s must have exactly one primary key column, got %d", table.AbsoluteName(), len(table.PrimaryKey))
	}
	m := &Mapper[E]{table: table, factory: factory, bindings: bindings, id: -1, version: -1}
	for i, b := range bindings {
		if b.Column == nil || b.Get == nil || b.Set == nil {
			return nil, fmt.Errorf("mapping: binding %d of table %s is incomplete", i, table.AbsoluteName())
		}
		if b.Column.Table != table {
			return nil, fmt.Errorf("mapping: column %s does not belong to table %s", b.Column.AbsoluteName(), table.AbsoluteName())
		}
		if b.Column == table.PrimaryKey[0] {
			m.id = i
		}
	}
	if m.id < 0 {
		return nil, fmt.Errorf("mapping: primary key %s of table %s is not bound", table.PrimaryKey[0].Name, table.AbsoluteName())
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	if m.policy == DatabaseGenerated && !table.PrimaryKey[0].AutoGenerated {
		return nil, fmt.Errorf("mapping: primary key of table %s is not generated by the database", table.AbsoluteName())
	}
	for i, b := range bindings {
		c := b.Column
		m.selectable = append(m.selectable, c)
		if b.ReadOnly || c.AutoGenerated {
			continue
		}
		m.insertable = append(m.insertable, c)
		if !c.Primary && i != m.version {
			m.updatable = append(m.updatable, c)
		}
	}
	m.versionedKeys = []*schema.Column{table.PrimaryKey[0]}
	if m.version >= 0 {
		m.versionedKeys = append(m.versionedKeys, bindings[m.version].Column)
	}
	return m, nil
}

// MustMapper is like NewMapper but panics on error.
func MustMapper[E any](table *schema.Table, factory func() E, bindings []Binding[E], opts ...MapperOption[E]) *Mapper[E] {
	m, err := NewMapper(table, factory, bindings, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

// TableName returns the conventional table name of E: the pluralized, snake
// cased name of its type ("OrderItem" becomes "order_items").
func TableName[E any]() string {
	t := reflect.TypeOf((*E)(nil)).Elem()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return TableNameOf(t.Name())
}

// TableNameOf returns the conventional table name of the entity type named
// entity.
func TableNameOf(entity string) string {
	return inflect.Underscore(inflect.Pluralize(entity))
}

// Table implements Strategy.
func (m *Mapper[E]) Table() *schema.Table { return m.table }

// SelectableColumns implements Strategy.
func (m *Mapper[E]) SelectableColumns() []*schema.Column { return m.selectable }

// InsertableColumns implements Strategy.
func (m *Mapper[E]) InsertableColumns() []*schema.Column { return m.insertable }

// UpdatableColumns implements Strategy. The version column is not part of
// it, it is only written by the optimistic lock manager.
func (m *Mapper[E]) UpdatableColumns() []*schema.Column { return m.updatable }

// VersionedKeys implements Strategy.
func (m *Mapper[E]) VersionedKeys() []*schema.Column { return m.versionedKeys }

// IDOf implements Strategy.
func (m *Mapper[E]) IDOf(entity any) any {
	return m.bindings[m.id].Get(entity.(E))
}

// NewInstance implements Strategy.
func (m *Mapper[E]) NewInstance() any {
	return m.factory()
}

// ApplyRow implements Strategy.
func (m *Mapper[E]) ApplyRow(row Row, instance any) error {
	e, ok := instance.(E)
	if !ok {
		return fmt.Errorf("mapping: unexpected instance %T for table %s", instance, m.table.AbsoluteName())
	}
	for _, b := range m.bindings {
		v, ok := row.Value(b.Column)
		if !ok {
			continue
		}
		if err := b.Set(e, v); err != nil {
			return err
		}
	}
	return nil
}

// InsertValues implements Strategy.
func (m *Mapper[E]) InsertValues(entity any) map[*schema.Column]any {
	e := entity.(E)
	values := make(map[*schema.Column]any, len(m.insertable))
	for _, b := range m.bindings {
		if b.ReadOnly || b.Column.AutoGenerated {
			continue
		}
		values[b.Column] = b.Get(e)
	}
	return values
}

// UpdateValues implements Strategy. A nil unmodified entity means every
// updatable column changed.
func (m *Mapper[E]) UpdateValues(modified, unmodified any, allColumns bool) map[UpwhereColumn]any {
	mod := modified.(E)
	if isNil(unmodified) {
		unmodified = nil
	}
	var changed []int
	for i, b := range m.bindings {
		if b.ReadOnly || b.Column.AutoGenerated || b.Column.Primary || i == m.version {
			continue
		}
		if unmodified == nil || !reflect.DeepEqual(b.Get(mod), b.Get(unmodified.(E))) {
			changed = append(changed, i)
		}
	}
	values := make(map[UpwhereColumn]any)
	if len(changed) == 0 {
		return values
	}
	if allColumns {
		for i, b := range m.bindings {
			if b.ReadOnly || b.Column.AutoGenerated || b.Column.Primary || i == m.version {
				continue
			}
			values[Set(b.Column)] = b.Get(mod)
		}
	} else {
		for _, i := range changed {
			values[Set(m.bindings[i].Column)] = m.bindings[i].Get(mod)
		}
	}
	values[Where(m.table.PrimaryKey[0])] = m.bindings[m.id].Get(mod)
	return values
}

// VersionedKeyValues implements Strategy.
func (m *Mapper[E]) VersionedKeyValues(entity any) map[*schema.Column]any {
	e := entity.(E)
	values := map[*schema.Column]any{m.table.PrimaryKey[0]: m.bindings[m.id].Get(e)}
	if m.version >= 0 {
		values[m.bindings[m.version].Column] = m.bindings[m.version].Get(e)
	}
	return values
}

// VersionColumn implements Versioned. It returns nil when no version is bound.
func (m *Mapper[E]) VersionColumn() *schema.Column {
	if m.version < 0 {
		return nil
	}
	return m.bindings[m.version].Column
}

// Version implements Versioned.
func (m *Mapper[E]) Version(entity any) any {
	if m.version < 0 {
		return nil
	}
	return m.bindings[m.version].Get(entity.(E))
}

// SetVersion implements Versioned.
func (m *Mapper[E]) SetVersion(entity, version any) error {
	if m.version < 0 {
		return fmt.Errorf("mapping: table %s is not versioned", m.table.AbsoluteName())
	}
	return m.bindings[m.version].Set(entity.(E), version)
}

// AssignID implements IdentifierAssigner.
func (m *Mapper[E]) AssignID(entity any) error {
	if m.policy != UUIDIdentifier {
		return nil
	}
	b := m.bindings[m.id]
	e := entity.(E)
	if id := b.Get(e); id != nil && !reflect.ValueOf(id).IsZero() {
		return nil
	}
	id := uuid.New()
	if err := b.Set(e, id); err != nil {
		// Text identifiers.
		return b.Set(e, id.String())
	}
	return nil
}

// SetGeneratedID implements GeneratedKeySetter.
func (m *Mapper[E]) SetGeneratedID(entity any, id int64) error {
	if m.policy != DatabaseGenerated {
		return nil
	}
	return m.bindings[m.id].Set(entity.(E), id)
}

// GeneratesID reports if identifiers are read back from insert results.
func (m *Mapper[E]) GeneratesID() bool {
	return m.policy == DatabaseGenerated
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

var (
	_ Strategy           = (*Mapper[any])(nil)
	_ Versioned          = (*Mapper[any])(nil)
	_ IdentifierAssigner = (*Mapper[any])(nil)
	_ GeneratedKeySetter = (*Mapper[any])(nil)
)
