package persist

import (
	"fmt"
	"reflect"
	"time"

	"github.com/syssam/relmap/dialect/sql"
	"github.com/syssam/relmap/mapping"
	"github.com/syssam/relmap/schema"
)

// OptimisticLockManager versions the rows written by a persister.
type OptimisticLockManager interface {
	// Column returns the version column, nil when rows are not versioned.
	Column() *schema.Column
	// InitVersion sets the first version of an entity about to be inserted.
	InitVersion(tx *sql.Tx, entity any) error
	// ManageLock is called with the values of every non-empty update before
	// it is staged. It may add entries to values.
	ManageLock(tx *sql.Tx, modified, unmodified any, values map[mapping.UpwhereColumn]any) error
}

// NoopLockManager leaves rows unversioned.
type NoopLockManager struct{}

// Column implements OptimisticLockManager.
func (NoopLockManager) Column() *schema.Column { return nil }

// InitVersion implements OptimisticLockManager.
func (NoopLockManager) InitVersion(*sql.Tx, any) error { return nil }

// ManageLock implements OptimisticLockManager.
func (NoopLockManager) ManageLock(*sql.Tx, any, any, map[mapping.UpwhereColumn]any) error {
	return nil
}

// VersionAccessor reads and writes the version of an entity.
// mapping.Versioned strategies implement it.
type VersionAccessor interface {
	Version(entity any) any
	SetVersion(entity, version any) error
}

// VersioningStrategy computes version values.
type VersioningStrategy interface {
	Initial() any
	Next(current any) (any, error)
}

// IntegerVersioning numbers versions 1, 2, 3...
type IntegerVersioning struct{}

// Initial implements VersioningStrategy.
func (IntegerVersioning) Initial() any { return int64(1) }

// Next implements VersioningStrategy.
func (IntegerVersioning) Next(current any) (any, error) {
	v, err := mapping.Convert[int64](current)
	if err != nil {
		return nil, fmt.Errorf("persist: integer version: %w", err)
	}
	return v + 1, nil
}

// TimestampVersioning uses the current time as version, at microsecond
// precision. Next never returns a version equal to the current one.
type TimestampVersioning struct {
	// Now returns the current time, time.Now if nil.
	Now func() time.Time
}

func (v TimestampVersioning) now() time.Time {
	now := time.Now
	if v.Now != nil {
		now = v.Now
	}
	return now().UTC().Truncate(time.Microsecond)
}

// Initial implements VersioningStrategy.
func (v TimestampVersioning) Initial() any { return v.now() }

// Next implements VersioningStrategy.
func (v TimestampVersioning) Next(current any) (any, error) {
	next := v.now()
	if current == nil {
		return next, nil
	}
	cur, ok := current.(time.Time)
	if !ok {
		return nil, fmt.Errorf("persist: timestamp version: unexpected %T", current)
	}
	if !next.After(cur) {
		next = cur.Add(time.Microsecond)
	}
	return next, nil
}

// RevertOnRollbackMVCC versions rows with a version column. Every update
// sets the next version where the row still holds the version it was read
// with. The in-memory version is restored if the surrounding transaction
// rolls back.
type RevertOnRollbackMVCC struct {
	column     *schema.Column
	versioning VersioningStrategy
	accessor   VersionAccessor
}

// NewRevertOnRollbackMVCC returns a lock manager versioning column.
func NewRevertOnRollbackMVCC(column *schema.Column, versioning VersioningStrategy, accessor VersionAccessor) *RevertOnRollbackMVCC {
	return &RevertOnRollbackMVCC{column: column, versioning: versioning, accessor: accessor}
}

// Column implements OptimisticLockManager.
func (m *RevertOnRollbackMVCC) Column() *schema.Column { return m.column }

// InitVersion implements OptimisticLockManager.
func (m *RevertOnRollbackMVCC) InitVersion(tx *sql.Tx, entity any) error {
	prev := m.accessor.Version(entity)
	if err := m.accessor.SetVersion(entity, m.versioning.Initial()); err != nil {
		return err
	}
	m.revertOnRollback(tx, entity, prev)
	return nil
}

// ManageLock implements OptimisticLockManager.
func (m *RevertOnRollbackMVCC) ManageLock(tx *sql.Tx, modified, unmodified any, values map[mapping.UpwhereColumn]any) error {
	prev := m.accessor.Version(modified)
	current := prev
	if !isNil(unmodified) {
		current = m.accessor.Version(unmodified)
	}
	next, err := m.versioning.Next(current)
	if err != nil {
		return err
	}
	if err := m.accessor.SetVersion(modified, next); err != nil {
		return err
	}
	values[mapping.Set(m.column)] = next
	values[mapping.Where(m.column)] = current
	m.revertOnRollback(tx, modified, prev)
	return nil
}

func (m *RevertOnRollbackMVCC) revertOnRollback(tx *sql.Tx, entity, version any) {
	if tx == nil {
		return
	}
	tx.OnRollback(sql.RollbackFunc(func() {
		_ = m.accessor.SetVersion(entity, version)
	}))
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
	_ OptimisticLockManager = NoopLockManager{}
	_ OptimisticLockManager = (*RevertOnRollbackMVCC)(nil)
	_ VersioningStrategy    = IntegerVersioning{}
	_ VersioningStrategy    = TimestampVersioning{}
)
