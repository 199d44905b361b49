package persist

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/relmap"
	"github.com/syssam/relmap/mapping"
	"github.com/syssam/relmap/schema"
)

// RowCounter records the distinct rows a write call intends to change. Each
// row is identified by a fingerprint of the values sent for it, so staging
// the same entity twice counts once.
type RowCounter struct {
	seen map[string]struct{}
}

// NewRowCounter returns an empty RowCounter.
func NewRowCounter() *RowCounter {
	return &RowCounter{seen: make(map[string]struct{})}
}

// Size returns the number of distinct rows recorded.
func (c *RowCounter) Size() int { return len(c.seen) }

// AddColumns records the row identified by values and reports whether it
// was not recorded yet.
func (c *RowCounter) AddColumns(values map[*schema.Column]any) (bool, error) {
	m := make(map[string]any, len(values))
	for col, v := range values {
		m[col.AbsoluteName()] = v
	}
	return c.add(m)
}

// AddUpwhere records the row changed by an update and reports whether it was
// not recorded yet.
func (c *RowCounter) AddUpwhere(values map[mapping.UpwhereColumn]any) (bool, error) {
	m := make(map[string]any, len(values))
	for col, v := range values {
		m[col.String()] = v
	}
	return c.add(m)
}

func (c *RowCounter) add(m map[string]any) (bool, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(m); err != nil {
		return false, fmt.Errorf("persist: row fingerprint: %w", err)
	}
	key := buf.String()
	if _, ok := c.seen[key]; ok {
		return false, nil
	}
	c.seen[key] = struct{}{}
	return true, nil
}

// RowCountManager reconciles the rows a write call intended to change with
// the rows the database reports as affected.
type RowCountManager interface {
	CheckRowCount(counter *RowCounter, affected int64) error
}

// ThrowingRowCountManager fails with a *relmap.StaleObjectError when fewer
// rows were affected than recorded.
type ThrowingRowCountManager struct{}

// CheckRowCount implements RowCountManager.
func (ThrowingRowCountManager) CheckRowCount(counter *RowCounter, affected int64) error {
	if expected := int64(counter.Size()); affected < expected {
		return relmap.NewStaleObjectError(expected, affected)
	}
	return nil
}

// NoopRowCountManager skips the check.
type NoopRowCountManager struct{}

// CheckRowCount implements RowCountManager.
func (NoopRowCountManager) CheckRowCount(*RowCounter, int64) error { return nil }

var (
	_ RowCountManager = ThrowingRowCountManager{}
	_ RowCountManager = NoopRowCountManager{}
)
