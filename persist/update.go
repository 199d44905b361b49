package persist

import (
	"context"

	"github.com/syssam/relmap/dialect/sql"
	"github.com/syssam/relmap/mapping"
)

// updateBatch is a prepared update statement of one column set.
type updateBatch struct {
	cols []mapping.UpwhereColumn
	op   *sql.WriteOperation
}

// updateCache holds the update statements of one Update call, by column
// set key, in creation order.
type updateCache struct {
	entries map[string]*updateBatch
	order   []*updateBatch
}

func (c *updateCache) getOrInsert(key string, create func() (*updateBatch, error)) (*updateBatch, error) {
	if b, ok := c.entries[key]; ok {
		return b, nil
	}
	b, err := create()
	if err != nil {
		return nil, err
	}
	c.entries[key] = b
	c.order = append(c.order, b)
	return b, nil
}

func (c *updateCache) ops() []*sql.WriteOperation {
	ops := make([]*sql.WriteOperation, len(c.order))
	for i, b := range c.order {
		ops[i] = b.op
	}
	return ops
}

// Update writes the changes of every Duplet and returns the number of
// affected rows. Entities without changes are skipped. When allColumns is
// true, every updatable column of a changed entity is written and a single
// statement serves the whole call; otherwise only the changed columns are,
// with one statement per distinct set of changed columns.
//
// The lock manager adds its version entries before an entity is staged,
// and the affected row count is checked by the row count manager.
func (p *Persister[E]) Update(ctx context.Context, diffs []Duplet[E], allColumns bool) (n int64, err error) {
	if len(diffs) == 0 {
		return 0, nil
	}
	s, release, err := p.borrow(ctx, "update")
	if err != nil {
		return 0, err
	}
	defer release(&err)

	cache := &updateCache{entries: make(map[string]*updateBatch)}
	defer func() { closeAll(&err, cache.ops()...) }()
	counter := NewRowCounter()
	for _, d := range diffs {
		values := p.strategy.UpdateValues(d.Modified, d.Unmodified, allColumns)
		if len(values) == 0 {
			continue
		}
		if err := p.lock.ManageLock(s.Tx(), d.Modified, d.Unmodified, values); err != nil {
			return n, err
		}
		cols, key, err := p.canonical(values)
		if err != nil {
			return n, err
		}
		b, err := cache.getOrInsert(key, func() (*updateBatch, error) {
			op, err := sql.NewWriteOperation(ctx, s, "update", p.dialect.Rebind(updateStatement(p.table, cols)))
			if err != nil {
				return nil, err
			}
			return &updateBatch{cols: cols, op: op}, nil
		})
		if err != nil {
			return n, err
		}
		if _, err := counter.AddUpwhere(values); err != nil {
			return n, err
		}
		b.op.AddBatch(updateArgs(b.cols, values))
		if b.op.Pending() >= p.dialect.BatchSize {
			affected, err := p.flush(ctx, "update", b.op)
			n += affected
			if err != nil {
				return n, err
			}
		}
	}
	for _, b := range cache.order {
		affected, err := p.flush(ctx, "update", b.op)
		n += affected
		if err != nil {
			return n, err
		}
	}
	return n, p.check(ctx, "update", counter, n)
}

// UpdateFully is Update writing every updatable column.
func (p *Persister[E]) UpdateFully(ctx context.Context, diffs []Duplet[E]) (int64, error) {
	return p.Update(ctx, diffs, true)
}

// UpdatePartially is Update writing only the changed columns.
func (p *Persister[E]) UpdatePartially(ctx context.Context, diffs []Duplet[E]) (int64, error) {
	return p.Update(ctx, diffs, false)
}

// UpdateByID writes every updatable column of entities, matched on their
// identifier only. Versions are neither checked nor changed, and affected
// row counts are not checked.
func (p *Persister[E]) UpdateByID(ctx context.Context, entities []E) (n int64, err error) {
	if len(entities) == 0 {
		return 0, nil
	}
	cols := make([]mapping.UpwhereColumn, 0, len(p.strategy.UpdatableColumns())+1)
	for _, c := range p.strategy.UpdatableColumns() {
		cols = append(cols, mapping.Set(c))
	}
	if len(cols) == 0 {
		return 0, nil
	}
	cols = append(cols, mapping.Where(p.pk))
	s, release, err := p.borrow(ctx, "update")
	if err != nil {
		return 0, err
	}
	defer release(&err)

	w, err := sql.NewWriteOperation(ctx, s, "update", p.dialect.Rebind(updateStatement(p.table, cols)))
	if err != nil {
		return 0, err
	}
	defer closeAll(&err, w)
	var zero E
	for _, e := range entities {
		values := p.strategy.UpdateValues(e, zero, true)
		values[mapping.Where(p.pk)] = p.strategy.IDOf(e)
		w.AddBatch(updateArgs(cols, values))
		if w.Pending() >= p.dialect.BatchSize {
			affected, err := p.flush(ctx, "update", w)
			n += affected
			if err != nil {
				return n, err
			}
		}
	}
	affected, err := p.flush(ctx, "update", w)
	return n + affected, err
}
