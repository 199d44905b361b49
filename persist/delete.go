package persist

import (
	"context"

	"github.com/syssam/relmap"
	"github.com/syssam/relmap/block"
	"github.com/syssam/relmap/dialect/sql"
	"github.com/syssam/relmap/metrics"
	"github.com/syssam/relmap/schema"
)

// Delete deletes entities in batches, matched on their primary key and,
// when rows are versioned, on their version. The affected row count is
// checked by the row count manager.
func (p *Persister[E]) Delete(ctx context.Context, entities []E) (n int64, err error) {
	if len(entities) == 0 {
		return 0, nil
	}
	s, release, err := p.borrow(ctx, "delete")
	if err != nil {
		return 0, err
	}
	defer release(&err)

	w, err := sql.NewWriteOperation(ctx, s, "delete", p.dialect.Rebind(deleteStatement(p.table, p.deleteKeys)))
	if err != nil {
		return 0, err
	}
	defer closeAll(&err, w)
	counter := NewRowCounter()
	for _, e := range entities {
		values := p.strategy.VersionedKeyValues(e)
		keys := make(map[*schema.Column]any, len(p.deleteKeys))
		for _, c := range p.deleteKeys {
			keys[c] = values[c]
		}
		if _, err := counter.AddColumns(keys); err != nil {
			return n, err
		}
		w.AddBatch(columnArgs(p.deleteKeys, keys))
		if w.Pending() >= p.dialect.BatchSize {
			affected, err := p.flush(ctx, "delete", w)
			n += affected
			if err != nil {
				return n, err
			}
		}
	}
	affected, err := p.flush(ctx, "delete", w)
	n += affected
	if err != nil {
		return n, err
	}
	return n, p.check(ctx, "delete", counter, n)
}

// DeleteByID deletes entities by identifier, ignoring versions and affected
// row counts.
func (p *Persister[E]) DeleteByID(ctx context.Context, entities []E) (int64, error) {
	ids := make([]any, len(entities))
	for i, e := range entities {
		ids[i] = p.strategy.IDOf(e)
	}
	return p.DeleteFromID(ctx, ids)
}

// DeleteFromID deletes the rows of ids with one "in" statement per block of
// keys, every block on the same connection. Full blocks share a statement.
func (p *Persister[E]) DeleteFromID(ctx context.Context, ids []any) (n int64, err error) {
	if len(ids) == 0 {
		return 0, nil
	}
	s, release, err := p.borrow(ctx, "delete")
	if err != nil {
		return 0, err
	}
	defer release(&err)

	queries := make(map[int]string, 2)
	err = block.Split(ids, p.dialect.InOperatorMaxSize).Each(func(keys []any, _ bool) error {
		query, ok := queries[len(keys)]
		if !ok {
			query = p.dialect.Rebind(massDeleteStatement(p.table, p.pk, len(keys)))
			queries[len(keys)] = query
		}
		var res sql.Result
		err := s.Exec(ctx, query, keys, &res)
		metrics.Block("delete")
		if err != nil {
			return classify(relmap.NewExecutionError("delete", query, err))
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return relmap.NewExecutionError("delete", query, err)
		}
		n += affected
		return nil
	})
	p.logger.DebugContext(ctx, "rows deleted by id", "ids", len(ids), "affected", n)
	return n, err
}
