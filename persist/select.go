package persist

import (
	"context"

	"github.com/syssam/relmap"
	"github.com/syssam/relmap/block"
	"github.com/syssam/relmap/dialect/sql"
	"github.com/syssam/relmap/dialect/sql/sqlgraph"
	"github.com/syssam/relmap/metrics"
	"github.com/syssam/relmap/schema"
)

// Select returns the entities of ids. Keys are sent in blocks of at most the
// in operator max size, every block on the same connection. Entities come
// in block order, and in database order within a block: the order of ids is
// not preserved, see OrderByIDs.
func (p *Persister[E]) Select(ctx context.Context, ids []any) ([]E, error) {
	return SelectJoined(ctx, p.provider, p.dialect, p.selector, p.pk, ids)
}

// SelectOne returns the entity of id, or a *relmap.NotFoundError.
func (p *Persister[E]) SelectOne(ctx context.Context, id any) (E, error) {
	var zero E
	found, err := p.Select(ctx, []any{id})
	if err != nil {
		return zero, err
	}
	if len(found) == 0 {
		return zero, relmap.NewNotFoundErrorWithID(p.table.Name, id)
	}
	return found[0], nil
}

// SelectJoined runs the query of tr restricted to the rows whose key column
// is one of keys, and returns one root entity per row. Keys are chunked as
// in Persister.Select.
func SelectJoined[T any](ctx context.Context, provider Provider, d sql.Dialect, tr *sqlgraph.Transformer[T], key *schema.Column, keys []any) (_ []T, err error) {
	if len(keys) == 0 {
		return nil, nil
	}
	if d.InOperatorMaxSize < 1 {
		return nil, relmap.NewConfigError("select", "invalid in operator max size %d", d.InOperatorMaxSize)
	}
	s, release, err := provider.Borrow(ctx)
	if err != nil {
		return nil, relmap.NewExecutionError("select", "", err)
	}
	defer func() {
		if rerr := release(); rerr != nil && err == nil {
			err = relmap.NewExecutionError("select", "", rerr)
		}
	}()

	var (
		out     []T
		queries = make(map[int]string, 2)
	)
	err = block.Split(keys, d.InOperatorMaxSize).Each(func(keys []any, _ bool) error {
		query, ok := queries[len(keys)]
		if !ok {
			q, err := tr.Query().Where(key, len(keys))
			if err != nil {
				return err
			}
			query = d.Rebind(q)
			queries[len(keys)] = query
		}
		rows := &sql.Rows{}
		err := s.Query(ctx, query, keys, rows)
		metrics.Block("select")
		if err != nil {
			return relmap.NewExecutionError("select", query, err)
		}
		found, err := tr.All(rows)
		if err != nil {
			return err
		}
		out = append(out, found...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
