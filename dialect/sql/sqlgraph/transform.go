package sqlgraph

import (
	"fmt"

	"github.com/syssam/relmap"
	"github.com/syssam/relmap/dialect/sql"
	"github.com/syssam/relmap/schema"
)

// Transformer turns the rows of a SelectQuery into root entities.
//
// Every row produces one root entity with its whole subgraph. Rows are never
// merged: a one-to-many join yielding three rows for the same root yields
// three root entities holding one child each. Callers needing one entity per
// identifier merge the results themselves.
type Transformer[T any] struct {
	query *SelectQuery
}

// NewTransformer returns the Transformer of a query built from a
// JoinedStrategiesSelect[T].
func NewTransformer[T any](q *SelectQuery) *Transformer[T] {
	return &Transformer[T]{query: q}
}

// Query returns the query the transformer decodes.
func (t *Transformer[T]) Query() *SelectQuery { return t.query }

// nodeRow exposes the projections of one node as a mapping.Row.
type nodeRow struct {
	row     map[string]any
	columns map[*schema.Column]string
}

func (r nodeRow) Value(c *schema.Column) (any, bool) {
	alias, ok := r.columns[c]
	if !ok {
		return nil, false
	}
	v, ok := r.row[alias]
	return v, ok
}

// empty reports if every column of the node is NULL in the row, as it is
// for the missing side of an outer join.
func (r nodeRow) empty() bool {
	for _, alias := range r.columns {
		if r.row[alias] != nil {
			return false
		}
	}
	return true
}

// Transform builds the entity graph of one row, keyed by projection alias
// as returned by SelectQuery.Scan.
func (t *Transformer[T]) Transform(row map[string]any) (T, error) {
	var zero T
	type item struct {
		node   handle
		entity any
	}
	nodes := t.query.nodes
	root := nodes[0].strategy.NewInstance()
	if err := nodes[0].strategy.ApplyRow(nodeRow{row: row, columns: nodes[0].columns}, root); err != nil {
		return zero, fmt.Errorf("sqlgraph: read %s: %w", nodes[0].strategy.Table().AbsoluteName(), err)
	}
	queue := []item{{node: 0, entity: root}}
	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]
		for _, j := range nodes[it.node].joins {
			child := nodes[j.child]
			r := nodeRow{row: row, columns: child.columns}
			if j.outer && r.empty() {
				continue
			}
			entity := child.strategy.NewInstance()
			if err := child.strategy.ApplyRow(r, entity); err != nil {
				return zero, fmt.Errorf("sqlgraph: read %s: %w", child.strategy.Table().AbsoluteName(), err)
			}
			if j.fixer != nil {
				j.fixer(it.entity, entity)
			}
			queue = append(queue, item{node: j.child, entity: entity})
		}
	}
	v, ok := root.(T)
	if !ok {
		return zero, fmt.Errorf("sqlgraph: unexpected root entity %T", root)
	}
	return v, nil
}

// All scans and transforms every remaining row of rows, then closes it.
func (t *Transformer[T]) All(rows sql.ColumnScanner) (_ []T, rerr error) {
	defer func() {
		if err := rows.Close(); err != nil && rerr == nil {
			rerr = relmap.NewExecutionError("select", t.query.query, err)
		}
	}()
	var out []T
	for rows.Next() {
		row, err := t.query.Scan(rows)
		if err != nil {
			return nil, relmap.NewExecutionError("select", t.query.query, err)
		}
		v, err := t.Transform(row)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, relmap.NewExecutionError("select", t.query.query, err)
	}
	return out, nil
}
