package sqlgraph

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/syssam/relmap"
	"github.com/syssam/relmap/dialect/sql"
	"github.com/syssam/relmap/mapping"
	"github.com/syssam/relmap/schema"
)

// SelectQuery is the statement generated from a join tree, along with what
// is needed to decode its rows.
type SelectQuery struct {
	query string
	// projections in select order.
	projections []string
	readers     map[string]sql.ValueReader
	// aliases and qualified hold the first projection of every column and
	// its qualified name.
	aliases   map[*schema.Column]string
	qualified map[*schema.Column]string
	nodes     []builtNode
}

// builtNode is a node of the tree with the projection alias of each of its
// selectable columns.
type builtNode struct {
	strategy mapping.Strategy
	columns  map[*schema.Column]string
	joins    []builtJoin
}

type builtJoin struct {
	outer bool
	fixer RelationFixer
	child handle
}

// BuildSelectQuery walks the tree breadth first and generates one select
// statement: the selectable columns of every node projected as
// alias_column, the root table in the from clause and one join clause per
// edge. Outer edges generate left outer joins, others inner joins.
func (s *JoinedStrategiesSelect[T]) BuildSelectQuery() *SelectQuery {
	q := &SelectQuery{
		readers:   make(map[string]sql.ValueReader),
		aliases:   make(map[*schema.Column]string),
		qualified: make(map[*schema.Column]string),
		nodes:     make([]builtNode, len(s.nodes)),
	}
	var (
		cols  []string
		joins strings.Builder
		root  = s.nodes[0]
		queue = []handle{0}
	)
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		n := s.nodes[h]
		bn := builtNode{strategy: n.strategy, columns: make(map[*schema.Column]string)}
		for _, c := range n.strategy.SelectableColumns() {
			qualified := n.alias + "." + c.Name
			alias := q.project(n.alias + "_" + c.Name)
			cols = append(cols, qualified+" as "+alias)
			q.readers[alias] = sql.ReaderFor(c.Type)
			bn.columns[c] = alias
			if _, ok := q.aliases[c]; !ok {
				q.aliases[c] = alias
				q.qualified[c] = qualified
			}
		}
		for _, j := range n.joins {
			child := s.nodes[j.child]
			if j.outer {
				joins.WriteString(" left outer join ")
			} else {
				joins.WriteString(" inner join ")
			}
			joins.WriteString(tableClause(child))
			fmt.Fprintf(&joins, " on %s.%s = %s.%s", n.alias, j.left.Name, child.alias, j.right.Name)
			bn.joins = append(bn.joins, builtJoin{outer: j.outer, fixer: j.fixer, child: j.child})
			queue = append(queue, j.child)
		}
		q.nodes[h] = bn
	}
	var b strings.Builder
	b.WriteString("select ")
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(" from ")
	b.WriteString(tableClause(root))
	b.WriteString(joins.String())
	q.query = b.String()
	return q
}

// project returns alias, or alias with a numeric suffix if a projection
// already uses it.
func (q *SelectQuery) project(alias string) string {
	name := alias
	for i := 1; q.readers[name] != nil; i++ {
		name = alias + "_" + strconv.Itoa(i)
	}
	q.projections = append(q.projections, name)
	return name
}

func tableClause(n node) string {
	name := n.strategy.Table().AbsoluteName()
	if n.alias == name {
		return name
	}
	return name + " as " + n.alias
}

// String returns the statement, with "?" placeholders.
func (q *SelectQuery) String() string { return q.query }

// Aliases returns the projection alias of every selected column. A column
// selected by more than one node maps to its projection closest to the
// root. The map must not be modified.
func (q *SelectQuery) Aliases() map[*schema.Column]string { return q.aliases }

// Projections returns the projection aliases in select order.
func (q *SelectQuery) Projections() []string { return q.projections }

// Reader returns the value reader of a projection.
func (q *SelectQuery) Reader(alias string) (sql.ValueReader, bool) {
	r, ok := q.readers[alias]
	return r, ok
}

// Where returns the statement restricted to the rows whose column c is one
// of n values: "select ... where alias.c in (?, ...)".
func (q *SelectQuery) Where(c *schema.Column, n int) (string, error) {
	qualified, ok := q.qualified[c]
	if !ok {
		return "", relmap.NewConfigError("where", "column %s is not selected", c.AbsoluteName())
	}
	if n < 1 {
		return "", relmap.NewConfigError("where", "empty parameter list for %s", c.AbsoluteName())
	}
	return q.query + " where " + qualified + " " + sql.InPlaceholders(n), nil
}

// Scan reads the current row of rows into a map keyed by projection alias.
// NULL values are nil.
func (q *SelectQuery) Scan(rows sql.ColumnScanner) (map[string]any, error) {
	dests := make([]any, len(q.projections))
	for i, alias := range q.projections {
		dests[i] = q.readers[alias].Dest()
	}
	if err := rows.Scan(dests...); err != nil {
		return nil, err
	}
	row := make(map[string]any, len(dests))
	for i, alias := range q.projections {
		row[alias] = q.readers[alias].Read(dests[i])
	}
	return row, nil
}

// Build builds the select query of the tree and returns its Transformer.
func (s *JoinedStrategiesSelect[T]) Build() *Transformer[T] {
	return NewTransformer[T](s.BuildSelectQuery())
}
