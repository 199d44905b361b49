// Package sqlgraph builds join queries over mapping strategies and turns
// their result rows back into entity graphs.
//
// A JoinedStrategiesSelect is a tree of strategies. The root is named Root,
// every node attached with Add gets a fresh name that later Add calls use as
// parent:
//
//	sel, _ := sqlgraph.NewJoinedStrategiesSelect[*User](users)
//	posts, _ := sel.Add(sqlgraph.Root, postMapper, userID, postAuthor, true,
//		sqlgraph.Fixer(func(u *User, p *Post) { u.Posts = append(u.Posts, p) }))
//	_, _ = sel.Add(posts, commentMapper, postID, commentPost, true, nil)
//	q := sel.BuildSelectQuery()
//
// Trees are built once and only read afterwards, so a built query and its
// Transformer can be shared between goroutines.
package sqlgraph

import (
	"strconv"
	"strings"

	"github.com/syssam/relmap"
	"github.com/syssam/relmap/mapping"
	"github.com/syssam/relmap/schema"
)

// Root is the name of the root node of every JoinedStrategiesSelect.
const Root = "root"

// RelationFixer wires a child entity into its parent after both were read
// from the same row.
type RelationFixer func(parent, child any)

// Fixer adapts a typed function to a RelationFixer.
func Fixer[P, C any](f func(parent P, child C)) RelationFixer {
	return func(parent, child any) {
		f(parent.(P), child.(C))
	}
}

// handle addresses a node in the arena of a JoinedStrategiesSelect.
type handle int

type node struct {
	name     string
	strategy mapping.Strategy
	alias    string
	joins    []join
}

// join is an edge between a parent node and its child.
type join struct {
	left, right *schema.Column
	outer       bool
	fixer       RelationFixer
	child       handle
}

// JoinedStrategiesSelect is a join tree rooted at a strategy of T.
type JoinedStrategiesSelect[T any] struct {
	nodes   []node
	names   map[string]handle
	counter int
}

// NewJoinedStrategiesSelect returns a join tree holding only root.
func NewJoinedStrategiesSelect[T any](root mapping.Strategy) (*JoinedStrategiesSelect[T], error) {
	if root == nil {
		return nil, relmap.NewConfigError("join", "nil root strategy")
	}
	if _, ok := root.NewInstance().(T); !ok {
		return nil, relmap.NewConfigError("join", "root strategy of table %s does not produce %T instances", root.Table().AbsoluteName(), *new(T))
	}
	s := &JoinedStrategiesSelect[T]{names: make(map[string]handle)}
	s.nodes = append(s.nodes, node{name: Root, strategy: root, alias: defaultAlias(root.Table())})
	s.names[Root] = 0
	return s, nil
}

// Add attaches strategy under the node named parentName, joined on
// parent.left = child.right, and returns the name of the new node. The
// fixer, if any, is called with the parent and child entities of every row
// holding both. Outer joins keep parent rows without a matching child.
func (s *JoinedStrategiesSelect[T]) Add(parentName string, strategy mapping.Strategy, left, right *schema.Column, outer bool, fixer RelationFixer) (string, error) {
	parent, ok := s.names[parentName]
	if !ok {
		return "", relmap.NewConfigError("join", "unknown parent node %q", parentName)
	}
	if strategy == nil {
		return "", relmap.NewConfigError("join", "nil strategy joined under %q", parentName)
	}
	ptable, ctable := s.nodes[parent].strategy.Table(), strategy.Table()
	switch {
	case left == nil || right == nil:
		return "", relmap.NewConfigError("join", "missing join column between %s and %s", ptable.AbsoluteName(), ctable.AbsoluteName())
	case left.Table != ptable:
		return "", relmap.NewConfigError("join", "left column %s does not belong to %s", left.AbsoluteName(), ptable.AbsoluteName())
	case right.Table != ctable:
		return "", relmap.NewConfigError("join", "right column %s does not belong to %s", right.AbsoluteName(), ctable.AbsoluteName())
	}
	s.counter++
	name := ctable.Name + strconv.Itoa(s.counter)
	for _, taken := s.names[name]; taken; _, taken = s.names[name] {
		s.counter++
		name = ctable.Name + strconv.Itoa(s.counter)
	}
	base := defaultAlias(ctable)
	alias := base
	for n := s.counter; s.aliasTaken(alias); n++ {
		alias = base + strconv.Itoa(n)
	}
	child := handle(len(s.nodes))
	s.nodes = append(s.nodes, node{name: name, strategy: strategy, alias: alias})
	s.nodes[parent].joins = append(s.nodes[parent].joins, join{left: left, right: right, outer: outer, fixer: fixer, child: child})
	s.names[name] = child
	return name, nil
}

// SetAlias overrides the table alias of the named node.
func (s *JoinedStrategiesSelect[T]) SetAlias(name, alias string) error {
	h, ok := s.names[name]
	if !ok {
		return relmap.NewConfigError("alias", "unknown node %q", name)
	}
	if !schema.ValidIdentifier(alias) || strings.Contains(alias, ".") {
		return relmap.NewConfigError("alias", "invalid alias %q", alias)
	}
	if s.nodes[h].alias != alias && s.aliasTaken(alias) {
		return relmap.NewConfigError("alias", "alias %q is already used", alias)
	}
	s.nodes[h].alias = alias
	return nil
}

// Alias returns the table alias of the named node.
func (s *JoinedStrategiesSelect[T]) Alias(name string) (string, bool) {
	h, ok := s.names[name]
	if !ok {
		return "", false
	}
	return s.nodes[h].alias, true
}

// Strategy returns the strategy of the named node.
func (s *JoinedStrategiesSelect[T]) Strategy(name string) (mapping.Strategy, bool) {
	h, ok := s.names[name]
	if !ok {
		return nil, false
	}
	return s.nodes[h].strategy, true
}

// Len returns the number of nodes of the tree.
func (s *JoinedStrategiesSelect[T]) Len() int { return len(s.nodes) }

func (s *JoinedStrategiesSelect[T]) aliasTaken(alias string) bool {
	for _, n := range s.nodes {
		if n.alias == alias {
			return true
		}
	}
	return false
}

// defaultAlias is the absolute name of t, usable as an identifier.
func defaultAlias(t *schema.Table) string {
	return strings.ReplaceAll(t.AbsoluteName(), ".", "_")
}
