package main

import (
	"fmt"
	"slices"

	"github.com/syssam/relmap"
	"github.com/syssam/relmap/config"
	"github.com/syssam/relmap/dialect/sql/sqlgraph"
	"github.com/syssam/relmap/mapping"
	"github.com/syssam/relmap/schema"
)

// buildTree returns the join tree rooted at table root, following the joins
// declared in decls. Joined records are appended under the key of their
// table in the parent record.
func buildTree(tables map[string]*schema.Table, decls []config.Table, root string) (*sqlgraph.Transformer[mapping.Record], error) {
	joins := make(map[string][]config.Join, len(decls))
	for _, d := range decls {
		joins[d.Name] = d.Joins
	}
	rt, ok := tables[root]
	if !ok {
		return nil, relmap.NewConfigError("tree", "unknown table %q", root)
	}
	m, err := mapping.NewRecordMapper(rt)
	if err != nil {
		return nil, fmt.Errorf("tree %s: %w", root, err)
	}
	sel, err := sqlgraph.NewJoinedStrategiesSelect[mapping.Record](m)
	if err != nil {
		return nil, err
	}
	var add func(parent, name string, path []string) error
	add = func(parent, name string, path []string) error {
		for _, j := range joins[name] {
			if slices.Contains(path, j.Table) {
				return relmap.NewConfigError("tree", "join cycle %v -> %s", path, j.Table)
			}
			pt, ct := tables[name], tables[j.Table]
			if ct == nil {
				return relmap.NewConfigError("tree", "unknown table %q joined from %s", j.Table, name)
			}
			left, right := pt.Column(j.Left), ct.Column(j.Right)
			if left == nil || right == nil {
				return relmap.NewConfigError("tree", "unknown join columns %s.%s = %s.%s", name, j.Left, j.Table, j.Right)
			}
			cm, err := mapping.NewRecordMapper(ct)
			if err != nil {
				return fmt.Errorf("tree %s: %w", j.Table, err)
			}
			key := j.Table
			child, err := sel.Add(parent, cm, left, right, j.Outer, sqlgraph.Fixer(func(p, c mapping.Record) {
				list, _ := p[key].([]mapping.Record)
				p[key] = append(list, c)
			}))
			if err != nil {
				return err
			}
			if err := add(child, j.Table, append(path, j.Table)); err != nil {
				return err
			}
		}
		return nil
	}
	if err := add(sqlgraph.Root, root, []string{root}); err != nil {
		return nil, err
	}
	return sel.Build(), nil
}
