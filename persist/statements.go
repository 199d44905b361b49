package persist

import (
	"sort"
	"strconv"
	"strings"

	"github.com/syssam/relmap"
	"github.com/syssam/relmap/dialect"
	"github.com/syssam/relmap/dialect/sql"
	"github.com/syssam/relmap/mapping"
	"github.com/syssam/relmap/schema"
)

// insertStatement returns "insert into t (a, b) values (?, ?)".
func insertStatement(d sql.Dialect, t *schema.Table, cols []*schema.Column) string {
	var b strings.Builder
	b.WriteString("insert into ")
	b.WriteString(t.AbsoluteName())
	if len(cols) == 0 {
		if d.Name == dialect.MySQL {
			b.WriteString(" () values ()")
		} else {
			b.WriteString(" default values")
		}
		return b.String()
	}
	b.WriteString(" (")
	for i, c := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.Name)
	}
	b.WriteString(") values (")
	b.WriteString(sql.Placeholders(len(cols)))
	b.WriteString(")")
	return b.String()
}

// updateStatement returns "update t set a = ?, b = ? where c = ? and d = ?"
// for the set columns of cols followed by their where columns.
func updateStatement(t *schema.Table, cols []mapping.UpwhereColumn) string {
	var b strings.Builder
	b.WriteString("update ")
	b.WriteString(t.AbsoluteName())
	b.WriteString(" set ")
	first := true
	for _, c := range cols {
		if !c.Update {
			continue
		}
		if !first {
			b.WriteString(", ")
		}
		first = false
		b.WriteString(c.Column.Name)
		b.WriteString(" = ?")
	}
	first = true
	for _, c := range cols {
		if c.Update {
			continue
		}
		if first {
			b.WriteString(" where ")
		} else {
			b.WriteString(" and ")
		}
		first = false
		b.WriteString(c.Column.Name)
		b.WriteString(" = ?")
	}
	return b.String()
}

// deleteStatement returns "delete from t where a = ? and b = ?".
func deleteStatement(t *schema.Table, keys []*schema.Column) string {
	var b strings.Builder
	b.WriteString("delete from ")
	b.WriteString(t.AbsoluteName())
	for i, c := range keys {
		if i == 0 {
			b.WriteString(" where ")
		} else {
			b.WriteString(" and ")
		}
		b.WriteString(c.Name)
		b.WriteString(" = ?")
	}
	return b.String()
}

// massDeleteStatement returns "delete from t where pk in (?, ...)" for n keys.
func massDeleteStatement(t *schema.Table, pk *schema.Column, n int) string {
	return "delete from " + t.AbsoluteName() + " where " + pk.Name + " " + sql.InPlaceholders(n)
}

// canonical returns the columns of values in statement order: set columns
// first, then where columns, each by position in the table. The key
// identifies the column set.
func (p *Persister[E]) canonical(values map[mapping.UpwhereColumn]any) ([]mapping.UpwhereColumn, string, error) {
	cols := make([]mapping.UpwhereColumn, 0, len(values))
	for c := range values {
		if _, ok := p.positions[c.Column]; !ok {
			return nil, "", relmap.NewConfigError("update", "column %s is not a column of %s", c.Column, p.table.AbsoluteName())
		}
		cols = append(cols, c)
	}
	sort.Slice(cols, func(i, j int) bool {
		if cols[i].Update != cols[j].Update {
			return cols[i].Update
		}
		return p.positions[cols[i].Column] < p.positions[cols[j].Column]
	})
	var key strings.Builder
	for i, c := range cols {
		if i > 0 {
			key.WriteByte(',')
		}
		if c.Update {
			key.WriteByte('s')
		} else {
			key.WriteByte('w')
		}
		key.WriteString(strconv.Itoa(p.positions[c.Column]))
	}
	return cols, key.String(), nil
}

func updateArgs(cols []mapping.UpwhereColumn, values map[mapping.UpwhereColumn]any) []any {
	args := make([]any, len(cols))
	for i, c := range cols {
		args[i] = values[c]
	}
	return args
}

func columnArgs(cols []*schema.Column, values map[*schema.Column]any) []any {
	args := make([]any, len(cols))
	for i, c := range cols {
		args[i] = values[c]
	}
	return args
}
