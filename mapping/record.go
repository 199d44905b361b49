package mapping

import (
	"github.com/syssam/relmap/schema"
)

// Record is an entity holding column values by column name. It lets tables
// known only at run time be read and written without a Go type.
type Record map[string]any

// NewRecordMapper returns a Mapper binding every column of table to the
// Record key of the same name.
func NewRecordMapper(table *schema.Table, opts ...MapperOption[Record]) (*Mapper[Record], error) {
	bindings := make([]Binding[Record], len(table.Columns))
	for i, c := range table.Columns {
		name := c.Name
		bindings[i] = Binding[Record]{
			Column: c,
			Get:    func(r Record) any { return r[name] },
			Set: func(r Record, v any) error {
				r[name] = v
				return nil
			},
		}
	}
	return NewMapper(table, func() Record { return make(Record) }, bindings, opts...)
}
