package sql

import (
	"strconv"
	"strings"

	"github.com/syssam/relmap/dialect"
)

// Dialect holds the constants a database imposes on generated statements.
type Dialect struct {
	// Name is one of the dialect package constants.
	Name string
	// InOperatorMaxSize is the maximum number of parameters of one "in" clause.
	InOperatorMaxSize int
	// BatchSize is the number of rows staged before a batch is flushed.
	BatchSize int
}

// Default dialect constants.
const (
	DefaultBatchSize         = 100
	DefaultInOperatorMaxSize = 1000
	// SQLite compiled with the default SQLITE_MAX_VARIABLE_NUMBER of old
	// releases accepts 999 variables.
	SQLiteInOperatorMaxSize = 500
)

// DialectFor returns the default constants of the named dialect.
func DialectFor(name string) Dialect {
	d := Dialect{Name: name, InOperatorMaxSize: DefaultInOperatorMaxSize, BatchSize: DefaultBatchSize}
	if name == dialect.SQLite {
		d.InOperatorMaxSize = SQLiteInOperatorMaxSize
	}
	return d
}

// Rebind rewrites the "?" placeholders of query into the placeholder style
// of the dialect. Generated statements hold no string literals, so every
// question mark is a placeholder.
func (d Dialect) Rebind(query string) string {
	if d.Name != dialect.Postgres {
		return query
	}
	n := strings.Count(query, "?")
	if n == 0 {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + n*3)
	i := 0
	for _, r := range query {
		if r != '?' {
			b.WriteRune(r)
			continue
		}
		i++
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(i))
	}
	return b.String()
}

// SupportsLastInsertID reports if the driver of the dialect returns generated
// identifiers through sql.Result.LastInsertId.
func (d Dialect) SupportsLastInsertID() bool {
	return d.Name != dialect.Postgres
}
