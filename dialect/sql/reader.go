package sql

import (
	"github.com/syssam/relmap/schema/field"
)

// ValueReader creates scan destinations for one kind of column and turns a
// scanned destination into a plain value. NULL is read as nil.
type ValueReader interface {
	Dest() any
	Read(dest any) any
}

type valueReader struct {
	dest func() any
	read func(any) any
}

func (r valueReader) Dest() any         { return r.dest() }
func (r valueReader) Read(dest any) any { return r.read(dest) }

var (
	int64Reader = valueReader{
		dest: func() any { return new(NullInt64) },
		read: func(d any) any {
			if v := d.(*NullInt64); v.Valid {
				return v.Int64
			}
			return nil
		},
	}
	boolReader = valueReader{
		dest: func() any { return new(NullBool) },
		read: func(d any) any {
			if v := d.(*NullBool); v.Valid {
				return v.Bool
			}
			return nil
		},
	}
	floatReader = valueReader{
		dest: func() any { return new(NullFloat64) },
		read: func(d any) any {
			if v := d.(*NullFloat64); v.Valid {
				return v.Float64
			}
			return nil
		},
	}
	stringReader = valueReader{
		dest: func() any { return new(NullString) },
		read: func(d any) any {
			if v := d.(*NullString); v.Valid {
				return v.String
			}
			return nil
		},
	}
	timeReader = valueReader{
		dest: func() any { return new(NullTime) },
		read: func(d any) any {
			if v := d.(*NullTime); v.Valid {
				return v.Time
			}
			return nil
		},
	}
	bytesReader = valueReader{
		dest: func() any { return new([]byte) },
		read: func(d any) any {
			b := *d.(*[]byte)
			if b == nil {
				return nil
			}
			return append([]byte(nil), b...)
		},
	}
	anyReader = valueReader{
		dest: func() any { return new(any) },
		read: func(d any) any {
			switch v := (*d.(*any)).(type) {
			case []byte:
				// Drivers may reuse the buffer on the next Scan.
				return append([]byte(nil), v...)
			default:
				return v
			}
		},
	}
)

// ReaderFor returns the ValueReader of a column type. Integer columns of any
// width are read as int64, floating point columns as float64. UUID and other
// columns are read as whatever the driver returns.
func ReaderFor(t field.Type) ValueReader {
	switch {
	case t.Integer():
		return int64Reader
	case t.Float():
		return floatReader
	}
	switch t {
	case field.TypeBool:
		return boolReader
	case field.TypeString:
		return stringReader
	case field.TypeTime:
		return timeReader
	case field.TypeBytes:
		return bytesReader
	default:
		return anyReader
	}
}
