package mapping

import (
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
)

// Convert turns a value read from the database into V. NULL becomes the zero
// value of V. Numeric values are converted between kinds, text and bytes are
// interchangeable, and UUIDs are parsed from either.
func Convert[V any](v any) (V, error) {
	var zero V
	if v == nil {
		return zero, nil
	}
	if tv, ok := v.(V); ok {
		return tv, nil
	}
	switch p := any(&zero).(type) {
	case *uuid.UUID:
		var err error
		switch s := v.(type) {
		case string:
			*p, err = uuid.Parse(s)
		case []byte:
			if len(s) == 16 {
				*p, err = uuid.FromBytes(s)
			} else {
				*p, err = uuid.ParseBytes(s)
			}
		default:
			err = fmt.Errorf("mapping: cannot convert %T to uuid.UUID", v)
		}
		return zero, err
	case *time.Time:
		return zero, fmt.Errorf("mapping: cannot convert %T to time.Time", v)
	}
	src := reflect.ValueOf(v)
	dst := reflect.TypeOf(zero)
	if dst == nil {
		// V is an interface type that v does not satisfy.
		return zero, fmt.Errorf("mapping: cannot convert %T", v)
	}
	switch {
	case isNumber(src.Kind()) && isNumber(dst.Kind()):
		return src.Convert(dst).Interface().(V), nil
	case src.Kind() == reflect.Slice && src.Type().Elem().Kind() == reflect.Uint8 && dst.Kind() == reflect.String:
		return reflect.ValueOf(string(src.Bytes())).Convert(dst).Interface().(V), nil
	case src.Kind() == reflect.String && dst.Kind() == reflect.Slice && dst.Elem().Kind() == reflect.Uint8:
		return reflect.ValueOf([]byte(src.String())).Convert(dst).Interface().(V), nil
	case src.Type().ConvertibleTo(dst) && src.Kind() == dst.Kind():
		return src.Convert(dst).Interface().(V), nil
	case dst.Kind() == reflect.Bool && isNumber(src.Kind()):
		return reflect.ValueOf(!src.IsZero()).Convert(dst).Interface().(V), nil
	}
	return zero, fmt.Errorf("mapping: cannot convert %T to %s", v, dst)
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
