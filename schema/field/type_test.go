package field_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/syssam/relmap/schema/field"
)

func TestType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		typ     field.Type
		name    string
		valid   bool
		numeric bool
		integer bool
	}{
		{field.TypeInvalid, "invalid", false, false, false},
		{field.TypeBool, "bool", true, false, false},
		{field.TypeTime, "time.Time", true, false, false},
		{field.TypeUUID, "uuid.UUID", true, false, false},
		{field.TypeString, "string", true, false, false},
		{field.TypeInt, "int", true, true, true},
		{field.TypeInt64, "int64", true, true, true},
		{field.TypeUint64, "uint64", true, true, true},
		{field.TypeFloat64, "float64", true, true, false},
		{field.TypeOther, "other", true, false, false},
		{field.Type(200), "invalid", false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.typ.String())
			assert.Equal(t, tt.valid, tt.typ.Valid())
			assert.Equal(t, tt.numeric, tt.typ.Numeric())
			assert.Equal(t, tt.integer, tt.typ.Integer())
		})
	}
	assert.True(t, field.TypeFloat32.Float())
	assert.False(t, field.TypeInt32.Float())
}
