// Package field describes the value kinds a mapped column can hold.
//
// A column's Type decides how its values are read back from a result set:
//
//	field.TypeInt64   // scanned through sql.NullInt64
//	field.TypeString  // scanned through sql.NullString
//	field.TypeTime    // scanned through sql.NullTime
//	field.TypeUUID    // scanned as text or bytes and parsed
//
// TypeOther columns are scanned into an any and returned as the driver
// produced them.
package field
