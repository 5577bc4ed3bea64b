// Package dtype provides the element type tags of stepio variables and their
// mapping to Go types.
package dtype

import (
	"fmt"
	"reflect"
)

// Type is a runtime element type tag.
type Type uint8

const (
	Unknown Type = iota
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float32
	Float64
	Complex64
	Complex128
	Bool
	// LongDouble is a 16-byte extended precision float. Go has no native
	// representation, so it is carried as opaque bytes.
	LongDouble
)

type typeInfo struct {
	name   string
	size   int
	goType reflect.Type
}

var types = [...]typeInfo{
	Unknown:    {"unknown", 0, nil},
	Int8:       {"int8", 1, reflect.TypeOf(int8(0))},
	Int16:      {"int16", 2, reflect.TypeOf(int16(0))},
	Int32:      {"int32", 4, reflect.TypeOf(int32(0))},
	Int64:      {"int64", 8, reflect.TypeOf(int64(0))},
	Uint8:      {"uint8", 1, reflect.TypeOf(uint8(0))},
	Uint16:     {"uint16", 2, reflect.TypeOf(uint16(0))},
	Uint32:     {"uint32", 4, reflect.TypeOf(uint32(0))},
	Uint64:     {"uint64", 8, reflect.TypeOf(uint64(0))},
	Float32:    {"float32", 4, reflect.TypeOf(float32(0))},
	Float64:    {"float64", 8, reflect.TypeOf(float64(0))},
	Complex64:  {"complex64", 8, reflect.TypeOf(complex64(0))},
	Complex128: {"complex128", 16, reflect.TypeOf(complex128(0))},
	Bool:       {"bool", 1, reflect.TypeOf(false)},
	LongDouble: {"long double", 16, nil},
}

// All lists every valid type tag.
var All = []Type{
	Int8, Int16, Int32, Int64,
	Uint8, Uint16, Uint32, Uint64,
	Float32, Float64, Complex64, Complex128,
	Bool, LongDouble,
}

// Valid reports whether t is a known, non-Unknown tag.
func (t Type) Valid() bool {
	return t > Unknown && int(t) < len(types)
}

func (t Type) String() string {
	if int(t) >= len(types) {
		return fmt.Sprintf("type(%d)", uint8(t))
	}
	return types[t].name
}

// Size returns the element size in bytes, or 0 for Unknown.
func (t Type) Size() int {
	if int(t) >= len(types) {
		return 0
	}
	return types[t].size
}

// GoType returns the Go element type, or nil when there is none.
func (t Type) GoType() reflect.Type {
	if int(t) >= len(types) {
		return nil
	}
	return types[t].goType
}

// IsComplex reports whether t is a complex type.
func (t Type) IsComplex() bool {
	return t == Complex64 || t == Complex128
}

// IsFloat reports whether t is a real floating point type.
func (t Type) IsFloat() bool {
	return t == Float32 || t == Float64
}

// IsOrdered reports whether values of t have a natural total order usable
// for min/max statistics.
func (t Type) IsOrdered() bool {
	switch t {
	case Int8, Int16, Int32, Int64, Uint8, Uint16, Uint32, Uint64, Float32, Float64:
		return true
	}
	return false
}

// FromGoType returns the tag for a Go element type.
func FromGoType(rt reflect.Type) (Type, error) {
	if rt == nil {
		return Unknown, fmt.Errorf("nil type")
	}
	for _, t := range All {
		if types[t].goType == rt {
			return t, nil
		}
	}
	return Unknown, fmt.Errorf("no element type for Go type %v", rt)
}

// Of returns the tag for the element type of a slice, a pointer to a slice,
// or a scalar value.
func Of(v interface{}) (Type, error) {
	rt := reflect.TypeOf(v)
	if rt == nil {
		return Unknown, fmt.Errorf("nil value")
	}
	if rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	if rt.Kind() == reflect.Slice || rt.Kind() == reflect.Array {
		rt = rt.Elem()
	}
	return FromGoType(rt)
}
