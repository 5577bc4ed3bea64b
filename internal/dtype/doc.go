// Package dtype provides element type tags and Go value conversion for
// stepio variables.
//
// Every variable carries a runtime [Type] tag. The tag fixes the element size
// and the Go type used by the typed accessors:
//
//	Type        | Go type     | Size
//	------------|-------------|-----
//	Int8..64    | int8..int64 | 1..8
//	Uint8..64   | uint8..     | 1..8
//	Float32/64  | float32/64  | 4/8
//	Complex64   | complex64   | 8  (float32 real/imag pair)
//	Complex128  | complex128  | 16 (float64 real/imag pair)
//	Bool        | bool        | 1
//	LongDouble  | raw []byte  | 16
//
// # Encoding
//
// Element data is stored little-endian. Use [Encode] to turn a Go slice into
// bytes and [Decode] to go back:
//
//	raw, err := dtype.Encode(dtype.Float64, []float64{1, 2, 3})
//	var out []float64
//	err = dtype.Decode(dtype.Float64, raw, 3, &out)
//
// [Decode] refuses destinations whose element type differs from the tag,
// returning an error wrapping status.ErrTypeMismatch. [CheckDest] performs
// the same check without touching any data.
package dtype
