package dtype

// Conversion between Go values and the little-endian byte layout used for
// every stored block. Slices go through encoding/binary, which handles all
// fixed-size numeric kinds including bool and complex. LongDouble has no Go
// counterpart and is only moved as raw bytes.

import (
	"encoding/binary"
	"fmt"
	"reflect"

	"github.com/robert-malhotra/go-stepio/internal/status"
)

// Order is the byte order of encoded element data.
var Order = binary.LittleEndian

// Encode converts a slice (or pointer to slice, or scalar) of Go values of
// type t into raw bytes. For LongDouble src must be a []byte whose length is
// a multiple of 16.
func Encode(t Type, src interface{}) ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("encode %v: %w", t, status.ErrUnsupportedType)
	}

	if t == LongDouble {
		raw, ok := src.([]byte)
		if !ok || len(raw)%t.Size() != 0 {
			return nil, fmt.Errorf("encode long double from %T: %w", src, status.ErrTypeMismatch)
		}
		return append([]byte(nil), raw...), nil
	}

	got, err := Of(src)
	if err != nil {
		return nil, fmt.Errorf("encode %v: %v: %w", t, err, status.ErrTypeMismatch)
	}
	if got != t {
		return nil, fmt.Errorf("encode %v from %v: %w", t, got, status.ErrTypeMismatch)
	}

	v := reflect.ValueOf(src)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() == reflect.Array {
		// binary.Append wants an addressable array or a slice.
		s := reflect.MakeSlice(reflect.SliceOf(v.Type().Elem()), v.Len(), v.Len())
		reflect.Copy(s, v)
		v = s
	}

	data, err := binary.Append(nil, Order, v.Interface())
	if err != nil {
		return nil, fmt.Errorf("encode %v: %w", t, err)
	}
	return data, nil
}

// Len returns the number of elements of type t in src, which must be a
// slice, array, pointer to either, or a scalar.
func Len(t Type, src interface{}) int {
	if t == LongDouble {
		if raw, ok := src.([]byte); ok {
			return len(raw) / t.Size()
		}
		return 0
	}
	v := reflect.ValueOf(src)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		return v.Len()
	case reflect.Invalid:
		return 0
	default:
		return 1
	}
}

// Decode converts n elements of type t from raw into dst.
//
// dst may be a *[]T, in which case a new slice of exactly n elements is
// allocated, or a *T when n == 1. The Go element type of dst must match t;
// no coercion is attempted.
func Decode(t Type, raw []byte, n int, dst interface{}) error {
	if err := CheckDest(t, dst); err != nil {
		return err
	}
	need := n * t.Size()
	if len(raw) < need {
		return fmt.Errorf("decode %d %v values: have %d bytes, need %d", n, t, len(raw), need)
	}

	dv := reflect.ValueOf(dst).Elem()
	if dv.Kind() != reflect.Slice {
		if n != 1 {
			return fmt.Errorf("decode %d values into scalar %T: %w", n, dst, status.ErrInvalidArgument)
		}
		_, err := binary.Decode(raw[:need], Order, dst)
		return err
	}

	if t == LongDouble {
		dv.SetBytes(append([]byte(nil), raw[:need]...))
		return nil
	}

	s := reflect.MakeSlice(dv.Type(), n, n)
	if n > 0 {
		if _, err := binary.Decode(raw[:need], Order, s.Interface()); err != nil {
			return fmt.Errorf("decode %v: %w", t, err)
		}
	}
	dv.Set(s)
	return nil
}

// CheckDest verifies that dst is a non-nil *[]T or *T whose element type is
// t. It never allocates, so accessors call it before any buffer exists.
func CheckDest(t Type, dst interface{}) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("destination must be a non-nil pointer, got %T: %w", dst, status.ErrInvalidArgument)
	}
	et := rv.Type().Elem()
	if et.Kind() == reflect.Slice {
		et = et.Elem()
	}

	if t == LongDouble {
		if rv.Type().Elem() != reflect.TypeOf([]byte(nil)) {
			return fmt.Errorf("long double destination must be *[]byte, got %T: %w", dst, status.ErrTypeMismatch)
		}
		return nil
	}

	want := t.GoType()
	if want == nil {
		return fmt.Errorf("decode %v: %w", t, status.ErrUnsupportedType)
	}
	if et != want {
		return fmt.Errorf("destination %T for %v variable: %w", dst, t, status.ErrTypeMismatch)
	}
	return nil
}
