package reduce

import (
	"fmt"

	"github.com/robert-malhotra/go-stepio/internal/dtype"
	"github.com/robert-malhotra/go-stepio/internal/status"
)

// MinMax returns the smallest and largest element of values.
func MinMax[T Number](values []T, opts ...Option) (lo, hi T, err error) {
	if lo, err = Reduce(values, Min[T](), opts...); err != nil {
		return lo, hi, err
	}
	if hi, err = Reduce(values, Max[T](), opts...); err != nil {
		return lo, hi, err
	}
	return lo, hi, nil
}

// MinMaxOf is MinMax over a slice held in an interface. Complex and other
// unordered element types return an error wrapping status.ErrUnsupportedType
// and nil results; callers must not read anything into them.
func MinMaxOf(values interface{}, opts ...Option) (lo, hi interface{}, err error) {
	switch v := values.(type) {
	case []int8:
		return boxed(v, opts)
	case []int16:
		return boxed(v, opts)
	case []int32:
		return boxed(v, opts)
	case []int64:
		return boxed(v, opts)
	case []uint8:
		return boxed(v, opts)
	case []uint16:
		return boxed(v, opts)
	case []uint32:
		return boxed(v, opts)
	case []uint64:
		return boxed(v, opts)
	case []float32:
		return boxed(v, opts)
	case []float64:
		return boxed(v, opts)
	default:
		return nil, nil, fmt.Errorf("min/max of %T: %w", values, status.ErrUnsupportedType)
	}
}

// MinMaxBytes decodes n little-endian elements of type t from raw and
// returns their min and max.
func MinMaxBytes(raw []byte, t dtype.Type, n int, opts ...Option) (lo, hi interface{}, err error) {
	if !t.IsOrdered() {
		return nil, nil, fmt.Errorf("min/max of %v: %w", t, status.ErrUnsupportedType)
	}
	if n == 0 {
		return nil, nil, fmt.Errorf("min/max over empty buffer: %w", status.ErrInvalidArgument)
	}
	slice, err := decodeSlice(t, raw, n)
	if err != nil {
		return nil, nil, err
	}
	return MinMaxOf(slice, opts...)
}

func boxed[T Number](v []T, opts []Option) (interface{}, interface{}, error) {
	lo, hi, err := MinMax(v, opts...)
	if err != nil {
		return nil, nil, err
	}
	return lo, hi, nil
}

func decodeSlice(t dtype.Type, raw []byte, n int) (interface{}, error) {
	var err error
	switch t {
	case dtype.Int8:
		var s []int8
		err = dtype.Decode(t, raw, n, &s)
		return s, err
	case dtype.Int16:
		var s []int16
		err = dtype.Decode(t, raw, n, &s)
		return s, err
	case dtype.Int32:
		var s []int32
		err = dtype.Decode(t, raw, n, &s)
		return s, err
	case dtype.Int64:
		var s []int64
		err = dtype.Decode(t, raw, n, &s)
		return s, err
	case dtype.Uint8:
		var s []uint8
		err = dtype.Decode(t, raw, n, &s)
		return s, err
	case dtype.Uint16:
		var s []uint16
		err = dtype.Decode(t, raw, n, &s)
		return s, err
	case dtype.Uint32:
		var s []uint32
		err = dtype.Decode(t, raw, n, &s)
		return s, err
	case dtype.Uint64:
		var s []uint64
		err = dtype.Decode(t, raw, n, &s)
		return s, err
	case dtype.Float32:
		var s []float32
		err = dtype.Decode(t, raw, n, &s)
		return s, err
	case dtype.Float64:
		var s []float64
		err = dtype.Decode(t, raw, n, &s)
		return s, err
	}
	return nil, fmt.Errorf("min/max of %v: %w", t, status.ErrUnsupportedType)
}
