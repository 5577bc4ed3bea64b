package stepio

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/robert-malhotra/go-stepio/internal/dtype"
)

// accessor moves elements of one type between staging bytes and a caller's
// destination. Destinations are *[]T for selections and *T for values.
type accessor interface {
	check(out interface{}) error
	decode(raw []byte, n int, out interface{}) error
}

var accessors = map[dtype.Type]accessor{
	dtype.Int8:       typed[int8]{dtype.Int8},
	dtype.Int16:      typed[int16]{dtype.Int16},
	dtype.Int32:      typed[int32]{dtype.Int32},
	dtype.Int64:      typed[int64]{dtype.Int64},
	dtype.Uint8:      typed[uint8]{dtype.Uint8},
	dtype.Uint16:     typed[uint16]{dtype.Uint16},
	dtype.Uint32:     typed[uint32]{dtype.Uint32},
	dtype.Uint64:     typed[uint64]{dtype.Uint64},
	dtype.Float32:    typed[float32]{dtype.Float32},
	dtype.Float64:    typed[float64]{dtype.Float64},
	dtype.Complex64:  typed[complex64]{dtype.Complex64},
	dtype.Complex128: typed[complex128]{dtype.Complex128},
	dtype.Bool:       typed[bool]{dtype.Bool},
	dtype.LongDouble: opaque{dtype.LongDouble},
}

func accessorFor(t dtype.Type) (accessor, error) {
	a, ok := accessors[t]
	if !ok {
		return nil, fmt.Errorf("%v: %w", t, ErrUnsupportedType)
	}
	return a, nil
}

type typed[T any] struct {
	typ dtype.Type
}

func (a typed[T]) check(out interface{}) error {
	switch o := out.(type) {
	case *[]T:
		if o != nil {
			return nil
		}
	case *T:
		if o != nil {
			return nil
		}
	default:
		return fmt.Errorf("destination %T for %v variable: %w", out, a.typ, ErrTypeMismatch)
	}
	return fmt.Errorf("nil destination %T: %w", out, ErrInvalidArgument)
}

func (a typed[T]) decode(raw []byte, n int, out interface{}) error {
	vals := make([]T, n)
	if _, err := binary.Decode(raw, dtype.Order, vals); err != nil {
		return fmt.Errorf("decoding %d %v values: %w", n, a.typ, err)
	}
	switch o := out.(type) {
	case *[]T:
		*o = vals
	case *T:
		if n != 1 {
			return fmt.Errorf("%d values into scalar destination: %w", n, ErrInvalidArgument)
		}
		*o = vals[0]
	}
	return nil
}

// opaque carries types without a Go representation as raw element bytes.
type opaque struct {
	typ dtype.Type
}

func (a opaque) check(out interface{}) error {
	o, ok := out.(*[]byte)
	if !ok {
		return fmt.Errorf("%v destination must be *[]byte, got %T: %w", a.typ, out, ErrTypeMismatch)
	}
	if o == nil {
		return fmt.Errorf("nil destination: %w", ErrInvalidArgument)
	}
	return nil
}

func (a opaque) decode(raw []byte, n int, out interface{}) error {
	*out.(*[]byte) = bytes.Clone(raw[:n*a.typ.Size()])
	return nil
}
