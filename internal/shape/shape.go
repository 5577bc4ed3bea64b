// Package shape implements arithmetic over start/count/shape tuples and the
// copying of rectangular regions between row-major buffers. It does no I/O.
package shape

import (
	"errors"
	"fmt"
	"math/bits"
)

// ErrOutOfBounds is returned when a box does not fit inside a shape.
var ErrOutOfBounds = errors.New("selection out of bounds")

// ErrRankMismatch is returned when tuple lengths disagree.
var ErrRankMismatch = errors.New("rank mismatch")

// Mul returns a*b and whether the product fits in a uint64.
func Mul(a, b uint64) (uint64, bool) {
	hi, lo := bits.Mul64(a, b)
	return lo, hi == 0
}

// Product returns the product of dims and whether it fits in a uint64.
// The product of an empty tuple is 1.
func Product(dims []uint64) (uint64, bool) {
	p := uint64(1)
	for _, d := range dims {
		var ok bool
		if p, ok = Mul(p, d); !ok {
			return 0, false
		}
	}
	return p, true
}

// MustProduct is Product for tuples already known not to overflow.
func MustProduct(dims []uint64) uint64 {
	p, _ := Product(dims)
	return p
}

// Strides returns row-major byte strides for dims.
func Strides(dims []uint64, elementSize uint64) []uint64 {
	n := len(dims)
	if n == 0 {
		return nil
	}
	s := make([]uint64, n)
	s[n-1] = elementSize
	for d := n - 2; d >= 0; d-- {
		s[d] = s[d+1] * dims[d+1]
	}
	return s
}

// CheckBox verifies that the box (start, count) lies inside shape.
func CheckBox(start, count, shape []uint64) error {
	if len(start) != len(shape) || len(count) != len(shape) {
		return fmt.Errorf("start has %d dims, count %d, shape %d: %w",
			len(start), len(count), len(shape), ErrRankMismatch)
	}
	for d := range shape {
		end := start[d] + count[d]
		if end < start[d] || end > shape[d] {
			return fmt.Errorf("dimension %d: start=%d + count=%d > size=%d: %w",
				d, start[d], count[d], shape[d], ErrOutOfBounds)
		}
	}
	return nil
}

// Overlap returns the intersection of two boxes. ok is false when they are
// disjoint. Rank-0 boxes always overlap.
func Overlap(aStart, aCount, bStart, bCount []uint64) (start, count []uint64, ok bool) {
	n := len(aStart)
	start = make([]uint64, n)
	count = make([]uint64, n)
	for d := 0; d < n; d++ {
		lo := max(aStart[d], bStart[d])
		hi := min(aStart[d]+aCount[d], bStart[d]+bCount[d])
		if hi <= lo {
			return nil, nil, false
		}
		start[d] = lo
		count[d] = hi - lo
	}
	return start, count, true
}

// IsPow2 reports whether n is a power of two.
func IsPow2(n uint64) bool {
	return n != 0 && n&(n-1) == 0
}

// NextPow2 returns the smallest power of two >= n. NextPow2(0) is 1.
func NextPow2(n uint64) uint64 {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len64(n-1)
}

// CeilDiv returns ceil(a/b) for b > 0.
func CeilDiv(a, b uint64) uint64 {
	return (a + b - 1) / b
}
