package reduce

import "golang.org/x/exp/constraints"

// Number is the set of element types with a natural order.
type Number interface {
	constraints.Integer | constraints.Float
}

// Op is an associative, commutative binary operator.
type Op[T any] struct {
	Name    string
	Combine func(a, b T) T
}

// Min returns the minimum operator.
func Min[T Number]() Op[T] {
	return Op[T]{Name: "min", Combine: func(a, b T) T {
		if b < a {
			return b
		}
		return a
	}}
}

// Max returns the maximum operator.
func Max[T Number]() Op[T] {
	return Op[T]{Name: "max", Combine: func(a, b T) T {
		if b > a {
			return b
		}
		return a
	}}
}

// Sum returns the addition operator. For floating point types the result
// depends on the launch geometry at the bit level.
func Sum[T Number]() Op[T] {
	return Op[T]{Name: "sum", Combine: func(a, b T) T { return a + b }}
}
