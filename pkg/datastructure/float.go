package datastructure

import (
	"math"
)

const (
	EPS = 1e-6
)

// Index addresses vertices and edges. Ids are dense and non-negative;
// INVALID_ID marks absent references.
type Index int32

const (
	INVALID_ID Index = -1
)

// equal operator
func Eq(a, b float64) bool {
	return math.Abs(a-b) <= EPS
}

// less than operator
func Lt(a, b float64) bool {
	return a+EPS < b
}

// greater than or equal operator
func Ge(a, b float64) bool {
	return Le(b, a)
}

func Gt(a, b float64) bool {
	return Lt(b, a)
}

// less than or equal operator
func Le(a, b float64) bool {
	return a <= b+EPS
}
