// Package numeric defines the number-like contract the division algorithm
// is written against. Two implementations exist: exact rationals for
// evaluating concrete inputs, and symbolic expressions for generating
// prover input.
package numeric

// Value is a number supporting the fixed set of operations the division
// algorithm needs. Implementations return new values and never mutate
// their receiver.
type Value[T any] interface {
	Add(other T) T
	Sub(other T) T
	Neg() T
	Mul(other T) T
	Div(other T) T
	// Floor rounds toward negative infinity.
	Floor() T
	// Ceil rounds toward positive infinity.
	Ceil() T
}

// Domain builds constants of type T and records named intermediate
// results. A Domain instance carries the context that bindings are
// reported to, so one algorithm run uses exactly one Domain.
type Domain[T Value[T]] interface {
	// PowerOf2 returns the constant 2^exp. exp may be negative or zero.
	PowerOf2(exp int) T
	// Define records name as a binding for v and returns a value that
	// later expressions should use in place of v.
	Define(name string, v T) T
	// Debug reports an input value. It has no effect where no concrete
	// value exists.
	Debug(name string, v T)
}

// Binding is a named intermediate value produced by one algorithm run.
type Binding[T any] struct {
	Name  string
	Value T
}
