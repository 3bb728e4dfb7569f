// Package backends defines the capability surface the graph engine consumes
// from a numeric backend: elementwise arithmetic over a scalar-or-tensor
// Value type, and zero/one constructors matching a given Value's shape.
//
// The graph engine never inspects a tensor's layout or contents; it only
// needs to know whether a Value is a scalar or an opaque multi-dimensional
// value, and it relies on the backend to promote scalars when mixed with
// tensors.
//
// Backends report failures (shape mismatches and the like) by panicking with
// an error wrapping ErrArithmetic. Callers that need to recover, like the
// constant-folding pass, use exceptions.TryCatch.
package backends

import "github.com/pkg/errors"

// Value is an opaque numeric value handled by a Backend: either a Go scalar
// or a backend-specific multi-dimensional value.
type Value any

// Backend implements elementwise arithmetic over Values.
//
// All binary operations must accept any combination of scalar and tensor
// operands, promoting scalars as needed, and must preserve the shape class of
// their operands: tensor op anything is a tensor, scalar op scalar is a
// scalar.
type Backend interface {
	// Name returns a short backend name for logging and debugging.
	Name() string

	// Add returns the elementwise sum a+b.
	Add(a, b Value) Value

	// Mul returns the elementwise product a*b.
	Mul(a, b Value) Value

	// Div returns the elementwise quotient a/b. Division by zero follows the
	// backend's own numeric semantics (e.g. IEEE infinities), it is not an
	// error.
	Div(a, b Value) Value

	// Neg returns the elementwise negation -a.
	Neg(a Value) Value

	// ZerosLike returns the additive identity with the same shape class as v.
	ZerosLike(v Value) Value

	// OnesLike returns the multiplicative identity with the same shape class
	// as v.
	OnesLike(v Value) Value

	// IsScalar reports whether v is a scalar for this backend.
	IsScalar(v Value) bool
}

// ErrArithmetic is the root of backend arithmetic failures, like operating on
// two tensors of incompatible dimensions. Backends panic with errors wrapping
// it.
var ErrArithmetic = errors.New("backend arithmetic error")
