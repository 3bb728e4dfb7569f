// Package simplego implements a simple (and slow) pure-Go backend for the
// graph engine: scalars are float64 and tensors are dense row-major float64
// buffers.
//
// It exists so the core engine is testable and usable without any external
// accelerator, and it doubles as the reference semantics for what a backend
// must provide.
package simplego

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gradflow/gradflow/backends"
	"github.com/pkg/errors"
)

// Backend is the pure-Go implementation of backends.Backend.
type Backend struct{}

// Compile-time check.
var _ backends.Backend = (*Backend)(nil)

// New creates a simplego backend.
func New() *Backend {
	return &Backend{}
}

// Name implements backends.Backend.
func (b *Backend) Name() string { return "go" }

// Buffer is a dense row-major multi-dimensional float64 value.
type Buffer struct {
	dims []int
	flat []float64
}

// NewBuffer creates a Buffer with the given flat data and dimensions. The
// flat slice is used as is (not copied) and its length must match the product
// of dims.
func (b *Backend) NewBuffer(flat []float64, dims ...int) *Buffer {
	size := 1
	for _, dim := range dims {
		if dim <= 0 {
			panic(errors.Wrapf(backends.ErrArithmetic, "invalid dimension %d in NewBuffer(dims=%v)", dim, dims))
		}
		size *= dim
	}
	if len(flat) != size {
		panic(errors.Wrapf(backends.ErrArithmetic, "NewBuffer(dims=%v) requires %d elements, got %d", dims, size, len(flat)))
	}
	return &Buffer{dims: slices.Clone(dims), flat: flat}
}

// Dims returns the buffer dimensions. The returned slice is owned by the
// buffer and must not be modified.
func (buf *Buffer) Dims() []int { return buf.dims }

// Flat returns the underlying row-major data.
func (buf *Buffer) Flat() []float64 { return buf.flat }

// Size returns the total number of elements.
func (buf *Buffer) Size() int { return len(buf.flat) }

// String implements fmt.Stringer.
func (buf *Buffer) String() string {
	var parts []string
	for _, v := range buf.flat {
		parts = append(parts, fmt.Sprintf("%g", v))
	}
	return fmt.Sprintf("buffer(dims=%v, [%s])", buf.dims, strings.Join(parts, ", "))
}

// toScalar converts the common Go numeric types to float64.
func toScalar(v backends.Value) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// binaryOp applies fn elementwise, promoting scalars to the other operand's
// shape. Panics wrapping backends.ErrArithmetic on incompatible operands.
func (b *Backend) binaryOp(opName string, a, c backends.Value, fn func(x, y float64) float64) backends.Value {
	aScalar, aOk := toScalar(a)
	cScalar, cOk := toScalar(c)
	if aOk && cOk {
		return fn(aScalar, cScalar)
	}

	aBuf, aIsBuf := a.(*Buffer)
	cBuf, cIsBuf := c.(*Buffer)
	switch {
	case aIsBuf && cIsBuf:
		if !slices.Equal(aBuf.dims, cBuf.dims) {
			panic(errors.Wrapf(backends.ErrArithmetic, "%s: incompatible dimensions %v and %v", opName, aBuf.dims, cBuf.dims))
		}
		flat := make([]float64, len(aBuf.flat))
		for ii := range flat {
			flat[ii] = fn(aBuf.flat[ii], cBuf.flat[ii])
		}
		return &Buffer{dims: slices.Clone(aBuf.dims), flat: flat}

	case aIsBuf && cOk:
		flat := make([]float64, len(aBuf.flat))
		for ii, x := range aBuf.flat {
			flat[ii] = fn(x, cScalar)
		}
		return &Buffer{dims: slices.Clone(aBuf.dims), flat: flat}

	case aOk && cIsBuf:
		flat := make([]float64, len(cBuf.flat))
		for ii, y := range cBuf.flat {
			flat[ii] = fn(aScalar, y)
		}
		return &Buffer{dims: slices.Clone(cBuf.dims), flat: flat}
	}
	panic(errors.Wrapf(backends.ErrArithmetic, "%s: unsupported operands %T and %T", opName, a, c))
}

// Add implements backends.Backend.
func (b *Backend) Add(a, c backends.Value) backends.Value {
	return b.binaryOp("Add", a, c, func(x, y float64) float64 { return x + y })
}

// Mul implements backends.Backend.
func (b *Backend) Mul(a, c backends.Value) backends.Value {
	return b.binaryOp("Mul", a, c, func(x, y float64) float64 { return x * y })
}

// Div implements backends.Backend. Division by zero follows IEEE-754 (Inf or
// NaN), it does not panic.
func (b *Backend) Div(a, c backends.Value) backends.Value {
	return b.binaryOp("Div", a, c, func(x, y float64) float64 { return x / y })
}

// Neg implements backends.Backend.
func (b *Backend) Neg(a backends.Value) backends.Value {
	return b.Mul(a, -1.0)
}

// ZerosLike implements backends.Backend.
func (b *Backend) ZerosLike(v backends.Value) backends.Value {
	return b.fillLike("ZerosLike", v, 0)
}

// OnesLike implements backends.Backend.
func (b *Backend) OnesLike(v backends.Value) backends.Value {
	return b.fillLike("OnesLike", v, 1)
}

func (b *Backend) fillLike(opName string, v backends.Value, value float64) backends.Value {
	if _, ok := toScalar(v); ok {
		return value
	}
	if buf, ok := v.(*Buffer); ok {
		flat := make([]float64, len(buf.flat))
		for ii := range flat {
			flat[ii] = value
		}
		return &Buffer{dims: slices.Clone(buf.dims), flat: flat}
	}
	panic(errors.Wrapf(backends.ErrArithmetic, "%s: unsupported value %T", opName, v))
}

// IsScalar implements backends.Backend.
func (b *Backend) IsScalar(v backends.Value) bool {
	_, ok := toScalar(v)
	return ok
}

// Unstack splits a buffer along its leading axis, returning one Value per
// index: scalars for rank-1 buffers, sub-buffers otherwise. It is used by the
// batching (vmap) transform.
func (b *Backend) Unstack(v backends.Value) []backends.Value {
	buf, ok := v.(*Buffer)
	if !ok {
		panic(errors.Wrapf(backends.ErrArithmetic, "Unstack: requires a *Buffer, got %T", v))
	}
	batch := buf.dims[0]
	stride := len(buf.flat) / batch
	values := make([]backends.Value, batch)
	for ii := range values {
		part := buf.flat[ii*stride : (ii+1)*stride]
		if len(buf.dims) == 1 {
			values[ii] = part[0]
		} else {
			values[ii] = &Buffer{dims: slices.Clone(buf.dims[1:]), flat: part}
		}
	}
	return values
}

// Stack joins values along a new leading axis, the inverse of Unstack. All
// values must have the same shape.
func (b *Backend) Stack(values []backends.Value) backends.Value {
	if len(values) == 0 {
		panic(errors.Wrapf(backends.ErrArithmetic, "Stack: no values given"))
	}
	if _, ok := toScalar(values[0]); ok {
		flat := make([]float64, len(values))
		for ii, v := range values {
			scalar, ok := toScalar(v)
			if !ok {
				panic(errors.Wrapf(backends.ErrArithmetic, "Stack: mixed scalar and tensor values"))
			}
			flat[ii] = scalar
		}
		return &Buffer{dims: []int{len(values)}, flat: flat}
	}

	first, ok := values[0].(*Buffer)
	if !ok {
		panic(errors.Wrapf(backends.ErrArithmetic, "Stack: unsupported value %T", values[0]))
	}
	flat := make([]float64, 0, len(values)*first.Size())
	for _, v := range values {
		buf, ok := v.(*Buffer)
		if !ok || !slices.Equal(buf.dims, first.dims) {
			panic(errors.Wrapf(backends.ErrArithmetic, "Stack: values must all have the same dimensions"))
		}
		flat = append(flat, buf.flat...)
	}
	dims := append([]int{len(values)}, first.dims...)
	return &Buffer{dims: dims, flat: flat}
}
