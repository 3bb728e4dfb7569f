package transforms

import (
	"github.com/gomlx/exceptions"
	"github.com/gradflow/gradflow/backends"
	"github.com/gradflow/gradflow/graph"
)

// BatchBackend extends backends.Backend with splitting and joining along the
// leading axis, the capability VMap needs.
type BatchBackend interface {
	backends.Backend

	// Unstack splits value along its leading axis into one Value per index.
	Unstack(value backends.Value) []backends.Value

	// Stack joins same-shaped values along a new leading axis.
	Stack(values []backends.Value) backends.Value
}

// VMap wraps f into a function mapped over the leading axis of its arguments:
// tensor arguments are unstacked, f is applied per batch element, and the
// per-element results are stacked back. Scalar arguments are broadcast to
// every element.
//
// All batched arguments must agree on the leading-axis length. f is traced
// once; later batch elements re-bind the traced argument constants, like JIT.
func VMap(backend BatchBackend, f Func) func(args ...backends.Value) backends.Value {
	return func(args ...backends.Value) backends.Value {
		batchSize := -1
		unstacked := make([][]backends.Value, len(args)) // nil for scalars
		for ii, arg := range args {
			if backend.IsScalar(arg) {
				continue
			}
			elements := backend.Unstack(arg)
			if batchSize >= 0 && batchSize != len(elements) {
				exceptions.Panicf("vmap: argument %d has leading axis %d, previous arguments have %d",
					ii, len(elements), batchSize)
			}
			batchSize = len(elements)
			unstacked[ii] = elements
		}
		if batchSize < 0 {
			exceptions.Panicf("vmap: all %d arguments are scalars, nothing to map over", len(args))
		}

		elementArgs := func(idx int) []backends.Value {
			element := make([]backends.Value, len(args))
			for ii, arg := range args {
				if unstacked[ii] == nil {
					element[ii] = arg
				} else {
					element[ii] = unstacked[ii][idx]
				}
			}
			return element
		}

		argNodes, output := trace(backend, "vmap", f, elementArgs(0))
		results := make([]backends.Value, batchSize)
		results[0] = graph.Evaluate(output)
		for idx := 1; idx < batchSize; idx++ {
			for ii, arg := range elementArgs(idx) {
				argNodes[ii].SetConstValue(arg)
			}
			results[idx] = graph.Evaluate(output)
		}
		return backend.Stack(results)
	}
}
