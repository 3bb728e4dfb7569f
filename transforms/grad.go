package transforms

import (
	"github.com/gradflow/gradflow/backends"
	"github.com/gradflow/gradflow/graph"
	"github.com/gradflow/gradflow/types/xslices"
)

// ValueAndGrad wraps f into a function that returns both f's value and the
// gradient of f with respect to every argument, in argument order.
//
// Each call traces f into a fresh graph, evaluates it and runs reverse-mode
// differentiation from the output.
func ValueAndGrad(backend backends.Backend, f Func) func(args ...backends.Value) (backends.Value, []backends.Value) {
	return func(args ...backends.Value) (backends.Value, []backends.Value) {
		argNodes, output := trace(backend, "value_and_grad", f, args)
		value := graph.Evaluate(output)
		graph.Backward(output)
		grads := xslices.Map(argNodes, (*graph.Node).Grad)
		return value, grads
	}
}

// Grad wraps f into a function returning the gradient of f with respect to
// every argument, in argument order. It is ValueAndGrad with the value
// discarded.
func Grad(backend backends.Backend, f Func) func(args ...backends.Value) []backends.Value {
	valueAndGrad := ValueAndGrad(backend, f)
	return func(args ...backends.Value) []backends.Value {
		_, grads := valueAndGrad(args...)
		return grads
	}
}
