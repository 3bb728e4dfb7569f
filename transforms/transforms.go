// Package transforms provides function-level wrappers over the graph engine:
// gradient functions (Grad, ValueAndGrad), traced-graph caching (JIT) and
// batched mapping (VMap).
//
// All transforms work on a Func, a Go function that traces its computation
// into a graph it is handed. The transform owns graph construction and
// argument binding; the Func only describes the math.
package transforms

import (
	"github.com/gomlx/exceptions"
	"github.com/gradflow/gradflow/backends"
	"github.com/gradflow/gradflow/graph"
	"github.com/gradflow/gradflow/types/xslices"
)

// Func traces a computation: args holds one node per call argument, in order,
// and the returned node is the (single) output. The same Func may be traced
// several times into different graphs.
type Func func(g *graph.Graph, args []*graph.Node) *graph.Node

// trace builds a fresh graph for f, binding each argument value to a constant
// node.
func trace(backend backends.Backend, name string, f Func, args []backends.Value) (argNodes []*graph.Node, output *graph.Node) {
	g := graph.New(backend, name)
	argNodes = xslices.Map(args, func(arg backends.Value) *graph.Node {
		return graph.Const(g, arg)
	})
	output = f(g, argNodes)
	if output == nil {
		exceptions.Panicf("transforms: traced function returned a nil node")
	}
	return argNodes, output
}
