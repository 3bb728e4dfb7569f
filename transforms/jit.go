package transforms

import (
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gradflow/gradflow/backends"
	"github.com/gradflow/gradflow/graph"
)

// tracedGraph is one cache entry: the graph traced for a given argument-kind
// signature, with the constant nodes holding the arguments.
type tracedGraph struct {
	argNodes []*graph.Node
	output   *graph.Node
}

// JIT wraps f into a function that traces it once per argument-kind signature
// and reuses the traced graph on later calls, re-binding the argument
// constants (see graph.Node.SetConstValue) instead of re-tracing.
//
// The signature distinguishes argument count and scalar vs. tensor per
// position: a scalar and a tensor can flow through differently-broadcast
// graphs, but two tensors of different shapes share one.
//
// The traced graph is deliberately NOT run through the compiler: constant
// folding would bake the first call's arguments into the graph. Callers
// wanting optimized graphs should compile a graph they trace themselves,
// with arguments they do not re-bind.
//
// The returned function is not safe for concurrent use: calls re-bind and
// evaluate shared graphs.
func JIT(backend backends.Backend, f Func) func(args ...backends.Value) backends.Value {
	cache := make(map[string]*tracedGraph)
	return func(args ...backends.Value) backends.Value {
		key := signature(backend, args)
		entry, found := cache[key]
		if !found {
			argNodes, output := trace(backend, "jit", f, args)
			entry = &tracedGraph{argNodes: argNodes, output: output}
			cache[key] = entry
		} else {
			if len(args) != len(entry.argNodes) {
				exceptions.Panicf("jit: signature %q cached with %d arguments, called with %d", key, len(entry.argNodes), len(args))
			}
			for ii, arg := range args {
				entry.argNodes[ii].SetConstValue(arg)
			}
		}
		return graph.Evaluate(entry.output)
	}
}

func signature(backend backends.Backend, args []backends.Value) string {
	var sb strings.Builder
	for _, arg := range args {
		if backend.IsScalar(arg) {
			sb.WriteByte('s')
		} else {
			sb.WriteByte('t')
		}
	}
	return sb.String()
}
