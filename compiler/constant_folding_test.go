package compiler_test

import (
	"testing"

	"github.com/gradflow/gradflow/backends"
	"github.com/gradflow/gradflow/backends/simplego"
	"github.com/gradflow/gradflow/compiler"
	"github.com/gradflow/gradflow/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// opaque wraps a value in a custom node that the passes cannot see through,
// standing in for a runtime input.
var opaqueOp = &graph.CustomOp{
	Name: "opaque",
	Eval: func(_ backends.Backend, inputs []backends.Value) backends.Value {
		return inputs[0]
	},
	VJP: func(_ *graph.Node, v backends.Value, _ func(*graph.Node) backends.Value) []backends.Value {
		return []backends.Value{v}
	},
}

func opaque(g *graph.Graph, value float64) *graph.Node {
	return graph.Custom(opaqueOp, graph.Const(g, value))
}

func TestConstantFolding(t *testing.T) {
	g := graph.New(simplego.New(), "test")
	// (2+3)*4 folds all the way down to 20.
	root := graph.Mul(graph.Add(graph.Const(g, 2.0), graph.Const(g, 3.0)), graph.Const(g, 4.0))
	folded := compiler.ConstantFolding{}.Apply(root)
	require.True(t, folded.IsConstant())
	assert.Equal(t, 20.0, folded.Value())
}

func TestConstantFoldingPartial(t *testing.T) {
	g := graph.New(simplego.New(), "test")
	x := opaque(g, 10.0)
	// (2+3) + x: only the constant subtree folds.
	root := graph.Add(graph.Add(graph.Const(g, 2.0), graph.Const(g, 3.0)), x)
	folded := compiler.ConstantFolding{}.Apply(root)
	require.Equal(t, graph.OpTypeAdd, folded.Type())
	require.True(t, folded.Inputs()[0].IsConstant())
	assert.Equal(t, 5.0, folded.Inputs()[0].Value())
	require.Same(t, x, folded.Inputs()[1])
	assert.Equal(t, 15.0, graph.Evaluate(folded))
}

func TestConstantFoldingSkipsDiv(t *testing.T) {
	g := graph.New(simplego.New(), "test")
	root := graph.Div(graph.Const(g, 6.0), graph.Const(g, 3.0))
	folded := compiler.ConstantFolding{}.Apply(root)
	require.Same(t, root, folded)
	assert.Equal(t, graph.OpTypeDiv, folded.Type())
}

func TestConstantFoldingLeavesFailuresUnfolded(t *testing.T) {
	backend := simplego.New()
	g := graph.New(backend, "test")
	// Adding mismatched tensor constants cannot be evaluated; the node must
	// survive unfolded rather than abort the pass.
	a := graph.Const(g, backend.NewBuffer([]float64{1, 2}, 2))
	b := graph.Const(g, backend.NewBuffer([]float64{1, 2, 3}, 3))
	root := graph.Add(a, b)
	folded := compiler.ConstantFolding{}.Apply(root)
	require.Same(t, root, folded)
	assert.Equal(t, graph.OpTypeAdd, folded.Type())
}
