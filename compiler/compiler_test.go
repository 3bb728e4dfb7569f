package compiler_test

import (
	"testing"

	"github.com/gradflow/gradflow/backends/simplego"
	"github.com/gradflow/gradflow/compiler"
	"github.com/gradflow/gradflow/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileConstantExpression(t *testing.T) {
	g := graph.New(simplego.New(), "test")
	// (2+3)*4 compiles down to the single constant 20.
	root := graph.Mul(graph.Add(graph.Const(g, 2.0), graph.Const(g, 3.0)), graph.Const(g, 4.0))
	compiled := compiler.Compile(root)
	require.True(t, compiled.IsConstant())
	assert.Equal(t, 20.0, compiled.Value())
}

func TestCompilePreservesValue(t *testing.T) {
	g := graph.New(simplego.New(), "test")
	x := graph.Const(g, 2.0)
	// x^2 - 1/x^3, written without subtraction.
	root := graph.Add(
		graph.Mul(x, x),
		graph.Div(graph.Const(g, -1.0), graph.Mul(x, graph.Mul(x, x))),
	)
	before := graph.Evaluate(root)
	compiled := compiler.Compile(root)
	assert.Equal(t, before, graph.Evaluate(compiled))
	assert.Equal(t, 3.875, graph.Evaluate(compiled))
}

func TestCompileIdempotent(t *testing.T) {
	g := graph.New(simplego.New(), "test")
	x := opaque(g, 2.0)
	root := graph.Div(graph.Mul(x, graph.Const(g, 3.0)), graph.Const(g, 4.0))

	once := compiler.Compile(root)
	require.Equal(t, graph.OpTypeFusedScale, once.Type())
	require.Equal(t, 1.5, graph.Evaluate(once))

	twice := compiler.Compile(once)
	assert.Equal(t, graph.OpTypeFusedScale, twice.Type())
	assert.Equal(t, 1.5, graph.Evaluate(twice))
}

func TestCompileAppliesPatternsAfterFolding(t *testing.T) {
	g := graph.New(simplego.New(), "test")
	x := opaque(g, 7.0)
	// x * (3-2)... there is no Sub: x * (0+1) folds to x*1, then rewrites to x.
	one := graph.Add(graph.Const(g, 0.0), graph.Const(g, 1.0))
	compiled := compiler.Compile(graph.Mul(x, one))
	assert.Same(t, x, compiled)
}

func TestCompileWithCustomPasses(t *testing.T) {
	g := graph.New(simplego.New(), "test")
	root := graph.Add(graph.Const(g, 2.0), graph.Const(g, 3.0))
	// Only dead-code certification: nothing is rewritten.
	c := compiler.New(compiler.WithPasses(compiler.DeadCode{}))
	require.Same(t, root, c.Compile(root))
}

func TestCompileWithCustomPatterns(t *testing.T) {
	g := graph.New(simplego.New(), "test")
	x := opaque(g, 3.0)
	selfDiv := compiler.Pattern{
		Name: "self-div",
		Match: func(node *graph.Node) bool {
			return node.Type() == graph.OpTypeDiv && node.Inputs()[0] == node.Inputs()[1]
		},
		Replace: func(node *graph.Node) *graph.Node {
			return graph.Const(node.Graph(), 1.0)
		},
	}
	c := compiler.New(compiler.WithPatterns(selfDiv))
	compiled := c.Compile(graph.Div(x, x))
	require.True(t, compiled.IsConstant())
	assert.Equal(t, 1.0, compiled.Value())
}

func TestCompileKeepsGradientsWorking(t *testing.T) {
	g := graph.New(simplego.New(), "test")
	x := graph.Const(g, 2.0)
	root := graph.AddScalar(graph.Mul(x, x), 1)

	compiled := compiler.Compile(root)
	graph.Backward(compiled)
	// The compiled graph folded x away; differentiate the original instead.
	graph.Backward(root)
	assert.Equal(t, 4.0, x.Grad())
}
