package graph_test

import (
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/gradflow/gradflow/backends"
	"github.com/gradflow/gradflow/backends/simplego"
	"github.com/gradflow/gradflow/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	g := graph.New(simplego.New(), "test")
	a := graph.Const(g, 6.0)
	b := graph.Const(g, 3.0)
	assert.Equal(t, 9.0, graph.Evaluate(graph.Add(a, b)))
	assert.Equal(t, 18.0, graph.Evaluate(graph.Mul(a, b)))
	assert.Equal(t, 2.0, graph.Evaluate(graph.Div(a, b)))

	// Nested expression: (6+3) * (6/3) = 18.
	nested := graph.Mul(graph.Add(a, b), graph.Div(a, b))
	assert.Equal(t, 18.0, graph.Evaluate(nested))

	// Evaluation is pure: same value on repeated calls.
	assert.Equal(t, 18.0, graph.Evaluate(nested))
}

func TestEvaluateTensors(t *testing.T) {
	backend := simplego.New()
	g := graph.New(backend, "test")
	vec := graph.Const(g, backend.NewBuffer([]float64{1, 2, 3}, 3))
	scaled := graph.MulScalar(vec, 10)
	result := graph.Evaluate(scaled)
	require.IsType(t, &simplego.Buffer{}, result)
	assert.Equal(t, []float64{10, 20, 30}, result.(*simplego.Buffer).Flat())
}

func TestEvaluateFused(t *testing.T) {
	g := graph.New(simplego.New(), "test")
	a := graph.Const(g, 2.0)
	b := graph.Const(g, 3.0)
	c := graph.Const(g, 4.0)

	assert.Equal(t, 10.0, graph.Evaluate(graph.FusedOp(graph.OpTypeFusedMulAdd, a, b, c)))
	assert.Equal(t, 1.5, graph.Evaluate(graph.FusedOp(graph.OpTypeFusedScale, a, b, c)))
	assert.Equal(t, 9.0, graph.Evaluate(graph.FusedOp(graph.OpTypeFusedAddChain, a, b, c)))
	assert.Equal(t, 24.0, graph.Evaluate(graph.FusedOp(graph.OpTypeFusedMulChain, a, b, c)))
}

func TestFusedOpValidation(t *testing.T) {
	g := graph.New(simplego.New(), "test")
	a := graph.Const(g, 2.0)
	b := graph.Const(g, 3.0)

	err := exceptions.TryCatch[error](func() { graph.FusedOp(graph.OpTypeAdd, a, b) })
	require.Error(t, err)
	err = exceptions.TryCatch[error](func() { graph.FusedOp(graph.OpTypeFusedMulAdd, a, b) })
	require.Error(t, err)
	err = exceptions.TryCatch[error](func() { graph.FusedOp(graph.OpTypeFusedAddChain, a) })
	require.Error(t, err)
}

func TestEvaluateCustomOp(t *testing.T) {
	sub := &graph.CustomOp{
		Name: "sub",
		Eval: func(backend backends.Backend, inputs []backends.Value) backends.Value {
			return backend.Add(inputs[0], backend.Neg(inputs[1]))
		},
	}
	g := graph.New(simplego.New(), "test")
	a := graph.Const(g, 7.0)
	b := graph.Const(g, 3.0)
	diff := graph.Custom(sub, a, b)
	require.Equal(t, graph.OpTypeCustom, diff.Type())
	require.Same(t, sub, diff.Custom())
	assert.Equal(t, 4.0, graph.Evaluate(diff))
}

func TestEvaluateUnknownOp(t *testing.T) {
	opaque := &graph.CustomOp{Name: "opaque"} // no Eval
	g := graph.New(simplego.New(), "test")
	node := graph.Custom(opaque, graph.Const(g, 1.0))
	err := exceptions.TryCatch[error](func() { graph.Evaluate(node) })
	require.ErrorIs(t, err, graph.ErrUnknownOp)
}

func TestEvaluatePropagatesBackendErrors(t *testing.T) {
	backend := simplego.New()
	g := graph.New(backend, "test")
	a := graph.Const(g, backend.NewBuffer([]float64{1, 2}, 2))
	b := graph.Const(g, backend.NewBuffer([]float64{1, 2, 3}, 3))
	err := exceptions.TryCatch[error](func() { graph.Evaluate(graph.Add(a, b)) })
	require.ErrorIs(t, err, backends.ErrArithmetic)
}

func TestCustomOpValidation(t *testing.T) {
	g := graph.New(simplego.New(), "test")
	x := graph.Const(g, 1.0)
	err := exceptions.TryCatch[error](func() { graph.Custom(nil, x) })
	require.Error(t, err)
	err = exceptions.TryCatch[error](func() { graph.Custom(&graph.CustomOp{}, x) })
	require.Error(t, err)
}
