package transforms_test

import (
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/gradflow/gradflow/backends"
	"github.com/gradflow/gradflow/backends/simplego"
	"github.com/gradflow/gradflow/graph"
	"github.com/gradflow/gradflow/transforms"
	"github.com/gradflow/gradflow/types/xslices"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// f(x) = x*x + 1.
func squarePlusOne(_ *graph.Graph, args []*graph.Node) *graph.Node {
	return graph.AddScalar(graph.Mul(args[0], args[0]), 1)
}

func TestGrad(t *testing.T) {
	backend := simplego.New()
	df := transforms.Grad(backend, squarePlusOne)
	assert.Equal(t, []backends.Value{4.0}, df(2.0))
	assert.Equal(t, []backends.Value{6.0}, df(3.0))
}

func TestGradMultipleArguments(t *testing.T) {
	backend := simplego.New()
	// f(x, y) = x*y + y: df/dx = y, df/dy = x+1.
	f := func(g *graph.Graph, args []*graph.Node) *graph.Node {
		return graph.Add(graph.Mul(args[0], args[1]), args[1])
	}
	grads := transforms.Grad(backend, f)(3.0, 4.0)
	require.Len(t, grads, 2)
	assert.Equal(t, 4.0, grads[0])
	assert.Equal(t, 4.0, grads[1])
}

func TestValueAndGrad(t *testing.T) {
	backend := simplego.New()
	value, grads := transforms.ValueAndGrad(backend, squarePlusOne)(2.0)
	assert.Equal(t, 5.0, value)
	require.Len(t, grads, 1)
	assert.Equal(t, 4.0, grads[0])
}

func TestGradOverTensors(t *testing.T) {
	backend := simplego.New()
	x := backend.NewBuffer(xslices.Iota(1.0, 3), 3)
	grads := transforms.Grad(backend, squarePlusOne)(x)
	require.Len(t, grads, 1)
	require.IsType(t, &simplego.Buffer{}, grads[0])
	assert.Equal(t, []float64{2, 4, 6}, grads[0].(*simplego.Buffer).Flat())
}

func TestJIT(t *testing.T) {
	backend := simplego.New()
	traces := 0
	counted := func(g *graph.Graph, args []*graph.Node) *graph.Node {
		traces++
		return squarePlusOne(g, args)
	}
	f := transforms.JIT(backend, counted)
	assert.Equal(t, 5.0, f(2.0))
	assert.Equal(t, 10.0, f(3.0))
	assert.Equal(t, 17.0, f(4.0))
	// One trace serves all scalar calls.
	assert.Equal(t, 1, traces)
}

func TestJITSignatures(t *testing.T) {
	backend := simplego.New()
	traces := 0
	counted := func(g *graph.Graph, args []*graph.Node) *graph.Node {
		traces++
		return squarePlusOne(g, args)
	}
	f := transforms.JIT(backend, counted)
	assert.Equal(t, 5.0, f(2.0))

	// A tensor argument is a new signature: traced once more, then cached.
	vec := backend.NewBuffer([]float64{1, 2}, 2)
	result := f(vec)
	assert.Equal(t, []float64{2, 5}, result.(*simplego.Buffer).Flat())
	result = f(backend.NewBuffer([]float64{3, 4}, 2))
	assert.Equal(t, []float64{10, 17}, result.(*simplego.Buffer).Flat())
	assert.Equal(t, 2, traces)
}

func TestVMap(t *testing.T) {
	backend := simplego.New()
	f := transforms.VMap(backend, squarePlusOne)
	result := f(backend.NewBuffer(xslices.Iota(1.0, 3), 3))
	require.IsType(t, &simplego.Buffer{}, result)
	assert.Equal(t, []float64{2, 5, 10}, result.(*simplego.Buffer).Flat())
}

func TestVMapBroadcastsScalars(t *testing.T) {
	backend := simplego.New()
	// f(x, c) = x*c with c broadcast over the batch.
	scale := func(_ *graph.Graph, args []*graph.Node) *graph.Node {
		return graph.Mul(args[0], args[1])
	}
	f := transforms.VMap(backend, scale)
	result := f(backend.NewBuffer([]float64{1, 2, 3}, 3), 10.0)
	assert.Equal(t, []float64{10, 20, 30}, result.(*simplego.Buffer).Flat())
}

func TestVMapHigherRank(t *testing.T) {
	backend := simplego.New()
	f := transforms.VMap(backend, squarePlusOne)
	result := f(backend.NewBuffer([]float64{1, 2, 3, 4}, 2, 2)).(*simplego.Buffer)
	assert.Equal(t, []int{2, 2}, result.Dims())
	assert.Equal(t, []float64{2, 5, 10, 17}, result.Flat())
}

func TestVMapBatchMismatch(t *testing.T) {
	backend := simplego.New()
	add := func(_ *graph.Graph, args []*graph.Node) *graph.Node {
		return graph.Add(args[0], args[1])
	}
	f := transforms.VMap(backend, add)
	err := exceptions.TryCatch[error](func() {
		f(backend.NewBuffer([]float64{1, 2}, 2), backend.NewBuffer([]float64{1, 2, 3}, 3))
	})
	require.Error(t, err)
}

func TestVMapAllScalarsPanics(t *testing.T) {
	backend := simplego.New()
	f := transforms.VMap(backend, squarePlusOne)
	err := exceptions.TryCatch[error](func() { f(2.0) })
	require.Error(t, err)
}
