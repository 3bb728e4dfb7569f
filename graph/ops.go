package graph

import (
	"github.com/gomlx/exceptions"
	"github.com/gradflow/gradflow/backends"
)

// This file holds the tracing API: the constructors that build nodes from
// primitive operations and literals.

// Const creates a constant node in g holding the given value. Go numeric
// literals are coerced to float64 scalars; anything else is assumed to be a
// value of g's backend (e.g. a *simplego.Buffer) and stored as is.
func Const(g *Graph, value any) *Node {
	g.AssertValid()
	if _, ok := value.(*Node); ok {
		exceptions.Panicf("Const given a *Node, use AsNode to coerce mixed node/literal arguments")
	}
	return newNode(g, OpTypeConstant, coerceValue(value), nil)
}

// AsNode coerces value to a node in g: a *Node is returned as is (it must
// belong to g), anything else is wrapped in a constant node.
func AsNode(g *Graph, value any) *Node {
	g.AssertValid()
	if node, ok := value.(*Node); ok {
		node.AssertValid()
		if node.graph != g {
			exceptions.Panicf("AsNode: node %s belongs to graph %q, not %q", node, node.graph.name, g.name)
		}
		return node
	}
	return Const(g, value)
}

func coerceValue(value any) backends.Value {
	if value == nil {
		exceptions.Panicf("cannot build a constant from a nil value")
	}
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	}
	return value
}

// Add returns the node computing the elementwise sum a+b.
func Add(a, b *Node) *Node { return newBinaryOp(OpTypeAdd, a, b) }

// Mul returns the node computing the elementwise product a*b.
func Mul(a, b *Node) *Node { return newBinaryOp(OpTypeMul, a, b) }

// Div returns the node computing the elementwise quotient a/b. Operand order
// matters: a is the numerator.
func Div(a, b *Node) *Node { return newBinaryOp(OpTypeDiv, a, b) }

func newBinaryOp(opType OpType, a, b *Node) *Node {
	g := validateBuildingGraphFromInputs(a, b)
	return newNode(g, opType, nil, []*Node{a, b})
}

// AddScalar returns the node computing x+scalar.
func AddScalar(x *Node, scalar float64) *Node {
	x.AssertValid()
	return Add(x, Const(x.graph, scalar))
}

// MulScalar returns the node computing x*scalar.
func MulScalar(x *Node, scalar float64) *Node {
	x.AssertValid()
	return Mul(x, Const(x.graph, scalar))
}

// DivScalar returns the node computing x/scalar.
func DivScalar(x *Node, scalar float64) *Node {
	x.AssertValid()
	return Div(x, Const(x.graph, scalar))
}

// CustomOp defines an operator outside the closed OpType set. The same
// CustomOp can back any number of nodes.
type CustomOp struct {
	// Name identifies the op in logs and String output.
	Name string

	// Eval computes the op's value from its already-evaluated inputs. If nil,
	// evaluating a node with this op fails with ErrUnknownOp.
	Eval func(backend backends.Backend, inputs []backends.Value) backends.Value

	// VJP is the derivative rule, returning one gradient contribution per
	// input (nil entries are skipped). If nil, Backward silently propagates a
	// zero contribution through nodes with this op.
	VJP VJP
}

// Custom creates a node evaluated and differentiated by the given CustomOp.
// It requires at least one input; use Const for leaf values.
func Custom(op *CustomOp, inputs ...*Node) *Node {
	if op == nil || op.Name == "" {
		exceptions.Panicf("Custom requires a CustomOp with a non-empty Name")
	}
	g := validateBuildingGraphFromInputs(inputs...)
	n := newNode(g, OpTypeCustom, nil, inputs)
	n.custom = op
	return n
}

// FusedOp creates a node with one of the fused op types (see OpType). It is
// used by the compiler's fusion pass; the engine never creates fused nodes
// while tracing.
func FusedOp(opType OpType, inputs ...*Node) *Node {
	if !opType.IsFused() {
		exceptions.Panicf("FusedOp requires a fused op type, got %s", opType)
	}
	switch opType {
	case OpTypeFusedMulAdd, OpTypeFusedScale:
		if len(inputs) != 3 {
			exceptions.Panicf("FusedOp(%s) requires exactly 3 inputs, got %d", opType, len(inputs))
		}
	default:
		if len(inputs) < 2 {
			exceptions.Panicf("FusedOp(%s) requires at least 2 inputs, got %d", opType, len(inputs))
		}
	}
	g := validateBuildingGraphFromInputs(inputs...)
	return newNode(g, opType, nil, inputs)
}
