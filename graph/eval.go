package graph

import (
	"github.com/gomlx/exceptions"
	"github.com/gradflow/gradflow/backends"
	"github.com/gradflow/gradflow/types/xslices"
	"github.com/pkg/errors"
)

// ErrUnknownOp is the root of evaluation failures on operators with no
// evaluation rule: an invalid op type or an OpTypeCustom node whose CustomOp
// carries no Eval function.
var ErrUnknownOp = errors.New("unknown operator")

// Evaluate computes the concrete value of node using its graph's backend.
//
// Constants (and any node carrying a cached value) are returned without
// recursion; everything else is evaluated bottom-up. Evaluate is pure: it
// never mutates the graph, so repeated calls always return the same value.
//
// It panics with an error wrapping ErrUnknownOp for operators it cannot
// evaluate, and lets backend arithmetic panics (backends.ErrArithmetic)
// propagate.
func Evaluate(node *Node) backends.Value {
	node.AssertValid()
	return evaluateNode(node)
}

func evaluateNode(node *Node) backends.Value {
	if node.value != nil {
		return node.value
	}
	backend := node.graph.backend
	inputs := xslices.Map(node.inputNodes, evaluateNode)

	switch node.opType {
	case OpTypeConstant:
		// Unreachable through the public constructors.
		exceptions.Panicf("constant node %s has no value", node)
	case OpTypeAdd:
		return backend.Add(inputs[0], inputs[1])
	case OpTypeMul:
		return backend.Mul(inputs[0], inputs[1])
	case OpTypeDiv:
		return backend.Div(inputs[0], inputs[1])
	case OpTypeFusedMulAdd:
		return backend.Add(backend.Mul(inputs[0], inputs[1]), inputs[2])
	case OpTypeFusedScale:
		return backend.Div(backend.Mul(inputs[0], inputs[1]), inputs[2])
	case OpTypeFusedAddChain:
		return foldValues(backend.Add, inputs)
	case OpTypeFusedMulChain:
		return foldValues(backend.Mul, inputs)
	case OpTypeCustom:
		if node.custom == nil || node.custom.Eval == nil {
			panic(errors.Wrapf(ErrUnknownOp, "custom node %s has no evaluation function", node))
		}
		return node.custom.Eval(backend, inputs)
	}
	panic(errors.Wrapf(ErrUnknownOp, "no evaluation rule for %s node %s", node.opType, node))
}

func foldValues(op func(a, b backends.Value) backends.Value, values []backends.Value) backends.Value {
	acc := values[0]
	for _, v := range values[1:] {
		acc = op(acc, v)
	}
	return acc
}
