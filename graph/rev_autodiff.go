package graph

import (
	"github.com/gomlx/exceptions"
	"github.com/gradflow/gradflow/backends"
)

// This file implements reverse-mode automatic differentiation over the graph.
//
// Conventions:
//
//   - root node: the output whose gradient is propagated backward. Backward
//     populates the gradient accumulator of every node reachable from it.
//   - v / adjoint: the accumulated gradient of the root with respect to the
//     current node. A node's VJP rule turns its adjoint into one contribution
//     per input, which is added (never assigned) into the input's
//     accumulator, since an input may be read by several consumers.

// VJP computes the gradient contributions of a node to its inputs.
//
// node is the node being back-propagated, v is its accumulated adjoint, and
// eval returns the concrete value of any node (memoized for the duration of
// one Backward call). The returned slice must have one entry per input; nil
// entries contribute nothing.
type VJP func(node *Node, v backends.Value, eval func(*Node) backends.Value) []backends.Value

// VJPRegistration maps each op type to its derivative rule. If implementing a
// new op, or for experimentation, one can change this. Op types missing here
// (and custom nodes without a VJP) contribute zero gradient to their inputs:
// that is the designed extension point, not an error.
var VJPRegistration = map[OpType]VJP{
	OpTypeConstant:      nilVJP,
	OpTypeAdd:           addVJP,
	OpTypeMul:           mulVJP,
	OpTypeDiv:           divVJP,
	OpTypeFusedMulAdd:   fusedMulAddVJP,
	OpTypeFusedMulChain: fusedMulChainVJP,
	OpTypeFusedAddChain: fusedAddChainVJP,
	OpTypeFusedScale:    fusedScaleVJP,
}

type backwardConfig struct {
	seed       backends.Value
	accumulate bool
}

// BackwardOption configures a Backward call.
type BackwardOption func(*backwardConfig)

// WithSeed sets the gradient seeded at the root, instead of the default 1.
// A scalar seed is broadcast to the root's shape class.
func WithSeed(seed backends.Value) BackwardOption {
	return func(cfg *backwardConfig) { cfg.seed = seed }
}

// WithAccumulation skips the gradient reset, so gradients add up across
// Backward calls. This is for optimizer-loop style accumulation; by default
// every call starts from zero.
func WithAccumulation() BackwardOption {
	return func(cfg *backwardConfig) { cfg.accumulate = true }
}

// Backward computes gradients of root with respect to every node reachable
// from it, using reverse-mode automatic differentiation. Gradients are read
// back with Node.Grad.
//
// Unless WithAccumulation is given, every reachable node's accumulator is
// first reset to zero, so stale gradients from a previous call never leak in.
func Backward(root *Node, opts ...BackwardOption) {
	root.AssertValid()
	cfg := &backwardConfig{seed: 1.0}
	for _, opt := range opts {
		opt(cfg)
	}

	backend := root.graph.backend
	order := TopologicalOrder(root)

	// Values are memoized for the duration of this call only: Evaluate
	// itself stays pure.
	memo := make(map[*Node]backends.Value, len(order))
	eval := func(n *Node) backends.Value {
		if v, found := memo[n]; found {
			return v
		}
		v := evaluateNode(n)
		memo[n] = v
		return v
	}

	// Reset accumulators to the additive identity of each node's shape class:
	// a zero tensor for tensor-valued nodes, so Grad keeps the value's shape
	// even when no consumer contributes. Nodes without a cached value start as
	// scalar zero and are promoted by the backend on the first tensor
	// contribution.
	for _, node := range order {
		if cfg.accumulate && node.grad != nil {
			continue
		}
		if node.value != nil {
			node.grad = backend.ZerosLike(node.value)
		} else {
			node.grad = backends.Value(0.0)
		}
	}

	seed := cfg.seed
	if rootValue := eval(root); !backend.IsScalar(rootValue) && backend.IsScalar(seed) {
		seed = backend.Mul(backend.OnesLike(rootValue), seed)
	}
	if cfg.accumulate {
		root.grad = backend.Add(root.grad, seed)
	} else {
		root.grad = seed
	}

	// Walk the topological order in reverse: by the time a node is reached,
	// every consumer has already pushed its contribution, so node.grad is
	// final and ready to propagate.
	for ii := len(order) - 1; ii >= 0; ii-- {
		node := order[ii]
		if len(node.inputNodes) == 0 {
			continue
		}
		vjpFn := node.vjp()
		if vjpFn == nil {
			continue
		}
		contributions := vjpFn(node, node.grad, eval)
		if len(contributions) != len(node.inputNodes) {
			exceptions.Panicf("VJP of %s returned %d contributions, but the node has %d inputs",
				node, len(contributions), len(node.inputNodes))
		}
		for jj, input := range node.inputNodes {
			if contributions[jj] == nil {
				continue
			}
			input.grad = backend.Add(input.grad, contributions[jj])
		}
	}
}

// vjp resolves the derivative rule for the node: the custom op's rule if
// there is one, otherwise the registry entry for its op type. Returns nil
// when no rule exists (zero contribution).
func (n *Node) vjp() VJP {
	if n.opType == OpTypeCustom {
		if n.custom == nil {
			return nil
		}
		return n.custom.VJP
	}
	return VJPRegistration[n.opType]
}

// nilVJP returns no gradient, for nodes without inputs.
func nilVJP(_ *Node, _ backends.Value, _ func(*Node) backends.Value) []backends.Value {
	return nil
}

// d(a+b)/da = d(a+b)/db = 1.
func addVJP(node *Node, v backends.Value, _ func(*Node) backends.Value) []backends.Value {
	contributions := make([]backends.Value, len(node.inputNodes))
	for ii := range contributions {
		contributions[ii] = v
	}
	return contributions
}

// F(a,b) = a*b -> v*dF/da = v*b ; v*dF/db = v*a.
func mulVJP(node *Node, v backends.Value, eval func(*Node) backends.Value) []backends.Value {
	backend := node.graph.backend
	a := eval(node.inputNodes[0])
	b := eval(node.inputNodes[1])
	return []backends.Value{
		backend.Mul(v, b),
		backend.Mul(v, a),
	}
}

// F(a,b) = a/b -> v*dF/da = v/b ; v*dF/db = -v*a/b^2.
func divVJP(node *Node, v backends.Value, eval func(*Node) backends.Value) []backends.Value {
	backend := node.graph.backend
	a := eval(node.inputNodes[0])
	b := eval(node.inputNodes[1])
	return []backends.Value{
		backend.Div(v, b),
		backend.Mul(v, backend.Div(backend.Neg(a), backend.Mul(b, b))),
	}
}

// F(a,b,c) = a*b+c -> v*b ; v*a ; v.
func fusedMulAddVJP(node *Node, v backends.Value, eval func(*Node) backends.Value) []backends.Value {
	backend := node.graph.backend
	a := eval(node.inputNodes[0])
	b := eval(node.inputNodes[1])
	return []backends.Value{
		backend.Mul(v, b),
		backend.Mul(v, a),
		v,
	}
}

// The chain sum propagates v unchanged to every input.
func fusedAddChainVJP(node *Node, v backends.Value, _ func(*Node) backends.Value) []backends.Value {
	contributions := make([]backends.Value, len(node.inputNodes))
	for ii := range contributions {
		contributions[ii] = v
	}
	return contributions
}

// For a product chain, each input's contribution is v times the product of
// all the other inputs.
func fusedMulChainVJP(node *Node, v backends.Value, eval func(*Node) backends.Value) []backends.Value {
	backend := node.graph.backend
	contributions := make([]backends.Value, len(node.inputNodes))
	for ii := range node.inputNodes {
		contribution := v
		for jj, other := range node.inputNodes {
			if jj == ii {
				continue
			}
			contribution = backend.Mul(contribution, eval(other))
		}
		contributions[ii] = contribution
	}
	return contributions
}

// F(a,b,c) = a*b/c -> v*b/c ; v*a/c ; -v*a*b/c^2.
func fusedScaleVJP(node *Node, v backends.Value, eval func(*Node) backends.Value) []backends.Value {
	backend := node.graph.backend
	a := eval(node.inputNodes[0])
	b := eval(node.inputNodes[1])
	c := eval(node.inputNodes[2])
	return []backends.Value{
		backend.Mul(v, backend.Div(b, c)),
		backend.Mul(v, backend.Div(a, c)),
		backend.Mul(v, backend.Neg(backend.Div(backend.Mul(a, b), backend.Mul(c, c)))),
	}
}
