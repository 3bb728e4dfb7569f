package compiler

import (
	"github.com/gomlx/exceptions"
	"github.com/gradflow/gradflow/backends"
	"github.com/gradflow/gradflow/graph"
	"github.com/gradflow/gradflow/types/xslices"
	"k8s.io/klog/v2"
)

// ConstantFolding evaluates Add and Mul nodes whose inputs are all constants
// and replaces them with constant nodes holding the result. Folding cascades:
// a node folded bottom-up can make its consumer foldable in the same pass.
//
// Div is deliberately not folded, so division edge cases (division by a
// constant zero among them) surface at evaluation time instead of silently
// baking an infinity into the graph.
type ConstantFolding struct{}

// Name implements Pass.
func (ConstantFolding) Name() string { return "constant-folding" }

// Apply implements Pass.
func (ConstantFolding) Apply(root *graph.Node) *graph.Node {
	rewrites := make(map[*graph.Node]*graph.Node)
	var folded int
	var fold func(node *graph.Node) *graph.Node
	fold = func(node *graph.Node) *graph.Node {
		if replacement, found := rewrites[node]; found {
			return replacement
		}
		result := node
		if !node.IsConstant() {
			result = node.WithReplacedInputs(xslices.Map(node.Inputs(), fold)...)
			if foldable(result) {
				if constant := foldToConstant(result); constant != nil {
					result = constant
					folded++
				}
			}
		}
		rewrites[node] = result
		return result
	}
	newRoot := fold(root)
	klog.V(1).Infof("constant-folding: folded %d nodes in %s", folded, root.Graph().Name())
	return newRoot
}

func foldable(node *graph.Node) bool {
	if t := node.Type(); t != graph.OpTypeAdd && t != graph.OpTypeMul {
		return false
	}
	for _, input := range node.Inputs() {
		if !input.IsConstant() {
			return false
		}
	}
	return true
}

// foldToConstant evaluates node and wraps the result in a constant. If the
// backend refuses the arithmetic (e.g. a tensor shape mismatch only visible at
// run time), the node is left unfolded and the failure surfaces later, at
// evaluation.
func foldToConstant(node *graph.Node) *graph.Node {
	var value backends.Value
	err := exceptions.TryCatch[error](func() {
		value = graph.Evaluate(node)
	})
	if err != nil {
		klog.V(1).Infof("constant-folding: leaving %s unfolded: %v", node, err)
		return nil
	}
	return graph.Const(node.Graph(), value)
}
