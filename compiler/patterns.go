package compiler

import (
	"github.com/gradflow/gradflow/graph"
	"github.com/gradflow/gradflow/types/xslices"
	"k8s.io/klog/v2"
)

// Pattern is a local algebraic rewrite: when Match reports true for a node,
// Replace builds the node that takes its place. Replace may return an
// existing node (identity rewrites like x*1 -> x return x itself) or create a
// new one in the same graph; it must preserve the node's value.
type Pattern struct {
	// Name identifies the pattern in logs.
	Name string

	Match   func(node *graph.Node) bool
	Replace func(node *graph.Node) *graph.Node
}

// PatternRewrite applies a fixed pattern list bottom-up over the graph. At
// each node the first matching pattern wins and is applied once; the
// replacement is not re-matched, so a pattern list cannot loop.
type PatternRewrite struct {
	patterns []Pattern
}

// NewPatternRewrite creates the pass from the given patterns, tried in order.
func NewPatternRewrite(patterns ...Pattern) PatternRewrite {
	return PatternRewrite{patterns: patterns}
}

// Name implements Pass.
func (PatternRewrite) Name() string { return "pattern-rewrite" }

// Apply implements Pass.
func (p PatternRewrite) Apply(root *graph.Node) *graph.Node {
	rewrites := make(map[*graph.Node]*graph.Node)
	var applied int
	var rewrite func(node *graph.Node) *graph.Node
	rewrite = func(node *graph.Node) *graph.Node {
		if replacement, found := rewrites[node]; found {
			return replacement
		}
		result := node.WithReplacedInputs(xslices.Map(node.Inputs(), rewrite)...)
		for _, pattern := range p.patterns {
			if !pattern.Match(result) {
				continue
			}
			klog.V(1).Infof("pattern-rewrite: %q fired on %s", pattern.Name, result)
			result = pattern.Replace(result)
			applied++
			break
		}
		rewrites[node] = result
		return result
	}
	newRoot := rewrite(root)
	klog.V(1).Infof("pattern-rewrite: applied %d rewrites in %s", applied, root.Graph().Name())
	return newRoot
}

// DefaultPatterns returns the built-in algebraic identities:
//
//	x*0 -> 0
//	x*1 -> x
//	x+0 -> x
//	x/1 -> x
//
// The multiplicative and additive identities match the scalar constant on
// either side; division only simplifies a denominator of one.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{
			Name: "mul-by-zero",
			Match: func(node *graph.Node) bool {
				return node.Type() == graph.OpTypeMul && anyScalarConst(node, 0)
			},
			Replace: func(node *graph.Node) *graph.Node {
				return graph.Const(node.Graph(), 0.0)
			},
		},
		{
			Name: "mul-by-one",
			Match: func(node *graph.Node) bool {
				return node.Type() == graph.OpTypeMul && anyScalarConst(node, 1)
			},
			Replace: otherOperand(1),
		},
		{
			Name: "add-zero",
			Match: func(node *graph.Node) bool {
				return node.Type() == graph.OpTypeAdd && anyScalarConst(node, 0)
			},
			Replace: otherOperand(0),
		},
		{
			Name: "div-by-one",
			Match: func(node *graph.Node) bool {
				return node.Type() == graph.OpTypeDiv && isScalarConst(node.Inputs()[1], 1)
			},
			Replace: func(node *graph.Node) *graph.Node {
				return node.Inputs()[0]
			},
		},
	}
}

// isScalarConst reports whether node is a constant holding the scalar want.
// Tensor constants never match: the identities above only hold elementwise,
// and a tensor of ones is not an identity for a differently-shaped operand.
func isScalarConst(node *graph.Node, want float64) bool {
	if !node.IsConstant() {
		return false
	}
	v, ok := node.Value().(float64)
	return ok && v == want
}

func anyScalarConst(node *graph.Node, want float64) bool {
	for _, input := range node.Inputs() {
		if isScalarConst(input, want) {
			return true
		}
	}
	return false
}

// otherOperand builds the Replace for two-operand identity patterns: it
// returns the operand that is not the identity literal.
func otherOperand(identity float64) func(node *graph.Node) *graph.Node {
	return func(node *graph.Node) *graph.Node {
		if isScalarConst(node.Inputs()[0], identity) {
			return node.Inputs()[1]
		}
		return node.Inputs()[0]
	}
}
