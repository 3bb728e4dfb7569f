// Package compiler implements the optimizing pass pipeline for gradflow
// graphs: constant folding, common-subexpression elimination, dead-code
// certification, operator fusion and pattern-based algebraic rewriting.
//
// Every pass is a pure semantics-preserving rewrite: it must leave the
// evaluated result of the graph unchanged, though it need not preserve node
// identities. Passes follow a structural-replacement discipline -- they never
// mutate a node's operator or inputs, only build replacement nodes (see
// graph.Node.WithReplacedInputs) and return a new root.
package compiler

import (
	"github.com/gradflow/gradflow/graph"
	"k8s.io/klog/v2"
)

// Pass is one graph-to-graph rewrite of the pipeline.
type Pass interface {
	// Name identifies the pass in logs.
	Name() string

	// Apply rewrites the graph rooted at root and returns the new root. It
	// must preserve the evaluated result.
	Apply(root *graph.Node) *graph.Node
}

// Compiler applies a fixed sequence of optimization passes.
type Compiler struct {
	passes []Pass
}

type options struct {
	passes   []Pass
	patterns []Pattern
}

// Option configures a Compiler.
type Option func(*options)

// WithPasses replaces the default pipeline with the given passes, applied in
// order.
func WithPasses(passes ...Pass) Option {
	return func(o *options) { o.passes = passes }
}

// WithPatterns replaces the built-in rewrite patterns used by the default
// pipeline's pattern pass. It has no effect combined with WithPasses.
func WithPatterns(patterns ...Pattern) Option {
	return func(o *options) { o.patterns = patterns }
}

// New creates a Compiler. By default it runs constant folding, CSE, dead-code
// certification, fusion and pattern rewriting, in this order.
func New(opts ...Option) *Compiler {
	o := &options{patterns: DefaultPatterns()}
	for _, opt := range opts {
		opt(o)
	}
	if o.passes == nil {
		o.passes = []Pass{
			ConstantFolding{},
			CSE{},
			DeadCode{},
			Fusion{},
			NewPatternRewrite(o.patterns...),
		}
	}
	return &Compiler{passes: o.passes}
}

// Compile applies the passes in order, feeding each pass's output root to the
// next, and returns the optimized root.
//
// Compiling an already-compiled graph is safe: every default pass except
// fusion is idempotent, and fusion never re-fuses fused nodes.
func (c *Compiler) Compile(root *graph.Node) *graph.Node {
	root.AssertValid()
	for _, pass := range c.passes {
		klog.V(1).Infof("compiler: applying pass %q to %s", pass.Name(), root.Graph().Name())
		root = pass.Apply(root)
	}
	return root
}

// Compile applies the default pass pipeline to root.
func Compile(root *graph.Node) *graph.Node {
	return New().Compile(root)
}
