package graph

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gradflow/gradflow/backends"
)

// Metadata keys used by the engine itself. The metadata map is open: passes
// and callers may attach anything under their own keys.
const (
	// MetaShape optionally declares the dimensions of a node's value, as an
	// []int. The fusion pass refuses to fuse nodes whose declared shapes
	// differ.
	MetaShape = "shape"

	// MetaFusedOps is set on fused nodes with the []OpType of the operations
	// that were combined, in producer-to-consumer order.
	MetaFusedOps = "fused_ops"

	// MetaOriginalNodes is set on fused nodes with the []NodeId of the nodes
	// that were replaced.
	MetaOriginalNodes = "original_nodes"

	// MetaFusionGroup is set on fused nodes with a uuid.UUID identifying the
	// fusion group.
	MetaFusionGroup = "fusion_group"
)

// Node represents the result of an operation in a Graph.
//
// A node's identity (graph id + NodeId) and its operator and inputs are
// immutable once created: the optimization passes build replacement nodes
// instead of rewriting existing ones, so a node shared by several consumers
// can never change under their feet. Only the value cache of a constant (see
// SetConstValue) and the gradient accumulator are mutable.
type Node struct {
	graph  *Graph
	id     NodeId
	opType OpType

	// inputNodes are the edges of the computation graph. Their order is
	// semantically significant (e.g. numerator/denominator for Div). Empty
	// for constants.
	inputNodes []*Node

	// value is the cached literal for constants.
	value backends.Value

	// grad is the gradient accumulator populated by Backward.
	grad backends.Value

	// custom is set for OpTypeCustom nodes and carries the evaluation and
	// derivative rules.
	custom *CustomOp

	// metadata is allocated lazily on the first SetMeta.
	metadata map[string]any
}

// newNode creates and registers a node in g.
func newNode(g *Graph, opType OpType, value backends.Value, inputs []*Node) *Node {
	g.AssertValid()
	n := &Node{
		graph:      g,
		opType:     opType,
		inputNodes: slices.Clone(inputs),
		value:      value,
	}
	n.id = g.registerNode(n)
	return n
}

// Graph that holds this Node.
func (n *Node) Graph() *Graph {
	if n == nil {
		return nil
	}
	return n.graph
}

// Id is the unique id of this node within its Graph.
func (n *Node) Id() NodeId {
	if n == nil {
		return InvalidNodeId
	}
	return n.id
}

// Type identifies the operation performed by the node.
func (n *Node) Type() OpType {
	if n == nil {
		return OpTypeInvalid
	}
	return n.opType
}

// Inputs are the nodes that are direct inputs to this node. The returned
// slice is owned by the node and must not be modified.
func (n *Node) Inputs() []*Node { return n.inputNodes }

// Value returns the cached literal of the node: non-nil for constants, nil
// for any node whose value has not been computed.
func (n *Node) Value() backends.Value { return n.value }

// IsConstant returns whether this is a constant node.
func (n *Node) IsConstant() bool { return n.Type() == OpTypeConstant }

// Grad returns the gradient accumulated by the last Backward call that
// reached this node, or nil if none did.
func (n *Node) Grad() backends.Value { return n.grad }

// Custom returns the custom op definition, set only for OpTypeCustom nodes.
func (n *Node) Custom() *CustomOp { return n.custom }

// Meta returns the metadata stored under key, if any.
func (n *Node) Meta(key string) (value any, found bool) {
	value, found = n.metadata[key]
	return
}

// SetMeta attaches auxiliary data to the node under the given key.
func (n *Node) SetMeta(key string, value any) {
	if n.metadata == nil {
		n.metadata = make(map[string]any)
	}
	n.metadata[key] = value
}

// ShapeHint returns the declared dimensions of the node's value, if set.
func (n *Node) ShapeHint() ([]int, bool) {
	value, found := n.Meta(MetaShape)
	if !found {
		return nil, false
	}
	dims, ok := value.([]int)
	return dims, ok
}

// SetShapeHint declares the dimensions of the node's value. This is purely
// advisory, used by the fusion pass.
func (n *Node) SetShapeHint(dims ...int) {
	n.SetMeta(MetaShape, dims)
}

// SetConstValue rebinds the literal of a constant node. It panics for any
// other node type. This is the hook used by the JIT transform to reuse a
// traced graph with fresh input values.
func (n *Node) SetConstValue(value backends.Value) {
	n.AssertValid()
	if !n.IsConstant() {
		exceptions.Panicf("SetConstValue called on %s node, only constants can be rebound", n.opType)
	}
	if value == nil {
		exceptions.Panicf("SetConstValue: value is nil")
	}
	n.value = value
}

// WithReplacedInputs returns a node identical to n but reading from the given
// inputs: n itself if nothing changed, otherwise a fresh node registered in
// the same graph, carrying a copy of n's metadata. This is the structural
// replacement primitive used by the optimization passes.
func (n *Node) WithReplacedInputs(inputs ...*Node) *Node {
	n.AssertValid()
	if len(inputs) != len(n.inputNodes) {
		exceptions.Panicf("WithReplacedInputs(%s): got %d inputs, node has %d", n, len(inputs), len(n.inputNodes))
	}
	if slices.Equal(inputs, n.inputNodes) {
		return n
	}
	_ = validateBuildingGraphFromInputs(append([]*Node{n}, inputs...)...)
	newN := newNode(n.graph, n.opType, n.value, inputs)
	newN.custom = n.custom
	if n.metadata != nil {
		newN.metadata = maps.Clone(n.metadata)
	}
	return newN
}

// AssertValid panics if n is nil or if its graph is invalid.
func (n *Node) AssertValid() {
	if n == nil {
		exceptions.Panicf("Node is nil")
	}
	n.graph.AssertValid()
}

// String implements fmt.Stringer.
func (n *Node) String() string {
	if n == nil {
		return "Node(nil)"
	}
	switch n.opType {
	case OpTypeConstant:
		return fmt.Sprintf("#%d Const(%v)", n.id, n.value)
	case OpTypeCustom:
		name := "?"
		if n.custom != nil {
			name = n.custom.Name
		}
		return fmt.Sprintf("#%d Custom[%s](%s)", n.id, name, inputIdsString(n.inputNodes))
	default:
		return fmt.Sprintf("#%d %s(%s)", n.id, n.opType, inputIdsString(n.inputNodes))
	}
}

func inputIdsString(inputs []*Node) string {
	parts := make([]string, len(inputs))
	for ii, input := range inputs {
		parts[ii] = fmt.Sprintf("#%d", input.Id())
	}
	return strings.Join(parts, ", ")
}
