// Package graph is the core package for gradflow. It is used to trace
// computation graphs of elementwise numeric expressions, evaluate them
// against a backend, and differentiate them with reverse-mode autodiff.
//
// The main elements of the package are:
//
//   - Graph: owns the nodes of one computation. Nodes are stored in an arena
//     (a slice addressed by NodeId) and can only reference nodes created
//     earlier, so the arena order is always a valid topological order and the
//     graph is acyclic by construction.
//
//   - Node: represents the result of an operation ("op" for short): a
//     constant, Add, Mul, Div, one of the fused variants created by the
//     compiler, or a registered custom op. See OpType.
//
//   - Evaluate: recursively computes the concrete value of a node using the
//     graph's backend.
//
//   - Backward: reverse-mode automatic differentiation, populating the
//     gradient accumulator of every node reachable from a root.
//
// # Error handling
//
// Graph construction, evaluation, and differentiation panic with errors (see
// exceptions.Panicf) instead of returning them, so expression-building code
// stays readable. Callers that need an error value wrap calls with
// exceptions.TryCatch.
//
// Nodes are shared mutable state: evaluation and differentiation of one graph
// must not run concurrently, and the optimization passes in package compiler
// assume they are the only writer while running.
package graph

import (
	"fmt"

	"github.com/gomlx/exceptions"
	"github.com/google/uuid"
	"github.com/gradflow/gradflow/backends"
)

// NodeId is a unique Node id within a Graph: its index in the graph arena.
type NodeId int

// InvalidNodeId indicates a node that failed to be created.
const InvalidNodeId = NodeId(-1)

// Graph holds the operations and dependencies of one computation.
//
// Nodes are appended to the arena as they are created and are never removed:
// the optimization passes create replacement nodes instead of mutating
// existing ones, and unreachable nodes are simply no longer referenced.
type Graph struct {
	id      uuid.UUID
	name    string
	backend backends.Backend

	nodes []*Node
}

// New creates an empty Graph using the given backend for its numeric
// semantics. If name is empty a name is derived from the graph id.
func New(backend backends.Backend, name string) *Graph {
	if backend == nil {
		exceptions.Panicf("graph.New: backend is nil")
	}
	id := uuid.New()
	if name == "" {
		name = "graph-" + id.String()[:8]
	}
	return &Graph{
		id:      id,
		name:    name,
		backend: backend,
	}
}

// Id returns the process-unique id of this graph. Together with a NodeId it
// identifies a node uniquely within the process.
func (g *Graph) Id() uuid.UUID { return g.id }

// Name of the computation this Graph defines, set during its construction.
func (g *Graph) Name() string { return g.name }

// Backend used to evaluate this graph.
func (g *Graph) Backend() backends.Backend { return g.backend }

// NumNodes returns the number of nodes in the graph arena, including nodes
// that may no longer be reachable from any root after optimization.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// NodeById returns the node registered with the given id.
func (g *Graph) NodeById(id NodeId) *Node {
	if id < 0 || int(id) >= len(g.nodes) {
		exceptions.Panicf("invalid request Graph.NodeById(id=%d): there are only %d nodes", id, len(g.nodes))
	}
	return g.nodes[id]
}

// AssertValid panics if g is nil.
func (g *Graph) AssertValid() {
	if g == nil {
		exceptions.Panicf("Graph is nil")
	}
}

// registerNode appends node to the arena, returning its new unique id within
// the Graph.
func (g *Graph) registerNode(node *Node) (id NodeId) {
	id = NodeId(len(g.nodes))
	g.nodes = append(g.nodes, node)
	return
}

// String implements fmt.Stringer.
func (g *Graph) String() string {
	return fmt.Sprintf("Graph %q (backend=%s): %d nodes", g.name, g.backend.Name(), len(g.nodes))
}

// validateBuildingGraphFromInputs returns the common graph of the given
// nodes, panicking if they are nil or belong to different graphs.
func validateBuildingGraphFromInputs(inputs ...*Node) *Graph {
	var g *Graph
	for ii, node := range inputs {
		if node == nil {
			exceptions.Panicf("input node %d is nil", ii)
		}
		node.AssertValid()
		if g == nil {
			g = node.graph
		} else if node.graph != g {
			exceptions.Panicf("input node %d is part of a different graph (%q) than the previous inputs (%q)",
				ii, node.graph.name, g.name)
		}
	}
	if g == nil {
		exceptions.Panicf("no input nodes given")
	}
	return g
}
