package graph

import "github.com/gradflow/gradflow/types"

// TopologicalOrder returns every node reachable from root in topological
// order: each node appears exactly once, after all of its inputs. It is a
// post-order depth-first traversal with a visited set keyed by node identity.
func TopologicalOrder(root *Node) []*Node {
	root.AssertValid()
	visited := types.MakeSet[*Node]()
	var order []*Node
	var visit func(n *Node)
	visit = func(n *Node) {
		if visited.Has(n) {
			return
		}
		visited.Insert(n)
		for _, input := range n.inputNodes {
			visit(input)
		}
		order = append(order, n)
	}
	visit(root)
	return order
}

// ReachableNodes returns the set of nodes reachable from root, root included.
func ReachableNodes(root *Node) types.Set[*Node] {
	root.AssertValid()
	reachable := types.MakeSet[*Node]()
	var mark func(n *Node)
	mark = func(n *Node) {
		if reachable.Has(n) {
			return
		}
		reachable.Insert(n)
		for _, input := range n.inputNodes {
			mark(input)
		}
	}
	mark(root)
	return reachable
}
