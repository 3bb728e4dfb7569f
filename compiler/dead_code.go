package compiler

import (
	"github.com/gradflow/gradflow/graph"
	"k8s.io/klog/v2"
)

// DeadCode certifies that unreachable arena nodes are dead. The graph arena is
// append-only and nodes only ever point at earlier nodes, so anything not
// reachable from the root can never influence its value: the pass marks the
// live set and reports the dead count, without rebuilding anything. Evaluation
// and Backward both walk from the root, so dead nodes cost nothing there
// either; the arena keeps them so stale NodeIds stay resolvable.
type DeadCode struct{}

// Name implements Pass.
func (DeadCode) Name() string { return "dead-code" }

// Apply implements Pass. The root is returned unchanged.
func (DeadCode) Apply(root *graph.Node) *graph.Node {
	reachable := graph.ReachableNodes(root)
	total := root.Graph().NumNodes()
	klog.V(1).Infof("dead-code: %d of %d arena nodes reachable from %s in %s",
		len(reachable), total, root, root.Graph().Name())
	return root
}
