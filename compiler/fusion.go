package compiler

import (
	"slices"

	"github.com/google/uuid"
	"github.com/gradflow/gradflow/graph"
	"github.com/gradflow/gradflow/types"
	"github.com/gradflow/gradflow/types/xslices"
	"k8s.io/klog/v2"
)

// Fusion combines producer/consumer pairs of arithmetic ops into single fused
// nodes, per fusionTable. A producer is fusable into its consumer only when
// the consumer is its sole consumer within the live (root-reachable) subgraph:
// otherwise the intermediate value is still needed elsewhere and fusing would
// duplicate work.
//
// Same-op chains (FusedAddChain, FusedMulChain) extend past the initial pair,
// absorbing further single-consumer producers of the same op. FusedMulAdd and
// FusedScale are strictly two-op groups.
//
// Fused nodes record their provenance in metadata: the ops combined
// (graph.MetaFusedOps), the NodeIds replaced (graph.MetaOriginalNodes) and a
// fresh group id (graph.MetaFusionGroup). Fused op types never appear in
// fusionTable, so running the pass again leaves its own output alone.
type Fusion struct{}

// Name implements Pass.
func (Fusion) Name() string { return "fusion" }

// fusionTable maps (producer op, consumer op) to the fused op replacing the
// pair.
var fusionTable = map[[2]graph.OpType]graph.OpType{
	{graph.OpTypeMul, graph.OpTypeAdd}: graph.OpTypeFusedMulAdd,
	{graph.OpTypeMul, graph.OpTypeMul}: graph.OpTypeFusedMulChain,
	{graph.OpTypeAdd, graph.OpTypeAdd}: graph.OpTypeFusedAddChain,
	{graph.OpTypeMul, graph.OpTypeDiv}: graph.OpTypeFusedScale,
}

// fusionGroup is a run of nodes to be collapsed into one fused node. members
// go producer-to-consumer; the last member is the group's top, the only node
// the rest of the graph can see.
type fusionGroup struct {
	members   []*graph.Node
	fusedType graph.OpType

	// externalInputs are the inputs of the fused node: every input of a member
	// that is not itself a member, in evaluation order.
	externalInputs []*graph.Node
}

// Apply implements Pass.
func (Fusion) Apply(root *graph.Node) *graph.Node {
	order := graph.TopologicalOrder(root)

	// Consumer counts over the live subgraph only: dead consumers must not
	// block a fusion.
	consumerCount := make(map[*graph.Node]int)
	for _, node := range order {
		for _, input := range node.Inputs() {
			consumerCount[input]++
		}
	}

	// Detection: walk candidates consumers-first, so a chain is anchored at
	// its topmost consumer and absorbs the whole run below it.
	used := types.MakeSet[*graph.Node]()
	groups := make(map[*graph.Node]*fusionGroup) // keyed by group top
	for ii := len(order) - 1; ii >= 0; ii-- {
		node := order[ii]
		if used.Has(node) {
			continue
		}
		group := matchGroup(node, consumerCount, used)
		if group == nil {
			continue
		}
		groups[node] = group
		for _, member := range group.members {
			used.Insert(member)
		}
	}
	if len(groups) == 0 {
		return root
	}

	// Rebuild from the root, replacing each group top with its fused node.
	// Interior members are skipped entirely: single-consumership guarantees
	// nothing else points at them.
	rewrites := make(map[*graph.Node]*graph.Node)
	var rewrite func(node *graph.Node) *graph.Node
	rewrite = func(node *graph.Node) *graph.Node {
		if replacement, found := rewrites[node]; found {
			return replacement
		}
		var result *graph.Node
		if group, found := groups[node]; found {
			result = buildFusedNode(group, xslices.Map(group.externalInputs, rewrite))
		} else {
			result = node.WithReplacedInputs(xslices.Map(node.Inputs(), rewrite)...)
		}
		rewrites[node] = result
		return result
	}
	newRoot := rewrite(root)
	klog.V(1).Infof("fusion: created %d fused nodes in %s", len(groups), root.Graph().Name())
	return newRoot
}

// matchGroup tries to anchor a fusion group at consumer top, returning nil if
// no producer input qualifies.
func matchGroup(top *graph.Node, consumerCount map[*graph.Node]int, used types.Set[*graph.Node]) *fusionGroup {
	var producer *graph.Node
	var fusedType graph.OpType
	for idx, input := range top.Inputs() {
		t, found := fusionTable[[2]graph.OpType{input.Type(), top.Type()}]
		if !found {
			continue
		}
		// A scaling a*b/c only makes sense with the product as numerator;
		// fusing x/(a*b) would change the meaning of the third input.
		if t == graph.OpTypeFusedScale && idx != 0 {
			continue
		}
		if !fusable(input, top, consumerCount, used) {
			continue
		}
		producer, fusedType = input, t
		break
	}
	if producer == nil {
		return nil
	}

	members := []*graph.Node{producer, top}

	// Same-op chains absorb further producers below the pair.
	if fusedType == graph.OpTypeFusedAddChain || fusedType == graph.OpTypeFusedMulChain {
		for {
			deepest := members[0]
			extended := false
			for _, input := range deepest.Inputs() {
				if input.Type() == deepest.Type() && fusable(input, deepest, consumerCount, used) {
					members = slices.Insert(members, 0, input)
					extended = true
					break
				}
			}
			if !extended {
				break
			}
		}
	}

	return &fusionGroup{
		members:        members,
		fusedType:      fusedType,
		externalInputs: collectExternalInputs(members),
	}
}

// fusable reports whether producer can be absorbed into consumer: live
// single-consumership, not already claimed by another group, and no declared
// shape disagreement.
func fusable(producer, consumer *graph.Node, consumerCount map[*graph.Node]int, used types.Set[*graph.Node]) bool {
	if consumerCount[producer] != 1 {
		return false
	}
	if used.Has(producer) || used.Has(consumer) {
		return false
	}
	producerDims, producerOk := producer.ShapeHint()
	consumerDims, consumerOk := consumer.ShapeHint()
	if producerOk && consumerOk && !slices.Equal(producerDims, consumerDims) {
		return false
	}
	return true
}

// collectExternalInputs gathers the non-member inputs of the group, deepest
// member first. For each member above the deepest, the producer below it is
// skipped and its remaining inputs appended in order. This ordering makes the
// fused node evaluate to the same value as the chain it replaces.
func collectExternalInputs(members []*graph.Node) []*graph.Node {
	external := slices.Clone(members[0].Inputs())
	for ii := 1; ii < len(members); ii++ {
		below := members[ii-1]
		for _, input := range members[ii].Inputs() {
			if input == below {
				continue
			}
			external = append(external, input)
		}
	}
	return external
}

func buildFusedNode(group *fusionGroup, inputs []*graph.Node) *graph.Node {
	fused := graph.FusedOp(group.fusedType, inputs...)
	fused.SetMeta(graph.MetaFusedOps, xslices.Map(group.members, (*graph.Node).Type))
	fused.SetMeta(graph.MetaOriginalNodes, xslices.Map(group.members, (*graph.Node).Id))
	fused.SetMeta(graph.MetaFusionGroup, uuid.New())
	top := group.members[len(group.members)-1]
	if dims, found := top.ShapeHint(); found {
		fused.SetShapeHint(dims...)
	}
	return fused
}
