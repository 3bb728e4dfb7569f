package compiler

import (
	"reflect"
	"slices"

	"github.com/gradflow/gradflow/graph"
	"github.com/gradflow/gradflow/types/xslices"
	"k8s.io/klog/v2"
)

// CSE (common-subexpression elimination) merges structurally identical nodes:
// same op type and the same input nodes, position by position. Constants are
// merged by value equality. Deduplication runs bottom-up, so merging two
// subtrees can make their consumers identical and merged in turn.
//
// Custom nodes merge only when they share the same *CustomOp: two distinct op
// definitions are assumed to compute different things, whatever their name.
type CSE struct{}

// Name implements Pass.
func (CSE) Name() string { return "cse" }

// cseKey buckets candidate duplicates cheaply before the full comparison:
// most non-duplicates already differ on op type, arity or first input.
type cseKey struct {
	opType     graph.OpType
	inputCount int
	firstInput *graph.Node
}

func makeCSEKey(node *graph.Node) cseKey {
	key := cseKey{opType: node.Type(), inputCount: len(node.Inputs())}
	if key.inputCount > 0 {
		key.firstInput = node.Inputs()[0]
	}
	return key
}

// Apply implements Pass.
func (CSE) Apply(root *graph.Node) *graph.Node {
	buckets := make(map[cseKey][]*graph.Node)
	rewrites := make(map[*graph.Node]*graph.Node)
	var merged int
	var dedup func(node *graph.Node) *graph.Node
	dedup = func(node *graph.Node) *graph.Node {
		if replacement, found := rewrites[node]; found {
			return replacement
		}
		result := node.WithReplacedInputs(xslices.Map(node.Inputs(), dedup)...)
		key := makeCSEKey(result)
		if canonical := findDuplicate(buckets[key], result); canonical != nil {
			if canonical != result {
				merged++
			}
			result = canonical
		} else {
			buckets[key] = append(buckets[key], result)
		}
		rewrites[node] = result
		return result
	}
	newRoot := dedup(root)
	klog.V(1).Infof("cse: merged %d nodes in %s", merged, root.Graph().Name())
	return newRoot
}

func findDuplicate(candidates []*graph.Node, node *graph.Node) *graph.Node {
	for _, candidate := range candidates {
		if !slices.Equal(candidate.Inputs(), node.Inputs()) {
			continue
		}
		if candidate.Custom() != node.Custom() {
			continue
		}
		// Covers constants: the bucket key already matched op type and arity,
		// so only the held value can still differ.
		if !reflect.DeepEqual(candidate.Value(), node.Value()) {
			continue
		}
		return candidate
	}
	return nil
}
