// Package dot renders the subgraph reachable from a node as Graphviz DOT
// text, for debugging and documentation. It has no Graphviz dependency: the
// output is plain text for `dot -Tsvg` or any DOT viewer.
package dot

import (
	"fmt"
	"io"
	"strings"

	"github.com/gradflow/gradflow/graph"
	"github.com/pkg/errors"
)

// Write renders the subgraph reachable from root as a DOT digraph to w.
// Nodes appear in topological order, constants as boxes with their value,
// operations as ellipses. Edge order follows input order, so non-commutative
// operands (Div) stay readable.
func Write(w io.Writer, root *graph.Node) error {
	root.AssertValid()
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("digraph %q {\n", root.Graph().Name()))
	sb.WriteString("\trankdir=BT;\n")
	order := graph.TopologicalOrder(root)
	for _, node := range order {
		sb.WriteString(fmt.Sprintf("\tn%d [label=%q%s];\n", node.Id(), label(node), attributes(node)))
	}
	for _, node := range order {
		for ii, input := range node.Inputs() {
			sb.WriteString(fmt.Sprintf("\tn%d -> n%d [label=\"%d\"];\n", input.Id(), node.Id(), ii))
		}
	}
	sb.WriteString("}\n")
	_, err := io.WriteString(w, sb.String())
	return errors.Wrapf(err, "failed to write DOT rendering of %s", root.Graph().Name())
}

// Render returns the DOT digraph for the subgraph reachable from root.
func Render(root *graph.Node) string {
	var sb strings.Builder
	_ = Write(&sb, root) // strings.Builder never errors.
	return sb.String()
}

func label(node *graph.Node) string {
	switch node.Type() {
	case graph.OpTypeConstant:
		return fmt.Sprintf("#%d Const\n%v", node.Id(), node.Value())
	case graph.OpTypeCustom:
		return fmt.Sprintf("#%d %s", node.Id(), node.Custom().Name)
	default:
		return fmt.Sprintf("#%d %s", node.Id(), node.Type())
	}
}

func attributes(node *graph.Node) string {
	switch {
	case node.IsConstant():
		return " shape=box"
	case node.Type().IsFused():
		return " style=filled fillcolor=lightyellow"
	}
	return ""
}
