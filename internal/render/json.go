package render

import "github.com/jarredhawkins/omniparse/internal/segment"

// Node is the JSON form of a segment tree.
type Node struct {
	Kind     string  `json:"kind"`
	Type     string  `json:"type,omitempty"`
	Open     string  `json:"open,omitempty"`
	Close    string  `json:"close,omitempty"`
	Text     string  `json:"text,omitempty"` // Leaves only
	Children []*Node `json:"children,omitempty"`
}

// FlatNode is one entry of the JSON form of a flattened tree.
type FlatNode struct {
	Depth int    `json:"depth"`
	Kind  string `json:"kind"`
	Type  string `json:"type"`
	Open  string `json:"open,omitempty"`
	Close string `json:"close,omitempty"`
	Text  string `json:"text,omitempty"`
}

// JSONTree converts root into its nested JSON form.
func JSONTree(root *segment.Segment) *Node {
	n := &Node{Kind: root.Kind().String(), Type: root.TypeName()}
	if !root.IsCode() {
		n.Text = root.LeafText()
		return n
	}
	n.Open, n.Close = root.Open(), root.Close()
	for _, c := range root.Children() {
		n.Children = append(n.Children, JSONTree(c))
	}
	return n
}

// JSONFlat converts the flattened form of root.
func JSONFlat(root *segment.Segment) []FlatNode {
	entries := root.Flatten()
	out := make([]FlatNode, 0, len(entries))
	for _, e := range entries {
		f := FlatNode{Depth: e.Depth, Kind: e.Node.Kind().String(), Type: e.Node.TypeName()}
		if e.Node.IsCode() {
			f.Open, f.Close = e.Node.Open(), e.Node.Close()
		} else {
			f.Text = e.Node.LeafText()
		}
		out = append(out, f)
	}
	return out
}
