package segment

import (
	"errors"
	"fmt"
)

// Flat is one entry of a flattened tree. Node never has children.
type Flat struct {
	Depth int
	Node  *Segment
}

var ErrMalformedFlat = errors.New("malformed flat segment sequence")

// Flatten lists s and all of its descendants in pre-order together with
// their depth below s. Nodes keep their identity so that Inflate can rebuild
// an equal tree.
func (s *Segment) Flatten() []Flat {
	var out []Flat
	s.flatten(0, &out)
	return out
}

func (s *Segment) flatten(depth int, out *[]Flat) {
	*out = append(*out, Flat{Depth: depth, Node: s.withoutChildren()})
	for _, c := range s.children {
		c.flatten(depth+1, out)
	}
}

// Inflate rebuilds a tree from a flattened sequence. Each entry becomes a
// child of the closest preceding entry one level above it. The sequence must
// start at depth 0, contain exactly one depth 0 entry and never descend by
// more than one level at a time.
func Inflate(entries []Flat) (*Segment, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: empty sequence", ErrMalformedFlat)
	}
	if entries[0].Node == nil {
		return nil, fmt.Errorf("%w: nil root", ErrMalformedFlat)
	}
	if entries[0].Depth != 0 {
		return nil, fmt.Errorf("%w: first entry at depth %d", ErrMalformedFlat, entries[0].Depth)
	}

	// Children are collected per open ancestor and attached when the
	// ancestor is popped, so no node is modified after it is shared.
	type pending struct {
		node     *Segment
		children []*Segment
	}
	stack := []*pending{{node: entries[0].Node}}

	closeTop := func() {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node := top.node.withoutChildren()
		node.children = top.children
		parent := stack[len(stack)-1]
		parent.children = append(parent.children, node)
	}

	for i, e := range entries[1:] {
		if e.Node == nil {
			return nil, fmt.Errorf("%w: nil node at entry %d", ErrMalformedFlat, i+1)
		}
		if e.Depth <= 0 {
			return nil, fmt.Errorf("%w: second root at entry %d", ErrMalformedFlat, i+1)
		}
		if e.Depth > len(stack) {
			return nil, fmt.Errorf("%w: entry %d jumps from depth %d to %d", ErrMalformedFlat, i+1, len(stack)-1, e.Depth)
		}
		for len(stack) > e.Depth {
			closeTop()
		}
		if stack[len(stack)-1].node.kind != KindCode {
			return nil, fmt.Errorf("%w: entry %d is nested under a leaf", ErrMalformedFlat, i+1)
		}
		stack = append(stack, &pending{node: e.Node})
	}
	for len(stack) > 1 {
		closeTop()
	}

	root := stack[0].node.withoutChildren()
	root.children = stack[0].children
	return root, nil
}
