package segment

import (
	"iter"
	"slices"
)

// Ref is a stable handle to a node of a tree. It stores the identities of
// the nodes on the way from the root and resolves them on every access, so
// it keeps finding the same logical node after siblings are removed or
// inserted in a rebuilt tree. It stops resolving once the node itself, or
// one of its ancestors, is gone.
type Ref struct {
	root *Segment
	path []uint64 // identities below root, outermost first
}

// NewRef returns a reference to root.
func NewRef(root *Segment) Ref {
	return Ref{root: root}
}

// Ref returns a reference to s as the root of its own tree.
func (s *Segment) Ref() Ref {
	return NewRef(s)
}

// Root returns the tree the reference resolves against.
func (r Ref) Root() *Segment { return r.root }

// Path returns a copy of the identity path.
func (r Ref) Path() []uint64 { return slices.Clone(r.path) }

// Depth returns the depth of the referenced node below the root.
func (r Ref) Depth() int { return len(r.path) }

// Rebase returns a reference with the same identity path resolving against
// another tree, typically one rebuilt with Inflate.
func (r Ref) Rebase(root *Segment) Ref {
	return Ref{root: root, path: r.path}
}

// Get resolves the reference.
func (r Ref) Get() (*Segment, bool) {
	node, _, _ := r.resolve()
	return node, node != nil
}

// resolve walks the identity path and returns the node, its parent and its
// index within the parent.
func (r Ref) resolve() (node, parent *Segment, index int) {
	if r.root == nil {
		return nil, nil, -1
	}
	node, index = r.root, -1
	for _, id := range r.path {
		parent = node
		node, index = parent.ChildByID(id)
		if node == nil {
			return nil, nil, -1
		}
	}
	return node, parent, index
}

func (r Ref) extend(id uint64) Ref {
	path := make([]uint64, len(r.path), len(r.path)+1)
	copy(path, r.path)
	return Ref{root: r.root, path: append(path, id)}
}

// Child returns a reference to the child at index.
func (r Ref) Child(index int) (Ref, bool) {
	node, ok := r.Get()
	if !ok {
		return Ref{}, false
	}
	child := node.Child(index)
	if child == nil {
		return Ref{}, false
	}
	return r.extend(child.id), true
}

// FirstChild returns a reference to the first child.
func (r Ref) FirstChild() (Ref, bool) {
	return r.Child(0)
}

// Parent returns a reference to the parent. It fails at the root.
func (r Ref) Parent() (Ref, bool) {
	if len(r.path) == 0 {
		return Ref{}, false
	}
	return Ref{root: r.root, path: r.path[: len(r.path)-1 : len(r.path)-1]}, true
}

// Sibling returns a reference to the node offset positions away within the
// parent's child list. It fails past either end of the list and at the root.
func (r Ref) Sibling(offset int) (Ref, bool) {
	node, parent, index := r.resolve()
	if node == nil || parent == nil {
		return Ref{}, false
	}
	target := parent.Child(index + offset)
	if target == nil {
		return Ref{}, false
	}
	up, _ := r.Parent()
	return up.extend(target.id), true
}

// NextSibling returns a reference to the following sibling.
func (r Ref) NextSibling() (Ref, bool) {
	return r.Sibling(1)
}

// PreviousSibling returns a reference to the preceding sibling.
func (r Ref) PreviousSibling() (Ref, bool) {
	return r.Sibling(-1)
}

// All yields the referenced node and all of its descendants in pre-order.
func (r Ref) All() iter.Seq[*Segment] {
	return func(yield func(*Segment) bool) {
		it := NewIterator(r)
		for ref, ok := it.Next(); ok; ref, ok = it.Next() {
			node, found := ref.Get()
			if !found || !yield(node) {
				return
			}
		}
	}
}
