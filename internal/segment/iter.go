package segment

// Navigable is implemented by tree references that can move to a first
// child, a next sibling and a parent.
type Navigable[R any] interface {
	FirstChild() (R, bool)
	NextSibling() (R, bool)
	Parent() (R, bool)
	Depth() int
}

// Iterator walks a tree depth-first in pre-order using only the navigation
// primitives of R. It never leaves the subtree it was started on.
type Iterator[R Navigable[R]] struct {
	cur        R
	startDepth int
	started    bool
	done       bool
}

// NewIterator starts an iteration at start. The first call to Next returns
// start itself.
func NewIterator[R Navigable[R]](start R) *Iterator[R] {
	return &Iterator[R]{cur: start, startDepth: start.Depth()}
}

// Next advances the iterator. It returns false once the subtree is exhausted.
func (it *Iterator[R]) Next() (R, bool) {
	var zero R
	if it.done {
		return zero, false
	}
	if !it.started {
		it.started = true
		return it.cur, true
	}

	if child, ok := it.cur.FirstChild(); ok {
		it.cur = child
		return child, true
	}

	node := it.cur
	for node.Depth() > it.startDepth {
		if next, ok := node.NextSibling(); ok {
			it.cur = next
			return next, true
		}
		parent, ok := node.Parent()
		if !ok {
			break
		}
		node = parent
	}

	it.done = true
	return zero, false
}
