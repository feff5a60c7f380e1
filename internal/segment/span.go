package segment

import "sort"

// Span locates a segment inside the text it was parsed from. Offsets are
// rune offsets, End is exclusive.
type Span struct {
	Node  *Segment
	Depth int
	Start int
	End   int
}

// Spans lists every segment under s in pre-order with its rune range,
// assuming s itself starts at rune offset 0.
func (s *Segment) Spans() []Span {
	var out []Span
	s.spans(0, 0, &out)
	return out
}

func (s *Segment) spans(depth, start int, out *[]Span) int {
	i := len(*out)
	*out = append(*out, Span{Node: s, Depth: depth, Start: start})
	end := start
	if s.kind != KindCode {
		end += len([]rune(s.text))
	} else {
		end += len([]rune(s.open))
		for _, c := range s.children {
			end = c.spans(depth+1, end, out)
		}
		end += len([]rune(s.close))
	}
	(*out)[i].End = end
	return end
}

// Position is a 1-based line and column. Columns count runes.
type Position struct {
	Line   int
	Column int
}

// LineIndex converts rune offsets into line and column positions.
type LineIndex struct {
	starts []int // rune offset of each line start
	length int
}

// NewLineIndex indexes the line breaks of text.
func NewLineIndex(text string) *LineIndex {
	li := &LineIndex{starts: []int{0}}
	n := 0
	for _, r := range text {
		n++
		if r == '\n' {
			li.starts = append(li.starts, n)
		}
	}
	li.length = n
	return li
}

// Position returns the position of the rune at offset. Offsets past the end
// are clamped to the end of the text.
func (li *LineIndex) Position(offset int) Position {
	if offset < 0 {
		offset = 0
	}
	if offset > li.length {
		offset = li.length
	}
	line := sort.Search(len(li.starts), func(i int) bool { return li.starts[i] > offset }) - 1
	return Position{Line: line + 1, Column: offset - li.starts[line] + 1}
}

// Lines returns the number of lines in the indexed text.
func (li *LineIndex) Lines() int {
	return len(li.starts)
}
