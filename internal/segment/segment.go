package segment

import (
	"fmt"
	"slices"
	"strings"
	"sync/atomic"
	"unicode"
)

// Reserved type names. Rules may not use them.
const (
	RootName                = "ROOT"
	UnmatchedName           = "UNMATCHED"
	UnmatchedWhitespaceName = "UNMATCHED_WHITESPACE"
)

// Kind categorizes a segment
type Kind int

const (
	KindCode       Kind = iota // Matched region with open tag, children and close tag
	KindContents               // Unmatched run containing at least one non-space rune
	KindWhitespace             // Unmatched run made only of whitespace
)

func (k Kind) String() string {
	switch k {
	case KindCode:
		return "code"
	case KindContents:
		return "contents"
	case KindWhitespace:
		return "whitespace"
	default:
		return "unknown"
	}
}

var lastID atomic.Uint64

func nextID() uint64 {
	return lastID.Add(1)
}

// Segment is a node of a parse result tree. It is never mutated after
// construction, so a tree may be shared between goroutines.
type Segment struct {
	id       uint64
	kind     Kind
	typeName string
	open     string
	close    string
	text     string // Leaf text
	children []*Segment
}

// NewCode creates a matched segment.
func NewCode(typeName, open string, children []*Segment, close string) *Segment {
	return &Segment{
		id:       nextID(),
		kind:     KindCode,
		typeName: typeName,
		open:     open,
		close:    close,
		children: children,
	}
}

// NewContents creates an unmatched leaf. The leaf is a whitespace leaf when
// every rune of text is whitespace.
func NewContents(text string) *Segment {
	kind := KindContents
	if IsWhitespace(text) {
		kind = KindWhitespace
	}
	return NewLeaf(kind, text)
}

// NewLeaf creates an unmatched leaf of an explicit kind.
func NewLeaf(kind Kind, text string) *Segment {
	name := UnmatchedName
	if kind == KindWhitespace {
		name = UnmatchedWhitespaceName
	}
	return &Segment{
		id:       nextID(),
		kind:     kind,
		typeName: name,
		text:     text,
	}
}

// IsWhitespace reports whether s is non-empty and made only of whitespace.
func IsWhitespace(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func (s *Segment) ID() uint64         { return s.id }
func (s *Segment) Kind() Kind         { return s.kind }
func (s *Segment) TypeName() string   { return s.typeName }
func (s *Segment) IsCode() bool       { return s.kind == KindCode }
func (s *Segment) IsContents() bool   { return s.kind == KindContents }
func (s *Segment) IsWhitespace() bool { return s.kind == KindWhitespace }

// Open returns the open tag text of a code segment.
func (s *Segment) Open() string { return s.open }

// Close returns the close tag text of a code segment. It is empty when the
// segment was closed implicitly at end of input.
func (s *Segment) Close() string { return s.close }

// LeafText returns the text of a leaf. Code segments return "".
func (s *Segment) LeafText() string { return s.text }

// Children returns a copy of the child list.
func (s *Segment) Children() []*Segment {
	return slices.Clone(s.children)
}

// Len returns the number of children.
func (s *Segment) Len() int { return len(s.children) }

// Child returns the child at index i, or nil when out of range.
func (s *Segment) Child(i int) *Segment {
	if i < 0 || i >= len(s.children) {
		return nil
	}
	return s.children[i]
}

// ChildByID returns the direct child carrying the given identity.
func (s *Segment) ChildByID(id uint64) (*Segment, int) {
	for i, c := range s.children {
		if c.id == id {
			return c, i
		}
	}
	return nil, -1
}

// FirstOfType returns the first direct child with the given type name.
func (s *Segment) FirstOfType(typeName string) *Segment {
	for _, c := range s.children {
		if c.typeName == typeName {
			return c
		}
	}
	return nil
}

// Text reconstructs the exact source text spanned by the segment.
func (s *Segment) Text() string {
	var b strings.Builder
	s.writeText(&b)
	return b.String()
}

func (s *Segment) writeText(b *strings.Builder) {
	if s.kind != KindCode {
		b.WriteString(s.text)
		return
	}
	b.WriteString(s.open)
	for _, c := range s.children {
		c.writeText(b)
	}
	b.WriteString(s.close)
}

// InnerText reconstructs the text between the open and close tags.
func (s *Segment) InnerText() string {
	if s.kind != KindCode {
		return s.text
	}
	var b strings.Builder
	for _, c := range s.children {
		c.writeText(&b)
	}
	return b.String()
}

// RuneLen returns the number of runes spanned by the segment.
func (s *Segment) RuneLen() int {
	if s.kind != KindCode {
		return len([]rune(s.text))
	}
	n := len([]rune(s.open)) + len([]rune(s.close))
	for _, c := range s.children {
		n += c.RuneLen()
	}
	return n
}

// withoutChildren returns a childless copy that keeps the identity.
func (s *Segment) withoutChildren() *Segment {
	c := *s
	c.children = nil
	return &c
}

// AtDepth returns every segment at exactly depth d below s, in pre-order.
// Depth 0 is s itself.
func (s *Segment) AtDepth(d int) []*Segment {
	var out []*Segment
	s.collectAtDepth(d, &out)
	return out
}

func (s *Segment) collectAtDepth(d int, out *[]*Segment) {
	if d == 0 {
		*out = append(*out, s)
		return
	}
	for _, c := range s.children {
		c.collectAtDepth(d-1, out)
	}
}

// Equal reports whether two trees have the same shape, identities and text.
func Equal(a, b *Segment) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.id != b.id || a.kind != b.kind || a.typeName != b.typeName ||
		a.open != b.open || a.close != b.close || a.text != b.text ||
		len(a.children) != len(b.children) {
		return false
	}
	for i := range a.children {
		if !Equal(a.children[i], b.children[i]) {
			return false
		}
	}
	return true
}

// String renders an indented debug view of the tree.
func (s *Segment) String() string {
	var b strings.Builder
	s.writeDebug(&b, 0)
	return b.String()
}

func (s *Segment) writeDebug(b *strings.Builder, depth int) {
	indent := strings.Repeat("\t", depth)
	if s.kind != KindCode {
		fmt.Fprintf(b, "%s%s %q\n", indent, s.typeName, s.text)
		return
	}
	fmt.Fprintf(b, "%s%s {\n", indent, s.typeName)
	for _, c := range s.children {
		c.writeDebug(b, depth+1)
	}
	fmt.Fprintf(b, "%s}\n", indent)
}
