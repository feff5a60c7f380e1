// Package render turns segment trees into debug views: a highlighted HTML
// document and a terminal tree dump.
package render

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/jarredhawkins/omniparse/internal/segment"
)

// HTMLOptions configures an HTML document.
type HTMLOptions struct {
	Title string

	// Names fixes the order in which rule names get their hue. Names not
	// listed follow in order of first appearance.
	Names []string
}

// HTML writes a standalone document that shows the text of root with every
// matched segment wrapped in <span class="segment NAME">.
func HTML(w io.Writer, root *segment.Segment, opts HTMLOptions) error {
	doc := Document(root, opts)
	if err := html.Render(w, doc); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}

// Document builds the node tree written by HTML.
func Document(root *segment.Segment, opts HTMLOptions) *html.Node {
	title := opts.Title
	if title == "" {
		title = "segments"
	}

	head := element(atom.Head)
	meta := element(atom.Meta)
	meta.Attr = []html.Attribute{{Key: "charset", Val: "utf-8"}}
	head.AppendChild(meta)
	head.AppendChild(element(atom.Title, text(title)))
	head.AppendChild(element(atom.Style, text(Stylesheet(TypeNames(root, opts.Names)))))

	pre := element(atom.Pre)
	for _, c := range root.Children() {
		pre.AppendChild(segmentNode(c))
	}
	body := element(atom.Body, pre)

	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	doc.AppendChild(element(atom.Html, head, body))
	return doc
}

func segmentNode(s *segment.Segment) *html.Node {
	if !s.IsCode() {
		return text(s.LeafText())
	}
	span := element(atom.Span)
	span.Attr = []html.Attribute{
		{Key: "class", Val: "segment " + ClassName(s.TypeName())},
		{Key: "title", Val: s.TypeName()},
	}
	if s.Open() != "" {
		span.AppendChild(tag(s.Open()))
	}
	for _, c := range s.Children() {
		span.AppendChild(segmentNode(c))
	}
	if s.Close() != "" {
		span.AppendChild(tag(s.Close()))
	}
	return span
}

func tag(t string) *html.Node {
	n := element(atom.Span, text(t))
	n.Attr = []html.Attribute{{Key: "class", Val: "tag"}}
	return n
}

func element(a atom.Atom, children ...*html.Node) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	for _, c := range children {
		n.AppendChild(c)
	}
	return n
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// TypeNames lists the rule names used in root: first those of preferred
// that occur, then the rest in order of first appearance.
func TypeNames(root *segment.Segment, preferred []string) []string {
	used := make(map[string]bool)
	var found []string
	for _, span := range root.Spans() {
		n := span.Node
		if !n.IsCode() || n == root || used[n.TypeName()] {
			continue
		}
		used[n.TypeName()] = true
		found = append(found, n.TypeName())
	}

	names := make([]string, 0, len(found))
	seen := make(map[string]bool)
	for _, name := range preferred {
		if used[name] && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for _, name := range found {
		if !seen[name] {
			names = append(names, name)
		}
	}
	return names
}

// Stylesheet spreads the hues of the color wheel over names.
func Stylesheet(names []string) string {
	var b strings.Builder
	b.WriteString("\npre { tab-size: 4; }\n")
	b.WriteString(".segment { color: #0ff000; background-color: #0000ff; }\n")
	b.WriteString(".tag { font-weight: bold; }\n")
	for i, name := range names {
		fmt.Fprintf(&b, ".segment.%s { filter: hue-rotate(%ddeg); }\n", ClassName(name), Hue(i, len(names)))
	}
	return b.String()
}

// Hue returns the hue in degrees of the i-th of n names.
func Hue(i, n int) int {
	if n == 0 {
		return 0
	}
	return i * 360 / n
}

// ClassName makes a rule name usable as a CSS class.
func ClassName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
