package render

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jarredhawkins/omniparse/internal/segment"
)

var (
	leafStyle  = lipgloss.NewStyle().Faint(true)
	depthStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Tree dumps root one segment per line, indented by depth. With color set,
// each rule name gets its own terminal color.
func Tree(root *segment.Segment, color bool) string {
	var b strings.Builder
	for _, entry := range root.Flatten() {
		b.WriteString(strings.Repeat("  ", entry.Depth))
		b.WriteString(TreeLine(entry.Node, color))
		b.WriteByte('\n')
	}
	return b.String()
}

// TreeLine renders a single segment without its children.
func TreeLine(s *segment.Segment, color bool) string {
	name := s.TypeName()
	if color {
		name = typeStyle(name).Render(name)
	}
	if !s.IsCode() {
		detail := fmt.Sprintf("%q", s.LeafText())
		if color {
			detail = leafStyle.Render(detail)
		}
		return name + " " + detail
	}
	if s.TypeName() == segment.RootName {
		return name
	}
	detail := fmt.Sprintf("%q ... %q", s.Open(), s.Close())
	if color {
		detail = depthStyle.Render(detail)
	}
	return name + " " + detail
}

// typeStyle picks a stable color for a rule name from the 256 color
// palette, skipping the darkest and the greyscale entries.
func typeStyle(name string) lipgloss.Style {
	h := fnv.New32a()
	h.Write([]byte(name))
	code := 17 + h.Sum32()%214
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(fmt.Sprintf("%d", code)))
}
