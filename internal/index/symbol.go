package index

import (
	"github.com/jarredhawkins/omniparse/internal/segment"
	"github.com/jarredhawkins/omniparse/internal/types"
)

type Symbol = types.Symbol
type Reference = types.Reference

// Hit locates a matched segment in a file. Lines are 1-indexed, columns
// 0-indexed runes; the end is exclusive.
type Hit struct {
	FilePath  string `json:"file"`
	Type      string `json:"type"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	EndLine   int    `json:"end_line"`
	EndColumn int    `json:"end_column"`
	Depth     int    `json:"depth"`
	Text      string `json:"text"`
}

// Hits lists the segments of root with the given rule name. An empty name
// lists every matched segment.
func Hits(path string, root *segment.Segment, typeName string) []Hit {
	lines := segment.NewLineIndex(root.Text())
	var hits []Hit
	for _, span := range root.Spans() {
		n := span.Node
		if !n.IsCode() || n == root || (typeName != "" && n.TypeName() != typeName) {
			continue
		}
		start, end := lines.Position(span.Start), lines.Position(span.End)
		hits = append(hits, Hit{
			FilePath:  path,
			Type:      n.TypeName(),
			Line:      start.Line,
			Column:    start.Column - 1,
			EndLine:   end.Line,
			EndColumn: end.Column - 1,
			Depth:     span.Depth,
			Text:      n.Text(),
		})
	}
	return hits
}
