package types

import (
	"fmt"
	"strings"
)

// Symbol is a named segment found in a parsed file, such as a class or a
// method definition.
type Symbol struct {
	Name      string   `json:"name"`     // e.g., "MyClass", "my_method"
	Kind      string   `json:"kind"`     // Rule name of the segment, e.g. "class"
	FilePath  string   `json:"file"`     // Absolute path
	Line      int      `json:"line"`     // 1-indexed
	Column    int      `json:"column"`   // 0-indexed, in runes
	EndLine   int      `json:"end_line"` // Line of the close tag
	EndColumn int      `json:"end_column"`
	Scope     []string `json:"scope"`     // Enclosing symbol names ["MyModule", "MyClass"]
	FullName  string   `json:"full_name"` // Computed: "MyModule::MyClass::my_method"
}

// ComputeFullName joins the scope and the name with sep.
func (s *Symbol) ComputeFullName(sep string) string {
	parts := make([]string, 0, len(s.Scope)+1)
	parts = append(parts, s.Scope...)
	parts = append(parts, s.Name)
	return strings.Join(parts, sep)
}

// Location returns a simple file:line representation
func (s *Symbol) Location() string {
	return fmt.Sprintf("%s:%d", s.FilePath, s.Line)
}

// MatchesName checks if this symbol matches the given name
// Supports both short names and fully qualified names
func (s *Symbol) MatchesName(name string) bool {
	return s.Name == name || s.FullName == name
}

// Reference is an occurrence of a word in an indexed file.
type Reference struct {
	FilePath string `json:"file"`
	Line     int    `json:"line"`      // 1-indexed
	Column   int    `json:"column"`    // 0-indexed, in runes
	Length   int    `json:"length"`    // Length of the matched text in runes
	LineText string `json:"line_text"` // Full line text for display
	Segment  string `json:"segment"`   // Type name of the innermost segment holding the match
}
