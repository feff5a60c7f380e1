// Package lang holds named rule sets for the segment scanner and a registry
// that picks one for a file.
package lang

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/jarredhawkins/omniparse/internal/parser"
	"github.com/jarredhawkins/omniparse/internal/segment"
	"github.com/jarredhawkins/omniparse/internal/types"
)

// Language is a rule set plus what is needed to apply it to files.
type Language struct {
	Name       string
	Extensions []string // With leading dot, e.g. ".rb"
	Filenames  []string // Exact base names, e.g. "Gemfile"
	Rules      []parser.Rule
	Options    []parser.Option

	// Symbols maps a rule name to a pattern run against the open tag of its
	// segments. The "name" group, or else the first group, names the symbol.
	Symbols map[string]*regexp.Regexp

	// Separator joins scope names into full symbol names.
	Separator string

	strict  *parser.Parser
	lenient *parser.Parser
}

// Compile builds the parsers of the language. It is called by Set.Register.
func (l *Language) Compile() error {
	if l.Name == "" {
		return fmt.Errorf("language has no name")
	}
	// Options of the language come after the default bound and can lift it.
	base := append([]parser.Option{parser.WithMaxDepth(parser.DefaultMaxDepth)}, l.Options...)
	strict, err := parser.New(l.Rules, base...)
	if err != nil {
		return fmt.Errorf("language %s: %w", l.Name, err)
	}
	opts := append(slices.Clone(base), parser.WithUnterminated(parser.CloseAtEnd))
	lenient, err := parser.New(l.Rules, opts...)
	if err != nil {
		return fmt.Errorf("language %s: %w", l.Name, err)
	}
	l.strict, l.lenient = strict, lenient
	return nil
}

// Parser returns the parser built from the language options.
func (l *Language) Parser() *parser.Parser {
	return l.strict
}

// Parse scans text with the language options.
func (l *Language) Parse(text string) (*segment.Segment, error) {
	if l.strict == nil {
		return nil, fmt.Errorf("language %s: not compiled", l.Name)
	}
	return l.strict.Parse(text)
}

// ParseLenient scans text and closes unterminated segments at the end of the
// input instead of failing.
func (l *Language) ParseLenient(text string) (*segment.Segment, error) {
	if l.lenient == nil {
		return nil, fmt.Errorf("language %s: not compiled", l.Name)
	}
	return l.lenient.Parse(text)
}

// Outline lists the symbols of a parsed file in source order.
func (l *Language) Outline(root *segment.Segment, filePath string) []*types.Symbol {
	if len(l.Symbols) == 0 {
		return nil
	}

	type open struct {
		depth int
		path  []string // Scope plus name of the symbol
	}
	var (
		symbols []*types.Symbol
		stack   []open
	)
	lines := segment.NewLineIndex(root.Text())

	for _, span := range root.Spans() {
		for len(stack) > 0 && stack[len(stack)-1].depth >= span.Depth {
			stack = stack[:len(stack)-1]
		}
		if !span.Node.IsCode() {
			continue
		}
		re, ok := l.Symbols[span.Node.TypeName()]
		if !ok {
			continue
		}
		openTag := span.Node.Open()
		name, nameEnd := symbolName(re, openTag)
		if name == "" {
			continue
		}

		var scope []string
		if len(stack) > 0 {
			scope = slices.Clone(stack[len(stack)-1].path)
		}
		// Handle nested names like MyModule::MyClass
		if l.Separator != "" {
			parts := strings.Split(name, l.Separator)
			name = parts[len(parts)-1]
			scope = append(scope, parts[:len(parts)-1]...)
		}
		// The symbol starts at its short name within the open tag
		nameStart := span.Start + utf8.RuneCountInString(openTag[:nameEnd-len(name)])
		start := lines.Position(nameStart)
		end := lines.Position(span.End)
		sym := &types.Symbol{
			Name:      name,
			Kind:      span.Node.TypeName(),
			FilePath:  filePath,
			Line:      start.Line,
			Column:    start.Column - 1,
			EndLine:   end.Line,
			EndColumn: end.Column - 1,
			Scope:     scope,
		}
		sym.FullName = sym.ComputeFullName(l.separator())
		symbols = append(symbols, sym)
		stack = append(stack, open{depth: span.Depth, path: append(slices.Clone(scope), name)})
	}
	return symbols
}

func (l *Language) separator() string {
	if l.Separator == "" {
		return "."
	}
	return l.Separator
}

// symbolName returns the name matched in openTag and the byte offset where
// it ends.
func symbolName(re *regexp.Regexp, openTag string) (string, int) {
	loc := re.FindStringSubmatchIndex(openTag)
	if loc == nil {
		return "", 0
	}
	group := 0
	if i := re.SubexpIndex("name"); i > 0 {
		group = i
	} else if len(loc) > 2 {
		group = 1
	}
	from, to := loc[2*group], loc[2*group+1]
	if from < 0 {
		return "", 0
	}
	return openTag[from:to], to
}
