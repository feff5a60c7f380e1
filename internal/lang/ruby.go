package lang

import (
	"regexp"
	"unicode"

	"github.com/jarredhawkins/omniparse/internal/parser"
)

// Core Ruby patterns. Each one opens a segment that runs to its matching
// `end`.
const (
	// class MyClass < BaseClass
	// class MyModule::MyClass
	classPattern = `^class\s+(?P<name>[A-Z]\w*(?:::[A-Z]\w*)*)(?:\s*<\s*\S+)?`

	// class << self
	singletonClassPattern = `^class\s*<<\s*self\b`

	// module MyModule
	// module MyParent::MyModule
	modulePattern = `^module\s+(?P<name>[A-Z]\w*(?:::[A-Z]\w*)*)`

	// def my_method
	// def my_method(args)
	// def self.my_class_method
	methodPattern = `^def\s+(?:self\.)?(?P<name>\w+[?!=]?)`

	// Block-opening keywords at the start of a line. Postfix if/unless
	// ("return if x") do not start the line and need no `end`.
	blockPattern = `^(?:if|unless|case|while|until|for|begin)\b`

	// foo.each do |x|, loop do
	doPattern = `^do\b(?:\s*\|[^|]*\|)?`

	endPattern = `^end\b`
)

// One-line definitions. Their segment is just the open tag.
const (
	// has_many :orders
	// belongs_to(:account)
	relationPattern = `^(?:belongs_to|has_one|has_many|has_and_belongs_to_many)\b\s*\(?\s*:(?P<name>[a-z_]\w*)`

	// MAX_RETRIES = 3
	constantNamePattern = `^(?P<name>[A-Z][A-Z0-9_]*)`
)

// Ruby returns the Ruby language.
func Ruby() *Language {
	end := func() parser.Matcher { return parser.WordStart(parser.Regex(endPattern)) }
	keyword := func(name, pattern string) parser.Rule {
		return parser.Rule{
			Name:     name,
			SubParse: true,
			Open:     parser.LineStart(parser.Regex(pattern)),
			Close:    end(),
		}
	}

	return &Language{
		Name:       "ruby",
		Extensions: []string{".rb", ".rake", ".gemspec"},
		Filenames:  []string{"Gemfile", "Rakefile", "Guardfile", "Vagrantfile"},
		Rules: []parser.Rule{
			{
				Name:  "doc_comment",
				Open:  parser.LineStart(parser.Literal("=begin")),
				Close: parser.LineStart(parser.Literal("=end")),
			},
			{Name: "comment", Open: parser.Literal("#"), Close: LineEnd()},
			parser.Escaped("string", false, `"`, "", `"`, `\`),
			parser.Escaped("string_single", false, "'", "", "'", `\`),
			{
				Name:  "constant",
				Open:  parser.LineStart(parser.Predicate(matchConstantAssignment)),
				Close: parser.AutoClose(),
			},
			{
				Name:  "relation",
				Open:  parser.LineStart(parser.Regex(relationPattern)),
				Close: parser.AutoClose(),
			},
			keyword("class", classPattern),
			keyword("singleton_class", singletonClassPattern),
			keyword("module", modulePattern),
			keyword("def", methodPattern),
			keyword("block", blockPattern),
			{
				Name:     "do",
				SubParse: true,
				Open:     parser.WordStart(parser.Regex(doPattern)),
				Close:    end(),
			},
		},
		Symbols: map[string]*regexp.Regexp{
			"class":    regexp.MustCompile(classPattern),
			"module":   regexp.MustCompile(modulePattern),
			"def":      regexp.MustCompile(methodPattern),
			"constant": regexp.MustCompile(constantNamePattern),
			"relation": regexp.MustCompile(relationPattern),
		},
		Separator: "::",
	}
}

// LineEnd matches a line break, or the empty end of the input so that a
// trailing line without a newline still closes.
func LineEnd() parser.Matcher {
	return parser.Regex(`^(?:\r?\n|$)`)
}

// matchConstantAssignment matches the "NAME =" of a constant assignment up
// to the equals sign. Comparisons such as "NAME == x" are not assignments.
func matchConstantAssignment(rest []rune) (int, bool) {
	n := 0
	for n < len(rest) && (unicode.IsUpper(rest[n]) || (n > 0 && (unicode.IsDigit(rest[n]) || rest[n] == '_'))) {
		n++
	}
	if n == 0 || (n < len(rest) && unicode.IsLower(rest[n])) {
		return 0, false
	}
	for n < len(rest) && (rest[n] == ' ' || rest[n] == '\t') {
		n++
	}
	if n >= len(rest) || rest[n] != '=' {
		return 0, false
	}
	if n+1 < len(rest) && (rest[n+1] == '=' || rest[n+1] == '~' || rest[n+1] == '>') {
		return 0, false
	}
	return n + 1, true
}
