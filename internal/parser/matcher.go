package parser

import (
	"regexp"
	"regexp/syntax"
	"slices"
	"unicode"
	"unicode/utf8"
)

// MatchOptions are the engine-wide settings passed to every matcher.
type MatchOptions struct {
	// WhitespaceInsensitive lets literal whitespace match any whitespace run.
	WhitespaceInsensitive bool
}

// Matcher recognizes an open or close tag starting exactly at a cursor.
type Matcher interface {
	// Match returns the number of runes consumed by a match starting at
	// cursor, or false when there is no match there.
	Match(in *Input, cursor int, opts MatchOptions) (int, bool)

	// Validate reports configuration problems. It is called once by New.
	Validate() error
}

// LiteralMatcher matches a fixed tag, optionally guarded by an escape
// sequence.
type LiteralMatcher struct {
	tag    []rune
	escape []rune
}

// Literal matches tag exactly.
func Literal(tag string) *LiteralMatcher {
	return &LiteralMatcher{tag: []rune(tag)}
}

// EscapedLiteral matches tag unless it is preceded by an odd number of
// consecutive escape sequences. An empty escape disables the check.
func EscapedLiteral(tag, escape string) *LiteralMatcher {
	m := Literal(tag)
	if escape != "" {
		m.escape = []rune(escape)
	}
	return m
}

func (m *LiteralMatcher) Validate() error {
	if len(m.tag) == 0 {
		return newConfigError(IssueEmptyTag, "literal tag must not be empty")
	}
	return nil
}

func (m *LiteralMatcher) Match(in *Input, cursor int, opts MatchOptions) (int, bool) {
	var n int
	var ok bool
	if opts.WhitespaceInsensitive {
		n, ok = m.matchLoose(in.runes, cursor)
	} else {
		n, ok = m.matchExact(in.runes, cursor)
	}
	if !ok || escaped(in.runes, cursor, m.escape) {
		return 0, false
	}
	return n, true
}

func (m *LiteralMatcher) matchExact(src []rune, cursor int) (int, bool) {
	end := cursor + len(m.tag)
	if end > len(src) || !slices.Equal(src[cursor:end], m.tag) {
		return 0, false
	}
	return len(m.tag), true
}

// matchLoose compares rune by rune, treating every whitespace run in the tag
// as a single unit that matches any non-empty whitespace run in the input.
func (m *LiteralMatcher) matchLoose(src []rune, cursor int) (int, bool) {
	if allSpace(m.tag) {
		n := spaceRun(src, cursor)
		return n, n > 0
	}

	i, j := 0, cursor
	for i < len(m.tag) {
		if unicode.IsSpace(m.tag[i]) {
			for i < len(m.tag) && unicode.IsSpace(m.tag[i]) {
				i++
			}
			n := spaceRun(src, j)
			if n == 0 {
				return 0, false
			}
			j += n
			continue
		}
		if j >= len(src) || src[j] != m.tag[i] {
			return 0, false
		}
		i++
		j++
	}
	return j - cursor, true
}

// escaped reports whether an odd number of escape sequences directly
// precede cursor.
func escaped(src []rune, cursor int, escape []rune) bool {
	if len(escape) == 0 {
		return false
	}
	odd := false
	for cursor >= len(escape) && slices.Equal(src[cursor-len(escape):cursor], escape) {
		odd = !odd
		cursor -= len(escape)
	}
	return odd
}

// PredicateFunc inspects the remaining input and returns the length of a
// match at its start.
type PredicateFunc func(rest []rune) (int, bool)

// PredicateMatcher delegates recognition to a caller supplied function.
type PredicateMatcher struct {
	fn PredicateFunc
}

// Predicate wraps fn as a matcher. A length beyond the remaining input is
// treated as no match.
func Predicate(fn PredicateFunc) *PredicateMatcher {
	return &PredicateMatcher{fn: fn}
}

func (m *PredicateMatcher) Validate() error {
	if m.fn == nil {
		return newConfigError(IssueNilPredicate, "predicate function is nil")
	}
	return nil
}

func (m *PredicateMatcher) Match(in *Input, cursor int, _ MatchOptions) (int, bool) {
	rest := in.runes[cursor:]
	n, ok := m.fn(rest)
	if !ok || n < 0 || n > len(rest) {
		return 0, false
	}
	return n, true
}

// RegexMatcher matches a regular expression anchored at the cursor.
type RegexMatcher struct {
	pattern string
	re      *regexp.Regexp
	err     error
}

// Regex compiles pattern. The pattern must be anchored with ^ or \A on
// every alternative; compile and anchoring errors are reported by Validate.
func Regex(pattern string) *RegexMatcher {
	m := &RegexMatcher{pattern: pattern}
	m.re, m.err = regexp.Compile(pattern)
	return m
}

// Pattern returns the source pattern.
func (m *RegexMatcher) Pattern() string { return m.pattern }

func (m *RegexMatcher) Validate() error {
	if m.err != nil {
		return &ConfigError{Issue: IssueInvalidRegex, Err: m.err}
	}
	if !anchoredAtStart(m.pattern) {
		return newConfigError(IssueUnanchoredRegex, "pattern %q must start with ^ or \\A", m.pattern)
	}
	return nil
}

func (m *RegexMatcher) Match(in *Input, cursor int, _ MatchOptions) (int, bool) {
	if m.re == nil {
		return 0, false
	}
	tail := in.Tail(cursor)
	loc := m.re.FindStringIndex(tail)
	if loc == nil || loc[0] != 0 {
		return 0, false
	}
	return utf8.RuneCountInString(tail[:loc[1]]), true
}

// anchoredAtStart reports whether every match of pattern must begin at the
// start of the text.
func anchoredAtStart(pattern string) bool {
	re, err := syntax.Parse(pattern, syntax.Perl)
	if err != nil {
		return false
	}
	prog, err := syntax.Compile(re.Simplify())
	if err != nil {
		return false
	}
	return prog.StartCond()&syntax.EmptyBeginText != 0
}

type autoClose struct{}

// AutoClose matches the empty string everywhere. Used as the close matcher
// of a token it ends the segment right after its open tag.
func AutoClose() Matcher { return autoClose{} }

func (autoClose) Validate() error { return nil }

func (autoClose) Match(*Input, int, MatchOptions) (int, bool) { return 0, true }

// guard only tries its inner matcher when allow accepts the cursor.
type guard struct {
	inner Matcher
	allow func(src []rune, cursor int) bool
}

func (g *guard) Validate() error {
	if g.inner == nil {
		return newConfigError(IssueNilMatcher, "guarded matcher is nil")
	}
	return g.inner.Validate()
}

func (g *guard) Match(in *Input, cursor int, opts MatchOptions) (int, bool) {
	if !g.allow(in.runes, cursor) {
		return 0, false
	}
	return g.inner.Match(in, cursor, opts)
}

// WordStart only matches where the preceding rune is not part of a word,
// so "if" is not found inside "elsif".
func WordStart(m Matcher) Matcher {
	return &guard{inner: m, allow: func(src []rune, cursor int) bool {
		return cursor == 0 || !isWordRune(src[cursor-1])
	}}
}

// LineStart only matches where nothing but whitespace precedes the cursor
// on its line.
func LineStart(m Matcher) Matcher {
	return &guard{inner: m, allow: func(src []rune, cursor int) bool {
		for i := cursor - 1; i >= 0; i-- {
			if src[i] == '\n' {
				return true
			}
			if !unicode.IsSpace(src[i]) {
				return false
			}
		}
		return true
	}}
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func allSpace(rs []rune) bool {
	for _, r := range rs {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func spaceRun(src []rune, from int) int {
	n := 0
	for from+n < len(src) && unicode.IsSpace(src[from+n]) {
		n++
	}
	return n
}
