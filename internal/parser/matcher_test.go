package parser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLiteralMatcher(t *testing.T) {
	tests := []struct {
		name    string
		matcher Matcher
		input   string
		cursor  int
		loose   bool
		wantLen int
		wantOK  bool
	}{
		{name: "exact", matcher: Literal("if "), input: "if x", wantLen: 3, wantOK: true},
		{name: "exact mismatch", matcher: Literal("if "), input: "if\tx"},
		{name: "tag longer than input", matcher: Literal("</b>"), input: "</"},
		{name: "at cursor only", matcher: Literal("b"), input: "ab", cursor: 0},
		{name: "loose tab run", matcher: Literal("if "), input: "if\t  x", loose: true, wantLen: 5, wantOK: true},
		{name: "loose single space", matcher: Literal("if "), input: "if x", loose: true, wantLen: 3, wantOK: true},
		{name: "loose needs whitespace", matcher: Literal("if "), input: "ifx", loose: true},
		{name: "loose inner run", matcher: Literal("a b"), input: "a \n b", loose: true, wantLen: 5, wantOK: true},
		{name: "loose whitespace tag", matcher: Literal("\n"), input: "  \n x", loose: true, wantLen: 4, wantOK: true},
		{name: "exact whitespace tag", matcher: Literal("\n"), input: "  \n x"},
		{name: "loose whitespace tag on text", matcher: Literal(" "), input: "x", loose: true},
		{name: "escape zero", matcher: EscapedLiteral(`"`, `\`), input: `a"`, cursor: 1, wantLen: 1, wantOK: true},
		{name: "escape one", matcher: EscapedLiteral(`"`, `\`), input: `a\"`, cursor: 2},
		{name: "escape two", matcher: EscapedLiteral(`"`, `\`), input: `a\\"`, cursor: 3, wantLen: 1, wantOK: true},
		{name: "escape three", matcher: EscapedLiteral(`"`, `\`), input: `\\\"`, cursor: 3},
		{name: "multi-rune escape", matcher: EscapedLiteral("]", "]]"), input: "]]]", cursor: 2},
		{name: "loose with escape", matcher: EscapedLiteral("a b", `\`), input: `\a  b`, cursor: 1, loose: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := NewInput(tt.input)
			n, ok := tt.matcher.Match(in, tt.cursor, MatchOptions{WhitespaceInsensitive: tt.loose})
			require.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				require.Equal(t, tt.wantLen, n)
			}
		})
	}
}

func TestPredicateMatcher(t *testing.T) {
	m := Predicate(func(rest []rune) (int, bool) {
		if len(rest) >= 2 && rest[0] == '/' && rest[1] == '/' {
			return 2, true
		}
		return 0, false
	})
	in := NewInput("a // b")

	n, ok := m.Match(in, 2, MatchOptions{})
	require.True(t, ok)
	require.Equal(t, 2, n)

	_, ok = m.Match(in, 0, MatchOptions{})
	require.False(t, ok)

	greedy := Predicate(func(rest []rune) (int, bool) { return len(rest) + 1, true })
	_, ok = greedy.Match(in, 0, MatchOptions{})
	require.False(t, ok, "length past the end of input is not a match")
}

func TestRegexMatcher(t *testing.T) {
	in := NewInput("-- // test\n --")

	m := Regex("^//.+\n")
	require.NoError(t, m.Validate())

	n, ok := m.Match(in, 3, MatchOptions{})
	require.True(t, ok)
	require.Equal(t, 8, n)

	_, ok = m.Match(in, 0, MatchOptions{})
	require.False(t, ok, "anchored pattern must not match later in the text")

	wide := Regex(`^é+`)
	n, ok = wide.Match(NewInput("aééb"), 1, MatchOptions{})
	require.True(t, ok)
	require.Equal(t, 2, n, "length is counted in runes")
}

func TestRegexValidate(t *testing.T) {
	tests := []struct {
		pattern string
		issue   Issue
	}{
		{pattern: `^\d+`},
		{pattern: `\Afoo`},
		{pattern: `^(a|b)`},
		{pattern: `^$`},
		{pattern: `foo`, issue: IssueUnanchoredRegex},
		{pattern: `^a|b`, issue: IssueUnanchoredRegex},
		{pattern: `(?m)^a`, issue: IssueUnanchoredRegex},
		{pattern: `^(`, issue: IssueInvalidRegex},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			err := Regex(tt.pattern).Validate()
			if tt.issue == 0 {
				require.NoError(t, err)
				return
			}
			var ce *ConfigError
			require.True(t, errors.As(err, &ce), "got %v", err)
			require.Equal(t, tt.issue, ce.Issue)
		})
	}
}

func TestGuards(t *testing.T) {
	word := WordStart(Literal("if"))
	_, ok := word.Match(NewInput("elsif"), 3, MatchOptions{})
	require.False(t, ok)
	n, ok := word.Match(NewInput(" if"), 1, MatchOptions{})
	require.True(t, ok)
	require.Equal(t, 2, n)

	line := LineStart(Literal("def"))
	_, ok = line.Match(NewInput("  def"), 2, MatchOptions{})
	require.True(t, ok)
	_, ok = line.Match(NewInput("x\n\tdef"), 3, MatchOptions{})
	require.True(t, ok)
	_, ok = line.Match(NewInput("x def"), 2, MatchOptions{})
	require.False(t, ok)

	var ce *ConfigError
	require.True(t, errors.As(WordStart(nil).Validate(), &ce))
	require.Equal(t, IssueNilMatcher, ce.Issue)
}

func TestAutoClose(t *testing.T) {
	n, ok := AutoClose().Match(NewInput(""), 0, MatchOptions{})
	require.True(t, ok)
	require.Zero(t, n)
}

func TestInput(t *testing.T) {
	in := NewInput("añb✓")
	require.Equal(t, 4, in.Len())
	require.Equal(t, "ñb", in.Slice(1, 3))
	require.Equal(t, "✓", in.Tail(3))
	require.Equal(t, "", in.Tail(4))
}
