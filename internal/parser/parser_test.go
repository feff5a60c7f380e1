package parser

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/jarredhawkins/omniparse/internal/segment"
)

var exampleText = strings.Join([]string{
	"",
	"\tif necessary {",
	"\t\t// Makes the program do the expected thing.",
	"\t\tlet thing_result = do_the_thing();",
	"\t\tif thing_result.is_ok() {",
	"\t\t\tprintln!(\"Successful thinging complete! Exited with error code \\\"{}\\\".\", get_code());",
	"\t\t}",
	"\t}",
	"\tif\t weirdly_spaced_bool {",
	"\t\t// This comment contains white-space, but is not split up despite its white-space end-tag.",
	"\t}",
	"\tconfusing footer?",
	"\t",
}, "\n")

func exampleRules() []Rule {
	return []Rule{
		Pair("comment", false, "//", "\n"),
		Pair("scope", true, "{", "}"),
		Pair("if-statement", true, "if ", " "),
		Escaped("string", false, `"`, "", `"`, `\`),
		Pair("print-statement", true, "println!(", ");"),
	}
}

func flatNames(root *segment.Segment) []string {
	var names []string
	for _, f := range root.Flatten() {
		names = append(names, f.Node.TypeName())
	}
	return names
}

func childNames(s *segment.Segment) []string {
	var names []string
	for _, c := range s.Children() {
		names = append(names, c.TypeName())
	}
	return names
}

const (
	ws   = segment.UnmatchedWhitespaceName
	text = segment.UnmatchedName
)

func TestParseEndToEnd(t *testing.T) {
	p := MustNew([]Rule{
		Pair("comment", false, "//", "\n"),
		Pair("scope", true, "{", "}"),
	})

	root, err := p.Parse("if x { // c\n }")
	require.NoError(t, err)
	require.Equal(t, segment.RootName, root.TypeName())
	require.Equal(t, "", root.Open())
	require.Equal(t, "", root.Close())
	require.Equal(t, 2, root.Len())

	lead := root.Child(0)
	require.True(t, lead.IsContents())
	require.Equal(t, "if x ", lead.LeafText())

	scope := root.Child(1)
	require.Equal(t, "scope", scope.TypeName())
	require.Equal(t, "{", scope.Open())
	require.Equal(t, "}", scope.Close())
	require.Equal(t, []string{ws, "comment", ws}, childNames(scope))

	comment := scope.Child(1)
	require.Equal(t, "// c\n", comment.Text())
	require.Equal(t, " c", comment.InnerText())
	require.Equal(t, " ", scope.Child(2).LeafText())

	require.Equal(t, "if x { // c\n }", root.Text())
}

func TestParseNestingStructure(t *testing.T) {
	p := MustNew(exampleRules())
	root, err := p.Parse(exampleText)
	require.NoError(t, err)
	t.Logf("\n%s", root)

	require.Equal(t, []string{ws, "if-statement", "scope", text, "scope", text}, childNames(root))
	require.Equal(t, []string{ws, "comment", text, "if-statement", "scope", ws}, childNames(root.Child(2)))
	require.Equal(t, "string", root.Child(2).Child(4).Child(1).Child(0).TypeName())
	require.Equal(t, []string{ws, "comment", ws}, childNames(root.Child(4)))

	require.Equal(t, []string{
		segment.RootName, ws, "if-statement", text, "scope", ws, "comment", text, text, "if-statement", text,
		"scope", ws, "print-statement", "string", text, text, ws, ws, text, "scope", ws, "comment", text, ws, text,
	}, flatNames(root))

	require.Equal(t, exampleText, root.Text())
}

func TestParseWithoutWhitespaceLeaves(t *testing.T) {
	p := MustNew(exampleRules(), WithoutWhitespaceLeaves())
	root, err := p.Parse(exampleText)
	require.NoError(t, err)

	require.Equal(t, []string{"if-statement", "scope", text, "scope", text}, childNames(root))
	require.Equal(t, []string{"comment", text, "if-statement", "scope"}, childNames(root.Child(1)))
	require.Equal(t, []string{
		segment.RootName, "if-statement", text, "scope", "comment", text, text, "if-statement", text,
		"scope", "print-statement", "string", text, text, text, "scope", "comment", text, text,
	}, flatNames(root))
}

func TestParseEscapeParity(t *testing.T) {
	p := MustNew(exampleRules())

	tests := []struct {
		input string
		want  string
	}{
		{input: `- "test" -`, want: `"test"`},
		{input: `- "test\"" -`, want: `"test\""`},
		{input: `- "test\\" -`, want: `"test\\"`},
		{input: `- "test\\\"" -`, want: `"test\\\""`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			root, err := p.Parse(tt.input)
			require.NoError(t, err)
			require.Equal(t, "string", root.Child(1).TypeName())
			require.Equal(t, tt.want, root.Child(1).Text())
		})
	}

	t.Run("single escape leaves string open", func(t *testing.T) {
		_, err := p.Parse(`- "test\" -`)
		var ue *UnterminatedError
		require.True(t, errors.As(err, &ue))
		require.Equal(t, "string", ue.Rule)
		require.Equal(t, 3, ue.Column)
	})
}

func TestParseIdentificationTypes(t *testing.T) {
	const input = "-- // test\n --"

	openFn := func(rest []rune) (int, bool) {
		if len(rest) >= 2 && rest[0] == '/' && rest[1] == '/' {
			return 2, true
		}
		return 0, false
	}
	closeFn := func(rest []rune) (int, bool) {
		return 1, len(rest) > 0 && rest[0] == '\n'
	}

	tests := []struct {
		name  string
		rule  Rule
		input string
		want  string
	}{
		{name: "literal", rule: Pair("comment", false, "//", "\n"), input: input, want: "// test\n"},
		{
			name:  "literal with escapes",
			rule:  Escaped("comment", false, "//", "P", "\n", `\`),
			input: "-- P// // test\\\n \n --",
			want:  "// test\\\n \n",
		},
		{name: "predicate", rule: Func("comment", false, openFn, closeFn), input: input, want: "// test\n"},
		{name: "regex token", rule: Token("comment", "^//.+\n"), input: input, want: "// test\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, err := MustNew([]Rule{tt.rule}).Parse(tt.input)
			require.NoError(t, err)
			require.Equal(t, "comment", root.Child(1).TypeName())
			require.Equal(t, tt.want, root.Child(1).Text())
		})
	}
}

func TestParsePriority(t *testing.T) {
	short := Pair("short", false, "<", ">")
	long := Pair("long", false, "<<", ">>")

	for i := 0; i < 10; i++ {
		root, err := MustNew([]Rule{short, long}).Parse("<<x>>")
		require.NoError(t, err)
		require.Equal(t, "short", root.Child(0).TypeName())
		require.Equal(t, "<<x>", root.Child(0).Text())

		root, err = MustNew([]Rule{long, short}).Parse("<<x>>")
		require.NoError(t, err)
		require.Equal(t, 1, root.Len())
		require.Equal(t, "long", root.Child(0).TypeName())
	}
}

func TestParseWhitespaceInsensitive(t *testing.T) {
	rules := []Rule{Pair("if", true, "if ", " ")}
	loose := MustNew(rules, WithWhitespaceInsensitive())
	exact := MustNew(rules)

	for _, input := range []string{"if x y", "if\t  x y"} {
		root, err := loose.Parse(input)
		require.NoError(t, err)
		require.Equal(t, "if", root.Child(0).TypeName(), input)
		require.Equal(t, "x", root.Child(0).InnerText(), input)
		require.Equal(t, input, root.Text())
	}

	root, err := loose.Parse("if\t  x y")
	require.NoError(t, err)
	require.Equal(t, "if\t  ", root.Child(0).Open())

	root, err = exact.Parse("if x y")
	require.NoError(t, err)
	require.Equal(t, "if", root.Child(0).TypeName())

	root, err = exact.Parse("if\t  x y")
	require.NoError(t, err)
	require.Equal(t, 1, root.Len())
	require.True(t, root.Child(0).IsContents())
}

func TestParseUnterminated(t *testing.T) {
	rules := []Rule{
		Pair("scope", true, "{", "}"),
		Pair("paren", true, "(", ")"),
	}

	t.Run("strict", func(t *testing.T) {
		root, err := MustNew(rules).Parse("{ unterminated")
		require.Nil(t, root)
		var ue *UnterminatedError
		require.True(t, errors.As(err, &ue))
		require.Equal(t, "scope", ue.Rule)
		require.Equal(t, 1, ue.Line)
		require.Equal(t, 1, ue.Column)
		require.Contains(t, err.Error(), `"scope"`)
	})

	t.Run("strict reports innermost", func(t *testing.T) {
		_, err := MustNew(rules).Parse("a\n  { (x")
		var ue *UnterminatedError
		require.True(t, errors.As(err, &ue))
		require.Equal(t, "paren", ue.Rule)
		require.Equal(t, 2, ue.Line)
		require.Equal(t, 5, ue.Column)
		require.Equal(t, 6, ue.Offset)
	})

	t.Run("lenient", func(t *testing.T) {
		p := MustNew(rules, WithUnterminated(CloseAtEnd))
		require.Equal(t, CloseAtEnd, p.Policy())

		root, err := p.Parse("{ unterminated")
		require.NoError(t, err)
		scope := root.Child(0)
		require.Equal(t, "scope", scope.TypeName())
		require.Equal(t, "", scope.Close())
		require.Equal(t, "{ unterminated", root.Text())
	})

	t.Run("lenient nested", func(t *testing.T) {
		root, err := MustNew(rules, WithUnterminated(CloseAtEnd)).Parse("{ (x")
		require.NoError(t, err)
		require.Equal(t, []string{"scope"}, childNames(root))
		require.Equal(t, "paren", root.Child(0).Child(1).TypeName())
		require.Equal(t, "{ (x", root.Text())
	})
}

func TestParseEmptyCloseAtEnd(t *testing.T) {
	p := MustNew([]Rule{
		Token("number", `^\d+`),
		{Name: "directive", Open: Literal("#"), Close: Regex(`^$`)},
	})

	root, err := p.Parse("12")
	require.NoError(t, err)
	require.Equal(t, []string{"number"}, childNames(root))
	require.Equal(t, "12", root.Child(0).Open())

	root, err = p.Parse("x #pragma")
	require.NoError(t, err)
	require.Equal(t, []string{text, "directive"}, childNames(root))
	require.Equal(t, "pragma", root.Child(1).InnerText())
}

func TestParseSkipsEmptyOpen(t *testing.T) {
	p := MustNew([]Rule{
		Func("nothing", false, func([]rune) (int, bool) { return 0, true }, nil),
	})
	root, err := p.Parse("abc")
	require.NoError(t, err)
	require.Equal(t, []string{text}, childNames(root))
}

func TestParseMaxDepth(t *testing.T) {
	p := MustNew([]Rule{Pair("paren", true, "(", ")")}, WithMaxDepth(2))

	_, err := p.Parse("((x))")
	require.NoError(t, err)

	_, err = p.Parse("(((x)))")
	require.ErrorIs(t, err, ErrMaxDepth)
	require.Contains(t, err.Error(), "column 3")
}

func TestParseMultiByte(t *testing.T) {
	p := MustNew([]Rule{Pair("quote", false, "«", "»")})

	root, err := p.Parse("héllo «wörld» ✓")
	require.NoError(t, err)
	require.Equal(t, "«wörld»", root.Child(1).Text())
	require.Equal(t, "wörld", root.Child(1).InnerText())
	require.Equal(t, " ✓", root.Child(2).LeafText())

	_, err = p.Parse("ü\n éé«x")
	var ue *UnterminatedError
	require.True(t, errors.As(err, &ue))
	require.Equal(t, 2, ue.Line)
	require.Equal(t, 4, ue.Column)
}

func TestParseRoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"plain text",
		exampleText,
		`- "a\\" { if b {c} } // d` + "\n",
		"日本 { 語 } «x»",
	}

	for _, opts := range [][]Option{nil, {WithWhitespaceInsensitive()}, {WithUnterminated(CloseAtEnd)}} {
		p := MustNew(exampleRules(), opts...)
		for _, input := range inputs {
			root, err := p.Parse(input)
			require.NoError(t, err, input)
			require.Equal(t, input, root.Text())

			rebuilt, err := segment.Inflate(root.Flatten())
			require.NoError(t, err)
			require.True(t, segment.Equal(root, rebuilt))
		}
	}
}

func FuzzParseRoundTrip(f *testing.F) {
	for _, seed := range []string{"", "plain text", exampleText, `- "a\\" { if b {c} } // d`, "{ unterminated", "日本 { 語 } «x»", "if\t  x {}"} {
		f.Add(seed)
	}

	parsers := []*Parser{
		MustNew(exampleRules()),
		MustNew(exampleRules(), WithWhitespaceInsensitive()),
		MustNew(exampleRules(), WithUnterminated(CloseAtEnd)),
		MustNew(exampleRules(), WithWhitespaceInsensitive(), WithUnterminated(CloseAtEnd)),
	}

	f.Fuzz(func(t *testing.T, input string) {
		if !utf8.ValidString(input) {
			t.Skip("scanner input is text")
		}
		for i, p := range parsers {
			root, err := p.Parse(input)
			if err != nil {
				var ue *UnterminatedError
				require.True(t, errors.As(err, &ue), "parser %d: %v", i, err)
				require.NotEqual(t, CloseAtEnd, p.policy, "lenient parser %d failed", i)
				continue
			}
			require.Equal(t, input, root.Text(), "parser %d", i)

			rebuilt, err := segment.Inflate(root.Flatten())
			require.NoError(t, err, "parser %d", i)
			require.True(t, segment.Equal(root, rebuilt), "parser %d", i)
		}
	})
}

func TestParseEmptyInput(t *testing.T) {
	root, err := MustNew(exampleRules()).Parse("")
	require.NoError(t, err)
	require.Equal(t, segment.RootName, root.TypeName())
	require.Zero(t, root.Len())
}

func TestNewConfigErrors(t *testing.T) {
	tests := []struct {
		name     string
		rules    []Rule
		wantRule string
		issue    Issue
	}{
		{name: "empty name", rules: []Rule{Pair("", false, "a", "b")}, issue: IssueEmptyName},
		{name: "reserved", rules: []Rule{Pair(segment.RootName, false, "a", "b")}, wantRule: segment.RootName, issue: IssueReservedName},
		{
			name:     "duplicate",
			rules:    []Rule{Pair("x", false, "a", "b"), Pair("x", false, "c", "d")},
			wantRule: "x",
			issue:    IssueDuplicateName,
		},
		{name: "nil matcher", rules: []Rule{{Name: "x", Open: Literal("a")}}, wantRule: "x", issue: IssueNilMatcher},
		{name: "empty tag", rules: []Rule{Pair("x", false, "", "b")}, wantRule: "x", issue: IssueEmptyTag},
		{name: "unanchored", rules: []Rule{Token("t", "x")}, wantRule: "t", issue: IssueUnanchoredRegex},
		{name: "invalid regex", rules: []Rule{Token("t", "^(")}, wantRule: "t", issue: IssueInvalidRegex},
		{name: "nil predicate", rules: []Rule{Func("f", false, nil, nil)}, wantRule: "f", issue: IssueNilPredicate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.rules)
			require.Nil(t, p)
			var ce *ConfigError
			require.True(t, errors.As(err, &ce), "got %v", err)
			require.Equal(t, tt.issue, ce.Issue)
			require.Equal(t, tt.wantRule, ce.Rule)
		})
	}

	require.Panics(t, func() { MustNew([]Rule{Pair("", false, "a", "b")}) })
}

func TestParserRulesCopy(t *testing.T) {
	p := MustNew(exampleRules())
	rules := p.Rules()
	rules[0].Name = "changed"
	require.Equal(t, "comment", p.Rules()[0].Name)
}
