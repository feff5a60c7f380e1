package lang

import "github.com/jarredhawkins/omniparse/internal/parser"

// CLike returns a language for brace-delimited languages with C comments:
// C, C++, Java, C#, JavaScript, TypeScript and Go.
func CLike() *Language {
	return &Language{
		Name:       "clike",
		Extensions: []string{".c", ".h", ".cc", ".cpp", ".hpp", ".java", ".cs", ".js", ".mjs", ".ts", ".go"},
		Rules: []parser.Rule{
			{Name: "line_comment", Open: parser.Literal("//"), Close: LineEnd()},
			parser.Pair("block_comment", false, "/*", "*/"),
			parser.Escaped("string", false, `"`, "", `"`, `\`),
			parser.Escaped("char", false, "'", "", "'", `\`),
			parser.Pair("raw_string", false, "`", "`"),
			parser.Pair("scope", true, "{", "}"),
			parser.Pair("paren", true, "(", ")"),
			parser.Pair("bracket", true, "[", "]"),
		},
	}
}
