// Package jsonreader reads JSON documents with the nested segment scanner.
//
// The scanner only finds the structure: braces, brackets, strings, numbers,
// booleans and dividers. The reader then walks the tree and checks that
// dividers alternate with values the way JSON requires.
package jsonreader

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/jarredhawkins/omniparse/internal/parser"
	"github.com/jarredhawkins/omniparse/internal/segment"
)

// Rule names of the JSON rule set.
const (
	DictRule           = "dict"
	ArrayRule          = "array"
	StringDoubleRule   = "string_double"
	StringSingleRule   = "string_single"
	StringBacktickRule = "string_backtick"
	FloatRule          = "float"
	IntegerRule        = "integer"
	BoolRule           = "bool"
	NullRule           = "null"
	DictDividerRule    = "dict_divider"
	ListDividerRule    = "list_divider"
)

// Rules returns the rule set used to scan JSON. Whitespace leaves are
// expected to be suppressed by the parser that uses it.
func Rules() []parser.Rule {
	return []parser.Rule{
		parser.Pair(DictRule, true, "{", "}"),
		parser.Pair(ArrayRule, true, "[", "]"),
		parser.Escaped(StringDoubleRule, false, `"`, "", `"`, `\`),
		parser.Pair(StringSingleRule, false, "'", "'"),
		parser.Pair(StringBacktickRule, false, "`", "`"),
		wordToken(FloatRule, parser.Regex(`^-?\d+(?:\.\d+(?:[eE][+-]?\d+)?|[eE][+-]?\d+)`)),
		wordToken(IntegerRule, parser.Regex(`^-?\d+`)),
		wordToken(BoolRule, parser.Predicate(matchBool)),
		wordToken(NullRule, parser.Regex(`^null\b`)),
		parser.LiteralToken(DictDividerRule, ":"),
		parser.LiteralToken(ListDividerRule, ","),
	}
}

// wordToken builds a token that does not start inside a word, so bare keys
// such as key1 stay plain content.
func wordToken(name string, open parser.Matcher) parser.Rule {
	return parser.Rule{Name: name, Open: parser.WordStart(open), Close: parser.AutoClose()}
}

// matchBool accepts true and false in any letter case.
func matchBool(rest []rune) (int, bool) {
	for _, word := range []string{"true", "false"} {
		n := len(word)
		if len(rest) < n || !strings.EqualFold(string(rest[:n]), word) {
			continue
		}
		if len(rest) > n && (unicode.IsLetter(rest[n]) || unicode.IsDigit(rest[n]) || rest[n] == '_') {
			continue
		}
		return n, true
	}
	return 0, false
}

var jsonParser = sync.OnceValues(func() (*parser.Parser, error) {
	return parser.New(Rules(), parser.WithoutWhitespaceLeaves(), parser.WithMaxDepth(parser.DefaultMaxDepth))
})

// Parser returns the shared JSON parser.
func Parser() (*parser.Parser, error) {
	return jsonParser()
}

// SemanticError reports a structurally valid scan that is not valid JSON.
type SemanticError struct {
	Msg  string
	Text string // Source text of the offending segment
}

func (e *SemanticError) Error() string {
	return fmt.Sprintf("json: %s in:\n\n%s", e.Msg, e.Text)
}

func semanticError(node *segment.Segment, format string, args ...any) *SemanticError {
	return &SemanticError{Msg: fmt.Sprintf(format, args...), Text: node.Text()}
}

// Parse reads a single JSON value from text.
func Parse(text string) (Value, error) {
	p, err := jsonParser()
	if err != nil {
		return Value{}, err
	}
	root, err := p.Parse(strings.TrimSpace(text))
	if err != nil {
		return Value{}, fmt.Errorf("json: %w", err)
	}
	return FromSegment(root)
}

// FromSegment converts a tree produced by the JSON rule set. The root must
// hold exactly one value.
func FromSegment(root *segment.Segment) (Value, error) {
	switch root.Len() {
	case 0:
		return Value{}, &SemanticError{Msg: "no value", Text: root.Text()}
	case 1:
		return convert(root.Child(0))
	default:
		return Value{}, semanticError(root, "unexpected content after value")
	}
}

func convert(node *segment.Segment) (Value, error) {
	if !node.IsCode() {
		return Value{}, semanticError(node, "unexpected content")
	}

	switch node.TypeName() {
	case DictRule:
		return convertDict(node)
	case ArrayRule:
		return convertArray(node)
	case StringDoubleRule:
		var s string
		if err := json.Unmarshal([]byte(node.Text()), &s); err != nil {
			return Value{}, semanticError(node, "invalid string: %v", err)
		}
		return String(s), nil
	case StringSingleRule, StringBacktickRule:
		return String(node.InnerText()), nil
	case FloatRule:
		f, err := strconv.ParseFloat(node.Text(), 64)
		if err != nil {
			return Value{}, semanticError(node, "invalid number: %v", err)
		}
		return Float(f), nil
	case IntegerRule:
		i, err := strconv.ParseInt(node.Text(), 10, 64)
		if err != nil {
			return Value{}, semanticError(node, "invalid number: %v", err)
		}
		return Integer(i), nil
	case BoolRule:
		return Bool(strings.EqualFold(node.Text(), "true")), nil
	case NullRule:
		return Null(), nil
	default:
		return Value{}, semanticError(node, "unexpected %q", node.Text())
	}
}

// convertDict expects children in groups of key, ':', value, ','.
func convertDict(node *segment.Segment) (Value, error) {
	children := node.Children()
	for i, c := range children {
		switch i % 4 {
		case 1:
			if c.TypeName() != DictDividerRule {
				return Value{}, semanticError(node, "expected ':'")
			}
		case 3:
			if c.TypeName() != ListDividerRule {
				return Value{}, semanticError(node, "expected ','")
			}
		}
	}
	if len(children) > 0 && len(children)%4 != 3 {
		return Value{}, semanticError(node, "unexpected end of object")
	}

	pairs := make([]Pair, 0, (len(children)+1)/4)
	for i := 0; i < len(children); i += 4 {
		key, err := dictKey(children[i])
		if err != nil {
			return Value{}, err
		}
		value, err := convert(children[i+2])
		if err != nil {
			return Value{}, err
		}
		pairs = append(pairs, Pair{Key: key, Value: value})
	}
	return Dict(pairs...), nil
}

// dictKey accepts any scalar or an unquoted word.
func dictKey(node *segment.Segment) (string, error) {
	if !node.IsCode() {
		key := strings.TrimSpace(node.LeafText())
		if key == "" {
			return "", semanticError(node, "empty key")
		}
		return key, nil
	}
	v, err := convert(node)
	if err != nil {
		return "", err
	}
	switch v.Kind {
	case KindDict, KindArray:
		return "", semanticError(node, "key must be a scalar")
	case KindString:
		return v.Str, nil
	default:
		return node.Text(), nil
	}
}

// convertArray expects values separated by ','.
func convertArray(node *segment.Segment) (Value, error) {
	children := node.Children()
	for i := 1; i < len(children); i += 2 {
		if children[i].TypeName() != ListDividerRule {
			return Value{}, semanticError(node, "expected ','")
		}
	}
	if len(children) > 0 && len(children)%2 != 1 {
		return Value{}, semanticError(node, "trailing ','")
	}

	items := make([]Value, 0, (len(children)+1)/2)
	for i := 0; i < len(children); i += 2 {
		v, err := convert(children[i])
		if err != nil {
			return Value{}, err
		}
		items = append(items, v)
	}
	return Array(items...), nil
}
