package parser

import (
	"errors"

	"github.com/jarredhawkins/omniparse/internal/segment"
)

// Rule pairs an open and a close matcher under a name. The order of rules
// in a set is their priority: when several open matchers match at the same
// cursor, the rule declared first wins.
type Rule struct {
	Name string

	// SubParse allows other rules to open inside this segment. Without it
	// everything up to the close tag is plain content.
	SubParse bool

	Open  Matcher
	Close Matcher
}

// Pair builds a rule from plain literal tags.
func Pair(name string, subParse bool, open, close string) Rule {
	return Rule{Name: name, SubParse: subParse, Open: Literal(open), Close: Literal(close)}
}

// Escaped builds a rule from literal tags with escape sequences. An empty
// escape disables escaping for that tag.
func Escaped(name string, subParse bool, open, openEscape, close, closeEscape string) Rule {
	return Rule{
		Name:     name,
		SubParse: subParse,
		Open:     EscapedLiteral(open, openEscape),
		Close:    EscapedLiteral(close, closeEscape),
	}
}

// Func builds a rule from predicate functions. A nil close closes the
// segment right after its open tag.
func Func(name string, subParse bool, open, close PredicateFunc) Rule {
	r := Rule{Name: name, SubParse: subParse, Open: Predicate(open), Close: AutoClose()}
	if close != nil {
		r.Close = Predicate(close)
	}
	return r
}

// Token builds a non-nesting rule whose segment is exactly the text matched
// by an anchored regular expression.
func Token(name, pattern string) Rule {
	return Rule{Name: name, Open: Regex(pattern), Close: AutoClose()}
}

// LiteralToken builds a non-nesting rule whose segment is exactly tag.
func LiteralToken(name, tag string) Rule {
	return Rule{Name: name, Open: Literal(tag), Close: AutoClose()}
}

func isReserved(name string) bool {
	switch name {
	case segment.RootName, segment.UnmatchedName, segment.UnmatchedWhitespaceName:
		return true
	}
	return false
}

// validateRules checks names and matchers of a rule set.
func validateRules(rules []Rule) error {
	seen := make(map[string]struct{}, len(rules))
	for _, r := range rules {
		if r.Name == "" {
			return newConfigError(IssueEmptyName, "rule name must not be empty")
		}
		if isReserved(r.Name) {
			return &ConfigError{Issue: IssueReservedName, Rule: r.Name, Err: errors.New("name is reserved for generated segments")}
		}
		if _, ok := seen[r.Name]; ok {
			return &ConfigError{Issue: IssueDuplicateName, Rule: r.Name, Err: errors.New("name already used by an earlier rule")}
		}
		seen[r.Name] = struct{}{}

		for _, m := range []Matcher{r.Open, r.Close} {
			if m == nil {
				return &ConfigError{Issue: IssueNilMatcher, Rule: r.Name, Err: errors.New("open and close matchers are required")}
			}
			if err := m.Validate(); err != nil {
				var ce *ConfigError
				if errors.As(err, &ce) {
					ce.Rule = r.Name
					return ce
				}
				return &ConfigError{Issue: IssueInvalidMatcher, Rule: r.Name, Err: err}
			}
		}
	}
	return nil
}
