package parser

import (
	"errors"
	"fmt"
)

// Issue is the kind of a configuration problem.
type Issue int

const (
	IssueEmptyName Issue = iota + 1
	IssueDuplicateName
	IssueReservedName
	IssueNilMatcher
	IssueEmptyTag
	IssueInvalidRegex
	IssueUnanchoredRegex
	IssueNilPredicate
	IssueInvalidMatcher
)

func (i Issue) String() string {
	switch i {
	case IssueEmptyName:
		return "empty rule name"
	case IssueDuplicateName:
		return "duplicate rule name"
	case IssueReservedName:
		return "reserved rule name"
	case IssueNilMatcher:
		return "missing matcher"
	case IssueEmptyTag:
		return "empty literal tag"
	case IssueInvalidRegex:
		return "invalid regular expression"
	case IssueUnanchoredRegex:
		return "regular expression not anchored at cursor"
	case IssueNilPredicate:
		return "missing predicate"
	case IssueInvalidMatcher:
		return "invalid matcher"
	default:
		return fmt.Sprintf("issue(%d)", int(i))
	}
}

// ConfigError is returned by New when a rule set cannot be used.
type ConfigError struct {
	Issue Issue  // Kind of problem
	Rule  string // Name of the offending rule, if known
	Err   error  // Underlying cause
}

func (e *ConfigError) Error() string {
	if e.Rule == "" {
		return fmt.Sprintf("%s: %v", e.Issue, e.Err)
	}
	return fmt.Sprintf("rule %q: %s: %v", e.Rule, e.Issue, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func newConfigError(issue Issue, format string, args ...any) *ConfigError {
	return &ConfigError{Issue: issue, Err: fmt.Errorf(format, args...)}
}

// UnterminatedError reports a segment whose close tag was never found.
// Line and Column are 1-based and locate the open tag.
type UnterminatedError struct {
	Rule   string
	Offset int // Rune offset of the open tag
	Line   int
	Column int
}

func (e *UnterminatedError) Error() string {
	return fmt.Sprintf("unterminated segment %q opened at line %d, column %d", e.Rule, e.Line, e.Column)
}

// ErrMaxDepth is returned when nesting exceeds the configured maximum.
var ErrMaxDepth = errors.New("maximum nesting depth exceeded")
