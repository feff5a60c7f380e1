package parser

import (
	"slices"

	"github.com/jarredhawkins/omniparse/internal/segment"
)

// UnterminatedPolicy decides what happens to segments still open at the
// end of the input.
type UnterminatedPolicy int

const (
	// FailUnterminated makes Parse return an *UnterminatedError.
	FailUnterminated UnterminatedPolicy = iota
	// CloseAtEnd closes open segments at the end of the input with an
	// empty close tag.
	CloseAtEnd
)

func (p UnterminatedPolicy) String() string {
	if p == CloseAtEnd {
		return "close-at-end"
	}
	return "fail"
}

// Option configures a Parser.
type Option func(*Parser)

// WithWhitespaceInsensitive lets whitespace in literal tags match any run
// of whitespace in the input.
func WithWhitespaceInsensitive() Option {
	return func(p *Parser) {
		p.matchOpts.WhitespaceInsensitive = true
	}
}

// WithoutWhitespaceLeaves drops unmatched runs made only of whitespace.
func WithoutWhitespaceLeaves() Option {
	return func(p *Parser) {
		p.skipWhitespace = true
	}
}

// WithUnterminated sets the policy for segments left open at end of input.
func WithUnterminated(policy UnterminatedPolicy) Option {
	return func(p *Parser) {
		p.policy = policy
	}
}

// DefaultMaxDepth is the nesting bound used for input that is not trusted.
// Tree walks are recursive, so deeper documents would exhaust the stack.
const DefaultMaxDepth = 10000

// WithMaxDepth bounds the nesting depth of matched segments. Zero means
// unbounded.
func WithMaxDepth(depth int) Option {
	return func(p *Parser) {
		p.maxDepth = depth
	}
}

// Parser turns text into a segment tree using an ordered rule set. It is
// immutable once built and safe for concurrent use.
type Parser struct {
	rules          []Rule
	matchOpts      MatchOptions
	skipWhitespace bool
	policy         UnterminatedPolicy
	maxDepth       int
}

// New validates rules and builds a parser. On error no parser is returned.
func New(rules []Rule, opts ...Option) (*Parser, error) {
	if err := validateRules(rules); err != nil {
		return nil, err
	}
	p := &Parser{rules: slices.Clone(rules)}
	for _, opt := range opts {
		opt(p)
	}
	if p.maxDepth < 0 {
		p.maxDepth = 0
	}
	return p, nil
}

// MustNew is like New but panics on configuration errors. It is meant for
// rule sets fixed at compile time.
func MustNew(rules []Rule, opts ...Option) *Parser {
	p, err := New(rules, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

// Rules returns a copy of the rule set in priority order.
func (p *Parser) Rules() []Rule {
	return slices.Clone(p.rules)
}

// Policy returns the unterminated segment policy.
func (p *Parser) Policy() UnterminatedPolicy {
	return p.policy
}

// Parse scans text and returns the root segment. The root is a code segment
// named segment.RootName with empty tags whose text equals the input.
func (p *Parser) Parse(text string) (*segment.Segment, error) {
	s := newScanState(p, text)
	return s.run()
}
