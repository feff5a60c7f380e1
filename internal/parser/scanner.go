package parser

import (
	"fmt"

	"github.com/jarredhawkins/omniparse/internal/segment"
)

// frame is a segment that has been opened and not yet closed. The root
// frame has no rule.
type frame struct {
	rule      *Rule
	openStart int
	open      string
	children  []*segment.Segment
}

// scanState holds the cursor state of a single Parse call.
type scanState struct {
	parser *Parser
	in     *Input

	cursor    int // Current scan offset
	unmatched int // Start of the pending run of plain content
	stack     []*frame
}

func newScanState(p *Parser, text string) *scanState {
	return &scanState{
		parser: p,
		in:     NewInput(text),
		stack:  []*frame{{}},
	}
}

func (s *scanState) top() *frame {
	return s.stack[len(s.stack)-1]
}

// run performs the scan. Nesting is tracked on an explicit stack of frames
// so deep input cannot exhaust the goroutine stack.
func (s *scanState) run() (*segment.Segment, error) {
	opts := s.parser.matchOpts
	end := s.in.Len()

	for s.cursor < end {
		top := s.top()

		if top.rule != nil {
			if n, ok := top.rule.Close.Match(s.in, s.cursor, opts); ok {
				s.closeTop(n)
				continue
			}
		}

		if top.rule == nil || top.rule.SubParse {
			if rule, n, ok := s.matchOpen(); ok {
				if err := s.openFrame(rule, n); err != nil {
					return nil, err
				}
				continue
			}
		}

		s.cursor++
	}

	for len(s.stack) > 1 {
		top := s.top()
		// Close matchers that accept an empty match still close normally.
		if n, ok := top.rule.Close.Match(s.in, s.cursor, opts); ok {
			s.closeTop(n)
			continue
		}
		if s.parser.policy == FailUnterminated {
			pos := segment.NewLineIndex(s.in.text).Position(top.openStart)
			return nil, &UnterminatedError{
				Rule:   top.rule.Name,
				Offset: top.openStart,
				Line:   pos.Line,
				Column: pos.Column,
			}
		}
		s.closeTop(0)
	}

	root := s.stack[0]
	s.flush(root)
	return segment.NewCode(segment.RootName, "", root.children, ""), nil
}

// matchOpen tries every open matcher in declaration order. Empty matches
// are ignored because they would never advance the cursor.
func (s *scanState) matchOpen() (*Rule, int, bool) {
	for i := range s.parser.rules {
		rule := &s.parser.rules[i]
		if n, ok := rule.Open.Match(s.in, s.cursor, s.parser.matchOpts); ok && n > 0 {
			return rule, n, true
		}
	}
	return nil, 0, false
}

func (s *scanState) openFrame(rule *Rule, n int) error {
	if limit := s.parser.maxDepth; limit > 0 && len(s.stack) > limit {
		pos := segment.NewLineIndex(s.in.text).Position(s.cursor)
		return fmt.Errorf("%w: %q at line %d, column %d nests deeper than %d", ErrMaxDepth, rule.Name, pos.Line, pos.Column, limit)
	}
	s.flush(s.top())
	s.stack = append(s.stack, &frame{
		rule:      rule,
		openStart: s.cursor,
		open:      s.in.Slice(s.cursor, s.cursor+n),
	})
	s.cursor += n
	s.unmatched = s.cursor
	return nil
}

// closeTop ends the innermost frame with a close tag of n runes at the
// cursor and attaches the finished segment to its parent.
func (s *scanState) closeTop(n int) {
	top := s.top()
	s.flush(top)
	closeTag := s.in.Slice(s.cursor, s.cursor+n)
	s.cursor += n
	s.unmatched = s.cursor

	s.stack = s.stack[:len(s.stack)-1]
	parent := s.top()
	parent.children = append(parent.children, segment.NewCode(top.rule.Name, top.open, top.children, closeTag))
}

// flush emits the pending run of plain content as a leaf of f.
func (s *scanState) flush(f *frame) {
	if s.unmatched == s.cursor {
		return
	}
	text := s.in.Slice(s.unmatched, s.cursor)
	s.unmatched = s.cursor
	if s.parser.skipWhitespace && segment.IsWhitespace(text) {
		return
	}
	f.children = append(f.children, segment.NewContents(text))
}
