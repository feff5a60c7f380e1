package index

import (
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/jarredhawkins/omniparse/internal/segment"
)

// TrigramIndex provides text search across indexed files. Every match is
// tagged with the innermost segment that holds it, so callers can tell
// code from comments or strings.
type TrigramIndex struct {
	mu sync.RWMutex

	// Inverted index: trigram -> set of file paths
	trigrams map[string]map[string]struct{}

	files map[string]*indexedText
}

type indexedText struct {
	content string
	spans   []segment.Span // Matched segments only, in pre-order
}

// NewTrigramIndex creates a new trigram index
func NewTrigramIndex() *TrigramIndex {
	return &TrigramIndex{
		trigrams: make(map[string]map[string]struct{}),
		files:    make(map[string]*indexedText),
	}
}

// AddFile indexes the text of a parsed file
func (t *TrigramIndex) AddFile(path string, root *segment.Segment) {
	text := &indexedText{content: root.Text()}
	for _, span := range root.Spans() {
		if span.Node.IsCode() && span.Node != root {
			text.spans = append(text.spans, span)
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.remove(path)
	t.files[path] = text
	content := text.content
	for i := 0; i <= len(content)-3; i++ {
		tri := content[i : i+3]
		if t.trigrams[tri] == nil {
			t.trigrams[tri] = make(map[string]struct{})
		}
		t.trigrams[tri][path] = struct{}{}
	}
}

// RemoveFile removes a file from the index
func (t *TrigramIndex) RemoveFile(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.remove(path)
}

func (t *TrigramIndex) remove(path string) {
	text, ok := t.files[path]
	if !ok {
		return
	}
	delete(t.files, path)

	content := text.content
	for i := 0; i <= len(content)-3; i++ {
		tri := content[i : i+3]
		if files, ok := t.trigrams[tri]; ok {
			delete(files, path)
			if len(files) == 0 {
				delete(t.trigrams, tri)
			}
		}
	}
}

// Search finds whole-word occurrences of pattern, ordered by file, line
// and column.
func (t *TrigramIndex) Search(pattern string) []*Reference {
	if pattern == "" {
		return nil
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	// Find candidate files using trigrams
	candidates := t.findCandidates(pattern)
	if len(candidates) == 0 {
		return nil
	}

	pinfo := buildPatternInfo(pattern)
	var refs []*Reference
	for path := range candidates {
		text, ok := t.files[path]
		if !ok {
			continue
		}
		refs = append(refs, text.search(path, pinfo, utf8.RuneCountInString(pattern))...)
	}

	sort.Slice(refs, func(i, j int) bool {
		a, b := refs[i], refs[j]
		if a.FilePath != b.FilePath {
			return a.FilePath < b.FilePath
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
	return refs
}

// SearchFile searches for references in a single indexed file, ordered by
// line and column
func (t *TrigramIndex) SearchFile(path, pattern string) []*Reference {
	if pattern == "" {
		return nil
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	text, ok := t.files[path]
	if !ok {
		return nil
	}
	return text.search(path, buildPatternInfo(pattern), utf8.RuneCountInString(pattern))
}

// findCandidates uses trigram intersection to find candidate files
func (t *TrigramIndex) findCandidates(pattern string) map[string]struct{} {
	if len(pattern) < 3 {
		// Too short for trigrams, return all files
		result := make(map[string]struct{}, len(t.files))
		for path := range t.files {
			result[path] = struct{}{}
		}
		return result
	}

	var candidates map[string]struct{}
	for i := 0; i <= len(pattern)-3; i++ {
		files, ok := t.trigrams[pattern[i:i+3]]
		if !ok {
			// Trigram not found, no matches
			return nil
		}

		if candidates == nil {
			candidates = make(map[string]struct{}, len(files))
			for path := range files {
				candidates[path] = struct{}{}
			}
		} else {
			for path := range candidates {
				if _, ok := files[path]; !ok {
					delete(candidates, path)
				}
			}
		}

		if len(candidates) == 0 {
			return nil
		}
	}
	return candidates
}

func (text *indexedText) search(path string, pinfo patternInfo, patternLen int) []*Reference {
	var refs []*Reference
	lineStart := 0 // rune offset of the current line

	for i, line := range strings.Split(text.content, "\n") {
		for _, match := range pinfo.regex.FindAllStringIndex(line, -1) {
			column := utf8.RuneCountInString(line[:match[0]])
			length := utf8.RuneCountInString(line[match[0]:match[1]])
			// If pattern ends with ? ! =, the regex includes an extra char - use original length
			if pinfo.endsWithSpecial {
				length = patternLen
			}
			refs = append(refs, &Reference{
				FilePath: path,
				Line:     i + 1,
				Column:   column,
				Length:   length,
				LineText: strings.TrimSuffix(line, "\r"),
				Segment:  text.segmentAt(lineStart + column),
			})
		}
		lineStart += utf8.RuneCountInString(line) + 1
	}
	return refs
}

// segmentAt returns the rule name of the innermost segment holding the
// rune at offset, or the root name when no segment does.
func (text *indexedText) segmentAt(offset int) string {
	name := segment.RootName
	for _, span := range text.spans {
		if span.Start > offset {
			break
		}
		if offset < span.End {
			// Pre-order: a later span that still contains offset is nested deeper.
			name = span.Node.TypeName()
		}
	}
	return name
}

// patternInfo tracks if a pattern ends with a method suffix
type patternInfo struct {
	regex           *regexp.Regexp
	endsWithSpecial bool // ends with ? ! or =
}

// buildPatternInfo creates a regex that properly handles method names
// ending in ? ! or = which can't use \b at the end
func buildPatternInfo(pattern string) patternInfo {
	escaped := regexp.QuoteMeta(pattern)
	if pattern != "" {
		switch pattern[len(pattern)-1] {
		case '?', '!', '=':
			return patternInfo{
				regex:           regexp.MustCompile(`\b` + escaped + `(?:[^a-zA-Z0-9_]|$)`),
				endsWithSpecial: true,
			}
		}
	}
	return patternInfo{regex: regexp.MustCompile(`\b` + escaped + `\b`)}
}
