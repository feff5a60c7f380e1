package lsp

import (
	"net/url"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// uriToPath converts a file:// URI to a file path
func uriToPath(uri string) string {
	if !strings.HasPrefix(uri, "file://") {
		return uri
	}
	u, err := url.Parse(uri)
	if err != nil {
		return strings.TrimPrefix(uri, "file://")
	}
	return u.Path
}

// pathToURI converts a file path to a file:// URI
func pathToURI(path string) string {
	if strings.HasPrefix(path, "file://") {
		return path
	}
	return (&url.URL{Scheme: "file", Path: path}).String()
}

// lineAt returns line n of content, 0-indexed.
func lineAt(content string, n int) (string, bool) {
	if n < 0 {
		return "", false
	}
	for i := 0; i < n; i++ {
		nl := strings.IndexByte(content, '\n')
		if nl < 0 {
			return "", false
		}
		content = content[nl+1:]
	}
	if nl := strings.IndexByte(content, '\n'); nl >= 0 {
		content = content[:nl]
	}
	return content, true
}

// byteOffset converts an LSP character offset, counted in UTF-16 code
// units, to a byte offset into line.
func byteOffset(line string, char int) int {
	units := 0
	for i, r := range line {
		if units >= char {
			return i
		}
		units++
		if r >= 0x10000 {
			units++
		}
	}
	return len(line)
}

// utf16Column converts a column counted in runes to UTF-16 code units.
// Columns past the end of line count one unit per missing rune.
func utf16Column(line string, col int) uint32 {
	units := 0
	for _, r := range line {
		if col <= 0 {
			break
		}
		col--
		if n := utf16.RuneLen(r); n > 0 {
			units += n
		} else {
			units++
		}
	}
	return uint32(units + max(col, 0))
}

// sourceLines hands out lines of indexed files, splitting each file once.
type sourceLines struct {
	content func(path string) string
	files   map[string][]string
}

func newSourceLines(content func(path string) string) *sourceLines {
	return &sourceLines{content: content, files: make(map[string][]string)}
}

// add registers content already at hand for path.
func (sl *sourceLines) add(path, content string) {
	sl.files[path] = strings.Split(content, "\n")
}

// line returns line n of path, 1-indexed.
func (sl *sourceLines) line(path string, n int) string {
	lines, ok := sl.files[path]
	if !ok {
		sl.add(path, sl.content(path))
		lines = sl.files[path]
	}
	if n < 1 || n > len(lines) {
		return ""
	}
	return strings.TrimSuffix(lines[n-1], "\r")
}

// wordBounds returns the identifier under the byte offset char. A cursor on
// a trailing ?, ! or = belongs to the word before it, and a cursor past the
// end of the line to the last word.
func wordBounds(line string, char int) (start, end int) {
	if line == "" || char < 0 {
		return 0, 0
	}
	char = min(char, len(line)-1)

	if isSuffix(line[char]) && char > 0 && isWordChar(line[char-1]) {
		char--
	}

	start = char
	for start > 0 && isWordChar(line[start-1]) {
		start--
	}
	end = char
	for end < len(line) && isWordChar(line[end]) {
		end++
	}
	if start < end && end < len(line) && isSuffix(line[end]) {
		end++
	}
	return start, end
}

// extractWordAt extracts the word at an LSP position in content.
func extractWordAt(content string, line, char int) string {
	text, ok := lineAt(content, line)
	if !ok {
		return ""
	}
	start, end := wordBounds(text, byteOffset(text, char))
	return text[start:end]
}

// extractQualifiedAt extracts the word at the given position together with
// any qualifiers joined to it by sep, e.g. "Outer::Inner" for a cursor on
// Inner. A leading sep is kept as it marks an absolute name.
func extractQualifiedAt(content string, line, char int, sep string) string {
	text, ok := lineAt(content, line)
	if !ok {
		return ""
	}
	start, end := wordBounds(text, byteOffset(text, char))
	if start == end || sep == "" {
		return text[start:end]
	}

	for start >= len(sep) && text[start-len(sep):start] == sep {
		prev := start - len(sep)
		if prev == 0 || !isWordChar(text[prev-1]) {
			start = prev
			break
		}
		start = prev
		for start > 0 && isWordChar(text[start-1]) {
			start--
		}
	}
	return text[start:end]
}

func isSuffix(c byte) bool {
	return c == '?' || c == '!' || c == '='
}

// isWordChar reports whether c can be part of an identifier. Bytes of
// multi-byte runes count, so non-ASCII identifiers stay whole.
func isWordChar(c byte) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') ||
		c == '_' || c >= utf8.RuneSelf
}
