package parser

// Input is the text being scanned. Cursors are rune offsets, so multi-byte
// characters always count as one position.
type Input struct {
	text    string
	runes   []rune
	offsets []int // byte offset of every rune, followed by len(text)
}

// NewInput prepares text for matching.
func NewInput(text string) *Input {
	in := &Input{
		text:    text,
		runes:   make([]rune, 0, len(text)),
		offsets: make([]int, 0, len(text)+1),
	}
	for i, r := range text {
		in.runes = append(in.runes, r)
		in.offsets = append(in.offsets, i)
	}
	in.offsets = append(in.offsets, len(text))
	return in
}

// Len returns the number of runes.
func (in *Input) Len() int { return len(in.runes) }

// Runes returns the decoded text. Callers must not modify it.
func (in *Input) Runes() []rune { return in.runes }

// Slice returns the text between two rune offsets.
func (in *Input) Slice(from, to int) string {
	return in.text[in.offsets[from]:in.offsets[to]]
}

// Tail returns the text from a rune offset to the end.
func (in *Input) Tail(from int) string {
	return in.text[in.offsets[from]:]
}
