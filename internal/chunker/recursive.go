package chunker

import (
	"fmt"
	"iter"
	"strings"
	"unicode"
)

// DefaultSeparators lists split boundaries in priority order: paragraph, line, word.
// Raw character splitting is the implicit last resort.
var DefaultSeparators = []string{"\n\n", "\n", " "}

// Chunk is a contiguous slice of the source text.
// Start and End are rune offsets into the source; Text is exactly source[Start:End].
type Chunk struct {
	Index int
	Text  string
	Start int
	End   int
}

// Splitter cuts text into size-bounded chunks that overlap by at most Overlap runes.
type Splitter struct {
	size       int
	overlap    int
	separators [][]rune
}

// New creates a Splitter with the default separators.
// size must be positive and overlap must satisfy 0 <= overlap < size.
func New(size, overlap int) (*Splitter, error) {
	return NewWithSeparators(size, overlap, DefaultSeparators)
}

// NewWithSeparators creates a Splitter that tries separators in the given order.
func NewWithSeparators(size, overlap int, separators []string) (*Splitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	seps := make([][]rune, 0, len(separators))
	for _, sep := range separators {
		if sep != "" {
			seps = append(seps, []rune(sep))
		}
	}
	return &Splitter{size: size, overlap: overlap, separators: seps}, nil
}

// Size returns the maximum chunk length in runes.
func (s *Splitter) Size() int { return s.size }

// Overlap returns the maximum overlap between consecutive chunks in runes.
func (s *Splitter) Overlap() int { return s.overlap }

// Chunks returns a lazy sequence over the chunks of text. Each range over the
// sequence starts from the beginning. Whitespace-only text yields nothing.
func (s *Splitter) Chunks(text string) iter.Seq[Chunk] {
	return func(yield func(Chunk) bool) {
		if strings.TrimSpace(text) == "" {
			return
		}
		runes := []rune(text)
		n := len(runes)
		start, index := 0, 0
		for start < n {
			end := n
			if n-start > s.size {
				end = s.splitPoint(runes, start)
			}
			if !yield(Chunk{Index: index, Text: string(runes[start:end]), Start: start, End: end}) {
				return
			}
			if end == n {
				return
			}
			start = s.nextStart(runes, start, end)
			index++
		}
	}
}

// Split collects every chunk of text.
func (s *Splitter) Split(text string) []Chunk {
	var chunks []Chunk
	for c := range s.Chunks(text) {
		chunks = append(chunks, c)
	}
	return chunks
}

// splitPoint picks the end of the chunk starting at start. The chunk is kept
// longer than the overlap so the next chunk always advances.
func (s *Splitter) splitPoint(runes []rune, start int) int {
	limit := start + s.size
	minEnd := start + s.overlap + 1
	for _, sep := range s.separators {
		for p := limit; p >= minEnd; p-- {
			if p-len(sep) < start {
				break
			}
			if hasSuffixAt(runes, p, sep) {
				return p
			}
		}
	}
	return limit
}

// nextStart picks where the chunk after [start, end) begins. The overlap begins
// at a word start when the overlap window has whitespace; without any word
// start it is dropped. Text with no whitespace at all overlaps on raw runes.
func (s *Splitter) nextStart(runes []rune, start, end int) int {
	if end-start <= s.overlap || s.overlap == 0 {
		return end
	}
	lo := end - s.overlap
	sawSpace := false
	for i := lo; i < end; i++ {
		if unicode.IsSpace(runes[i]) {
			sawSpace = true
			continue
		}
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	if sawSpace {
		return end
	}
	return lo
}

func hasSuffixAt(runes []rune, p int, sep []rune) bool {
	off := p - len(sep)
	for i, r := range sep {
		if runes[off+i] != r {
			return false
		}
	}
	return true
}
