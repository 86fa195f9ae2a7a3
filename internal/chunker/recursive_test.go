package chunker

import (
	"math/rand/v2"
	"strings"
	"testing"
	"unicode/utf8"
)

func mustSplitter(t *testing.T, size, overlap int) *Splitter {
	t.Helper()
	s, err := New(size, overlap)
	if err != nil {
		t.Fatalf("New(%d, %d): %v", size, overlap, err)
	}
	return s
}

// reconstruct joins chunks dropping each chunk's overlap with its predecessor.
func reconstruct(t *testing.T, chunks []Chunk, overlap int) string {
	t.Helper()
	var b strings.Builder
	prevStart, prevEnd := -1, 0
	for i, c := range chunks {
		if c.Index != i {
			t.Fatalf("chunk %d has index %d", i, c.Index)
		}
		if c.Start > prevEnd {
			t.Fatalf("chunk %d starts at %d, leaving a gap after %d", i, c.Start, prevEnd)
		}
		if c.Start <= prevStart {
			t.Fatalf("chunk %d does not advance: start %d, previous start %d", i, c.Start, prevStart)
		}
		if got := prevEnd - c.Start; got > overlap {
			t.Fatalf("chunk %d overlaps by %d, max %d", i, got, overlap)
		}
		runes := []rune(c.Text)
		if len(runes) != c.End-c.Start {
			t.Fatalf("chunk %d text has %d runes, offsets span %d", i, len(runes), c.End-c.Start)
		}
		b.WriteString(string(runes[prevEnd-c.Start:]))
		prevStart, prevEnd = c.Start, c.End
	}
	return b.String()
}

func TestNewRejectsBadParameters(t *testing.T) {
	tests := []struct {
		name          string
		size, overlap int
	}{
		{name: "zero size", size: 0, overlap: 0},
		{name: "negative overlap", size: 10, overlap: -1},
		{name: "overlap equals size", size: 10, overlap: 10},
		{name: "overlap exceeds size", size: 10, overlap: 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.size, tt.overlap); err == nil {
				t.Errorf("New(%d, %d) succeeded, want error", tt.size, tt.overlap)
			}
		})
	}
}

func TestChunksEmptyInput(t *testing.T) {
	s := mustSplitter(t, 100, 20)
	for _, text := range []string{"", "   ", "\n\n\t \n"} {
		if got := s.Split(text); len(got) != 0 {
			t.Errorf("Split(%q) returned %d chunks, want 0", text, len(got))
		}
	}
}

func TestChunksShortTextIsSingleChunk(t *testing.T) {
	s := mustSplitter(t, 100, 20)
	text := "  short transcript  "
	got := s.Split(text)
	if len(got) != 1 {
		t.Fatalf("got %d chunks, want 1", len(got))
	}
	if got[0].Text != text {
		t.Errorf("chunk text = %q, want %q", got[0].Text, text)
	}
}

func TestChunksPreferParagraphBreak(t *testing.T) {
	s := mustSplitter(t, 50, 10)
	para := strings.Repeat("a", 30) + "\n\n"
	text := para + strings.Repeat("b ", 20)

	got := s.Split(text)
	if len(got) < 2 {
		t.Fatalf("got %d chunks, want at least 2", len(got))
	}
	if got[0].Text != para {
		t.Errorf("first chunk = %q, want %q", got[0].Text, para)
	}
}

func TestChunksPreferLineBreakOverSpace(t *testing.T) {
	s := mustSplitter(t, 30, 5)
	line := "one two three four\n"
	text := line + "five six seven eight nine ten eleven"

	got := s.Split(text)
	if got[0].Text != line {
		t.Errorf("first chunk = %q, want %q", got[0].Text, line)
	}
}

func TestChunksSplitOnWords(t *testing.T) {
	s := mustSplitter(t, 12, 0)
	got := s.Split("alpha beta gamma delta epsilon")
	for i, c := range got[:len(got)-1] {
		if !strings.HasSuffix(c.Text, " ") {
			t.Errorf("chunk %d = %q, want to end on a word boundary", i, c.Text)
		}
	}
	if got[0].Text != "alpha beta " {
		t.Errorf("first chunk = %q, want %q", got[0].Text, "alpha beta ")
	}
}

func TestChunksRawCharacterFallback(t *testing.T) {
	s := mustSplitter(t, 10, 3)
	text := strings.Repeat("x", 25)
	got := s.Split(text)
	if len(got) != 4 {
		t.Fatalf("got %d chunks, want 4", len(got))
	}
	for i, c := range got {
		if n := utf8.RuneCountInString(c.Text); n > 10 {
			t.Errorf("chunk %d has %d runes, want <= 10", i, n)
		}
	}
	if rebuilt := reconstruct(t, got, 3); rebuilt != text {
		t.Errorf("reconstructed %q, want %q", rebuilt, text)
	}
}

func TestChunksSentenceExample(t *testing.T) {
	s := mustSplitter(t, 22, 4)
	got := s.Split("Cats are mammals. Dogs are mammals too.")
	want := []string{"Cats are mammals. ", "Dogs are mammals too."}
	if len(got) != len(want) {
		t.Fatalf("got %d chunks, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Text != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, got[i].Text, want[i])
		}
	}
}

func TestChunksIsRestartable(t *testing.T) {
	s := mustSplitter(t, 16, 4)
	seq := s.Chunks("the quick brown fox jumps over the lazy dog again and again")

	var first, second []string
	for c := range seq {
		first = append(first, c.Text)
	}
	for c := range seq {
		second = append(second, c.Text)
	}
	if strings.Join(first, "|") != strings.Join(second, "|") {
		t.Errorf("second pass differs:\n first: %q\nsecond: %q", first, second)
	}
}

func TestChunksStopsEarly(t *testing.T) {
	s := mustSplitter(t, 5, 0)
	seen := 0
	for range s.Chunks(strings.Repeat("word ", 50)) {
		seen++
		if seen == 2 {
			break
		}
	}
	if seen != 2 {
		t.Errorf("saw %d chunks, want 2", seen)
	}
}

func randomTranscript(r *rand.Rand, words int) string {
	vocab := []string{"the", "video", "explains", "how", "café", "straße", "漢字", "a",
		"supercalifragilisticexpialidocious", "x", "lecture", "and", "then"}
	seps := []string{" ", " ", " ", " ", "\n", "\n\n", "  ", ""}
	var b strings.Builder
	for i := 0; i < words; i++ {
		b.WriteString(vocab[r.IntN(len(vocab))])
		b.WriteString(seps[r.IntN(len(seps))])
	}
	return b.String()
}

func TestChunksReconstructAndBound(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	params := []struct{ size, overlap int }{
		{size: 1000, overlap: 200},
		{size: 50, overlap: 10},
		{size: 20, overlap: 19},
		{size: 8, overlap: 0},
		{size: 1, overlap: 0},
	}
	for _, p := range params {
		s := mustSplitter(t, p.size, p.overlap)
		for trial := 0; trial < 25; trial++ {
			text := randomTranscript(r, 10+r.IntN(400))
			chunks := s.Split(text)
			if strings.TrimSpace(text) == "" {
				continue
			}
			for i, c := range chunks {
				if n := utf8.RuneCountInString(c.Text); n > p.size {
					t.Fatalf("size=%d overlap=%d: chunk %d has %d runes", p.size, p.overlap, i, n)
				}
			}
			if rebuilt := reconstruct(t, chunks, p.overlap); rebuilt != text {
				t.Fatalf("size=%d overlap=%d: reconstruction mismatch\n got: %q\nwant: %q",
					p.size, p.overlap, rebuilt, text)
			}
		}
	}
}
