package indexer

import (
	"unicode"
)

const (
	// ChunkerVersion identifies the chunking algorithm; it feeds the index version hash.
	ChunkerVersion = "window-v1"

	// DefaultChunkSize is the maximum chunk length in characters.
	DefaultChunkSize = 2000
	// DefaultChunkOverlap is how far each window reaches back into the previous one.
	DefaultChunkOverlap = 500

	// breakThreshold is the fraction of the window a natural break must lie beyond.
	breakThreshold = 0.5
)

// Span is one chunk together with its position in the source text.
// Start and End are rune offsets; Text is the trimmed content of runes[Start:End].
type Span struct {
	Start int
	End   int
	Text  string
}

// TextChunker splits extracted document text into overlapping windows.
type TextChunker struct {
	ChunkSize int
	Overlap   int
}

// NewTextChunker creates a TextChunker. Non-positive sizes fall back to the defaults.
func NewTextChunker(chunkSize, overlap int) *TextChunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	return &TextChunker{ChunkSize: chunkSize, Overlap: overlap}
}

// Chunk returns the chunk texts of text in document order.
func (c *TextChunker) Chunk(text string) []string {
	return Chunk(text, c.ChunkSize, c.Overlap)
}

// Chunk splits text into windows of at most chunkSize characters that overlap by
// roughly overlap characters. Whitespace-only windows are dropped.
func Chunk(text string, chunkSize, overlap int) []string {
	spans := Split(text, chunkSize, overlap)
	if len(spans) == 0 {
		return nil
	}
	chunks := make([]string, len(spans))
	for i, s := range spans {
		chunks[i] = s.Text
	}
	return chunks
}

// Split is Chunk with positions. A window that does not reach the end of the text
// is cut after the last '.', '\n' or ' ' when that break lies beyond half the window.
// The next window starts overlap characters before the cut; when that would not
// move forward (overlap >= chunkSize, or a break shortened the window that far),
// it starts at the cut instead.
func Split(text string, chunkSize, overlap int) []Span {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}

	runes := []rune(text)
	n := len(runes)
	var spans []Span

	for start := 0; start < n; {
		end := start + chunkSize
		if end >= n {
			end = n
		} else if bp := lastBreak(runes[start:end]); bp >= 0 && float64(bp) > float64(chunkSize)*breakThreshold {
			end = start + bp + 1
		}

		if s, e := trimSpan(runes, start, end); s < e {
			spans = append(spans, Span{Start: s, End: e, Text: string(runes[s:e])})
		}

		if end >= n {
			break
		}

		next := end - overlap
		if overlap >= chunkSize || next <= start {
			next = end
		}
		start = next
	}

	return spans
}

// lastBreak returns the index of the last '.', '\n' or ' ' in window, or -1.
func lastBreak(window []rune) int {
	for i := len(window) - 1; i >= 0; i-- {
		switch window[i] {
		case '.', '\n', ' ':
			return i
		}
	}
	return -1
}

// trimSpan narrows [start, end) to exclude leading and trailing whitespace.
func trimSpan(runes []rune, start, end int) (int, int) {
	for start < end && unicode.IsSpace(runes[start]) {
		start++
	}
	for end > start && unicode.IsSpace(runes[end-1]) {
		end--
	}
	return start, end
}
