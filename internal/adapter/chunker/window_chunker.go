package chunker

import "strings"

const (
	DefaultSize    = 800
	DefaultOverlap = 120
)

// WindowChunker splits text into fixed-size, overlapping character windows.
// It has no notion of sentences or words: output must stay byte-for-byte
// stable for a given (text, size, overlap).
type WindowChunker struct {
	size    int
	overlap int
}

func NewWindowChunker(size, overlap int) *WindowChunker {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 {
		overlap = 0
	}
	return &WindowChunker{
		size:    size,
		overlap: overlap,
	}
}

// NewDefaultChunker returns a chunker with DefaultSize and DefaultOverlap.
func NewDefaultChunker() *WindowChunker {
	return NewWindowChunker(DefaultSize, DefaultOverlap)
}

func (c *WindowChunker) Chunk(text string) []string {
	return Chunk(text, c.size, c.overlap)
}

// Size returns the window size in characters.
func (c *WindowChunker) Size() int { return c.size }

// Overlap returns the number of characters shared by adjacent windows.
func (c *WindowChunker) Overlap() int { return c.overlap }

// Chunk collapses whitespace runs in text to single spaces and cuts the
// result into windows of size characters, each starting max(1, size-overlap)
// characters after the previous one. Blank windows are dropped.
func Chunk(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 {
		overlap = 0
	}

	normalized := []rune(strings.Join(strings.Fields(text), " "))
	step := size - overlap
	if step < 1 {
		step = 1
	}

	var chunks []string
	for i := 0; i < len(normalized); i += step {
		end := i + size
		if end > len(normalized) {
			end = len(normalized)
		}
		window := string(normalized[i:end])
		if strings.TrimSpace(window) == "" {
			continue
		}
		chunks = append(chunks, window)
	}

	return chunks
}
