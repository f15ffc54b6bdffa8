// Package chunking splits article bodies into overlapping fixed-size windows for indexing.
package chunking

import "strings"

// Default window parameters, in characters.
const (
	DefaultSize    = 900
	DefaultOverlap = 150
)

// Options configures the window size and overlap.
type Options struct {
	Size    int
	Overlap int
}

// DefaultOptions returns the default window parameters.
func DefaultOptions() Options {
	return Options{Size: DefaultSize, Overlap: DefaultOverlap}
}

// Split chunks text with o's parameters.
func (o Options) Split(text string) []string {
	return Chunk(text, o.Size, o.Overlap)
}

// Chunk splits text into windows of size characters, each starting size-overlap
// characters after the previous one (at least one). Whitespace-only input yields no chunks.
func Chunk(text string, size, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" || size <= 0 {
		return []string{}
	}

	step := max(size-overlap, 1)
	runes := []rune(text)
	chunks := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := min(start+size, len(runes))
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
