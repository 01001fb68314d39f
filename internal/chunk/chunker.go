package chunk

import (
	"fmt"
	"strings"

	"github.com/askdesk/backend/internal/domain"
)

const (
	DefaultSize    = 800
	DefaultOverlap = 150
)

// Chunker splits document text into retrievable units. Documents that
// contain markdown-style headings are split at the headings, so each
// heading plus its following lines becomes one chunk; this keeps small
// FAQ-style sections self-contained. Heading-free text falls back to a
// sliding window of Size words with Overlap words shared between
// consecutive windows.
type Chunker struct {
	size    int
	overlap int
}

func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrConfiguration, size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: chunk overlap must not be negative, got %d", domain.ErrConfiguration, overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d",
			domain.ErrConfiguration, overlap, size)
	}

	return &Chunker{size: size, overlap: overlap}, nil
}

// Split returns the ordered, non-empty chunks of text. Blank lines never
// produce chunks.
func (c *Chunker) Split(text string) []string {
	if sections := splitSections(text); len(sections) > 0 {
		return sections
	}
	return c.slidingWindow(text)
}

// splitSections cuts the text at heading lines. Content before the first
// heading is accumulated and flushed as its own section. Returns nil when
// the text has no headings at all.
func splitSections(text string) []string {
	var sections []string
	var current []string
	sawHeading := false

	flush := func() {
		if len(current) == 0 {
			return
		}
		joined := strings.Join(current, " ")
		if joined != "" {
			sections = append(sections, joined)
		}
		current = current[:0]
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			sawHeading = true
			flush()
		}
		if trimmed != "" {
			current = append(current, trimmed)
		}
	}
	flush()

	if !sawHeading {
		return nil
	}
	return sections
}

// slidingWindow splits on whitespace-delimited words into windows of size
// words, each window sharing overlap words with the previous one. The last
// window takes whatever remains. Termination relies on overlap < size,
// which the constructor guarantees.
func (c *Chunker) slidingWindow(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	start := 0
	for start < len(words) {
		end := start + c.size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
		start = end - c.overlap
	}

	return chunks
}
