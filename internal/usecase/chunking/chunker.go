// Package chunking splits document text into overlapping windows for embedding.
package chunking

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/chunk"
)

// Options controls chunk boundaries. Sizes are counted in runes.
type Options struct {
	Size      int
	Overlap   int
	MinLength int
	MaxChunks int // 0 = unlimited
}

// DefaultOptions returns size 1000, overlap 200, min length 50.
func DefaultOptions() Options {
	return Options{Size: 1000, Overlap: 200, MinLength: 50}
}

// Validate checks that the options describe a window that always advances.
func (o Options) Validate() error {
	if o.Size <= 0 || o.Size > chunk.MaxContentRunes {
		return fmt.Errorf("size must be in [1, %d], got %d: %w", chunk.MaxContentRunes, o.Size, domain.ErrInvalidChunkOptions)
	}
	if o.Overlap < 0 || o.Overlap >= o.Size {
		return fmt.Errorf("overlap must be in [0, %d), got %d: %w", o.Size, o.Overlap, domain.ErrInvalidChunkOptions)
	}
	if o.MinLength < 0 || o.MaxChunks < 0 {
		return fmt.Errorf("min length and max chunks must be non-negative: %w", domain.ErrInvalidChunkOptions)
	}
	return nil
}

// Draft is a chunk before embedding. Start and End are rune offsets into the input.
type Draft struct {
	ID      string
	Index   int
	Content string
	Start   int
	End     int
	Type    chunk.Type
}

// Split cuts text into drafts. Output depends only on text and opts.
// Whitespace-only text yields no drafts.
func Split(text, sourceID string, opts Options) ([]Draft, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	runes := []rune(text)
	n := len(runes)
	drafts := make([]Draft, 0, n/(opts.Size-opts.Overlap)+1)

	for start := 0; start < n; {
		end := start + opts.Size
		if end >= n {
			end = n
		} else {
			end = sentenceCut(runes, start, end, opts.Size/2)
		}

		content := strings.TrimSpace(string(runes[start:end]))
		if len([]rune(content)) >= opts.MinLength && content != "" {
			idx := len(drafts)
			drafts = append(drafts, Draft{
				ID:      chunk.BuildID(sourceID, idx),
				Index:   idx,
				Content: content,
				Start:   start,
				End:     end,
				Type:    Classify(content),
			})
			if opts.MaxChunks > 0 && len(drafts) >= opts.MaxChunks {
				break
			}
		}

		if end >= n {
			break
		}
		next := end - opts.Overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return drafts, nil
}

// sentenceCut moves end back to just after the last sentence terminator
// located past start+minKeep. It returns end unchanged when there is none.
func sentenceCut(runes []rune, start, end, minKeep int) int {
	floor := start + minKeep
	for i := end - 1; i >= floor; i-- {
		if isTerminator(runes[i]) {
			return i + 1
		}
	}
	return end
}

func isTerminator(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '\n':
		return true
	}
	return false
}

// Classify guesses the shape of a chunk from its lines.
func Classify(content string) chunk.Type {
	lines := nonEmptyLines(content)
	if len(lines) == 0 {
		return chunk.TypeText
	}
	if len(lines) == 1 && len([]rune(lines[0])) <= 100 && !strings.ContainsAny(lines[0], ".!?。") {
		return chunk.TypeTitle
	}

	var listLines, tableLines int
	for _, l := range lines {
		if isListLine(l) {
			listLines++
		}
		if strings.Count(l, "|") >= 2 || strings.Contains(l, "\t") {
			tableLines++
		}
	}
	switch {
	case tableLines*2 > len(lines):
		return chunk.TypeTable
	case listLines*2 > len(lines):
		return chunk.TypeList
	default:
		return chunk.TypeText
	}
}

func nonEmptyLines(s string) []string {
	raw := strings.Split(s, "\n")
	out := raw[:0]
	for _, l := range raw {
		if t := strings.TrimSpace(l); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func isListLine(l string) bool {
	if strings.HasPrefix(l, "- ") || strings.HasPrefix(l, "* ") || strings.HasPrefix(l, "• ") {
		return true
	}
	// "1. item" / "2) item"
	i := 0
	for i < len(l) && unicode.IsDigit(rune(l[i])) {
		i++
	}
	return i > 0 && i < len(l) && (l[i] == '.' || l[i] == ')')
}
