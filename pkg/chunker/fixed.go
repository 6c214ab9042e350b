package chunker

import (
	"context"
	"strings"
)

// FixedSizeChunker scans the text left to right, cutting chunks of roughly
// MaxChunkSize tokens and snapping each cut to the nearest natural boundary.
type FixedSizeChunker struct{}

// Name returns the strategy name
func (c *FixedSizeChunker) Name() string { return StrategyFixedSize }

// Chunk splits content into fixed-size chunks with overlap
func (c *FixedSizeChunker) Chunk(ctx context.Context, content string, metadata map[string]string, settings Settings) ([]Chunk, error) {
	s := settings.normalized()
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	maxChars := s.MaxChunkSize * CharsPerToken
	overlapChars := s.Overlap * CharsPerToken

	var raw []Chunk
	start := 0
	n := len(content)

	for start < n {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := start + maxChars
		final := end >= n
		if final {
			end = n
		} else {
			end = snapToBoundary(content, start, end)
			final = end >= n
		}

		piece := content[start:end]
		if EstimateTokens(strings.TrimSpace(piece)) >= s.MinChunkSize || final {
			raw = append(raw, Chunk{
				Content:     piece,
				StartOffset: start,
				EndOffset:   end,
			})
		}

		if final {
			break
		}

		// Advance with overlap; the cursor must always move forward
		next := end - overlapChars
		if next <= start {
			next = end
		}
		start = next
	}

	return finalize(raw, c.Name(), metadata), nil
}

// snapToBoundary searches backward from the tentative end for a natural cut
// point, preferring paragraph breaks, then line breaks, then sentence ends,
// then any whitespace. Returns the tentative end if nothing is found.
func snapToBoundary(text string, start, end int) int {
	span := end - start
	window := span / 4
	if window > 100 {
		window = 100
	}
	lo := end - window
	if lo < start {
		lo = start
	}
	seg := text[lo:end]

	// Paragraph break
	if i := strings.LastIndex(seg, "\n\n"); i >= 0 {
		return lo + i + 2
	}

	// Line break
	if i := strings.LastIndexByte(seg, '\n'); i >= 0 {
		return lo + i + 1
	}

	// Sentence end: '.' followed by whitespace
	for i := len(seg) - 2; i >= 0; i-- {
		if seg[i] == '.' && isSpaceByte(seg[i+1]) {
			return lo + i + 2
		}
	}

	// Any whitespace
	for i := len(seg) - 1; i >= 0; i-- {
		if isSpaceByte(seg[i]) {
			return lo + i + 1
		}
	}

	return end
}
