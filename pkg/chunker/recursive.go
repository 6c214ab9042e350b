package chunker

import (
	"context"
	"strings"
)

// RecursiveChunker splits on a ladder of separators, greedily coalescing
// splits up to MaxChunkSize and recursing into oversized pieces with the
// remaining separators.
type RecursiveChunker struct{}

// Name returns the strategy name
func (c *RecursiveChunker) Name() string { return StrategyRecursive }

// Chunk splits content recursively by separators with overlap
func (c *RecursiveChunker) Chunk(ctx context.Context, content string, metadata map[string]string, settings Settings) ([]Chunk, error) {
	s := settings.normalized()
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	maxChars := s.MaxChunkSize * CharsPerToken
	overlapChars := s.Overlap * CharsPerToken

	spans := splitSpans(content, 0, s.Separators, maxChars)

	// Seed each chunk with a tail-overlap from its predecessor by extending
	// its start backward. Start offsets stay strictly increasing.
	raw := make([]Chunk, 0, len(spans))
	prevStart := -1
	for i, sp := range spans {
		start := sp.start - overlapChars
		if start < 0 {
			start = 0
		}
		if start <= prevStart {
			start = sp.start
		}

		piece := content[start:sp.end]
		final := i == len(spans)-1
		if EstimateTokens(strings.TrimSpace(piece)) >= s.MinChunkSize || final {
			raw = append(raw, Chunk{
				Content:     piece,
				StartOffset: start,
				EndOffset:   sp.end,
			})
			prevStart = start
		}
	}

	return finalize(raw, c.Name(), metadata), nil
}

// splitSpans recursively splits text into spans no larger than maxChars.
// base is the offset of text within the original document.
func splitSpans(text string, base int, separators []string, maxChars int) []span {
	if len(text) <= maxChars {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []span{{base, base + len(text)}}
	}

	if len(separators) == 0 {
		return charSpans(text, base, maxChars)
	}

	sep := separators[0]
	rest := separators[1:]

	if !strings.Contains(text, sep) {
		return splitSpans(text, base, rest, maxChars)
	}

	// Segment boundaries, each segment keeps its trailing separator
	var segments []span
	pos := 0
	for pos < len(text) {
		i := strings.Index(text[pos:], sep)
		if i < 0 {
			segments = append(segments, span{pos, len(text)})
			break
		}
		segments = append(segments, span{pos, pos + i + len(sep)})
		pos += i + len(sep)
	}

	// Greedily coalesce segments up to maxChars
	var coalesced []span
	cur := segments[0]
	for _, seg := range segments[1:] {
		if seg.end-cur.start > maxChars {
			coalesced = append(coalesced, cur)
			cur = seg
			continue
		}
		cur.end = seg.end
	}
	coalesced = append(coalesced, cur)

	// Recurse into pieces that are still oversized
	var out []span
	for _, sp := range coalesced {
		if sp.end-sp.start > maxChars {
			out = append(out, splitSpans(text[sp.start:sp.end], base+sp.start, rest, maxChars)...)
		} else if strings.TrimSpace(text[sp.start:sp.end]) != "" {
			out = append(out, span{base + sp.start, base + sp.end})
		}
	}

	return out
}
