package chunker

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// SemanticChunker splits on sentence boundaries and groups adjacent
// sentences whose embeddings are similar, cutting a chunk wherever the
// similarity between neighbors drops below the threshold.
type SemanticChunker struct {
	embedder Embedder
}

// NewSemanticChunker creates a semantic chunker backed by an embedder
func NewSemanticChunker(embedder Embedder) *SemanticChunker {
	return &SemanticChunker{embedder: embedder}
}

// Name returns the strategy name
func (c *SemanticChunker) Name() string { return StrategySemantic }

// Chunk splits content at semantic boundaries between sentences
func (c *SemanticChunker) Chunk(ctx context.Context, content string, metadata map[string]string, settings Settings) ([]Chunk, error) {
	s := settings.normalized()
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	sentences := splitSentences(content)
	if len(sentences) == 0 {
		return nil, nil
	}

	maxChars := s.MaxChunkSize * CharsPerToken

	groups := []span{{sentences[0].start, sentences[0].end}}
	if len(sentences) > 1 && c.embedder != nil {
		texts := make([]string, len(sentences))
		for i, sp := range sentences {
			texts[i] = content[sp.start:sp.end]
		}

		vecs, err := c.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed sentences: %w", err)
		}

		for i := 1; i < len(sentences); i++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if similarity(vecs, i-1, i) < s.SemanticThreshold {
				groups = append(groups, sentences[i])
				continue
			}
			groups[len(groups)-1].end = sentences[i].end
		}
	} else {
		// No embedder available: a single group, size-split below
		groups[0].end = sentences[len(sentences)-1].end
	}

	// Oversized groups fall back to fixed character splitting
	var spans []span
	for _, g := range groups {
		if g.end-g.start > maxChars {
			spans = append(spans, charSpans(content[g.start:g.end], g.start, maxChars)...)
		} else {
			spans = append(spans, g)
		}
	}

	var raw []Chunk
	for _, sp := range spans {
		piece := content[sp.start:sp.end]
		if EstimateTokens(strings.TrimSpace(piece)) < s.MinChunkSize {
			continue
		}
		raw = append(raw, Chunk{
			Content:     piece,
			StartOffset: sp.start,
			EndOffset:   sp.end,
		})
	}

	return finalize(raw, c.Name(), metadata), nil
}

// similarity returns the cosine similarity of two sentence vectors.
// Missing or zero-length vectors count as similar so that an unavailable
// embedder degrades to size-based splitting instead of one-sentence chunks.
func similarity(vecs [][]float32, i, j int) float64 {
	if i >= len(vecs) || j >= len(vecs) {
		return 1
	}
	a, b := vecs[i], vecs[j]
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 1
	}

	var dot, normA, normB float64
	for k := range a {
		dot += float64(a[k]) * float64(b[k])
		normA += float64(a[k]) * float64(a[k])
		normB += float64(b[k]) * float64(b[k])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// splitSentences cuts text on '.', '!' or '?' followed by whitespace,
// keeping the terminator with the sentence.
func splitSentences(text string) []span {
	var out []span
	start := 0
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if ch != '.' && ch != '!' && ch != '?' {
			continue
		}
		if i+1 < len(text) && !isSpaceByte(text[i+1]) {
			continue
		}
		if strings.TrimSpace(text[start:i+1]) != "" {
			out = append(out, span{start, i + 1})
		}
		// Skip the whitespace run after the terminator
		start = i + 1
		for start < len(text) && isSpaceByte(text[start]) {
			start++
		}
		i = start - 1
	}
	if start < len(text) && strings.TrimSpace(text[start:]) != "" {
		out = append(out, span{start, len(text)})
	}
	return out
}
