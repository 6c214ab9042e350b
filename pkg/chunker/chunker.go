// Package chunker splits parsed document text into ordered, overlapping
// chunks ready for embedding and indexing.
package chunker

import (
	"context"
	"strconv"
	"strings"
	"unicode"
)

// Strategy names
const (
	StrategyFixedSize     = "FixedSize"
	StrategyRecursive     = "Recursive"
	StrategySemantic      = "Semantic"
	StrategyDocumentAware = "DocumentAware"
)

// CharsPerToken is the cheap char-to-token estimator ratio.
const CharsPerToken = 4

// DefaultSeparators is the separator ladder for the recursive strategy.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " "}

// Chunk is one text span of a parsed document.
type Chunk struct {
	Index       int
	Content     string
	TokenCount  int
	StartOffset int
	EndOffset   int
	Metadata    map[string]string
}

// Settings control how a document is chunked. Sizes are in estimated tokens.
type Settings struct {
	Strategy          string
	MaxChunkSize      int
	Overlap           int
	MinChunkSize      int
	SemanticThreshold float64
	Separators        []string
}

// DefaultSettings returns the default chunking settings
func DefaultSettings() Settings {
	return Settings{
		Strategy:          StrategyRecursive,
		MaxChunkSize:      250,
		Overlap:           50,
		MinChunkSize:      10,
		SemanticThreshold: 0.75,
		Separators:        DefaultSeparators,
	}
}

// normalized fills zero values with defaults and clamps overlap
func (s Settings) normalized() Settings {
	if s.MaxChunkSize <= 0 {
		s.MaxChunkSize = 250
	}
	if s.Overlap < 0 {
		s.Overlap = 0
	}
	if s.Overlap >= s.MaxChunkSize {
		s.Overlap = s.MaxChunkSize / 4
	}
	if s.MinChunkSize < 0 {
		s.MinChunkSize = 0
	}
	if s.SemanticThreshold <= 0 {
		s.SemanticThreshold = 0.75
	}
	if len(s.Separators) == 0 {
		s.Separators = DefaultSeparators
	}
	return s
}

// EstimateTokens approximates the token count of a string.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + CharsPerToken - 1) / CharsPerToken
}

// Chunker produces chunks from parsed text.
type Chunker interface {
	// Name returns the strategy name
	Name() string

	// Chunk splits content into ordered chunks. The metadata map is copied
	// into every chunk, augmented with ChunkingStrategy and ChunkIndex.
	Chunk(ctx context.Context, content string, metadata map[string]string, settings Settings) ([]Chunk, error)
}

// Embedder is the sentence-embedding dependency of the semantic strategy.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// New returns the chunker for a strategy name (case-insensitive).
// DocumentAware maps to the recursive strategy, which already honors
// paragraph structure through its separator ladder. Unknown strategies
// fall back to recursive.
func New(strategy string, embedder Embedder) Chunker {
	switch strings.ToLower(strategy) {
	case strings.ToLower(StrategyFixedSize), "fixed":
		return &FixedSizeChunker{}
	case strings.ToLower(StrategySemantic):
		return &SemanticChunker{embedder: embedder}
	default:
		return &RecursiveChunker{}
	}
}

// span is a half-open [start, end) character range into the parsed text
type span struct {
	start int
	end   int
}

// finalize trims chunk content (adjusting offsets), assigns dense indices
// and attaches metadata.
func finalize(raw []Chunk, strategy string, metadata map[string]string) []Chunk {
	out := make([]Chunk, 0, len(raw))
	for _, c := range raw {
		trimmed, lead := trimOffsets(c.Content)
		if trimmed == "" {
			continue
		}
		c.StartOffset += lead
		c.EndOffset = c.StartOffset + len(trimmed)
		c.Content = trimmed
		c.TokenCount = EstimateTokens(trimmed)
		out = append(out, c)
	}

	for i := range out {
		out[i].Index = i
		md := make(map[string]string, len(metadata)+2)
		for k, v := range metadata {
			md[k] = v
		}
		md["ChunkingStrategy"] = strategy
		md["ChunkIndex"] = strconv.Itoa(i)
		out[i].Metadata = md
	}
	return out
}

// trimOffsets trims whitespace and reports how many leading bytes were cut
func trimOffsets(s string) (string, int) {
	trimmed := strings.TrimLeft(s, " \t\r\n")
	lead := len(s) - len(trimmed)
	trimmed = strings.TrimRight(trimmed, " \t\r\n")
	return trimmed, lead
}

// charSpans splits text into fixed character windows. Used as the last
// resort when no separator structure is available.
func charSpans(text string, base, maxChars int) []span {
	var out []span
	for start := 0; start < len(text); start += maxChars {
		end := start + maxChars
		if end > len(text) {
			end = len(text)
		}
		if strings.TrimSpace(text[start:end]) != "" {
			out = append(out, span{base + start, base + end})
		}
	}
	return out
}

func isSpaceByte(b byte) bool {
	return unicode.IsSpace(rune(b))
}
