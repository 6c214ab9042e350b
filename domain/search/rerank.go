package search

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/corpora-dev/corpora/pkg/llm"
	"github.com/corpora-dev/corpora/pkg/logger"
	"github.com/corpora-dev/corpora/pkg/mathutil"
)

// Reranker names
const (
	RerankerNone         = "None"
	RerankerRRF          = "RRF"
	RerankerCrossEncoder = "CrossEncoder"
)

// DefaultRRFK is the standard reciprocal-rank-fusion constant
const DefaultRRFK = 60

// Reranker reorders candidate results before the score filter and cut
type Reranker interface {
	Name() string
	Rerank(ctx context.Context, query string, results []*Result) ([]*Result, error)
}

// NewReranker resolves a reranker by name (case-insensitive). The LLM
// client may be nil; the cross-encoder then degrades to input order.
func NewReranker(name string, client llm.Client, rrfK int, log *slog.Logger) Reranker {
	switch strings.ToLower(name) {
	case strings.ToLower(RerankerRRF), "rrf":
		return &RRFReranker{K: rrfK}
	case strings.ToLower(RerankerCrossEncoder), "cross_encoder":
		return &CrossEncoderReranker{client: client, log: log}
	default:
		return &NoneReranker{}
	}
}

// NoneReranker passes results through unchanged
type NoneReranker struct{}

func (r *NoneReranker) Name() string { return RerankerNone }

func (r *NoneReranker) Rerank(ctx context.Context, query string, results []*Result) ([]*Result, error) {
	return results, nil
}

// RRFReranker fuses the vector and keyword legs with reciprocal rank
// fusion. Results from a single source come back unchanged, since RRF
// over one ranking is a monotone transform of it.
type RRFReranker struct {
	K int
}

func (r *RRFReranker) Name() string { return RerankerRRF }

func (r *RRFReranker) Rerank(ctx context.Context, query string, results []*Result) ([]*Result, error) {
	if len(results) == 0 {
		return results, nil
	}

	k := r.K
	if k <= 0 {
		k = DefaultRRFK
	}

	// Partition by source, preserving each leg's ordering
	bySource := make(map[string][]*Result)
	var sourceOrder []string
	for _, res := range results {
		if _, seen := bySource[res.Source]; !seen {
			sourceOrder = append(sourceOrder, res.Source)
		}
		bySource[res.Source] = append(bySource[res.Source], res)
	}
	if len(bySource) < 2 {
		return results, nil
	}

	// Sum reciprocal ranks across legs. Ranks are 1-based.
	type fused struct {
		result *Result
		score  float32
	}
	byID := make(map[string]*fused)
	var order []string
	for _, source := range sourceOrder {
		for rank, res := range bySource[source] {
			f, ok := byID[res.ChunkID]
			if !ok {
				f = &fused{result: res}
				byID[res.ChunkID] = f
				order = append(order, res.ChunkID)
			}
			f.score += float32(1.0) / float32(k+rank+1)
		}
	}

	merged := make([]*fused, 0, len(order))
	scores := make([]float32, 0, len(order))
	for _, id := range order {
		merged = append(merged, byID[id])
		scores = append(scores, byID[id].score)
	}

	scores = mathutil.MinMaxNormalize(scores)
	for i, f := range merged {
		out := *f.result
		out.Score = scores[i]
		out.Metadata = withRerankMeta(f.result.Metadata, RerankerRRF, "rrfScore", f.score)
		merged[i] = &fused{result: &out, score: scores[i]}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].score > merged[j].score
	})

	out := make([]*Result, len(merged))
	for i, f := range merged {
		out[i] = f.result
	}
	return out, nil
}

// crossEncoderPrompt asks the scoring model for a single number. The
// decoding is deterministic on the client side (temperature 0).
const crossEncoderPrompt = `Rate how relevant the following passage is to the query on a scale from 0 to 10.
Respond with only the number.

Query: %s

Passage: %s

Relevance score:`

// neutralScore is used when the model response cannot be parsed
const neutralScore = 5.0

// CrossEncoderReranker scores each query/passage pair with an LLM.
// Without a configured client it leaves the input order untouched.
type CrossEncoderReranker struct {
	client llm.Client
	log    *slog.Logger
}

func (r *CrossEncoderReranker) Name() string { return RerankerCrossEncoder }

func (r *CrossEncoderReranker) Rerank(ctx context.Context, query string, results []*Result) ([]*Result, error) {
	if len(results) == 0 || r.client == nil {
		return results, nil
	}

	scored := make([]*Result, len(results))
	for i, res := range results {
		score := r.scorePair(ctx, query, res.Content)

		out := *res
		out.Score = float32(score / 10.0)
		out.Metadata = withRerankMeta(res.Metadata, RerankerCrossEncoder, "crossEncoderScore", float32(score))
		scored[i] = &out
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored, nil
}

// scorePair asks the model for one relevance score, falling back to the
// neutral midpoint when the call or the parse fails
func (r *CrossEncoderReranker) scorePair(ctx context.Context, query, passage string) float64 {
	reply, err := r.client.Generate(ctx, fmt.Sprintf(crossEncoderPrompt, query, passage))
	if err != nil {
		if r.log != nil {
			r.log.Warn("cross-encoder scoring failed", logger.Error(err))
		}
		return neutralScore
	}

	score, ok := parseFirstNumber(reply)
	if !ok {
		return neutralScore
	}
	if score < 0 {
		return 0
	}
	if score > 10 {
		return 10
	}
	return score
}

var numberRe = regexp.MustCompile(`-?\d+(\.\d+)?`)

// parseFirstNumber extracts the first decimal number from model output
func parseFirstNumber(s string) (float64, bool) {
	match := numberRe.FindString(s)
	if match == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// withRerankMeta copies metadata and records the reranker's trace keys
func withRerankMeta(metadata map[string]string, reranker, scoreKey string, score float32) map[string]string {
	out := make(map[string]string, len(metadata)+2)
	for k, v := range metadata {
		out[k] = v
	}
	out["reranker"] = reranker
	out[scoreKey] = strconv.FormatFloat(float64(score), 'f', 6, 32)
	return out
}
