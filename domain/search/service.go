package search

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/corpora-dev/corpora/domain/settings"
	"github.com/corpora-dev/corpora/internal/config"
	"github.com/corpora-dev/corpora/internal/metrics"
	"github.com/corpora-dev/corpora/pkg/apperror"
	"github.com/corpora-dev/corpora/pkg/embeddings"
	"github.com/corpora-dev/corpora/pkg/llm"
	"github.com/corpora-dev/corpora/pkg/logger"
	"github.com/corpora-dev/corpora/pkg/mathutil"
)

// Service runs container-scoped retrieval: one or both legs, fusion or
// cross-encoder reranking, score filtering and the final cut.
type Service struct {
	repo      *Repository
	embedder  *embeddings.Service
	settings  *settings.Service
	cfg       *config.Config
	metrics   *metrics.Metrics
	rerankLLM llm.Client
	log       *slog.Logger
}

// NewService creates the search service. The scoring LLM for the
// cross-encoder is optional; without it that reranker is a no-op.
func NewService(
	repo *Repository,
	embedder *embeddings.Service,
	settingsSvc *settings.Service,
	cfg *config.Config,
	m *metrics.Metrics,
	log *slog.Logger,
) *Service {
	svc := &Service{
		repo:     repo,
		embedder: embedder,
		settings: settingsSvc,
		cfg:      cfg,
		metrics:  m,
		log:      log.With(logger.Scope("search.svc")),
	}

	if cfg.Reranker.BaseURL != "" && cfg.Reranker.Model != "" {
		client, err := llm.NewOllamaClient(llm.OllamaConfig{
			BaseURL: cfg.Reranker.BaseURL,
			Model:   cfg.Reranker.Model,
			Timeout: cfg.Reranker.Timeout,
		}, svc.log)
		if err != nil {
			svc.log.Warn("cross-encoder client unavailable", logger.Error(err))
		} else {
			svc.rerankLLM = client
		}
	}

	return svc
}

// Search executes one retrieval request. A blank query returns an empty
// result set rather than an error.
func (s *Service) Search(ctx context.Context, containerID string, req *Request) (*Response, error) {
	start := time.Now()
	s.metrics.SearchesServed.Inc()
	snap := s.settings.Snapshot().Search

	mode := resolveMode(req.Mode, snap.Mode)
	topK := req.TopK
	if topK <= 0 {
		topK = snap.TopK
	}
	topK = mathutil.ClampLimit(topK, s.cfg.Search.TopK, s.cfg.Search.MaxTopK)

	minScore := req.MinScore
	if minScore <= 0 {
		minScore = snap.MinimumScore
	}

	rerankerName := req.Reranker
	if rerankerName == "" {
		rerankerName = snap.Reranker
	}

	if strings.TrimSpace(req.Query) == "" {
		return &Response{Results: []*Result{}, Mode: mode, ElapsedMs: 0}, nil
	}

	candidates, err := s.retrieve(ctx, containerID, req, mode, topK)
	if err != nil {
		return nil, err
	}

	reranker := NewReranker(rerankerName, s.rerankLLM, snap.RRFK, s.log)
	reranked, err := reranker.Rerank(ctx, req.Query, candidates)
	if err != nil {
		return nil, err
	}

	filtered := filterByScore(reranked, minScore)
	if len(filtered) > topK {
		filtered = filtered[:topK]
	}

	return &Response{
		Results:      filtered,
		Mode:         mode,
		Reranker:     reranker.Name(),
		TotalMatches: len(filtered),
		ElapsedMs:    int(time.Since(start).Milliseconds()),
	}, nil
}

// filterByScore keeps results whose score is at least minScore. The
// filter always runs, so a hit that slipped below zero never survives a
// zero threshold.
func filterByScore(results []*Result, minScore float64) []*Result {
	filtered := make([]*Result, 0, len(results))
	for _, res := range results {
		if float64(res.Score) >= minScore {
			filtered = append(filtered, res)
		}
	}
	return filtered
}

// SearchStream runs a search and emits results one at a time, stopping
// as soon as the context is cancelled
func (s *Service) SearchStream(ctx context.Context, containerID string, req *Request, emit func(*Result) error) error {
	resp, err := s.Search(ctx, containerID, req)
	if err != nil {
		return err
	}

	for _, res := range resp.Results {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := emit(res); err != nil {
			return err
		}
	}
	return nil
}

// retrieve fans the query out to the legs the mode asks for. In hybrid
// mode a single failing leg degrades to the surviving one; only both
// legs failing is an error.
func (s *Service) retrieve(ctx context.Context, containerID string, req *Request, mode Mode, topK int) ([]*Result, error) {
	multiplier := s.cfg.Search.CandidateMultiplier
	if multiplier <= 0 {
		multiplier = 4
	}

	params := Params{
		ContainerID: containerID,
		Query:       req.Query,
		Limit:       topK * multiplier,
		DocumentID:  req.DocumentID,
		PathPrefix:  req.PathPrefix,
	}

	var (
		vectorResults, keywordResults []*Result
		vectorErr, keywordErr         error
	)

	g, gctx := errgroup.WithContext(ctx)

	if mode == ModeSemantic || mode == ModeHybrid {
		g.Go(func() error {
			vector, err := s.embedQuery(gctx, req.Query)
			if err != nil {
				vectorErr = err
				return nil
			}
			vectorParams := params
			vectorParams.Vector = vector
			vectorResults, vectorErr = s.repo.VectorSearch(gctx, vectorParams)
			return nil
		})
	}

	if mode == ModeKeyword || mode == ModeHybrid {
		g.Go(func() error {
			keywordResults, keywordErr = s.repo.KeywordSearch(gctx, params)
			return nil
		})
	}

	_ = g.Wait()

	switch mode {
	case ModeSemantic:
		if vectorErr != nil {
			return nil, vectorErr
		}
		return vectorResults, nil
	case ModeKeyword:
		if keywordErr != nil {
			return nil, keywordErr
		}
		return keywordResults, nil
	}

	if vectorErr != nil && keywordErr != nil {
		return nil, vectorErr
	}
	if vectorErr != nil {
		s.log.Warn("vector leg failed, returning keyword results only", logger.Error(vectorErr))
	}
	if keywordErr != nil {
		s.log.Warn("keyword leg failed, returning vector results only", logger.Error(keywordErr))
	}

	merged := make([]*Result, 0, len(vectorResults)+len(keywordResults))
	merged = append(merged, vectorResults...)
	merged = append(merged, keywordResults...)
	return merged, nil
}

// embedQuery produces the query vector for the semantic leg
func (s *Service) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if !s.embedder.IsEnabled() {
		return nil, apperror.ErrBadRequest.WithMessage("embedding provider is not configured")
	}
	return s.embedder.Embed(ctx, query)
}

// resolveMode normalizes the requested mode, falling back to the live
// settings and then to hybrid
func resolveMode(requested Mode, fallback string) Mode {
	name := string(requested)
	if name == "" {
		name = fallback
	}
	switch strings.ToLower(name) {
	case "semantic", "vector":
		return ModeSemantic
	case "keyword", "lexical":
		return ModeKeyword
	default:
		return ModeHybrid
	}
}
