// Package ingest runs the document indexing pipeline: parse, chunk, embed
// and persist, driven by a worker pool draining the in-memory job queue.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/corpora-dev/corpora/domain/chunks"
	"github.com/corpora-dev/corpora/domain/documents"
	"github.com/corpora-dev/corpora/domain/settings"
	"github.com/corpora-dev/corpora/internal/jobs"
	"github.com/corpora-dev/corpora/internal/metrics"
	"github.com/corpora-dev/corpora/internal/storage"
	"github.com/corpora-dev/corpora/pkg/chunker"
	"github.com/corpora-dev/corpora/pkg/embeddings"
	"github.com/corpora-dev/corpora/pkg/logger"
	"github.com/corpora-dev/corpora/pkg/parser"
)

// Pipeline executes one ingestion job end to end. Every step checks the
// job context so cancellation lands between steps, never mid-write.
type Pipeline struct {
	store    storage.Store
	parsers  *parser.Registry
	embedder *embeddings.Service
	settings *settings.Service
	docs     *documents.Repository
	chunks   *chunks.Service
	queue    *jobs.Queue
	metrics  *metrics.Metrics
	log      *slog.Logger
}

// NewPipeline creates the ingestion pipeline
func NewPipeline(
	store storage.Store,
	parsers *parser.Registry,
	embedder *embeddings.Service,
	settingsSvc *settings.Service,
	docs *documents.Repository,
	chunksSvc *chunks.Service,
	queue *jobs.Queue,
	m *metrics.Metrics,
	log *slog.Logger,
) *Pipeline {
	return &Pipeline{
		store:    store,
		parsers:  parsers,
		embedder: embedder,
		settings: settingsSvc,
		docs:     docs,
		chunks:   chunksSvc,
		queue:    queue,
		metrics:  m,
		log:      log.With(logger.Scope("ingest.pipeline")),
	}
}

// Result summarizes a finished pipeline run
type Result struct {
	DocumentID string
	ChunkCount int
	Warnings   []string
}

// Run executes the pipeline for one job. On any failure the document row
// is marked Failed with the collected error text before the error is
// returned; a nil error means the document reached Ready.
func (p *Pipeline) Run(ctx context.Context, job jobs.Job) (*Result, error) {
	snap := p.settings.Snapshot()
	var warnings []string

	// Step 1: read the stored bytes
	p.queue.SetProgress(job.JobID, jobs.PhaseParsing, 5)
	data, err := p.readBlob(ctx, job.StorageKey)
	if err != nil {
		return nil, p.fail(ctx, job.DocumentID, warnings, fmt.Errorf("failed to read stored file: %w", err))
	}

	// Step 2: content hash
	hash := sha256.Sum256(data)
	contentHash := hex.EncodeToString(hash[:])

	// Step 3: resolve the document id
	documentID, createdAt, err := p.resolveDocument(ctx, job)
	if err != nil {
		return nil, err
	}

	// Step 4: settings fingerprint goes into the document metadata so the
	// reindex controller can later detect parameter drift
	chunkSettings := chunkerSettings(snap.Chunking, job.Options.Strategy)
	metadata := buildMetadata(job.Options.Metadata, chunkSettings, snap.Embedding)

	if err := ctx.Err(); err != nil {
		return nil, p.fail(ctx, documentID, warnings, err)
	}

	// Step 5: upsert the row as Processing before any heavy work
	doc := &documents.Document{
		ID:          documentID,
		ContainerID: job.Options.ContainerID,
		FileName:    job.Options.FileName,
		ContentType: job.Options.ContentType,
		Path:        job.Options.Path,
		StorageKey:  job.StorageKey,
		ContentHash: contentHash,
		SizeBytes:   int64(len(data)),
		Status:      documents.StatusProcessing,
		Metadata:    metadata,
		CreatedAt:   createdAt,
	}
	if err := p.docs.Upsert(ctx, doc); err != nil {
		return nil, p.fail(ctx, documentID, warnings, fmt.Errorf("failed to record document: %w", err))
	}

	// Step 6: parse
	p.queue.SetProgress(job.JobID, jobs.PhaseParsing, 10)
	parsed := p.parsers.Parse(ctx, data, job.Options.FileName)
	warnings = append(warnings, parsed.Warnings...)

	if err := ctx.Err(); err != nil {
		return nil, p.fail(ctx, documentID, warnings, err)
	}

	// Step 7: chunk. Parser metadata rides along on every chunk; the job
	// metadata and settings fingerprint win on key conflicts.
	p.queue.SetProgress(job.JobID, jobs.PhaseChunking, 30)
	chunkMeta := mergeMetadata(parsed.Metadata, metadata)
	splitter := chunker.New(chunkSettings.Strategy, p.embedder)
	parts, err := splitter.Chunk(ctx, parsed.Content, chunkMeta, chunkSettings)
	if err != nil {
		return nil, p.fail(ctx, documentID, warnings, fmt.Errorf("chunking failed: %w", err))
	}
	if len(parts) == 0 {
		return nil, p.fail(ctx, documentID, warnings, errors.New("No extractable content"))
	}

	// A parser warning that names a failure poisons the run even when some
	// text survived, so partial extractions are never silently indexed.
	if msg := failureWarning(warnings); msg != "" {
		return nil, p.fail(ctx, documentID, warnings, fmt.Errorf("%s", msg))
	}

	if err := ctx.Err(); err != nil {
		return nil, p.fail(ctx, documentID, warnings, err)
	}

	// Step 8: embed
	vectors, embedWarnings, err := p.embedChunks(ctx, job.JobID, parts, snap.Embedding.BatchSize)
	warnings = append(warnings, embedWarnings...)
	if err != nil {
		return nil, p.fail(ctx, documentID, warnings, fmt.Errorf("embedding failed: %w", err))
	}

	if err := ctx.Err(); err != nil {
		return nil, p.fail(ctx, documentID, warnings, err)
	}

	// Step 9: persist chunks and vectors. Any chunks from a previous run of
	// this document are replaced, not appended to.
	p.queue.SetProgress(job.JobID, jobs.PhaseStoring, 90)
	if _, err := p.chunks.DeleteByDocument(ctx, documentID); err != nil {
		return nil, p.fail(ctx, documentID, warnings, fmt.Errorf("failed to clear old chunks: %w", err))
	}
	vectorMeta := map[string]string{
		"containerId": job.Options.ContainerID,
		"modelId":     p.embedder.ModelID(),
	}
	if err := p.chunks.StoreChunks(ctx, documentID, parts, vectors, vectorMeta); err != nil {
		return nil, p.fail(ctx, documentID, warnings, fmt.Errorf("failed to store chunks: %w", err))
	}

	// Step 10: finalize
	if err := p.docs.MarkReady(ctx, documentID, len(parts)); err != nil {
		return nil, p.fail(ctx, documentID, warnings, fmt.Errorf("failed to finalize document: %w", err))
	}
	p.queue.SetProgress(job.JobID, jobs.PhaseComplete, 100)

	p.metrics.DocumentsIngested.Inc()
	p.metrics.ChunksStored.Add(float64(len(parts)))

	p.log.Info("document indexed",
		slog.String("document_id", documentID),
		slog.String("job_id", job.JobID),
		slog.Int("chunks", len(parts)))

	return &Result{
		DocumentID: documentID,
		ChunkCount: len(parts),
		Warnings:   warnings,
	}, nil
}

// readBlob buffers the stored object
func (p *Pipeline) readBlob(ctx context.Context, key string) ([]byte, error) {
	reader, err := p.store.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

// resolveDocument returns the document id for the job: the id carried on
// the job, the id of an existing row at the same path, or a fresh one.
func (p *Pipeline) resolveDocument(ctx context.Context, job jobs.Job) (string, time.Time, error) {
	now := time.Now().UTC()
	if job.DocumentID != "" {
		if existing, err := p.docs.GetByID(ctx, job.DocumentID); err == nil && existing != nil {
			return job.DocumentID, existing.CreatedAt, nil
		}
		return job.DocumentID, now, nil
	}

	existing, err := p.docs.GetByPath(ctx, job.Options.ContainerID, job.Options.Path)
	if err != nil {
		return "", now, err
	}
	if existing != nil {
		return existing.ID, existing.CreatedAt, nil
	}
	return uuid.NewString(), now, nil
}

// embedChunks embeds chunk contents in provider-sized batches, advancing
// progress from 50 to 80 as batches finish
func (p *Pipeline) embedChunks(ctx context.Context, jobID string, parts []chunker.Chunk, batchSize int) ([][]float32, []string, error) {
	if !p.embedder.IsEnabled() {
		return nil, []string{"embedding provider not configured, chunks stored without vectors"}, nil
	}
	if batchSize <= 0 {
		batchSize = 16
	}

	p.queue.SetProgress(jobID, jobs.PhaseEmbedding, 50)

	vectors := make([][]float32, 0, len(parts))
	for start := 0; start < len(parts); start += batchSize {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		end := start + batchSize
		if end > len(parts) {
			end = len(parts)
		}
		texts := make([]string, 0, end-start)
		for _, c := range parts[start:end] {
			texts = append(texts, c.Content)
		}

		batch, err := p.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, nil, err
		}
		vectors = append(vectors, batch...)

		pct := 50 + 30*float64(end)/float64(len(parts))
		p.queue.SetProgress(jobID, jobs.PhaseEmbedding, pct)
	}

	return vectors, nil, nil
}

// fail records the failure on the document row and returns an error whose
// message carries the joined warning trail. Status writes use a detached
// context so a cancelled job still lands in a terminal state.
func (p *Pipeline) fail(ctx context.Context, documentID string, warnings []string, cause error) error {
	msg := cause.Error()
	if errors.Is(cause, context.Canceled) {
		msg = jobs.CancelledMessage
	}
	if joined := strings.Join(warnings, "; "); joined != "" && joined != msg {
		msg = msg + "; " + joined
	}

	if documentID != "" {
		bg := context.WithoutCancel(ctx)
		if err := p.docs.UpdateStatus(bg, documentID, documents.StatusFailed, msg); err != nil {
			p.log.Error("failed to record document failure",
				logger.Error(err), slog.String("document_id", documentID))
		}
	}

	return errors.New(msg)
}

// failureWarning returns the first warning that reports a failure
func failureWarning(warnings []string) string {
	for _, w := range warnings {
		if strings.Contains(strings.ToLower(w), "failed") {
			return w
		}
	}
	return ""
}

// mergeMetadata overlays the document metadata on the parser metadata,
// so caller-supplied keys win over extracted ones
func mergeMetadata(parsed, doc map[string]string) map[string]string {
	out := make(map[string]string, len(parsed)+len(doc))
	for k, v := range parsed {
		out[k] = v
	}
	for k, v := range doc {
		out[k] = v
	}
	return out
}

// chunkerSettings maps live chunking settings to chunker settings, with an
// optional per-job strategy override
func chunkerSettings(s settings.ChunkingSettings, override string) chunker.Settings {
	out := chunker.Settings{
		Strategy:          s.Strategy,
		MaxChunkSize:      s.MaxChunkSize,
		Overlap:           s.Overlap,
		MinChunkSize:      s.MinChunkSize,
		SemanticThreshold: s.SemanticThreshold,
		Separators:        s.RecursiveSeparators,
	}
	if override != "" {
		out.Strategy = override
	}
	if out.Strategy == "" {
		out.Strategy = chunker.StrategyRecursive
	}
	return out
}

// buildMetadata merges the job metadata with the settings fingerprint
func buildMetadata(base map[string]string, cs chunker.Settings, es settings.EmbeddingSettings) map[string]string {
	fingerprint := settings.ChunkingSettings{
		Strategy:     cs.Strategy,
		MaxChunkSize: cs.MaxChunkSize,
		Overlap:      cs.Overlap,
	}.Fingerprint()

	out := make(map[string]string, len(base)+6)
	for k, v := range base {
		out[k] = v
	}
	for k, v := range fingerprint {
		out[k] = v
	}
	for k, v := range es.Fingerprint() {
		out[k] = v
	}
	return out
}
