package reindex

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/corpora-dev/corpora/domain/documents"
	"github.com/corpora-dev/corpora/domain/settings"
	"github.com/corpora-dev/corpora/internal/storage"
)

type fakeStore struct {
	blobs   map[string]string
	openErr error
}

func (f *fakeStore) Save(ctx context.Context, key string, data io.Reader, size int64, opts storage.SaveOptions) (*storage.SaveResult, error) {
	return &storage.SaveResult{Key: key}, nil
}

func (f *fakeStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	return io.NopCloser(strings.NewReader(f.blobs[key])), nil
}

func (f *fakeStore) Delete(ctx context.Context, key string) error { return nil }

func (f *fakeStore) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := f.blobs[key]
	return ok, nil
}

func hashOf(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func newTestService(store *fakeStore) *Service {
	return &Service{
		store: store,
		log:   slog.New(slog.DiscardHandler),
	}
}

func readyDocument(key, content string, chunkingFP, embeddingFP map[string]string) *documents.Document {
	now := time.Now()
	md := map[string]string{}
	for k, v := range chunkingFP {
		md[k] = v
	}
	for k, v := range embeddingFP {
		md[k] = v
	}
	return &documents.Document{
		ID:            "doc-1",
		StorageKey:    key,
		ContentHash:   hashOf(content),
		Status:        documents.StatusReady,
		Metadata:      md,
		LastIndexedAt: &now,
	}
}

func TestDecide(t *testing.T) {
	chunking := settings.ChunkingSettings{Strategy: "Recursive", MaxChunkSize: 250, Overlap: 50}
	embedding := settings.EmbeddingSettings{Provider: "ollama", Model: "nomic-embed-text", Dimensions: 768}
	chunkingFP := chunking.Fingerprint()
	embeddingFP := embedding.Fingerprint()

	store := &fakeStore{blobs: map[string]string{"k1": "hello"}}
	svc := newTestService(store)
	detect := &Request{DetectSettingsChanges: true}
	ctx := context.Background()

	t.Run("forced wins over everything", func(t *testing.T) {
		doc := readyDocument("missing", "hello", chunkingFP, embeddingFP)
		got := svc.decide(ctx, doc, &Request{Force: true}, chunkingFP, embeddingFP)
		assert.Equal(t, ReasonForced, got)
	})

	t.Run("missing blob is skipped", func(t *testing.T) {
		doc := readyDocument("missing", "hello", chunkingFP, embeddingFP)
		got := svc.decide(ctx, doc, detect, chunkingFP, embeddingFP)
		assert.Equal(t, ReasonFileNotFound, got)
	})

	t.Run("unreadable blob is an error", func(t *testing.T) {
		broken := &fakeStore{blobs: map[string]string{"k1": "hello"}, openErr: io.ErrUnexpectedEOF}
		doc := readyDocument("k1", "hello", chunkingFP, embeddingFP)
		got := newTestService(broken).decide(ctx, doc, detect, chunkingFP, embeddingFP)
		assert.Equal(t, ReasonError, got)
	})

	t.Run("content change beats settings change", func(t *testing.T) {
		doc := readyDocument("k1", "old content", nil, nil)
		got := svc.decide(ctx, doc, detect, chunkingFP, embeddingFP)
		assert.Equal(t, ReasonContentChanged, got)
	})

	t.Run("stale chunking fingerprint", func(t *testing.T) {
		doc := readyDocument("k1", "hello", nil, embeddingFP)
		got := svc.decide(ctx, doc, detect, chunkingFP, embeddingFP)
		assert.Equal(t, ReasonChunkingSettingsChanged, got)
	})

	t.Run("stale embedding fingerprint", func(t *testing.T) {
		doc := readyDocument("k1", "hello", chunkingFP, nil)
		got := svc.decide(ctx, doc, detect, chunkingFP, embeddingFP)
		assert.Equal(t, ReasonEmbeddingSettingsChanged, got)
	})

	t.Run("fingerprint ignored when detection off", func(t *testing.T) {
		doc := readyDocument("k1", "hello", nil, nil)
		got := svc.decide(ctx, doc, &Request{}, chunkingFP, embeddingFP)
		assert.Equal(t, ReasonUnchanged, got)
	})

	t.Run("never indexed", func(t *testing.T) {
		doc := readyDocument("k1", "hello", chunkingFP, embeddingFP)
		doc.LastIndexedAt = nil
		got := svc.decide(ctx, doc, detect, chunkingFP, embeddingFP)
		assert.Equal(t, ReasonNeverIndexed, got)

		doc = readyDocument("k1", "hello", chunkingFP, embeddingFP)
		doc.Status = documents.StatusFailed
		got = svc.decide(ctx, doc, detect, chunkingFP, embeddingFP)
		assert.Equal(t, ReasonNeverIndexed, got)
	})

	t.Run("unchanged", func(t *testing.T) {
		doc := readyDocument("k1", "hello", chunkingFP, embeddingFP)
		got := svc.decide(ctx, doc, detect, chunkingFP, embeddingFP)
		assert.Equal(t, ReasonUnchanged, got)
	})
}
