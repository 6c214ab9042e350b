package embeddings

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

func TestNoopClient_Embed(t *testing.T) {
	client := NewNoopClient()
	result, err := client.Embed(context.Background(), "test query")

	if err != nil {
		t.Errorf("Embed() error = %v, want nil", err)
	}
	if result != nil {
		t.Errorf("Embed() = %v, want nil", result)
	}
}

func TestNoopClient_EmbedBatch(t *testing.T) {
	client := NewNoopClient()
	result, err := client.EmbedBatch(context.Background(), []string{"doc1", "doc2"})

	if err != nil {
		t.Errorf("EmbedBatch() error = %v, want nil", err)
	}
	if result != nil {
		t.Errorf("EmbedBatch() = %v, want nil", result)
	}
}

func TestNoopClient_Identity(t *testing.T) {
	client := NewNoopClient()
	if client.Dimensions() != 0 {
		t.Errorf("Dimensions() = %d, want 0", client.Dimensions())
	}
	if client.ModelID() != "noop" {
		t.Errorf("ModelID() = %q, want noop", client.ModelID())
	}
}

func TestNewNoopService(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	svc := NewNoopService(logger)

	if svc == nil {
		t.Fatal("NewNoopService() returned nil")
	}

	// Should not be enabled
	if svc.IsEnabled() {
		t.Error("NewNoopService().IsEnabled() = true, want false")
	}
}

func TestService_IsEnabled(t *testing.T) {
	tests := []struct {
		name     string
		enabled  bool
		expected bool
	}{
		{
			name:     "enabled service",
			enabled:  true,
			expected: true,
		},
		{
			name:     "disabled service",
			enabled:  false,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &Service{
				enabled: tt.enabled,
			}
			if svc.IsEnabled() != tt.expected {
				t.Errorf("IsEnabled() = %v, want %v", svc.IsEnabled(), tt.expected)
			}
		})
	}
}

func newTestOllamaClient(t *testing.T, handler http.HandlerFunc, dimension int) *OllamaClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewOllamaClient(OllamaConfig{
		BaseURL:   srv.URL,
		Model:     "test-model",
		Dimension: dimension,
	}, WithMaxRetries(1), WithBaseDelay(1))
	if err != nil {
		t.Fatalf("NewOllamaClient() error = %v", err)
	}
	return client
}

func TestOllamaClient_Embed(t *testing.T) {
	var gotReq embedRequest
	client := newTestOllamaClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("path = %q, want /api/embeddings", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(embedResponse{Embedding: []float32{0.1, 0.2, 0.3}})
	}, 3)

	emb, err := client.Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}

	if gotReq.Model != "test-model" {
		t.Errorf("request model = %q, want test-model", gotReq.Model)
	}
	if gotReq.Prompt != "hello world" {
		t.Errorf("request prompt = %q, want 'hello world'", gotReq.Prompt)
	}
	if len(emb) != 3 {
		t.Fatalf("Embed() length = %d, want 3", len(emb))
	}
	if emb[0] != 0.1 || emb[1] != 0.2 || emb[2] != 0.3 {
		t.Errorf("Embed() = %v, want [0.1 0.2 0.3]", emb)
	}
}

func TestOllamaClient_EmbedBatch(t *testing.T) {
	var calls int
	client := newTestOllamaClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(embedResponse{Embedding: []float32{float32(calls)}})
	}, 1)

	embs, err := client.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}

	if calls != 3 {
		t.Errorf("provider calls = %d, want 3", calls)
	}
	if len(embs) != 3 {
		t.Fatalf("EmbedBatch() length = %d, want 3", len(embs))
	}
	// Result is index-aligned with the input
	for i, emb := range embs {
		if len(emb) != 1 || emb[0] != float32(i+1) {
			t.Errorf("EmbedBatch()[%d] = %v, want [%d]", i, emb, i+1)
		}
	}
}

func TestOllamaClient_EmbedBatch_Empty(t *testing.T) {
	client := newTestOllamaClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("provider should not be called for empty batch")
	}, 1)

	embs, err := client.EmbedBatch(context.Background(), nil)
	if err == nil {
		t.Fatal("EmbedBatch() with no texts should fail")
	}
	if embs != nil {
		t.Errorf("EmbedBatch() = %v, want nil on error", embs)
	}
}

func TestOllamaClient_Embed_RetriesServerErrors(t *testing.T) {
	var calls int
	client := newTestOllamaClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(embedResponse{Embedding: []float32{1}})
	}, 1)

	emb, err := client.Embed(context.Background(), "retry me")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if calls != 2 {
		t.Errorf("provider calls = %d, want 2", calls)
	}
	if len(emb) != 1 {
		t.Errorf("Embed() length = %d, want 1", len(emb))
	}
}

func TestOllamaClient_Embed_NoRetryOnClientError(t *testing.T) {
	var calls int
	client := newTestOllamaClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"model not found"}`))
	}, 1)

	_, err := client.Embed(context.Background(), "bad request")
	if err == nil {
		t.Fatal("Embed() error = nil, want error")
	}
	if calls != 1 {
		t.Errorf("provider calls = %d, want 1 (client errors are not retried)", calls)
	}
}

func TestOllamaClient_EmbedBatch_AbortsOnFailure(t *testing.T) {
	var calls int
	client := newTestOllamaClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 2 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(embedResponse{Embedding: []float32{1}})
	}, 1)

	_, err := client.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err == nil {
		t.Fatal("EmbedBatch() error = nil, want error")
	}
	// The third text is never embedded after the second fails
	if calls != 2 {
		t.Errorf("provider calls = %d, want 2", calls)
	}
}

func TestOllamaClient_Identity(t *testing.T) {
	client, err := NewOllamaClient(OllamaConfig{
		BaseURL:   "http://localhost:11434",
		Model:     "nomic-embed-text",
		Dimension: 768,
	})
	if err != nil {
		t.Fatalf("NewOllamaClient() error = %v", err)
	}
	if client.Dimensions() != 768 {
		t.Errorf("Dimensions() = %d, want 768", client.Dimensions())
	}
	if client.ModelID() != "nomic-embed-text" {
		t.Errorf("ModelID() = %q, want nomic-embed-text", client.ModelID())
	}
}

func TestNewOllamaClient_RequiresBaseURL(t *testing.T) {
	_, err := NewOllamaClient(OllamaConfig{})
	if err == nil {
		t.Error("NewOllamaClient() with empty base URL should fail")
	}
}

func TestNewOllamaClient_Defaults(t *testing.T) {
	client, err := NewOllamaClient(OllamaConfig{BaseURL: "http://localhost:11434"})
	if err != nil {
		t.Fatalf("NewOllamaClient() error = %v", err)
	}
	if client.ModelID() != DefaultModel {
		t.Errorf("ModelID() = %q, want %q", client.ModelID(), DefaultModel)
	}
	if client.Dimensions() != DefaultDimension {
		t.Errorf("Dimensions() = %d, want %d", client.Dimensions(), DefaultDimension)
	}
}
