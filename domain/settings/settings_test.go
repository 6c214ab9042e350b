package settings

import (
	"testing"
)

func TestChunkingSettings_Fingerprint(t *testing.T) {
	s := ChunkingSettings{
		Strategy:     "Recursive",
		MaxChunkSize: 250,
		Overlap:      50,
	}

	fp := s.Fingerprint()
	if fp[KeyChunkingStrategy] != "Recursive" {
		t.Errorf("strategy = %q", fp[KeyChunkingStrategy])
	}
	if fp[KeyChunkingMaxSize] != "250" {
		t.Errorf("max size = %q", fp[KeyChunkingMaxSize])
	}
	if fp[KeyChunkingOverlap] != "50" {
		t.Errorf("overlap = %q", fp[KeyChunkingOverlap])
	}
}

func TestEmbeddingSettings_Fingerprint(t *testing.T) {
	s := EmbeddingSettings{
		Provider:   "ollama",
		Model:      "nomic-embed-text",
		Dimensions: 768,
	}

	fp := s.Fingerprint()
	if fp[KeyEmbeddingProvider] != "ollama" {
		t.Errorf("provider = %q", fp[KeyEmbeddingProvider])
	}
	if fp[KeyEmbeddingModel] != "nomic-embed-text" {
		t.Errorf("model = %q", fp[KeyEmbeddingModel])
	}
	if fp[KeyEmbeddingDimensions] != "768" {
		t.Errorf("dimensions = %q", fp[KeyEmbeddingDimensions])
	}
}

func TestFingerprintMatches(t *testing.T) {
	fp := ChunkingSettings{Strategy: "Recursive", MaxChunkSize: 250, Overlap: 50}.Fingerprint()

	matching := map[string]string{
		KeyChunkingStrategy: "Recursive",
		KeyChunkingMaxSize:  "250",
		KeyChunkingOverlap:  "50",
		"FileName":          "notes.txt", // extra keys are fine
	}
	if !FingerprintMatches(matching, fp) {
		t.Error("identical fingerprint should match")
	}

	changed := map[string]string{
		KeyChunkingStrategy: "FixedSize",
		KeyChunkingMaxSize:  "250",
		KeyChunkingOverlap:  "50",
	}
	if FingerprintMatches(changed, fp) {
		t.Error("changed strategy should not match")
	}

	if FingerprintMatches(map[string]string{}, fp) {
		t.Error("missing keys should not match")
	}
}

func TestApplyCategory(t *testing.T) {
	var snap Snapshot
	err := applyCategory(&snap, CategoryChunking, []byte(`{"strategy":"Semantic","maxChunkSize":100,"overlap":20}`))
	if err != nil {
		t.Fatalf("applyCategory() error = %v", err)
	}
	if snap.Chunking.Strategy != "Semantic" || snap.Chunking.MaxChunkSize != 100 {
		t.Errorf("chunking = %+v", snap.Chunking)
	}

	if err := applyCategory(&snap, "Bogus", []byte(`{}`)); err == nil {
		t.Error("unknown category should fail")
	}

	if err := applyCategory(&snap, CategorySearch, []byte(`not json`)); err == nil {
		t.Error("malformed JSON should fail")
	}
}
