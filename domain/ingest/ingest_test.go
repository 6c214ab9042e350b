package ingest

import (
	"testing"

	"github.com/corpora-dev/corpora/domain/settings"
	"github.com/corpora-dev/corpora/pkg/chunker"
)

func TestChunkerSettings(t *testing.T) {
	live := settings.ChunkingSettings{
		Strategy:          "Semantic",
		MaxChunkSize:      300,
		Overlap:           60,
		MinChunkSize:      12,
		SemanticThreshold: 0.8,
	}

	cs := chunkerSettings(live, "")
	if cs.Strategy != "Semantic" || cs.MaxChunkSize != 300 || cs.Overlap != 60 {
		t.Errorf("settings = %+v", cs)
	}

	cs = chunkerSettings(live, "FixedSize")
	if cs.Strategy != "FixedSize" {
		t.Errorf("override ignored, strategy = %q", cs.Strategy)
	}

	cs = chunkerSettings(settings.ChunkingSettings{}, "")
	if cs.Strategy != chunker.StrategyRecursive {
		t.Errorf("empty strategy should default to recursive, got %q", cs.Strategy)
	}
}

func TestBuildMetadata(t *testing.T) {
	cs := chunker.Settings{Strategy: "Recursive", MaxChunkSize: 250, Overlap: 50}
	es := settings.EmbeddingSettings{Provider: "ollama", Model: "nomic-embed-text", Dimensions: 768}

	md := buildMetadata(map[string]string{"source": "upload"}, cs, es)

	if md["source"] != "upload" {
		t.Errorf("base metadata lost: %v", md)
	}
	if md[settings.KeyChunkingStrategy] != "Recursive" {
		t.Errorf("chunking fingerprint missing: %v", md)
	}
	if md[settings.KeyChunkingMaxSize] != "250" || md[settings.KeyChunkingOverlap] != "50" {
		t.Errorf("chunking sizes wrong: %v", md)
	}
	if md[settings.KeyEmbeddingModel] != "nomic-embed-text" || md[settings.KeyEmbeddingDimensions] != "768" {
		t.Errorf("embedding fingerprint missing: %v", md)
	}
}

func TestMergeMetadata(t *testing.T) {
	parsed := map[string]string{
		"fileName":      "report.md",
		"fileExtension": ".md",
		"fileSize":      "2048",
	}
	doc := map[string]string{
		"fileName": "renamed.md",
		"source":   "upload",
	}

	md := mergeMetadata(parsed, doc)

	// Extracted keys survive into the chunk metadata
	if md["fileExtension"] != ".md" || md["fileSize"] != "2048" {
		t.Errorf("parser metadata lost: %v", md)
	}
	// Document metadata wins on conflicts
	if md["fileName"] != "renamed.md" {
		t.Errorf("fileName = %q, want renamed.md", md["fileName"])
	}
	if md["source"] != "upload" {
		t.Errorf("document metadata lost: %v", md)
	}

	// Inputs are not mutated
	if parsed["fileName"] != "report.md" {
		t.Error("parser metadata map was mutated")
	}

	if got := mergeMetadata(nil, nil); len(got) != 0 {
		t.Errorf("mergeMetadata(nil, nil) = %v, want empty", got)
	}
}

func TestFailureWarning(t *testing.T) {
	if got := failureWarning(nil); got != "" {
		t.Errorf("nil warnings = %q", got)
	}
	if got := failureWarning([]string{"file contains no text"}); got != "" {
		t.Errorf("benign warning flagged: %q", got)
	}
	got := failureWarning([]string{
		"row count differs",
		"text extraction failed: connection refused",
	})
	if got != "text extraction failed: connection refused" {
		t.Errorf("got %q", got)
	}
	// case-insensitive
	if got := failureWarning([]string{"Extraction FAILED hard"}); got == "" {
		t.Error("uppercase failure not detected")
	}
}
