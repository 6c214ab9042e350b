package chunks

import (
	"encoding/json"
	"testing"
	"time"
)

func TestChunkWithEmbedding_ToDTO(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	row := &chunkWithEmbedding{
		Chunk: Chunk{
			ID:          "chunk-1",
			DocumentID:  "doc-1",
			ChunkIndex:  3,
			Content:     "some text",
			TokenCount:  2,
			StartOffset: 10,
			EndOffset:   19,
			Metadata:    map[string]string{"ChunkingStrategy": "Recursive"},
			CreatedAt:   created,
		},
		HasEmbedding: true,
	}

	dto := row.toDTO()
	if dto.ID != "chunk-1" || dto.DocumentID != "doc-1" {
		t.Errorf("ids = %q / %q", dto.ID, dto.DocumentID)
	}
	if dto.ChunkIndex != 3 || dto.StartOffset != 10 || dto.EndOffset != 19 {
		t.Errorf("positions = %d/%d/%d", dto.ChunkIndex, dto.StartOffset, dto.EndOffset)
	}
	if !dto.HasEmbedding {
		t.Error("HasEmbedding should carry over")
	}
	if dto.CreatedAt != "2026-03-01T12:00:00Z" {
		t.Errorf("createdAt = %q", dto.CreatedAt)
	}
	if dto.Metadata["ChunkingStrategy"] != "Recursive" {
		t.Errorf("metadata = %v", dto.Metadata)
	}
}

func TestMustJSON(t *testing.T) {
	raw := mustJSON(map[string]string{"documentId": "doc-1", "ChunkIndex": "0"})

	var decoded map[string]string
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["documentId"] != "doc-1" || decoded["ChunkIndex"] != "0" {
		t.Errorf("decoded = %v", decoded)
	}
}
