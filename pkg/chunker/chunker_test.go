package chunker

import (
	"context"
	"strings"
	"testing"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{strings.Repeat("x", 400), 100},
	}

	for _, tt := range tests {
		if got := EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestNew_StrategySelection(t *testing.T) {
	tests := []struct {
		strategy string
		want     string
	}{
		{"FixedSize", StrategyFixedSize},
		{"fixedsize", StrategyFixedSize},
		{"fixed", StrategyFixedSize},
		{"Recursive", StrategyRecursive},
		{"Semantic", StrategySemantic},
		{"semantic", StrategySemantic},
		{"DocumentAware", StrategyRecursive},
		{"unknown-strategy", StrategyRecursive},
		{"", StrategyRecursive},
	}

	for _, tt := range tests {
		if got := New(tt.strategy, nil).Name(); got != tt.want {
			t.Errorf("New(%q).Name() = %q, want %q", tt.strategy, got, tt.want)
		}
	}
}

func TestSettings_Normalized(t *testing.T) {
	s := Settings{MaxChunkSize: 100, Overlap: 150}.normalized()
	if s.Overlap != 25 {
		t.Errorf("overlap clamp = %d, want 25 (max/4)", s.Overlap)
	}

	s = Settings{}.normalized()
	if s.MaxChunkSize != 250 {
		t.Errorf("default MaxChunkSize = %d, want 250", s.MaxChunkSize)
	}
	if len(s.Separators) == 0 {
		t.Error("normalized() should fill default separators")
	}
}

func assertChunkInvariants(t *testing.T, source string, chunks []Chunk) {
	t.Helper()
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d has index %d, indices must be dense", i, c.Index)
		}
		if c.StartOffset < 0 || c.EndOffset > len(source) || c.StartOffset >= c.EndOffset {
			t.Errorf("chunk %d has invalid offsets [%d, %d)", i, c.StartOffset, c.EndOffset)
			continue
		}
		if source[c.StartOffset:c.EndOffset] != c.Content {
			t.Errorf("chunk %d content does not match source at [%d, %d)", i, c.StartOffset, c.EndOffset)
		}
		if c.TokenCount != EstimateTokens(c.Content) {
			t.Errorf("chunk %d token count = %d, want %d", i, c.TokenCount, EstimateTokens(c.Content))
		}
		if i > 0 && c.StartOffset <= chunks[i-1].StartOffset {
			t.Errorf("chunk %d start %d does not advance past previous start %d", i, c.StartOffset, chunks[i-1].StartOffset)
		}
	}
}

func TestFixedSizeChunker_Empty(t *testing.T) {
	c := &FixedSizeChunker{}
	chunks, err := c.Chunk(context.Background(), "   \n\t  ", nil, DefaultSettings())
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("Chunk() on whitespace = %d chunks, want 0", len(chunks))
	}
}

func TestFixedSizeChunker_SingleChunk(t *testing.T) {
	c := &FixedSizeChunker{}
	content := "A short document."
	chunks, err := c.Chunk(context.Background(), content, nil, DefaultSettings())
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("Chunk() = %d chunks, want 1", len(chunks))
	}
	if chunks[0].Content != content {
		t.Errorf("Chunk()[0].Content = %q, want full content", chunks[0].Content)
	}
	assertChunkInvariants(t, content, chunks)
}

func TestFixedSizeChunker_SplitsAndOverlaps(t *testing.T) {
	c := &FixedSizeChunker{}
	// 50 sentences, each 40 chars, separated by spaces
	var b strings.Builder
	for i := 0; i < 50; i++ {
		b.WriteString("The quick brown fox jumps over the dog. ")
	}
	content := strings.TrimSpace(b.String())

	settings := DefaultSettings()
	settings.MaxChunkSize = 50 // 200 chars
	settings.Overlap = 10      // 40 chars

	chunks, err := c.Chunk(context.Background(), content, nil, settings)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("Chunk() = %d chunks, want several", len(chunks))
	}
	assertChunkInvariants(t, content, chunks)

	for i, ch := range chunks {
		if ch.TokenCount > settings.MaxChunkSize+1 {
			t.Errorf("chunk %d has %d tokens, exceeds max %d", i, ch.TokenCount, settings.MaxChunkSize)
		}
	}

	// Consecutive chunks overlap
	for i := 1; i < len(chunks); i++ {
		if chunks[i].StartOffset >= chunks[i-1].EndOffset {
			t.Errorf("chunks %d and %d do not overlap", i-1, i)
		}
	}
}

func TestFixedSizeChunker_SnapsToParagraphBreak(t *testing.T) {
	c := &FixedSizeChunker{}
	para1 := strings.Repeat("aaaa ", 35) // 175 chars
	para2 := strings.Repeat("bbbb ", 40)
	content := strings.TrimSpace(para1) + "\n\n" + strings.TrimSpace(para2)

	settings := DefaultSettings()
	settings.MaxChunkSize = 50 // 200-char window lands inside para2
	settings.Overlap = 0

	chunks, err := c.Chunk(context.Background(), content, nil, settings)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("Chunk() = %d chunks, want at least 2", len(chunks))
	}
	// First cut snaps back to the paragraph break
	if !strings.HasSuffix(chunks[0].Content, "aaaa") {
		t.Errorf("first chunk should end at the paragraph break, got %q", chunks[0].Content[len(chunks[0].Content)-20:])
	}
	if strings.Contains(chunks[0].Content, "bbbb") {
		t.Error("first chunk should not cross the paragraph break")
	}
	assertChunkInvariants(t, content, chunks)
}

func TestFixedSizeChunker_ForwardProgressOnUnbrokenText(t *testing.T) {
	c := &FixedSizeChunker{}
	content := strings.Repeat("x", 2000) // no whitespace at all

	settings := DefaultSettings()
	settings.MaxChunkSize = 50
	settings.Overlap = 49 // near-total overlap must not stall the cursor

	chunks, err := c.Chunk(context.Background(), content, nil, settings)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) == 0 {
		t.Fatal("Chunk() produced no chunks")
	}
	assertChunkInvariants(t, content, chunks)
	if last := chunks[len(chunks)-1]; last.EndOffset != len(content) {
		t.Errorf("last chunk ends at %d, want %d (full coverage)", last.EndOffset, len(content))
	}
}

func TestFixedSizeChunker_Metadata(t *testing.T) {
	c := &FixedSizeChunker{}
	chunks, err := c.Chunk(context.Background(), "Some document content here.", map[string]string{"FileName": "doc.txt"}, DefaultSettings())
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("Chunk() = %d chunks, want 1", len(chunks))
	}
	md := chunks[0].Metadata
	if md["FileName"] != "doc.txt" {
		t.Errorf("metadata FileName = %q, want doc.txt", md["FileName"])
	}
	if md["ChunkingStrategy"] != StrategyFixedSize {
		t.Errorf("metadata ChunkingStrategy = %q, want %q", md["ChunkingStrategy"], StrategyFixedSize)
	}
	if md["ChunkIndex"] != "0" {
		t.Errorf("metadata ChunkIndex = %q, want 0", md["ChunkIndex"])
	}
}

func TestRecursiveChunker_Empty(t *testing.T) {
	c := &RecursiveChunker{}
	chunks, err := c.Chunk(context.Background(), "", nil, DefaultSettings())
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("Chunk() on empty = %d chunks, want 0", len(chunks))
	}
}

func TestRecursiveChunker_PrefersParagraphs(t *testing.T) {
	c := &RecursiveChunker{}
	paras := []string{
		strings.Repeat("alpha ", 30),
		strings.Repeat("bravo ", 30),
		strings.Repeat("charlie ", 30),
	}
	for i := range paras {
		paras[i] = strings.TrimSpace(paras[i])
	}
	content := strings.Join(paras, "\n\n")

	settings := DefaultSettings()
	settings.MaxChunkSize = 60 // each paragraph fits, pairs do not
	settings.Overlap = 0

	chunks, err := c.Chunk(context.Background(), content, nil, settings)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("Chunk() = %d chunks, want 3 (one per paragraph)", len(chunks))
	}
	for i, ch := range chunks {
		word := []string{"alpha", "bravo", "charlie"}[i]
		if !strings.Contains(ch.Content, word) {
			t.Errorf("chunk %d should contain %q", i, word)
		}
		for _, other := range []string{"alpha", "bravo", "charlie"} {
			if other != word && strings.Contains(ch.Content, other) {
				t.Errorf("chunk %d crosses paragraphs: contains %q", i, other)
			}
		}
	}
	assertChunkInvariants(t, content, chunks)
}

func TestRecursiveChunker_CoalescesSmallSplits(t *testing.T) {
	c := &RecursiveChunker{}
	content := "One.\n\nTwo.\n\nThree.\n\nFour."

	settings := DefaultSettings()
	settings.MaxChunkSize = 100
	settings.Overlap = 0
	settings.MinChunkSize = 0

	chunks, err := c.Chunk(context.Background(), content, nil, settings)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("Chunk() = %d chunks, want 1 (everything fits)", len(chunks))
	}
	if !strings.Contains(chunks[0].Content, "Four.") {
		t.Error("coalesced chunk should include the final paragraph")
	}
}

func TestRecursiveChunker_Overlap(t *testing.T) {
	c := &RecursiveChunker{}
	paras := make([]string, 5)
	for i := range paras {
		paras[i] = strings.TrimSpace(strings.Repeat("word ", 50))
	}
	content := strings.Join(paras, "\n\n")

	settings := DefaultSettings()
	settings.MaxChunkSize = 70
	settings.Overlap = 15

	chunks, err := c.Chunk(context.Background(), content, nil, settings)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("Chunk() = %d chunks, want several", len(chunks))
	}
	assertChunkInvariants(t, content, chunks)

	overlapped := 0
	for i := 1; i < len(chunks); i++ {
		if chunks[i].StartOffset < chunks[i-1].EndOffset {
			overlapped++
		}
	}
	if overlapped == 0 {
		t.Error("no consecutive chunks overlap")
	}
}

func TestRecursiveChunker_FallsBackToCharSplit(t *testing.T) {
	c := &RecursiveChunker{}
	content := strings.Repeat("y", 1500) // no separators present

	settings := DefaultSettings()
	settings.MaxChunkSize = 100 // 400 chars
	settings.Overlap = 0

	chunks, err := c.Chunk(context.Background(), content, nil, settings)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) != 4 {
		t.Fatalf("Chunk() = %d chunks, want 4", len(chunks))
	}
	assertChunkInvariants(t, content, chunks)
	if last := chunks[len(chunks)-1]; last.EndOffset != len(content) {
		t.Errorf("last chunk ends at %d, want %d", last.EndOffset, len(content))
	}
}

func TestRecursiveChunker_FiltersTinyChunks(t *testing.T) {
	c := &RecursiveChunker{}
	content := strings.TrimSpace(strings.Repeat("stuff and things. ", 40)) + "\n\nok."

	settings := DefaultSettings()
	settings.MaxChunkSize = 100
	settings.Overlap = 0
	settings.MinChunkSize = 5

	chunks, err := c.Chunk(context.Background(), content, nil, settings)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	for i, ch := range chunks[:len(chunks)-1] {
		if ch.TokenCount < settings.MinChunkSize {
			t.Errorf("chunk %d has %d tokens, below minimum %d", i, ch.TokenCount, settings.MinChunkSize)
		}
	}
}

// fakeEmbedder returns a canned vector per text, keyed by the first word.
type fakeEmbedder struct {
	vectors map[string][]float32
	calls   int
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	out := make([][]float32, len(texts))
	for i, text := range texts {
		word, _, _ := strings.Cut(strings.TrimSpace(text), " ")
		out[i] = f.vectors[word]
	}
	return out, nil
}

func TestSemanticChunker_GroupsBySimilarity(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"Cats":    {1, 0},
		"Felines": {0.95, 0.1},
		"Stocks":  {0, 1},
		"Markets": {0.1, 0.95},
	}}
	c := NewSemanticChunker(emb)

	content := "Cats are great pets for families. Felines sleep most of the day. Stocks fell sharply on Monday. Markets remain volatile this week."

	settings := DefaultSettings()
	settings.SemanticThreshold = 0.8
	settings.MinChunkSize = 1

	chunks, err := c.Chunk(context.Background(), content, nil, settings)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if emb.calls != 1 {
		t.Errorf("embedder calls = %d, want 1 (single batch)", emb.calls)
	}
	if len(chunks) != 2 {
		t.Fatalf("Chunk() = %d chunks, want 2 topic groups", len(chunks))
	}
	if !strings.Contains(chunks[0].Content, "Cats") || !strings.Contains(chunks[0].Content, "Felines") {
		t.Errorf("first chunk should group the cat sentences, got %q", chunks[0].Content)
	}
	if !strings.Contains(chunks[1].Content, "Stocks") || !strings.Contains(chunks[1].Content, "Markets") {
		t.Errorf("second chunk should group the market sentences, got %q", chunks[1].Content)
	}
	assertChunkInvariants(t, content, chunks)
}

func TestSemanticChunker_MissingVectorsMerge(t *testing.T) {
	// Embedder returns nil vectors: everything groups into one chunk
	emb := &fakeEmbedder{vectors: map[string][]float32{}}
	c := NewSemanticChunker(emb)

	content := "First sentence here. Second sentence here. Third sentence here."
	settings := DefaultSettings()
	settings.MinChunkSize = 1

	chunks, err := c.Chunk(context.Background(), content, nil, settings)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("Chunk() = %d chunks, want 1 when vectors are unavailable", len(chunks))
	}
}

func TestSemanticChunker_SplitsOversizedGroup(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{"Same": {1, 1}}}
	c := NewSemanticChunker(emb)

	// All sentences identical, one giant group beyond the size limit
	content := strings.TrimSpace(strings.Repeat("Same topic sentence repeated over and over again. ", 30))

	settings := DefaultSettings()
	settings.MaxChunkSize = 50 // 200 chars
	settings.MinChunkSize = 1

	chunks, err := c.Chunk(context.Background(), content, nil, settings)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("Chunk() = %d chunks, oversized group should be split", len(chunks))
	}
	for i, ch := range chunks {
		if ch.TokenCount > settings.MaxChunkSize+1 {
			t.Errorf("chunk %d has %d tokens, exceeds max %d", i, ch.TokenCount, settings.MaxChunkSize)
		}
	}
	assertChunkInvariants(t, content, chunks)
}

func TestSemanticChunker_FiltersSmallChunks(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"Long": {1, 0},
		"No":   {0, 1},
	}}
	c := NewSemanticChunker(emb)

	content := "Long enough sentence that easily clears the minimum size bar for chunks. No."

	settings := DefaultSettings()
	settings.SemanticThreshold = 0.8
	settings.MinChunkSize = 3

	chunks, err := c.Chunk(context.Background(), content, nil, settings)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("Chunk() = %d chunks, want 1 (tiny group filtered)", len(chunks))
	}
	if strings.Contains(chunks[0].Content, "No.") {
		t.Error("filtered fragment should not appear in output")
	}
}

func TestSplitSentences(t *testing.T) {
	text := "First one. Second one! Third one? Trailing fragment"
	spans := splitSentences(text)
	if len(spans) != 4 {
		t.Fatalf("splitSentences() = %d spans, want 4", len(spans))
	}
	wants := []string{"First one.", "Second one!", "Third one?", "Trailing fragment"}
	for i, sp := range spans {
		if got := text[sp.start:sp.end]; got != wants[i] {
			t.Errorf("sentence %d = %q, want %q", i, got, wants[i])
		}
	}
}

func TestSplitSentences_AbbreviationNotSplit(t *testing.T) {
	// A period not followed by whitespace is not a boundary
	text := "Version 1.2 is out. Done."
	spans := splitSentences(text)
	if len(spans) != 2 {
		t.Fatalf("splitSentences() = %d spans, want 2", len(spans))
	}
	if got := text[spans[0].start:spans[0].end]; got != "Version 1.2 is out." {
		t.Errorf("first sentence = %q", got)
	}
}
