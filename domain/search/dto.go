package search

// Mode selects which retrieval legs run
type Mode string

const (
	ModeSemantic Mode = "Semantic"
	ModeKeyword  Mode = "Keyword"
	ModeHybrid   Mode = "Hybrid"
)

// Source tags identify which retrieval leg produced a result
const (
	SourceVector  = "vector"
	SourceKeyword = "keyword"
)

// Request is the search request body. Zero values fall back to the live
// search settings.
type Request struct {
	Query    string  `json:"query"`
	Mode     Mode    `json:"mode,omitempty"`
	TopK     int     `json:"topK,omitempty"`
	MinScore float64 `json:"minScore,omitempty"`
	Reranker string  `json:"reranker,omitempty"`

	// Optional scope narrowing within the container
	DocumentID string `json:"documentId,omitempty"`
	PathPrefix string `json:"pathPrefix,omitempty"`
}

// Result is one retrieved chunk with its relevance score
type Result struct {
	ChunkID     string            `json:"chunkId"`
	DocumentID  string            `json:"documentId"`
	ContainerID string            `json:"containerId"`
	FileName    string            `json:"fileName,omitempty"`
	ContentType string            `json:"contentType,omitempty"`
	Path        string            `json:"path,omitempty"`
	ChunkIndex  int               `json:"chunkIndex"`
	Content     string            `json:"content"`
	Score       float32           `json:"score"`
	Source      string            `json:"source"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Response is the search response. TotalMatches counts the returned
// hits, after filtering and the final cut.
type Response struct {
	Results      []*Result `json:"results"`
	Mode         Mode      `json:"mode"`
	Reranker     string    `json:"reranker,omitempty"`
	TotalMatches int       `json:"totalMatches"`
	ElapsedMs    int       `json:"elapsedMs"`
}
