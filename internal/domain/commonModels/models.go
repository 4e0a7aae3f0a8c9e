package commonModels

import "time"

type SourceType string

const (
	SourceFile SourceType = "file"
	SourceURL  SourceType = "url"

	DocTypeHTML = "html"
)

// Document is the persisted record for one ingested file or web page.
// ContentHash is unique; VectorIDs are the index keys owned by the document.
type Document struct {
	ID           int64      `json:"id"`
	Filename     string     `json:"filename"`
	SourceType   SourceType `json:"source_type"`
	SourceURL    string     `json:"source_url"`
	FilePath     string     `json:"-"`
	DocumentType string     `json:"document_type"`
	ContentHash  string     `json:"content_hash"`
	VectorIDs    []string   `json:"vector_ids"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type DocumentStats struct {
	TotalDocuments int            `json:"total_documents"`
	DocumentTypes  map[string]int `json:"document_types"`
	SourceTypes    map[string]int `json:"source_types"`
	FileCount      int            `json:"file_documents"`
	URLCount       int            `json:"url_documents"`
}

// Unit is one span of raw text produced by a loader, e.g. a PDF page.
type Unit struct {
	Text     string
	Metadata map[string]any
}

type Chunk struct {
	Text     string
	Metadata map[string]any
	Index    int
}

type ScoredChunk struct {
	Text       string         `json:"text"`
	Metadata   map[string]any `json:"metadata"`
	Score      float32        `json:"score"`
	DocumentID int64          `json:"document_id"`
	ChunkIndex int            `json:"chunk_index"`
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CopyMetadata returns a shallow copy so chunks never share a map.
func CopyMetadata(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src)+2)
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
