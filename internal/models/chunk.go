package models

// DocumentUnit is one loadable unit of a source document. Plain text files
// and docx documents produce a single unit; PDFs produce one unit per page.
type DocumentUnit struct {
	Text   string `json:"text"`
	Page   int    `json:"page"`
	Source string `json:"source"`
}

// Chunk represents a token-bounded span of a document unit, the unit of
// retrieval. Immutable once produced by the chunker.
type Chunk struct {
	Text       string `json:"text"`
	SourceID   string `json:"source_id"`
	Page       int    `json:"page"`
	Ordinal    int    `json:"ordinal"`
	TokenCount int    `json:"token_count"` // advisory: re-encoded length of the decoded text
}

// RetrievalMatch is a single nearest-neighbor result from the vector index.
// Ephemeral; produced per query and never persisted.
type RetrievalMatch struct {
	SourceID string  `json:"source_id"`
	Page     int     `json:"page"`
	Text     string  `json:"text"`
	Score    float64 `json:"score"`
}

// IngestionTask is the broker payload instructing the service to ingest a file.
type IngestionTask struct {
	TaskID   string `json:"task_id"`
	FilePath string `json:"file_path"`
}
