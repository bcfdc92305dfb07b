package models

import "time"

// DocumentChunk is a slice of an ingested document, searchable by retrieval.
type DocumentChunk struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Source     string    `json:"source"`
	ChunkIndex int       `json:"chunk_index"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// IngestResult reports how a document was stored.
type IngestResult struct {
	Source string `json:"source"`
	Chunks int    `json:"chunks"`
}

// TextIngestRequest carries raw text to ingest.
type TextIngestRequest struct {
	UserID     string `json:"user_id,omitempty"`
	Text       string `json:"text" validate:"required"`
	SourceName string `json:"source_name,omitempty" validate:"max=200"`
}
