package model

import "time"

// Document records one ingested knowledge-base source. The chunk text and
// embeddings live in the vector index; this row is the admin-facing handle
// used to list sources and to de-index them by title.
type Document struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:256;not null;uniqueIndex" json:"title"`
	Category    string    `gorm:"size:64;not null;index" json:"category"`
	SourcePath  string    `gorm:"size:512" json:"source_path,omitempty"`
	ContentHash string    `gorm:"size:64" json:"-"` // sha256 of the raw content
	ChunkCount  int       `json:"chunk_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
