// Package vector abstracts the similarity index that answers top-k chunk
// retrieval. The production implementation is a ChromaDB collection; an
// in-memory brute-force index backs tests and vector-db-less deployments.
package vector

import (
	"context"

	"medassist/internal/model"
)

// Result is one chunk matched to a query, scored in [0,1] and ranked from 0
// in descending score order.
type Result struct {
	Chunk model.Chunk
	Score float64
	Rank  int
}

// Index stores chunk vectors and answers nearest-neighbor queries.
type Index interface {
	// Upsert stores chunks with their embeddings. Re-ingesting a source is a
	// DeleteBySource followed by Upsert; ids are fresh per ingestion.
	Upsert(ctx context.Context, chunks []model.Chunk, vectors [][]float32) error

	// Query returns up to topK chunks with similarity >= minScore, ordered by
	// descending score.
	Query(ctx context.Context, vector []float32, topK int, minScore float64) ([]Result, error)

	// DeleteBySource removes every chunk ingested from the given source title.
	DeleteBySource(ctx context.Context, title string) error

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)
}
