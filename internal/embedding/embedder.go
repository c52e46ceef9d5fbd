// Package embedding turns text into fixed-length vectors for similarity
// search, either via an OpenAI-compatible HTTP endpoint or a local ONNX model.
package embedding

import "context"

// Embedder produces vector embeddings for text. Implementations must return
// unit-normalized vectors so that inner product equals cosine similarity.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
