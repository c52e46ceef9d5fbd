package embedding

import (
	"context"
	"math"
)

// MockEmbedder is a deterministic embedder for tests: the same text always
// maps to the same unit vector, and different texts rarely collide.
type MockEmbedder struct {
	dims int
}

// NewMockEmbedder returns a deterministic embedder of the given dimensions.
func NewMockEmbedder(dims int) *MockEmbedder {
	if dims <= 0 {
		dims = 384
	}
	return &MockEmbedder{dims: dims}
}

// Embed derives a normalized vector from the text hash.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	h := hashToken(text)
	vec := make([]float32, e.dims)
	for i := range vec {
		vec[i] = float32(math.Sin(float64(h*(i+1)))*0.1 + 0.01)
	}
	NormalizeL2(vec)
	return vec, nil
}

// EmbedBatch calls Embed per text.
func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (e *MockEmbedder) Dimensions() int { return e.dims }

func (e *MockEmbedder) Close() error { return nil }
