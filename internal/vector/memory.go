package vector

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"medassist/internal/model"
)

// MemoryIndex is a brute-force in-memory index. Assumes normalized vectors,
// so inner product equals cosine similarity. Fine for a demo corpus and for
// tests; anything larger belongs in Chroma.
type MemoryIndex struct {
	mu      sync.RWMutex
	chunks  map[string]model.Chunk
	vectors map[string][]float32
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		chunks:  make(map[string]model.Chunk),
		vectors: make(map[string][]float32),
	}
}

func (m *MemoryIndex) Upsert(ctx context.Context, chunks []model.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch: %d vs %d", len(chunks), len(vectors))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range chunks {
		vec := make([]float32, len(vectors[i]))
		copy(vec, vectors[i])
		m.chunks[c.ID] = c
		m.vectors[c.ID] = vec
	}
	return nil
}

func (m *MemoryIndex) Query(ctx context.Context, vector []float32, topK int, minScore float64) ([]Result, error) {
	if topK <= 0 {
		return nil, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]Result, 0, len(m.chunks))
	for id, vec := range m.vectors {
		score := Cosine(vector, vec)
		if score < minScore {
			continue
		}
		results = append(results, Result{Chunk: m.chunks[id], Score: score})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.ID < results[j].Chunk.ID
	})
	if topK < len(results) {
		results = results[:topK]
	}
	for i := range results {
		results[i].Rank = i
	}
	return results, nil
}

func (m *MemoryIndex) DeleteBySource(ctx context.Context, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.chunks {
		if c.Title == title {
			delete(m.chunks, id)
			delete(m.vectors, id)
		}
	}
	return nil
}

func (m *MemoryIndex) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks), nil
}

// Cosine returns the similarity of two normalized vectors, clamped to [0,1].
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	if dot < 0 {
		return 0
	}
	if dot > 1 {
		return 1
	}
	return dot
}
