package vector

import (
	"context"
	"math"
	"testing"

	"medassist/internal/model"
)

func unit(values ...float32) []float32 {
	var sum float64
	for _, v := range values {
		sum += float64(v) * float64(v)
	}
	norm := float32(1 / math.Sqrt(sum))
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = v * norm
	}
	return out
}

func TestMemoryIndexQueryRanking(t *testing.T) {
	idx := NewMemoryIndex()
	chunks := []model.Chunk{
		{ID: "a", Title: "doc-a", Content: "alpha"},
		{ID: "b", Title: "doc-b", Content: "beta"},
		{ID: "c", Title: "doc-c", Content: "gamma"},
	}
	vectors := [][]float32{
		unit(1, 0, 0),
		unit(1, 1, 0),
		unit(0, 0, 1),
	}
	if err := idx.Upsert(context.Background(), chunks, vectors); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	results, err := idx.Query(context.Background(), unit(1, 0, 0), 3, 0.1)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2 (orthogonal vector filtered out)", len(results))
	}
	if results[0].Chunk.ID != "a" || results[1].Chunk.ID != "b" {
		t.Fatalf("unexpected order: %s, %s", results[0].Chunk.ID, results[1].Chunk.ID)
	}
	for i, res := range results {
		if res.Rank != i {
			t.Fatalf("rank %d != position %d", res.Rank, i)
		}
		if res.Score < 0 || res.Score > 1 {
			t.Fatalf("score %v out of [0,1]", res.Score)
		}
	}
}

func TestMemoryIndexTopKLimit(t *testing.T) {
	idx := NewMemoryIndex()
	chunks := make([]model.Chunk, 10)
	vectors := make([][]float32, 10)
	for i := range chunks {
		chunks[i] = model.Chunk{ID: string(rune('a' + i)), Title: "doc"}
		vectors[i] = unit(1, float32(i)*0.01)
	}
	if err := idx.Upsert(context.Background(), chunks, vectors); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	results, err := idx.Query(context.Background(), unit(1, 0), 3, 0)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want topK=3", len(results))
	}
}

func TestMemoryIndexMinScoreFilter(t *testing.T) {
	idx := NewMemoryIndex()
	err := idx.Upsert(context.Background(),
		[]model.Chunk{{ID: "far", Title: "doc"}},
		[][]float32{unit(0, 1)})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	results, err := idx.Query(context.Background(), unit(1, 0), 5, 0.7)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("got %d results, want none below min score", len(results))
	}
}

func TestMemoryIndexDeleteBySource(t *testing.T) {
	idx := NewMemoryIndex()
	chunks := []model.Chunk{
		{ID: "1", Title: "keep"},
		{ID: "2", Title: "drop"},
		{ID: "3", Title: "drop"},
	}
	vectors := [][]float32{unit(1, 0), unit(0, 1), unit(1, 1)}
	if err := idx.Upsert(context.Background(), chunks, vectors); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if err := idx.DeleteBySource(context.Background(), "drop"); err != nil {
		t.Fatalf("DeleteBySource: %v", err)
	}
	count, err := idx.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d after delete, want 1", count)
	}
}

func TestMemoryIndexUpsertLengthMismatch(t *testing.T) {
	idx := NewMemoryIndex()
	err := idx.Upsert(context.Background(), []model.Chunk{{ID: "1"}}, nil)
	if err == nil {
		t.Fatal("expected error on chunk/vector length mismatch")
	}
}

func TestCosineClamps(t *testing.T) {
	if got := Cosine(unit(1, 0), unit(-1, 0)); got != 0 {
		t.Fatalf("negative similarity should clamp to 0, got %v", got)
	}
	if got := Cosine(nil, unit(1, 0)); got != 0 {
		t.Fatalf("mismatched lengths should score 0, got %v", got)
	}
	if got := Cosine(unit(1, 0), unit(1, 0)); math.Abs(got-1) > 1e-6 {
		t.Fatalf("identical vectors should score 1, got %v", got)
	}
}
