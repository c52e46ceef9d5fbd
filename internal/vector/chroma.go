package vector

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"

	"medassist/internal/model"
)

// ChromaIndex stores chunks in a ChromaDB collection configured for cosine
// space. Chroma returns cosine distances; scores are 1 - distance, clamped
// to [0,1].
type ChromaIndex struct {
	collection chromago.Collection
}

func NewChromaIndex(collection chromago.Collection) *ChromaIndex {
	return &ChromaIndex{collection: collection}
}

func (c *ChromaIndex) Upsert(ctx context.Context, chunks []model.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch: %d vs %d", len(chunks), len(vectors))
	}
	for i, chunk := range chunks {
		metadata := chromago.NewDocumentMetadata(
			chromago.NewStringAttribute("chunk_id", chunk.ID),
			chromago.NewStringAttribute("title", chunk.Title),
			chromago.NewStringAttribute("category", chunk.Category),
			chromago.NewIntAttribute("ordinal", int64(chunk.Ordinal)),
		)
		err := c.collection.Add(ctx,
			chromago.WithIDs(chromago.DocumentID(chunk.ID)),
			chromago.WithTexts(chunk.Content),
			chromago.WithEmbeddings(embeddings.NewEmbeddingFromFloat32(vectors[i])),
			chromago.WithMetadatas(metadata),
		)
		if err != nil {
			return fmt.Errorf("upsert chunk %s to chromadb failed: %w", chunk.ID, err)
		}
	}
	return nil
}

func (c *ChromaIndex) Query(ctx context.Context, vector []float32, topK int, minScore float64) ([]Result, error) {
	if topK <= 0 {
		return nil, nil
	}
	res, err := c.collection.Query(ctx,
		chromago.WithQueryEmbeddings(embeddings.NewEmbeddingFromFloat32(vector)),
		chromago.WithNResults(topK),
	)
	if err != nil {
		return nil, fmt.Errorf("query chromadb failed: %w", err)
	}

	documentGroups := res.GetDocumentsGroups()
	metadataGroups := res.GetMetadatasGroups()
	distanceGroups := res.GetDistancesGroups()
	if len(documentGroups) == 0 {
		return nil, nil
	}

	var results []Result
	for i, doc := range documentGroups[0] {
		content := doc.ContentString()
		if content == "" {
			continue
		}
		score := 0.0
		if len(distanceGroups) > 0 && i < len(distanceGroups[0]) {
			score = 1.0 - float64(distanceGroups[0][i])
		}
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}
		if score < minScore {
			continue
		}

		chunk := model.Chunk{Content: content}
		if len(metadataGroups) > 0 && i < len(metadataGroups[0]) {
			applyMetadata(&chunk, metadataGroups[0][i])
		}
		results = append(results, Result{Chunk: chunk, Score: score, Rank: len(results)})
	}
	return results, nil
}

func (c *ChromaIndex) DeleteBySource(ctx context.Context, title string) error {
	where := chromago.EqString("title", title)
	if err := c.collection.Delete(ctx, chromago.WithWhereDelete(where)); err != nil {
		return fmt.Errorf("delete chunks for %q from chromadb failed: %w", title, err)
	}
	return nil
}

func (c *ChromaIndex) Count(ctx context.Context) (int, error) {
	count, err := c.collection.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count chromadb collection failed: %w", err)
	}
	return int(count), nil
}

// applyMetadata copies chunk fields out of a chroma document metadata. The
// metadata type has no map accessor, so it goes through a JSON round trip.
func applyMetadata(chunk *model.Chunk, metadata chromago.DocumentMetadata) {
	if metadata == nil {
		return
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return
	}
	if v, ok := m["chunk_id"].(string); ok {
		chunk.ID = v
	}
	if v, ok := m["title"].(string); ok {
		chunk.Title = v
	}
	if v, ok := m["category"].(string); ok {
		chunk.Category = v
	}
	switch v := m["ordinal"].(type) {
	case float64:
		chunk.Ordinal = int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			chunk.Ordinal = n
		}
	}
}
