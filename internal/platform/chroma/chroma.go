// Package chroma connects to the ChromaDB server holding the knowledge-base
// collection.
package chroma

import (
	"context"
	"fmt"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
)

// New creates a client and gets or creates the named collection. The
// collection is pinned to cosine space so distances translate directly to
// similarity scores.
func New(ctx context.Context, baseURL, collectionName string) (chromago.Client, chromago.Collection, error) {
	client, err := chromago.NewHTTPClient(chromago.WithBaseURL(baseURL))
	if err != nil {
		return nil, nil, fmt.Errorf("create chroma client failed: %w", err)
	}

	collection, err := client.GetOrCreateCollection(
		ctx,
		collectionName,
		chromago.WithCollectionMetadataCreate(
			chromago.NewMetadata(
				chromago.NewStringAttribute("description", "medical guideline knowledge base"),
				chromago.NewStringAttribute("hnsw:space", "cosine"),
			),
		),
	)
	if err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("get or create chroma collection failed: %w", err)
	}

	return client, collection, nil
}
