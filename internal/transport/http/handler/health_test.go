package handler

import (
	"context"
	"errors"
	"testing"

	"medassist/internal/bootstrap"
	"medassist/internal/embedding"
)

type downEmbedder struct{}

func (downEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("embeddings endpoint unreachable")
}

func (downEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("embeddings endpoint unreachable")
}

func (downEmbedder) Dimensions() int { return 0 }
func (downEmbedder) Close() error    { return nil }

func TestCheckEmbedder(t *testing.T) {
	h := NewHealthHandler(&bootstrap.App{Embedder: embedding.NewMockEmbedder(8)})
	status := h.checkEmbedder(context.Background())
	if !status.OK {
		t.Fatalf("status = %+v, want ok", status)
	}
}

func TestCheckEmbedderDown(t *testing.T) {
	h := NewHealthHandler(&bootstrap.App{Embedder: downEmbedder{}})
	status := h.checkEmbedder(context.Background())
	if status.OK {
		t.Fatal("status ok, want failure")
	}
	if status.Message == "" {
		t.Fatal("expected failure message")
	}
}
