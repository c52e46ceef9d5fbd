package app

import (
	"context"
	"errors"
	"testing"

	"medassist/internal/embedding"
	"medassist/internal/model"
	"medassist/internal/vector"
)

type memDocumentRepo struct {
	docs map[string]*model.Document // keyed by title
}

func newMemDocumentRepo() *memDocumentRepo {
	return &memDocumentRepo{docs: make(map[string]*model.Document)}
}

func (r *memDocumentRepo) Upsert(_ context.Context, document *model.Document) error {
	copied := *document
	r.docs[document.Title] = &copied
	return nil
}

func (r *memDocumentRepo) GetByTitle(_ context.Context, title string) (*model.Document, error) {
	return r.docs[title], nil
}

func (r *memDocumentRepo) GetBySourcePath(_ context.Context, sourcePath string) (*model.Document, error) {
	for _, doc := range r.docs {
		if doc.SourcePath != "" && doc.SourcePath == sourcePath {
			return doc, nil
		}
	}
	return nil, nil
}

func (r *memDocumentRepo) List(_ context.Context) ([]model.Document, error) {
	documents := make([]model.Document, 0, len(r.docs))
	for _, doc := range r.docs {
		documents = append(documents, *doc)
	}
	return documents, nil
}

func (r *memDocumentRepo) DeleteByTitle(_ context.Context, title string) error {
	delete(r.docs, title)
	return nil
}

func (r *memDocumentRepo) Count(_ context.Context) (int64, error) {
	return int64(len(r.docs)), nil
}

func newTestIngestService() (*IngestService, *memDocumentRepo, vector.Index) {
	docRepo := newMemDocumentRepo()
	index := vector.NewMemoryIndex()
	svc := NewIngestService(docRepo, embedding.NewMockEmbedder(32), index, "", nil)
	return svc, docRepo, index
}

func TestIngestSkipsUnchangedContent(t *testing.T) {
	svc, _, _ := newTestIngestService()
	ctx := context.Background()

	input := IngestInput{Title: "Asthma Basics", Content: "Asthma narrows the airways."}
	first, err := svc.Ingest(ctx, input)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if first.Skipped {
		t.Fatal("first ingestion must not be skipped")
	}

	second, err := svc.Ingest(ctx, input)
	if err != nil {
		t.Fatalf("re-Ingest: %v", err)
	}
	if !second.Skipped {
		t.Fatal("unchanged content must be skipped")
	}
}

func TestRemoveByPathResolvesEmbeddedTitle(t *testing.T) {
	svc, docRepo, index := newTestIngestService()
	ctx := context.Background()

	// A JSON corpus file whose embedded title has nothing to do with its
	// filename.
	_, err := svc.Ingest(ctx, IngestInput{
		Title:      "WHO Hypertension Guideline 2023",
		Category:   "cardiology",
		Content:    "Adults with sustained elevated blood pressure should be assessed.",
		SourcePath: "/corpus/cardiology/doc42.json",
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if err := svc.RemoveByPath(ctx, "/corpus/cardiology/doc42.json"); err != nil {
		t.Fatalf("RemoveByPath: %v", err)
	}
	if count, _ := docRepo.Count(ctx); count != 0 {
		t.Fatalf("document count = %d, want 0 after removal", count)
	}
	if count, err := index.Count(ctx); err != nil || count != 0 {
		t.Fatalf("index count = %d (err %v), want 0 after removal", count, err)
	}
}

func TestRemoveByPathFallsBackToFilename(t *testing.T) {
	svc, docRepo, _ := newTestIngestService()
	ctx := context.Background()

	// No recorded source path; the filename-derived title is the only handle.
	_, err := svc.Ingest(ctx, IngestInput{
		Title:   "flu overview",
		Content: "Influenza is a viral respiratory infection.",
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if err := svc.RemoveByPath(ctx, "/corpus/flu_overview.md"); err != nil {
		t.Fatalf("RemoveByPath: %v", err)
	}
	if count, _ := docRepo.Count(ctx); count != 0 {
		t.Fatalf("document count = %d, want 0 after removal", count)
	}
}

func TestRemoveByPathUnknownDocument(t *testing.T) {
	svc, _, _ := newTestIngestService()
	if err := svc.RemoveByPath(context.Background(), "/corpus/never_ingested.md"); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("err = %v, want ErrDocumentNotFound", err)
	}
}
