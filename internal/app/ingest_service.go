package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/textsplitter"
	"go.uber.org/zap"

	"medassist/internal/corpus"
	"medassist/internal/embedding"
	"medassist/internal/model"
	"medassist/internal/vector"
)

const (
	chunkSize          = 1000
	chunkOverlap       = 100
	embeddingBatchSize = 10
)

var ErrDocumentNotFound = errors.New("document not found")

// DocumentRepo is the document persistence surface the service needs.
type DocumentRepo interface {
	Upsert(ctx context.Context, document *model.Document) error
	GetByTitle(ctx context.Context, title string) (*model.Document, error)
	GetBySourcePath(ctx context.Context, sourcePath string) (*model.Document, error)
	List(ctx context.Context) ([]model.Document, error)
	DeleteByTitle(ctx context.Context, title string) error
	Count(ctx context.Context) (int64, error)
}

// IngestService turns source documents into indexed chunks: split, embed in
// batches, replace the document's chunks in the vector index, and record the
// document row. Re-ingesting the same title replaces its chunks atomically
// from the caller's point of view.
type IngestService struct {
	docRepo   DocumentRepo
	embedder  embedding.Embedder
	index     vector.Index
	splitter  textsplitter.RecursiveCharacter
	corpusDir string
	logger    *zap.Logger
}

func NewIngestService(
	docRepo DocumentRepo,
	embedder embedding.Embedder,
	index vector.Index,
	corpusDir string,
	logger *zap.Logger,
) *IngestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestService{
		docRepo:  docRepo,
		embedder: embedder,
		index:    index,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
		),
		corpusDir: corpusDir,
		logger:    logger,
	}
}

type IngestInput struct {
	Title      string
	Category   string
	Content    string
	SourcePath string
}

type IngestResult struct {
	Document   model.Document `json:"document"`
	ChunkCount int            `json:"chunk_count"`
	Skipped    bool           `json:"skipped"` // content unchanged since last ingestion
}

// KnowledgeStats summarizes the indexed knowledge base.
type KnowledgeStats struct {
	DocumentCount int64 `json:"document_count"`
	ChunkCount    int   `json:"chunk_count"`
}

// LoadReport summarizes a directory load or reindex run.
type LoadReport struct {
	Documents int `json:"documents"`
	Chunks    int `json:"chunks"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Ingest indexes one document, skipping work when the content hash matches
// the previous ingestion of the same title.
func (s *IngestService) Ingest(ctx context.Context, input IngestInput) (*IngestResult, error) {
	return s.ingest(ctx, input, false)
}

func (s *IngestService) ingest(ctx context.Context, input IngestInput, force bool) (*IngestResult, error) {
	title := strings.TrimSpace(input.Title)
	content := strings.TrimSpace(input.Content)
	if title == "" || content == "" {
		return nil, ErrInvalidInput
	}
	category := strings.TrimSpace(input.Category)
	if category == "" {
		category = "general"
	}

	sum := sha256.Sum256([]byte(content))
	hash := hex.EncodeToString(sum[:])

	existing, err := s.docRepo.GetByTitle(ctx, title)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.ContentHash == hash && !force {
		return &IngestResult{Document: *existing, ChunkCount: existing.ChunkCount, Skipped: true}, nil
	}

	parts, err := s.splitter.SplitText(content)
	if err != nil {
		return nil, err
	}
	chunks := make([]model.Chunk, 0, len(parts))
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		chunks = append(chunks, model.Chunk{
			ID:       uuid.NewString(),
			Title:    title,
			Content:  part,
			Category: category,
			Ordinal:  i,
		})
	}
	if len(chunks) == 0 {
		return nil, ErrInvalidInput
	}

	vectors, err := s.embedChunks(ctx, chunks)
	if err != nil {
		return nil, err
	}

	if err := s.index.DeleteBySource(ctx, title); err != nil {
		return nil, err
	}
	if err := s.index.Upsert(ctx, chunks, vectors); err != nil {
		return nil, err
	}

	doc := &model.Document{
		Title:       title,
		Category:    category,
		SourcePath:  input.SourcePath,
		ContentHash: hash,
		ChunkCount:  len(chunks),
	}
	if err := s.docRepo.Upsert(ctx, doc); err != nil {
		return nil, err
	}

	s.logger.Info("document ingested",
		zap.String("title", title),
		zap.String("category", category),
		zap.Int("chunks", len(chunks)))
	return &IngestResult{Document: *doc, ChunkCount: len(chunks)}, nil
}

// embedChunks calls the embedder in batches to stay under provider limits.
func (s *IngestService) embedChunks(ctx context.Context, chunks []model.Chunk) ([][]float32, error) {
	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Content
	}

	vectors := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += embeddingBatchSize {
		end := i + embeddingBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := s.embedder.EmbedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	if len(vectors) != len(chunks) {
		return nil, errors.New("embedding count mismatch")
	}
	return vectors, nil
}

// IngestFile loads and indexes one corpus file.
func (s *IngestService) IngestFile(ctx context.Context, path string) (*IngestResult, error) {
	file, err := corpus.Load(s.corpusDir, path)
	if err != nil {
		return nil, err
	}
	return s.Ingest(ctx, IngestInput{
		Title:      file.Title,
		Category:   file.Category,
		Content:    file.Content,
		SourcePath: file.Path,
	})
}

// LoadDir ingests every supported file under the corpus directory.
func (s *IngestService) LoadDir(ctx context.Context) (*LoadReport, error) {
	return s.loadDir(ctx, false)
}

// Reindex re-ingests the whole corpus directory, ignoring content hashes.
func (s *IngestService) Reindex(ctx context.Context) (*LoadReport, error) {
	return s.loadDir(ctx, true)
}

func (s *IngestService) loadDir(ctx context.Context, force bool) (*LoadReport, error) {
	report := &LoadReport{}
	files, err := corpus.LoadDir(s.corpusDir, func(path string, err error) {
		report.Failed++
		s.logger.Warn("skipping corpus file", zap.String("path", path), zap.Error(err))
	})
	if err != nil {
		return nil, err
	}

	for _, file := range files {
		result, err := s.ingest(ctx, IngestInput{
			Title:      file.Title,
			Category:   file.Category,
			Content:    file.Content,
			SourcePath: file.Path,
		}, force)
		if err != nil {
			report.Failed++
			s.logger.Warn("ingest corpus file failed", zap.String("path", file.Path), zap.Error(err))
			continue
		}
		if result.Skipped {
			report.Skipped++
			continue
		}
		report.Documents++
		report.Chunks += result.ChunkCount
	}
	return report, nil
}

// Remove de-indexes a document and deletes its record.
func (s *IngestService) Remove(ctx context.Context, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrInvalidInput
	}
	doc, err := s.docRepo.GetByTitle(ctx, title)
	if err != nil {
		return err
	}
	if doc == nil {
		return ErrDocumentNotFound
	}
	if err := s.index.DeleteBySource(ctx, title); err != nil {
		return err
	}
	if err := s.docRepo.DeleteByTitle(ctx, title); err != nil {
		return err
	}
	s.logger.Info("document removed", zap.String("title", title))
	return nil
}

// RemoveByPath de-indexes the document ingested from a corpus file. The
// document row is looked up by source path first, since JSON files may carry
// an embedded title that does not match the filename; the filename-derived
// title is the fallback for rows ingested before source paths were recorded.
func (s *IngestService) RemoveByPath(ctx context.Context, path string) error {
	doc, err := s.docRepo.GetBySourcePath(ctx, path)
	if err != nil {
		return err
	}
	if doc != nil {
		return s.Remove(ctx, doc.Title)
	}
	return s.Remove(ctx, corpus.TitleForPath(path))
}

// List returns all indexed documents.
func (s *IngestService) List(ctx context.Context) ([]model.Document, error) {
	return s.docRepo.List(ctx)
}

// Stats reports document and chunk counts.
func (s *IngestService) Stats(ctx context.Context) (*KnowledgeStats, error) {
	docCount, err := s.docRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	chunkCount, err := s.index.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &KnowledgeStats{DocumentCount: docCount, ChunkCount: chunkCount}, nil
}

// SeedIfEmpty loads a small built-in set of medical reference documents when
// the knowledge base has nothing in it, so a fresh deployment can answer
// questions before any corpus is ingested.
func (s *IngestService) SeedIfEmpty(ctx context.Context) error {
	docCount, err := s.docRepo.Count(ctx)
	if err != nil {
		return err
	}
	if docCount > 0 {
		return nil
	}
	chunkCount, err := s.index.Count(ctx)
	if err != nil {
		return err
	}
	if chunkCount > 0 {
		return nil
	}

	for _, seed := range seedDocuments {
		if _, err := s.Ingest(ctx, seed); err != nil {
			return err
		}
	}
	s.logger.Info("seeded knowledge base", zap.Int("documents", len(seedDocuments)))
	return nil
}
