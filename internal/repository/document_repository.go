package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"medassist/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Upsert inserts the document or refreshes the existing row with the same
// title. Title is the logical identity of a knowledge document.
func (r *DocumentRepository) Upsert(ctx context.Context, document *model.Document) error {
	var existing model.Document
	err := r.db.WithContext(ctx).Where("title = ?", document.Title).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := r.db.WithContext(ctx).Create(document).Error; err != nil {
			return fmt.Errorf("create document failed: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("query document failed: %w", err)
	}

	document.ID = existing.ID
	document.CreatedAt = existing.CreatedAt
	if err := r.db.WithContext(ctx).Save(document).Error; err != nil {
		return fmt.Errorf("update document failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByTitle(ctx context.Context, title string) (*model.Document, error) {
	var document model.Document
	err := r.db.WithContext(ctx).Where("title = ?", title).First(&document).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query document failed: %w", err)
	}
	return &document, nil
}

// GetBySourcePath finds the document ingested from a corpus file, which may
// carry a title unrelated to its filename.
func (r *DocumentRepository) GetBySourcePath(ctx context.Context, sourcePath string) (*model.Document, error) {
	var document model.Document
	err := r.db.WithContext(ctx).Where("source_path = ?", sourcePath).First(&document).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query document failed: %w", err)
	}
	return &document, nil
}

func (r *DocumentRepository) List(ctx context.Context) ([]model.Document, error) {
	var documents []model.Document
	if err := r.db.WithContext(ctx).Order("title ASC").Find(&documents).Error; err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	return documents, nil
}

func (r *DocumentRepository) DeleteByTitle(ctx context.Context, title string) error {
	if err := r.db.WithContext(ctx).Where("title = ?", title).Delete(&model.Document{}).Error; err != nil {
		return fmt.Errorf("delete document failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Document{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count documents failed: %w", err)
	}
	return count, nil
}
