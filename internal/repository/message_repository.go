package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"medassist/internal/model"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(ctx context.Context, message *model.Message) error {
	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		return fmt.Errorf("create message failed: %w", err)
	}
	return nil
}

// ListByConversationID returns the full transcript in chronological order.
func (r *MessageRepository) ListByConversationID(ctx context.Context, conversationID string) ([]model.Message, error) {
	var messages []model.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("query messages failed: %w", err)
	}
	return messages, nil
}

func (r *MessageRepository) DeleteByConversationID(ctx context.Context, conversationID string) error {
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Delete(&model.Message{}).Error
	if err != nil {
		return fmt.Errorf("delete messages failed: %w", err)
	}
	return nil
}
