package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"medassist/internal/model"
)

var ErrMessageEnqueue = errors.New("message enqueue failed")

// AsyncMessagePublisher hands messages to the persistence queue.
type AsyncMessagePublisher interface {
	Publish(ctx context.Context, msg model.Message) error
}

// ConversationRepo is the conversation persistence surface the service needs.
type ConversationRepo interface {
	Create(ctx context.Context, conversation *model.Conversation) error
	GetByID(ctx context.Context, id string) (*model.Conversation, error)
	Touch(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// MessageRepo is the message persistence surface the service needs.
type MessageRepo interface {
	ListByConversationID(ctx context.Context, conversationID string) ([]model.Message, error)
	DeleteByConversationID(ctx context.Context, conversationID string) error
}

// HistoryCache keeps recent transcripts out of mysql on the hot path. The
// dirty marker covers the window between enqueueing a message and the worker
// writing it, so a stale transcript is never cached during that window.
type HistoryCache interface {
	GetHistory(ctx context.Context, conversationID string) ([]model.Message, bool, error)
	SetHistory(ctx context.Context, conversationID string, messages []model.Message) error
	DeleteHistory(ctx context.Context, conversationID string) error
	MarkDirty(ctx context.Context, conversationID string) error
	IsDirty(ctx context.Context, conversationID string) (bool, error)
}

// ConversationService owns conversation lifecycle and transcript access.
// Messages are persisted asynchronously via the publisher; reads go through
// the history cache when it is clean.
type ConversationService struct {
	conversationRepo ConversationRepo
	messageRepo      MessageRepo
	publisher        AsyncMessagePublisher
	historyCache     HistoryCache
	logger           *zap.Logger
}

func NewConversationService(
	conversationRepo ConversationRepo,
	messageRepo MessageRepo,
	publisher AsyncMessagePublisher,
	historyCache HistoryCache,
	logger *zap.Logger,
) *ConversationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConversationService{
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		publisher:        publisher,
		historyCache:     historyCache,
		logger:           logger,
	}
}

// GetOrCreate resolves the conversation for a chat turn. An empty id starts a
// fresh conversation; an unknown id is created with that id, so a browser that
// kept an id across a server restart keeps its thread.
func (s *ConversationService) GetOrCreate(ctx context.Context, id, title string) (*model.Conversation, error) {
	if id != "" {
		existing, err := s.conversationRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	conversation := &model.Conversation{
		ID:    id,
		Title: conversationTitle(title),
	}
	if conversation.ID == "" {
		conversation.ID = uuid.NewString()
	}
	if err := s.conversationRepo.Create(ctx, conversation); err != nil {
		return nil, err
	}
	return conversation, nil
}

// History returns the full transcript in chronological order. An unknown or
// cleared conversation reads as an empty transcript, never an error, so a
// browser holding a stale id sees a fresh thread rather than a failure.
func (s *ConversationService) History(ctx context.Context, conversationID string) ([]model.Message, error) {
	if conversationID == "" {
		return nil, ErrInvalidInput
	}
	conversation, err := s.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conversation == nil {
		return []model.Message{}, nil
	}

	if s.historyCache != nil {
		dirty, err := s.historyCache.IsDirty(ctx, conversationID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.historyCache.GetHistory(ctx, conversationID); cacheErr == nil && hit {
				return cached, nil
			}
		}
	}

	messages, err := s.messageRepo.ListByConversationID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if s.historyCache != nil {
		if dirty, dirtyErr := s.historyCache.IsDirty(ctx, conversationID); dirtyErr == nil && !dirty {
			if cacheErr := s.historyCache.SetHistory(ctx, conversationID, messages); cacheErr != nil {
				s.logger.Warn("history cache write failed", zap.Error(cacheErr))
			}
		}
	}
	return messages, nil
}

// RecentHistory returns up to limit most recent messages, oldest first.
func (s *ConversationService) RecentHistory(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	messages, err := s.History(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return messages, nil
}

// AppendTurn enqueues the user question and the assistant answer for
// persistence. Both messages are enqueued together, after generation
// succeeded, so a failed turn leaves the transcript untouched.
func (s *ConversationService) AppendTurn(ctx context.Context, userMsg, assistantMsg *model.Message) error {
	if s.publisher == nil {
		return ErrMessageEnqueue
	}
	conversationID := userMsg.ConversationID

	if s.historyCache != nil {
		if err := s.historyCache.MarkDirty(ctx, conversationID); err != nil {
			s.logger.Warn("mark history dirty failed", zap.Error(err))
		}
		if err := s.historyCache.DeleteHistory(ctx, conversationID); err != nil {
			s.logger.Warn("invalidate history cache failed", zap.Error(err))
		}
	}

	now := time.Now()
	if userMsg.CreatedAt.IsZero() {
		userMsg.CreatedAt = now
	}
	if assistantMsg.CreatedAt.IsZero() {
		assistantMsg.CreatedAt = now
	}
	if err := s.publisher.Publish(ctx, *userMsg); err != nil {
		return ErrMessageEnqueue
	}
	if err := s.publisher.Publish(ctx, *assistantMsg); err != nil {
		return ErrMessageEnqueue
	}

	if err := s.conversationRepo.Touch(ctx, conversationID); err != nil {
		s.logger.Warn("touch conversation failed", zap.Error(err))
	}
	return nil
}

// Clear deletes the conversation, its messages, and any cached history.
// Clearing an unknown id is a no-op; after a clear, History reads back empty.
func (s *ConversationService) Clear(ctx context.Context, conversationID string) error {
	if conversationID == "" {
		return ErrInvalidInput
	}

	if err := s.messageRepo.DeleteByConversationID(ctx, conversationID); err != nil {
		return err
	}
	if err := s.conversationRepo.Delete(ctx, conversationID); err != nil {
		return err
	}
	if s.historyCache != nil {
		if err := s.historyCache.DeleteHistory(ctx, conversationID); err != nil {
			s.logger.Warn("invalidate history cache failed", zap.Error(err))
		}
	}
	return nil
}

func conversationTitle(seed string) string {
	title := strings.TrimSpace(seed)
	if title == "" {
		return "New Conversation"
	}
	runes := []rune(title)
	if len(runes) > 80 {
		title = string(runes[:80])
	}
	return title
}
