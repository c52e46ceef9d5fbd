package app

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"medassist/internal/ai"
	"medassist/internal/embedding"
	"medassist/internal/model"
	"medassist/internal/vector"
)

var ErrEmptyQuery = errors.New("query is empty")

const generationFallback = "I'm sorry, I'm having trouble generating a response right now. " +
	"Please try again in a moment. If you have an urgent medical concern, contact a healthcare " +
	"professional or emergency services directly."

// ChatCompleter is the LLM surface the RAG pipeline needs.
type ChatCompleter interface {
	Complete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage) (string, error)
	StreamComplete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage, onChunk func(string) error) (string, error)
}

// ConversationStore is the slice of ConversationService the pipeline uses.
type ConversationStore interface {
	GetOrCreate(ctx context.Context, id, title string) (*model.Conversation, error)
	RecentHistory(ctx context.Context, conversationID string, limit int) ([]model.Message, error)
	AppendTurn(ctx context.Context, userMsg, assistantMsg *model.Message) error
}

// RetrievalOptions bound the retrieval and prompt-assembly stages.
type RetrievalOptions struct {
	TopK           int
	MinScore       float64
	MaxPromptChars int
	MaxHistory     int
}

// RAGService answers medical questions with retrieval-augmented generation:
// embed the question, fetch the top-k most similar chunks, assemble a bounded
// prompt with conversation history, and generate. Retrieval failures degrade
// to context-free generation; only a generation failure surfaces to the user,
// as a fallback answer that is never written to the transcript.
type RAGService struct {
	completer     ChatCompleter
	embedder      embedding.Embedder
	index         vector.Index
	conversations ConversationStore
	chatConfig    ai.ChatConfig
	opts          RetrievalOptions
	logger        *zap.Logger
}

func NewRAGService(
	completer ChatCompleter,
	embedder embedding.Embedder,
	index vector.Index,
	conversations ConversationStore,
	chatConfig ai.ChatConfig,
	opts RetrievalOptions,
	logger *zap.Logger,
) *RAGService {
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	if opts.MinScore <= 0 {
		opts.MinScore = 0.7
	}
	if opts.MaxPromptChars <= 0 {
		opts.MaxPromptChars = defaultMaxPromptChars
	}
	if opts.MaxHistory <= 0 {
		opts.MaxHistory = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RAGService{
		completer:     completer,
		embedder:      embedder,
		index:         index,
		conversations: conversations,
		chatConfig:    chatConfig,
		opts:          opts,
		logger:        logger,
	}
}

type AnswerInput struct {
	ConversationID string
	Question       string
}

// AnswerResult is one completed chat turn. ErrorCode is empty on success;
// when generation failed it identifies the failure and Answer carries the
// fallback text.
type AnswerResult struct {
	ConversationID string                 `json:"conversation_id"`
	Answer         string                 `json:"answer"`
	Sources        []model.SourceCitation `json:"sources"`
	Confidence     float64                `json:"confidence"`
	ContextFound   bool                   `json:"context_found"`
	Disclaimer     string                 `json:"disclaimer"`
	ErrorCode      string                 `json:"error_code,omitempty"`
}

// Answer runs one full chat turn and, on success, appends it to the
// conversation transcript.
func (s *RAGService) Answer(ctx context.Context, input AnswerInput) (*AnswerResult, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, ErrEmptyQuery
	}

	conversation, err := s.conversations.GetOrCreate(ctx, input.ConversationID, question)
	if err != nil {
		return nil, err
	}

	history := s.loadHistory(ctx, conversation.ID)
	retrieved := s.retrieve(ctx, question)
	messages := BuildPrompt(PromptInput{
		Question: question,
		History:  history,
		Context:  retrieved,
		MaxChars: s.opts.MaxPromptChars,
	})

	answer, err := s.completer.Complete(ctx, s.chatConfig, messages)
	if err != nil {
		s.logger.Error("llm completion failed", zap.String("conversation_id", conversation.ID), zap.Error(err))
		return s.fallbackResult(conversation.ID, question, retrieved), nil
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		answer = "The model returned an empty response."
	}

	result := s.successResult(conversation.ID, answer, retrieved)
	s.appendTurn(ctx, conversation.ID, question, result)
	return result, nil
}

// StreamAnswer is Answer with the generated text delivered incrementally via
// onChunk. The returned result carries the full answer; when generation fails
// mid-stream the fallback result is returned and nothing is persisted.
func (s *RAGService) StreamAnswer(
	ctx context.Context,
	input AnswerInput,
	onChunk func(string) error,
) (*AnswerResult, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, ErrEmptyQuery
	}

	conversation, err := s.conversations.GetOrCreate(ctx, input.ConversationID, question)
	if err != nil {
		return nil, err
	}

	history := s.loadHistory(ctx, conversation.ID)
	retrieved := s.retrieve(ctx, question)
	messages := BuildPrompt(PromptInput{
		Question: question,
		History:  history,
		Context:  retrieved,
		MaxChars: s.opts.MaxPromptChars,
	})

	full, err := s.completer.StreamComplete(ctx, s.chatConfig, messages, onChunk)
	if err != nil {
		s.logger.Error("llm stream failed", zap.String("conversation_id", conversation.ID), zap.Error(err))
		return s.fallbackResult(conversation.ID, question, retrieved), nil
	}
	full = strings.TrimSpace(full)
	if full == "" {
		full = "The model returned an empty response."
	}

	result := s.successResult(conversation.ID, full, retrieved)
	s.appendTurn(ctx, conversation.ID, question, result)
	return result, nil
}

// loadHistory fetches recent turns for prompt context. A transcript read
// failure is not fatal to the turn.
func (s *RAGService) loadHistory(ctx context.Context, conversationID string) []model.Message {
	history, err := s.conversations.RecentHistory(ctx, conversationID, s.opts.MaxHistory)
	if err != nil {
		s.logger.Warn("load history failed, proceeding without it",
			zap.String("conversation_id", conversationID), zap.Error(err))
		return nil
	}
	return history
}

// retrieve embeds the question and queries the index. Any failure degrades
// to an empty context so generation can still proceed.
func (s *RAGService) retrieve(ctx context.Context, question string) []vector.Result {
	queryVec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		s.logger.Warn("query embedding failed, answering without context", zap.Error(err))
		return nil
	}
	results, err := s.index.Query(ctx, queryVec, s.opts.TopK, s.opts.MinScore)
	if err != nil {
		s.logger.Warn("vector query failed, answering without context", zap.Error(err))
		return nil
	}
	return results
}

// successResult builds the turn result. Confidence is the best retrieval
// score, zero when nothing relevant was found.
func (s *RAGService) successResult(conversationID, answer string, retrieved []vector.Result) *AnswerResult {
	sources, confidence := citations(retrieved)
	return &AnswerResult{
		ConversationID: conversationID,
		Answer:         answer,
		Sources:        sources,
		Confidence:     confidence,
		ContextFound:   len(retrieved) > 0,
		Disclaimer:     MedicalDisclaimer,
	}
}

// fallbackResult is the turn result when generation failed. When retrieval
// produced context the answer quotes the retrieved references directly, so
// the user still gets the knowledge-base material; the error code is kept so
// clients can tell the turn apart from a generated one.
func (s *RAGService) fallbackResult(conversationID, question string, retrieved []vector.Result) *AnswerResult {
	result := &AnswerResult{
		ConversationID: conversationID,
		Answer:         generationFallback,
		Sources:        []model.SourceCitation{},
		Confidence:     0,
		ContextFound:   len(retrieved) > 0,
		Disclaimer:     MedicalDisclaimer,
		ErrorCode:      "generation_failed",
	}
	if len(retrieved) == 0 {
		return result
	}

	var b strings.Builder
	b.WriteString("I'm unable to generate a response right now, but here is the most relevant information from the medical knowledge base:\n")
	for _, res := range retrieved {
		b.WriteString("\n")
		b.WriteString(res.Chunk.Title)
		b.WriteString(":\n")
		b.WriteString(res.Chunk.Content)
		b.WriteString("\n")
	}
	b.WriteString("\nRegarding your question: \"")
	b.WriteString(question)
	b.WriteString("\". Please consult a qualified healthcare professional for personalized advice.")

	result.Answer = b.String()
	result.Sources, result.Confidence = citations(retrieved)
	return result
}

func citations(retrieved []vector.Result) ([]model.SourceCitation, float64) {
	sources := make([]model.SourceCitation, 0, len(retrieved))
	confidence := 0.0
	for _, res := range retrieved {
		if res.Score > confidence {
			confidence = res.Score
		}
		sources = append(sources, model.SourceCitation{
			Title:   res.Chunk.Title,
			Content: res.Chunk.Content,
			Score:   res.Score,
			Metadata: map[string]string{
				"category": res.Chunk.Category,
			},
		})
	}
	return sources, confidence
}

func (s *RAGService) appendTurn(ctx context.Context, conversationID, question string, result *AnswerResult) {
	userMsg := &model.Message{
		ConversationID: conversationID,
		Role:           "user",
		Content:        question,
	}
	assistantMsg := &model.Message{
		ConversationID: conversationID,
		Role:           "assistant",
		Content:        result.Answer,
		Disclaimer:     result.Disclaimer,
	}
	assistantMsg.SetSources(result.Sources)

	if err := s.conversations.AppendTurn(ctx, userMsg, assistantMsg); err != nil {
		s.logger.Error("persist chat turn failed",
			zap.String("conversation_id", conversationID), zap.Error(err))
	}
}
