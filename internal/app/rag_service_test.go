package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"medassist/internal/ai"
	"medassist/internal/embedding"
	"medassist/internal/model"
	"medassist/internal/vector"
)

type fakeCompleter struct {
	reply    string
	err      error
	lastMsgs []ai.ChatMessage
}

func (f *fakeCompleter) Complete(_ context.Context, _ ai.ChatConfig, messages []ai.ChatMessage) (string, error) {
	f.lastMsgs = messages
	return f.reply, f.err
}

func (f *fakeCompleter) StreamComplete(_ context.Context, _ ai.ChatConfig, messages []ai.ChatMessage, onChunk func(string) error) (string, error) {
	f.lastMsgs = messages
	if f.err != nil {
		return "", f.err
	}
	for _, part := range strings.SplitAfter(f.reply, " ") {
		if err := onChunk(part); err != nil {
			return "", err
		}
	}
	return f.reply, nil
}

type fakeStore struct {
	conversations map[string]*model.Conversation
	messages      map[string][]model.Message
	appendErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		conversations: make(map[string]*model.Conversation),
		messages:      make(map[string][]model.Message),
	}
}

func (f *fakeStore) GetOrCreate(_ context.Context, id, title string) (*model.Conversation, error) {
	if id == "" {
		id = "conv-1"
	}
	if c, ok := f.conversations[id]; ok {
		return c, nil
	}
	c := &model.Conversation{ID: id, Title: title}
	f.conversations[id] = c
	return c, nil
}

func (f *fakeStore) RecentHistory(_ context.Context, conversationID string, limit int) ([]model.Message, error) {
	msgs := f.messages[conversationID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

func (f *fakeStore) AppendTurn(_ context.Context, userMsg, assistantMsg *model.Message) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	id := userMsg.ConversationID
	f.messages[id] = append(f.messages[id], *userMsg, *assistantMsg)
	return nil
}

func seedIndex(t *testing.T, embedder embedding.Embedder, index vector.Index, chunks []model.Chunk) {
	t.Helper()
	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Content
	}
	vectors, err := embedder.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("embed chunks: %v", err)
	}
	if err := index.Upsert(context.Background(), chunks, vectors); err != nil {
		t.Fatalf("upsert chunks: %v", err)
	}
}

func newTestRAGService(completer ChatCompleter, store ConversationStore, index vector.Index, embedder embedding.Embedder) *RAGService {
	return NewRAGService(
		completer, embedder, index, store, ai.ChatConfig{Model: "test"},
		RetrievalOptions{TopK: 5, MinScore: 0.5, MaxPromptChars: 12000, MaxHistory: 10},
		zap.NewNop(),
	)
}

func TestAnswerWithRetrievedContext(t *testing.T) {
	embedder := embedding.NewMockEmbedder(64)
	index := vector.NewMemoryIndex()
	seedIndex(t, embedder, index, []model.Chunk{
		{ID: "1", Title: "Hypertension Guide", Content: "what is hypertension", Category: "cardiology", Ordinal: 0},
		{ID: "2", Title: "Diabetes Guide", Content: "insulin resistance overview", Category: "endocrinology", Ordinal: 0},
	})

	completer := &fakeCompleter{reply: "Hypertension is high blood pressure."}
	store := newFakeStore()
	svc := newTestRAGService(completer, store, index, embedder)

	result, err := svc.Answer(context.Background(), AnswerInput{Question: "what is hypertension"})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if result.ConversationID == "" {
		t.Fatal("conversation id should be assigned")
	}
	if result.Answer != "Hypertension is high blood pressure." {
		t.Fatalf("unexpected answer %q", result.Answer)
	}
	if result.ErrorCode != "" {
		t.Fatalf("unexpected error code %q", result.ErrorCode)
	}
	if result.Disclaimer == "" {
		t.Fatal("disclaimer must be set on every answer")
	}
	if !result.ContextFound {
		t.Fatal("context_found must be true when retrieval returned chunks")
	}
	if len(result.Sources) == 0 {
		t.Fatal("expected at least one source citation")
	}
	if result.Sources[0].Title != "Hypertension Guide" {
		t.Fatalf("best source = %q, want exact-match chunk first", result.Sources[0].Title)
	}
	for i := 1; i < len(result.Sources); i++ {
		if result.Sources[i].Score > result.Sources[i-1].Score {
			t.Fatal("sources must be ordered by descending score")
		}
	}
	if result.Confidence != result.Sources[0].Score {
		t.Fatalf("confidence %v != best source score %v", result.Confidence, result.Sources[0].Score)
	}

	turns := store.messages[result.ConversationID]
	if len(turns) != 2 {
		t.Fatalf("expected user+assistant persisted, got %d messages", len(turns))
	}
	if turns[0].Role != "user" || turns[1].Role != "assistant" {
		t.Fatalf("unexpected roles %q, %q", turns[0].Role, turns[1].Role)
	}
	if turns[1].Disclaimer == "" {
		t.Fatal("persisted assistant message must carry the disclaimer")
	}
}

func TestAnswerEmptyQuestion(t *testing.T) {
	svc := newTestRAGService(&fakeCompleter{}, newFakeStore(), vector.NewMemoryIndex(), embedding.NewMockEmbedder(16))
	if _, err := svc.Answer(context.Background(), AnswerInput{Question: "   "}); !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("err = %v, want ErrEmptyQuery", err)
	}
}

func TestAnswerWithoutRelevantContext(t *testing.T) {
	completer := &fakeCompleter{reply: "General guidance only."}
	store := newFakeStore()
	svc := newTestRAGService(completer, store, vector.NewMemoryIndex(), embedding.NewMockEmbedder(16))

	result, err := svc.Answer(context.Background(), AnswerInput{Question: "what about rare disease x"})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if len(result.Sources) != 0 {
		t.Fatalf("expected no sources from empty index, got %d", len(result.Sources))
	}
	if result.Confidence != 0 {
		t.Fatalf("confidence = %v, want 0 with no retrieval", result.Confidence)
	}
	if result.ContextFound {
		t.Fatal("context_found must be false when nothing was retrieved")
	}
	if result.Answer == "" {
		t.Fatal("answer should still be generated without context")
	}
}

type failingIndex struct{ vector.Index }

func (f failingIndex) Query(context.Context, []float32, int, float64) ([]vector.Result, error) {
	return nil, errors.New("index down")
}

func TestAnswerDegradesWhenRetrievalFails(t *testing.T) {
	completer := &fakeCompleter{reply: "answered without references"}
	store := newFakeStore()
	svc := newTestRAGService(completer, store, failingIndex{vector.NewMemoryIndex()}, embedding.NewMockEmbedder(16))

	result, err := svc.Answer(context.Background(), AnswerInput{Question: "anything"})
	if err != nil {
		t.Fatalf("retrieval failure must not fail the turn: %v", err)
	}
	if result.ErrorCode != "" {
		t.Fatalf("unexpected error code %q", result.ErrorCode)
	}
	if len(result.Sources) != 0 {
		t.Fatal("no sources expected when retrieval fails")
	}
}

func TestAnswerGenerationFailure(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("ollama unreachable")}
	store := newFakeStore()
	svc := newTestRAGService(completer, store, vector.NewMemoryIndex(), embedding.NewMockEmbedder(16))

	result, err := svc.Answer(context.Background(), AnswerInput{Question: "hello"})
	if err != nil {
		t.Fatalf("generation failure should return a fallback result, got err %v", err)
	}
	if result.ErrorCode != "generation_failed" {
		t.Fatalf("error code = %q", result.ErrorCode)
	}
	if result.Answer == "" || result.Disclaimer == "" {
		t.Fatal("fallback must carry apology text and disclaimer")
	}
	if result.ContextFound {
		t.Fatal("context_found must be false with an empty index")
	}
	for _, msgs := range store.messages {
		if len(msgs) != 0 {
			t.Fatal("failed turns must not be written to the transcript")
		}
	}
}

func TestAnswerGenerationFailureWithContext(t *testing.T) {
	embedder := embedding.NewMockEmbedder(64)
	index := vector.NewMemoryIndex()
	seedIndex(t, embedder, index, []model.Chunk{
		{ID: "1", Title: "Hypertension Guide", Content: "what is hypertension", Category: "cardiology", Ordinal: 0},
	})

	completer := &fakeCompleter{err: errors.New("ollama unreachable")}
	store := newFakeStore()
	svc := newTestRAGService(completer, store, index, embedder)

	result, err := svc.Answer(context.Background(), AnswerInput{Question: "what is hypertension"})
	if err != nil {
		t.Fatalf("generation failure should return a fallback result, got err %v", err)
	}
	if result.ErrorCode != "generation_failed" {
		t.Fatalf("error code = %q", result.ErrorCode)
	}
	if !result.ContextFound {
		t.Fatal("context_found must be true, retrieval succeeded")
	}
	if len(result.Sources) == 0 {
		t.Fatal("fallback with context must cite retrieved sources")
	}
	if !strings.Contains(result.Answer, "what is hypertension") {
		t.Fatalf("fallback answer must quote the retrieved material, got %q", result.Answer)
	}
	if result.Confidence != result.Sources[0].Score {
		t.Fatalf("confidence %v != best source score %v", result.Confidence, result.Sources[0].Score)
	}
	for _, msgs := range store.messages {
		if len(msgs) != 0 {
			t.Fatal("failed turns must not be written to the transcript")
		}
	}
}

func TestAnswerKeepsConversationID(t *testing.T) {
	completer := &fakeCompleter{reply: "ok"}
	store := newFakeStore()
	svc := newTestRAGService(completer, store, vector.NewMemoryIndex(), embedding.NewMockEmbedder(16))

	first, err := svc.Answer(context.Background(), AnswerInput{Question: "first"})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	second, err := svc.Answer(context.Background(), AnswerInput{
		ConversationID: first.ConversationID,
		Question:       "second",
	})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if second.ConversationID != first.ConversationID {
		t.Fatalf("conversation id changed: %q -> %q", first.ConversationID, second.ConversationID)
	}
	if len(store.messages[first.ConversationID]) != 4 {
		t.Fatalf("expected 4 persisted messages after two turns, got %d", len(store.messages[first.ConversationID]))
	}
}

func TestAnswerIncludesHistoryInPrompt(t *testing.T) {
	completer := &fakeCompleter{reply: "ok"}
	store := newFakeStore()
	store.messages["conv-9"] = []model.Message{
		{ConversationID: "conv-9", Role: "user", Content: "earlier question about insulin"},
		{ConversationID: "conv-9", Role: "assistant", Content: "earlier answer"},
	}
	store.conversations["conv-9"] = &model.Conversation{ID: "conv-9"}
	svc := newTestRAGService(completer, store, vector.NewMemoryIndex(), embedding.NewMockEmbedder(16))

	if _, err := svc.Answer(context.Background(), AnswerInput{ConversationID: "conv-9", Question: "and now?"}); err != nil {
		t.Fatalf("Answer: %v", err)
	}

	found := false
	for _, m := range completer.lastMsgs {
		if strings.Contains(m.Content, "earlier question about insulin") {
			found = true
		}
	}
	if !found {
		t.Fatal("prior turns must be injected into the prompt")
	}
}

func TestStreamAnswerDeliversChunks(t *testing.T) {
	embedder := embedding.NewMockEmbedder(32)
	index := vector.NewMemoryIndex()
	seedIndex(t, embedder, index, []model.Chunk{
		{ID: "1", Title: "Flu Guide", Content: "flu symptoms come on suddenly", Category: "general"},
	})
	completer := &fakeCompleter{reply: "flu hits fast"}
	store := newFakeStore()
	svc := newTestRAGService(completer, store, index, embedder)

	var streamed strings.Builder
	result, err := svc.StreamAnswer(context.Background(), AnswerInput{Question: "flu symptoms come on suddenly"}, func(chunk string) error {
		streamed.WriteString(chunk)
		return nil
	})
	if err != nil {
		t.Fatalf("StreamAnswer: %v", err)
	}
	if streamed.String() != result.Answer {
		t.Fatalf("streamed %q != final answer %q", streamed.String(), result.Answer)
	}
	if len(store.messages[result.ConversationID]) != 2 {
		t.Fatal("streamed turn must be persisted like a regular one")
	}
}

func TestStreamAnswerGenerationFailure(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("boom")}
	store := newFakeStore()
	svc := newTestRAGService(completer, store, vector.NewMemoryIndex(), embedding.NewMockEmbedder(16))

	result, err := svc.StreamAnswer(context.Background(), AnswerInput{Question: "q"}, func(string) error { return nil })
	if err != nil {
		t.Fatalf("expected fallback result, got err %v", err)
	}
	if result.ErrorCode != "generation_failed" {
		t.Fatalf("error code = %q", result.ErrorCode)
	}
}
