package app

import (
	"strings"
	"testing"

	"medassist/internal/model"
	"medassist/internal/vector"
)

func chunkResult(title, content string, score float64, rank int) vector.Result {
	return vector.Result{
		Chunk: model.Chunk{ID: title, Title: title, Content: content},
		Score: score,
		Rank:  rank,
	}
}

func TestBuildPromptShape(t *testing.T) {
	history := []model.Message{
		{Role: "user", Content: "what is hypertension?"},
		{Role: "assistant", Content: "high blood pressure."},
	}
	context := []vector.Result{
		chunkResult("Hypertension Management Guidelines", "blood pressure above 140/90", 0.9, 0),
	}

	messages := BuildPrompt(PromptInput{
		Question: "how is it treated?",
		History:  history,
		Context:  context,
		MaxChars: 12000,
	})

	if len(messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(messages))
	}
	if messages[0].Role != "system" {
		t.Fatalf("first message role = %q, want system", messages[0].Role)
	}
	last := messages[len(messages)-1]
	if last.Role != "user" {
		t.Fatalf("last message role = %q, want user", last.Role)
	}
	if !strings.Contains(last.Content, "Hypertension Management Guidelines") {
		t.Fatalf("context source title missing from user content: %q", last.Content)
	}
	if !strings.Contains(last.Content, "how is it treated?") {
		t.Fatalf("question missing from user content: %q", last.Content)
	}
}

func TestBuildPromptWithoutContext(t *testing.T) {
	messages := BuildPrompt(PromptInput{Question: "hello", MaxChars: 1000})
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[1].Content != "hello" {
		t.Fatalf("user content = %q, want bare question", messages[1].Content)
	}
}

func TestBuildPromptDropsOldestHistoryFirst(t *testing.T) {
	long := strings.Repeat("x", 500)
	history := []model.Message{
		{Role: "user", Content: "OLDEST " + long},
		{Role: "assistant", Content: "newer " + long},
	}
	context := []vector.Result{
		chunkResult("doc", "keep this chunk", 0.8, 0),
	}

	budget := len(systemInstruction) + 700
	messages := BuildPrompt(PromptInput{
		Question: "q",
		History:  history,
		Context:  context,
		MaxChars: budget,
	})

	for _, m := range messages {
		if strings.Contains(m.Content, "OLDEST") {
			t.Fatal("oldest history turn should be dropped before context chunks")
		}
	}
	last := messages[len(messages)-1]
	if !strings.Contains(last.Content, "keep this chunk") {
		t.Fatal("context chunk was dropped while history should go first")
	}
}

func TestBuildPromptDropsLowestRankedChunksAfterHistory(t *testing.T) {
	context := []vector.Result{
		chunkResult("best", "best chunk", 0.95, 0),
		chunkResult("worst", strings.Repeat("filler ", 200), 0.71, 1),
	}

	budget := len(systemInstruction) + 200
	messages := BuildPrompt(PromptInput{
		Question: "q",
		Context:  context,
		MaxChars: budget,
	})

	last := messages[len(messages)-1]
	if !strings.Contains(last.Content, "best chunk") {
		t.Fatal("top-ranked chunk missing")
	}
	if strings.Contains(last.Content, "filler") {
		t.Fatal("lowest-ranked chunk should have been dropped")
	}
}

func TestBuildPromptNeverDropsQuestion(t *testing.T) {
	question := strings.Repeat("long question ", 100)
	messages := BuildPrompt(PromptInput{Question: question, MaxChars: 10})

	if len(messages) != 2 {
		t.Fatalf("expected system+question, got %d messages", len(messages))
	}
	if messages[1].Content != question {
		t.Fatal("question must survive even when over budget")
	}
}

func TestBuildPromptWithinBudget(t *testing.T) {
	history := make([]model.Message, 6)
	for i := range history {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		history[i] = model.Message{Role: role, Content: strings.Repeat("h", 300)}
	}
	context := []vector.Result{
		chunkResult("a", strings.Repeat("a", 400), 0.9, 0),
		chunkResult("b", strings.Repeat("b", 400), 0.8, 1),
	}

	budget := len(systemInstruction) + 1200
	messages := BuildPrompt(PromptInput{
		Question: "q",
		History:  history,
		Context:  context,
		MaxChars: budget,
	})

	if got := promptChars(messages); got > budget {
		t.Fatalf("prompt is %d chars, budget %d", got, budget)
	}
}
