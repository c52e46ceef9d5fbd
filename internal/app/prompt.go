package app

import (
	"fmt"
	"strings"

	"medassist/internal/ai"
	"medassist/internal/model"
	"medassist/internal/vector"
)

const defaultMaxPromptChars = 12000

const systemInstruction = `You are a medical AI assistant that provides accurate, educational medical information.

Guidelines:
- Answer using the provided medical references when they are relevant; cite them by source name.
- Explain medical concepts in clear, accessible terms while staying accurate.
- If the references do not contain enough information, say so and give general medical guidance.
- Focus on educational information, not diagnosis.
- Always remind users to consult qualified healthcare professionals for medical advice.`

// MedicalDisclaimer is attached to every assistant response.
const MedicalDisclaimer = "This information is for educational purposes only and should not replace " +
	"professional medical advice, diagnosis, or treatment. Always consult with qualified healthcare " +
	"professionals for medical concerns. In case of emergency, contact emergency services immediately."

// PromptInput holds everything that goes into one LLM request.
type PromptInput struct {
	Question string
	History  []model.Message // chronological prior turns
	Context  []vector.Result // retrieved chunks, best-ranked first
	MaxChars int
}

// BuildPrompt assembles the chat messages sent to the model. When the result
// exceeds MaxChars it drops the oldest history turns first, then the
// lowest-ranked context chunks. The system instruction and the current
// question are never dropped, so the result can still exceed the budget when
// the question alone is oversized.
func BuildPrompt(in PromptInput) []ai.ChatMessage {
	maxChars := in.MaxChars
	if maxChars <= 0 {
		maxChars = defaultMaxPromptChars
	}

	history := in.History
	chunks := in.Context
	for {
		messages := assembleMessages(in.Question, history, chunks)
		if promptChars(messages) <= maxChars {
			return messages
		}
		if len(history) > 0 {
			history = history[1:]
			continue
		}
		if len(chunks) > 0 {
			chunks = chunks[:len(chunks)-1]
			continue
		}
		return messages
	}
}

func assembleMessages(question string, history []model.Message, chunks []vector.Result) []ai.ChatMessage {
	messages := make([]ai.ChatMessage, 0, len(history)+2)
	messages = append(messages, ai.ChatMessage{Role: "system", Content: systemInstruction})

	for _, item := range history {
		role := item.Role
		if role != "user" && role != "assistant" {
			role = "user"
		}
		messages = append(messages, ai.ChatMessage{Role: role, Content: item.Content})
	}

	messages = append(messages, ai.ChatMessage{Role: "user", Content: userContent(question, chunks)})
	return messages
}

func userContent(question string, chunks []vector.Result) string {
	if len(chunks) == 0 {
		return question
	}

	var b strings.Builder
	b.WriteString("Medical references:\n\n")
	for i, res := range chunks {
		fmt.Fprintf(&b, "Source %d - %s:\n%s\n\n", i+1, res.Chunk.Title, res.Chunk.Content)
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}

func promptChars(messages []ai.ChatMessage) int {
	total := 0
	for _, m := range messages {
		total += len(m.Content)
	}
	return total
}
