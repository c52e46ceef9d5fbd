package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"medassist/internal/app"
	"medassist/internal/model"
	"medassist/internal/transport/http/response"
)

type ChatHandler struct {
	ragService          *app.RAGService
	conversationService *app.ConversationService
}

type ChatRequest struct {
	ConversationID string `json:"conversation_id" binding:"omitempty,max=36"`
	Message        string `json:"message" binding:"required,max=8000"`
	// IncludeSources defaults to true; sources stay in the stored transcript
	// either way.
	IncludeSources *bool `json:"include_sources"`
}

func (r *ChatRequest) wantSources() bool {
	return r.IncludeSources == nil || *r.IncludeSources
}

// historyMessage is the transcript entry shape returned to the browser, with
// sources unpacked from their storage column.
type historyMessage struct {
	Role       string                 `json:"role"`
	Content    string                 `json:"content"`
	Sources    []model.SourceCitation `json:"sources,omitempty"`
	Disclaimer string                 `json:"disclaimer,omitempty"`
	CreatedAt  string                 `json:"created_at"`
}

func NewChatHandler(ragService *app.RAGService, conversationService *app.ConversationService) *ChatHandler {
	return &ChatHandler{ragService: ragService, conversationService: conversationService}
}

func (h *ChatHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.ragService.Answer(c.Request.Context(), app.AnswerInput{
		ConversationID: req.ConversationID,
		Question:       req.Message,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrEmptyQuery):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "chat failed")
		}
		return
	}

	if !req.wantSources() {
		result.Sources = nil
	}
	response.OK(c, result)
}

// ChatStream answers over SSE: incremental text as data events, then a final
// "done" event carrying the full turn result as JSON. A generation failure
// surfaces as an "error" event with the same result shape.
func (h *ChatHandler) ChatStream(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "stream not supported")
		return
	}

	result, err := h.ragService.StreamAnswer(c.Request.Context(), app.AnswerInput{
		ConversationID: req.ConversationID,
		Question:       req.Message,
	}, func(chunk string) error {
		if _, writeErr := c.Writer.Write([]byte("data: " + sanitizeSSE(chunk) + "\n\n")); writeErr != nil {
			return writeErr
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		if _, writeErr := c.Writer.Write([]byte("event: error\ndata: " + sanitizeSSE(err.Error()) + "\n\n")); writeErr == nil {
			flusher.Flush()
		}
		return
	}

	if !req.wantSources() {
		result.Sources = nil
	}
	payload, marshalErr := json.Marshal(result)
	if marshalErr != nil {
		payload = []byte("{}")
	}
	event := "done"
	if result.ErrorCode != "" {
		event = "error"
	}
	if _, writeErr := c.Writer.Write([]byte("event: " + event + "\ndata: " + sanitizeSSE(string(payload)) + "\n\n")); writeErr == nil {
		flusher.Flush()
	}
}

func (h *ChatHandler) GetHistory(c *gin.Context) {
	conversationID := strings.TrimSpace(c.Param("id"))
	if conversationID == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid conversation id")
		return
	}

	history, err := h.conversationService.History(c.Request.Context(), conversationID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "get history failed")
		}
		return
	}

	messages := make([]historyMessage, 0, len(history))
	for _, m := range history {
		messages = append(messages, historyMessage{
			Role:       m.Role,
			Content:    m.Content,
			Sources:    m.SourceList(),
			Disclaimer: m.Disclaimer,
			CreatedAt:  m.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	response.OK(c, gin.H{
		"conversation_id": conversationID,
		"messages":        messages,
	})
}

func (h *ChatHandler) DeleteConversation(c *gin.Context) {
	conversationID := strings.TrimSpace(c.Param("id"))
	if conversationID == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid conversation id")
		return
	}

	if err := h.conversationService.Clear(c.Request.Context(), conversationID); err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete conversation failed")
		}
		return
	}

	response.OK(c, gin.H{"deleted_conversation_id": conversationID})
}

func sanitizeSSE(input string) string {
	replaced := strings.ReplaceAll(input, "\r\n", "\\n")
	replaced = strings.ReplaceAll(replaced, "\n", "\\n")
	return replaced
}
