package model

import (
	"encoding/json"
	"time"
)

// SourceCitation is one retrieved chunk attached to an assistant message.
type SourceCitation struct {
	Title    string            `json:"title"`
	Content  string            `json:"content"`
	Score    float64           `json:"score"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Message is one turn in a conversation. Assistant messages carry the safety
// disclaimer and, when retrieval found context, the source citations used.
// Sources are stored as a JSON array for portability.
type Message struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID string    `gorm:"size:36;not null;index" json:"conversation_id"`
	Role           string    `gorm:"size:16;not null" json:"role"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	Sources        string    `gorm:"type:text" json:"-"` // JSON array of SourceCitation
	Disclaimer     string    `gorm:"type:text" json:"disclaimer,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// SourceList returns the parsed citations; empty on parse error.
func (m *Message) SourceList() []SourceCitation {
	if m.Sources == "" {
		return nil
	}
	var v []SourceCitation
	_ = json.Unmarshal([]byte(m.Sources), &v)
	return v
}

// SetSources stores the citations as JSON.
func (m *Message) SetSources(sources []SourceCitation) {
	if len(sources) == 0 {
		m.Sources = ""
		return
	}
	b, _ := json.Marshal(sources)
	m.Sources = string(b)
}
