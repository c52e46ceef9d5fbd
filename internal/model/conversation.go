package model

import "time"

// Conversation groups the ordered message history for one chat thread.
// IDs are uuids handed to the browser; a conversation is created implicitly
// on the first chat turn that arrives without an id.
type Conversation struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Title     string    `gorm:"size:128" json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
