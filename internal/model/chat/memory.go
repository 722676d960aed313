package chat

import "time"

// MemoryItem is one short-term memory snippet handed to response generation.
// Items are ordered oldest first.
type MemoryItem struct {
	ID        string    `json:"id,omitempty"`
	Sender    Sender    `json:"sender"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
