package chat

import "time"

// Session binds an opaque session id to a persona and an owning user.
type Session struct {
	ID        string    `json:"session_id"`
	PersonaID string    `json:"persona_id"`
	Title     string    `json:"title"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
