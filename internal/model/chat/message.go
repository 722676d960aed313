package chat

import "time"

// Sender 标识一条消息的发送方。
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// Valid reports whether s is one of the stored sender values.
func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderAI
}

// Message persists individual turns of a session.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Sender    Sender    `json:"sender"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryEntry is the client-facing projection of a Message.
type HistoryEntry struct {
	Sender    Sender `json:"sender"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// TimestampLayout is the on-disk and on-wire form of created_at. Fixed-width
// fractional seconds keep lexical order equal to chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// FormatTimestamp renders t in UTC using TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Entry projects the message for API responses.
func (m Message) Entry() HistoryEntry {
	return HistoryEntry{
		Sender:    m.Sender,
		Content:   m.Content,
		CreatedAt: FormatTimestamp(m.CreatedAt),
	}
}

// Entries projects a transcript for API responses; never returns nil.
func Entries(messages []Message) []HistoryEntry {
	out := make([]HistoryEntry, 0, len(messages))
	for _, m := range messages {
		out = append(out, m.Entry())
	}
	return out
}
