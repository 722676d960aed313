package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/z-tavern/nlp/internal/model/chat"
)

// DefaultHistoryLimit caps List when the caller passes a non-positive limit.
const DefaultHistoryLimit = 50

// HistoryStore appends and reads chat turns.
type HistoryStore struct {
	db     *DB
	now    func() time.Time
	logger *zap.Logger
}

// NewHistoryStore returns a HistoryStore backed by db.
func NewHistoryStore(db *DB) *HistoryStore {
	return &HistoryStore{
		db:     db,
		now:    time.Now,
		logger: db.logger.Named("history"),
	}
}

// Insert validates and durably appends one turn. The stored created_at never
// precedes the latest turn already stored for the session.
func (s *HistoryStore) Insert(ctx context.Context, sessionID string, sender chat.Sender, content string) (chat.Message, error) {
	sessionID = strings.TrimSpace(sessionID)
	sender = chat.Sender(strings.TrimSpace(string(sender)))

	switch {
	case sessionID == "":
		return chat.Message{}, chat.Required("session_id")
	case sender == "":
		return chat.Message{}, chat.Required("sender")
	case strings.TrimSpace(content) == "":
		return chat.Message{}, chat.Required("content")
	case !sender.Valid():
		return chat.Message{}, &chat.ValidationError{Field: "sender", Reason: fmt.Sprintf("must be %q or %q", chat.SenderUser, chat.SenderAI)}
	}

	now := s.now().UTC()
	id := fmt.Sprintf("%s-%s-%d-%s", sessionID, sender, now.UnixNano(), uuid.NewString()[:8])

	var stored string
	err := s.db.db.QueryRowContext(ctx, `
		INSERT INTO chat_history (id, session_id, sender, content, created_at)
		VALUES (?, ?, ?, ?, MAX(?, COALESCE((SELECT MAX(created_at) FROM chat_history WHERE session_id = ?), '')))
		RETURNING created_at`,
		id, sessionID, string(sender), content, chat.FormatTimestamp(now), sessionID,
	).Scan(&stored)
	if err != nil {
		s.logger.Error("failed to insert chat message", zap.String("session_id", sessionID), zap.Error(err))
		return chat.Message{}, chat.StorageError("insert chat message", err)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, stored)
	if err != nil {
		return chat.Message{}, chat.StorageError("parse created_at", err)
	}

	s.logger.Debug("chat message stored",
		zap.String("session_id", sessionID),
		zap.String("sender", string(sender)),
		zap.Int("content_len", len(content)))

	return chat.Message{
		ID:        id,
		SessionID: sessionID,
		Sender:    sender,
		Content:   content,
		CreatedAt: createdAt,
	}, nil
}

// List returns up to limit turns of the session, oldest first.
func (s *HistoryStore) List(ctx context.Context, sessionID string, limit int) ([]chat.Message, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, chat.Required("session_id")
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := s.db.db.QueryContext(ctx, `
		SELECT id, session_id, sender, content, created_at
		FROM chat_history
		WHERE session_id = ?
		ORDER BY created_at ASC, rowid ASC
		LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		s.logger.Error("failed to query chat history", zap.String("session_id", sessionID), zap.Error(err))
		return nil, chat.StorageError("query chat history", err)
	}
	return scanMessages(rows)
}

// Recent returns the last limit turns of the session, oldest first.
func (s *HistoryStore) Recent(ctx context.Context, sessionID string, limit int) ([]chat.Message, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, chat.Required("session_id")
	}
	if limit <= 0 {
		return []chat.Message{}, nil
	}

	rows, err := s.db.db.QueryContext(ctx, `
		SELECT id, session_id, sender, content, created_at FROM (
			SELECT id, session_id, sender, content, created_at, rowid AS seq
			FROM chat_history
			WHERE session_id = ?
			ORDER BY created_at DESC, rowid DESC
			LIMIT ?
		)
		ORDER BY created_at ASC, seq ASC`,
		sessionID, limit,
	)
	if err != nil {
		s.logger.Error("failed to query recent turns", zap.String("session_id", sessionID), zap.Error(err))
		return nil, chat.StorageError("query recent turns", err)
	}
	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]chat.Message, error) {
	defer rows.Close()

	messages := make([]chat.Message, 0)
	for rows.Next() {
		var (
			msg       chat.Message
			sender    string
			createdAt string
		)
		if err := rows.Scan(&msg.ID, &msg.SessionID, &sender, &msg.Content, &createdAt); err != nil {
			return nil, chat.StorageError("scan chat message", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, chat.StorageError("parse created_at", err)
		}
		msg.Sender = chat.Sender(sender)
		msg.CreatedAt = ts
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, chat.StorageError("iterate chat history", err)
	}
	return messages, nil
}
