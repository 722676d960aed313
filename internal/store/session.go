package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"

	"github.com/zhouzirui/z-tavern/nlp/internal/model/chat"
	"github.com/zhouzirui/z-tavern/nlp/internal/model/persona"
)

const (
	defaultSessionUser = "guest"
	defaultSessionList = 50
)

// SessionRegistry records the session -> persona/user association.
type SessionRegistry struct {
	db     *DB
	known  *ristretto.Cache
	now    func() time.Time
	logger *zap.Logger
}

// NewSessionRegistry returns a registry backed by db. Session ids seen to
// exist are remembered so repeated CreateIfAbsent calls skip the INSERT.
func NewSessionRegistry(db *DB) (*SessionRegistry, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     1e4,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &SessionRegistry{
		db:     db,
		known:  cache,
		now:    time.Now,
		logger: db.logger.Named("sessions"),
	}, nil
}

// Close stops the existence cache.
func (r *SessionRegistry) Close() {
	r.known.Close()
}

// CreateIfAbsent inserts the session unless a row with the same id exists.
// Existing rows are never modified.
func (r *SessionRegistry) CreateIfAbsent(ctx context.Context, session chat.Session) (bool, error) {
	session.ID = strings.TrimSpace(session.ID)
	if session.ID == "" {
		return false, chat.Required("session_id")
	}
	if _, ok := r.known.Get(session.ID); ok {
		return false, nil
	}

	if strings.TrimSpace(session.PersonaID) == "" {
		session.PersonaID = persona.DefaultID
	}
	if strings.TrimSpace(session.UserID) == "" {
		session.UserID = defaultSessionUser
	}

	res, err := r.db.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, persona_id, title, user_id, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO NOTHING`,
		session.ID, session.PersonaID, session.Title, session.UserID, chat.FormatTimestamp(r.now()),
	)
	if err != nil {
		r.logger.Error("failed to create session", zap.String("session_id", session.ID), zap.Error(err))
		return false, chat.StorageError("create session", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, chat.StorageError("create session", err)
	}

	r.known.Set(session.ID, struct{}{}, 1)
	if affected > 0 {
		r.logger.Info("session created",
			zap.String("session_id", session.ID),
			zap.String("persona_id", session.PersonaID),
			zap.String("user_id", session.UserID))
	}
	return affected > 0, nil
}

// Get returns the stored session or chat.ErrSessionNotFound.
func (r *SessionRegistry) Get(ctx context.Context, sessionID string) (chat.Session, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return chat.Session{}, chat.Required("session_id")
	}

	row := r.db.db.QueryRowContext(ctx, `
		SELECT session_id, persona_id, title, user_id, created_at
		FROM sessions
		WHERE session_id = ?`,
		sessionID,
	)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return chat.Session{}, chat.ErrSessionNotFound
	}
	if err != nil {
		return chat.Session{}, chat.StorageError("get session", err)
	}
	return session, nil
}

// List returns sessions newest first, optionally restricted to one user.
func (r *SessionRegistry) List(ctx context.Context, userID string, limit int) ([]chat.Session, error) {
	if limit <= 0 {
		limit = defaultSessionList
	}

	query := `SELECT session_id, persona_id, title, user_id, created_at FROM sessions`
	args := []any{}
	if userID = strings.TrimSpace(userID); userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, chat.StorageError("list sessions", err)
	}
	defer rows.Close()

	sessions := make([]chat.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, chat.StorageError("scan session", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, chat.StorageError("iterate sessions", err)
	}
	return sessions, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (chat.Session, error) {
	var (
		session   chat.Session
		createdAt string
	)
	if err := row.Scan(&session.ID, &session.PersonaID, &session.Title, &session.UserID, &createdAt); err != nil {
		return chat.Session{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return chat.Session{}, err
	}
	session.CreatedAt = ts
	return session, nil
}
