// Package store persists chat turns and sessions in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/zhouzirui/z-tavern/nlp/internal/model/chat"
)

const schema = `
CREATE TABLE IF NOT EXISTS chat_history (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	sender TEXT CHECK(sender IN ('user', 'ai')) NOT NULL,
	content TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_history_session ON chat_history(session_id, created_at);

CREATE TABLE IF NOT EXISTS sessions (
	session_id TEXT PRIMARY KEY,
	persona_id TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	user_id TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id, created_at);
`

// DB wraps the SQLite handle shared by the history store and session registry.
type DB struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

// Open creates or opens the database at path and ensures the schema exists.
func Open(ctx context.Context, path string, logger *zap.Logger) (*DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, chat.StorageError("create database directory", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, chat.StorageError("open database", err)
	}
	// SQLite serialises writers; one connection also keeps ":memory:" databases coherent.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		`PRAGMA busy_timeout=5000;`,
		`PRAGMA synchronous=NORMAL;`,
	}
	if path != ":memory:" {
		pragmas = append(pragmas, `PRAGMA journal_mode=WAL;`)
	}
	for _, stmt := range append(pragmas, schema) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, chat.StorageError("initialize schema", err)
		}
	}

	logger.Info("chat history database ready", zap.String("path", path))
	return &DB{db: db, path: path, logger: logger}, nil
}

// Ping checks that the database is reachable.
func (d *DB) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return chat.StorageError("ping", err)
	}
	return nil
}

// Close releases the underlying handle.
func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

func (d *DB) String() string {
	return fmt.Sprintf("sqlite(%s)", d.path)
}
