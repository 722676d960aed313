// Package memory supplies short-term conversational memory for prompt injection.
package memory

import (
	"context"

	"go.uber.org/zap"

	"github.com/zhouzirui/z-tavern/nlp/internal/model/chat"
)

// MaxItems bounds how many items a single retrieval may return.
const MaxItems = 10

// Retriever returns an ordered, bounded list of memory items for a session.
type Retriever interface {
	Retrieve(ctx context.Context, sessionID string, limit int, withIDs bool) ([]chat.MemoryItem, error)
}

// TurnSource reads the tail of a session's stored turns, oldest first.
type TurnSource interface {
	Recent(ctx context.Context, sessionID string, limit int) ([]chat.Message, error)
}

// ShortTerm treats the most recent stored turns of a session as its memory.
type ShortTerm struct {
	turns  TurnSource
	logger *zap.Logger
}

// NewShortTerm returns a retriever over turns.
func NewShortTerm(turns TurnSource, logger *zap.Logger) *ShortTerm {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShortTerm{turns: turns, logger: logger.Named("memory")}
}

// Retrieve returns at most min(limit, MaxItems) items, oldest first. IDs are
// only populated when withIDs is set.
func (m *ShortTerm) Retrieve(ctx context.Context, sessionID string, limit int, withIDs bool) ([]chat.MemoryItem, error) {
	if limit <= 0 || limit > MaxItems {
		limit = MaxItems
	}

	turns, err := m.turns.Recent(ctx, sessionID, limit)
	if err != nil {
		return nil, err
	}

	items := make([]chat.MemoryItem, 0, len(turns))
	for _, turn := range turns {
		item := chat.MemoryItem{
			Sender:    turn.Sender,
			Content:   turn.Content,
			CreatedAt: turn.CreatedAt,
		}
		if withIDs {
			item.ID = turn.ID
		}
		items = append(items, item)
	}

	m.logger.Debug("short-term memory retrieved",
		zap.String("session_id", sessionID),
		zap.Int("limit", limit),
		zap.Int("items", len(items)))
	return items, nil
}
