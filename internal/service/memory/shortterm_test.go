package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/z-tavern/nlp/internal/model/chat"
)

type fakeTurns struct {
	messages  []chat.Message
	err       error
	lastLimit int
}

func (f *fakeTurns) Recent(_ context.Context, _ string, limit int) ([]chat.Message, error) {
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	if len(f.messages) > limit {
		return f.messages[len(f.messages)-limit:], nil
	}
	return f.messages, nil
}

func seedTurns(n int) []chat.Message {
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	out := make([]chat.Message, 0, n)
	for i := 0; i < n; i++ {
		sender := chat.SenderUser
		if i%2 == 1 {
			sender = chat.SenderAI
		}
		out = append(out, chat.Message{
			ID:        fmt.Sprintf("m%d", i),
			SessionID: "s1",
			Sender:    sender,
			Content:   fmt.Sprintf("turn %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
	}
	return out
}

func TestRetrieveBoundsLimit(t *testing.T) {
	turns := &fakeTurns{messages: seedTurns(15)}
	retriever := NewShortTerm(turns, nil)

	items, err := retriever.Retrieve(context.Background(), "s1", 50, true)
	require.NoError(t, err)
	assert.Equal(t, MaxItems, turns.lastLimit)
	require.Len(t, items, MaxItems)
	assert.Equal(t, "m5", items[0].ID)
	assert.Equal(t, "m14", items[len(items)-1].ID)

	_, err = retriever.Retrieve(context.Background(), "s1", 0, true)
	require.NoError(t, err)
	assert.Equal(t, MaxItems, turns.lastLimit)
}

func TestRetrieveWithoutIDs(t *testing.T) {
	retriever := NewShortTerm(&fakeTurns{messages: seedTurns(3)}, nil)

	items, err := retriever.Retrieve(context.Background(), "s1", 3, false)
	require.NoError(t, err)
	require.Len(t, items, 3)
	for _, item := range items {
		assert.Empty(t, item.ID)
		assert.NotEmpty(t, item.Content)
	}
	assert.Equal(t, chat.SenderAI, items[1].Sender)
}

func TestRetrievePropagatesErrors(t *testing.T) {
	boom := errors.New("db down")
	retriever := NewShortTerm(&fakeTurns{err: boom}, nil)

	_, err := retriever.Retrieve(context.Background(), "s1", 10, true)
	assert.ErrorIs(t, err, boom)
}
