package chat

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/z-tavern/nlp/internal/model/chat"
)

func TestWebSocketChatRoundTrip(t *testing.T) {
	f := setupRouter(t, &stubResponder{reply: "hi there"})
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat/s1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	require.NoError(t, conn.WriteJSON(map[string]string{"user_input": "hello"}))
	var reply chat.Reply
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "hi there", reply.Reply)
	assert.False(t, reply.Meta.UsedMemory)

	require.NoError(t, conn.WriteJSON(map[string]string{"user_input": "again"}))
	require.NoError(t, conn.ReadJSON(&reply))
	assert.True(t, reply.Meta.UsedMemory)
	assert.Len(t, reply.Meta.InjectionMemoryIDs, 2)

	require.NoError(t, conn.WriteJSON(map[string]string{"user_input": " "}))
	require.NoError(t, conn.ReadJSON(&reply))
	assert.True(t, strings.HasPrefix(reply.Reply, "[error]"))
	assert.Equal(t, chat.UnknownPersona, reply.Meta.Persona)
}

func TestWebSocketClosesWhenRequestContextEnds(t *testing.T) {
	f := setupRouter(t, &stubResponder{reply: "hi there"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.router.ServeHTTP(w, r.WithContext(ctx))
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat/s1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]string{"user_input": "hello"}))
	var reply chat.Reply
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&reply))

	cancel()

	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) {
		assert.False(t, netErr.Timeout(), "connection stayed open until the read deadline")
	}
}
