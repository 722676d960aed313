package chat

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	chatService "github.com/zhouzirui/z-tavern/nlp/internal/service/chat"
)

const (
	wsWriteWait  = 10 * time.Second
	wsMaxMessage = 64 << 10
)

// WebSocketHandler 在 WebSocket 连接上运行带会话的对话
type WebSocketHandler struct {
	chatSvc  *chatService.Service
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(chatSvc *chatService.Service, logger *zap.Logger) *WebSocketHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSocketHandler{
		chatSvc: chatSvc,
		logger:  logger.Named("handler.ws"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/chat/{sessionID}", h.handleWebSocket)
}

type wsInbound struct {
	UserInput string `json:"user_input"`
}

func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("session_id", sessionID), zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsMaxMessage)

	ctx := r.Context()
	h.logger.Info("websocket opened", zap.String("session_id", sessionID))
	defer h.logger.Info("websocket closed", zap.String("session_id", sessionID))

	// ReadJSON blocks, so the connection is closed from here once ctx ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(wsWriteWait))
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		var inbound wsInbound
		if err := conn.ReadJSON(&inbound); err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) && ctx.Err() == nil {
				h.logger.Debug("websocket read ended", zap.String("session_id", sessionID), zap.Error(err))
			}
			return
		}

		reply, err := h.chatSvc.ChatWithSession(ctx, sessionID, inbound.UserInput)
		if err != nil {
			h.logger.Debug("websocket turn returned fallback", zap.String("session_id", sessionID), zap.Error(err))
		}

		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(reply); err != nil {
			h.logger.Warn("websocket write failed", zap.String("session_id", sessionID), zap.Error(err))
			return
		}
	}
}
