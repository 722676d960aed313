package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zhouzirui/z-tavern/nlp/internal/handler/chat"
	"github.com/zhouzirui/z-tavern/nlp/internal/handler/persona"
	"github.com/zhouzirui/z-tavern/nlp/internal/handler/session"
	middlewarePkg "github.com/zhouzirui/z-tavern/nlp/internal/middleware"
	personaModel "github.com/zhouzirui/z-tavern/nlp/internal/model/persona"
	chatService "github.com/zhouzirui/z-tavern/nlp/internal/service/chat"
	"github.com/zhouzirui/z-tavern/nlp/pkg/utils"
)

// APIPrefix is the path prefix the browser client uses.
const APIPrefix = "/api/nlp"

const healthTimeout = 2 * time.Second

// Pinger reports storage liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter wires HTTP routes to core services.
func NewRouter(personas personaModel.Store, chatSvc *chatService.Service, db Pinger, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.AccessLog(logger))
	r.Use(middleware.Recoverer)

	personaHandler := persona.New(personas)
	chatHandler := chat.New(chatSvc, logger)
	sessionHandler := session.New(chatSvc, logger)
	wsHandler := chat.NewWebSocketHandler(chatSvc, logger)

	routes := func(api chi.Router) {
		api.Get("/healthz", handleHealth(db, logger))
		personaHandler.RegisterRoutes(api)
		chatHandler.RegisterRoutes(api)
		sessionHandler.RegisterRoutes(api)
		wsHandler.RegisterRoutes(api)
	}

	routes(r)
	r.Route(APIPrefix, routes)

	return r
}

type healthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func handleHealth(db Pinger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		if db == nil {
			utils.RespondOK(w, healthResponse{Status: "ok"})
			return
		}
		if err := db.Ping(ctx); err != nil {
			logger.Warn("health check failed", zap.Error(err))
			utils.RespondOK(w, healthResponse{Status: "error", Error: err.Error()})
			return
		}
		utils.RespondOK(w, healthResponse{Status: "ok"})
	}
}
