package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	chatHandler "github.com/codenest/ai-chat/backend/internal/handler/chat"
	middlewarePkg "github.com/codenest/ai-chat/backend/internal/middleware"
	"github.com/codenest/ai-chat/backend/internal/model/llm"
	chatService "github.com/codenest/ai-chat/backend/internal/service/chat"
	"github.com/codenest/ai-chat/backend/internal/service/gateway"
	"github.com/codenest/ai-chat/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services: a landing surface at the
// root and the chat surface under /api.
func NewRouter(models llm.Store, chatSvc *chatService.Service, gw *gateway.Gateway) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/", handleLanding)

	handler := chatHandler.New(chatSvc, models, gw)
	r.Route("/api", func(api chi.Router) {
		handler.RegisterRoutes(api)
	})

	return r
}

// handleLanding is the landing view: a small descriptor pointing at the
// chat surface.
func handleLanding(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"service": "codenest-ai-chat",
		"chat":    "/api",
	})
}
