package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/chess-session-backend/internal/gateway"
	"github.com/DoyleJ11/chess-session-backend/internal/hub"
	"github.com/DoyleJ11/chess-session-backend/internal/ws"
)

func SetupRoutes(h *hub.Hub, g *gateway.Gateway, log *zap.Logger, opts ws.Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthz", Healthz)
	r.Get("/stats", Stats(h))
	r.Get("/sessions/{id}", SessionSnapshot(h))
	r.Get("/ws", ws.Handler(g, log.Named("ws"), opts))
	return r
}
