package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/cricstream/live-backend/internal/hub"
	"github.com/cricstream/live-backend/internal/identity"
	"github.com/cricstream/live-backend/internal/ws"
)

func SetupRoutes(h *hub.Hub, resolver identity.Resolver, log *zap.Logger, origins []string) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", Healthz)
	r.Get("/stats", Stats(h))
	r.Get("/ws", ws.Handler(h, resolver, log, origins))
	return r
}
