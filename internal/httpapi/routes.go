package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"spectrangle/internal/hub"
	"spectrangle/internal/leaderboard"
)

// SetupRoutes wires the HTTP surface: health, a JSON leaderboard view
// and the WebSocket endpoint carrying the text protocol.
func SetupRoutes(h *hub.Hub, store leaderboard.Store, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", Healthz)
	r.Get("/leaderboard", Leaderboard(store))
	r.Get("/ws", WS(h, store, log))
	return r
}
