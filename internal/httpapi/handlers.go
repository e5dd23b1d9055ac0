package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"spectrangle/internal/hub"
	"spectrangle/internal/leaderboard"
	"spectrangle/internal/session"
)

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Leaderboard returns the top scores as JSON.
func Leaderboard(store leaderboard.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := 10
		if q := r.URL.Query().Get("n"); q != "" {
			if v, err := strconv.Atoi(q); err == nil && v > 0 && v <= 100 {
				n = v
			}
		}
		recs, err := store.Top(r.Context(), n)
		if err != nil {
			http.Error(w, "leaderboard unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(recs)
	}
}

// WS accepts a WebSocket connection and runs the same text-protocol
// session over it; clients send newline-terminated lines in text
// frames.
func WS(h *hub.Hub, store leaderboard.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		nc := websocket.NetConn(r.Context(), conn, websocket.MessageText)
		session.New(nc, h, store, log.Named("ws")).Run(r.Context())
	}
}
