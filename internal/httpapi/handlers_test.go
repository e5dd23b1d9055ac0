package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"spectrangle/internal/hub"
	"spectrangle/internal/leaderboard"
)

func testRouter(t *testing.T) (http.Handler, *leaderboard.Memory) {
	t.Helper()
	store := leaderboard.NewMemory()
	h := hub.New(context.Background(), store, hub.Config{
		TurnTimeout:      time.Minute,
		ChallengeTimeout: time.Minute,
	}, zap.NewNop())
	t.Cleanup(func() { h.Inbox() <- hub.Shutdown{} })
	return SetupRoutes(h, store, zap.NewNop()), store
}

func TestHealthz(t *testing.T) {
	router, _ := testRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLeaderboardJSON(t *testing.T) {
	router, store := testRouter(t)
	require.NoError(t, store.Add(context.Background(), "Barry", 12))
	require.NoError(t, store.Add(context.Background(), "Jack", 7))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/leaderboard", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var recs []leaderboard.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &recs))
	require.Len(t, recs, 2)
	assert.Equal(t, "Barry", recs[0].Name)
	assert.Equal(t, 12, recs[0].Score)
}

func TestLeaderboardLimit(t *testing.T) {
	router, store := testRouter(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Add(context.Background(), "Barry", i))
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/leaderboard?n=2", nil))
	var recs []leaderboard.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &recs))
	assert.Len(t, recs, 2)

	// Out-of-range limits fall back to the default.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/leaderboard?n=1000", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &recs))
	assert.Len(t, recs, 5)
}
