package httptransport

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCORSAllowsListedOrigins(t *testing.T) {
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}), CORS([]string{"http://localhost:5173"}))

	req := httptest.NewRequest(http.MethodGet, "/v1/cardio/entries", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusTeapot, rr.Code)
	require.Equal(t, "http://localhost:5173", rr.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/v1/cardio/entries", nil)
	req.Header.Set("Origin", "http://evil.example")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSAnswersPreflight(t *testing.T) {
	called := false
	h := CORS([]string{"*"})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	req := httptest.NewRequest(http.MethodOptions, "/v1/cardio/entries/1", nil)
	req.Header.Set("Origin", "http://app.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodDelete)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.False(t, called)
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), "DELETE")
}

func TestRequestLoggerRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/strength/entries", nil))

	require.Contains(t, buf.String(), "level=ERROR")
	require.Contains(t, buf.String(), "status=500")
	require.Contains(t, buf.String(), "path=/v1/strength/entries")
}
