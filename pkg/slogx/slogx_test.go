package slogx_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aussiebroadwan/agentauth/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, slogx.ParseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, slogx.ParseLevel("warning"))
	require.Equal(t, slog.LevelError, slogx.ParseLevel("error"))
	require.Equal(t, slog.LevelInfo, slogx.ParseLevel(""))
	require.Equal(t, slog.LevelInfo, slogx.ParseLevel("chatty"))
}

func TestFromContext_Default(t *testing.T) {
	require.Equal(t, slog.Default(), slogx.FromContext(context.Background()))
}

func TestWithRequestID(t *testing.T) {
	ctx := slogx.WithRequestID(context.Background(), "req-1")
	require.Equal(t, "req-1", slogx.RequestID(ctx))
	require.Empty(t, slogx.RequestID(context.Background()))
}

func TestHTTPMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slogx.New(slogx.Config{Service: "auth", Env: "test", Format: "json", Output: &buf})
	t.Cleanup(func() { slog.SetDefault(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))) })

	var seenReqID string
	h := slogx.HTTPMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenReqID = slogx.RequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	t.Run("generates request id", func(t *testing.T) {
		buf.Reset()
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/livez?signature=secret", nil))

		require.Equal(t, http.StatusTeapot, rec.Code)
		require.NotEmpty(t, seenReqID)
		require.Equal(t, seenReqID, rec.Header().Get(slogx.RequestIDHeader))

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		require.Equal(t, "http_request", entry["msg"])
		require.Equal(t, "WARN", entry["level"])
		require.Equal(t, seenReqID, entry["req_id"])
		require.Equal(t, "/livez", entry["path"])
		require.Equal(t, float64(http.StatusTeapot), entry["status"])
		require.False(t, strings.Contains(buf.String(), "secret"), "query strings are not logged")
	})

	t.Run("propagates request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/livez", nil)
		req.Header.Set(slogx.RequestIDHeader, "upstream-id")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, "upstream-id", seenReqID)
		require.Equal(t, "upstream-id", rec.Header().Get(slogx.RequestIDHeader))
	})
}

func TestHTTPMiddleware_LogsMatchedRoute(t *testing.T) {
	var buf bytes.Buffer
	logger := slogx.New(slogx.Config{Service: "auth", Env: "test", Format: "json", Output: &buf})
	t.Cleanup(func() { slog.SetDefault(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))) })

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/files/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	slogx.HTTPMiddleware(logger)(mux).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/files/42", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "GET /api/v1/files/{id}", entry["route"])
	require.Equal(t, "/api/v1/files/42", entry["path"])
}
