package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goran-ethernal/DDOIndexor/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte("OK"))
		require.NoError(t, err)
	})
}

func TestCORSMiddleware(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		allowedOrigins []string
		origin         string
		method         string
		expectedOrigin string
	}{
		{name: "wildcard echoes origin", allowedOrigins: []string{"*"}, origin: "https://market.example", method: http.MethodGet, expectedOrigin: "https://market.example"},
		{name: "wildcard without origin", allowedOrigins: []string{"*"}, method: http.MethodGet, expectedOrigin: "*"},
		{name: "listed origin", allowedOrigins: []string{"https://a.example", "https://b.example"}, origin: "https://b.example", method: http.MethodGet, expectedOrigin: "https://b.example"},
		{name: "unlisted origin", allowedOrigins: []string{"https://a.example"}, origin: "https://evil.example", method: http.MethodGet},
		{name: "empty list", allowedOrigins: []string{}, origin: "https://a.example", method: http.MethodGet},
		{name: "preflight", allowedOrigins: []string{"https://a.example"}, origin: "https://a.example", method: http.MethodOptions, expectedOrigin: "https://a.example"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(tt.method, "/api/v1/reindex", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()

			CORSMiddleware(tt.allowedOrigins)(okHandler(t)).ServeHTTP(w, req)

			require.Equal(t, tt.expectedOrigin, w.Header().Get("Access-Control-Allow-Origin"))
			if tt.expectedOrigin != "" {
				require.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
				require.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Content-Type")
				require.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))
			}

			require.Equal(t, http.StatusOK, w.Code)
			if tt.method == http.MethodOptions {
				require.Empty(t, w.Body.String())
				return
			}
			require.Equal(t, "OK", w.Body.String())
		})
	}
}

func TestResponseWriter_FirstStatusWins(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

	wrapped.WriteHeader(http.StatusAccepted)
	wrapped.WriteHeader(http.StatusBadRequest)

	require.Equal(t, http.StatusAccepted, wrapped.statusCode)
	require.Equal(t, http.StatusAccepted, w.Code)
}

func TestLoggingMiddleware_PassesThrough(t *testing.T) {
	t.Parallel()

	handler := LoggingMiddleware(logger.NewNopLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/reindex", nil))

	require.Equal(t, http.StatusConflict, w.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		panic any
	}{
		{name: "string", panic: "something went wrong"},
		{name: "error", panic: assert.AnError},
		{name: "integer", panic: 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handler := RecoveryMiddleware(logger.NewNopLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				panic(tt.panic)
			}))

			w := httptest.NewRecorder()
			require.NotPanics(t, func() {
				handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
			})
			require.Equal(t, http.StatusInternalServerError, w.Code)
			require.Equal(t, "Internal Server Error\n", w.Body.String())
		})
	}
}
