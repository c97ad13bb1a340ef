package log

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareLogsRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Format: "text", Output: &buf})

	var seen *Logger
	handler := Middleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = Lookup(r.Context())
		w.WriteHeader(http.StatusNotFound)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/expenses/9?x=1", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.NotNil(t, seen)
	assert.Equal(t, ComponentHTTP, seen.Component())
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "status_code=404")
	assert.Contains(t, out, "path=/api/expenses/9")
	assert.Contains(t, out, "request_id="+rr.Header().Get("X-Request-ID"))
}

func TestMiddlewareKeepsIncomingRequestID(t *testing.T) {
	var buf bytes.Buffer
	handler := Middleware(New(Config{Output: &buf}))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, "abc-123", rr.Header().Get("X-Request-ID"))
	assert.Contains(t, buf.String(), "level=INFO")
}

func TestLookupWithoutLogger(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	l, ok := Lookup(req.Context())
	assert.False(t, ok)
	assert.Nil(t, l)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", ClientIP(req))
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	New(Config{Format: "json", Component: ComponentStorage, Output: &buf}).Info("opened")
	assert.Contains(t, buf.String(), `"component":"storage"`)
	assert.Contains(t, buf.String(), `"msg":"opened"`)
}
