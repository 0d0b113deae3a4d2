package metrics

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// serveLogged runs req through LoggingMiddleware and returns the response
// and the decoded log line.
func serveLogged(t *testing.T, req *http.Request, status int) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	logger := zap.New(zapcore.NewCore(encoder, zapcore.AddSync(&buf), zapcore.InfoLevel))

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})

	w := httptest.NewRecorder()
	LoggingMiddleware(logger)(handler).ServeHTTP(w, req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "log: %s", buf.String())
	return w, entry
}

func TestLoggingMiddleware(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/analyze", nil)
	req.RemoteAddr = "192.168.1.1:12345"

	_, entry := serveLogged(t, req, http.StatusNotFound)

	assert.Equal(t, "POST", entry["method"])
	assert.Equal(t, "/api/analyze", entry["path"])
	assert.Equal(t, float64(404), entry["status"])
	assert.Contains(t, entry, "duration_ms")
	assert.Equal(t, "192.168.1.1:12345", entry["client_ip"])
}

func TestLoggingMiddleware_AddsRequestID(t *testing.T) {
	w, entry := serveLogged(t, httptest.NewRequest("GET", "/portfolio", nil), http.StatusOK)

	requestID := w.Header().Get(RequestIDHeader)
	require.NotEmpty(t, requestID)
	assert.Equal(t, requestID, entry["request_id"])
}

func TestLoggingMiddleware_ReusesIncomingRequestID(t *testing.T) {
	req := httptest.NewRequest("GET", "/portfolio", nil)
	req.Header.Set(RequestIDHeader, "abc-123")

	w, entry := serveLogged(t, req, http.StatusOK)

	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "abc-123", entry["request_id"])
}

func TestLoggingMiddleware_XForwardedFor(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.50, 10.0.0.2")
	req.RemoteAddr = "10.0.0.1:54321"

	_, entry := serveLogged(t, req, http.StatusOK)

	assert.Equal(t, "203.0.113.50", entry["client_ip"])
}
