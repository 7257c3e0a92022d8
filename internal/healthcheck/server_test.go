package healthcheck

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func get(t *testing.T, s *Server, path string) (int, HealthResponse) {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestHealth(t *testing.T) {
	s := NewServer("0", zaptest.NewLogger(t))
	code, body := get(t, s, "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "UP", body.Status)
}

func TestReady(t *testing.T) {
	s := NewServer("0", zaptest.NewLogger(t))
	s.AddCheck("postgres", func(ctx context.Context) error { return nil })

	code, body := get(t, s, "/ready")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "READY", body.Status)
	assert.Equal(t, "ok", body.Details["postgres"])

	s.AddCheck("nats", func(ctx context.Context) error { return errors.New("nats disconnected") })
	code, body = get(t, s, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "NOT_READY", body.Status)
	assert.Equal(t, "nats disconnected", body.Details["nats"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := NewServer("0", zaptest.NewLogger(t))
	s.RegisterMetricsHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	}))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "# metrics", rec.Body.String())
}
