package middleware_test

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyguard/fleet-backend/internal/middleware"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func serve(h http.Handler, method, path, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// TestCORS_AllowedOrigin verifies that an allow-listed origin is echoed back.
func TestCORS_AllowedOrigin(t *testing.T) {
	h := middleware.CORS([]string{"http://localhost:8501/"})(ok)

	rec := serve(h, http.MethodGet, "/", "http://localhost:8501")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:8501", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", rec.Header().Get("Vary"))
}

// TestCORS_UnknownOrigin verifies that other origins get no allow header.
func TestCORS_UnknownOrigin(t *testing.T) {
	h := middleware.CORS([]string{"http://localhost:8501"})(ok)

	rec := serve(h, http.MethodGet, "/", "https://evil.example")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

// TestCORS_Preflight verifies that OPTIONS short-circuits with 204.
func TestCORS_Preflight(t *testing.T) {
	called := false
	h := middleware.CORS([]string{"http://localhost:8501"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := serve(h, http.MethodOptions, "/fleet/drones", "http://localhost:8501")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, called)
}

type recordedRequest struct {
	method, route string
	status        int
}

type recorder struct {
	mu   sync.Mutex
	reqs []recordedRequest
}

func (r *recorder) ObserveRequest(method, route string, status int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs = append(r.reqs, recordedRequest{method, route, status})
}

// TestRequestLogger_RecordsRoutePattern verifies that requests are labelled
// by the matched route rather than the raw path.
func TestRequestLogger_RecordsRoutePattern(t *testing.T) {
	var buf bytes.Buffer
	lg := slog.New(slog.NewTextHandler(&buf, nil))
	obs := &recorder{}

	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(lg, obs))
	r.Get("/drones/{entity_id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	serve(r, http.MethodGet, "/drones/DRONE-001", "")
	serve(r, http.MethodGet, "/nowhere", "")

	require.Len(t, obs.reqs, 2)
	assert.Equal(t, recordedRequest{http.MethodGet, "/drones/{entity_id}", http.StatusTeapot}, obs.reqs[0])
	assert.Equal(t, http.StatusNotFound, obs.reqs[1].status)
	assert.Contains(t, buf.String(), "path=/drones/DRONE-001")
	assert.Contains(t, buf.String(), "component=http")
}

// TestRateLimit verifies that requests past the burst get 429.
func TestRateLimit(t *testing.T) {
	h := middleware.RateLimit(0.001, 2)(ok)

	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/", "").Code)
	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/", "").Code)
	rec := serve(h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

// TestRateLimit_Disabled verifies that a zero rate passes everything.
func TestRateLimit_Disabled(t *testing.T) {
	h := middleware.RateLimit(0, 0)(ok)
	for i := 0; i < 100; i++ {
		require.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/", "").Code)
	}
}
