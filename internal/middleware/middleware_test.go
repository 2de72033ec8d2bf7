package middleware

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// =========================================================================
// LOGGER
// =========================================================================

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	h := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/brew", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	line := buf.String()
	assert.Contains(t, line, "request completed")
	assert.Contains(t, line, "path=/brew")
	assert.Contains(t, line, "status=418")
	assert.Contains(t, line, "bytes=15")
}

func TestLogger_ServerErrorsAtErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	h := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Contains(t, buf.String(), "level=ERROR")
}

func TestResponseWriter_DefaultsTo200(t *testing.T) {
	rw := wrap(httptest.NewRecorder())
	_, err := rw.Write([]byte("hi"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, rw.statusCode)
	assert.EqualValues(t, 2, rw.written)
	assert.Same(t, rw, wrap(rw), "wrapping twice reuses the wrapper")
}

// =========================================================================
// METRICS
// =========================================================================

func TestMetrics(t *testing.T) {
	m := NewMetrics()

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/book/{isbn}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Handle("/metrics", m.Handler())

	for _, isbn := range []string{"111", "222", "333"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/book/"+isbn, nil))
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `bookstore_http_requests_total{method="GET",route="/book/{isbn}",status="404"} 3`)
	assert.Contains(t, body, "bookstore_http_request_duration_seconds_bucket")
	assert.NotContains(t, body, `route="/book/111"`)
}

// =========================================================================
// RATE LIMITER
// =========================================================================

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func requestFrom(addr string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(""))
	req.RemoteAddr = addr
	return req
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(3, discard)
	h := rl.Handler(okHandler())

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, requestFrom("10.0.0.1:5000"))
		require.Equal(t, http.StatusOK, rec.Code, "request %d is within the burst", i+1)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestFrom("10.0.0.1:5001"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code, "a new port is the same client")
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, requestFrom("10.0.0.2:5000"))
	assert.Equal(t, http.StatusOK, rec.Code, "other clients are unaffected")
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(1, discard)
	h := rl.Handler(okHandler())
	h.ServeHTTP(httptest.NewRecorder(), requestFrom("10.0.0.1:1"))
	h.ServeHTTP(httptest.NewRecorder(), requestFrom("10.0.0.2:1"))

	assert.Zero(t, rl.Cleanup(time.Hour))
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 2, rl.Cleanup(time.Millisecond))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestFrom("10.0.0.1:1"))
	assert.Equal(t, http.StatusOK, rec.Code, "a forgotten client starts with a fresh allowance")
}

func TestRateLimiter_StartCleanupStops(t *testing.T) {
	rl := NewRateLimiter(1, discard)
	ctx, cancel := context.WithCancel(context.Background())
	rl.StartCleanup(ctx, time.Millisecond)
	cancel()
}

func TestClientIP(t *testing.T) {
	assert.Equal(t, "192.0.2.1", clientIP(requestFrom("192.0.2.1:1234")))
	assert.Equal(t, "192.0.2.1", clientIP(requestFrom("192.0.2.1")), "RealIP leaves no port")
	assert.Equal(t, "::1", clientIP(requestFrom("[::1]:80")))
}
