package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BaSui01/holidayflow/api/handlers"
	"github.com/BaSui01/holidayflow/internal/metrics"
	"github.com/BaSui01/holidayflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var testNamespaceSeq atomic.Uint64

// nextTestNamespace keeps promauto registrations unique within the test binary.
func nextTestNamespace() string {
	return fmt.Sprintf("cmd_test_%d", testNamespaceSeq.Add(1))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
}

func statusHandler(code int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
	})
}

func TestSecurityHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	SecurityHeaders()(okHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-referrer", w.Header().Get("Referrer-Policy"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "frame-ancestors 'none'")
}

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = types.RequestID(r.Context())
	}))

	tests := []struct {
		name     string
		header   string
		preserve bool
	}{
		{"generated", "", false},
		{"preserved", "client-42", true},
		{"too long", strings.Repeat("x", maxRequestIDLen+1), false},
		{"control characters", "bad\tid", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("X-Request-ID", tt.header)
			}
			handler.ServeHTTP(w, r)

			if tt.preserve {
				assert.Equal(t, tt.header, seen)
			} else {
				assert.True(t, strings.HasPrefix(seen, "req-"), seen)
			}
			assert.Equal(t, seen, w.Header().Get("X-Request-ID"))
		})
	}
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	handler := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}), RequestID(), Recovery(zap.New(core)))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/book-holiday/demo", nil)
	r.Header.Set("X-Request-ID", "req-panic")
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp handlers.Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, string(types.ErrInternalError), resp.Error.Code)
	assert.Equal(t, "req-panic", resp.RequestID)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "handler panicked", entry.Message)
	assert.Equal(t, "req-panic", entry.ContextMap()["request_id"])
}

func TestRequestLogger_Levels(t *testing.T) {
	tests := []struct {
		path  string
		code  int
		level zapcore.Level
	}{
		{"/book-holiday", http.StatusOK, zapcore.InfoLevel},
		{"/book-holiday", http.StatusBadRequest, zapcore.WarnLevel},
		{"/book-holiday", http.StatusBadGateway, zapcore.ErrorLevel},
		{"/health", http.StatusOK, zapcore.DebugLevel},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s %d", tt.path, tt.code), func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			handler := RequestLogger(zap.New(core))(statusHandler(tt.code))
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, nil))

			require.Equal(t, 1, logs.Len())
			entry := logs.All()[0]
			assert.Equal(t, tt.level, entry.Level)
			assert.Equal(t, int64(tt.code), entry.ContextMap()["status"])
		})
	}
}

func TestIPLimiter(t *testing.T) {
	l := newIPLimiter(1, 2)
	now := time.Now()

	ok, _ := l.reserve("10.0.0.1", now)
	assert.True(t, ok)
	ok, _ = l.reserve("10.0.0.1", now)
	assert.True(t, ok)
	ok, wait := l.reserve("10.0.0.1", now)
	assert.False(t, ok)
	assert.InDelta(t, time.Second.Seconds(), wait.Seconds(), 0.05)

	// a rejected request does not consume the next token
	ok, _ = l.reserve("10.0.0.1", now.Add(time.Second))
	assert.True(t, ok)

	ok, _ = l.reserve("10.0.0.2", now)
	assert.True(t, ok)

	assert.Equal(t, 2, l.sweep(now.Add(time.Minute)))
	assert.Equal(t, 0, l.sweep(now.Add(visitorTTL+2*time.Second)))
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	handler := RateLimiter(ctx, 1, 2, zap.NewNop())(okHandler())
	send := func(path, addr string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, path, nil)
		r.RemoteAddr = addr
		handler.ServeHTTP(w, r)
		return w
	}

	assert.Equal(t, http.StatusOK, send("/book-holiday", "10.0.0.1:1234").Code)
	assert.Equal(t, http.StatusOK, send("/book-holiday", "10.0.0.1:1234").Code)

	limited := send("/book-holiday", "10.0.0.1:1234")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "1", limited.Header().Get("Retry-After"))
	var resp handlers.Response
	require.NoError(t, json.NewDecoder(limited.Body).Decode(&resp))
	assert.Equal(t, string(types.ErrRateLimited), resp.Error.Code)

	// health checks bypass the limiter
	assert.Equal(t, http.StatusOK, send("/ready", "10.0.0.1:1234").Code)
	// another client has its own bucket
	assert.Equal(t, http.StatusOK, send("/book-holiday", "10.0.0.2:1234").Code)
}

func TestRateLimiter_Disabled(t *testing.T) {
	handler := RateLimiter(context.Background(), 0, 0, zap.NewNop())(okHandler())

	for i := 0; i < 50; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name        string
		allowed     []string
		method      string
		origin      string
		wantStatus  int
		wantAllowed string
	}{
		{"same origin", nil, http.MethodGet, "", http.StatusOK, ""},
		{"no whitelist, preflight rejected", nil, http.MethodOptions, "https://evil.example", http.StatusForbidden, ""},
		{"allowed origin", []string{"https://app.example"}, http.MethodGet, "https://app.example", http.StatusOK, "https://app.example"},
		{"allowed preflight", []string{"https://app.example"}, http.MethodOptions, "https://app.example", http.StatusNoContent, "https://app.example"},
		{"other origin", []string{"https://app.example"}, http.MethodGet, "https://evil.example", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(tt.method, "/book-holiday", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			if tt.method == http.MethodOptions {
				r.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			CORS(tt.allowed)(okHandler()).ServeHTTP(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantAllowed, w.Header().Get("Access-Control-Allow-Origin"))
			if tt.origin != "" {
				assert.Equal(t, "Origin", w.Header().Get("Vary"))
			}
		})
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/book-holiday", "/book-holiday"},
		{"/agents/status", "/agents/status"},
		{"/health", "/health"},
		{"/book/hotel", "/book/hotel"},
		{"/book/submarine", "/book/:domain"},
		{"/a2a/tasks/send", "/a2a/tasks/send"},
		{"/a2a/tasks/9b2f6c1e-4d3a-4c59-9a57-0c7e1f0a9c11", "/a2a/tasks/:id"},
		{"/a2a/tasks/9b2f6c1e-4d3a-4c59-9a57-0c7e1f0a9c11/cancel", "/a2a/tasks/:id/cancel"},
		{"/a2a/tasks/not-a-task/cancel", "/a2a/tasks/:invalid/cancel"},
		{"/wp-admin/login.php", "other"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizePath(tt.in), tt.in)
	}
}

func TestMiddlewareStack(t *testing.T) {
	collector := metrics.NewCollector(nextTestNamespace(), zap.NewNop())

	var calls atomic.Int32
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, ok := types.RequestID(r.Context())
		assert.True(t, ok)
		w.WriteHeader(http.StatusAccepted)
	})

	handler := Chain(inner,
		Recovery(zap.NewNop()),
		RequestID(),
		SecurityHeaders(),
		OTelTracing("orchestrator"),
		RequestLogger(zap.NewNop()),
		MetricsMiddleware(collector),
	)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/book/hotel", nil))

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, int32(1), calls.Load())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
