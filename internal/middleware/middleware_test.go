package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"taskManager/internal/logger"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	prev := logger.Logger
	logger.Logger = zap.New(core)
	t.Cleanup(func() { logger.Logger = prev })
	return logs
}

func taskRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logging)
	r.Get("/tasks/{id}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "id") == "missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"task":{}}`))
	})
	return r
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{name: "id клиента сохраняется", incoming: "req-42", keep: true},
		{name: "пустой id генерируется", incoming: ""},
		{name: "слишком длинный id заменяется", incoming: strings.Repeat("x", maxRequestIDLength+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetRequestID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
			req.Header.Set(RequestIDHeader, tt.incoming)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			require.NotEmpty(t, seen)
			assert.Equal(t, seen, w.Header().Get(RequestIDHeader))
			if tt.keep {
				assert.Equal(t, tt.incoming, seen)
			} else {
				assert.NotEqual(t, tt.incoming, seen)
			}
		})
	}
}

func TestLogging_RouteAndLevel(t *testing.T) {
	tests := []struct {
		path   string
		id     string
		status int
		level  zapcore.Level
	}{
		{path: "/tasks/abc", id: "abc", status: http.StatusOK, level: zapcore.InfoLevel},
		{path: "/tasks/missing", id: "missing", status: http.StatusNotFound, level: zapcore.WarnLevel},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			logs := observeLogs(t)

			w := httptest.NewRecorder()
			taskRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.Equal(t, tt.status, w.Code)

			out := logs.FilterMessage("HTTP_OUT: Завершение запроса").All()
			require.Len(t, out, 1)
			assert.Equal(t, tt.level, out[0].Level)

			fields := out[0].ContextMap()
			assert.Equal(t, "/tasks/{id}", fields["route"])
			assert.Equal(t, tt.id, fields["task_id"])
			assert.Equal(t, int64(tt.status), fields["status"])
			assert.NotEmpty(t, fields["request_id"])
		})
	}
}

func TestLogging_Unmatched(t *testing.T) {
	logs := observeLogs(t)

	w := httptest.NewRecorder()
	taskRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))

	out := logs.FilterMessage("HTTP_OUT: Завершение запроса").All()
	require.Len(t, out, 1)
	assert.Equal(t, "unmatched", out[0].ContextMap()["route"])
	assert.NotContains(t, out[0].ContextMap(), "task_id")
}

func TestLimiter(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	l := newLimiter(2, time.Minute)

	remaining, _, ok := l.allow("10.0.0.1", now)
	assert.True(t, ok)
	assert.Equal(t, 1, remaining)

	remaining, resetAt, ok := l.allow("10.0.0.1", now.Add(time.Second))
	assert.True(t, ok)
	assert.Equal(t, 0, remaining)
	assert.Equal(t, now.Add(time.Minute), resetAt)

	_, _, ok = l.allow("10.0.0.1", now.Add(2*time.Second))
	assert.False(t, ok)

	_, _, ok = l.allow("10.0.0.2", now.Add(2*time.Second))
	assert.True(t, ok, "другой клиент считается отдельно")

	remaining, _, ok = l.allow("10.0.0.1", now.Add(time.Minute))
	assert.True(t, ok, "окно сбрасывается")
	assert.Equal(t, 1, remaining)

	l.allow("10.0.0.3", now.Add(3*time.Minute))
	assert.Len(t, l.clients, 1, "истёкшие окна удаляются")
}

func TestRateLimit(t *testing.T) {
	h := RequestID(RateLimit(1)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/tasks", nil))
	assert.Equal(t, http.StatusNoContent, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", first.Header().Get("X-RateLimit-Remaining"))

	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/tasks", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
	assert.Contains(t, second.Body.String(), `"error":"RATE_LIMITED"`)
	assert.Contains(t, second.Body.String(), second.Header().Get(RequestIDHeader))
}
