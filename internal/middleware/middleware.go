package middleware

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"taskManager/internal/logger"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type contextKey string

const RequestIdKey contextKey = "request_id"

const RequestIDHeader = "X-Request-ID"

// maxRequestIDLength ограничивает id, пришедший от клиента
const maxRequestIDLength = 64

// RequestID берёт id из заголовка клиента либо генерирует новый
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestId := r.Header.Get(RequestIDHeader)
		if requestId == "" || len(requestId) > maxRequestIDLength {
			requestId = uuid.New().String()
		}

		w.Header().Set(RequestIDHeader, requestId)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), RequestIdKey, requestId)))
	})
}

func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIdKey).(string); ok {
		return id
	}
	return ""
}

type loggingWriter struct {
	http.ResponseWriter
	status      int
	size        int
	wroteHeader bool
}

func (lw *loggingWriter) WriteHeader(code int) {
	if lw.wroteHeader {
		return
	}
	lw.status = code
	lw.wroteHeader = true
	lw.ResponseWriter.WriteHeader(code)
}

func (lw *loggingWriter) Write(b []byte) (int, error) {
	if !lw.wroteHeader {
		lw.WriteHeader(http.StatusOK)
	}
	n, err := lw.ResponseWriter.Write(b)
	lw.size += n
	return n, err
}

func levelFor(status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest:
		return zapcore.WarnLevel
	}
	return zapcore.InfoLevel
}

// routeFields читает шаблон маршрута и id задачи; chi заполняет их только после маршрутизации
func routeFields(r *http.Request) []zap.Field {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || rctx.RoutePattern() == "" {
		return []zap.Field{zap.String("route", "unmatched")}
	}
	fields := []zap.Field{zap.String("route", rctx.RoutePattern())}
	if id := rctx.URLParam("id"); id != "" {
		fields = append(fields, zap.String("task_id", id))
	}
	return fields
}

func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestId := GetRequestID(r.Context())

		logger.Debug("HTTP_IN: Начало запроса",
			zap.String("request_id", requestId),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("query", r.URL.RawQuery),
			zap.String("client_ip", r.RemoteAddr),
		)

		lw := &loggingWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(lw, r)

		fields := append([]zap.Field{
			zap.String("request_id", requestId),
			zap.String("method", r.Method),
			zap.Int("status", lw.status),
			zap.Int("bytes_written", lw.size),
			zap.Duration("ms", time.Since(start)),
		}, routeFields(r)...)
		logger.Log(levelFor(lw.status), "HTTP_OUT: Завершение запроса", fields...)
	})
}

// window - окно счётчика одного клиента
type window struct {
	count   int
	resetAt time.Time
}

// limiter считает запросы по IP в окне длиной period
type limiter struct {
	mu      sync.Mutex
	rpm     int
	period  time.Duration
	clients map[string]*window
	sweepAt time.Time
}

func newLimiter(rpm int, period time.Duration) *limiter {
	return &limiter{rpm: rpm, period: period, clients: make(map[string]*window)}
}

// allow учитывает запрос и возвращает остаток и момент сброса окна
func (l *limiter) allow(ip string, now time.Time) (remaining int, resetAt time.Time, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)

	w, exists := l.clients[ip]
	if !exists || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(l.period)}
		l.clients[ip] = w
	}
	if w.count >= l.rpm {
		return 0, w.resetAt, false
	}
	w.count++
	return l.rpm - w.count, w.resetAt, true
}

// sweep убирает истёкшие окна не чаще раза за период
func (l *limiter) sweep(now time.Time) {
	if now.Before(l.sweepAt) {
		return
	}
	for ip, w := range l.clients {
		if !now.Before(w.resetAt) {
			delete(l.clients, ip)
		}
	}
	l.sweepAt = now.Add(l.period)
}

func writeRateLimited(w http.ResponseWriter, r *http.Request, retryAfter int) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	w.WriteHeader(http.StatusTooManyRequests)

	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":   "RATE_LIMITED",
		"message": "Слишком много запросов. Попробуйте позже.",
		"details": map[string]any{
			"retry_after": retryAfter,
			"request_id":  GetRequestID(r.Context()),
		},
	})
}

// RateLimit ограничивает число запросов с одного IP в минуту; rpm <= 0 отключает лимит
func RateLimit(rpm int) func(http.Handler) http.Handler {
	if rpm <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	l := newLimiter(rpm, time.Minute)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			now := time.Now()

			remaining, resetAt, ok := l.allow(ip, now)
			if !ok {
				retryAfter := int(resetAt.Sub(now).Seconds()) + 1
				logger.Warn("HTTP: Превышен лимит запросов",
					zap.String("client_ip", ip),
					zap.Int("retry_after", retryAfter))
				writeRateLimited(w, r, retryAfter)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rpm))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
