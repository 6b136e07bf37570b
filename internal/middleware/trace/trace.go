// Package trace logs every HTTP request and records its latency under the
// matched chi route pattern.
package trace

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"fintrack/internal/log"
	"fintrack/internal/metrics"
)

// Middleware handles request tracing and logging
type Middleware struct {
	logger *log.StructuredLogger
	stats  *Stats
}

// Stats tracks request counters kept alongside the prometheus series.
type Stats struct {
	TotalRequests int64
	ServerErrors  int64
}

// NewMiddleware creates a new trace middleware
func NewMiddleware(logger *log.Logger) *Middleware {
	return &Middleware{
		logger: log.NewStructuredLogger(logger.WithComponent(log.ComponentHTTP)),
		stats:  &Stats{},
	}
}

// Handler wraps next. It expects chi's RequestID and RealIP to run first.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return log.RequestIDMiddleware(requestID)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := r.RemoteAddr

		m.logger.LogHTTPStart(r.Context(), r, clientIP)
		atomic.AddInt64(&m.stats.TotalRequests, 1)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		if status >= 500 {
			atomic.AddInt64(&m.stats.ServerErrors, 1)
		}

		elapsed := time.Since(start)
		code := strconv.Itoa(status)
		route := RoutePattern(r)
		metrics.RequestCount.WithLabelValues(code, r.Method, route).Inc()
		metrics.RequestDuration.WithLabelValues(code, r.Method, route).Observe(elapsed.Seconds())

		m.logger.LogHTTPEnd(r.Context(), r, status, elapsed.Milliseconds(), clientIP)
	}))
}

func requestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}

// RoutePattern returns the chi pattern that served r, so label cardinality
// stays bounded. Unmatched requests share one label.
func RoutePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// GetStats returns current counters
func (m *Middleware) GetStats() Stats {
	return Stats{
		TotalRequests: atomic.LoadInt64(&m.stats.TotalRequests),
		ServerErrors:  atomic.LoadInt64(&m.stats.ServerErrors),
	}
}
