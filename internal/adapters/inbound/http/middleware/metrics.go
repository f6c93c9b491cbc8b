package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/architeacher/checkpoint/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
)

const (
	httpMethodKey     = "http.method"
	httpRouteKey      = "http.route"
	httpStatusCodeKey = "http.status_code"

	httpRequestTotal    = "http_requests_total"
	httpRequestDuration = "http_request_duration_seconds"
	httpResponseSize    = "http_response_size_bytes"
)

type MetricsMiddleware struct {
	metricsClient metrics.Client
}

func NewMetricsMiddleware(metricsClient metrics.Client) *MetricsMiddleware {
	return &MetricsMiddleware{metricsClient: metricsClient}
}

func (m *MetricsMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := NewFlushableResponseWriter(w)

		next.ServeHTTP(wrapped, r)

		m.record(r.Context(), r.Method, routePattern(r), wrapped.StatusCode(), time.Since(start), wrapped.BytesWritten())
	})
}

func (m *MetricsMiddleware) record(ctx context.Context, method, route string, status int, duration time.Duration, size uint64) {
	attrs := []attribute.KeyValue{
		attribute.String(httpMethodKey, method),
		attribute.String(httpRouteKey, route),
		attribute.String(httpStatusCodeKey, strconv.Itoa(status)),
	}

	m.metricsClient.Inc(ctx, httpRequestTotal, int64(1), attrs...)
	m.metricsClient.Inc(ctx, httpRequestDuration, duration, attrs...)
	m.metricsClient.Inc(ctx, httpResponseSize, int64(size), attrs...)
}

// routePattern keeps label cardinality bounded: device ids collapse into their route.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}

	return "unmatched"
}
