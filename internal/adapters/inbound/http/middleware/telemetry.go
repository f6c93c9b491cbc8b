package middleware

import (
	"net/http"
	"time"

	"github.com/architeacher/checkpoint/internal/domain/model"
	"github.com/architeacher/checkpoint/internal/ports"
)

// Telemetry reports every finished request to sink. The sink never blocks.
func Telemetry(sink ports.TelemetrySink) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := NewFlushableResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			sink.RecordRequest(r.Context(), model.RequestEvent{
				Method:     r.Method,
				Path:       r.URL.Path,
				StatusCode: wrapped.StatusCode(),
				Duration:   time.Since(start),
				RequestID:  GetRequestID(r.Context()),
			})
		})
	}
}
