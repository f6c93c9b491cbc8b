package middleware

import (
	"net/http"
	"time"

	"github.com/architeacher/checkpoint/pkg/logger"
)

func AccessLogger(log logger.Logger, includeQueryParams bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ShouldSkipAccessLog(r.Context()) {
				next.ServeHTTP(w, r)

				return
			}

			start := time.Now()
			wrapped := NewFlushableResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			reqLogger := log.WithContext(r.Context()).
				With().
				Str("component", "http").
				Logger()

			event := reqLogger.Info()

			switch {
			case wrapped.StatusCode() >= http.StatusInternalServerError:
				event = reqLogger.Error()
			case wrapped.StatusCode() >= http.StatusBadRequest:
				event = reqLogger.Warn()
			}

			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Str("user_agent", r.UserAgent()).
				Str("proto", r.Proto).
				Int("status", wrapped.StatusCode()).
				Uint64("bytes", wrapped.BytesWritten()).
				Int64("duration_ms", time.Since(start).Milliseconds())

			if includeQueryParams && r.URL.RawQuery != "" {
				event.Str("query", r.URL.RawQuery)
			}

			event.Send()
		})
	}
}
