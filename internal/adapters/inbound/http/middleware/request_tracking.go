package middleware

import (
	"context"
	"net/http"

	"github.com/architeacher/checkpoint/pkg/logger"
	"github.com/google/uuid"
)

type contextKey string

const (
	RequestIDHeader     = "Request-Id"
	CorrelationIDHeader = "Correlation-Id"
)

// RequestTracking stores request and correlation ids under the logger's context keys,
// so every log line written with logger.WithContext carries them.
func RequestTracking() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			correlationID := r.Header.Get(CorrelationIDHeader)
			if correlationID == "" {
				correlationID = uuid.New().String()
			}

			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.New().String()
			}

			ctx := context.WithValue(r.Context(), logger.ContextKeyCorrelationID, correlationID)
			ctx = context.WithValue(ctx, logger.ContextKeyRequestID, requestID)

			w.Header().Set(CorrelationIDHeader, correlationID)
			w.Header().Set(RequestIDHeader, requestID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(logger.ContextKeyRequestID).(string); ok {
		return id
	}

	return ""
}

func GetCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(logger.ContextKeyCorrelationID).(string); ok {
		return id
	}

	return ""
}
