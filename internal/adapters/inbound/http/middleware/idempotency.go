package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"slices"
	"time"

	"github.com/architeacher/checkpoint/internal/config"
	"github.com/architeacher/checkpoint/internal/ports"
	"github.com/architeacher/checkpoint/pkg/idempotency"
	"github.com/architeacher/checkpoint/pkg/logger"
)

// Idempotency replays the stored 2xx response for a repeated Idempotency-Key,
// so a retried checkin never registers the same device twice.
func Idempotency(
	cache ports.IdempotencyCache,
	cfg config.Idempotency,
	log logger.Logger,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cache == nil || !cfg.Enabled || !slices.Contains(cfg.RequiredMethods, r.Method) {
				next.ServeHTTP(w, r)

				return
			}

			key := r.Header.Get(cfg.HeaderName)
			if key == "" {
				next.ServeHTTP(w, r)

				return
			}

			if err := idempotency.Validate(key); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_IDEMPOTENCY_KEY", err.Error())

				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, cfg.MaxBodyBytes+1))
			if err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", "request body could not be read")

				return
			}

			if int64(len(body)) > cfg.MaxBodyBytes {
				writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body is too large")

				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))

			ctx := r.Context()
			reqLog := log.WithContext(ctx).With().Str("idempotency_key", key).Logger()
			cacheKey := idempotency.BuildCacheKey(r.Method, r.URL.Path, key)
			fingerprint := idempotency.Fingerprint(r.Header.Get("Content-Type"), body)

			degrade := func(err error, msg string) {
				reqLog.Warn().Err(err).Msg(msg)

				if cfg.GracefulDegraded {
					next.ServeHTTP(w, r)

					return
				}

				writeError(w, http.StatusServiceUnavailable, "CACHE_UNAVAILABLE",
					"idempotency service temporarily unavailable")
			}

			cached, err := cache.Get(ctx, cacheKey)
			if err != nil {
				degrade(err, "idempotency lookup failed")

				return
			}

			if cached != nil {
				if err := idempotency.CheckReplay(cached.Fingerprint, fingerprint); err != nil {
					writeError(w, http.StatusUnprocessableEntity, "IDEMPOTENCY_KEY_REUSED", err.Error())

					return
				}

				writeCachedResponse(w, cfg.ReplayedHeader, cached)

				return
			}

			acquired, err := cache.SetLock(ctx, cacheKey, cfg.LockTTL)
			if err != nil {
				degrade(err, "idempotency lock failed")

				return
			}

			if !acquired {
				writeError(w, http.StatusConflict, "REQUEST_IN_PROGRESS",
					"a request with this idempotency key is already being processed")

				return
			}

			defer func() {
				if err := cache.ReleaseLock(ctx, cacheKey); err != nil {
					reqLog.Warn().Err(err).Msg("failed to release idempotency lock")
				}
			}()

			recorder := newResponseRecorder(w)
			next.ServeHTTP(recorder, r.WithContext(idempotency.WithKey(ctx, key)))

			if recorder.statusCode < http.StatusOK || recorder.statusCode >= http.StatusMultipleChoices {
				return
			}

			response := &ports.CachedResponse{
				StatusCode:  recorder.statusCode,
				Headers:     recorder.capturedHeaders(),
				Body:        recorder.body.Bytes(),
				Fingerprint: fingerprint,
				CreatedAt:   time.Now().UTC(),
			}

			if err := cache.Set(ctx, cacheKey, response, cfg.CacheTTL); err != nil && !errors.Is(err, ctx.Err()) {
				reqLog.Warn().Err(err).Msg("failed to store idempotent response")
			}
		})
	}
}

func writeCachedResponse(w http.ResponseWriter, replayedHeader string, cached *ports.CachedResponse) {
	for key, value := range cached.Headers {
		w.Header().Set(key, value)
	}

	w.Header().Set(replayedHeader, "true")
	w.WriteHeader(cached.StatusCode)
	_, _ = w.Write(cached.Body)
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func newResponseRecorder(w http.ResponseWriter) *responseRecorder {
	return &responseRecorder{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
		body:           &bytes.Buffer{},
	}
}

func (r *responseRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)

	return r.ResponseWriter.Write(b)
}

// capturedHeaders skips per-request headers that must not be replayed.
func (r *responseRecorder) capturedHeaders() map[string]string {
	headers := make(map[string]string)

	for key, values := range r.ResponseWriter.Header() {
		if len(values) == 0 || key == RequestIDHeader || key == CorrelationIDHeader {
			continue
		}

		headers[key] = values[0]
	}

	return headers
}
