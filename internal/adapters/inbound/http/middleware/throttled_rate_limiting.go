package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/architeacher/checkpoint/internal/config"
	"github.com/architeacher/checkpoint/pkg/logger"
	"github.com/throttled/throttled/v2"
)

const (
	RateLimitLimitHeader     = "RateLimit-Limit"
	RateLimitRemainingHeader = "RateLimit-Remaining"
	RateLimitResetHeader     = "RateLimit-Reset"
	RetryAfterHeader         = "Retry-After"

	globalRateLimitKey = "global"
)

// ThrottledRateLimiting applies a GCRA quota per client ip, or one global quota.
func ThrottledRateLimiting(
	cfg config.ThrottledRateLimiting,
	store throttled.GCRAStoreCtx,
	log logger.Logger,
) (func(http.Handler) http.Handler, error) {
	quota := throttled.RateQuota{
		MaxRate:  throttled.PerSec(int(cfg.RequestsPerSecond)),
		MaxBurst: int(cfg.BurstSize),
	}

	rateLimiter, err := throttled.NewGCRARateLimiterCtx(store, quota)
	if err != nil {
		return nil, err
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if shouldSkipRateLimit(r.URL.Path, cfg.SkipPaths) {
				next.ServeHTTP(w, r)

				return
			}

			limited, result, err := rateLimiter.RateLimitCtx(r.Context(), rateLimitKey(r, cfg), 1)
			if err != nil {
				reqLogger := log.WithContext(r.Context())
				reqLogger.Warn().Err(err).Msg("rate limiter store error")

				if cfg.GracefulDegraded {
					next.ServeHTTP(w, r)

					return
				}

				writeError(w, http.StatusServiceUnavailable, "RATE_LIMITER_UNAVAILABLE",
					"rate limiting service temporarily unavailable")

				return
			}

			setRateLimitHeaders(w, result)

			if limited {
				w.Header().Set(RetryAfterHeader, strconv.Itoa(int(result.RetryAfter.Seconds())))
				writeError(w, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED",
					"too many requests, please try again later")

				return
			}

			next.ServeHTTP(w, r)
		})
	}, nil
}

func shouldSkipRateLimit(path string, skipPaths []string) bool {
	for _, skipPath := range skipPaths {
		if skipPath != "" && strings.HasPrefix(path, skipPath) {
			return true
		}
	}

	return false
}

func rateLimitKey(r *http.Request, cfg config.ThrottledRateLimiting) string {
	if !cfg.EnableIPLimiting {
		return globalRateLimitKey
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}

	return "ip:" + host
}

func setRateLimitHeaders(w http.ResponseWriter, result throttled.RateLimitResult) {
	w.Header().Set(RateLimitLimitHeader, strconv.Itoa(result.Limit))
	w.Header().Set(RateLimitRemainingHeader, strconv.Itoa(result.Remaining))
	w.Header().Set(RateLimitResetHeader, strconv.FormatInt(time.Now().Add(result.ResetAfter).Unix(), 10))
}
