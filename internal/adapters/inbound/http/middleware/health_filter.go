package middleware

import (
	"context"
	"net/http"
	"slices"
	"strings"
)

const skipAccessLogKey contextKey = "skip_access_log"

var defaultHealthEndpoints = []string{
	"/health",
	"/liveness",
	"/readiness",
	"/api/health",
	"/api/liveness",
	"/api/readiness",
}

// HealthCheckFilter keeps health check traffic out of the access log unless asked otherwise.
type HealthCheckFilter struct {
	healthEndpoints []string
	logHealthChecks bool
}

func NewHealthCheckFilter(logHealthChecks bool) *HealthCheckFilter {
	return &HealthCheckFilter{
		healthEndpoints: defaultHealthEndpoints,
		logHealthChecks: logHealthChecks,
	}
}

func (h *HealthCheckFilter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.logHealthChecks && h.isHealthEndpoint(r.URL.Path) {
			r = r.WithContext(context.WithValue(r.Context(), skipAccessLogKey, true))
		}

		next.ServeHTTP(w, r)
	})
}

func (h *HealthCheckFilter) isHealthEndpoint(path string) bool {
	return slices.Contains(h.healthEndpoints, strings.TrimSuffix(path, "/"))
}

func ShouldSkipAccessLog(ctx context.Context) bool {
	skip, ok := ctx.Value(skipAccessLogKey).(bool)

	return ok && skip
}
