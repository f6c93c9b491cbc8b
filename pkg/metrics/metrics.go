package metrics

import (
	"context"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

const (
	// DurationSuffix marks keys whose values are observed as latency in seconds.
	DurationSuffix = "duration"
	SecondsSuffix  = "seconds"
)

type (
	Client interface {
		Inc(ctx context.Context, key string, value any, attributes ...attribute.KeyValue)
		Handler() http.Handler
		Shutdown(ctx context.Context) error
	}
)

// IsDurationKey reports whether key names a latency series rather than a counter.
func IsDurationKey(key string) bool {
	normalized := strings.ToLower(key)

	return strings.HasSuffix(normalized, DurationSuffix) || strings.HasSuffix(normalized, SecondsSuffix)
}
