// Package noop provides the metrics client used when collection is disabled.
// Observations are dropped and the scrape endpoint answers 503.
package noop

import (
	"context"
	"net/http"

	"github.com/architeacher/checkpoint/pkg/metrics"
	"go.opentelemetry.io/otel/attribute"
)

const disabledMessage = "metrics collection is disabled"

type (
	MetricsClient struct{}
)

var _ metrics.Client = MetricsClient{}

func NewMetricsClient() MetricsClient {
	return MetricsClient{}
}

func (c MetricsClient) Inc(_ context.Context, _ string, _ any, _ ...attribute.KeyValue) {}

// Handler tells scrapers that nothing is collected instead of pretending the route is missing.
func (c MetricsClient) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "3600")
		http.Error(w, disabledMessage, http.StatusServiceUnavailable)
	})
}

func (c MetricsClient) Shutdown(_ context.Context) error {
	return nil
}
